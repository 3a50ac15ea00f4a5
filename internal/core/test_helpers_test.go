package core_test

import (
	"context"
	"testing"
	"time"

	"bookclub/internal/core"
	"bookclub/pkg/domain"
)

var fixedNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

// testClock is a settable clock.
type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	svc      *core.Service
	clock    *testClock
	owner    domain.User
	borrower domain.User
	other    domain.User
	book     domain.ActualBook
}

func newFixture(t *testing.T, opts ...core.ServiceOption) fixture {
	t.Helper()
	clock := &testClock{now: fixedNow}
	opts = append([]core.ServiceOption{core.WithClock(clock)}, opts...)
	svc := core.NewInMemoryService(core.NewDefaultRulesEngine(), opts...)
	ctx := context.Background()

	f := fixture{svc: svc, clock: clock}
	f.owner = mustUser(t, svc, "aiko")
	f.borrower = mustUser(t, svc, "ben")
	f.other = mustUser(t, svc, "chiho")
	book, _, err := svc.AddBook(ctx, f.owner.ID, core.BookInput{
		Title:   "Norwegian Wood",
		Authors: "Murakami Haruki",
		Summary: "Tokyo, late sixties.",
	})
	if err != nil {
		t.Fatalf("add book: %v", err)
	}
	f.book = book
	return f
}

func mustUser(t *testing.T, svc *core.Service, name string) domain.User {
	t.Helper()
	u, _, err := svc.RegisterUser(context.Background(), name, "")
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return u
}

func (f fixture) request(t *testing.T) domain.Transaction {
	t.Helper()
	tr, _, err := f.svc.CreateBorrowRequest(context.Background(), f.book.ID, f.borrower.ID)
	if err != nil {
		t.Fatalf("create borrow request: %v", err)
	}
	return tr
}

func (f fixture) bookStatus(t *testing.T) domain.BookStatus {
	t.Helper()
	detail, err := f.svc.GetActualBook(context.Background(), f.book.ID)
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	return detail.Book.Status
}

func expectKind(t *testing.T, err error, want core.ErrorKind) {
	t.Helper()
	if got := core.KindOf(err); got != want {
		t.Fatalf("expected %s error, got %s (%v)", want, got, err)
	}
}
