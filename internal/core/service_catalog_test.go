package core_test

import (
	"context"
	"testing"

	"bookclub/internal/core"
	"bookclub/pkg/domain"
)

func TestAddBookReusesWorkAcrossNameOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	second, _, err := f.svc.AddBook(ctx, f.other.ID, core.BookInput{
		Title:   "Norwegian Wood",
		Authors: "Haruki Murakami",
		ISBN:    "978-0-306-40615-7",
		Genres:  []string{"Fiction", "fiction", "Romance"},
	})
	if err != nil {
		t.Fatalf("add second copy: %v", err)
	}
	if second.AbstractBookID != f.book.AbstractBookID {
		t.Fatalf("expected the same work, got %d and %d", second.AbstractBookID, f.book.AbstractBookID)
	}
	if second.Status != domain.StatusAvailable || second.OwnerID != f.other.ID {
		t.Fatalf("unexpected copy %+v", second)
	}

	listing, err := f.svc.GetAbstractBook(ctx, f.book.AbstractBookID)
	if err != nil {
		t.Fatalf("get work: %v", err)
	}
	if listing.Book.ISBN != "9780306406157" {
		t.Fatalf("expected ISBN filled in, got %q", listing.Book.ISBN)
	}
	if listing.Book.Summary != "Tokyo, late sixties." {
		t.Fatalf("existing summary must be kept, got %q", listing.Book.Summary)
	}
	if len(listing.Genres) != 2 {
		t.Fatalf("expected two genres after case folding, got %+v", listing.Genres)
	}
	if len(listing.Copies) != 2 || len(listing.Authors) != 1 || listing.Authors[0].LastName != "Murakami" || listing.Authors[0].FirstName != "Haruki" {
		t.Fatalf("unexpected listing %+v", listing)
	}
}

func TestAddBookMultipleAuthorsKeepsOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	copy1, _, err := f.svc.AddBook(ctx, f.owner.ID, core.BookInput{Title: "Good Omens", Authors: "Pratchett Terry, Gaiman Neil"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	listing, _ := f.svc.GetAbstractBook(ctx, copy1.AbstractBookID)
	if len(listing.Authors) != 2 || listing.Authors[0].LastName != "Pratchett" || listing.Authors[1].LastName != "Gaiman" {
		t.Fatalf("expected authors in input order, got %+v", listing.Authors)
	}

	// A different title by the same authors is a different work.
	copy2, _, err := f.svc.AddBook(ctx, f.owner.ID, core.BookInput{Title: "Good omens", Authors: "Gaiman Neil"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if copy2.AbstractBookID == copy1.AbstractBookID {
		t.Fatalf("title match must be exact")
	}
	// A subset of the authors still matches.
	copy3, _, err := f.svc.AddBook(ctx, f.owner.ID, core.BookInput{Title: "Good Omens", Authors: "Neil Gaiman"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if copy3.AbstractBookID != copy1.AbstractBookID {
		t.Fatalf("expected author subset to match the existing work")
	}
}

func TestAddBookValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tests := []struct {
		name  string
		owner int64
		in    core.BookInput
		want  core.ErrorKind
	}{
		{"unknown owner", 404, core.BookInput{Title: "T", Authors: "A"}, core.KindNotFound},
		{"blank title", f.owner.ID, core.BookInput{Title: "  ", Authors: "A"}, core.KindPreconditionFailed},
		{"no authors", f.owner.ID, core.BookInput{Title: "T", Authors: " , "}, core.KindPreconditionFailed},
		{"bad isbn", f.owner.ID, core.BookInput{Title: "T", Authors: "A", ISBN: "12345"}, core.KindPreconditionFailed},
		{"blank genre", f.owner.ID, core.BookInput{Title: "T", Authors: "A", Genres: []string{" "}}, core.KindPreconditionFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.svc.AddBook(ctx, tc.owner, tc.in)
			expectKind(t, err, tc.want)
		})
	}
	books, err := f.svc.ListAbstractBooks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(books) != 1 {
		t.Fatalf("failed adds must not create works, got %d", len(books))
	}
}

func TestResolveOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, _, err := f.svc.ResolveAuthor(ctx, "HARUKI MURAKAMI")
	if err != nil {
		t.Fatalf("resolve author: %v", err)
	}
	if a.LastName != "Murakami" {
		t.Fatalf("expected existing author via reading B, got %+v", a)
	}
	_, _, err = f.svc.ResolveAuthor(ctx, "   ")
	expectKind(t, err, core.KindPreconditionFailed)

	single, _, err := f.svc.ResolveAuthor(ctx, "homer")
	if err != nil || single.LastName != "Homer" || single.FirstName != "" {
		t.Fatalf("unexpected single-token author %+v %v", single, err)
	}

	work, _, err := f.svc.ResolveAbstractBook(ctx, "Norwegian Wood", []string{"Murakami Haruki"}, "ignored")
	if err != nil || work.ID != f.book.AbstractBookID {
		t.Fatalf("expected existing work, got %+v %v", work, err)
	}
	fresh, _, err := f.svc.ResolveAbstractBook(ctx, "The Odyssey", []string{"Homer", "homer"}, "Epic")
	if err != nil {
		t.Fatalf("resolve new work: %v", err)
	}
	if len(fresh.AuthorIDs) != 1 || fresh.ISBN != "" || fresh.Summary != "Epic" {
		t.Fatalf("unexpected created work %+v", fresh)
	}

	detail, err := f.svc.GetAuthor(ctx, single.ID)
	if err != nil || len(detail.Books) != 1 || detail.Books[0].Title != "The Odyssey" {
		t.Fatalf("unexpected author detail %+v %v", detail, err)
	}
	_, err = f.svc.GetAuthor(ctx, 999)
	expectKind(t, err, core.KindNotFound)

	authors, err := f.svc.ListAuthors(ctx)
	if err != nil || len(authors) != 2 || authors[0].LastName != "Homer" {
		t.Fatalf("expected authors sorted by last name, got %+v %v", authors, err)
	}
}

func TestRegisterUser(t *testing.T) {
	svc := core.NewInMemoryService(nil)
	ctx := context.Background()

	u, _, err := svc.RegisterUser(ctx, "  dora ", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Username != "dora" || u.Location != domain.DefaultLocation || u.ID != 1 {
		t.Fatalf("unexpected user %+v", u)
	}
	tests := []struct {
		name     string
		username string
		location domain.Location
	}{
		{"blank", " ", ""},
		{"taken ignoring case", "DORA", ""},
		{"unknown location", "eli", "zz"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.RegisterUser(ctx, tc.username, tc.location)
			expectKind(t, err, core.KindPreconditionFailed)
		})
	}
	found, err := svc.FindUserByName(ctx, "Dora")
	if err != nil || found.ID != u.ID {
		t.Fatalf("find by name: %+v %v", found, err)
	}
	_, err = svc.FindUserByName(ctx, "nobody")
	expectKind(t, err, core.KindNotFound)
	_, err = svc.GetUser(ctx, 2)
	expectKind(t, err, core.KindNotFound)
}
