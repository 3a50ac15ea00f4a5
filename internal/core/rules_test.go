package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookclub/internal/core"
	"bookclub/internal/infra/persistence/memory"
	"bookclub/pkg/domain"
)

type ruleSeed struct {
	owner, borrower domain.User
	book            domain.ActualBook
}

func seedRuleStore(t *testing.T, store *memory.Store) ruleSeed {
	t.Helper()
	var s ruleSeed
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Tx) error {
		var err error
		if s.owner, err = tx.CreateUser(domain.User{Username: "owner", Location: domain.LocationKutchan}); err != nil {
			return err
		}
		if s.borrower, err = tx.CreateUser(domain.User{Username: "borrower", Location: domain.LocationKutchan}); err != nil {
			return err
		}
		author, err := tx.CreateAuthor(domain.Author{LastName: "Tolkien"})
		if err != nil {
			return err
		}
		work, err := tx.CreateAbstractBook(domain.AbstractBook{Title: "The Hobbit", AuthorIDs: []int64{author.ID}})
		if err != nil {
			return err
		}
		s.book, err = tx.CreateActualBook(domain.ActualBook{AbstractBookID: work.ID, OwnerID: s.owner.ID})
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

func TestDefaultRulesEngineRegistersLendingRules(t *testing.T) {
	got := core.NewDefaultRulesEngine().Rules()
	want := []string{"transaction_state", "single_active_transaction", "book_status_consistency"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestLendingRulesBlockInconsistentCommits(t *testing.T) {
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		rule string
		fn   func(tx domain.Tx, s ruleSeed) error
	}{
		{
			name: "lender is not the owner",
			rule: "transaction_state",
			fn: func(tx domain.Tx, s ruleSeed) error {
				_, err := tx.CreateTransaction(domain.Transaction{BookID: s.book.ID, LenderID: s.borrower.ID, BorrowerID: s.owner.ID, State: domain.StateRejected})
				return err
			},
		},
		{
			name: "self loan",
			rule: "transaction_state",
			fn: func(tx domain.Tx, s ruleSeed) error {
				_, err := tx.CreateTransaction(domain.Transaction{BookID: s.book.ID, LenderID: s.owner.ID, BorrowerID: s.owner.ID, State: domain.StateRejected})
				return err
			},
		},
		{
			name: "invalid state",
			rule: "transaction_state",
			fn: func(tx domain.Tx, s ruleSeed) error {
				_, err := tx.CreateTransaction(domain.Transaction{BookID: s.book.ID, LenderID: s.owner.ID, BorrowerID: s.borrower.ID, State: "borrowed"})
				return err
			},
		},
		{
			name: "return before lend",
			rule: "transaction_state",
			fn: func(tx domain.Tx, s ruleSeed) error {
				_, err := tx.CreateTransaction(domain.Transaction{BookID: s.book.ID, LenderID: s.owner.ID, BorrowerID: s.borrower.ID, State: domain.StateReturned, LendDate: day, ReturnDate: day.AddDate(0, 0, -1)})
				return err
			},
		},
		{
			name: "two active transactions",
			rule: "single_active_transaction",
			fn: func(tx domain.Tx, s ruleSeed) error {
				for i := 0; i < 2; i++ {
					if _, err := tx.CreateTransaction(domain.Transaction{BookID: s.book.ID, LenderID: s.owner.ID, BorrowerID: s.borrower.ID, State: domain.StateLent}); err != nil {
						return err
					}
				}
				_, err := tx.UpdateActualBook(s.book.ID, func(b *domain.ActualBook) error {
					b.Status = domain.StatusOutForRent
					return nil
				})
				return err
			},
		},
		{
			name: "active transaction on an available copy",
			rule: "book_status_consistency",
			fn: func(tx domain.Tx, s ruleSeed) error {
				_, err := tx.CreateTransaction(domain.Transaction{BookID: s.book.ID, LenderID: s.owner.ID, BorrowerID: s.borrower.ID, State: domain.StateInitialRequest})
				return err
			},
		},
		{
			name: "invalid copy status",
			rule: "book_status_consistency",
			fn: func(tx domain.Tx, s ruleSeed) error {
				_, err := tx.UpdateActualBook(s.book.ID, func(b *domain.ActualBook) error {
					b.Status = "borrowed"
					return nil
				})
				return err
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.NewStore(core.NewDefaultRulesEngine())
			s := seedRuleStore(t, store)
			res, err := store.RunInTransaction(context.Background(), func(tx domain.Tx) error { return tc.fn(tx, s) })
			var rv domain.RuleViolationError
			if !errors.As(err, &rv) {
				t.Fatalf("expected rule violation, got %v", err)
			}
			found := false
			for _, v := range res.Violations {
				if v.Rule == tc.rule && v.Severity == domain.SeverityBlock {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected blocking %s violation, got %+v", tc.rule, res.Violations)
			}
			expectKind(t, err, core.KindPreconditionFailed)
			_ = store.View(context.Background(), func(view domain.TxView) error {
				if n := len(view.ListTransactions()); n != 0 {
					t.Fatalf("blocked commit leaked %d transactions", n)
				}
				if b, _ := view.FindActualBook(s.book.ID); b.Status != domain.StatusAvailable {
					t.Fatalf("blocked commit changed status to %s", b.Status)
				}
				return nil
			})
		})
	}
}

func TestOutForRentWithoutTransactionOnlyWarns(t *testing.T) {
	store := memory.NewStore(core.NewDefaultRulesEngine())
	s := seedRuleStore(t, store)
	res, err := store.RunInTransaction(context.Background(), func(tx domain.Tx) error {
		_, err := tx.UpdateActualBook(s.book.ID, func(b *domain.ActualBook) error {
			b.Status = domain.StatusOutForRent
			return nil
		})
		return err
	})
	if err != nil {
		t.Fatalf("expected commit with warning, got %v", err)
	}
	if len(res.Violations) != 1 || res.Violations[0].Severity != domain.SeverityWarn {
		t.Fatalf("expected one warning, got %+v", res.Violations)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want core.ErrorKind
	}{
		{"nil", nil, core.KindNone},
		{"not found", core.ErrNotFound{Entity: core.EntityUser, ID: "1"}, core.KindNotFound},
		{"wrapped forbidden", errors.Join(errors.New("ctx"), core.ErrForbidden{Operation: "x"}), core.KindForbidden},
		{"precondition", core.ErrPreconditionFailed{Reason: "r"}, core.KindPreconditionFailed},
		{"rule violation", domain.RuleViolationError{}, core.KindPreconditionFailed},
		{"invalid transition", domain.InvalidTransitionError{From: domain.StateApproved, Event: domain.ReplyApprove}, core.KindPreconditionFailed},
		{"other", errors.New("disk on fire"), core.KindInternal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := core.KindOf(tc.err); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
	names := map[core.ErrorKind]string{
		core.KindNone:               "none",
		core.KindNotFound:           "not_found",
		core.KindForbidden:          "forbidden",
		core.KindPreconditionFailed: "precondition_failed",
		core.KindInternal:           "internal",
	}
	for kind, want := range names {
		if kind.String() != want {
			t.Fatalf("expected %s, got %s", want, kind.String())
		}
	}
}

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{core.ErrNotFound{Entity: core.EntityUser, ID: "7"}, "user 7 not found"},
		{core.ErrForbidden{Operation: "reply_to_request", ActorID: 2, Reason: "only the lender may reply"}, "reply_to_request forbidden for user 2: only the lender may reply"},
		{core.ErrPreconditionFailed{Reason: "book is not available"}, "precondition failed: book is not available"},
		{core.ErrPreconditionFailed{Reason: "bad", Err: errors.New("inner")}, "precondition failed: bad: inner"},
	}
	for _, tc := range cases {
		if tc.err.Error() != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, tc.err.Error())
		}
	}
}
