package core

import (
	"context"
	"fmt"

	"bookclub/pkg/domain"
)

// TransactionStateRule blocks lending transactions with an unknown state, a
// return date before the lend date, or parties that do not match the copy at
// creation.
func TransactionStateRule() domain.Rule {
	return transactionStateRule{}
}

type transactionStateRule struct{}

func (transactionStateRule) Name() string { return "transaction_state" }

func (r transactionStateRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	block := func(t domain.Transaction, format string, args ...any) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf(format, args...),
			Entity:   domain.EntityTransaction,
			EntityID: t.ID.String(),
		})
	}
	for _, change := range changes {
		if change.Entity != domain.EntityTransaction || change.Action == domain.ActionDelete {
			continue
		}
		t, ok := change.After.(domain.Transaction)
		if !ok {
			continue
		}
		if !t.State.Valid() {
			block(t, "transaction %s is set to invalid state %s", t.ID, t.State)
			continue
		}
		if !t.LendDate.IsZero() && !t.ReturnDate.IsZero() && t.ReturnDate.Before(t.LendDate) {
			block(t, "transaction %s returns before it is lent", t.ID)
		}
		if change.Action != domain.ActionCreate {
			continue
		}
		if t.LenderID == t.BorrowerID {
			block(t, "transaction %s lends a copy to its own owner", t.ID)
			continue
		}
		book, ok := view.FindActualBook(t.BookID)
		if ok && book.OwnerID != t.LenderID {
			block(t, "transaction %s lender %d is not the owner of copy %s", t.ID, t.LenderID, book.ID)
		}
	}
	return res, nil
}
