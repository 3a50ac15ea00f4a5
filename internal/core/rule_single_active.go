package core

import (
	"context"
	"fmt"

	"bookclub/pkg/domain"

	"github.com/google/uuid"
)

// SingleActiveTransactionRule blocks commits that leave more than one active
// transaction on a copy.
func SingleActiveTransactionRule() domain.Rule {
	return singleActiveTransactionRule{}
}

type singleActiveTransactionRule struct{}

func (singleActiveTransactionRule) Name() string { return "single_active_transaction" }

func (r singleActiveTransactionRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	touched := make(map[uuid.UUID]struct{})
	for _, t := range changedTransactions(changes) {
		if t.State.IsActive() {
			touched[t.BookID] = struct{}{}
		}
	}
	if len(touched) == 0 {
		return res, nil
	}
	active := make(map[uuid.UUID]int, len(touched))
	for _, t := range view.ListTransactions() {
		if _, ok := touched[t.BookID]; ok && t.State.IsActive() {
			active[t.BookID]++
		}
	}
	for bookID, n := range active {
		if n > 1 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("copy %s has %d active transactions", bookID, n),
				Entity:   domain.EntityActualBook,
				EntityID: bookID.String(),
			})
		}
	}
	return res, nil
}
