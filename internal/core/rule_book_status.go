package core

import (
	"context"
	"fmt"

	"bookclub/pkg/domain"

	"github.com/google/uuid"
)

// BookStatusConsistencyRule keeps copy status in line with the transaction
// history: a copy holding an active transaction must be out for rent. A copy
// marked out for rent without one only warns.
func BookStatusConsistencyRule() domain.Rule {
	return bookStatusConsistencyRule{}
}

type bookStatusConsistencyRule struct{}

func (bookStatusConsistencyRule) Name() string { return "book_status_consistency" }

func (r bookStatusConsistencyRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	touched := make(map[uuid.UUID]struct{})
	for _, change := range changes {
		switch change.Entity {
		case domain.EntityActualBook:
			if b, ok := change.After.(domain.ActualBook); ok {
				touched[b.ID] = struct{}{}
			}
		case domain.EntityTransaction:
			if t, ok := change.After.(domain.Transaction); ok {
				touched[t.BookID] = struct{}{}
			}
		}
	}
	if len(touched) == 0 {
		return res, nil
	}

	holding := make(map[uuid.UUID]bool, len(touched))
	for _, t := range view.ListTransactions() {
		if t.State.IsActive() {
			holding[t.BookID] = true
		}
	}
	for id := range touched {
		book, ok := view.FindActualBook(id)
		if !ok {
			continue
		}
		switch {
		case !book.Status.Valid():
			res.Violations = append(res.Violations, r.violation(domain.SeverityBlock, id, fmt.Sprintf("copy %s has invalid status %q", id, book.Status)))
		case holding[id] && book.Status != domain.StatusOutForRent:
			res.Violations = append(res.Violations, r.violation(domain.SeverityBlock, id, fmt.Sprintf("copy %s has an active transaction but status %s", id, book.Status)))
		case !holding[id] && book.Status == domain.StatusOutForRent:
			res.Violations = append(res.Violations, r.violation(domain.SeverityWarn, id, fmt.Sprintf("copy %s is out for rent without an active transaction", id)))
		}
	}
	return res, nil
}

func (r bookStatusConsistencyRule) violation(sev domain.Severity, id uuid.UUID, msg string) domain.Violation {
	return domain.Violation{
		Rule:     r.Name(),
		Severity: sev,
		Message:  msg,
		Entity:   domain.EntityActualBook,
		EntityID: id.String(),
	}
}
