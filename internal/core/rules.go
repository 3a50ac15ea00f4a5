package core

import "bookclub/pkg/domain"

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in lending policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(TransactionStateRule())
	engine.Register(SingleActiveTransactionRule())
	engine.Register(BookStatusConsistencyRule())
	return engine
}

// changedTransactions returns the post-change transactions touched by changes.
func changedTransactions(changes []domain.Change) []domain.Transaction {
	var out []domain.Transaction
	for _, change := range changes {
		if change.Entity != domain.EntityTransaction || change.Action == domain.ActionDelete {
			continue
		}
		if t, ok := change.After.(domain.Transaction); ok {
			out = append(out, t)
		}
	}
	return out
}
