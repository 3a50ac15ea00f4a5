package core

import "bookclub/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	User               = domain.User
	Genre              = domain.Genre
	Author             = domain.Author
	AbstractBook       = domain.AbstractBook
	ActualBook         = domain.ActualBook
	Transaction        = domain.Transaction
	Message            = domain.Message
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	RulesEngine        = domain.RulesEngine
	PersistentStore    = domain.PersistentStore
)

const (
	EntityUser         = domain.EntityUser
	EntityGenre        = domain.EntityGenre
	EntityAuthor       = domain.EntityAuthor
	EntityAbstractBook = domain.EntityAbstractBook
	EntityActualBook   = domain.EntityActualBook
	EntityTransaction  = domain.EntityTransaction
	EntityMessage      = domain.EntityMessage
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
