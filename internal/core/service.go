package core

import (
	"context"
	"time"

	"bookclub/internal/blob"
	"bookclub/internal/infra/persistence/memory"
	"bookclub/pkg/domain"
)

// Service exposes the lending core as transactional operations. Every mutating
// call runs in exactly one store transaction and is traced, measured, logged
// and audited.
type Service struct {
	store   PersistentStore
	clock   Clock
	logger  Logger
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	blobs   blob.Store
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	options := defaultServiceOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Service{
		store:   store,
		clock:   options.clock,
		logger:  options.logger,
		audit:   options.audit,
		metrics: options.metrics,
		tracer:  options.tracer,
		blobs:   options.blobs,
	}
}

// NewInMemoryService creates a service over an in-memory store using engine.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

// dateOf truncates t to its UTC calendar day.
func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type operationTarget struct {
	entity domain.EntityType
	action domain.Action
}

var auditedOperations = map[string]operationTarget{
	opRegisterUser:        {domain.EntityUser, domain.ActionCreate},
	opResolveAuthor:       {domain.EntityAuthor, domain.ActionCreate},
	opResolveAbstractBook: {domain.EntityAbstractBook, domain.ActionCreate},
	opAddBook:             {domain.EntityActualBook, domain.ActionCreate},
	opCreateBorrowRequest: {domain.EntityTransaction, domain.ActionCreate},
	opReplyToRequest:      {domain.EntityTransaction, domain.ActionUpdate},
	opEditTransaction:     {domain.EntityTransaction, domain.ActionUpdate},
	opWithdrawBook:        {domain.EntityActualBook, domain.ActionUpdate},
	opRelistBook:          {domain.EntityActualBook, domain.ActionUpdate},
	opDeleteActualBook:    {domain.EntityActualBook, domain.ActionDelete},
	opPostMessage:         {domain.EntityMessage, domain.ActionCreate},
	opAttachCover:         {domain.EntityActualBook, domain.ActionUpdate},
}

const (
	opRegisterUser        = "register_user"
	opResolveAuthor       = "resolve_author"
	opResolveAbstractBook = "resolve_abstract_book"
	opAddBook             = "add_book"
	opCreateBorrowRequest = "create_borrow_request"
	opReplyToRequest      = "reply_to_request"
	opEditTransaction     = "edit_transaction"
	opWithdrawBook        = "withdraw_book"
	opRelistBook          = "relist_book"
	opDeleteActualBook    = "delete_actual_book"
	opPostMessage         = "post_message"
	opAttachCover         = "attach_cover"
)

// run executes fn in one store transaction and reports the outcome to the
// tracer, metrics, logger and audit sinks.
func (s *Service) run(ctx context.Context, op string, actorID int64, fn func(tx domain.Tx) (string, error)) (Result, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	var entityID string
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Tx) error {
		id, err := fn(tx)
		entityID = id
		return err
	})
	duration := time.Since(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)

	for _, v := range res.Violations {
		if v.Severity != domain.SeverityBlock {
			s.logger.Warn("rule violation", "operation", op, "rule", v.Rule, "severity", string(v.Severity), "message", v.Message)
		}
	}
	if err != nil {
		s.logger.Error("operation failed", "operation", op, "kind", KindOf(err).String(), "error", err, "duration", duration)
		s.recordAudit(ctx, op, entityID, actorID, duration, err)
		return res, err
	}
	s.logger.Debug("operation committed", "operation", op, "entity_id", entityID, "duration", duration)
	s.recordAudit(ctx, op, entityID, actorID, duration, nil)
	return res, nil
}

// read executes fn against a store snapshot with tracing and metrics.
func (s *Service) read(ctx context.Context, op string, fn func(view domain.TxView) error) error {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	err := s.store.View(ctx, fn)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
	if err != nil {
		s.logger.Debug("read failed", "operation", op, "error", err)
	}
	return err
}

func (s *Service) recordAudit(ctx context.Context, op, entityID string, actorID int64, duration time.Duration, err error) {
	target, ok := auditedOperations[op]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: op,
		Entity:    target.entity,
		Action:    target.action,
		EntityID:  entityID,
		ActorID:   actorID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}
