// Package memory provides an in-memory implementation of the core persistence
// store used for tests and as the working set of the relational backends.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"bookclub/pkg/domain"

	"github.com/google/uuid"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// User aliases domain.User.
	User = domain.User
	// Genre aliases domain.Genre.
	Genre = domain.Genre
	// Author aliases domain.Author.
	Author = domain.Author
	// AbstractBook aliases domain.AbstractBook.
	AbstractBook = domain.AbstractBook
	// ActualBook aliases domain.ActualBook.
	ActualBook = domain.ActualBook
	// Transaction aliases domain.Transaction, the lending record.
	Transaction = domain.Transaction
	// Message aliases domain.Message.
	Message = domain.Message
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
)

// CommitFunc persists the changes of a transaction that passed rule
// evaluation. A non-nil error aborts the transaction and leaves the in-memory
// state untouched.
type CommitFunc func(ctx context.Context, changes []Change) error

// Option configures a Store.
type Option func(*Store)

// WithNowFunc overrides the clock used for record timestamps.
func WithNowFunc(fn func() time.Time) Option {
	return func(s *Store) {
		if fn != nil {
			s.nowFn = fn
		}
	}
}

// WithCommitHook installs fn to run after rules pass and before the new state
// becomes visible.
func WithCommitHook(fn CommitFunc) Option {
	return func(s *Store) { s.commit = fn }
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
	commit CommitFunc
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine, opts ...Option) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	s := &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetCommitHook replaces the commit hook. Relational backends install theirs
// after loading the persisted state.
func (s *Store) SetCommitHook(fn CommitFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commit = fn
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// RunInTransaction executes fn within a transactional copy of the store state.
// Transactions are serialized; the copy replaces the committed state only when
// fn succeeds, no rule blocks, and the commit hook accepts the changes.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Tx) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}
	tx.transactionView = transactionView{state: &tx.state}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	if s.commit != nil && len(tx.changes) > 0 {
		if err := s.commit(ctx, tx.changes); err != nil {
			return result, err
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(domain.TxView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(newTransactionView(&snapshot))
}

type transaction struct {
	transactionView
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) domain.TxView {
	return transactionView{state: state}
}

func (v transactionView) ListUsers() []User { return sortedByID(v.state.users, identity[User]) }

func (v transactionView) FindUser(id int64) (User, bool) {
	u, ok := v.state.users[id]
	return u, ok
}

func (v transactionView) ListGenres() []Genre { return sortedByID(v.state.genres, identity[Genre]) }

func (v transactionView) FindGenre(id int64) (Genre, bool) {
	g, ok := v.state.genres[id]
	return g, ok
}

func (v transactionView) ListAuthors() []Author { return sortedByID(v.state.authors, identity[Author]) }

func (v transactionView) FindAuthor(id int64) (Author, bool) {
	a, ok := v.state.authors[id]
	return a, ok
}

func (v transactionView) ListAbstractBooks() []AbstractBook {
	return sortedByID(v.state.abstractBooks, cloneAbstractBook)
}

func (v transactionView) FindAbstractBook(id int64) (AbstractBook, bool) {
	b, ok := v.state.abstractBooks[id]
	if !ok {
		return AbstractBook{}, false
	}
	return cloneAbstractBook(b), true
}

func (v transactionView) ListActualBooks() []ActualBook {
	out := make([]ActualBook, 0, len(v.state.actualBooks))
	for _, b := range v.state.actualBooks {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		return createdBefore(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out
}

func (v transactionView) FindActualBook(id uuid.UUID) (ActualBook, bool) {
	b, ok := v.state.actualBooks[id]
	return b, ok
}

func (v transactionView) ListTransactions() []Transaction {
	out := make([]Transaction, 0, len(v.state.transactions))
	for _, t := range v.state.transactions {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return createdBefore(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out
}

func (v transactionView) FindTransaction(id uuid.UUID) (Transaction, bool) {
	t, ok := v.state.transactions[id]
	return t, ok
}

func (v transactionView) ListMessages() []Message {
	out := make([]Message, 0, len(v.state.messages))
	for _, m := range v.state.messages {
		out = append(out, cloneMessage(m))
	}
	sort.Slice(out, func(i, j int) bool {
		return createdBefore(out[i].Timestamp, out[j].Timestamp, out[i].ID, out[j].ID)
	})
	return out
}

func createdBefore(a, b time.Time, aID, bID uuid.UUID) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return aID.String() < bID.String()
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() domain.TxView {
	return newTransactionView(&tx.state)
}

func nextID(seq *int64, requested int64) int64 {
	if requested == 0 {
		*seq++
		return *seq
	}
	if requested > *seq {
		*seq = requested
	}
	return requested
}

// CreateUser stores a new member.
func (tx *transaction) CreateUser(u User) (User, error) {
	if strings.TrimSpace(u.Username) == "" {
		return User{}, fmt.Errorf("user username required")
	}
	for _, existing := range tx.state.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return User{}, fmt.Errorf("user %q already exists", u.Username)
		}
	}
	if u.ID != 0 {
		if _, exists := tx.state.users[u.ID]; exists {
			return User{}, fmt.Errorf("user %d already exists", u.ID)
		}
	}
	u.ID = nextID(&tx.state.seq.Users, u.ID)
	u.CreatedAt = tx.now
	u.UpdatedAt = tx.now
	tx.state.users[u.ID] = u
	tx.recordChange(Change{Entity: domain.EntityUser, Action: domain.ActionCreate, After: u})
	return u, nil
}

// UpdateUser mutates a member using the provided mutator function.
func (tx *transaction) UpdateUser(id int64, mutator func(*User) error) (User, error) {
	current, ok := tx.state.users[id]
	if !ok {
		return User{}, fmt.Errorf("user %d not found", id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return User{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.users[id] = current
	tx.recordChange(Change{Entity: domain.EntityUser, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// CreateGenre stores a new genre.
func (tx *transaction) CreateGenre(g Genre) (Genre, error) {
	if strings.TrimSpace(g.Name) == "" {
		return Genre{}, fmt.Errorf("genre name required")
	}
	if g.ID != 0 {
		if _, exists := tx.state.genres[g.ID]; exists {
			return Genre{}, fmt.Errorf("genre %d already exists", g.ID)
		}
	}
	g.ID = nextID(&tx.state.seq.Genres, g.ID)
	g.CreatedAt = tx.now
	g.UpdatedAt = tx.now
	tx.state.genres[g.ID] = g
	tx.recordChange(Change{Entity: domain.EntityGenre, Action: domain.ActionCreate, After: g})
	return g, nil
}

// CreateAuthor stores a new author.
func (tx *transaction) CreateAuthor(a Author) (Author, error) {
	if a.LastName == "" {
		return Author{}, fmt.Errorf("author last name required")
	}
	if a.ID != 0 {
		if _, exists := tx.state.authors[a.ID]; exists {
			return Author{}, fmt.Errorf("author %d already exists", a.ID)
		}
	}
	a.ID = nextID(&tx.state.seq.Authors, a.ID)
	a.CreatedAt = tx.now
	a.UpdatedAt = tx.now
	tx.state.authors[a.ID] = a
	tx.recordChange(Change{Entity: domain.EntityAuthor, Action: domain.ActionCreate, After: a})
	return a, nil
}

// UpdateAuthor mutates an existing author.
func (tx *transaction) UpdateAuthor(id int64, mutator func(*Author) error) (Author, error) {
	current, ok := tx.state.authors[id]
	if !ok {
		return Author{}, fmt.Errorf("author %d not found", id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Author{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.authors[id] = current
	tx.recordChange(Change{Entity: domain.EntityAuthor, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

func (tx *transaction) checkBookRefs(b AbstractBook) error {
	for _, id := range b.AuthorIDs {
		if _, ok := tx.state.authors[id]; !ok {
			return fmt.Errorf("author %d not found", id)
		}
	}
	for _, id := range b.GenreIDs {
		if _, ok := tx.state.genres[id]; !ok {
			return fmt.Errorf("genre %d not found", id)
		}
	}
	return nil
}

// CreateAbstractBook stores a new catalog work with its author and genre links.
func (tx *transaction) CreateAbstractBook(b AbstractBook) (AbstractBook, error) {
	b.AuthorIDs = dedupeIDs(b.AuthorIDs)
	b.GenreIDs = dedupeIDs(b.GenreIDs)
	if err := tx.checkBookRefs(b); err != nil {
		return AbstractBook{}, err
	}
	if b.ID != 0 {
		if _, exists := tx.state.abstractBooks[b.ID]; exists {
			return AbstractBook{}, fmt.Errorf("abstract book %d already exists", b.ID)
		}
	}
	b.ID = nextID(&tx.state.seq.AbstractBooks, b.ID)
	b.CreatedAt = tx.now
	b.UpdatedAt = tx.now
	tx.state.abstractBooks[b.ID] = cloneAbstractBook(b)
	tx.recordChange(Change{Entity: domain.EntityAbstractBook, Action: domain.ActionCreate, After: cloneAbstractBook(b)})
	return cloneAbstractBook(b), nil
}

// UpdateAbstractBook mutates a catalog work.
func (tx *transaction) UpdateAbstractBook(id int64, mutator func(*AbstractBook) error) (AbstractBook, error) {
	current, ok := tx.state.abstractBooks[id]
	if !ok {
		return AbstractBook{}, fmt.Errorf("abstract book %d not found", id)
	}
	before := cloneAbstractBook(current)
	current = cloneAbstractBook(current)
	if err := mutator(&current); err != nil {
		return AbstractBook{}, err
	}
	current.AuthorIDs = dedupeIDs(current.AuthorIDs)
	current.GenreIDs = dedupeIDs(current.GenreIDs)
	if err := tx.checkBookRefs(current); err != nil {
		return AbstractBook{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.abstractBooks[id] = cloneAbstractBook(current)
	tx.recordChange(Change{Entity: domain.EntityAbstractBook, Action: domain.ActionUpdate, Before: before, After: cloneAbstractBook(current)})
	return cloneAbstractBook(current), nil
}

// CreateActualBook stores a new physical copy.
func (tx *transaction) CreateActualBook(b ActualBook) (ActualBook, error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if _, exists := tx.state.actualBooks[b.ID]; exists {
		return ActualBook{}, fmt.Errorf("actual book %q already exists", b.ID)
	}
	if _, ok := tx.state.abstractBooks[b.AbstractBookID]; !ok {
		return ActualBook{}, fmt.Errorf("abstract book %d not found", b.AbstractBookID)
	}
	if _, ok := tx.state.users[b.OwnerID]; !ok {
		return ActualBook{}, fmt.Errorf("owner %d not found", b.OwnerID)
	}
	if b.Status == "" {
		b.Status = domain.StatusAvailable
	}
	b.CreatedAt = tx.now
	b.UpdatedAt = tx.now
	tx.state.actualBooks[b.ID] = b
	tx.recordChange(Change{Entity: domain.EntityActualBook, Action: domain.ActionCreate, After: b})
	return b, nil
}

// UpdateActualBook mutates a physical copy.
func (tx *transaction) UpdateActualBook(id uuid.UUID, mutator func(*ActualBook) error) (ActualBook, error) {
	current, ok := tx.state.actualBooks[id]
	if !ok {
		return ActualBook{}, fmt.Errorf("actual book %q not found", id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return ActualBook{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.actualBooks[id] = current
	tx.recordChange(Change{Entity: domain.EntityActualBook, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteActualBook removes a copy and cascades to its transactions.
func (tx *transaction) DeleteActualBook(id uuid.UUID) error {
	current, ok := tx.state.actualBooks[id]
	if !ok {
		return fmt.Errorf("actual book %q not found", id)
	}
	for _, t := range tx.sortedTransactionsFor(id) {
		if err := tx.DeleteTransaction(t.ID); err != nil {
			return err
		}
	}
	delete(tx.state.actualBooks, id)
	tx.recordChange(Change{Entity: domain.EntityActualBook, Action: domain.ActionDelete, Before: current})
	return nil
}

func (tx *transaction) sortedTransactionsFor(bookID uuid.UUID) []Transaction {
	var out []Transaction
	for _, t := range tx.state.transactions {
		if t.BookID == bookID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// CreateTransaction stores a new lending transaction.
func (tx *transaction) CreateTransaction(t Transaction) (Transaction, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if _, exists := tx.state.transactions[t.ID]; exists {
		return Transaction{}, fmt.Errorf("transaction %q already exists", t.ID)
	}
	if _, ok := tx.state.actualBooks[t.BookID]; !ok {
		return Transaction{}, fmt.Errorf("actual book %q not found", t.BookID)
	}
	if _, ok := tx.state.users[t.LenderID]; !ok {
		return Transaction{}, fmt.Errorf("lender %d not found", t.LenderID)
	}
	if _, ok := tx.state.users[t.BorrowerID]; !ok {
		return Transaction{}, fmt.Errorf("borrower %d not found", t.BorrowerID)
	}
	if t.State == "" {
		t.State = domain.StateInitialRequest
	}
	t.CreatedAt = tx.now
	t.UpdatedAt = tx.now
	tx.state.transactions[t.ID] = t
	tx.recordChange(Change{Entity: domain.EntityTransaction, Action: domain.ActionCreate, After: t})
	return t, nil
}

// UpdateTransaction mutates a lending transaction. Book and parties are fixed.
func (tx *transaction) UpdateTransaction(id uuid.UUID, mutator func(*Transaction) error) (Transaction, error) {
	current, ok := tx.state.transactions[id]
	if !ok {
		return Transaction{}, fmt.Errorf("transaction %q not found", id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Transaction{}, err
	}
	current.ID = id
	current.BookID = before.BookID
	current.LenderID = before.LenderID
	current.BorrowerID = before.BorrowerID
	current.UpdatedAt = tx.now
	tx.state.transactions[id] = current
	tx.recordChange(Change{Entity: domain.EntityTransaction, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteTransaction removes a transaction and detaches its messages.
func (tx *transaction) DeleteTransaction(id uuid.UUID) error {
	current, ok := tx.state.transactions[id]
	if !ok {
		return fmt.Errorf("transaction %q not found", id)
	}
	for _, m := range tx.transactionView.ListMessages() {
		if m.TransactionID == nil || *m.TransactionID != id {
			continue
		}
		before := cloneMessage(m)
		m.TransactionID = nil
		tx.state.messages[m.ID] = m
		tx.recordChange(Change{Entity: domain.EntityMessage, Action: domain.ActionUpdate, Before: before, After: cloneMessage(m)})
	}
	delete(tx.state.transactions, id)
	tx.recordChange(Change{Entity: domain.EntityTransaction, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreateMessage stores a new message.
func (tx *transaction) CreateMessage(m Message) (Message, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if _, exists := tx.state.messages[m.ID]; exists {
		return Message{}, fmt.Errorf("message %q already exists", m.ID)
	}
	if _, ok := tx.state.users[m.AuthorID]; !ok {
		return Message{}, fmt.Errorf("author %d not found", m.AuthorID)
	}
	if _, ok := tx.state.users[m.DestinationID]; !ok {
		return Message{}, fmt.Errorf("destination %d not found", m.DestinationID)
	}
	if m.TransactionID != nil {
		if _, ok := tx.state.transactions[*m.TransactionID]; !ok {
			return Message{}, fmt.Errorf("transaction %q not found", *m.TransactionID)
		}
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = tx.now
	}
	tx.state.messages[m.ID] = cloneMessage(m)
	tx.recordChange(Change{Entity: domain.EntityMessage, Action: domain.ActionCreate, After: cloneMessage(m)})
	return cloneMessage(m), nil
}
