package domain

import (
	"context"

	"github.com/google/uuid"
)

// TxView provides read-only access to a consistent snapshot of the store.
// List methods return records ordered by identifier (integer ids ascending,
// uuid-keyed records by creation time then id).
type TxView interface {
	ListUsers() []User
	FindUser(id int64) (User, bool)
	ListGenres() []Genre
	FindGenre(id int64) (Genre, bool)
	ListAuthors() []Author
	FindAuthor(id int64) (Author, bool)
	ListAbstractBooks() []AbstractBook
	FindAbstractBook(id int64) (AbstractBook, bool)
	ListActualBooks() []ActualBook
	FindActualBook(id uuid.UUID) (ActualBook, bool)
	ListTransactions() []Transaction
	FindTransaction(id uuid.UUID) (Transaction, bool)
	ListMessages() []Message
}

// Tx exposes the domain operations that a persistence implementation must
// support within an atomic scope. Reads observe the writes made earlier in
// the same scope.
type Tx interface {
	TxView
	Snapshot() TxView
	CreateUser(User) (User, error)
	UpdateUser(id int64, mutator func(*User) error) (User, error)
	CreateGenre(Genre) (Genre, error)
	CreateAuthor(Author) (Author, error)
	UpdateAuthor(id int64, mutator func(*Author) error) (Author, error)
	CreateAbstractBook(AbstractBook) (AbstractBook, error)
	UpdateAbstractBook(id int64, mutator func(*AbstractBook) error) (AbstractBook, error)
	CreateActualBook(ActualBook) (ActualBook, error)
	UpdateActualBook(id uuid.UUID, mutator func(*ActualBook) error) (ActualBook, error)
	// DeleteActualBook removes the copy together with its transactions.
	DeleteActualBook(id uuid.UUID) error
	CreateTransaction(Transaction) (Transaction, error)
	UpdateTransaction(id uuid.UUID, mutator func(*Transaction) error) (Transaction, error)
	// DeleteTransaction removes the transaction and detaches its messages.
	DeleteTransaction(id uuid.UUID) error
	CreateMessage(Message) (Message, error)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Tx) error) (Result, error)
	View(ctx context.Context, fn func(TxView) error) error
}
