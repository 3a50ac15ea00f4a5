package core

import (
	"context"
	"strconv"
	"time"

	"bookclub/pkg/domain"

	"github.com/google/uuid"
)

func userNotFound(id int64) error {
	return ErrNotFound{Entity: EntityUser, ID: strconv.FormatInt(id, 10)}
}

func bookNotFound(id uuid.UUID) error {
	return ErrNotFound{Entity: EntityActualBook, ID: id.String()}
}

func transactionNotFound(id uuid.UUID) error {
	return ErrNotFound{Entity: EntityTransaction, ID: id.String()}
}

// syncBookStatus sets the copy's status to the one derived from t's new
// state. Another active transaction on the copy takes precedence over a
// finished t.
func syncBookStatus(tx domain.Tx, t Transaction) error {
	book, ok := tx.FindActualBook(t.BookID)
	if !ok {
		return bookNotFound(t.BookID)
	}
	state := t.State
	if !state.IsActive() {
		for _, other := range tx.ListTransactions() {
			if other.BookID == t.BookID && other.ID != t.ID && other.State.IsActive() {
				state = other.State
				break
			}
		}
	}
	want := domain.DeriveStatus(state)
	if book.Status == want {
		return nil
	}
	_, err := tx.UpdateActualBook(book.ID, func(b *ActualBook) error {
		b.Status = want
		return nil
	})
	return err
}

func hasActiveTransaction(view domain.TxView, bookID uuid.UUID) bool {
	for _, t := range view.ListTransactions() {
		if t.BookID == bookID && t.State.IsActive() {
			return true
		}
	}
	return false
}

// CreateBorrowRequest opens a transaction for requesterID on an available copy
// owned by someone else. The availability check and the status flip commit in
// the same store transaction, so of two concurrent requests at most one wins.
func (s *Service) CreateBorrowRequest(ctx context.Context, bookID uuid.UUID, requesterID int64) (Transaction, Result, error) {
	var out Transaction
	res, err := s.run(ctx, opCreateBorrowRequest, requesterID, func(tx domain.Tx) (string, error) {
		book, ok := tx.FindActualBook(bookID)
		if !ok {
			return "", bookNotFound(bookID)
		}
		if _, ok := tx.FindUser(requesterID); !ok {
			return "", userNotFound(requesterID)
		}
		if requesterID == book.OwnerID {
			return "", precondition("owners cannot borrow their own book")
		}
		if book.Status != domain.StatusAvailable {
			return "", precondition("book is not available")
		}
		today := dateOf(s.now())
		created, err := tx.CreateTransaction(Transaction{
			BookID:     book.ID,
			LenderID:   book.OwnerID,
			BorrowerID: requesterID,
			State:      domain.StateInitialRequest,
			LendDate:   today,
			ReturnDate: today,
		})
		if err != nil {
			return "", err
		}
		if err := syncBookStatus(tx, created); err != nil {
			return "", err
		}
		out = created
		return created.ID.String(), nil
	})
	return out, res, err
}

// ReplyToRequest lets the lender approve or reject a pending request. An
// optional message is sent to the borrower in the same commit.
func (s *Service) ReplyToRequest(ctx context.Context, transactionID uuid.UUID, replierID int64, accept bool, message string) (Transaction, Result, error) {
	var out Transaction
	res, err := s.run(ctx, opReplyToRequest, replierID, func(tx domain.Tx) (string, error) {
		current, ok := tx.FindTransaction(transactionID)
		if !ok {
			return "", transactionNotFound(transactionID)
		}
		if replierID != current.LenderID {
			return "", ErrForbidden{Operation: opReplyToRequest, ActorID: replierID, Reason: "only the lender may reply"}
		}
		next, err := domain.ApplyReply(current.State, domain.ReplyFor(accept))
		if err != nil {
			return "", ErrPreconditionFailed{Reason: "request already answered", Err: err}
		}
		updated, err := tx.UpdateTransaction(current.ID, func(t *Transaction) error {
			t.State = next
			return nil
		})
		if err != nil {
			return "", err
		}
		if err := syncBookStatus(tx, updated); err != nil {
			return "", err
		}
		if _, err := s.postInTx(tx, updated, replierID, message); err != nil {
			return "", err
		}
		out = updated
		return updated.ID.String(), nil
	})
	return out, res, err
}

// TransactionEdit is the lender's free-form update of a transaction. Zero
// dates keep the stored value.
type TransactionEdit struct {
	State      domain.TransactionState
	LendDate   time.Time
	ReturnDate time.Time
	Message    string
}

// EditTransaction applies a privileged edit that may move the transaction to
// any state, bypassing the reply table. When the state changes the copy status
// is derived again; date and message edits leave it alone.
func (s *Service) EditTransaction(ctx context.Context, transactionID uuid.UUID, editorID int64, edit TransactionEdit) (Transaction, Result, error) {
	var out Transaction
	res, err := s.run(ctx, opEditTransaction, editorID, func(tx domain.Tx) (string, error) {
		current, ok := tx.FindTransaction(transactionID)
		if !ok {
			return "", transactionNotFound(transactionID)
		}
		if editorID != current.LenderID {
			return "", ErrForbidden{Operation: opEditTransaction, ActorID: editorID, Reason: "only the lender may edit"}
		}
		state := edit.State
		if state == "" {
			state = current.State
		}
		if !state.Valid() {
			return "", precondition("unknown transaction state " + string(state))
		}
		lend, ret := current.LendDate, current.ReturnDate
		if !edit.LendDate.IsZero() {
			lend = dateOf(edit.LendDate)
		}
		if !edit.ReturnDate.IsZero() {
			ret = dateOf(edit.ReturnDate)
		}
		if ret.Before(lend) {
			return "", precondition("return date is before lend date")
		}
		updated, err := tx.UpdateTransaction(current.ID, func(t *Transaction) error {
			t.State = state
			t.LendDate = lend
			t.ReturnDate = ret
			return nil
		})
		if err != nil {
			return "", err
		}
		if updated.State != current.State {
			if err := syncBookStatus(tx, updated); err != nil {
				return "", err
			}
		}
		if _, err := s.postInTx(tx, updated, editorID, edit.Message); err != nil {
			return "", err
		}
		out = updated
		return updated.ID.String(), nil
	})
	return out, res, err
}

// ownedIdleCopy loads a copy for an owner-only operation that requires no
// active transaction.
func ownedIdleCopy(tx domain.Tx, op string, bookID uuid.UUID, ownerID int64) (ActualBook, error) {
	book, ok := tx.FindActualBook(bookID)
	if !ok {
		return ActualBook{}, bookNotFound(bookID)
	}
	if book.OwnerID != ownerID {
		return ActualBook{}, ErrForbidden{Operation: op, ActorID: ownerID, Reason: "only the owner may change this copy"}
	}
	if hasActiveTransaction(tx, bookID) {
		return ActualBook{}, precondition("copy has an active transaction")
	}
	return book, nil
}

// WithdrawBook takes an available copy off the market.
func (s *Service) WithdrawBook(ctx context.Context, bookID uuid.UUID, ownerID int64) (ActualBook, Result, error) {
	return s.setCopyStatus(ctx, opWithdrawBook, bookID, ownerID, domain.StatusAvailable, domain.StatusUnavailable)
}

// RelistBook puts a withdrawn or lost copy back on the market.
func (s *Service) RelistBook(ctx context.Context, bookID uuid.UUID, ownerID int64) (ActualBook, Result, error) {
	return s.setCopyStatus(ctx, opRelistBook, bookID, ownerID, domain.StatusUnavailable, domain.StatusAvailable)
}

func (s *Service) setCopyStatus(ctx context.Context, op string, bookID uuid.UUID, ownerID int64, from, to domain.BookStatus) (ActualBook, Result, error) {
	var out ActualBook
	res, err := s.run(ctx, op, ownerID, func(tx domain.Tx) (string, error) {
		book, err := ownedIdleCopy(tx, op, bookID, ownerID)
		if err != nil {
			return "", err
		}
		if book.Status != from {
			return "", precondition("copy is " + string(book.Status) + ", expected " + string(from))
		}
		out, err = tx.UpdateActualBook(book.ID, func(b *ActualBook) error {
			b.Status = to
			return nil
		})
		if err != nil {
			return "", err
		}
		return out.ID.String(), nil
	})
	return out, res, err
}

// DeleteActualBook removes a copy and its finished transactions. Messages of
// those transactions are kept without their back-reference.
func (s *Service) DeleteActualBook(ctx context.Context, bookID uuid.UUID, ownerID int64) (Result, error) {
	return s.run(ctx, opDeleteActualBook, ownerID, func(tx domain.Tx) (string, error) {
		if _, err := ownedIdleCopy(tx, opDeleteActualBook, bookID, ownerID); err != nil {
			return "", err
		}
		return bookID.String(), tx.DeleteActualBook(bookID)
	})
}

// TransactionDetail is a transaction with its copy, work, parties and thread.
type TransactionDetail struct {
	Transaction Transaction
	Book        ActualBook
	Work        AbstractBook
	Lender      User
	Borrower    User
	Messages    []Message
}

// GetTransaction returns a transaction with its context. Messages are newest first.
func (s *Service) GetTransaction(ctx context.Context, id uuid.UUID) (TransactionDetail, error) {
	var out TransactionDetail
	err := s.read(ctx, "get_transaction", func(view domain.TxView) error {
		t, ok := view.FindTransaction(id)
		if !ok {
			return transactionNotFound(id)
		}
		out.Transaction = t
		out.Book, _ = view.FindActualBook(t.BookID)
		out.Work, _ = view.FindAbstractBook(out.Book.AbstractBookID)
		out.Lender, _ = view.FindUser(t.LenderID)
		out.Borrower, _ = view.FindUser(t.BorrowerID)
		out.Messages = messagesFor(view, id)
		return nil
	})
	return out, err
}

// CopyDetail is a physical copy with its work, owner and transaction history.
type CopyDetail struct {
	Book         ActualBook
	Work         AbstractBook
	Owner        User
	Transactions []Transaction
}

// GetActualBook returns a copy with its context. Transactions are ordered by
// lend date, newest first.
func (s *Service) GetActualBook(ctx context.Context, id uuid.UUID) (CopyDetail, error) {
	var out CopyDetail
	err := s.read(ctx, "get_actual_book", func(view domain.TxView) error {
		b, ok := view.FindActualBook(id)
		if !ok {
			return bookNotFound(id)
		}
		out.Book = b
		out.Work, _ = view.FindAbstractBook(b.AbstractBookID)
		out.Owner, _ = view.FindUser(b.OwnerID)
		for _, t := range view.ListTransactions() {
			if t.BookID == id {
				out.Transactions = append(out.Transactions, t)
			}
		}
		sortTransactionsByLendDate(out.Transactions)
		return nil
	})
	return out, err
}

// ListTransactions returns every transaction ordered by creation.
func (s *Service) ListTransactions(ctx context.Context) ([]Transaction, error) {
	var out []Transaction
	err := s.read(ctx, "list_transactions", func(view domain.TxView) error {
		out = view.ListTransactions()
		return nil
	})
	return out, err
}
