// Package export writes the lending ledger to the blob store as JSON lines,
// CSV or Parquet.
package export

import (
	"context"
	"sort"
	"strconv"
	"time"

	"bookclub/pkg/domain"
)

const dateLayout = "2006-01-02"

// LedgerRow is one lending transaction flattened with its context.
type LedgerRow struct {
	TransactionID string `json:"transaction_id" parquet:"transaction_id"`
	BookID        string `json:"book_id" parquet:"book_id"`
	Title         string `json:"title" parquet:"title"`
	Lender        string `json:"lender" parquet:"lender"`
	Borrower      string `json:"borrower" parquet:"borrower"`
	State         string `json:"state" parquet:"state"`
	LendDate      string `json:"lend_date" parquet:"lend_date"`
	ReturnDate    string `json:"return_date" parquet:"return_date"`
	CreatedAt     string `json:"created_at" parquet:"created_at"`
	MessageCount  int32  `json:"message_count" parquet:"message_count"`
}

var ledgerColumns = []string{
	"transaction_id", "book_id", "title", "lender", "borrower",
	"state", "lend_date", "return_date", "created_at", "message_count",
}

func (r LedgerRow) record() []string {
	return []string{
		r.TransactionID, r.BookID, r.Title, r.Lender, r.Borrower,
		r.State, r.LendDate, r.ReturnDate, r.CreatedAt, strconv.Itoa(int(r.MessageCount)),
	}
}

// Viewer exposes read-only snapshots of the store.
type Viewer interface {
	View(ctx context.Context, fn func(domain.TxView) error) error
}

// Ledger collects every transaction ordered by creation time.
func Ledger(ctx context.Context, store Viewer) ([]LedgerRow, error) {
	var rows []LedgerRow
	err := store.View(ctx, func(view domain.TxView) error {
		counts := make(map[string]int32)
		for _, m := range view.ListMessages() {
			if m.TransactionID != nil {
				counts[m.TransactionID.String()]++
			}
		}
		for _, t := range view.ListTransactions() {
			row := LedgerRow{
				TransactionID: t.ID.String(),
				BookID:        t.BookID.String(),
				Lender:        username(view, t.LenderID),
				Borrower:      username(view, t.BorrowerID),
				State:         string(t.State),
				LendDate:      formatDate(t.LendDate),
				ReturnDate:    formatDate(t.ReturnDate),
				CreatedAt:     t.CreatedAt.UTC().Format(time.RFC3339),
				MessageCount:  counts[t.ID.String()],
			}
			if book, ok := view.FindActualBook(t.BookID); ok {
				if work, ok := view.FindAbstractBook(book.AbstractBookID); ok {
					row.Title = work.Title
				}
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt < rows[j].CreatedAt })
	return rows, nil
}

func username(view domain.TxView, id int64) string {
	if u, ok := view.FindUser(id); ok {
		return u.Username
	}
	return strconv.FormatInt(id, 10)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}
