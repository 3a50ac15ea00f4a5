package relational

import (
	"context"
	"fmt"
	"time"

	"bookclub/internal/infra/persistence/memory"
	"bookclub/pkg/domain"
)

const dateLayout = "2006-01-02"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

// ApplyChanges writes a committed change set in order. Parents are always
// created before children and children deleted before parents because the
// memory store records cascades in that order.
func ApplyChanges(ctx context.Context, db Execer, d Dialect, changes []domain.Change) error {
	for i, change := range changes {
		if err := applyChange(ctx, db, d, change); err != nil {
			return fmt.Errorf("apply change %d (%s %s): %w", i, change.Action, change.Entity, err)
		}
	}
	return nil
}

func applyChange(ctx context.Context, db Execer, d Dialect, change domain.Change) error {
	if change.Action == domain.ActionDelete {
		return applyDelete(ctx, db, d, change)
	}
	switch v := change.After.(type) {
	case domain.User:
		return upsertUser(ctx, db, d, v)
	case domain.Genre:
		return upsertGenre(ctx, db, d, v)
	case domain.Author:
		return upsertAuthor(ctx, db, d, v)
	case domain.AbstractBook:
		return upsertAbstractBook(ctx, db, d, v)
	case domain.ActualBook:
		return upsertActualBook(ctx, db, d, v)
	case domain.Transaction:
		return upsertTransaction(ctx, db, d, v)
	case domain.Message:
		return upsertMessage(ctx, db, d, v)
	default:
		return fmt.Errorf("unsupported payload %T", change.After)
	}
}

func applyDelete(ctx context.Context, db Execer, d Dialect, change domain.Change) error {
	var (
		t  table
		id string
	)
	switch v := change.Before.(type) {
	case domain.ActualBook:
		t, id = actualBooksTable, v.ID.String()
	case domain.Transaction:
		t, id = transactionsTable, v.ID.String()
	default:
		return fmt.Errorf("delete of %T is not supported", change.Before)
	}
	_, err := db.ExecContext(ctx, d.deleteWhere(t, "id"), id)
	return err
}

func upsertUser(ctx context.Context, db Execer, d Dialect, u domain.User) error {
	_, err := db.ExecContext(ctx, d.upsert(usersTable),
		u.ID, u.Username, string(u.Location), formatTime(u.CreatedAt), formatTime(u.UpdatedAt))
	return err
}

func upsertGenre(ctx context.Context, db Execer, d Dialect, g domain.Genre) error {
	_, err := db.ExecContext(ctx, d.upsert(genresTable),
		g.ID, g.Name, formatTime(g.CreatedAt), formatTime(g.UpdatedAt))
	return err
}

func upsertAuthor(ctx context.Context, db Execer, d Dialect, a domain.Author) error {
	_, err := db.ExecContext(ctx, d.upsert(authorsTable),
		a.ID, a.FirstName, a.LastName, a.Bio, formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	return err
}

// upsertAbstractBook rewrites the link tables wholesale; a work carries a
// handful of authors and genres at most.
func upsertAbstractBook(ctx context.Context, db Execer, d Dialect, b domain.AbstractBook) error {
	if _, err := db.ExecContext(ctx, d.upsert(abstractBooksTable),
		b.ID, b.Title, b.Summary, b.ISBN, formatTime(b.CreatedAt), formatTime(b.UpdatedAt)); err != nil {
		return err
	}
	links := []struct {
		t   table
		ids []int64
	}{
		{bookAuthorsTable, b.AuthorIDs},
		{bookGenresTable, b.GenreIDs},
	}
	for _, link := range links {
		if _, err := db.ExecContext(ctx, d.deleteWhere(link.t, "abstract_book_id"), b.ID); err != nil {
			return err
		}
		for pos, id := range link.ids {
			if _, err := db.ExecContext(ctx, d.insert(link.t), b.ID, id, int64(pos)); err != nil {
				return err
			}
		}
	}
	return nil
}

func upsertActualBook(ctx context.Context, db Execer, d Dialect, b domain.ActualBook) error {
	_, err := db.ExecContext(ctx, d.upsert(actualBooksTable),
		b.ID.String(), b.AbstractBookID, b.OwnerID, string(b.Status), formatTime(b.CreatedAt), formatTime(b.UpdatedAt))
	return err
}

func upsertTransaction(ctx context.Context, db Execer, d Dialect, t domain.Transaction) error {
	_, err := db.ExecContext(ctx, d.upsert(transactionsTable),
		t.ID.String(), t.BookID.String(), t.LenderID, t.BorrowerID, string(t.State),
		formatDate(t.LendDate), formatDate(t.ReturnDate), formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	return err
}

func upsertMessage(ctx context.Context, db Execer, d Dialect, m domain.Message) error {
	var txID any
	if m.TransactionID != nil {
		txID = m.TransactionID.String()
	}
	_, err := db.ExecContext(ctx, d.upsert(messagesTable),
		m.ID.String(), m.AuthorID, m.DestinationID, txID, m.Text, m.Read, formatTime(m.Timestamp))
	return err
}

// WriteSnapshot persists every record of snapshot. It is used to seed an empty
// database from an exported working set.
func WriteSnapshot(ctx context.Context, db Execer, d Dialect, snapshot memory.Snapshot) error {
	store := memory.NewStore(nil)
	store.ImportState(snapshot)
	var changes []domain.Change
	err := store.View(ctx, func(view domain.TxView) error {
		for _, u := range view.ListUsers() {
			changes = append(changes, domain.Change{Entity: domain.EntityUser, Action: domain.ActionCreate, After: u})
		}
		for _, g := range view.ListGenres() {
			changes = append(changes, domain.Change{Entity: domain.EntityGenre, Action: domain.ActionCreate, After: g})
		}
		for _, a := range view.ListAuthors() {
			changes = append(changes, domain.Change{Entity: domain.EntityAuthor, Action: domain.ActionCreate, After: a})
		}
		for _, b := range view.ListAbstractBooks() {
			changes = append(changes, domain.Change{Entity: domain.EntityAbstractBook, Action: domain.ActionCreate, After: b})
		}
		for _, b := range view.ListActualBooks() {
			changes = append(changes, domain.Change{Entity: domain.EntityActualBook, Action: domain.ActionCreate, After: b})
		}
		for _, t := range view.ListTransactions() {
			changes = append(changes, domain.Change{Entity: domain.EntityTransaction, Action: domain.ActionCreate, After: t})
		}
		for _, m := range view.ListMessages() {
			changes = append(changes, domain.Change{Entity: domain.EntityMessage, Action: domain.ActionCreate, After: m})
		}
		return nil
	})
	if err != nil {
		return err
	}
	return ApplyChanges(ctx, db, d, changes)
}
