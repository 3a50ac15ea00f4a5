package relational

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bookclub/internal/infra/persistence/memory"
	"bookclub/pkg/domain"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "rel.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return db
}

func sampleSnapshot(t *testing.T) memory.Snapshot {
	t.Helper()
	now := time.Date(2026, 4, 2, 9, 30, 0, 123456789, time.UTC)
	store := memory.NewStore(nil, memory.WithNowFunc(func() time.Time { return now }))
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Tx) error {
		a, _ := tx.CreateUser(domain.User{Username: "a", Location: domain.LocationOther})
		b, _ := tx.CreateUser(domain.User{Username: "b", Location: domain.LocationKabayama})
		g1, _ := tx.CreateGenre(domain.Genre{Name: "Essay"})
		g2, _ := tx.CreateGenre(domain.Genre{Name: "Travel"})
		au, _ := tx.CreateAuthor(domain.Author{LastName: "Bryson", FirstName: "Bill", Bio: "travel writer"})
		work, err := tx.CreateAbstractBook(domain.AbstractBook{Title: "Notes from a Small Island", Summary: "Britain", AuthorIDs: []int64{au.ID}, GenreIDs: []int64{g2.ID, g1.ID}})
		if err != nil {
			return err
		}
		cp, err := tx.CreateActualBook(domain.ActualBook{AbstractBookID: work.ID, OwnerID: a.ID, Status: domain.StatusUnavailable})
		if err != nil {
			return err
		}
		loan, err := tx.CreateTransaction(domain.Transaction{BookID: cp.ID, LenderID: a.ID, BorrowerID: b.ID, State: domain.StateLost, LendDate: now.Truncate(24 * time.Hour)})
		if err != nil {
			return err
		}
		id := loan.ID
		if _, err := tx.CreateMessage(domain.Message{AuthorID: a.ID, DestinationID: b.ID, TransactionID: &id, Text: "where is it?"}); err != nil {
			return err
		}
		_, err = tx.CreateMessage(domain.Message{AuthorID: b.ID, DestinationID: a.ID, Text: "orphan", Read: true})
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store.ExportState()
}

func TestWriteAndLoadSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	want := sampleSnapshot(t)
	if err := WriteSnapshot(ctx, db, SQLite, want); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	got, err := LoadSnapshot(ctx, db)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(got.Users) != 2 || len(got.Genres) != 2 || len(got.Authors) != 1 || len(got.Messages) != 2 {
		t.Fatalf("unexpected counts: %+v", got)
	}
	for id, w := range want.AbstractBooks {
		g := got.AbstractBooks[id]
		if g.Title != w.Title || g.Summary != w.Summary {
			t.Fatalf("book fields differ: %+v vs %+v", g, w)
		}
		if len(g.GenreIDs) != 2 || g.GenreIDs[0] != w.GenreIDs[0] || g.GenreIDs[1] != w.GenreIDs[1] {
			t.Fatalf("genre order not preserved: %v vs %v", g.GenreIDs, w.GenreIDs)
		}
		if !g.CreatedAt.Equal(w.CreatedAt) {
			t.Fatalf("timestamp precision lost: %v vs %v", g.CreatedAt, w.CreatedAt)
		}
	}
	for id, w := range want.Transactions {
		g := got.Transactions[id]
		if g.State != domain.StateLost || !g.LendDate.Equal(w.LendDate) || !g.ReturnDate.IsZero() {
			t.Fatalf("transaction differs: %+v vs %+v", g, w)
		}
	}
	for id, w := range want.Messages {
		g := got.Messages[id]
		if (g.TransactionID == nil) != (w.TransactionID == nil) || g.Read != w.Read || g.Text != w.Text {
			t.Fatalf("message differs: %+v vs %+v", g, w)
		}
	}
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	db := openSQLite(t)
	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}
}

func TestApplyChangesDeletesCascadeRows(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	snapshot := sampleSnapshot(t)
	if err := WriteSnapshot(ctx, db, SQLite, snapshot); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	store := memory.NewStore(nil, memory.WithCommitHook(func(ctx context.Context, changes []domain.Change) error {
		return ApplyChanges(ctx, db, SQLite, changes)
	}))
	store.ImportState(snapshot)
	var bookID uuid.UUID
	for id := range snapshot.ActualBooks {
		bookID = id
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Tx) error { return tx.DeleteActualBook(bookID) }); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := LoadSnapshot(ctx, db)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(got.ActualBooks) != 0 || len(got.Transactions) != 0 {
		t.Fatalf("expected copy and transaction rows deleted, got %+v", got)
	}
	for _, m := range got.Messages {
		if m.TransactionID != nil {
			t.Fatalf("expected messages detached, got %+v", m)
		}
	}
}

func TestApplyChangesRejectsUnknownPayload(t *testing.T) {
	db := openSQLite(t)
	err := ApplyChanges(context.Background(), db, SQLite, []domain.Change{{Entity: domain.EntityUser, Action: domain.ActionCreate, After: "nope"}})
	if err == nil || !strings.Contains(err.Error(), "unsupported payload") {
		t.Fatalf("expected unsupported payload error, got %v", err)
	}
	err = ApplyChanges(context.Background(), db, SQLite, []domain.Change{{Entity: domain.EntityUser, Action: domain.ActionDelete, Before: domain.User{ID: 1}}})
	if err == nil {
		t.Fatalf("expected user delete to be rejected")
	}
}

func TestDialectStatements(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"postgres upsert", Postgres.upsert(genresTable), "INSERT INTO genres (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO UPDATE SET name = excluded.name, created_at = excluded.created_at, updated_at = excluded.updated_at"},
		{"sqlite insert", SQLite.insert(bookAuthorsTable), "INSERT INTO abstract_book_authors (abstract_book_id, author_id, position) VALUES (?, ?, ?)"},
		{"postgres delete", Postgres.deleteWhere(transactionsTable, "id"), "DELETE FROM transactions WHERE id = $1"},
		{"select", selectAll(usersTable), "SELECT id, username, location, created_at, updated_at FROM users ORDER BY id"},
	}
	for _, tc := range tests {
		if tc.got != tc.want {
			t.Fatalf("%s:\nwant %s\ngot  %s", tc.name, tc.want, tc.got)
		}
	}
}
