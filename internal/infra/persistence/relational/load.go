package relational

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"bookclub/internal/infra/persistence/memory"
	"bookclub/pkg/domain"

	"github.com/google/uuid"
)

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, raw)
}

func parseTimestamps(created, updated string) (domain.Timestamps, error) {
	c, err := parseTime(created)
	if err != nil {
		return domain.Timestamps{}, fmt.Errorf("created_at: %w", err)
	}
	u, err := parseTime(updated)
	if err != nil {
		return domain.Timestamps{}, fmt.Errorf("updated_at: %w", err)
	}
	return domain.Timestamps{CreatedAt: c, UpdatedAt: u}, nil
}

// LoadSnapshot reads every table into a snapshot suitable for
// memory.Store.ImportState. Sequences are recomputed on import.
func LoadSnapshot(ctx context.Context, db Queryer) (memory.Snapshot, error) {
	snapshot := memory.Snapshot{
		Users:         map[int64]domain.User{},
		Genres:        map[int64]domain.Genre{},
		Authors:       map[int64]domain.Author{},
		AbstractBooks: map[int64]domain.AbstractBook{},
		ActualBooks:   map[uuid.UUID]domain.ActualBook{},
		Transactions:  map[uuid.UUID]domain.Transaction{},
		Messages:      map[uuid.UUID]domain.Message{},
	}
	loaders := []struct {
		t    table
		scan func(*sql.Rows) error
	}{
		{usersTable, func(rows *sql.Rows) error {
			var (
				u                          domain.User
				location, created, updated string
			)
			if err := rows.Scan(&u.ID, &u.Username, &location, &created, &updated); err != nil {
				return err
			}
			ts, err := parseTimestamps(created, updated)
			if err != nil {
				return err
			}
			u.Location, u.Timestamps = domain.Location(location), ts
			snapshot.Users[u.ID] = u
			return nil
		}},
		{genresTable, func(rows *sql.Rows) error {
			var (
				g                domain.Genre
				created, updated string
			)
			if err := rows.Scan(&g.ID, &g.Name, &created, &updated); err != nil {
				return err
			}
			ts, err := parseTimestamps(created, updated)
			if err != nil {
				return err
			}
			g.Timestamps = ts
			snapshot.Genres[g.ID] = g
			return nil
		}},
		{authorsTable, func(rows *sql.Rows) error {
			var (
				a                domain.Author
				created, updated string
			)
			if err := rows.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Bio, &created, &updated); err != nil {
				return err
			}
			ts, err := parseTimestamps(created, updated)
			if err != nil {
				return err
			}
			a.Timestamps = ts
			snapshot.Authors[a.ID] = a
			return nil
		}},
		{abstractBooksTable, func(rows *sql.Rows) error {
			var (
				b                domain.AbstractBook
				created, updated string
			)
			if err := rows.Scan(&b.ID, &b.Title, &b.Summary, &b.ISBN, &created, &updated); err != nil {
				return err
			}
			ts, err := parseTimestamps(created, updated)
			if err != nil {
				return err
			}
			b.Timestamps = ts
			snapshot.AbstractBooks[b.ID] = b
			return nil
		}},
		{actualBooksTable, func(rows *sql.Rows) error {
			var (
				b                            domain.ActualBook
				id, status, created, updated string
			)
			if err := rows.Scan(&id, &b.AbstractBookID, &b.OwnerID, &status, &created, &updated); err != nil {
				return err
			}
			parsed, err := uuid.Parse(id)
			if err != nil {
				return err
			}
			ts, err := parseTimestamps(created, updated)
			if err != nil {
				return err
			}
			b.ID, b.Status, b.Timestamps = parsed, domain.BookStatus(status), ts
			snapshot.ActualBooks[b.ID] = b
			return nil
		}},
		{transactionsTable, func(rows *sql.Rows) error {
			var (
				t                                              domain.Transaction
				id, bookID, state, lend, ret, created, updated string
			)
			if err := rows.Scan(&id, &bookID, &t.LenderID, &t.BorrowerID, &state, &lend, &ret, &created, &updated); err != nil {
				return err
			}
			var err error
			if t.ID, err = uuid.Parse(id); err != nil {
				return err
			}
			if t.BookID, err = uuid.Parse(bookID); err != nil {
				return err
			}
			if t.LendDate, err = parseDate(lend); err != nil {
				return fmt.Errorf("lend_date: %w", err)
			}
			if t.ReturnDate, err = parseDate(ret); err != nil {
				return fmt.Errorf("return_date: %w", err)
			}
			if t.Timestamps, err = parseTimestamps(created, updated); err != nil {
				return err
			}
			t.State = domain.TransactionState(state)
			snapshot.Transactions[t.ID] = t
			return nil
		}},
		{messagesTable, func(rows *sql.Rows) error {
			var (
				m        domain.Message
				id, sent string
				txID     sql.NullString
			)
			if err := rows.Scan(&id, &m.AuthorID, &m.DestinationID, &txID, &m.Text, &m.Read, &sent); err != nil {
				return err
			}
			var err error
			if m.ID, err = uuid.Parse(id); err != nil {
				return err
			}
			if txID.Valid && txID.String != "" {
				parsed, err := uuid.Parse(txID.String)
				if err != nil {
					return err
				}
				m.TransactionID = &parsed
			}
			if m.Timestamp, err = parseTime(sent); err != nil {
				return fmt.Errorf("sent_at: %w", err)
			}
			snapshot.Messages[m.ID] = m
			return nil
		}},
	}
	for _, loader := range loaders {
		if err := scanTable(ctx, db, loader.t, loader.scan); err != nil {
			return memory.Snapshot{}, err
		}
	}
	if err := loadLinks(ctx, db, bookAuthorsTable, snapshot.AbstractBooks, func(b *domain.AbstractBook, id int64) {
		b.AuthorIDs = append(b.AuthorIDs, id)
	}); err != nil {
		return memory.Snapshot{}, err
	}
	if err := loadLinks(ctx, db, bookGenresTable, snapshot.AbstractBooks, func(b *domain.AbstractBook, id int64) {
		b.GenreIDs = append(b.GenreIDs, id)
	}); err != nil {
		return memory.Snapshot{}, err
	}
	return snapshot, nil
}

func scanTable(ctx context.Context, db Queryer, t table, scan func(*sql.Rows) error) error {
	rows, err := db.QueryContext(ctx, selectAll(t))
	if err != nil {
		return fmt.Errorf("select %s: %w", t.name, err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("scan %s: %w", t.name, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s: %w", t.name, err)
	}
	return nil
}

type link struct {
	bookID, targetID, position int64
}

func loadLinks(ctx context.Context, db Queryer, t table, books map[int64]domain.AbstractBook, add func(*domain.AbstractBook, int64)) error {
	var links []link
	err := scanTable(ctx, db, t, func(rows *sql.Rows) error {
		var l link
		if err := rows.Scan(&l.bookID, &l.targetID, &l.position); err != nil {
			return err
		}
		links = append(links, l)
		return nil
	})
	if err != nil {
		return err
	}
	sort.SliceStable(links, func(i, j int) bool {
		if links[i].bookID != links[j].bookID {
			return links[i].bookID < links[j].bookID
		}
		return links[i].position < links[j].position
	})
	for _, l := range links {
		book, ok := books[l.bookID]
		if !ok {
			continue
		}
		add(&book, l.targetID)
		books[l.bookID] = book
	}
	return nil
}
