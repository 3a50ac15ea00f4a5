// Package relational maps the bookclub working set onto normalized SQL tables.
// It is shared by the SQLite and Postgres backends: both keep the memory store
// as their transactional working set and use this package to hydrate it on
// startup and to write each committed change set.
package relational

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Queryer is satisfied by *sql.DB and *sql.Tx.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Dialect captures the statement differences between the supported engines.
type Dialect struct {
	Name    string
	bindvar func(n int) string
}

// Supported dialects.
var (
	SQLite   = Dialect{Name: "sqlite", bindvar: func(int) string { return "?" }}
	Postgres = Dialect{Name: "postgres", bindvar: func(n int) string { return "$" + strconv.Itoa(n) }}
)

type table struct {
	name string
	cols []string
}

var (
	usersTable         = table{"users", []string{"id", "username", "location", "created_at", "updated_at"}}
	genresTable        = table{"genres", []string{"id", "name", "created_at", "updated_at"}}
	authorsTable       = table{"authors", []string{"id", "first_name", "last_name", "bio", "created_at", "updated_at"}}
	abstractBooksTable = table{"abstract_books", []string{"id", "title", "summary", "isbn", "created_at", "updated_at"}}
	bookAuthorsTable   = table{"abstract_book_authors", []string{"abstract_book_id", "author_id", "position"}}
	bookGenresTable    = table{"abstract_book_genres", []string{"abstract_book_id", "genre_id", "position"}}
	actualBooksTable   = table{"actual_books", []string{"id", "abstract_book_id", "owner_id", "status", "created_at", "updated_at"}}
	transactionsTable  = table{"transactions", []string{"id", "book_id", "lender_id", "borrower_id", "state", "lend_date", "return_date", "created_at", "updated_at"}}
	messagesTable      = table{"messages", []string{"id", "author_id", "destination_id", "transaction_id", "text", "read", "sent_at"}}
)

// Timestamps are stored as RFC 3339 text and lending dates as YYYY-MM-DD so
// the same DDL runs unchanged on both engines.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id BIGINT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	location TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS genres (
	id BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS authors (
	id BIGINT PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	bio TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS abstract_books (
	id BIGINT PRIMARY KEY,
	title TEXT NOT NULL,
	summary TEXT NOT NULL,
	isbn TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS abstract_book_authors (
	abstract_book_id BIGINT NOT NULL REFERENCES abstract_books(id),
	author_id BIGINT NOT NULL REFERENCES authors(id),
	position INTEGER NOT NULL,
	PRIMARY KEY (abstract_book_id, author_id)
)`,
	`CREATE TABLE IF NOT EXISTS abstract_book_genres (
	abstract_book_id BIGINT NOT NULL REFERENCES abstract_books(id),
	genre_id BIGINT NOT NULL REFERENCES genres(id),
	position INTEGER NOT NULL,
	PRIMARY KEY (abstract_book_id, genre_id)
)`,
	`CREATE TABLE IF NOT EXISTS actual_books (
	id TEXT PRIMARY KEY,
	abstract_book_id BIGINT NOT NULL REFERENCES abstract_books(id),
	owner_id BIGINT NOT NULL REFERENCES users(id),
	status TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	book_id TEXT NOT NULL REFERENCES actual_books(id),
	lender_id BIGINT NOT NULL REFERENCES users(id),
	borrower_id BIGINT NOT NULL REFERENCES users(id),
	state TEXT NOT NULL,
	lend_date TEXT NOT NULL,
	return_date TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	author_id BIGINT NOT NULL REFERENCES users(id),
	destination_id BIGINT NOT NULL REFERENCES users(id),
	transaction_id TEXT REFERENCES transactions(id),
	text TEXT NOT NULL,
	read BOOLEAN NOT NULL,
	sent_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS transactions_book_idx ON transactions(book_id)`,
	`CREATE INDEX IF NOT EXISTS messages_transaction_idx ON messages(transaction_id)`,
}

// Schema returns the DDL statements in application order.
func Schema() []string {
	out := make([]string, len(schema))
	copy(out, schema)
	return out
}

// EnsureSchema creates any missing tables and indexes.
func EnsureSchema(ctx context.Context, db Execer) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

func (d Dialect) placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = d.bindvar(i + 1)
	}
	return strings.Join(parts, ", ")
}

func (d Dialect) insert(t table) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, strings.Join(t.cols, ", "), d.placeholders(len(t.cols)))
}

// upsert keys on the first column.
func (d Dialect) upsert(t table) string {
	sets := make([]string, 0, len(t.cols)-1)
	for _, col := range t.cols[1:] {
		sets = append(sets, col+" = excluded."+col)
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s", d.insert(t), t.cols[0], strings.Join(sets, ", "))
}

func (d Dialect) deleteWhere(t table, col string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = %s", t.name, col, d.bindvar(1))
}

func selectAll(t table) string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", strings.Join(t.cols, ", "), t.name, t.cols[0])
}
