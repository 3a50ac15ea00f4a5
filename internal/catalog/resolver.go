// Package catalog resolves free-text author and book descriptions to catalog
// records, creating them when no match exists. Resolution runs inside a store
// transaction so lookups and inserts commit together.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"bookclub/pkg/domain"
)

var (
	// ErrEmptyName is returned when an author name holds no tokens.
	ErrEmptyName = errors.New("catalog: author name is empty")
	// ErrEmptyGenre is returned for a blank genre name.
	ErrEmptyGenre = errors.New("catalog: genre name is empty")
)

// AuthorStore is the slice of a store transaction the author resolver needs.
type AuthorStore interface {
	ListAuthors() []domain.Author
	CreateAuthor(domain.Author) (domain.Author, error)
}

// BookStore is the slice of a store transaction the book resolver needs.
type BookStore interface {
	AuthorStore
	ListAbstractBooks() []domain.AbstractBook
	CreateAbstractBook(domain.AbstractBook) (domain.AbstractBook, error)
}

// GenreStore is the slice of a store transaction the genre resolver needs.
type GenreStore interface {
	ListGenres() []domain.Genre
	CreateGenre(domain.Genre) (domain.Genre, error)
}

// ResolveAuthor maps a free-text name to an author. Reading A (last name
// first) is looked up before reading B (last name last); if neither matches
// case-insensitively, an author is created from reading A. Among several
// matches the lowest id wins.
func ResolveAuthor(store AuthorStore, name string) (domain.Author, error) {
	a, b, ok := Candidates(name)
	if !ok {
		return domain.Author{}, ErrEmptyName
	}
	authors := store.ListAuthors()
	if found, ok := findAuthor(authors, a); ok {
		return found, nil
	}
	if found, ok := findAuthor(authors, b); ok {
		return found, nil
	}
	created, err := store.CreateAuthor(domain.Author{LastName: a.LastName, FirstName: a.FirstName})
	if err != nil {
		return domain.Author{}, fmt.Errorf("create author %q: %w", name, err)
	}
	return created, nil
}

func findAuthor(authors []domain.Author, c NameCandidate) (domain.Author, bool) {
	var best domain.Author
	found := false
	for _, author := range authors {
		if !sameName(author.LastName, c.LastName) || !sameName(author.FirstName, c.FirstName) {
			continue
		}
		if !found || author.ID < best.ID {
			best, found = author, true
		}
	}
	return best, found
}

// ResolveAbstractBook maps a title and author names to a catalog work. A work
// matches when its title is identical and its authors include every resolved
// author; extra authors on the work do not prevent a match. Otherwise a work is
// created with the resolved authors attached in order.
func ResolveAbstractBook(store BookStore, title string, authorNames []string, summary string) (domain.AbstractBook, error) {
	authorIDs := make([]int64, 0, len(authorNames))
	seen := make(map[int64]struct{}, len(authorNames))
	for _, name := range authorNames {
		author, err := ResolveAuthor(store, name)
		if err != nil {
			return domain.AbstractBook{}, err
		}
		if _, dup := seen[author.ID]; dup {
			continue
		}
		seen[author.ID] = struct{}{}
		authorIDs = append(authorIDs, author.ID)
	}

	var best domain.AbstractBook
	found := false
	for _, book := range store.ListAbstractBooks() {
		if book.Title != title || !hasAllAuthors(book, authorIDs) {
			continue
		}
		if !found || book.ID < best.ID {
			best, found = book, true
		}
	}
	if found {
		return best, nil
	}

	created, err := store.CreateAbstractBook(domain.AbstractBook{
		Title:     title,
		Summary:   summary,
		AuthorIDs: authorIDs,
	})
	if err != nil {
		return domain.AbstractBook{}, fmt.Errorf("create abstract book %q: %w", title, err)
	}
	return created, nil
}

func hasAllAuthors(book domain.AbstractBook, ids []int64) bool {
	for _, id := range ids {
		if !book.HasAuthor(id) {
			return false
		}
	}
	return true
}

// ResolveGenre returns the genre named name, ignoring case, creating it when
// missing.
func ResolveGenre(store GenreStore, name string) (domain.Genre, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return domain.Genre{}, ErrEmptyGenre
	}
	for _, g := range store.ListGenres() {
		if sameName(g.Name, name) {
			return g, nil
		}
	}
	created, err := store.CreateGenre(domain.Genre{Name: name})
	if err != nil {
		return domain.Genre{}, fmt.Errorf("create genre %q: %w", name, err)
	}
	return created, nil
}
