package core

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"bookclub/internal/catalog"
	"bookclub/pkg/domain"
)

// BookInput describes a copy a member adds to their inventory. Authors is a
// comma separated list of names, preferably last name first.
type BookInput struct {
	Title   string
	Authors string
	Summary string
	ISBN    string
	Genres  []string
}

// catalogError maps catalog input errors to failed preconditions.
func catalogError(err error) error {
	switch {
	case errors.Is(err, catalog.ErrEmptyName):
		return ErrPreconditionFailed{Reason: "author name is empty", Err: err}
	case errors.Is(err, catalog.ErrEmptyGenre):
		return ErrPreconditionFailed{Reason: "genre name is empty", Err: err}
	case errors.Is(err, catalog.ErrInvalidISBN):
		return ErrPreconditionFailed{Reason: "isbn must be a valid 10 or 13 character code", Err: err}
	}
	return err
}

// ResolveAuthor returns the author matching name, creating it when missing.
func (s *Service) ResolveAuthor(ctx context.Context, name string) (Author, Result, error) {
	var out Author
	res, err := s.run(ctx, opResolveAuthor, 0, func(tx domain.Tx) (string, error) {
		a, err := catalog.ResolveAuthor(tx, name)
		if err != nil {
			return "", catalogError(err)
		}
		out = a
		return strconv.FormatInt(a.ID, 10), nil
	})
	return out, res, err
}

// ResolveAbstractBook returns the work matching title and every named author,
// creating it when missing.
func (s *Service) ResolveAbstractBook(ctx context.Context, title string, authorNames []string, summary string) (AbstractBook, Result, error) {
	var out AbstractBook
	res, err := s.run(ctx, opResolveAbstractBook, 0, func(tx domain.Tx) (string, error) {
		b, err := catalog.ResolveAbstractBook(tx, title, authorNames, summary)
		if err != nil {
			return "", catalogError(err)
		}
		out = b
		return strconv.FormatInt(b.ID, 10), nil
	})
	return out, res, err
}

// AddBook resolves the described work and adds a new available copy of it to
// the owner's inventory. A missing ISBN or summary on the work is filled in
// from the input; genres are attached to the work.
func (s *Service) AddBook(ctx context.Context, ownerID int64, in BookInput) (ActualBook, Result, error) {
	var out ActualBook
	res, err := s.run(ctx, opAddBook, ownerID, func(tx domain.Tx) (string, error) {
		if _, ok := tx.FindUser(ownerID); !ok {
			return "", ErrNotFound{Entity: EntityUser, ID: strconv.FormatInt(ownerID, 10)}
		}
		title := strings.TrimSpace(in.Title)
		if title == "" {
			return "", precondition("title is required")
		}
		authors := catalog.SplitAuthorList(in.Authors)
		if len(authors) == 0 {
			return "", precondition("at least one author is required")
		}
		isbn, err := catalog.NormalizeISBN(in.ISBN)
		if err != nil {
			return "", catalogError(err)
		}
		work, err := catalog.ResolveAbstractBook(tx, title, authors, strings.TrimSpace(in.Summary))
		if err != nil {
			return "", catalogError(err)
		}

		genreIDs := make([]int64, 0, len(in.Genres))
		for _, name := range in.Genres {
			g, err := catalog.ResolveGenre(tx, name)
			if err != nil {
				return "", catalogError(err)
			}
			genreIDs = append(genreIDs, g.ID)
		}
		if needsEnrichment(work, isbn, in.Summary, genreIDs) {
			if _, err := tx.UpdateAbstractBook(work.ID, func(b *AbstractBook) error {
				if b.ISBN == "" {
					b.ISBN = isbn
				}
				if b.Summary == "" {
					b.Summary = strings.TrimSpace(in.Summary)
				}
				b.GenreIDs = append(b.GenreIDs, genreIDs...)
				return nil
			}); err != nil {
				return "", err
			}
		}

		out, err = tx.CreateActualBook(ActualBook{
			AbstractBookID: work.ID,
			OwnerID:        ownerID,
			Status:         domain.StatusAvailable,
		})
		if err != nil {
			return "", err
		}
		return out.ID.String(), nil
	})
	return out, res, err
}

func needsEnrichment(work AbstractBook, isbn, summary string, genreIDs []int64) bool {
	if work.ISBN == "" && isbn != "" {
		return true
	}
	if work.Summary == "" && strings.TrimSpace(summary) != "" {
		return true
	}
	for _, id := range genreIDs {
		found := false
		for _, existing := range work.GenreIDs {
			if existing == id {
				found = true
				break
			}
		}
		if !found {
			return true
		}
	}
	return false
}

// BookListing is a catalog work with its author records.
type BookListing struct {
	Book    AbstractBook
	Authors []Author
	Genres  []Genre
	Copies  []ActualBook
}

func listingFor(view domain.TxView, b AbstractBook) BookListing {
	l := BookListing{Book: b}
	for _, id := range b.AuthorIDs {
		if a, ok := view.FindAuthor(id); ok {
			l.Authors = append(l.Authors, a)
		}
	}
	for _, id := range b.GenreIDs {
		if g, ok := view.FindGenre(id); ok {
			l.Genres = append(l.Genres, g)
		}
	}
	for _, c := range view.ListActualBooks() {
		if c.AbstractBookID == b.ID {
			l.Copies = append(l.Copies, c)
		}
	}
	return l
}

// ListAbstractBooks returns the catalog index ordered by id.
func (s *Service) ListAbstractBooks(ctx context.Context) ([]BookListing, error) {
	var out []BookListing
	err := s.read(ctx, "list_abstract_books", func(view domain.TxView) error {
		for _, b := range view.ListAbstractBooks() {
			out = append(out, listingFor(view, b))
		}
		return nil
	})
	return out, err
}

// GetAbstractBook returns one catalog work with authors, genres and copies.
func (s *Service) GetAbstractBook(ctx context.Context, id int64) (BookListing, error) {
	var out BookListing
	err := s.read(ctx, "get_abstract_book", func(view domain.TxView) error {
		b, ok := view.FindAbstractBook(id)
		if !ok {
			return ErrNotFound{Entity: EntityAbstractBook, ID: strconv.FormatInt(id, 10)}
		}
		out = listingFor(view, b)
		return nil
	})
	return out, err
}

// AuthorDetail is an author with the works attributed to them.
type AuthorDetail struct {
	Author Author
	Books  []AbstractBook
}

// GetAuthor returns an author and their works.
func (s *Service) GetAuthor(ctx context.Context, id int64) (AuthorDetail, error) {
	var out AuthorDetail
	err := s.read(ctx, "get_author", func(view domain.TxView) error {
		a, ok := view.FindAuthor(id)
		if !ok {
			return ErrNotFound{Entity: EntityAuthor, ID: strconv.FormatInt(id, 10)}
		}
		out.Author = a
		for _, b := range view.ListAbstractBooks() {
			if b.HasAuthor(id) {
				out.Books = append(out.Books, b)
			}
		}
		return nil
	})
	return out, err
}

// ListAuthors returns every author ordered by last then first name.
func (s *Service) ListAuthors(ctx context.Context) ([]Author, error) {
	var out []Author
	err := s.read(ctx, "list_authors", func(view domain.TxView) error {
		out = view.ListAuthors()
		return nil
	})
	sortAuthors(out)
	return out, err
}
