package core

import (
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"bookclub/internal/blob"
	"bookclub/pkg/domain"

	"github.com/google/uuid"
)

const coverURLExpiry = 15 * time.Minute

// CoverKey is the blob key of a copy's cover image.
func CoverKey(bookID uuid.UUID) string {
	return "covers/" + bookID.String()
}

func (s *Service) requireBlobs() error {
	if s.blobs == nil {
		return precondition("cover storage is not configured")
	}
	return nil
}

// AttachCover stores a cover image for a copy. Only the owner may attach one;
// a new upload replaces the previous image.
func (s *Service) AttachCover(ctx context.Context, bookID uuid.UUID, ownerID int64, r io.Reader, contentType string) (blob.Info, error) {
	var info blob.Info
	_, err := s.run(ctx, opAttachCover, ownerID, func(tx domain.Tx) (string, error) {
		if err := s.requireBlobs(); err != nil {
			return "", err
		}
		book, ok := tx.FindActualBook(bookID)
		if !ok {
			return "", bookNotFound(bookID)
		}
		if book.OwnerID != ownerID {
			return "", ErrForbidden{Operation: opAttachCover, ActorID: ownerID, Reason: "only the owner may attach a cover"}
		}
		if _, err := s.blobs.Delete(ctx, CoverKey(bookID)); err != nil {
			return "", err
		}
		var err error
		info, err = s.blobs.Put(ctx, CoverKey(bookID), r, blob.PutOptions{
			ContentType: contentType,
			Metadata:    map[string]string{"owner": strconv.FormatInt(ownerID, 10)},
		})
		if err != nil {
			return "", err
		}
		return bookID.String(), nil
	})
	return info, err
}

// CoverURL returns a link to the cover of a copy: a pre-signed URL when the
// blob driver supports it, the driver's URL or key otherwise.
func (s *Service) CoverURL(ctx context.Context, bookID uuid.UUID) (string, error) {
	if err := s.requireBlobs(); err != nil {
		return "", err
	}
	key := CoverKey(bookID)
	info, err := s.blobs.Head(ctx, key)
	if err != nil {
		return "", coverError(bookID, err)
	}
	url, err := s.blobs.PresignURL(ctx, key, blob.SignedURLOptions{Method: "GET", Expiry: coverURLExpiry})
	switch {
	case err == nil:
		return url, nil
	case errors.Is(err, blob.ErrUnsupported):
		if info.URL != "" {
			return info.URL, nil
		}
		return key, nil
	default:
		return "", err
	}
}

// OpenCover streams the cover image of a copy.
func (s *Service) OpenCover(ctx context.Context, bookID uuid.UUID) (blob.Info, io.ReadCloser, error) {
	if err := s.requireBlobs(); err != nil {
		return blob.Info{}, nil, err
	}
	info, rc, err := s.blobs.Get(ctx, CoverKey(bookID))
	if err != nil {
		return blob.Info{}, nil, coverError(bookID, err)
	}
	return info, rc, nil
}

func coverError(bookID uuid.UUID, err error) error {
	if errors.Is(err, blob.ErrNotFound) {
		return ErrNotFound{Entity: "cover", ID: bookID.String()}
	}
	return err
}
