package core_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"bookclub/internal/blob"
	"bookclub/internal/core"

	"github.com/google/uuid"
)

func TestAttachCoverRequiresBlobStore(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AttachCover(context.Background(), f.book.ID, f.owner.ID, strings.NewReader("png"), "image/png")
	expectKind(t, err, core.KindPreconditionFailed)
	_, err = f.svc.CoverURL(context.Background(), f.book.ID)
	expectKind(t, err, core.KindPreconditionFailed)
}

func TestAttachAndOpenCover(t *testing.T) {
	store := blob.NewMemory()
	f := newFixture(t, core.WithBlobStore(store))
	ctx := context.Background()

	_, err := f.svc.AttachCover(ctx, f.book.ID, f.borrower.ID, strings.NewReader("png"), "image/png")
	expectKind(t, err, core.KindForbidden)
	_, err = f.svc.AttachCover(ctx, uuid.New(), f.owner.ID, strings.NewReader("png"), "image/png")
	expectKind(t, err, core.KindNotFound)
	_, err = f.svc.CoverURL(ctx, f.book.ID)
	expectKind(t, err, core.KindNotFound)

	info, err := f.svc.AttachCover(ctx, f.book.ID, f.owner.ID, strings.NewReader("first"), "image/png")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if info.Key != core.CoverKey(f.book.ID) || info.ContentType != "image/png" || info.Metadata["owner"] != "1" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := f.svc.AttachCover(ctx, f.book.ID, f.owner.ID, strings.NewReader("second"), "image/jpeg"); err != nil {
		t.Fatalf("replace cover: %v", err)
	}

	got, rc, err := f.svc.OpenCover(ctx, f.book.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "second" || got.ContentType != "image/jpeg" {
		t.Fatalf("expected replaced cover, got %q %+v", body, got)
	}

	url, err := f.svc.CoverURL(ctx, f.book.ID)
	if err != nil {
		t.Fatalf("cover url: %v", err)
	}
	if url != core.CoverKey(f.book.ID) {
		t.Fatalf("expected key fallback without presigning, got %s", url)
	}
	_, _, err = f.svc.OpenCover(ctx, uuid.New())
	expectKind(t, err, core.KindNotFound)
}

func TestCoverURLFromFilesystemStore(t *testing.T) {
	store, err := blob.Open(context.Background(), blob.Config{FSRoot: t.TempDir(), BaseURL: "https://covers.example.org/"})
	if err != nil {
		t.Fatalf("open blob store: %v", err)
	}
	f := newFixture(t, core.WithBlobStore(store))
	ctx := context.Background()
	if _, err := f.svc.AttachCover(ctx, f.book.ID, f.owner.ID, strings.NewReader("img"), "image/png"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	url, err := f.svc.CoverURL(ctx, f.book.ID)
	if err != nil {
		t.Fatalf("cover url: %v", err)
	}
	if url != "https://covers.example.org/covers/"+f.book.ID.String() {
		t.Fatalf("unexpected url %s", url)
	}
}
