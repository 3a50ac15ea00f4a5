package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"bookclub/internal/blob/core"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	if s.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	meta := map[string]string{"owner": "1"}
	info, err := s.Put(ctx, "covers/a", bytes.NewBufferString("png"), core.PutOptions{ContentType: "image/png", Metadata: meta})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	meta["owner"] = "2"
	if info.Size != 3 || info.Metadata["owner"] != "1" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, "covers/a", bytes.NewBufferString("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	_, rc, err := s.Get(ctx, "covers/a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "png" {
		t.Fatalf("unexpected body %q", body)
	}
	if _, err := s.Put(ctx, "exports/b", bytes.NewBufferString("csv"), core.PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	list, _ := s.List(ctx, "covers/")
	if len(list) != 1 || list[0].Key != "covers/a" {
		t.Fatalf("unexpected list %+v", list)
	}
	if all, _ := s.List(ctx, ""); len(all) != 2 || all[0].Key != "covers/a" {
		t.Fatalf("expected sorted full list, got %+v", all)
	}
	if ok, _ := s.Delete(ctx, "covers/a"); !ok {
		t.Fatalf("expected delete to report existing blob")
	}
	if ok, _ := s.Delete(ctx, "covers/a"); ok {
		t.Fatalf("expected second delete to report missing blob")
	}
	if _, err := s.Head(ctx, "covers/a"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreRejectsBadKeysAndPresign(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, key := range []string{"", "/abs", "a/../../b"} {
		if _, err := s.Put(ctx, key, bytes.NewBufferString("x"), core.PutOptions{}); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
	if _, err := s.PresignURL(ctx, "k", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
