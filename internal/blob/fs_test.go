package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func newFSStore(t *testing.T) *Filesystem {
	t.Helper()
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem store: %v", err)
	}
	return store
}

func TestFilesystemPutGetRoundTrip(t *testing.T) {
	store := newFSStore(t)
	ctx := context.Background()

	info, err := store.Put(ctx, "uploads/2025/photo.jpg", strings.NewReader("image bytes"), PutOptions{
		ContentType: "image/jpeg",
		Metadata:    map[string]string{"author": "alice"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.ETag == "" {
		t.Fatalf("expected content digest etag")
	}
	if info.Size != int64(len("image bytes")) {
		t.Fatalf("unexpected size %d", info.Size)
	}

	got, rc, err := store.Get(ctx, "uploads/2025/photo.jpg")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != "image bytes" {
		t.Fatalf("unexpected body %q", body)
	}
	if got.ETag != info.ETag || got.ContentType != "image/jpeg" || got.Metadata["author"] != "alice" {
		t.Fatalf("sidecar metadata lost: %+v", got)
	}
}

func TestFilesystemPutRejectsDuplicate(t *testing.T) {
	store := newFSStore(t)
	ctx := context.Background()

	if _, err := store.Put(ctx, "k.bin", strings.NewReader("a"), PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "k.bin", strings.NewReader("b"), PutOptions{}); err == nil {
		t.Fatalf("expected duplicate put to fail")
	}
}

func TestFilesystemKeySanitization(t *testing.T) {
	store := newFSStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "   ", "../escape", "a/../../b", "/absolute"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), PutOptions{}); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
}

func TestFilesystemDeleteAndList(t *testing.T) {
	store := newFSStore(t)
	ctx := context.Background()

	for _, key := range []string{"reports/b.csv", "reports/a.csv", "images/c.png"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	infos, err := store.List(ctx, "reports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "reports/a.csv" || infos[1].Key != "reports/b.csv" {
		t.Fatalf("unexpected listing %+v", infos)
	}

	ok, err := store.Delete(ctx, "reports/a.csv")
	if err != nil || !ok {
		t.Fatalf("delete existing: ok=%v err=%v", ok, err)
	}
	ok, err = store.Delete(ctx, "reports/a.csv")
	if err != nil || ok {
		t.Fatalf("delete missing should report false, got ok=%v err=%v", ok, err)
	}
	if _, err := store.Head(ctx, "reports/a.csv"); err == nil {
		t.Fatalf("expected head to fail after delete")
	}
}

func TestFilesystemPresignGetOnly(t *testing.T) {
	store := newFSStore(t)
	ctx := context.Background()

	u, err := store.PresignURL(ctx, "uploads/a.jpg", SignedURLOptions{})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.HasPrefix(u, "http://local.blob/") {
		t.Fatalf("unexpected url %q", u)
	}

	if _, err := store.PresignURL(ctx, "uploads/a.jpg", SignedURLOptions{Method: "PUT"}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported for PUT, got %v", err)
	}
}
