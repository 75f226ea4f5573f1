package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSaveGetListReadImage(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "snaps"), 0)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	older := SnapshotMeta{
		ID: "11111111-1111-4111-8111-111111111111", Format: "png", SizeBytes: 3,
		CreatedAt: time.Date(2024, 3, 12, 14, 0, 0, 0, time.UTC), Symbol: "AAPL",
	}
	newer := SnapshotMeta{
		ID: "22222222-2222-4222-8222-222222222222", Format: "jpeg", SizeBytes: 2,
		CreatedAt: time.Date(2024, 3, 12, 15, 0, 0, 0, time.UTC), URL: "https://standard.tradezeroweb.us/",
	}
	if err := store.Save(older, []byte("png")); err != nil {
		t.Fatalf("Save(older) error = %v", err)
	}
	if err := store.Save(newer, []byte("jp")); err != nil {
		t.Fatalf("Save(newer) error = %v", err)
	}

	got, err := store.Get(older.ID)
	if err != nil || got.Symbol != "AAPL" || !got.CreatedAt.Equal(older.CreatedAt) {
		t.Fatalf("Get() = %+v, %v", got, err)
	}

	list, err := store.List(Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != newer.ID {
		t.Fatalf("List() = %+v; want newest first", list)
	}
	if list, _ := store.List(Filter{Symbol: "aapl"}); len(list) != 1 || list[0].ID != older.ID {
		t.Fatalf("List(symbol) = %+v; want only the AAPL snapshot", list)
	}
	if list, _ := store.List(Filter{Limit: 1}); len(list) != 1 || list[0].ID != newer.ID {
		t.Fatalf("List(limit 1) = %+v", list)
	}

	data, format, err := store.ReadImage(newer.ID)
	if err != nil || string(data) != "jp" || format != "jpeg" {
		t.Fatalf("ReadImage() = %q, %q, %v", data, format, err)
	}
}

func TestStoreErrors(t *testing.T) {
	store, err := NewStore(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get("../../etc/passwd"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("Get(traversal) error = %v; want ErrInvalidID", err)
	}
	if _, err := store.Get("11111111-1111-4111-8111-11111111111A"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("Get(upper-case) error = %v; want ErrInvalidID", err)
	}
	if err := store.Save(SnapshotMeta{ID: "nope", Format: "png"}, nil); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("Save(bad id) error = %v; want ErrInvalidID", err)
	}
	missing := "33333333-3333-4333-8333-333333333333"
	if _, err := store.Get(missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v; want ErrNotFound", err)
	}
	if err := store.Delete(missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete(missing) error = %v; want ErrNotFound", err)
	}
}

func TestDeleteLogsImageCleanupFailureWhenImageMissing(t *testing.T) {
	t.Helper()

	dir := t.TempDir()
	store := &Store{dir: dir}
	id := "123e4567-e89b-12d3-a456-426614174000"
	jsonPath := filepath.Join(dir, id+".json")

	meta := SnapshotMeta{
		ID:     id,
		Format: "png",
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("json.Marshal() failed: %v", err)
	}
	if err := os.WriteFile(jsonPath, metaBytes, 0o644); err != nil {
		t.Fatalf("os.WriteFile() failed: %v", err)
	}

	var buf bytes.Buffer
	oldLogger := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() {
		slog.SetDefault(oldLogger)
	})

	if err := store.Delete(id); err != nil {
		t.Fatalf("Delete() = %v; want nil", err)
	}

	if !strings.Contains(buf.String(), "snapshot image cleanup failed") {
		t.Fatalf("expected image cleanup debug log, got %q", buf.String())
	}
}

func TestSavePrunesOldest(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 2)
	if err != nil {
		t.Fatal(err)
	}
	base := time.Date(2024, 3, 12, 14, 0, 0, 0, time.UTC)
	ids := []string{
		"11111111-1111-4111-8111-111111111111",
		"22222222-2222-4222-8222-222222222222",
		"33333333-3333-4333-8333-333333333333",
	}
	for i, id := range ids {
		meta := SnapshotMeta{ID: id, Format: "png", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := store.Save(meta, []byte("img")); err != nil {
			t.Fatalf("Save(%d) error = %v", i, err)
		}
	}

	list, err := store.List(Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != ids[2] || list[1].ID != ids[1] {
		t.Fatalf("List() after prune = %+v; want the two newest", list)
	}
	if _, err := os.Stat(filepath.Join(dir, ids[0]+".png")); !os.IsNotExist(err) {
		t.Fatalf("oldest image still on disk: %v", err)
	}
	if _, err := store.Get(ids[0]); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(pruned) error = %v; want ErrNotFound", err)
	}
}
