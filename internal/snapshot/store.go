// Package snapshot keeps screenshots of the TradeZero tab on disk, each as an
// image file plus a JSON sidecar named after the snapshot's uuid.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("snapshot not found")
	ErrInvalidID = errors.New("invalid snapshot id")
)

type SnapshotMeta struct {
	ID        string    `json:"id"`
	Format    string    `json:"format"`
	SizeBytes int       `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
	URL       string    `json:"url,omitempty"`
	Title     string    `json:"title,omitempty"`
	Symbol    string    `json:"symbol,omitempty"`
	FullPage  bool      `json:"full_page,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Symbol string
	Limit  int
}

// Store manages snapshot files under one directory. When maxCount > 0, Save
// deletes the oldest snapshots beyond that count.
type Store struct {
	dir      string
	maxCount int
	mu       sync.RWMutex
}

func NewStore(dir string, maxCount int) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot store: mkdir %s: %w", dir, err)
	}
	if maxCount < 0 {
		maxCount = 0
	}
	return &Store{dir: dir, maxCount: maxCount}, nil
}

// validateID accepts canonical lower-case uuids only, so IDs are safe to use
// as file names.
func validateID(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.String() != id {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func (s *Store) imagePath(id, format string) string {
	return filepath.Join(s.dir, id+"."+format)
}

func (s *Store) metaPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes the image, then the sidecar. A snapshot is visible to List
// only once its sidecar exists.
func (s *Store) Save(meta SnapshotMeta, imageData []byte) error {
	if err := validateID(meta.ID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot store: marshal meta: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	imgPath := s.imagePath(meta.ID, meta.Format)
	if err := os.WriteFile(imgPath, imageData, 0o644); err != nil {
		return fmt.Errorf("snapshot store: write image: %w", err)
	}
	if err := writeAtomic(s.metaPath(meta.ID), data); err != nil {
		if rmErr := os.Remove(imgPath); rmErr != nil {
			slog.Debug("snapshot image cleanup failed", "id", meta.ID, "error", rmErr)
		}
		return fmt.Errorf("snapshot store: write meta: %w", err)
	}

	if s.maxCount > 0 {
		s.pruneLocked()
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".meta-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *Store) Get(id string) (SnapshotMeta, error) {
	if err := validateID(id); err != nil {
		return SnapshotMeta{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readMeta(id)
}

func (s *Store) readMeta(id string) (SnapshotMeta, error) {
	data, err := os.ReadFile(s.metaPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return SnapshotMeta{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return SnapshotMeta{}, fmt.Errorf("snapshot store: read meta: %w", err)
	}
	var meta SnapshotMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return SnapshotMeta{}, fmt.Errorf("snapshot store: unmarshal meta %s: %w", id, err)
	}
	return meta, nil
}

// List returns matching snapshots, newest first. Unreadable sidecars are
// skipped.
func (s *Store) List(f Filter) ([]SnapshotMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metas, err := s.allLocked()
	if err != nil {
		return nil, err
	}
	if sym := strings.ToUpper(strings.TrimSpace(f.Symbol)); sym != "" {
		kept := metas[:0]
		for _, m := range metas {
			if strings.EqualFold(m.Symbol, sym) {
				kept = append(kept, m)
			}
		}
		metas = kept
	}
	if f.Limit > 0 && len(metas) > f.Limit {
		metas = metas[:f.Limit]
	}
	return metas, nil
}

func (s *Store) allLocked() ([]SnapshotMeta, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("snapshot store: glob: %w", err)
	}
	metas := make([]SnapshotMeta, 0, len(matches))
	for _, path := range matches {
		id := strings.TrimSuffix(filepath.Base(path), ".json")
		if validateID(id) != nil {
			continue
		}
		meta, err := s.readMeta(id)
		if err != nil {
			slog.Debug("snapshot sidecar skipped", "path", path, "error", err)
			continue
		}
		metas = append(metas, meta)
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})
	return metas, nil
}

// pruneLocked removes the oldest snapshots past maxCount. Failures are
// logged; the next Save tries again.
func (s *Store) pruneLocked() {
	metas, err := s.allLocked()
	if err != nil {
		slog.Warn("snapshot prune skipped", "error", err)
		return
	}
	for _, m := range metas[min(s.maxCount, len(metas)):] {
		if err := s.removeLocked(m); err != nil {
			slog.Warn("snapshot prune failed", "id", m.ID, "error", err)
			continue
		}
		slog.Debug("snapshot pruned", "id", m.ID, "created_at", m.CreatedAt)
	}
}

func (s *Store) removeLocked(meta SnapshotMeta) error {
	if err := os.Remove(s.imagePath(meta.ID, meta.Format)); err != nil {
		slog.Debug("snapshot image cleanup failed", "id", meta.ID, "error", err)
	}
	if err := os.Remove(s.metaPath(meta.ID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("snapshot store: remove meta: %w", err)
	}
	return nil
}

// ReadImage returns the image bytes and format.
func (s *Store) ReadImage(id string) ([]byte, string, error) {
	if err := validateID(id); err != nil {
		return nil, "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, err := s.readMeta(id)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(s.imagePath(id, meta.Format))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("%w: image for %s", ErrNotFound, id)
		}
		return nil, "", fmt.Errorf("snapshot store: read image: %w", err)
	}
	return data, meta.Format, nil
}

func (s *Store) Delete(id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.readMeta(id)
	if err != nil {
		return err
	}
	if err := s.removeLocked(meta); err != nil {
		return err
	}
	slog.Info("snapshot deleted", "id", id, "symbol", meta.Symbol)
	return nil
}
