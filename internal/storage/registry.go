package storage

import (
	"log/slog"
	"strings"
	"sync"
)

// Journal streams written by the controller.
const (
	StreamOrders        = "orders"
	StreamLocates       = "locates"
	StreamNotifications = "notifications"
)

// Registry hands out one Journal per stream, created on first use.
type Registry struct {
	baseDir    string
	maxSizeMB  int
	bufferSize int

	mu       sync.Mutex
	journals map[string]*Journal
}

func NewRegistry(baseDir string, bufferSize, maxSizeMB int) *Registry {
	return &Registry{
		baseDir:    baseDir,
		maxSizeMB:  maxSizeMB,
		bufferSize: bufferSize,
		journals:   make(map[string]*Journal),
	}
}

// Journal returns the journal for stream. Names are reduced to a
// filesystem-safe form.
func (r *Registry) Journal(stream string) *Journal {
	name := streamName(stream)

	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.journals[name]; ok {
		return j
	}
	j := NewJournal(r.baseDir, name, r.bufferSize, r.maxSizeMB)
	r.journals[name] = j
	slog.Info("journal created", "stream", name)
	return j
}

// Close closes all journals. The registry can be reused afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lastErr error
	for name, j := range r.journals {
		if err := j.Close(); err != nil {
			slog.Error("journal close failed", "stream", name, "error", err)
			lastErr = err
		}
	}
	r.journals = make(map[string]*Journal)
	return lastErr
}

func streamName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}
