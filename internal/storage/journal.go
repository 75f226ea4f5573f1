package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Entry is one line of a journal file.
type Entry struct {
	ID     string    `json:"id"`
	Time   time.Time `json:"ts"`
	Stream string    `json:"stream"`
	Kind   string    `json:"kind"`
	Data   any       `json:"data"`
}

// Journal appends entries asynchronously to date-organized JSONL files:
// baseDir/2006-01-02/<stream>.jsonl, rotated by lumberjack at maxSizeMB.
type Journal struct {
	baseDir   string
	stream    string
	maxSizeMB int
	now       func() time.Time

	writeCh chan Entry
	done    chan struct{}
	wg      sync.WaitGroup

	// sendMu orders sends on writeCh before Close's drain.
	sendMu sync.RWMutex
	closed bool

	mu          sync.Mutex
	currentDate string
	logger      *lumberjack.Logger
}

func NewJournal(baseDir, stream string, bufferSize, maxSizeMB int) *Journal {
	return newJournal(baseDir, stream, bufferSize, maxSizeMB, time.Now)
}

func newJournal(baseDir, stream string, bufferSize, maxSizeMB int, now func() time.Time) *Journal {
	if bufferSize < 1 {
		bufferSize = 1
	}
	j := &Journal{
		baseDir:   baseDir,
		stream:    stream,
		maxSizeMB: maxSizeMB,
		now:       now,
		writeCh:   make(chan Entry, bufferSize),
		done:      make(chan struct{}),
	}
	j.wg.Add(1)
	go j.writeLoop()
	return j
}

// Append queues an entry. It never blocks: a full buffer drops the entry
// and reports an error.
func (j *Journal) Append(kind string, data any) (Entry, error) {
	e := Entry{
		ID:     uuid.NewString(),
		Time:   j.now().UTC(),
		Stream: j.stream,
		Kind:   kind,
		Data:   data,
	}
	j.sendMu.RLock()
	defer j.sendMu.RUnlock()
	if j.closed {
		return Entry{}, fmt.Errorf("journal %s is closed", j.stream)
	}
	select {
	case j.writeCh <- e:
		return e, nil
	default:
		slog.Warn("journal buffer full, dropping entry", "stream", j.stream, "kind", kind)
		return Entry{}, fmt.Errorf("journal %s buffer full", j.stream)
	}
}

// Close flushes queued entries and closes the current file.
func (j *Journal) Close() error {
	j.sendMu.Lock()
	if j.closed {
		j.sendMu.Unlock()
		return nil
	}
	j.closed = true
	j.sendMu.Unlock()

	close(j.done)
	j.wg.Wait()

	// Drain remaining items with timeout
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e := <-j.writeCh:
			j.writeEntry(e)
			continue
		case <-timeout:
			slog.Warn("journal close timeout, some entries may be lost", "stream", j.stream)
		default:
		}
		break
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.logger != nil {
		return j.logger.Close()
	}
	return nil
}

func (j *Journal) writeLoop() {
	defer j.wg.Done()
	for {
		select {
		case e := <-j.writeCh:
			j.writeEntry(e)
		case <-j.done:
			return
		}
	}
}

func (j *Journal) writeEntry(e Entry) {
	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("journal marshal failed", "error", err, "stream", j.stream, "kind", e.Kind)
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	date := e.Time.Format("2006-01-02")
	if date != j.currentDate || j.logger == nil {
		if err := j.rotateForDate(date); err != nil {
			slog.Error("journal rotate failed", "error", err, "stream", j.stream)
			return
		}
	}
	if _, err := j.logger.Write(append(data, '\n')); err != nil {
		slog.Error("journal write failed", "error", err, "stream", j.stream)
	}
}

func (j *Journal) rotateForDate(date string) error {
	if j.logger != nil {
		if err := j.logger.Close(); err != nil {
			slog.Debug("journal close previous file failed", "error", err, "stream", j.stream)
		}
		j.logger = nil
	}

	dir := filepath.Join(j.baseDir, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	filename := filepath.Join(dir, j.stream+".jsonl")
	j.logger = &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    j.maxSizeMB,
		MaxBackups: 100,
		MaxAge:     90,
		LocalTime:  false,
	}
	j.currentDate = date
	slog.Info("journal file opened", "file", filename, "stream", j.stream)
	return nil
}
