package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dgnsrekt/tz_agent/internal/storage"
	"github.com/dgnsrekt/tz_agent/internal/tradezero"
)

const (
	FeedNotifications = "notifications"
	FeedOrders        = "orders"

	// pollWindow is how many of the newest notifications each poll reads.
	pollWindow = 20
)

// Source lists the newest notifications, newest first.
type Source interface {
	Notifications(ctx context.Context, limit int) ([]tradezero.Notification, error)
}

// Recorder persists relayed events. *storage.Journal satisfies it.
type Recorder interface {
	Append(kind string, data any) (storage.Entry, error)
}

// Poller watches the notification widget and publishes entries it has not
// seen before. The first poll only seeds the seen set.
type Poller struct {
	src      Source
	broker   *Broker
	rec      Recorder
	interval time.Duration

	seen   map[string]struct{}
	seeded bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(src Source, broker *Broker, rec Recorder, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = time.Second
	}
	return &Poller{
		src:      src,
		broker:   broker,
		rec:      rec,
		interval: interval,
		seen:     make(map[string]struct{}),
	}
}

// Start runs the poll loop until Stop or ctx is done.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.run(ctx, p.done)
	slog.Info("relay notification poller started", "interval", p.interval)
}

func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	slog.Info("relay notification poller stopped")
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		if _, err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			slog.Debug("relay notification poll failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Poll reads the feed once and publishes unseen entries oldest first. It
// returns how many were published.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	list, err := p.src.Notifications(ctx, pollWindow)
	if err != nil {
		return 0, err
	}

	current := make(map[string]struct{}, len(list))
	var fresh []tradezero.Notification
	for i := len(list) - 1; i >= 0; i-- {
		n := list[i]
		key := n.Time + "\x00" + n.Title + "\x00" + n.Message
		current[key] = struct{}{}
		if _, ok := p.seen[key]; !ok {
			fresh = append(fresh, n)
		}
	}
	p.seen = current
	if !p.seeded {
		p.seeded = true
		return 0, nil
	}

	for _, n := range fresh {
		p.Publish(FeedNotifications, "notification", n)
	}
	return len(fresh), nil
}

// Publish sends v as JSON on feed and records it under kind.
func (p *Poller) Publish(feed, kind string, v any) {
	if err := p.broker.PublishJSON(feed, v); err != nil {
		slog.Error("relay publish failed", "feed", feed, "error", err)
		return
	}
	if p.rec != nil {
		if _, err := p.rec.Append(kind, v); err != nil {
			slog.Warn("relay journal append failed", "feed", feed, "error", err)
		}
	}
}
