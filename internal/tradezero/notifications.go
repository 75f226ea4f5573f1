package tradezero

import (
	"context"
	"strings"
	"time"

	"github.com/dgnsrekt/tz_agent/internal/cdpcontrol"
)

// Notification is one entry of the notifications widget, newest first.
type Notification struct {
	Time    string `json:"time"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

type Notifications struct {
	page Page
	now  func() time.Time
}

func NewNotifications(page Page, now func() time.Time) *Notifications {
	if now == nil {
		now = time.Now
	}
	return &Notifications{page: page, now: now}
}

// List returns up to limit visible notifications; limit <= 0 returns all.
// Only entries rendered without scrolling are visible to the page.
func (n *Notifications) List(ctx context.Context, limit int) ([]Notification, error) {
	texts, err := n.page.ReadTexts(ctx, locNotificationItems)
	if err != nil {
		return nil, err
	}
	stamp := easternClock(n.now())
	out := make([]Notification, 0, len(texts))
	for _, text := range texts {
		if limit > 0 && len(out) == limit {
			break
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, parseNotification(text, stamp))
	}
	return out, nil
}

// Latest returns the newest notification, ok=false when the list is empty.
func (n *Notifications) Latest(ctx context.Context) (Notification, bool, error) {
	list, err := n.List(ctx, 1)
	if err != nil || len(list) == 0 {
		return Notification{}, false, err
	}
	return list[0], true, nil
}

// LatestMessage reads the message line of the newest notification.
func (n *Notifications) LatestMessage(ctx context.Context) (string, error) {
	msg, err := n.page.ReadText(ctx, locNotificationLatest)
	if err == nil {
		return strings.TrimSpace(msg), nil
	}
	if !cdpcontrol.IsElementNotFound(err) {
		return "", err
	}
	latest, ok, err := n.Latest(ctx)
	if err != nil || !ok {
		return "", err
	}
	return latest.Message, nil
}

// parseNotification splits "time\ntitle\nmessage". A missing or placeholder
// time is replaced by stamp.
func parseNotification(text, stamp string) Notification {
	var parts []string
	for i, p := range strings.Split(text, "\n") {
		p = strings.TrimSpace(p)
		if p == "" && i > 0 {
			continue
		}
		parts = append(parts, p)
	}

	switch {
	case len(parts) == 1:
		return Notification{Time: stamp, Message: parts[0]}
	case len(parts) == 2:
		return Notification{Time: stamp, Title: parts[0], Message: parts[1]}
	}
	if parts[0] == "" || parts[0] == "-" {
		parts[0] = stamp
	}
	return Notification{Time: parts[0], Title: parts[1], Message: strings.Join(parts[2:], " ")}
}
