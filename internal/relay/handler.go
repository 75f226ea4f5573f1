package relay

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// keepAlive is how often an idle stream gets a comment line so proxies do
// not time it out.
var keepAlive = 15 * time.Second

// SSEHandler streams broker events as server-sent events. ?feeds=a,b limits
// the stream to the named feeds. A Last-Event-ID header (or ?last_event_id)
// replays retained events published after that id before going live.
func SSEHandler(broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		feeds := parseFeeds(r.URL.Query().Get("feeds"))
		after, err := lastEventID(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		id, ch, missed := broker.SubscribeAfter(after)
		defer broker.Unsubscribe(id)

		fmt.Fprint(w, "retry: 3000\n\n")
		for _, evt := range missed {
			writeEvent(w, evt, feeds)
		}
		flusher.Flush()

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()
		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				fmt.Fprint(w, ": keepalive\n\n")
				flusher.Flush()
			case evt, ok := <-ch:
				if !ok {
					return
				}
				if writeEvent(w, evt, feeds) {
					flusher.Flush()
				}
			}
		}
	}
}

func parseFeeds(q string) map[string]bool {
	if q == "" {
		return nil
	}
	feeds := make(map[string]bool)
	for _, f := range strings.Split(q, ",") {
		if f = strings.TrimSpace(f); f != "" {
			feeds[f] = true
		}
	}
	return feeds
}

func lastEventID(r *http.Request) (uint64, error) {
	raw := r.Header.Get("Last-Event-ID")
	if raw == "" {
		raw = r.URL.Query().Get("last_event_id")
	}
	if raw == "" {
		return 0, nil
	}
	seq, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid last event id %q", raw)
	}
	return seq, nil
}

// writeEvent reports whether evt passed the feed filter and was written.
func writeEvent(w io.Writer, evt Event, feeds map[string]bool) bool {
	if feeds != nil && !feeds[evt.Feed] {
		return false
	}
	fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", evt.Seq, evt.Feed, evt.Payload)
	return true
}
