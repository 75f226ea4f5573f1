package tradezero

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/tz_agent/internal/cdpcontrol"
)

// fakePage serves scripted DOM reads and records every mutation. A text
// sequence is consumed one read at a time and its last entry repeats. A
// locator with no script reads as ElementNotFound.
type fakePage struct {
	mu sync.Mutex

	texts  map[string][]string
	lists  map[string][]string
	attrs  map[string]string
	html   map[string]string
	errs   map[string]error
	reads  map[string]int
	calls  []string
	onCall func(call string)
}

func newFakePage() *fakePage {
	return &fakePage{
		texts: map[string][]string{},
		lists: map[string][]string{},
		attrs: map[string]string{},
		html:  map[string]string{},
		errs:  map[string]error{},
		reads: map[string]int{},
	}
}

func (f *fakePage) setText(loc cdpcontrol.Locator, seq ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts[loc.String()] = seq
	f.reads[loc.String()] = 0
}

func (f *fakePage) setList(loc cdpcontrol.Locator, items ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[loc.String()] = items
}

func (f *fakePage) setAttr(loc cdpcontrol.Locator, name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attrs[loc.String()+"@"+name] = value
}

func (f *fakePage) setHTML(loc cdpcontrol.Locator, src string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.html[loc.String()] = src
}

// setErr makes reads of loc fail with err; nil clears it.
func (f *fakePage) setErr(loc cdpcontrol.Locator, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, loc.String())
		return
	}
	f.errs[loc.String()] = err
}

func (f *fakePage) readCount(loc cdpcontrol.Locator) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads[loc.String()]
}

func (f *fakePage) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	hook := f.onCall
	f.mu.Unlock()
	if hook != nil {
		hook(call)
	}
}

func (f *fakePage) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakePage) countCalls(prefix string) int {
	n := 0
	for _, c := range f.recorded() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakePage) ReadText(_ context.Context, loc cdpcontrol.Locator) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := loc.String()
	if err := f.errs[key]; err != nil {
		return "", err
	}
	seq, ok := f.texts[key]
	if !ok || len(seq) == 0 {
		return "", cdpcontrol.ElementNotFound(loc)
	}
	i := f.reads[key]
	f.reads[key]++
	if i >= len(seq) {
		i = len(seq) - 1
	}
	return seq[i], nil
}

func (f *fakePage) ReadTexts(_ context.Context, loc cdpcontrol.Locator) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[loc.String()]; err != nil {
		return nil, err
	}
	return append([]string(nil), f.lists[loc.String()]...), nil
}

func (f *fakePage) WriteAndSubmit(_ context.Context, loc cdpcontrol.Locator, text string) error {
	f.record("submit " + loc.String() + " " + text)
	return nil
}

func (f *fakePage) SetValue(_ context.Context, loc cdpcontrol.Locator, text string) error {
	f.record("set " + loc.String() + " " + text)
	return nil
}

func (f *fakePage) Click(_ context.Context, loc cdpcontrol.Locator) error {
	f.record("click " + loc.String())
	return nil
}

func (f *fakePage) SelectByIndex(_ context.Context, loc cdpcontrol.Locator, index int) error {
	f.record("select " + loc.String() + " #" + strconv.Itoa(index))
	return nil
}

func (f *fakePage) SelectByText(_ context.Context, loc cdpcontrol.Locator, text string) error {
	f.record("select " + loc.String() + " " + text)
	return nil
}

func (f *fakePage) GetAttribute(_ context.Context, loc cdpcontrol.Locator, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.attrs[loc.String()+"@"+name]
	if !ok {
		return "", cdpcontrol.ElementNotFound(loc)
	}
	return v, nil
}

func (f *fakePage) SetAttribute(_ context.Context, loc cdpcontrol.Locator, name, value string) error {
	f.record("attr " + loc.String() + " " + name + "=" + value)
	return nil
}

func (f *fakePage) OuterHTML(_ context.Context, loc cdpcontrol.Locator) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	src, ok := f.html[loc.String()]
	if !ok {
		return "", cdpcontrol.ElementNotFound(loc)
	}
	return src, nil
}

func (f *fakePage) Navigate(_ context.Context, url string) error {
	f.record("navigate " + url)
	return nil
}

type stubFeed struct {
	msg string
	err error
}

func (s stubFeed) LatestMessage(context.Context) (string, error) {
	return s.msg, s.err
}

func noWait(context.Context, time.Duration) error { return nil }

// newTestClient builds a Client over page with waits disabled and the clock
// fixed at 11:00 ET on a weekday.
func newTestClient(t *testing.T, page *fakePage) *Client {
	t.Helper()
	now := time.Date(2024, time.March, 12, 15, 0, 0, 0, time.UTC)
	c := New(page, Options{
		UserName:         "trader",
		Password:         "secret",
		Loader:           LoaderConfig{MaxAttempts: 300},
		Locate:           LocateConfig{MaxAttempts: 30, PollInterval: time.Millisecond},
		DOMReadyAttempts: 5,
		DOMReadyInterval: time.Millisecond,
		Now:              func() time.Time { return now },
	})
	c.wait = noWait
	c.Loader.wait = noWait
	c.Watchlist.wait = noWait
	return c
}
