package monitor

import (
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordSink struct {
	mu     sync.Mutex
	events []Event
	block  chan struct{}
	err    error
	closed bool
}

func (r *recordSink) Publish(ev Event) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordSink) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

func (r *recordSink) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestAsyncDropsWhenFull(t *testing.T) {
	inner := &recordSink{block: make(chan struct{})}
	a := NewAsync(inner, 2, nil)

	// One event is held by the blocked delivery goroutine, two sit in the
	// queue, the rest must be dropped without blocking.
	start := time.Now()
	for i := 0; i < 10; i++ {
		if err := a.Publish(Event{Seq: uint64(i)}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("Publish blocked")
	}
	if d := a.Dropped(); d < 7 || d > 8 {
		t.Fatalf("dropped = %d, want 7 or 8", d)
	}

	close(inner.block)
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := inner.len() + int(a.Dropped()); got != 10 {
		t.Fatalf("delivered + dropped = %d, want 10", got)
	}
	if !inner.closed {
		t.Fatal("inner sink not closed")
	}
	if err := a.Publish(Event{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Publish after Close = %v", err)
	}
}

func TestAsyncPreservesOrder(t *testing.T) {
	inner := &recordSink{}
	a := NewAsync(inner, 64, nil)
	for i := 0; i < 32; i++ {
		a.Publish(Event{Seq: uint64(i)})
	}
	a.Close()
	for i, ev := range inner.events {
		if ev.Seq != uint64(i) {
			t.Fatalf("event %d has seq %d", i, ev.Seq)
		}
	}
}

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	ok, bad := &recordSink{}, &recordSink{err: boom}
	m := Multi{ok, bad}
	if err := m.Publish(Event{Seq: 1}); !errors.Is(err, boom) {
		t.Fatalf("Publish = %v", err)
	}
	if ok.len() != 1 || bad.len() != 1 {
		t.Fatal("event not fanned out to every sink")
	}
	if err := m.Close(); err != nil || !ok.closed || !bad.closed {
		t.Fatalf("Close = %v", err)
	}
}

func TestWebSocketDelivery(t *testing.T) {
	got := make(chan Event, 4)
	srv := httptest.NewServer(NewServer(func(_ string, ev Event) { got <- ev }, nil))
	defer srv.Close()

	ws, err := DialWebSocket("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("DialWebSocket: %v", err)
	}
	want := Event{
		Seq:     7,
		Cycle:   0,
		Period:  60,
		State:   "stimulus",
		Command: "assert",
		Written: true,
	}
	if err := ws.Publish(want); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case ev := <-got:
		if ev != want {
			t.Fatalf("received %+v, want %+v", ev, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	if err := ws.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := ws.Publish(want); !errors.Is(err, ErrClosed) {
		t.Fatalf("Publish after Close = %v", err)
	}
}

func TestDialWebSocketFails(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()
	if _, err := DialWebSocket(url, nil); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestOpenWithoutSinks(t *testing.T) {
	a, err := Open(Options{})
	if err != nil || a != nil {
		t.Fatalf("Open = %v, %v; want nil, nil", a, err)
	}
}

func TestOpenCloseDeliversQueuedEvents(t *testing.T) {
	const n = 20
	got := make(chan Event, n)
	srv := httptest.NewServer(NewServer(func(_ string, ev Event) { got <- ev }, nil))
	defer srv.Close()

	a, err := Open(Options{WebSocket: "ws" + strings.TrimPrefix(srv.URL, "http")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < n; i++ {
		a.Publish(Event{Seq: uint64(i), Skip: "outdated"})
	}
	// Close is what the host runs on the way out, including fatal exits.
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for i := 0; i < n; i++ {
		select {
		case ev := <-got:
			if ev.Seq != uint64(i) {
				t.Fatalf("event %d has seq %d", i, ev.Seq)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of %d events delivered", i, n)
		}
	}
}

func TestOpenClosesSinksOnDialFailure(t *testing.T) {
	server := NewServer(func(string, Event) {}, nil)
	srv := httptest.NewServer(server)
	defer srv.Close()

	_, err := Open(Options{
		WebSocket: "ws" + strings.TrimPrefix(srv.URL, "http"),
		MQTT:      "tcp://127.0.0.1:1",
		ClientID:  "framesync-test",
	})
	if err == nil {
		t.Fatal("Open succeeded with an unreachable broker")
	}
	deadline := time.Now().Add(2 * time.Second)
	for server.Clients() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("websocket left open: %d clients", server.Clients())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
