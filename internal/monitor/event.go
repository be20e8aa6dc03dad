package monitor

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/junsooki/FrameSync/internal/logging"
)

// Event describes one presentation opportunity of the stimulus loop.
type Event struct {
	Seq        uint64 `json:"seq"`
	Cycle      uint32 `json:"cycle"`
	Period     uint32 `json:"period"`
	State      string `json:"state"`
	Command    string `json:"command"`
	Written    bool   `json:"written"`
	Skip       string `json:"skip,omitempty"`
	IntervalUS int64  `json:"interval_us"`
	TimeMS     int64  `json:"ts_ms"`
}

// Sink receives events.
type Sink interface {
	Publish(Event) error
	Close() error
}

var ErrClosed = errors.New("monitor: sink closed")

// DefaultQueue is the Async buffer size used by the binaries.
const DefaultQueue = 256

// Async feeds a sink from its own goroutine. Publish never blocks; when the
// queue is full the event is dropped and counted.
type Async struct {
	sink Sink
	log  *slog.Logger

	ch   chan Event
	done chan struct{}

	mu     sync.RWMutex
	closed bool

	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewAsync starts the delivery goroutine for s.
func NewAsync(s Sink, size int, log *slog.Logger) *Async {
	if size <= 0 {
		size = DefaultQueue
	}
	a := &Async{
		sink: s,
		log:  logging.OrDiscard(log),
		ch:   make(chan Event, size),
		done: make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for ev := range a.ch {
		if err := a.sink.Publish(ev); err != nil {
			if a.failed.Add(1) == 1 {
				a.log.Warn("monitor publish failed", "err", err)
			} else {
				a.log.Debug("monitor publish failed", "err", err)
			}
		}
	}
}

func (a *Async) Publish(ev Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.ch <- ev:
	default:
		a.dropped.Add(1)
	}
	return nil
}

// Dropped returns how many events were discarded because the queue was full.
func (a *Async) Dropped() uint64 { return a.dropped.Load() }

// Close delivers what is queued, then closes the wrapped sink.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()

	<-a.done
	return a.sink.Close()
}

// Multi fans events out to several sinks.
type Multi []Sink

func (m Multi) Publish(ev Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
