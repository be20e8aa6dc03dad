package bridge

import "sync"

// SimPin records every level written to it.
type SimPin struct {
	mu      sync.Mutex
	level   bool
	history []bool
}

func (p *SimPin) Set(high bool) {
	p.mu.Lock()
	p.level = high
	p.history = append(p.history, high)
	p.mu.Unlock()
}

func (p *SimPin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// Changes counts level transitions, ignoring rewrites of the same level.
func (p *SimPin) Changes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for i := 1; i < len(p.history); i++ {
		if p.history[i] != p.history[i-1] {
			n++
		}
	}
	return n
}

type simRead struct {
	data []byte
	err  error
}

// SimReceiver returns one queued read per poll.
type SimReceiver struct {
	mu    sync.Mutex
	reads []simRead
	polls int
}

// Push queues a read that yields p in a single poll.
func (r *SimReceiver) Push(p []byte) {
	r.mu.Lock()
	r.reads = append(r.reads, simRead{data: append([]byte(nil), p...)})
	r.mu.Unlock()
}

// Fail queues a read that fails with err.
func (r *SimReceiver) Fail(err error) {
	r.mu.Lock()
	r.reads = append(r.reads, simRead{err: err})
	r.mu.Unlock()
}

func (r *SimReceiver) Polls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.polls
}

func (r *SimReceiver) PollAndRead(buf []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.polls++
	if len(r.reads) == 0 {
		return 0, nil
	}
	next := r.reads[0]
	r.reads = r.reads[1:]
	if next.err != nil {
		return 0, next.err
	}
	return copy(buf, next.data), nil
}
