package bridge

import "testing"

// burst serves data in chunks of at most chunk bytes, like a UART ring buffer.
type burst struct {
	data  []byte
	chunk int
	calls int
}

func (b *burst) read(p []byte) int {
	b.calls++
	n := min(len(p), b.chunk, len(b.data))
	copy(p, b.data[:n])
	b.data = b.data[n:]
	return n
}

func TestReadAll(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		chunk     int
		want      int
		wantCalls int
	}{
		{"empty", 0, 32, 0, 1},
		{"one byte", 1, 32, 1, 1},
		{"short burst", 5, 32, 5, 1},
		{"exactly buf", 32, 32, 32, 2},
		{"long burst", 70, 32, 70, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &burst{data: make([]byte, tt.size), chunk: tt.chunk}
			buf := make([]byte, 32)
			if got := ReadAll(buf, b.read); got != tt.want {
				t.Errorf("ReadAll = %d, want %d", got, tt.want)
			}
			if len(b.data) != 0 {
				t.Errorf("%d bytes left unread", len(b.data))
			}
			if b.calls != tt.wantCalls {
				t.Errorf("read called %d times, want %d", b.calls, tt.wantCalls)
			}
		})
	}
}

type drainReceiver struct{ b *burst }

func (r drainReceiver) PollAndRead(buf []byte) (int, error) { return ReadAll(buf, r.b.read), nil }

func TestLongBurstIsOneRejectedRead(t *testing.T) {
	b := &burst{chunk: 32}
	pin := &SimPin{}
	ctx, err := NewContext(Config{Pin: pin, Receiver: drainReceiver{b}})
	if err != nil {
		t.Fatal(err)
	}

	b.data = []byte("1")
	ctx.Service()
	if ctx.Level() != High {
		t.Fatal("single '1' not applied")
	}

	long := make([]byte, 40)
	for i := range long {
		long[i] = '0'
	}
	b.data = long
	ctx.Service()
	if len(b.data) != 0 {
		t.Fatalf("%d bytes of the burst left for the next wake", len(b.data))
	}
	if ctx.Level() != High {
		t.Fatal("burst changed the level")
	}
	if accepted, rejected := ctx.Counts(); accepted != 1 || rejected != 1 {
		t.Fatalf("counts = %d/%d, want 1/1", accepted, rejected)
	}

	// Nothing pending after the drain.
	ctx.Service()
	if _, rejected := ctx.Counts(); rejected != 1 {
		t.Fatalf("rejected = %d after an empty poll", rejected)
	}
}
