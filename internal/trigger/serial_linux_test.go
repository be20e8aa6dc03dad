package trigger

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/pkg/term/termios"

	"github.com/junsooki/FrameSync/internal/frame"
	"github.com/junsooki/FrameSync/internal/logging"
)

// openPty returns a pseudoterminal pair. The slave stands in for the bridge's
// serial device and the master for the bridge itself.
func openPty(t *testing.T) (master, slave *os.File) {
	t.Helper()
	ptm, pts, err := termios.Pty()
	if err != nil {
		t.Skipf("no pseudoterminal: %v", err)
	}
	t.Cleanup(func() {
		ptm.Close()
		pts.Close()
	})
	return ptm, pts
}

func readByte(t *testing.T, r io.Reader) byte {
	t.Helper()
	got := make(chan byte, 1)
	go func() {
		var b [1]byte
		if n, err := r.Read(b[:]); err == nil && n == 1 {
			got <- b[0]
		}
		close(got)
	}()
	select {
	case b, ok := <-got:
		if !ok {
			t.Fatal("read failed")
		}
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a byte")
	}
	return 0
}

func TestSerialLinkOverPty(t *testing.T) {
	master, slave := openPty(t)

	s, err := OpenSerial(slave.Name(), 115200)
	if err != nil {
		t.Fatalf("OpenSerial: %v", err)
	}
	if s.Name() != slave.Name() {
		t.Errorf("Name = %q, want %q", s.Name(), slave.Name())
	}
	link := New(s, time.Second, logging.Discard())
	defer link.Close()

	if err := link.Assert(); err != nil {
		t.Fatalf("Assert: %v", err)
	}
	if b := readByte(t, master); b != frame.ByteAssert {
		t.Errorf("after Assert read %q, want %q", b, frame.ByteAssert)
	}
	if err := link.Deassert(); err != nil {
		t.Fatalf("Deassert: %v", err)
	}
	if b := readByte(t, master); b != frame.ByteDeassert {
		t.Errorf("after Deassert read %q, want %q", b, frame.ByteDeassert)
	}
	if err := s.Drain(); err != nil {
		t.Errorf("Drain: %v", err)
	}
	if link.Writes() != 2 {
		t.Errorf("Writes = %d, want 2", link.Writes())
	}

	// The other direction, as the bench simulator reads it.
	if _, err := master.Write([]byte{frame.ByteAssert}); err != nil {
		t.Fatal(err)
	}
	if b := readByte(t, s); b != frame.ByteAssert {
		t.Errorf("Serial.Read = %q, want %q", b, frame.ByteAssert)
	}
}

func TestOpenSerialMissingPort(t *testing.T) {
	if _, err := OpenSerial("/dev/framesync-missing", 115200); err == nil {
		t.Fatal("OpenSerial on a missing device succeeded")
	}
}
