package bridge

// ReadAll reads one pending burst with a non-blocking read function such as a
// UART TryRead. The first chunk lands in buf. If it fills buf, the rest of the
// burst is discarded until read returns zero and the total is returned, so
// Service counts the whole burst as a single rejected read.
func ReadAll(buf []byte, read func([]byte) int) int {
	n := read(buf)
	if n < len(buf) {
		return n
	}
	var scratch [16]byte
	for {
		m := read(scratch[:])
		if m == 0 {
			return n
		}
		n += m
	}
}
