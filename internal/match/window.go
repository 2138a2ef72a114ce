package match

// window is a fixed-width ring buffer holding the most recent bytes.
type window struct {
	buf  []byte
	head int // index of the oldest byte once full
	n    int
}

func newWindow(width int) *window {
	return &window{buf: make([]byte, width)}
}

// push appends b, evicting the oldest byte when full, and reports whether
// the window now holds width bytes.
func (w *window) push(b byte) bool {
	if w.n < len(w.buf) {
		w.buf[w.n] = b
		w.n++
		return w.n == len(w.buf)
	}
	w.buf[w.head] = b
	w.head++
	if w.head == len(w.buf) {
		w.head = 0
	}
	return true
}

// equal reports whether the window, oldest byte first, equals p.
func (w *window) equal(p []byte) bool {
	if w.n != len(p) {
		return false
	}
	k := len(w.buf) - w.head
	return string(w.buf[w.head:]) == string(p[:k]) && string(w.buf[:w.head]) == string(p[k:])
}
