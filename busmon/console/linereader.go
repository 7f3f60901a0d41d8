package console

import (
	"bytes"
	"sync"
)

// lineReader feeds the line editor at most one line per Read. Whatever the
// port delivered past the end of that line is held here, so a keystroke
// that arrived with the previous command still counts as pending.
type lineReader struct {
	port Port

	mu  sync.Mutex
	buf []byte
	err error
}

func newLineReader(port Port) *lineReader {
	return &lineReader{port: port}
}

func (r *lineReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	r.mu.Lock()
	empty := len(r.buf) == 0 && r.err == nil
	r.mu.Unlock()

	if empty {
		// the port read blocks, so it must not hold the lock Pending needs
		chunk := make([]byte, 256)
		n, err := r.port.Read(chunk)
		r.mu.Lock()
		r.buf = append(r.buf, chunk[:n]...)
		r.err = err
		r.mu.Unlock()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.buf) == 0 {
		err := r.err
		r.err = nil
		return 0, err
	}

	end := len(r.buf)
	if i := bytes.IndexAny(r.buf, "\r\n"); i >= 0 {
		end = i + 1
		if r.buf[i] == '\r' && end < len(r.buf) && r.buf[end] == '\n' {
			end++
		}
	}
	n := copy(p, r.buf[:end])
	r.buf = r.buf[n:]
	return n, nil
}

// Pending reports buffered input or a readable byte on the port.
func (r *lineReader) Pending() bool {
	r.mu.Lock()
	buffered := len(r.buf) > 0
	r.mu.Unlock()
	return buffered || r.port.Pending()
}

// Discard drops one byte, buffered input first.
func (r *lineReader) Discard() {
	r.mu.Lock()
	if len(r.buf) > 0 {
		r.buf = r.buf[1:]
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	r.port.Discard()
}
