package ffmpeg

import (
	"bytes"
	"strconv"
	"strings"
	"sync"
)

// progressWriter consumes `-progress pipe:1` key=value lines and reports the
// encoded fraction of total output seconds.
type progressWriter struct {
	mu    sync.Mutex
	total float64
	fn    func(float64)
	buf   []byte
	last  float64
}

func newProgressWriter(total float64, fn func(float64)) *progressWriter {
	return &progressWriter{total: total, fn: fn, last: -1}
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.line(string(bytes.TrimSpace(w.buf[:i])))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *progressWriter) line(l string) {
	k, v, ok := strings.Cut(l, "=")
	if !ok {
		return
	}
	switch k {
	// out_time_ms is in microseconds as well
	case "out_time_us", "out_time_ms":
		us, err := strconv.ParseFloat(v, 64)
		if err != nil || w.total <= 0 {
			return
		}
		w.report(us / 1e6 / w.total)
	case "progress":
		if v == "end" {
			w.report(1)
		}
	}
}

func (w *progressWriter) report(f float64) {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	if f <= w.last {
		return
	}
	w.last = f
	if w.fn != nil {
		w.fn(f)
	}
}

func (w *progressWriter) finish() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.report(1)
}
