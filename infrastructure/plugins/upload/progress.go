package upload

import (
	"io"
	"time"
)

// Progress is emitted while a transfer is running
type Progress struct {
	// Progress is the number of bytes moved since the previous event
	Progress int64 `json:"progress"`
	// ProgressTotal is the number of bytes moved so far
	ProgressTotal int64 `json:"progressTotal"`
	// Total is the expected size, or 0 when unknown
	Total int64 `json:"total"`
	// TransferSpeed is in bytes per second since the transfer started
	TransferSpeed float64 `json:"transferSpeed"`
}

// ProgressFunc receives progress events
type ProgressFunc func(Progress)

// tracker throttles progress events to one per interval
type tracker struct {
	fn       ProgressFunc
	interval time.Duration
	now      func() time.Time

	total   int64
	done    int64
	pending int64
	start   time.Time
	last    time.Time
}

func newTracker(fn ProgressFunc, total int64, interval time.Duration, now func() time.Time) *tracker {
	if total < 0 {
		total = 0
	}
	t := now()
	return &tracker{fn: fn, interval: interval, now: now, total: total, start: t, last: t}
}

func (t *tracker) add(n int) {
	if n <= 0 {
		return
	}
	t.done += int64(n)
	t.pending += int64(n)
	if t.now().Sub(t.last) >= t.interval {
		t.flush()
	}
}

// flush emits any bytes not yet reported
func (t *tracker) flush() {
	now := t.now()
	t.last = now
	if t.fn == nil || t.pending == 0 {
		return
	}

	var speed float64
	if elapsed := now.Sub(t.start).Seconds(); elapsed > 0 {
		speed = float64(t.done) / elapsed
	}
	t.fn(Progress{
		Progress:      t.pending,
		ProgressTotal: t.done,
		Total:         t.total,
		TransferSpeed: speed,
	})
	t.pending = 0
}

type countingReader struct {
	r io.Reader
	t *tracker
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.t.add(n)
	return n, err
}

type countingWriter struct {
	w io.Writer
	t *tracker
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.t.add(n)
	return n, err
}
