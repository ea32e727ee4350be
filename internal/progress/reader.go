// Package progress translates transferred bytes into percentage callbacks.
//
// Reader wraps the body handed to an HTTP client. Sink is for clients such as
// minio-go that feed a progress io.Reader with each chunk they have sent.
package progress

import (
	"io"
	"sync"
)

// Counter accumulates transferred bytes and reports percentage changes.
type Counter struct {
	mu     sync.Mutex
	total  int64
	done   int64
	last   int
	report func(percent int)
}

// NewCounter creates a Counter for a transfer of total bytes.
// A non-positive total disables reporting.
func NewCounter(total int64, report func(percent int)) *Counter {
	return &Counter{total: total, last: -1, report: report}
}

// Add records n transferred bytes and reports when the percentage changes.
func (c *Counter) Add(n int64) {
	if n <= 0 || c.total <= 0 || c.report == nil {
		return
	}

	c.mu.Lock()
	c.done += n
	if c.done > c.total {
		c.done = c.total
	}
	pct := int(c.done * 100 / c.total)
	changed := pct != c.last
	c.last = pct
	c.mu.Unlock()

	if changed {
		c.report(pct)
	}
}

// Reset clears the transferred byte count, e.g. when a body is rewound.
func (c *Counter) Reset() {
	c.mu.Lock()
	c.done = 0
	c.last = -1
	c.mu.Unlock()
}

// Reader reports progress as its underlying reader is consumed.
type Reader struct {
	r       io.Reader
	counter *Counter
}

// NewReader wraps r, reporting progress against total bytes.
func NewReader(r io.Reader, total int64, report func(percent int)) *Reader {
	return &Reader{r: r, counter: NewCounter(total, report)}
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.counter.Add(int64(n))
	return n, err
}

// Sink is an io.Reader that only counts the length of each buffer it is given.
type Sink struct {
	counter *Counter
}

// NewSink creates a Sink reporting progress against total bytes.
func NewSink(total int64, report func(percent int)) *Sink {
	return &Sink{counter: NewCounter(total, report)}
}

// Read records len(p) transferred bytes.
func (s *Sink) Read(p []byte) (int, error) {
	s.counter.Add(int64(len(p)))
	return len(p), nil
}
