// ABOUTME: Identifier generators for conversations and messages
// ABOUTME: Sequence yields timestamp-shaped, strictly increasing int64 ids safe for concurrent use

package ids

import (
	"sync/atomic"
	"time"
)

// Generator hands out unique identifiers that sort by creation order.
type Generator interface {
	Next() int64
}

// Sequence is seeded from wall-clock milliseconds. Each id is the larger of
// the current clock reading and the previous id plus one, so ids look like
// Unix millisecond timestamps but never repeat, even when many are taken in
// the same millisecond or the clock steps backwards.
type Sequence struct {
	last atomic.Int64
	now  func() time.Time
}

// NewSequence creates a clock-seeded generator.
func NewSequence() *Sequence {
	return &Sequence{now: time.Now}
}

// Next returns the next id.
func (s *Sequence) Next() int64 {
	for {
		prev := s.last.Load()
		next := s.now().UnixMilli()
		if next <= prev {
			next = prev + 1
		}
		if s.last.CompareAndSwap(prev, next) {
			return next
		}
	}
}

// Counter is a deterministic generator for tests.
type Counter struct {
	n atomic.Int64
}

// NewCounter returns a Counter whose first id is start.
func NewCounter(start int64) *Counter {
	c := &Counter{}
	c.n.Store(start - 1)
	return c
}

// Next returns the next id.
func (c *Counter) Next() int64 {
	return c.n.Add(1)
}

var (
	_ Generator = (*Sequence)(nil)
	_ Generator = (*Counter)(nil)
)
