// Package sched delivers time-stamped events to the audio goroutine with
// sample accuracy. Any goroutine may schedule; exactly one goroutine calls
// ProcessBlock.
package sched

import (
	"container/heap"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cbegin/grainfield-go/internal/block"
)

// LatePolicy decides what happens to an event whose time has already passed
// when it is first seen.
type LatePolicy int

const (
	// LateDrop discards late events and counts them.
	LateDrop LatePolicy = iota
	// LateClamp delivers late events at the start of the current block.
	LateClamp
)

func (p LatePolicy) String() string {
	switch p {
	case LateDrop:
		return "drop"
	case LateClamp:
		return "clamp"
	}
	return fmt.Sprintf("LatePolicy(%d)", int(p))
}

// PointHandler receives point events. offset is relative to the block start.
type PointHandler[H any] interface {
	OnPoint(h H, offset int)
}

// SpanHandler receives span events. OnSpanStart fires once in the block that
// contains the start, OnSpanBlock for every overlapping block, and OnSpanEnd
// with the block-relative exclusive end in the block that contains it.
type SpanHandler[H any] interface {
	OnSpanStart(h H, offset int)
	OnSpanBlock(h H, r block.Range)
	OnSpanEnd(h H, offset int)
}

type Option func(*config)

type config struct {
	policy   LatePolicy
	capacity int
}

func WithLatePolicy(p LatePolicy) Option {
	return func(c *config) {
		c.policy = p
	}
}

// WithCapacity presizes the ordered queue so that steady-state draining does
// not grow it.
func WithCapacity(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.capacity = n
		}
	}
}

type Scheduler[H any] struct {
	policy LatePolicy

	inbox   atomic.Pointer[event[H]]
	seq     atomic.Uint64
	pending atomic.Int64
	dropped atomic.Uint64

	mu    sync.Mutex
	queue eventQueue[H]

	due   []*event[H]
	carry []*event[H]
}

func New[H any](opts ...Option) *Scheduler[H] {
	cfg := config{policy: LateDrop, capacity: 256}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Scheduler[H]{
		policy: cfg.policy,
		queue:  make(eventQueue[H], 0, cfg.capacity),
		due:    make([]*event[H], 0, cfg.capacity),
		carry:  make([]*event[H], 0, cfg.capacity),
	}
}

func (s *Scheduler[H]) Policy() LatePolicy { return s.policy }

// SchedulePoint queues h for delivery at absolute sample at.
func (s *Scheduler[H]) SchedulePoint(at int64, h H) error {
	if at < 0 {
		return fmt.Errorf("point at %d: %w", at, ErrNegativeTime)
	}
	s.push(&event[H]{at: at, start: at, h: h})
	return nil
}

// ScheduleSpan queues h for the half-open sample range [start, end).
func (s *Scheduler[H]) ScheduleSpan(start, end int64, h H) error {
	if start < 0 {
		return fmt.Errorf("span at %d: %w", start, ErrNegativeTime)
	}
	if end <= start {
		return fmt.Errorf("span [%d, %d): %w", start, end, ErrEmptySpan)
	}
	s.push(&event[H]{at: start, start: start, end: end, span: true, h: h})
	return nil
}

func (s *Scheduler[H]) push(e *event[H]) {
	e.seq = s.seq.Add(1)
	s.pending.Add(1)
	for {
		head := s.inbox.Load()
		e.next = head
		if s.inbox.CompareAndSwap(head, e) {
			return
		}
	}
}

// drainLocked moves every inbox event into the ordered queue. The inbox is a
// stack, so the list comes out newest first; the heap restores order by seq.
func (s *Scheduler[H]) drainLocked() {
	for e := s.inbox.Swap(nil); e != nil; {
		next := e.next
		e.next = nil
		heap.Push(&s.queue, e)
		e = next
	}
}

// ProcessBlock delivers every event due in [blockStart, blockStart+blockSize)
// in time order. The queue lock is released before any handler runs, so
// handlers may schedule further events. Nil handlers skip delivery of that
// event kind.
func (s *Scheduler[H]) ProcessBlock(blockStart int64, blockSize int, points PointHandler[H], spans SpanHandler[H]) {
	if blockSize <= 0 {
		return
	}
	blockEnd := blockStart + int64(blockSize)

	s.mu.Lock()
	s.drainLocked()
	for len(s.queue) > 0 && s.queue[0].at < blockEnd {
		s.due = append(s.due, heap.Pop(&s.queue).(*event[H]))
	}
	s.mu.Unlock()

	for _, e := range s.due {
		if e.span {
			if s.deliverSpan(e, blockStart, blockSize, spans) {
				e.at = blockEnd
				s.carry = append(s.carry, e)
				continue
			}
		} else {
			s.deliverPoint(e, blockStart, points)
		}
		s.pending.Add(-1)
	}
	clear(s.due)
	s.due = s.due[:0]

	if len(s.carry) > 0 {
		s.mu.Lock()
		for _, e := range s.carry {
			heap.Push(&s.queue, e)
		}
		s.mu.Unlock()
		clear(s.carry)
		s.carry = s.carry[:0]
	}
}

func (s *Scheduler[H]) deliverPoint(e *event[H], blockStart int64, points PointHandler[H]) {
	offset := e.at - blockStart
	if offset < 0 {
		if s.policy == LateDrop {
			s.dropped.Add(1)
			return
		}
		offset = 0
	}
	if points != nil {
		points.OnPoint(e.h, int(offset))
	}
}

// deliverSpan reports whether the span continues past this block.
func (s *Scheduler[H]) deliverSpan(e *event[H], blockStart int64, blockSize int, spans SpanHandler[H]) bool {
	blockEnd := blockStart + int64(blockSize)
	if !e.started {
		e.started = true
		switch {
		case e.start >= blockStart:
			if spans != nil {
				spans.OnSpanStart(e.h, int(e.start-blockStart))
			}
		case s.policy == LateDrop:
			// The start is lost; whatever is left of the span is still
			// delivered.
			s.dropped.Add(1)
			if e.end <= blockStart {
				return false
			}
		default:
			e.start = blockStart
			e.end = max(e.end, blockStart+1)
			if spans != nil {
				spans.OnSpanStart(e.h, 0)
			}
		}
	}
	if r, ok := block.Overlap(blockStart, blockSize, e.start, e.end); ok && spans != nil {
		spans.OnSpanBlock(e.h, r)
	}
	if e.end <= blockEnd {
		if spans != nil {
			spans.OnSpanEnd(e.h, int(e.end-blockStart))
		}
		return false
	}
	return true
}

// Dropped counts late points and late span starts discarded under LateDrop.
func (s *Scheduler[H]) Dropped() uint64 { return s.dropped.Load() }

// Pending counts scheduled events that have not been delivered or dropped.
// A span stays pending until its end has been delivered.
func (s *Scheduler[H]) Pending() int { return int(s.pending.Load()) }

// Reset discards every queued event. It must not race with ProcessBlock.
func (s *Scheduler[H]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for e := s.inbox.Swap(nil); e != nil; e = e.next {
		n++
	}
	n += len(s.queue)
	clear(s.queue)
	s.queue = s.queue[:0]
	s.pending.Add(int64(-n))
}
