package irc

import (
	"context"
	"sync"
	"time"
)

// MatchFunc selects the lines a subscription receives.
type MatchFunc func(Line) bool

// Subscription buffers lines matching a predicate until they are read with Next.
// The session keeps feeding a subscription while its reader is blocked, so a
// handler may wait for replies without stalling the connection.
type Subscription struct {
	match   MatchFunc
	lines   *queue[Line]
	once    sync.Once
	onClose func()
}

// NewSubscription creates a detached subscription. Sessions create theirs
// through Subscribe; this is for feeding lines by hand.
func NewSubscription(match MatchFunc) *Subscription {
	return &Subscription{
		match: match,
		lines: newQueue[Line](),
	}
}

// Deliver queues the line if it matches. It reports whether the line was queued.
func (s *Subscription) Deliver(line Line) bool {
	if !s.match(line) {
		return false
	}
	return s.lines.push(line)
}

// Next returns the next matching line. A timeout of zero or less waits until
// ctx is done. Returns ErrTimeout when the timeout elapses first.
func (s *Subscription) Next(ctx context.Context, timeout time.Duration) (Line, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		if line, ok := s.lines.pop(); ok {
			return line, nil
		}
		if s.lines.isClosed() {
			return Line{}, ErrSubscriptionClosed
		}

		select {
		case <-s.lines.wait():
		case <-expired:
			return Line{}, ErrTimeout
		case <-ctx.Done():
			return Line{}, ctx.Err()
		}
	}
}

// Close stops delivery. Lines already queued can still be read.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.lines.close()
		if s.onClose != nil {
			s.onClose()
		}
	})
}
