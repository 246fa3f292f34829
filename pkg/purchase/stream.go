package purchase

import (
	"context"
	"sync"
)

// Subscriber receives purchase results from the manager's broadcast stream.
// All methods are safe for concurrent use.
type Subscriber struct {
	ch     chan Result
	closed bool
	mu     sync.RWMutex
}

func newSubscriber(bufferSize int) *Subscriber {
	return &Subscriber{
		ch: make(chan Result, bufferSize),
	}
}

// Results returns the channel purchase results arrive on. The channel is
// closed when the subscriber or the stream is closed.
func (s *Subscriber) Results() <-chan Result {
	return s.ch
}

// Close closes the subscriber. Close is idempotent.
func (s *Subscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.ch)
		s.closed = true
	}
	return nil
}

func (s *Subscriber) send(r Result) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.ch <- r:
		return true
	default:
		return false
	}
}

// stream is the manager's multi-subscriber broadcast channel for purchase
// results. Delivery is at-most-once with no replay: publishing never blocks
// on slow subscribers (their messages are dropped) and late subscribers do
// not receive already-emitted results.
type stream struct {
	subscribers map[*Subscriber]struct{}
	bufferSize  int
	closed      bool
	mu          sync.RWMutex
	cleanupWg   sync.WaitGroup
}

func newStream(bufferSize int) *stream {
	return &stream{
		subscribers: make(map[*Subscriber]struct{}),
		// A zero buffer would make every send blocking and defeat the
		// non-blocking design.
		bufferSize: max(bufferSize, 1),
	}
}

// subscribe registers a new subscriber. The subscription is cleaned up
// automatically when the given context is cancelled. A closed stream hands
// out already-closed subscribers.
func (st *stream) subscribe(ctx context.Context) *Subscriber {
	st.mu.Lock()
	defer st.mu.Unlock()

	sub := newSubscriber(st.bufferSize)
	if st.closed {
		_ = sub.Close()
		return sub
	}
	st.subscribers[sub] = struct{}{}

	if ctx.Done() != nil {
		st.cleanupWg.Add(1)
		go func() {
			defer st.cleanupWg.Done()
			<-ctx.Done()
			st.unsubscribe(sub)
		}()
	}

	return sub
}

// publish sends the result to all active subscribers, dropping it for any
// whose buffer is full.
func (st *stream) publish(r Result) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	if st.closed {
		return
	}

	for sub := range st.subscribers {
		if !sub.send(r) {
			// Slow or closed subscriber: remove it asynchronously so the
			// publish path never waits on the write lock.
			go st.unsubscribe(sub)
		}
	}
}

func (st *stream) close() {
	st.mu.Lock()

	if st.closed {
		st.mu.Unlock()
		return
	}
	st.closed = true

	for sub := range st.subscribers {
		_ = sub.Close()
	}
	clear(st.subscribers)
	st.mu.Unlock()

	st.cleanupWg.Wait()
}

func (st *stream) unsubscribe(sub *Subscriber) {
	st.mu.Lock()
	defer st.mu.Unlock()

	delete(st.subscribers, sub)
	_ = sub.Close()
}
