package live

import (
	"context"
	"sync"
)

// Snapshot is one emission of a live query.
type Snapshot[T any] struct {
	Items []T
	Err   error
}

// Query re-runs fetch whenever one of its topics is published.
type Query[T any] struct {
	broker *Broker
	topics []Topic
	fetch  func(ctx context.Context) ([]T, error)
}

// NewQuery binds a fetch function to the topics that invalidate its result.
func NewQuery[T any](broker *Broker, fetch func(ctx context.Context) ([]T, error), topics ...Topic) *Query[T] {
	return &Query[T]{broker: broker, topics: topics, fetch: fetch}
}

// Get performs a one-shot read.
func (q *Query[T]) Get(ctx context.Context) ([]T, error) {
	return q.fetch(ctx)
}

// Subscription delivers snapshots until closed.
type Subscription[T any] struct {
	updates chan Snapshot[T]
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// Updates streams snapshots; the channel closes once the subscription stops.
func (s *Subscription[T]) Updates() <-chan Snapshot[T] {
	return s.updates
}

// Close stops delivery and releases the broker registration. It blocks until the
// delivery goroutine has exited and is safe to call more than once.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Subscribe emits the current result immediately and again after every relevant write.
// Delivery stops when ctx is cancelled or Close is called.
func (q *Query[T]) Subscribe(ctx context.Context) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	signal, release := q.broker.Watch(q.topics...)

	sub := &Subscription[T]{
		updates: make(chan Snapshot[T]),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		defer close(sub.updates)
		defer release()

		for {
			items, err := q.fetch(ctx)
			if ctx.Err() != nil {
				return
			}
			select {
			case sub.updates <- Snapshot[T]{Items: items, Err: err}:
			case <-ctx.Done():
				return
			}

			select {
			case <-signal:
			case <-ctx.Done():
				return
			}
		}
	}()

	return sub
}
