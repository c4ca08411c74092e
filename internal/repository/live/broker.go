// Package live turns one-shot store reads into subscribable queries that re-emit
// whenever a write touches one of their topics.
package live

import "sync"

// Topic names a family of stored entities.
type Topic string

const (
	TopicSpecies    Topic = "species"
	TopicBreeds     Topic = "breeds"
	TopicIncubators Topic = "incubators"
	TopicTrays      Topic = "trays"
	TopicBatches    Topic = "batches"
	TopicEvents     Topic = "events"
	TopicReadings   Topic = "readings"
)

// Broker fans write notifications out to watchers. Wakeups coalesce: a watcher that
// has not drained its previous signal only sees one pending signal.
type Broker struct {
	mu       sync.Mutex
	next     int
	watchers map[int]*watcher
}

type watcher struct {
	topics map[Topic]struct{}
	signal chan struct{}
}

// NewBroker constructs an empty broker.
func NewBroker() *Broker {
	return &Broker{watchers: make(map[int]*watcher)}
}

// Watch registers interest in the given topics. The returned cancel func must be
// called to release the registration.
func (b *Broker) Watch(topics ...Topic) (<-chan struct{}, func()) {
	w := &watcher{
		topics: make(map[Topic]struct{}, len(topics)),
		signal: make(chan struct{}, 1),
	}
	for _, t := range topics {
		w.topics[t] = struct{}{}
	}

	b.mu.Lock()
	id := b.next
	b.next++
	b.watchers[id] = w
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.watchers, id)
			b.mu.Unlock()
		})
	}
	return w.signal, cancel
}

// Publish wakes every watcher interested in at least one of the topics. It never blocks.
func (b *Broker) Publish(topics ...Topic) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range b.watchers {
		if !w.interested(topics) {
			continue
		}
		select {
		case w.signal <- struct{}{}:
		default:
		}
	}
}

// Watchers reports the number of live registrations.
func (b *Broker) Watchers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.watchers)
}

func (w *watcher) interested(topics []Topic) bool {
	for _, t := range topics {
		if _, ok := w.topics[t]; ok {
			return true
		}
	}
	return false
}
