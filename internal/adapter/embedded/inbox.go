package embedded

import (
	"sync"

	"github.com/eapache/queue"

	"speedrun-api/internal/domain"
)

// inbox is the unbounded FIFO between the host's message callback and Recv.
// push never blocks; memory grows if the consumer falls behind.
type inbox struct {
	mu     sync.Mutex
	q      *queue.Queue
	notify chan struct{}
}

func newInbox() *inbox {
	return &inbox{q: queue.New(), notify: make(chan struct{}, 1)}
}

func (b *inbox) push(msg domain.Message) {
	b.mu.Lock()
	b.q.Add(msg)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

func (b *inbox) pop() (domain.Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.q.Length() == 0 {
		return domain.Message{}, false
	}
	return b.q.Remove().(domain.Message), true
}

func (b *inbox) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.q.Length()
}

// ready is signalled after a push; a signal may be stale.
func (b *inbox) ready() <-chan struct{} { return b.notify }
