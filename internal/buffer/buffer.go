package buffer

import (
	"errors"
	"sync"
	"time"
)

type Item struct {
	Batch      Batch
	EnqueuedAt time.Time
}

// Queue stages collected batches between rollout collection and training.
// PPO is on-policy, so the default "freshness" policy hands out the newest
// batch first; "fifo" preserves arrival order for replay-style consumers.
type Queue struct {
	mu       sync.Mutex
	items    []Item
	capacity int
	policy   string // "fifo" or "freshness"
}

var (
	ErrQueueFull  = errors.New("queue is full")
	ErrQueueEmpty = errors.New("queue is empty")
)

func NewQueue(capacity int, policy string) (*Queue, error) {
	if capacity <= 0 {
		return nil, errors.New("capacity must be greater than zero")
	}
	if policy != "fifo" && policy != "freshness" {
		return nil, errors.New("policy must be 'fifo' or 'freshness'")
	}
	return &Queue{
		items:    make([]Item, 0, capacity),
		capacity: capacity,
		policy:   policy,
	}, nil
}

func (q *Queue) Enqueue(item Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.capacity {
		return ErrQueueFull
	}
	q.items = append(q.items, item)
	return nil
}

func (q *Queue) Dequeue() (Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Item{}, ErrQueueEmpty
	}

	switch q.policy {
	case "fifo":
		item := q.items[0]
		q.items = q.items[1:]
		return item, nil
	case "freshness":
		item := q.items[len(q.items)-1]
		q.items = q.items[:len(q.items)-1]
		return item, nil
	default:
		return Item{}, errors.New("unknown policy")
	}
}

func (q *Queue) Capacity() int {
	return q.capacity
}

func (q *Queue) Policy() string {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.policy
}

func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}
