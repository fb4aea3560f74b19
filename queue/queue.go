package queue

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	"Nia/media"

	"github.com/google/uuid"
)

var ErrOutOfRange = errors.New("queue index out of range")

type Entry struct {
	ID          uuid.UUID       // Identity of this submission
	Item        *media.Item     // Resolved item to play
	RequestedBy media.Requester // Copy of Item.RequestedBy
}

// NewEntry wraps a resolved item for queueing
func NewEntry(item *media.Item) *Entry {
	return &Entry{
		ID:          uuid.New(),
		Item:        item,
		RequestedBy: item.RequestedBy,
	}
}

// Queue is a FIFO of entries that a single consumer can block on
type Queue struct {
	entries []*Entry
	mu      sync.Mutex
	ready   chan struct{} // Holds at most one wake-up for a waiting dequeuer
}

func New() *Queue {
	return &Queue{
		entries: []*Entry{},
		ready:   make(chan struct{}, 1),
	}
}

// Enqueue appends an entry to the tail of the queue
func (q *Queue) Enqueue(e *Entry) {
	q.mu.Lock()
	q.entries = append(q.entries, e)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Dequeue removes and returns the head of the queue, waiting for an entry if the
// queue is empty. It returns ctx.Err() if ctx is done before an entry arrives.
func (q *Queue) Dequeue(ctx context.Context) (*Entry, error) {
	for {
		q.mu.Lock()
		if len(q.entries) > 0 {
			e := q.entries[0]
			q.entries[0] = nil
			q.entries = q.entries[1:]
			q.mu.Unlock()
			return e, nil
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// PeekRange returns a copy of the entries in [start, end), clamped to the queue bounds
func (q *Queue) PeekRange(start, end int) []*Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	start = max(start, 0)
	end = min(end, len(q.entries))
	if start >= end {
		return []*Entry{}
	}

	out := make([]*Entry, end-start)
	copy(out, q.entries[start:end])
	return out
}

// Page returns the entries of a 1-based page and the total number of pages
func (q *Queue) Page(page, perPage int) ([]*Entry, int) {
	if perPage <= 0 {
		perPage = 10
	}
	n := q.Len()
	pages := (n + perPage - 1) / perPage
	page = max(page, 1)

	start := (page - 1) * perPage
	return q.PeekRange(start, start+perPage), pages
}

// RemoveAt deletes the entry at a 0-based index
func (q *Queue) RemoveAt(index int) (*Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.entries) {
		return nil, ErrOutOfRange
	}

	e := q.entries[index]
	q.entries = append(q.entries[:index], q.entries[index+1:]...)
	return e, nil
}

// Shuffle randomly reorders the queued entries
func (q *Queue) Shuffle() {
	q.mu.Lock()
	defer q.mu.Unlock()

	rand.Shuffle(len(q.entries), func(i, j int) {
		q.entries[i], q.entries[j] = q.entries[j], q.entries[i]
	})
}

// Clear removes every queued entry
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = []*Entry{}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
