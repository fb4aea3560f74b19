package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"Nia/media"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEntry(title string) *Entry {
	return NewEntry(&media.Item{
		Title:       title,
		RequestedBy: media.Requester{ID: "user-" + title, Name: title},
	})
}

func titles(entries []*Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Item.Title
	}
	return out
}

func TestNewEntry(t *testing.T) {
	e := newTestEntry("song1")

	assert.NotEqual(t, e.ID, newTestEntry("song1").ID)
	assert.Equal(t, "user-song1", e.RequestedBy.ID)
	assert.Equal(t, e.Item.RequestedBy, e.RequestedBy)
}

func TestQueue_FIFO(t *testing.T) {
	q := New()
	ctx := context.Background()

	for _, title := range []string{"A", "B", "C"} {
		q.Enqueue(newTestEntry(title))
	}
	assert.Equal(t, 3, q.Len())

	for _, expected := range []string{"A", "B", "C"} {
		e, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, expected, e.Item.Title)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueue_DequeueWaitsForEnqueue(t *testing.T) {
	q := New()
	got := make(chan *Entry, 1)

	go func() {
		e, err := q.Dequeue(context.Background())
		if err == nil {
			got <- e
		}
	}()

	select {
	case <-got:
		t.Fatal("dequeue returned before anything was queued")
	case <-time.After(50 * time.Millisecond):
	}

	q.Enqueue(newTestEntry("late"))

	select {
	case e := <-got:
		assert.Equal(t, "late", e.Item.Title)
	case <-time.After(time.Second):
		t.Fatal("dequeue was not woken by enqueue")
	}
}

func TestQueue_DequeueCancelled(t *testing.T) {
	q := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	e, err := q.Dequeue(ctx)

	assert.Nil(t, e)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueue_PeekRange(t *testing.T) {
	q := New()
	for _, title := range []string{"A", "B", "C", "D"} {
		q.Enqueue(newTestEntry(title))
	}

	assert.Equal(t, []string{"B", "C"}, titles(q.PeekRange(1, 3)))
	assert.Equal(t, []string{"C", "D"}, titles(q.PeekRange(2, 50)))
	assert.Equal(t, []string{"A"}, titles(q.PeekRange(-5, 1)))
	assert.Empty(t, q.PeekRange(4, 8))
	assert.Empty(t, q.PeekRange(3, 1))
	assert.Equal(t, 4, q.Len())
}

func TestQueue_Page(t *testing.T) {
	q := New()
	for i := 0; i < 25; i++ {
		q.Enqueue(newTestEntry(string(rune('a' + i))))
	}

	first, pages := q.Page(1, 10)
	assert.Equal(t, 3, pages)
	assert.Len(t, first, 10)
	assert.Equal(t, "a", first[0].Item.Title)

	last, _ := q.Page(3, 10)
	assert.Len(t, last, 5)
	assert.Equal(t, "u", last[0].Item.Title)

	beyond, _ := q.Page(4, 10)
	assert.Empty(t, beyond)

	empty, pages := New().Page(1, 10)
	assert.Empty(t, empty)
	assert.Equal(t, 0, pages)
}

func TestQueue_RemoveAt(t *testing.T) {
	q := New()
	for _, title := range []string{"A", "B", "C"} {
		q.Enqueue(newTestEntry(title))
	}

	removed, err := q.RemoveAt(1)

	require.NoError(t, err)
	assert.Equal(t, "B", removed.Item.Title)
	assert.Equal(t, []string{"A", "C"}, titles(q.PeekRange(0, q.Len())))
}

func TestQueue_RemoveAtOutOfRange(t *testing.T) {
	q := New()
	q.Enqueue(newTestEntry("A"))
	q.Enqueue(newTestEntry("B"))

	for _, index := range []int{-1, 2, 100} {
		removed, err := q.RemoveAt(index)
		assert.ErrorIs(t, err, ErrOutOfRange)
		assert.Nil(t, removed)
	}

	assert.Equal(t, []string{"A", "B"}, titles(q.PeekRange(0, q.Len())))
}

func TestQueue_Shuffle(t *testing.T) {
	q := New()
	q.Enqueue(newTestEntry("A"))
	q.Enqueue(newTestEntry("B"))

	q.Shuffle()

	assert.Equal(t, 2, q.Len())
	assert.ElementsMatch(t, []string{"A", "B"}, titles(q.PeekRange(0, q.Len())))
}

func TestQueue_ShuffleKeepsEveryEntry(t *testing.T) {
	q := New()
	var original []string
	for i := 0; i < 10; i++ {
		title := string(rune('a' + i))
		original = append(original, title)
		q.Enqueue(newTestEntry(title))
	}

	q.Shuffle()

	assert.ElementsMatch(t, original, titles(q.PeekRange(0, q.Len())))
}

func TestQueue_Clear(t *testing.T) {
	q := New()
	q.Enqueue(newTestEntry("A"))
	q.Enqueue(newTestEntry("B"))

	q.Clear()

	assert.Equal(t, 0, q.Len())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	q.Enqueue(newTestEntry("C"))
	e, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "C", e.Item.Title)
}

func TestQueue_ConcurrentEnqueue(t *testing.T) {
	q := New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Enqueue(newTestEntry("song"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, q.Len())
	assert.Len(t, q.PeekRange(0, 100), 50)
}
