// Package eventq provides a min-heap of timed callbacks.
//
// Both the transport (keyed by logical seconds) and the offline audio context
// (keyed by context seconds) keep their pending callbacks in a Queue. Items
// with equal times pop in insertion order.
package eventq

import "container/heap"

// Item is a pending callback.
type Item struct {
	// ID identifies the item for removal.
	ID uint64
	// At is the time the item is due.
	At float64
	// Fn is invoked when the item fires. The argument is the time the
	// owner fired it at, which may be on a different clock than At.
	Fn func(float64)

	seq uint64
}

// itemHeap implements container/heap.Interface for Item,
// sorted by At (earliest first), then by insertion order.
type itemHeap []*Item

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].At == h[j].At {
		return h[i].seq < h[j].seq
	}
	return h[i].At < h[j].At
}
func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x any) {
	*h = append(*h, x.(*Item))
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

// Queue is a min-heap of Items. The zero value is ready to use.
// A Queue is not safe for concurrent use.
type Queue struct {
	h   itemHeap
	seq uint64
}

// Len returns the number of pending items.
func (q *Queue) Len() int { return q.h.Len() }

// Push adds an item, maintaining the heap invariant.
func (q *Queue) Push(it *Item) {
	q.seq++
	it.seq = q.seq
	heap.Push(&q.h, it)
}

// Peek returns the earliest item without removing it.
func (q *Queue) Peek() (*Item, bool) {
	if q.h.Len() == 0 {
		return nil, false
	}
	return q.h[0], true
}

// Pop removes and returns the earliest item.
// Panics if the queue is empty.
func (q *Queue) Pop() *Item {
	return heap.Pop(&q.h).(*Item)
}

// Remove removes the item with the given ID.
// Returns true if the item was found and removed.
func (q *Queue) Remove(id uint64) bool {
	for i, it := range q.h {
		if it.ID == id {
			heap.Remove(&q.h, i)
			return true
		}
	}
	return false
}

// Reset drops every pending item.
func (q *Queue) Reset() {
	for i := range q.h {
		q.h[i] = nil
	}
	q.h = q.h[:0]
}
