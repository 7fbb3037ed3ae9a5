// still-recorder - capture bursts of still images and store them as image stacks
//  Copyright (C) 2018, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package workqueue provides an unbounded FIFO handing items from any
// number of producers to a single consuming goroutine.
package workqueue

import "sync"

// Queue is a thread safe FIFO. Produce never blocks. Consume may block
// until an item is available.
type Queue[T any] struct {
	mu    sync.Mutex
	ready *sync.Cond
	items []T
}

func New[T any]() *Queue[T] {
	q := new(Queue[T])
	q.ready = sync.NewCond(&q.mu)
	return q
}

// Produce appends item to the tail of the queue and wakes one waiting
// consumer.
func (q *Queue[T]) Produce(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.ready.Signal()
}

// Consume removes the head of the queue. When blocking is false and the
// queue is empty it returns false immediately, otherwise it waits for a
// producer.
func (q *Queue[T]) Consume(blocking bool) (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		if !blocking {
			var zero T
			return zero, false
		}
		q.ready.Wait()
	}

	item := q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	return item, true
}

// ConsumeAll appends every queued item to sink in FIFO order, empties the
// queue and returns the extended sink. Items produced concurrently land
// either entirely in this batch or in a later one.
func (q *Queue[T]) ConsumeAll(sink []T) []T {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()
	return append(sink, items...)
}

// Len reports the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
