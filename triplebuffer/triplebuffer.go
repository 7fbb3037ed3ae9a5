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

// Package triplebuffer hands the most recent value from one producer
// goroutine to one consumer goroutine without either side waiting on the
// other. The producer fills the back slot, the consumer reads the front
// slot and a spare slot carries the latest published generation between
// them. Generations the consumer never picked up are overwritten.
package triplebuffer

import "sync"

// Buffer is the unlocked flavour. Callers must serialise access, usually
// with a lock they already hold for other reasons.
type Buffer[T any] struct {
	front   *T
	back    *T
	spare   *T
	pending bool
}

// New returns a Buffer over three distinct slots.
func New[T any](front, back, spare *T) *Buffer[T] {
	if front == nil || back == nil || spare == nil {
		panic("triplebuffer: nil slot")
	}
	if front == back || back == spare || front == spare {
		panic("triplebuffer: slots must be distinct")
	}
	return &Buffer[T]{front: front, back: back, spare: spare}
}

// Front returns the slot the consumer currently owns.
func (b *Buffer[T]) Front() *T { return b.front }

// Back returns the slot the producer currently owns.
func (b *Buffer[T]) Back() *T { return b.back }

// Pending reports whether a published generation is waiting for the
// consumer.
func (b *Buffer[T]) Pending() bool { return b.pending }

// SwapBack publishes the back slot and returns the new back slot.
func (b *Buffer[T]) SwapBack() *T {
	b.back, b.spare = b.spare, b.back
	b.pending = true
	return b.back
}

// SwapFront takes the latest published generation if there is one and
// returns the front slot. With nothing published the front is unchanged.
func (b *Buffer[T]) SwapFront() *T {
	if b.pending {
		b.front, b.spare = b.spare, b.front
		b.pending = false
	}
	return b.front
}

// Locked is a Buffer guarded by its own mutex so producer and consumer
// may call it from different goroutines.
type Locked[T any] struct {
	mu  sync.Mutex
	buf *Buffer[T]
}

func NewLocked[T any](front, back, spare *T) *Locked[T] {
	return &Locked[T]{buf: New(front, back, spare)}
}

func (l *Locked[T]) Front() *T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Front()
}

func (l *Locked[T]) Back() *T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Back()
}

func (l *Locked[T]) Pending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Pending()
}

func (l *Locked[T]) SwapBack() *T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.SwapBack()
}

func (l *Locked[T]) SwapFront() *T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.SwapFront()
}
