/*
 * MIT License
 *
 * Copyright (c) 2026 ned0000
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package prioqueue implements the dispatcher's bounded three-priority FIFO,
// grounded on original_source/dispatcher/common/prioqueue.c: priority is
// not reordered on enqueue, only used to decide which message gets
// displaced when the queue is full.
package prioqueue

import (
	"container/list"
	"sync"

	liberr "github.com/ned0000/webchain/errors"
	"go.uber.org/atomic"
)

// Priority is a message's admission class.
type Priority int

const (
	Low Priority = iota
	Mid
	High
)

// Message is anything a caller wants to enqueue, tagged with its Priority.
type Message interface {
	Priority() Priority
}

// Queue is a bounded, mutex-serialized 3-priority FIFO. All operations are
// safe for concurrent use.
type Queue struct {
	mu  sync.Mutex
	l   *list.List
	max int

	high *atomic.Uint32
	mid  *atomic.Uint32
	low  *atomic.Uint32
}

// New creates a Queue that holds at most maxMsgs messages.
func New(maxMsgs int) *Queue {
	return &Queue{
		l:    list.New(),
		max:  maxMsgs,
		high: atomic.NewUint32(0),
		mid:  atomic.NewUint32(0),
		low:  atomic.NewUint32(0),
	}
}

func (q *Queue) counter(p Priority) *atomic.Uint32 {
	switch p {
	case High:
		return q.high
	case Mid:
		return q.mid
	default:
		return q.low
	}
}

// Len returns the total number of queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.l.Len()
}

// Counts returns the current per-priority counts (for testing invariant 4
// in spec §8: high+mid+low == len(fifo)).
func (q *Queue) Counts() (high, mid, low uint32) {
	return q.high.Load(), q.mid.Load(), q.low.Load()
}

// Enqueue admits msg under the displacement policy from spec §4.4: if the
// queue has room, it is simply appended. Otherwise a High message always
// displaces the oldest queued message; a Mid message displaces only if no
// High message is queued; a Low message displaces only if neither High nor
// Mid is queued. If displacement is not allowed, QueueFull is returned.
func (q *Queue) Enqueue(msg Message) liberr.Error {
	q.mu.Lock()
	defer q.mu.Unlock()

	p := msg.Priority()
	if q.l.Len() >= q.max {
		if !q.displace(p) {
			return liberr.New(liberr.QueueFull, nil, "priority queue full (max=%d)", q.max)
		}
	}

	q.l.PushBack(msg)
	q.counter(p).Inc()
	return nil
}

// displace evicts the oldest message if policy allows it for priority p.
// Caller must hold q.mu.
func (q *Queue) displace(p Priority) bool {
	allowed := false
	switch p {
	case High:
		allowed = true
	case Mid:
		allowed = q.high.Load() == 0
	case Low:
		allowed = q.high.Load() == 0 && q.mid.Load() == 0
	}
	if !allowed {
		return false
	}

	front := q.l.Front()
	if front == nil {
		return true
	}
	q.l.Remove(front)
	q.counter(front.Value.(Message).Priority()).Dec()
	return true
}

// Dequeue removes and returns the oldest message, or nil if empty.
func (q *Queue) Dequeue() Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	front := q.l.Front()
	if front == nil {
		return nil
	}
	q.l.Remove(front)
	msg := front.Value.(Message)
	q.counter(msg.Priority()).Dec()
	return msg
}

// Peek returns the oldest message without removing it, or nil if empty.
func (q *Queue) Peek() Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	front := q.l.Front()
	if front == nil {
		return nil
	}
	return front.Value.(Message)
}

// IsEmpty reports whether the queue holds no messages.
func (q *Queue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.l.Len() == 0
}
