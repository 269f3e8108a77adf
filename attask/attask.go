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

// Package attask implements the after-task scheduler: a singly linked list
// of one-shot, millisecond-deadline callbacks kept sorted by deadline,
// grounded on original_source/jiutai/attask.c. Not safe for concurrent use;
// callers (utimer) serialize access to it on the chain thread.
package attask

import (
	"github.com/ned0000/webchain/duration"
)

// OnFire is called when an item's deadline has passed.
type OnFire func(data interface{})

// OnDestroy is called after OnFire (or on Remove) to let the caller release
// any resources attached to data.
type OnDestroy func(data interface{})

type item struct {
	deadline duration.Millis
	data     interface{}
	fire     OnFire
	destroy  OnDestroy
	next     *item
}

// Attask is the deadline-sorted list of pending items.
type Attask struct {
	head *item
}

// New creates an empty Attask.
func New() *Attask { return &Attask{} }

// Add schedules data to fire after delay milliseconds. Insertion keeps the
// list sorted ascending by deadline; among equal deadlines, later calls to
// Add land after earlier ones (stable FIFO for same-deadline items).
func (a *Attask) Add(data interface{}, delay duration.Millis, fire OnFire, destroy OnDestroy) {
	it := &item{
		deadline: duration.NowMillis().Add(delay),
		data:     data,
		fire:     fire,
		destroy:  destroy,
	}

	if a.head == nil || it.deadline < a.head.deadline {
		it.next = a.head
		a.head = it
		return
	}

	cur := a.head
	for cur.next != nil && cur.next.deadline <= it.deadline {
		cur = cur.next
	}
	it.next = cur.next
	cur.next = it
}

// Check fires every item whose deadline has passed (in deadline order,
// calling fire then destroy for each) and returns the block-time until the
// next pending deadline, or duration.Infinite if nothing remains.
func (a *Attask) Check() duration.Millis {
	now := duration.NowMillis()

	for a.head != nil && a.head.deadline <= now {
		it := a.head
		a.head = it.next
		it.next = nil
		it.fire(it.data)
		if it.destroy != nil {
			it.destroy(it.data)
		}
	}

	if a.head == nil {
		return duration.Infinite
	}
	return a.head.deadline.Sub(now)
}

// Remove removes every item whose data pointer equals the given value
// (compared with ==), calling OnDestroy for each. A single logical timer
// owner (e.g. one webclient dataobject) only ever holds one item at a time,
// but the scheduler itself supports removing all matches, mirroring
// attask.c's _flushAttask-adjacent removal semantics.
func (a *Attask) Remove(data interface{}) {
	var prev *item
	cur := a.head
	for cur != nil {
		next := cur.next
		if cur.data == data {
			if prev == nil {
				a.head = next
			} else {
				prev.next = next
			}
			if cur.destroy != nil {
				cur.destroy(cur.data)
			}
		} else {
			prev = cur
		}
		cur = next
	}
}

// Flush removes and destroys every pending item without firing it. Used on
// teardown.
func (a *Attask) Flush() {
	cur := a.head
	a.head = nil
	for cur != nil {
		next := cur.next
		if cur.destroy != nil {
			cur.destroy(cur.data)
		}
		cur = next
	}
}

// IsEmpty reports whether no items are pending.
func (a *Attask) IsEmpty() bool { return a.head == nil }
