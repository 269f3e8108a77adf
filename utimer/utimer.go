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

// Package utimer is the chain object wrapping package attask: it is the
// only mechanism the HTTP subsystem uses for deadlines (idle close, free
// timeout, retry backoff), translating attask callbacks into chain
// wakeups/timeouts as described in spec §4.6.
package utimer

import (
	"time"

	"github.com/ned0000/webchain/attask"
	"github.com/ned0000/webchain/duration"
)

// Utimer adapts an attask.Attask to the chain.Object interface.
type Utimer struct {
	at *attask.Attask
}

// New creates a Utimer.
func New() *Utimer {
	return &Utimer{at: attask.New()}
}

// Add schedules data to fire after delay milliseconds.
func (u *Utimer) Add(data interface{}, delay duration.Millis, fire attask.OnFire, destroy attask.OnDestroy) {
	u.at.Add(data, delay, fire, destroy)
}

// Remove cancels every pending item whose data pointer equals the argument.
func (u *Utimer) Remove(data interface{}) {
	u.at.Remove(data)
}

// Name implements chain.Object.
func (u *Utimer) Name() string { return "utimer" }

// PreSelect fires any due items and returns the block-time until the next
// pending deadline (spec §4.6: "sets *timeout = min(*timeout, t)" — the
// chain takes the min across all objects itself).
func (u *Utimer) PreSelect() time.Duration {
	t := u.at.Check()
	if t == duration.Infinite {
		return -1
	}
	return t.Time()
}

// PostSelect re-checks: any timer armed by a callback fired during this
// tick's PreSelect (or by another object's PostSelect that ran earlier in
// registration order) still needs a chance to fire without waiting for the
// next full tick's PreSelect.
func (u *Utimer) PostSelect() {
	u.at.Check()
}

// IsEmpty reports whether no timers are pending. Used by tests.
func (u *Utimer) IsEmpty() bool { return u.at.IsEmpty() }

// Flush cancels every pending timer without firing it.
func (u *Utimer) Flush() { u.at.Flush() }
