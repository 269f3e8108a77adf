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

// Package chain implements the single-threaded reactor: an ordered list of
// pluggable chain objects, each exposing PreSelect/PostSelect hooks, driven
// by one loop goroutine. Grounded on the chain-object shape used throughout
// nabbar-golib/socket's client/server packages (pre-select sizing a
// deadline, post-select reacting to readiness), generalized from their
// net.Listener-centric model to a general-purpose, multi-object select loop.
//
// Real non-blocking socket multiplexing (acsocket) is implemented with
// per-connection goroutines that funnel results through channels; the
// single-threaded contract is preserved because those goroutines only ever
// produce data; every callback into user code happens from inside
// PostSelect, which only ever runs on the loop goroutine started by Run.
// The wakeup mechanism is nonetheless a literal self-pipe (package
// sockpair), matching spec §4.12/§4.6 exactly: Wakeup writes one byte, and
// a forwarding goroutine turns that byte into the loop's internal signal.
package chain

import (
	"context"
	"net"
	"sync"
	"time"

	liberr "github.com/ned0000/webchain/errors"
	loglib "github.com/ned0000/webchain/logger"
	"github.com/ned0000/webchain/sockpair"
)

// noTimeout is used by chain objects that have no deadline to contribute.
const noTimeout = -1 * time.Millisecond

// Object is anything registered in the chain.
type Object interface {
	// Name identifies the object in logs.
	Name() string
	// PreSelect returns the maximum time this tick's wait may block before
	// this object needs attention again, or a negative duration for "no
	// opinion" (infinite).
	PreSelect() time.Duration
	// PostSelect is called once per tick, after the wait completes, so the
	// object can react to whatever became ready.
	PostSelect()
}

// Chain is the event loop. Objects are served in registration order for
// both hooks, matching spec §4.6.
type Chain struct {
	log loglib.Logger

	mu      sync.Mutex
	objects []Object

	wakeR, wakeW net.Conn
	wake         chan struct{}

	stop    chan struct{}
	stopped chan struct{}
}

// New creates a Chain and its self-pipe. The self-pipe is a real loopback
// TCP pair (package sockpair), not an in-memory shortcut, so Wakeup
// genuinely exercises socket I/O the way spec §4.6 describes.
func New(log loglib.Logger) (*Chain, liberr.Error) {
	r, w, err := sockpair.Create(sockpair.INet)
	if err != nil {
		return nil, err
	}

	c := &Chain{
		log:     loglib.OrNop(log),
		wakeR:   r,
		wakeW:   w,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	go c.pumpWakeups()

	return c, nil
}

// pumpWakeups turns bytes arriving on the self-pipe's read end into signals
// on the internal wake channel. It never calls user code.
func (c *Chain) pumpWakeups() {
	buf := make([]byte, 64)
	for {
		n, err := c.wakeR.Read(buf)
		if n > 0 {
			select {
			case c.wake <- struct{}{}:
			default:
			}
		}
		if err != nil {
			return
		}
	}
}

// AddObject registers a chain object. Safe to call before Run; calling it
// concurrently with Run is safe but the new object only participates
// starting the next tick.
func (c *Chain) AddObject(o Object) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects = append(c.objects, o)
}

// RemoveObject unregisters a chain object by identity.
func (c *Chain) RemoveObject(o Object) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.objects {
		if existing == o {
			c.objects = append(c.objects[:i], c.objects[i+1:]...)
			return
		}
	}
}

// Wakeup writes one byte to the self-pipe, unblocking a Run loop that is
// currently waiting. Safe to call from any goroutine — this is the only
// chain operation the facade's arbitrary-thread callers use directly.
func (c *Chain) Wakeup() {
	_, _ = c.wakeW.Write([]byte{1})
}

// Run drives the loop until ctx is cancelled or Stop is called.
func (c *Chain) Run(ctx context.Context) error {
	defer close(c.stopped)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.stop:
			return nil
		default:
		}

		timeout := c.preSelect()

		select {
		case <-ctx.Done():
			return nil
		case <-c.stop:
			return nil
		case <-c.wake:
		case <-timerChan(timeout):
		}

		c.postSelect()
	}
}

func timerChan(d time.Duration) <-chan time.Time {
	if d < 0 {
		d = 24 * time.Hour
	}
	return time.After(d)
}

func (c *Chain) preSelect() time.Duration {
	c.mu.Lock()
	objs := append([]Object(nil), c.objects...)
	c.mu.Unlock()

	timeout := noTimeout
	for _, o := range objs {
		t := o.PreSelect()
		if t >= 0 && (timeout < 0 || t < timeout) {
			timeout = t
		}
	}
	return timeout
}

func (c *Chain) postSelect() {
	c.mu.Lock()
	objs := append([]Object(nil), c.objects...)
	c.mu.Unlock()

	for _, o := range objs {
		o.PostSelect()
	}
}

// Stop requests the loop to exit after its current tick and closes the
// self-pipe. Idempotent.
func (c *Chain) Stop() {
	select {
	case <-c.stop:
		return
	default:
		close(c.stop)
	}
	<-c.stopped
	_ = c.wakeR.Close()
	_ = c.wakeW.Close()
}
