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

// Package dataobject implements the per-destination webclient state
// machine: connecting/operative/idle/initial, a pipelined request FIFO,
// exponential retry backoff, and pipeline-capability detection. Grounded on
// original_source/jiutai/jf_webclient.h and spec §4.8; the hand-rolled HSM
// with entry/exit hooks from the C source is re-modeled per spec §9 as a
// plain Go state enum with small guard/action methods, rather than a
// generic table-driven dispatcher — the state space is small and fixed, and
// a table adds indirection without buying anything a switch doesn't.
package dataobject

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/ned0000/webchain/acsocket"
	"github.com/ned0000/webchain/duration"
	liberr "github.com/ned0000/webchain/errors"
	"github.com/ned0000/webchain/httpdata"
	"github.com/ned0000/webchain/httpmsg"
	loglib "github.com/ned0000/webchain/logger"
	"github.com/ned0000/webchain/utimer"
)

// State is the dataobject's connection lifecycle state.
type State int

const (
	Initial State = iota
	Connecting
	Operative
	Idle
)

func (s State) String() string {
	switch s {
	case Initial:
		return "initial"
	case Connecting:
		return "connecting"
	case Operative:
		return "operative"
	case Idle:
		return "idle"
	default:
		return "unknown"
	}
}

// PipelineFlag is this dataobject's belief about whether its peer supports
// keep-alive pipelining.
type PipelineFlag int

const (
	PipelineUnknown PipelineFlag = iota
	PipelineYes
	PipelineNo
)

// Event is the terminal notification delivered to a request's callback.
type Event int

const (
	EventIncomingData Event = iota
	EventRequestDeleted
)

// OnEvent is the per-request completion callback. header is valid only for
// the duration of the call.
type OnEvent func(event Event, header *httpmsg.Header, user interface{})

// Request is one queued SendData request (spec §3: the DeleteAll variant is
// handled directly by DeleteAll/Destroy rather than flowing through the
// FIFO, since it targets the whole destination, not one queued item).
type Request struct {
	Chunks  [][]byte
	OnEvent OnEvent
	User    interface{}
}

func (r *Request) totalLen() int {
	n := 0
	for _, c := range r.Chunks {
		n += len(c)
	}
	return n
}

func (r *Request) flatten() []byte {
	out := make([]byte, 0, r.totalLen())
	for _, c := range r.Chunks {
		out = append(out, c...)
	}
	return out
}

const (
	defaultIdleTimeout = duration.Millis(30_000)
	defaultFreeTimeout = duration.Millis(30_000)
	defaultRetryMax    = 3
)

// Params configures a DataObject at construction.
type Params struct {
	Destination string
	Port        int
	Key         string
	SlotID      uuid.UUID

	Sock  *acsocket.Pool
	Timer *utimer.Utimer

	BufferSize int
	MaxBodyCap int

	Log loglib.Logger

	IdleTimeout duration.Millis
	FreeTimeout duration.Millis
	RetryMax    int

	// StrictPipelineDetection resolves spec §9's Open Question: when true,
	// a disconnect callback that follows this dataobject's own
	// policy-driven Disconnect (the closeExpected bit, set in
	// decideNextAfterResponse) does not latch PipelineNo. Default false
	// matches the original's latching behavior.
	StrictPipelineDetection bool

	// OnDestroyed is called exactly once, when this dataobject tears
	// itself down, so the owning pool can drop its map entries.
	OnDestroyed func(key string, id uuid.UUID)
}

// DataObject drives one destination's connection and request FIFO. All
// methods run exclusively on the owning chain's single loop goroutine — the
// dataobject pool only ever calls into it from there — so no internal
// locking is required for the state machine itself. A mutex still guards
// the queue because Destroy/DeleteAll may race a concurrent enqueue only in
// the degenerate case of being called from a non-chain goroutine in tests;
// production callers only reach this type via the chain thread.
type DataObject struct {
	p Params

	mu    sync.Mutex
	queue []*Request

	state           State
	pipeline        PipelineFlag
	backoffExponent *atomic.Int32
	responsesOnConn int

	slot          int
	closeExpected bool
	destroyed     bool

	http *httpdata.DataObject
}

// New creates a DataObject in the Initial state and arms its free timer.
func New(p Params) *DataObject {
	if p.IdleTimeout <= 0 {
		p.IdleTimeout = defaultIdleTimeout
	}
	if p.FreeTimeout <= 0 {
		p.FreeTimeout = defaultFreeTimeout
	}
	if p.RetryMax <= 0 {
		p.RetryMax = defaultRetryMax
	}
	if p.Log == nil {
		p.Log = loglib.Nop()
	}

	d := &DataObject{
		p:               p,
		state:           Initial,
		pipeline:        PipelineUnknown,
		backoffExponent: atomic.NewInt32(0),
		http:            httpdata.New(p.BufferSize, p.MaxBodyCap),
	}
	d.armFreeTimer()
	return d
}

// State returns the current lifecycle state (for tests / observability).
func (d *DataObject) State() State { return d.state }

// Pipeline returns the current pipeline-detection belief.
func (d *DataObject) Pipeline() PipelineFlag { return d.pipeline }

// Enqueue appends req to the FIFO and drives the SendData event.
func (d *DataObject) Enqueue(req *Request) {
	d.mu.Lock()
	d.queue = append(d.queue, req)
	d.mu.Unlock()

	d.onSendDataEvent()
}

func (d *DataObject) queueLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

func (d *DataObject) peekFront() *Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return nil
	}
	return d.queue[0]
}

func (d *DataObject) popFront() *Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return nil
	}
	req := d.queue[0]
	d.queue = d.queue[1:]
	return req
}

func (d *DataObject) drainAll() []*Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.queue
	d.queue = nil
	return out
}

// onSendDataEvent implements the SendData row of spec §4.8's transition
// table.
func (d *DataObject) onSendDataEvent() {
	switch d.state {
	case Initial:
		d.cancelTimer()
		d.startConnect()
	case Idle:
		if d.queueLen() > 0 {
			d.cancelTimer()
			d.sendHeadOfQueue()
		}
	case Connecting, Operative:
		// already in flight; the newly queued request will be picked up
		// when the current head-of-queue completes.
	}
}

func (d *DataObject) startConnect() {
	d.state = Connecting
	slot, err := d.p.Sock.ConnectTo(d.p.Destination, d.p.Port, d.p.SlotID)
	if err != nil {
		d.p.Log.Warnf("dataobject %s: connect_to failed synchronously: %v", d.p.Key, err)
		d.handleConnectFailureOrDisconnect()
		return
	}
	d.slot = slot
}

// OnConnect handles the acsocket connect callback.
func (d *DataObject) OnConnect(slot int, err liberr.Error) {
	if d.destroyed || d.state != Connecting {
		return
	}
	if err != nil {
		d.handleConnectFailureOrDisconnect()
		return
	}
	d.slot = slot
	d.backoffExponent.Store(0)
	d.responsesOnConn = 0
	d.closeExpected = false
	d.sendHeadOfQueue()
}

func (d *DataObject) sendHeadOfQueue() {
	req := d.peekFront()
	if req == nil {
		d.enterIdle()
		return
	}
	if err := d.p.Sock.Send(d.slot, req.flatten()); err != nil {
		d.p.Log.Warnf("dataobject %s: send failed: %v", d.p.Key, err)
		d.p.Sock.Disconnect(d.slot)
		return
	}
	d.state = Operative
}

// OnSendData handles the acsocket send-completion callback.
func (d *DataObject) OnSendData(err liberr.Error) {
	if d.destroyed {
		return
	}
	if err != nil {
		d.p.Log.Warnf("dataobject %s: send_data error: %v", d.p.Key, err)
		d.p.Sock.Disconnect(d.slot)
	}
	// success: nothing to do; the response arrives via OnData.
}

// OnData feeds received bytes to the HTTP parser, delivering every full
// response (possibly more than one, for pipelined replies that arrive back
// to back in a single read) before returning.
func (d *DataObject) OnData(buf []byte, begin *int, end int) {
	if d.destroyed {
		*begin = end
		return
	}

	for *begin < end {
		if err := d.http.Process(buf, begin, end); err != nil {
			d.p.Log.Warnf("dataobject %s: parse error: %v", d.p.Key, err)
			d.failAllQueued()
			d.p.Sock.Disconnect(d.slot)
			*begin = end
			return
		}

		full, header := d.http.GetFullPacket()
		if !full {
			return
		}

		d.deliverResponse(header)
		d.http.Reinit()

		if d.state != Operative {
			return
		}
	}
}

func (d *DataObject) deliverResponse(header *httpmsg.Header) {
	req := d.popFront()
	if req != nil {
		d.responsesOnConn++
		if d.pipeline == PipelineUnknown && d.responsesOnConn >= 2 {
			d.pipeline = PipelineYes
		}
		if req.OnEvent != nil {
			req.OnEvent(EventIncomingData, header, req.User)
		}
	}
	d.decideNextAfterResponse()
}

func (d *DataObject) decideNextAfterResponse() {
	if d.queueLen() > 0 {
		if d.pipeline == PipelineNo {
			d.closeExpected = true
			d.p.Sock.Disconnect(d.slot)
			return
		}
		d.sendHeadOfQueue()
		return
	}
	d.enterIdle()
}

// OnDisconnect handles the acsocket disconnect callback.
func (d *DataObject) OnDisconnect() {
	if d.destroyed {
		return
	}

	wasIdle := d.state == Idle
	wasOperative := d.state == Operative
	d.cancelTimer()

	if wasOperative && d.pipeline == PipelineUnknown && d.responsesOnConn >= 1 {
		ignoreForRace := d.p.StrictPipelineDetection && d.closeExpected
		if !ignoreForRace {
			d.pipeline = PipelineNo
		}
	}
	d.closeExpected = false

	if wasIdle {
		d.enterInitial()
		return
	}

	if d.queueLen() > 0 {
		d.handleConnectFailureOrDisconnect()
		return
	}

	d.enterInitial()
}

// handleConnectFailureOrDisconnect implements the shared retry-backoff path
// (spec §4.8: "On connect failure or disconnect-with-pending-queue,
// re-arm a utimer at delay = 2^backoff_exponent seconds, capped").
func (d *DataObject) handleConnectFailureOrDisconnect() {
	d.state = Initial

	exp := d.backoffExponent.Load()
	if int(exp) >= d.p.RetryMax {
		d.giveUp()
		return
	}

	delaySec := int64(1) << uint(exp)
	d.backoffExponent.Inc()
	d.armRetryTimer(duration.FromSeconds(delaySec))
}

// giveUp is reached when the retry cap is exceeded: every queued request is
// failed and this dataobject tears itself down.
func (d *DataObject) giveUp() {
	if err := d.Destroy(); err != nil {
		d.p.Log.Errorf("dataobject %s: give-up teardown: %v", d.p.Key, err)
	}
}

// failAllQueued fires RequestDeleted on every queued request, combining any
// callback panic into a single multierr-joined error rather than letting it
// escape onto the chain goroutine.
func (d *DataObject) failAllQueued() error {
	var errs error
	for _, req := range d.drainAll() {
		req := req
		errs = multierr.Append(errs, safeDeliver(func() {
			if req.OnEvent != nil {
				req.OnEvent(EventRequestDeleted, nil, req.User)
			}
		}))
	}
	return errs
}

// safeDeliver runs fn, converting a panic into an error instead of letting
// it propagate onto the single chain goroutine and take the whole reactor
// down with it.
func safeDeliver(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("webclient callback panic: %v", r)
		}
	}()
	fn()
	return nil
}

func (d *DataObject) enterIdle() {
	d.state = Idle
	d.armIdleTimer()
}

func (d *DataObject) enterInitial() {
	d.state = Initial
	if d.queueLen() == 0 {
		d.armFreeTimer()
	}
}

func (d *DataObject) armIdleTimer() {
	d.p.Timer.Add(d, d.p.IdleTimeout, func(_ interface{}) { d.onIdleTimeout() }, nil)
}

func (d *DataObject) armFreeTimer() {
	d.p.Timer.Add(d, d.p.FreeTimeout, func(_ interface{}) { d.onFreeTimeout() }, nil)
}

func (d *DataObject) armRetryTimer(delay duration.Millis) {
	d.p.Timer.Add(d, delay, func(_ interface{}) { d.onRetryTimeout() }, nil)
}

func (d *DataObject) cancelTimer() {
	d.p.Timer.Remove(d)
}

func (d *DataObject) onIdleTimeout() {
	if d.destroyed || d.state != Idle {
		return
	}
	d.p.Sock.Disconnect(d.slot)
}

func (d *DataObject) onFreeTimeout() {
	if d.destroyed || d.state != Initial || d.queueLen() != 0 {
		return
	}
	d.Destroy()
}

func (d *DataObject) onRetryTimeout() {
	if d.destroyed || d.state != Initial {
		return
	}
	if d.queueLen() == 0 {
		d.Destroy()
		return
	}
	d.startConnect()
}

// DeleteAll cancels every queued request (spec §4.9/§5: "cancels every
// queued request for that destination, firing RequestDeleted exactly once
// per request"). The underlying connection, if any, is left alone: an
// in-flight response with no request left to deliver to is simply dropped
// once it completes.
func (d *DataObject) DeleteAll() error {
	return d.failAllQueued()
}

// Destroy tears this dataobject down: every still-queued request receives
// RequestDeleted, the connection (if any) is disconnected, all timers are
// cancelled, and OnDestroyed is invoked so the owning pool forgets this
// destination. Returns any callback panics collected while draining the
// queue, joined with multierr.
func (d *DataObject) Destroy() error {
	if d.destroyed {
		return nil
	}
	d.destroyed = true

	err := d.failAllQueued()
	d.cancelTimer()

	if d.state == Operative || d.state == Idle {
		d.p.Sock.Disconnect(d.slot)
	}

	if d.p.OnDestroyed != nil {
		d.p.OnDestroyed(d.p.Key, d.p.SlotID)
	}
	return err
}
