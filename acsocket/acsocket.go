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

// Package acsocket implements the bounded async client socket pool: a fixed
// number of outbound TCP connection slots, non-blocking connect/send/recv
// with callbacks, grounded on the connection-slot shape used by
// nabbar-golib/socket/client/tcp (tested via its client/tcp test suite in
// the retrieval pack, no longer shipped as source there).
//
// "Non-blocking" here means from the single chain thread's point of view:
// every socket operation that could block (Dial, Read, Write) runs on a
// dedicated per-slot goroutine, and results are only ever delivered to user
// callbacks from inside PostSelect, which runs exclusively on the chain
// loop goroutine (package chain). No callback ever executes concurrently
// with another, and no callback ever blocks the chain.
package acsocket

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	liberr "github.com/ned0000/webchain/errors"
	loglib "github.com/ned0000/webchain/logger"
	"golang.org/x/sync/semaphore"
)

// SlotState is a connection slot's lifecycle state.
type SlotState int

const (
	SlotFree SlotState = iota
	SlotConnecting
	SlotConnected
	SlotClosing
)

// Callbacks is the set of user hooks the pool invokes. All four are
// optional; a nil hook is simply skipped.
type Callbacks struct {
	OnConnect    func(slot int, err liberr.Error, tag interface{})
	OnDisconnect func(slot int, tag interface{})
	// OnData has the same begin/end contract as spec §4.3/§4.7: the
	// callback advances *begin past whatever it consumed; unread tail
	// bytes are preserved in the slot buffer across calls.
	OnData func(slot int, buf []byte, begin *int, end int, tag interface{})
	OnSendData func(slot int, err liberr.Error, n int, tag interface{})
}

// Config bounds the pool.
type Config struct {
	MaxConnections int           // hard slot count
	BufferSize     int           // default 2048, grows to this on demand
	ConnectTimeout time.Duration // default 10s
}

const defaultBufferSize = 2048
const defaultConnectTimeout = 10 * time.Second

type slot struct {
	id    int
	state SlotState
	conn  net.Conn
	tag   interface{}

	buf   []byte // accumulated unread bytes
	begin int
	end   int

	closing bool
}

type connectResult struct {
	slot int
	conn net.Conn
	err  error
}

type dataResult struct {
	slot  int
	chunk []byte
	err   error // io.EOF or other read error; nil chunk means disconnect
}

type sendResult struct {
	slot int
	n    int
	err  error
}

// Pool is the bounded acsocket. It implements chain.Object so it can be
// registered directly on a reactor chain.
type Pool struct {
	log loglib.Logger
	cb  Callbacks
	cfg Config

	sem *semaphore.Weighted

	mu    sync.Mutex
	slots []*slot
	free  []int

	connectCh chan connectResult
	dataCh    chan dataResult
	sendCh    chan sendResult
	wake      func()
}

// New creates a Pool with cfg.MaxConnections slots. wake is called whenever
// background I/O completes, so the owning chain.Chain can be woken up
// promptly instead of waiting for its next timeout; pass chain.Wakeup.
func New(cfg Config, cb Callbacks, log loglib.Logger, wake func()) *Pool {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 1
	}

	p := &Pool{
		log:       loglib.OrNop(log),
		cb:        cb,
		cfg:       cfg,
		sem:       semaphore.NewWeighted(int64(cfg.MaxConnections)),
		slots:     make([]*slot, cfg.MaxConnections),
		connectCh: make(chan connectResult, cfg.MaxConnections),
		dataCh:    make(chan dataResult, cfg.MaxConnections*4),
		sendCh:    make(chan sendResult, cfg.MaxConnections*4),
		wake:      wake,
	}
	for i := range p.slots {
		p.slots[i] = &slot{id: i, state: SlotFree}
		p.free = append(p.free, i)
	}
	return p
}

// Name implements chain.Object.
func (p *Pool) Name() string { return "acsocket" }

// PreSelect implements chain.Object. acsocket has no deadline of its own;
// readiness is pushed asynchronously via the wake callback.
func (p *Pool) PreSelect() time.Duration { return -1 }

// PostSelect implements chain.Object: drains every background result that
// has arrived since the last tick and invokes the corresponding callback.
func (p *Pool) PostSelect() {
	for {
		select {
		case r := <-p.connectCh:
			p.handleConnectResult(r)
		case r := <-p.dataCh:
			p.handleDataResult(r)
		case r := <-p.sendCh:
			p.handleSendResult(r)
		default:
			return
		}
	}
}

// ConnectTo allocates a free slot and begins a non-blocking connect to
// peer:port, stashing tag so the eventual OnConnect callback can route.
// Returns errors.SocketPoolEmpty if no slot is free.
func (p *Pool) ConnectTo(peer string, port int, tag interface{}) (int, liberr.Error) {
	p.mu.Lock()
	if len(p.free) == 0 {
		p.mu.Unlock()
		return -1, liberr.New(liberr.SocketPoolEmpty, nil, "acsocket pool exhausted (max=%d)", p.cfg.MaxConnections)
	}
	id := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	s := p.slots[id]
	s.state = SlotConnecting
	s.tag = tag
	s.closing = false
	p.mu.Unlock()

	if !p.sem.TryAcquire(1) {
		p.mu.Lock()
		s.state = SlotFree
		p.free = append(p.free, id)
		p.mu.Unlock()
		return -1, liberr.New(liberr.SocketPoolEmpty, nil, "acsocket connect concurrency exhausted")
	}

	addr := fmt.Sprintf("%s:%d", peer, port)
	go func() {
		defer p.sem.Release(1)
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.ConnectTimeout)
		defer cancel()
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		p.connectCh <- connectResult{slot: id, conn: conn, err: err}
		p.signalWake()
	}()

	return id, nil
}

// Send queues bytes to the slot's outbound connection. OnSendData fires
// once the kernel has accepted the full buffer (success or error).
func (p *Pool) Send(id int, data []byte) liberr.Error {
	p.mu.Lock()
	s := p.slots[id]
	if s.state != SlotConnected {
		p.mu.Unlock()
		return liberr.New(liberr.ConnectionNotSetup, nil, "slot %d not connected", id)
	}
	conn := s.conn
	p.mu.Unlock()

	go func() {
		n, err := writeFull(conn, data)
		p.sendCh <- sendResult{slot: id, n: n, err: err}
		p.signalWake()
	}()
	return nil
}

func writeFull(conn net.Conn, data []byte) (int, error) {
	total := 0
	for total < len(data) {
		n, err := conn.Write(data[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Disconnect closes the slot's connection and returns it to the free list.
func (p *Pool) Disconnect(id int) {
	p.mu.Lock()
	s := p.slots[id]
	if s.state == SlotFree {
		p.mu.Unlock()
		return
	}
	s.closing = true
	conn := s.conn
	p.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}

	p.mu.Lock()
	tag := s.tag
	wasConnecting := s.state == SlotConnecting
	s.state = SlotFree
	s.conn = nil
	s.buf = nil
	s.begin, s.end = 0, 0
	p.free = append(p.free, id)
	p.mu.Unlock()

	if !wasConnecting && p.cb.OnDisconnect != nil {
		p.cb.OnDisconnect(id, tag)
	}
}

func (p *Pool) signalWake() {
	if p.wake != nil {
		p.wake()
	}
}

func (p *Pool) handleConnectResult(r connectResult) {
	p.mu.Lock()
	s := p.slots[r.slot]
	tag := s.tag
	if r.err == nil {
		s.state = SlotConnected
		s.conn = r.conn
		size := defaultBufferSize
		if size > p.cfg.BufferSize {
			size = p.cfg.BufferSize
		}
		s.buf = make([]byte, size)
		go p.readLoop(s.id, r.conn)
	} else {
		s.state = SlotFree
		p.free = append(p.free, r.slot)
	}
	p.mu.Unlock()

	if p.cb.OnConnect != nil {
		var ce liberr.Error
		if r.err != nil {
			ce = liberr.New(liberr.FailConnect, r.err, "connect slot %d", r.slot)
		}
		p.cb.OnConnect(r.slot, ce, tag)
	}
}

// readLoop runs on its own goroutine for the lifetime of a connected slot,
// performing blocking reads and forwarding each chunk through dataCh. It
// never touches user callbacks directly.
func (p *Pool) readLoop(id int, conn net.Conn) {
	buf := make([]byte, p.cfg.BufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			p.dataCh <- dataResult{slot: id, chunk: chunk}
			p.signalWake()
		}
		if err != nil {
			p.dataCh <- dataResult{slot: id, err: err}
			p.signalWake()
			return
		}
	}
}

func (p *Pool) handleDataResult(r dataResult) {
	p.mu.Lock()
	s := p.slots[r.slot]
	if s.state != SlotConnected && s.state != SlotClosing {
		p.mu.Unlock()
		return
	}
	tag := s.tag
	p.mu.Unlock()

	if r.err != nil {
		p.Disconnect(r.slot)
		return
	}

	p.mu.Lock()
	s.appendAndCompact(r.chunk, p.cfg.BufferSize)
	buf := s.buf
	end := s.end
	p.mu.Unlock()

	if p.cb.OnData != nil {
		begin := 0
		p.cb.OnData(r.slot, buf[:end], &begin, end, tag)

		p.mu.Lock()
		if begin > 0 {
			s.consume(begin)
		}
		p.mu.Unlock()
	}
}

func (p *Pool) handleSendResult(r sendResult) {
	p.mu.Lock()
	s := p.slots[r.slot]
	tag := s.tag
	p.mu.Unlock()

	if p.cb.OnSendData != nil {
		var se liberr.Error
		if r.err != nil {
			se = liberr.New(liberr.FailSend, r.err, "send on slot %d", r.slot)
		}
		p.cb.OnSendData(r.slot, se, r.n, tag)
	}
}

// appendAndCompact appends chunk to the slot's unread tail, growing the
// buffer up to maxSize on demand (spec §4.7: "slot buffer defaults to 2048
// bytes and grows to buffer_size on demand"). When the unread tail plus the
// new chunk do not fit in maxSize bytes, the buffer grows to exactly the
// size needed instead of dropping data.
func (s *slot) appendAndCompact(chunk []byte, maxSize int) {
	if s.begin > 0 {
		copy(s.buf, s.buf[s.begin:s.end])
		s.end -= s.begin
		s.begin = 0
	}
	needed := s.end + len(chunk)
	if needed > len(s.buf) {
		grown := len(s.buf) * 2
		if grown < needed {
			grown = needed
		}
		if grown > maxSize && len(s.buf) < maxSize {
			grown = maxSize
		}
		if grown < needed {
			grown = needed
		}
		nb := make([]byte, grown)
		copy(nb, s.buf[:s.end])
		s.buf = nb
	}
	copy(s.buf[s.end:], chunk)
	s.end += len(chunk)
}

// consume drops the first n bytes the callback reported as processed.
func (s *slot) consume(n int) {
	if n >= s.end {
		s.begin, s.end = 0, 0
		return
	}
	s.begin = n
}
