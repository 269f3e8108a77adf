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

// Package sockpair provides domain-agnostic connected socket pairs, used by
// the reactor chain (package chain) as its wakeup self-pipe and by tests
// that need two directly wired endpoints. Grounded on nabbar-golib's
// socket/config low-level connection helpers, generalized to spec §4.12's
// domain-agnostic createSocketPair.
package sockpair

import (
	"net"

	liberr "github.com/ned0000/webchain/errors"
)

// Domain selects the socket pair's address family.
type Domain int

const (
	// Unix creates an in-process, unnamed pair (net.Pipe semantics: no
	// real file descriptor, but full duplex and read/write compatible).
	Unix Domain = iota
	// INet creates a real loopback TCP pair: listen on an ephemeral port,
	// dial it, accept, then drop the listener. Either half may be read
	// or written by the other end, exactly like two ends of a pipe.
	INet
)

// Create returns two connected net.Conn endpoints. For Unix it is a direct
// in-memory pipe; for INet it is a real loopback TCP connection, following
// spec §4.12 exactly: "bind a loopback listener on an ephemeral port,
// create a ... socket, connect to that port, accept, close the listener".
func Create(domain Domain) (a, b net.Conn, err liberr.Error) {
	switch domain {
	case Unix:
		p1, p2 := net.Pipe()
		return p1, p2, nil
	case INet:
		return createInetPair()
	default:
		return nil, nil, liberr.New(errInvalidDomain(), nil, "unknown socket pair domain %d", domain)
	}
}

func errInvalidDomain() liberr.Code { return liberr.InvalidParam }

func createInetPair() (net.Conn, net.Conn, liberr.Error) {
	ln, lerr := net.Listen("tcp", "127.0.0.1:0")
	if lerr != nil {
		return nil, nil, liberr.New(liberr.FailCreateSocket, lerr, "listen on loopback")
	}
	defer ln.Close()

	acceptCh := make(chan net.Conn, 1)
	errCh := make(chan error, 1)
	go func() {
		c, aerr := ln.Accept()
		if aerr != nil {
			errCh <- aerr
			return
		}
		acceptCh <- c
	}()

	client, derr := net.Dial("tcp", ln.Addr().String())
	if derr != nil {
		return nil, nil, liberr.New(liberr.FailConnect, derr, "dial loopback listener")
	}

	select {
	case c := <-acceptCh:
		return client, c, nil
	case aerr := <-errCh:
		client.Close()
		return nil, nil, liberr.New(liberr.FailCreateSocket, aerr, "accept loopback connection")
	}
}
