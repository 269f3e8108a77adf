package acsocket_test

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ned0000/webchain/acsocket"
	liberr "github.com/ned0000/webchain/errors"
)

func pollUntil(t *testing.T, p *acsocket.Pool, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		p.PostSelect()
		return cond()
	}, 2*time.Second, 2*time.Millisecond)
}

type recorder struct {
	mu           sync.Mutex
	connectSlot  int
	connectErr   liberr.Error
	connected    bool
	disconnected bool
	sendDone     bool
	sendErr      liberr.Error
	data         []byte
}

func (r *recorder) callbacks(consume func(buf []byte) int) acsocket.Callbacks {
	return acsocket.Callbacks{
		OnConnect: func(slot int, err liberr.Error, tag interface{}) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.connectSlot = slot
			r.connectErr = err
			r.connected = true
		},
		OnDisconnect: func(slot int, tag interface{}) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.disconnected = true
		},
		OnData: func(slot int, buf []byte, begin *int, end int, tag interface{}) {
			r.mu.Lock()
			r.data = append(r.data, buf[*begin:end]...)
			r.mu.Unlock()
			if consume != nil {
				*begin += consume(buf[*begin:end])
			} else {
				*begin = end
			}
		},
		OnSendData: func(slot int, err liberr.Error, n int, tag interface{}) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.sendDone = true
			r.sendErr = err
		},
	}
}

func startEchoServer(t *testing.T) (addr string, port int, closeFn func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		for {
			c, aerr := ln.Accept()
			if aerr != nil {
				return
			}
			go func(c net.Conn) {
				buf := make([]byte, 4096)
				for {
					n, rerr := c.Read(buf)
					if n > 0 {
						_, _ = c.Write(buf[:n])
					}
					if rerr != nil {
						return
					}
				}
			}(c)
		}
	}()

	tcpAddr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", tcpAddr.Port, func() { _ = ln.Close() }
}

func TestConnectToEstablishesConnectionAndFiresOnConnect(t *testing.T) {
	host, port, closeFn := startEchoServer(t)
	defer closeFn()

	var rec recorder
	p := acsocket.New(acsocket.Config{MaxConnections: 2}, rec.callbacks(nil), nil, nil)

	id, err := p.ConnectTo(host, port, "tag-a")
	require.Nil(t, err)
	require.GreaterOrEqual(t, id, 0)

	pollUntil(t, p, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return rec.connected
	})

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Nil(t, rec.connectErr)
	assert.Equal(t, id, rec.connectSlot)
}

func TestConnectToFailsOnPoolExhaustion(t *testing.T) {
	host, port, closeFn := startEchoServer(t)
	defer closeFn()

	var rec recorder
	p := acsocket.New(acsocket.Config{MaxConnections: 1}, rec.callbacks(nil), nil, nil)

	_, err := p.ConnectTo(host, port, "first")
	require.Nil(t, err)

	_, err2 := p.ConnectTo(host, port, "second")
	require.NotNil(t, err2)
	assert.True(t, liberr.Is(err2, liberr.SocketPoolEmpty))
}

func TestSendAndReceiveEchoesData(t *testing.T) {
	host, port, closeFn := startEchoServer(t)
	defer closeFn()

	var rec recorder
	p := acsocket.New(acsocket.Config{MaxConnections: 2}, rec.callbacks(nil), nil, nil)

	id, err := p.ConnectTo(host, port, "tag")
	require.Nil(t, err)
	pollUntil(t, p, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return rec.connected
	})

	sendErr := p.Send(id, []byte("hello"))
	require.Nil(t, sendErr)

	pollUntil(t, p, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return rec.sendDone
	})
	rec.mu.Lock()
	assert.Nil(t, rec.sendErr)
	rec.mu.Unlock()

	pollUntil(t, p, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.data) >= 5
	})
	rec.mu.Lock()
	assert.Equal(t, "hello", string(rec.data))
	rec.mu.Unlock()
}

func TestSendOnUnconnectedSlotReturnsConnectionNotSetup(t *testing.T) {
	var rec recorder
	p := acsocket.New(acsocket.Config{MaxConnections: 1}, rec.callbacks(nil), nil, nil)

	err := p.Send(0, []byte("x"))
	require.NotNil(t, err)
	assert.True(t, liberr.Is(err, liberr.ConnectionNotSetup))
}

func TestOnDataPartialConsumptionPreservesUnreadTail(t *testing.T) {
	host, port, closeFn := startEchoServer(t)
	defer closeFn()

	var rec recorder
	consumeOne := func(buf []byte) int {
		if len(buf) == 0 {
			return 0
		}
		return 1
	}
	p := acsocket.New(acsocket.Config{MaxConnections: 2}, rec.callbacks(consumeOne), nil, nil)

	id, err := p.ConnectTo(host, port, "tag")
	require.Nil(t, err)
	pollUntil(t, p, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return rec.connected
	})

	require.Nil(t, p.Send(id, []byte("abc")))

	pollUntil(t, p, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.data) >= 3
	})
	rec.mu.Lock()
	assert.Equal(t, "abc", string(rec.data))
	rec.mu.Unlock()
}

func TestDisconnectReturnsSlotToFreeAndFiresOnDisconnect(t *testing.T) {
	host, port, closeFn := startEchoServer(t)
	defer closeFn()

	var rec recorder
	p := acsocket.New(acsocket.Config{MaxConnections: 1}, rec.callbacks(nil), nil, nil)

	id, err := p.ConnectTo(host, port, "tag")
	require.Nil(t, err)
	pollUntil(t, p, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return rec.connected
	})

	p.Disconnect(id)
	pollUntil(t, p, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return rec.disconnected
	})

	id2, err2 := p.ConnectTo(host, port, "tag2")
	require.Nil(t, err2)
	assert.Equal(t, id, id2)
}
