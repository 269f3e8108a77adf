package sockpair_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	liberr "github.com/ned0000/webchain/errors"
	"github.com/ned0000/webchain/sockpair"
)

func TestCreateUnixPairIsFullDuplex(t *testing.T) {
	a, b, err := sockpair.Create(sockpair.Unix)
	require.Nil(t, err)
	defer a.Close()
	defer b.Close()

	done := make(chan struct{})
	go func() {
		_, _ = a.Write([]byte("ping"))
		close(done)
	}()

	buf := make([]byte, 4)
	n, rerr := b.Read(buf)
	require.NoError(t, rerr)
	assert.Equal(t, "ping", string(buf[:n]))
	<-done
}

func TestCreateInetPairIsFullDuplex(t *testing.T) {
	a, b, err := sockpair.Create(sockpair.INet)
	require.Nil(t, err)
	defer a.Close()
	defer b.Close()

	_, werr := a.Write([]byte("x"))
	require.NoError(t, werr)

	require.NoError(t, b.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 1)
	n, rerr := b.Read(buf)
	require.NoError(t, rerr)
	assert.Equal(t, "x", string(buf[:n]))

	_, werr = b.Write([]byte("y"))
	require.NoError(t, werr)
	require.NoError(t, a.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, rerr = a.Read(buf)
	require.NoError(t, rerr)
	assert.Equal(t, "y", string(buf[:n]))
}

func TestCreateRejectsUnknownDomain(t *testing.T) {
	_, _, err := sockpair.Create(sockpair.Domain(99))
	require.NotNil(t, err)
	assert.True(t, liberr.Is(err, liberr.InvalidParam))
}
