package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	liberr "github.com/ned0000/webchain/errors"
)

func TestNewFormatsMessage(t *testing.T) {
	e := liberr.New(liberr.InvalidParam, nil, "bad field %q", "name")
	assert.Equal(t, liberr.InvalidParam, e.Code())
	assert.Contains(t, e.Error(), "bad field \"name\"")
	assert.Contains(t, e.Error(), "invalid parameter")
}

func TestNewNoFormatUsesCodeMessageOnly(t *testing.T) {
	e := liberr.New(liberr.QueueFull, nil, "")
	assert.Equal(t, "[1301] queue full", e.Error())
}

func TestIsCodeAndHasCode(t *testing.T) {
	parent := liberr.New(liberr.FailConnect, nil, "dial failed")
	child := liberr.New(liberr.InvalidParam, parent, "wrapped")

	assert.True(t, child.IsCode(liberr.InvalidParam))
	assert.False(t, child.IsCode(liberr.FailConnect))
	assert.True(t, child.HasCode(liberr.FailConnect))
	assert.False(t, child.HasCode(liberr.Timeout))
}

func TestPackageIsHelper(t *testing.T) {
	e := liberr.New(liberr.SocketPoolEmpty, nil, "full")
	assert.True(t, liberr.Is(e, liberr.SocketPoolEmpty))
	assert.False(t, liberr.Is(e, liberr.QueueFull))
	assert.False(t, liberr.Is(nil, liberr.SocketPoolEmpty))
	assert.False(t, liberr.Is(fmt.Errorf("plain"), liberr.SocketPoolEmpty))
}

func TestUnwrapChainsToParent(t *testing.T) {
	parent := liberr.New(liberr.FailConnect, nil, "dial failed")
	child := liberr.New(liberr.InvalidParam, parent, "wrapped")
	assert.Equal(t, error(parent), child.Unwrap())
}

func TestTraceIsPopulated(t *testing.T) {
	e := liberr.New(liberr.InvalidParam, nil, "x")
	assert.Contains(t, e.Trace(), "errors_test.go")
}

func TestUnknownCodeStringFallsBack(t *testing.T) {
	var c liberr.Code = 65000
	assert.Equal(t, liberr.UnknownError.String(), c.String())
}
