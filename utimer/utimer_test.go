package utimer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ned0000/webchain/duration"
	"github.com/ned0000/webchain/utimer"
)

func TestNameIdentifiesChainObject(t *testing.T) {
	u := utimer.New()
	assert.Equal(t, "utimer", u.Name())
}

func TestPreSelectReturnsNegativeWhenEmpty(t *testing.T) {
	u := utimer.New()
	assert.True(t, u.IsEmpty())
	assert.Less(t, int64(u.PreSelect()), int64(0))
}

func TestPreSelectFiresDueItemsAndReturnsNextDeadline(t *testing.T) {
	u := utimer.New()
	fired := false
	u.Add("x", duration.Millis(0), func(data interface{}) { fired = true }, nil)

	duration.Sleep(5)
	u.PreSelect()
	assert.True(t, fired)
	assert.True(t, u.IsEmpty())
}

func TestPostSelectFiresTimersArmedDuringTheSameTick(t *testing.T) {
	u := utimer.New()
	secondFired := false

	u.Add("first", duration.Millis(0), func(data interface{}) {
		u.Add("second", duration.Millis(0), func(data interface{}) { secondFired = true }, nil)
	}, nil)

	duration.Sleep(5)
	u.PreSelect()
	u.PostSelect()
	assert.True(t, secondFired)
}

func TestRemoveCancelsPendingTimer(t *testing.T) {
	u := utimer.New()
	fired := false
	u.Add("key", duration.Millis(50), func(data interface{}) { fired = true }, nil)

	u.Remove("key")
	assert.True(t, u.IsEmpty())

	duration.Sleep(60)
	u.PreSelect()
	assert.False(t, fired)
}

func TestFlushClearsWithoutFiring(t *testing.T) {
	u := utimer.New()
	fired := false
	u.Add("x", duration.Millis(0), func(data interface{}) { fired = true }, nil)

	u.Flush()
	assert.True(t, u.IsEmpty())

	duration.Sleep(5)
	u.PreSelect()
	assert.False(t, fired)
}
