package duration_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ned0000/webchain/duration"
)

func TestFromSeconds(t *testing.T) {
	assert.Equal(t, duration.Millis(3000), duration.FromSeconds(3))
	assert.Equal(t, duration.Millis(0), duration.FromSeconds(0))
}

func TestAddSub(t *testing.T) {
	base := duration.Millis(1000)
	plus := base.Add(500)
	assert.Equal(t, duration.Millis(1500), plus)
	assert.Equal(t, duration.Millis(500), plus.Sub(base))
}

func TestTimeConvertsToTimeDuration(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, duration.Millis(250).Time())
}

func TestSleepZeroOrNegativeReturnsImmediately(t *testing.T) {
	start := time.Now()
	duration.Sleep(0)
	duration.Sleep(-5)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestNowMillisIsMonotonicallyNonDecreasing(t *testing.T) {
	a := duration.NowMillis()
	duration.Sleep(5)
	b := duration.NowMillis()
	assert.GreaterOrEqual(t, int64(b), int64(a))
}
