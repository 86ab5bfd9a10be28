package formembed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finitefield.org/marketing-web/internal/clock"
)

func TestPollUntilSucceedsImmediately(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	var got []bool
	PollUntil(clk, func() bool { return true }, 100*time.Millisecond, time.Second, func(ok bool) { got = append(got, ok) })
	assert.Equal(t, []bool{true}, got)
	assert.Zero(t, clk.Pending())
}

func TestPollUntilSucceedsOnLaterTick(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	calls := 0
	var got []bool
	PollUntil(clk, func() bool {
		calls++
		return calls == 4
	}, 100*time.Millisecond, 5*time.Second, func(ok bool) { got = append(got, ok) })

	clk.Advance(200 * time.Millisecond)
	assert.Empty(t, got)
	clk.Advance(100 * time.Millisecond)
	assert.Equal(t, []bool{true}, got)
	clk.Advance(10 * time.Second)
	assert.Equal(t, 4, calls)
}

func TestPollUntilGivesUpAtDeadline(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	var got []bool
	PollUntil(clk, func() bool { return false }, 100*time.Millisecond, time.Second, func(ok bool) { got = append(got, ok) })

	clk.Advance(999 * time.Millisecond)
	assert.Empty(t, got)
	clk.Advance(time.Millisecond)
	require.Equal(t, []bool{false}, got)
	assert.Zero(t, clk.Pending())
}

func TestPollUntilCancelSuppressesDone(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	called := false
	cancel := PollUntil(clk, func() bool { return false }, 100*time.Millisecond, time.Second, func(bool) { called = true })
	clk.Advance(300 * time.Millisecond)
	cancel()
	clk.Advance(time.Minute)
	assert.False(t, called)
	assert.Zero(t, clk.Pending())
}
