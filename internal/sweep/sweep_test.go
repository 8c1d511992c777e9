package sweep

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunnerInvokesFuncUntilStopped(t *testing.T) {
	var calls atomic.Int64
	r := Start("test", 5*time.Millisecond, func(time.Time) int {
		calls.Add(1)
		return 1
	}, nil, nil)

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	r.Stop()
	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
}

func TestRunnerRecoversFromPanic(t *testing.T) {
	var calls atomic.Int64
	r := Start("panicky", 5*time.Millisecond, func(time.Time) int {
		calls.Add(1)
		panic("boom")
	}, nil, nil)
	defer r.Stop()

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestRunnerDisabledIntervalIsNoop(t *testing.T) {
	r := Start("off", 0, func(time.Time) int {
		t.Fatal("must not run")
		return 0
	}, nil, nil)
	r.Stop()
	r.Stop()

	var nilRunner *Runner
	nilRunner.Stop()
}
