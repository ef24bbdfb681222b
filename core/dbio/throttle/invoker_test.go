package throttle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errThrottled = errors.New("rate exceeded")

func isThrottled(err error) bool { return errors.Is(err, errThrottled) }

type fakeSpiller struct{ spilled bool }

func (s *fakeSpiller) Spilled() bool { return s.spilled }

// noSleep records the requested delays instead of sleeping
func noSleep(inv *Invoker) *[]time.Duration {
	slept := []time.Duration{}
	inv.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return &slept
}

func TestInvokeConvergesBelowMax(t *testing.T) {
	inv := New(
		isThrottled,
		WithDecreaseFactor(0.8),
		WithIncreaseMs(1),
		WithInitialDelayMs(10),
		WithMaxDelayMs(200),
	)
	noSleep(inv)

	count := 0
	err := inv.Invoke(context.Background(), time.Minute, func() error {
		count++
		if count < 30 {
			return errThrottled
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 30, count)
	assert.Equal(t, StateAvoidance, inv.State())
	assert.EqualValues(t, 199, inv.DelayMs())
}

func TestInvokeFastStart(t *testing.T) {
	inv := NewDefault(isThrottled, nil)
	slept := noSleep(inv)

	err := inv.Invoke(context.Background(), time.Second, func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, StateFastStart, inv.State())
	assert.EqualValues(t, 0, inv.DelayMs())

	// errors outside the filter come back as is, on the first attempt
	boom := errors.New("syntax error")
	calls := 0
	err = inv.Invoke(context.Background(), time.Second, func() error {
		calls++
		return boom
	})
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, StateFastStart, inv.State())
	assert.EqualValues(t, 0, inv.DelayMs())
	assert.Equal(t, []time.Duration{0, 0}, *slept)
}

func TestInvokeDelayLaw(t *testing.T) {
	inv := New(isThrottled, WithInitialDelayMs(10), WithMaxDelayMs(100), WithDecreaseFactor(0.5), WithIncreaseMs(10))
	slept := noSleep(inv)

	count := 0
	err := inv.Invoke(context.Background(), time.Minute, func() error {
		count++
		if count <= 6 {
			return errThrottled
		}
		return nil
	})
	assert.NoError(t, err)

	ms := func(v ...int64) (durations []time.Duration) {
		for _, d := range v {
			durations = append(durations, time.Duration(d)*time.Millisecond)
		}
		return
	}
	// 0 -> initial, then doubled up to the ceiling
	assert.Equal(t, ms(0, 10, 20, 40, 80, 100, 100), *slept)
	assert.EqualValues(t, 90, inv.DelayMs())

	// successes shrink the delay down to zero, state remains
	for i := 0; i < 12; i++ {
		assert.NoError(t, inv.Invoke(context.Background(), time.Minute, func() error { return nil }))
	}
	assert.EqualValues(t, 0, inv.DelayMs())
	assert.Equal(t, StateAvoidance, inv.State())
}

func TestInvokeMonotonicUnderThrottling(t *testing.T) {
	inv := New(isThrottled, WithInitialDelayMs(3), WithMaxDelayMs(50), WithDecreaseFactor(0.7))
	noSleep(inv)

	delays := []int64{}
	count := 0
	err := inv.Invoke(context.Background(), time.Minute, func() error {
		count++
		delays = append(delays, inv.DelayMs())
		if count < 40 {
			return errThrottled
		}
		return nil
	})
	assert.NoError(t, err)

	for i := 1; i < len(delays); i++ {
		assert.GreaterOrEqual(t, delays[i], delays[i-1])
		assert.LessOrEqual(t, delays[i], int64(50))
	}
	assert.EqualValues(t, 50, delays[len(delays)-1])
}

func TestInvokeTimeout(t *testing.T) {
	inv := New(isThrottled, WithInitialDelayMs(1), WithMaxDelayMs(5))
	inv.sleep = func(ctx context.Context, d time.Duration) error {
		time.Sleep(time.Millisecond)
		return nil
	}

	calls := 0
	err := inv.Invoke(context.Background(), 20*time.Millisecond, func() error {
		calls++
		return errThrottled
	})
	if assert.Error(t, err) {
		assert.True(t, IsOverloaded(err))
		assert.True(t, errors.Is(err, errThrottled))

		var oe *OverloadedError
		if assert.True(t, errors.As(err, &oe)) {
			assert.Equal(t, calls, oe.Attempts)
		}
	}
	assert.Greater(t, calls, 1)
	assert.Equal(t, StateAvoidance, inv.State())
	assert.LessOrEqual(t, inv.DelayMs(), int64(5))

	assert.False(t, IsOverloaded(errThrottled))
}

func TestInvokeSpilled(t *testing.T) {
	spiller := &fakeSpiller{}
	inv := New(isThrottled, WithSpiller(spiller))
	noSleep(inv)

	count := 0
	err := inv.Invoke(context.Background(), time.Minute, func() error {
		count++
		if count == 1 {
			return errThrottled
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, count)

	spiller.spilled = true
	count = 0
	err = inv.Invoke(context.Background(), time.Minute, func() error {
		count++
		return errThrottled
	})
	if assert.Error(t, err) {
		var se *SpilledError
		assert.True(t, errors.As(err, &se))
		assert.True(t, errors.Is(err, errThrottled))
		assert.False(t, IsOverloaded(err))
	}
	assert.Equal(t, 1, count)
}

func TestInvokeContextCanceled(t *testing.T) {
	inv := New(isThrottled)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := inv.Invoke(ctx, time.Minute, func() error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestInvokeValue(t *testing.T) {
	inv := New(isThrottled)
	noSleep(inv)

	count := 0
	val, err := InvokeValue(context.Background(), inv, time.Minute, func() (string, error) {
		count++
		if count < 3 {
			return "", errThrottled
		}
		return "ok", nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "ok", val)
}

func TestNewDefaultConfig(t *testing.T) {
	inv := NewDefault(isThrottled, map[string]string{
		KeyInitialDelayMs: "25",
		KeyMaxDelayMs:     "400",
		KeyDecreaseFactor: "0.25",
		KeyIncreaseMs:     "abc",
	})
	assert.EqualValues(t, 25, inv.initialDelayMs)
	assert.EqualValues(t, 400, inv.maxDelayMs)
	assert.Equal(t, 0.25, inv.decrease)
	assert.Equal(t, DefaultIncreaseMs, inv.increaseMs)

	inv = NewDefault(isThrottled, map[string]string{KeyDecreaseFactor: "3"})
	assert.Equal(t, DefaultDecreaseFactor, inv.decrease)
	assert.Equal(t, DefaultInitialDelayMs, inv.initialDelayMs)
	assert.Equal(t, DefaultMaxDelayMs, inv.maxDelayMs)
}

func TestInvokeZeroDelayConfig(t *testing.T) {
	inv := NewDefault(isThrottled, map[string]string{KeyInitialDelayMs: "0"})
	assert.EqualValues(t, 1, inv.initialDelayMs)
	slept := noSleep(inv)

	count := 0
	err := inv.Invoke(context.Background(), time.Minute, func() error {
		count++
		if count < 3 {
			return errThrottled
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, []time.Duration{0, time.Millisecond, 2 * time.Millisecond}, *slept)

	inv = New(isThrottled, WithInitialDelayMs(0), WithMaxDelayMs(0))
	slept = noSleep(inv)
	count = 0
	err = inv.Invoke(context.Background(), time.Minute, func() error {
		count++
		if count < 4 {
			return errThrottled
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, StateAvoidance, inv.State())
	for _, d := range (*slept)[1:] {
		assert.Equal(t, time.Millisecond, d)
	}
}
