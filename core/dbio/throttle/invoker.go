package throttle

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/flarco/g"
)

// State is the congestion state of an invoker
type State string

const (
	// StateFastStart injects no delay, no throttling was observed yet
	StateFastStart State = "FAST_START"
	// StateAvoidance injects the current delay before each call
	StateAvoidance State = "AVOIDANCE"
)

// ExceptionFilter reports whether an error is a throttling signal
type ExceptionFilter func(err error) bool

// Spiller reports whether partial results already left for durable storage
type Spiller interface {
	Spilled() bool
}

// OverloadedError is returned once throttling outlasts the call timeout
type OverloadedError struct {
	Timeout  time.Duration
	Attempts int
	Last     error
}

func (e *OverloadedError) Error() string {
	return g.F("service overloaded: still throttled after %d attempts within %s: %v", e.Attempts, e.Timeout, e.Last)
}

func (e *OverloadedError) Unwrap() error { return e.Last }

// IsOverloaded is true when err is or wraps an OverloadedError
func IsOverloaded(err error) bool {
	var oe *OverloadedError
	return errors.As(err, &oe)
}

// SpilledError is returned for a throttling signal once the spiller has
// spilled, since the call cannot be retried safely.
type SpilledError struct {
	Err error
}

func (e *SpilledError) Error() string {
	return g.F("throttled after data was spilled, not retrying: %v", e.Err)
}

func (e *SpilledError) Unwrap() error { return e.Err }

// Invoker calls a downstream function, slowing down adaptively while the
// filter reports throttling. An invoker serves one retry sequence at a time.
type Invoker struct {
	filter         ExceptionFilter
	spiller        Spiller
	initialDelayMs int64
	maxDelayMs     int64
	decrease       float64
	increaseMs     int64

	mux     sync.Mutex
	state   State
	delayMs int64

	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures an Invoker
type Option func(*Invoker)

func WithInitialDelayMs(ms int64) Option { return func(i *Invoker) { i.initialDelayMs = ms } }

func WithMaxDelayMs(ms int64) Option { return func(i *Invoker) { i.maxDelayMs = ms } }

// WithDecreaseFactor sets the multiplicative rate decrease on throttling.
// The delay is divided by it, so 0.5 doubles the delay.
func WithDecreaseFactor(f float64) Option { return func(i *Invoker) { i.decrease = f } }

// WithIncreaseMs sets the delay removed after each successful call
func WithIncreaseMs(ms int64) Option { return func(i *Invoker) { i.increaseMs = ms } }

func WithSpiller(s Spiller) Option { return func(i *Invoker) { i.spiller = s } }

// New creates an invoker with the defaults, adjusted by options
func New(filter ExceptionFilter, options ...Option) *Invoker {
	i := &Invoker{
		filter:         filter,
		initialDelayMs: DefaultInitialDelayMs,
		maxDelayMs:     DefaultMaxDelayMs,
		decrease:       DefaultDecreaseFactor,
		increaseMs:     DefaultIncreaseMs,
		state:          StateFastStart,
		sleep:          sleepContext,
	}
	for _, option := range options {
		option(i)
	}

	if i.filter == nil {
		i.filter = func(error) bool { return false }
	}
	if i.decrease <= 0 || i.decrease > 1 {
		i.decrease = DefaultDecreaseFactor
	}
	// a throttled call always waits at least 1 ms before the retry
	if i.maxDelayMs < 1 {
		i.maxDelayMs = 1
	}
	if i.initialDelayMs < 1 {
		i.initialDelayMs = 1
	}
	if i.initialDelayMs > i.maxDelayMs {
		i.initialDelayMs = i.maxDelayMs
	}
	return i
}

// State returns the current congestion state
func (i *Invoker) State() State {
	i.mux.Lock()
	defer i.mux.Unlock()
	return i.state
}

// DelayMs returns the current delay in milliseconds
func (i *Invoker) DelayMs() int64 {
	i.mux.Lock()
	defer i.mux.Unlock()
	return i.delayMs
}

// Delay returns the current delay
func (i *Invoker) Delay() time.Duration {
	return time.Duration(i.DelayMs()) * time.Millisecond
}

// Invoke runs call until it succeeds, fails with an error the filter does
// not match, or stays throttled past timeout.
func (i *Invoker) Invoke(ctx context.Context, timeout time.Duration, call func() error) error {
	start := time.Now()
	attempts := 0

	for {
		if err := i.sleep(ctx, i.Delay()); err != nil {
			return err
		}

		attempts++
		err := call()
		if err == nil {
			i.handleSuccess()
			return nil
		}

		if !i.filter(err) {
			return err
		}

		if refused := i.handleThrottle(err); refused != nil {
			return refused
		}

		if time.Since(start) > timeout {
			g.Warn("throttling did not clear after %d attempts in %s", attempts, timeout)
			return &OverloadedError{Timeout: timeout, Attempts: attempts, Last: err}
		}
	}
}

// InvokeValue is Invoke for calls returning a value
func InvokeValue[T any](ctx context.Context, i *Invoker, timeout time.Duration, call func() (T, error)) (T, error) {
	var result T
	err := i.Invoke(ctx, timeout, func() (err error) {
		result, err = call()
		return err
	})
	return result, err
}

func (i *Invoker) handleSuccess() {
	i.mux.Lock()
	defer i.mux.Unlock()

	if i.delayMs <= 0 {
		return
	}

	i.state = StateAvoidance
	i.delayMs -= i.increaseMs
	if i.delayMs < 0 {
		i.delayMs = 0
	}
}

// handleThrottle grows the delay, or refuses when a retry is unsafe
func (i *Invoker) handleThrottle(cause error) error {
	i.mux.Lock()
	defer i.mux.Unlock()

	if i.spiller != nil && i.spiller.Spilled() {
		return &SpilledError{Err: cause}
	}

	newDelay := int64(math.Ceil(float64(i.delayMs) / i.decrease))
	if newDelay == 0 {
		newDelay = i.initialDelayMs
	}
	if newDelay > i.maxDelayMs {
		newDelay = i.maxDelayMs
	}

	g.Info("encountered a throttling event (%s), adjusting delay to %d ms", cause.Error(), newDelay)
	i.state = StateAvoidance
	i.delayMs = newDelay
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
