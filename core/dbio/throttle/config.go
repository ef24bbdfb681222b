package throttle

import (
	"github.com/flarco/g"
	"github.com/spf13/cast"
)

// configuration keys, read by NewDefault
const (
	KeyInitialDelayMs = "throttle_initial_delay_ms"
	KeyMaxDelayMs     = "throttle_max_delay_ms"
	KeyDecreaseFactor = "throttle_decrease_factor"
	KeyIncreaseMs     = "throttle_increase_ms"
)

const (
	DefaultInitialDelayMs int64   = 10
	DefaultMaxDelayMs     int64   = 1000
	DefaultDecreaseFactor float64 = 0.5
	DefaultIncreaseMs     int64   = 10
)

// Keys lists the configuration keys
var Keys = []string{KeyInitialDelayMs, KeyMaxDelayMs, KeyDecreaseFactor, KeyIncreaseMs}

// NewDefault creates an invoker configured from the string mapping, falling
// back to the defaults for absent or invalid keys.
func NewDefault(filter ExceptionFilter, config map[string]string, options ...Option) *Invoker {
	configured := []Option{
		WithInitialDelayMs(configInt(config, KeyInitialDelayMs, DefaultInitialDelayMs)),
		WithMaxDelayMs(configInt(config, KeyMaxDelayMs, DefaultMaxDelayMs)),
		WithDecreaseFactor(configFloat(config, KeyDecreaseFactor, DefaultDecreaseFactor)),
		WithIncreaseMs(configInt(config, KeyIncreaseMs, DefaultIncreaseMs)),
	}
	return New(filter, append(configured, options...)...)
}

func configInt(config map[string]string, key string, defVal int64) int64 {
	val, ok := config[key]
	if !ok || val == "" {
		return defVal
	}
	i, err := cast.ToInt64E(val)
	if err != nil || i < 0 {
		g.Warn("invalid value for %s (%s), using default %d", key, val, defVal)
		return defVal
	}
	return i
}

func configFloat(config map[string]string, key string, defVal float64) float64 {
	val, ok := config[key]
	if !ok || val == "" {
		return defVal
	}
	f, err := cast.ToFloat64E(val)
	if err != nil || f <= 0 || f > 1 {
		g.Warn("invalid value for %s (%s), using default %v", key, val, defVal)
		return defVal
	}
	return f
}
