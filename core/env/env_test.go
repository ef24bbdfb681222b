package env

import (
	"testing"

	"github.com/flarco/g"
	"github.com/slingdata-io/sling-federation/core/dbio/throttle"
	"github.com/stretchr/testify/assert"
)

func TestThrottleConfig(t *testing.T) {
	t.Setenv("FEDERATION_THROTTLE_INITIAL_DELAY_MS", "25")
	t.Setenv("FEDERATION_THROTTLE_DECREASE_FACTOR", " 0.8 ")
	t.Setenv("FEDERATION_THROTTLE_MAX_DELAY_MS", "")

	config := ThrottleConfig()
	assert.Equal(t, map[string]string{
		throttle.KeyInitialDelayMs: "25",
		throttle.KeyDecreaseFactor: "0.8",
	}, config)
}

func TestMergeConfig(t *testing.T) {
	merged := MergeConfig(
		map[string]string{throttle.KeyMaxDelayMs: "500", throttle.KeyIncreaseMs: "5"},
		map[string]string{throttle.KeyMaxDelayMs: "900", throttle.KeyIncreaseMs: ""},
		nil,
	)
	assert.Equal(t, "900", merged[throttle.KeyMaxDelayMs])
	assert.Equal(t, "5", merged[throttle.KeyIncreaseMs])
	assert.Len(t, merged, 2)
}

func TestLogSink(t *testing.T) {
	t.Setenv("FEDERATION_LOGGING", "NO_COLOR")
	t.Setenv("DEBUG", "LOW")
	InitLogger()
	defer func() { LogSink = nil }()

	LogSink = func(ll *g.LogLine) { _ = ll.Text }

	assert.NotPanics(t, func() { LogSQL("select 1;", 1) })
	assert.True(t, NoColor)
	assert.Equal(t, "select 1", CyanString("select 1"))
}
