package env

import (
	"fmt"
	"os"
	"strings"

	"github.com/flarco/g"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/slingdata-io/sling-federation/core/dbio/throttle"
	"github.com/spf13/cast"
)

var (
	NoColor = g.In(os.Getenv("FEDERATION_LOGGING"), "NO_COLOR", "JSON")
	LogSink func(*g.LogLine)
)

// throttleEnvKeys maps environment variables to throttle config keys
var throttleEnvKeys = map[string]string{
	"FEDERATION_THROTTLE_INITIAL_DELAY_MS": throttle.KeyInitialDelayMs,
	"FEDERATION_THROTTLE_MAX_DELAY_MS":     throttle.KeyMaxDelayMs,
	"FEDERATION_THROTTLE_DECREASE_FACTOR":  throttle.KeyDecreaseFactor,
	"FEDERATION_THROTTLE_INCREASE_MS":      throttle.KeyIncreaseMs,
}

// IsInteractiveTerminal checks if the current process is running in an interactive terminal
func IsInteractiveTerminal() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

func SetLogger() {
	g.SetZeroLogLevel(zerolog.InfoLevel)
	g.DisableColor = !cast.ToBool(os.Getenv("FEDERATION_LOGGING_COLOR"))

	if os.Getenv("DEBUG") == "TRACE" {
		g.SetZeroLogLevel(zerolog.TraceLevel)
		g.SetLogLevel(g.TraceLevel)
	} else if os.Getenv("DEBUG") != "" {
		g.SetZeroLogLevel(zerolog.DebugLevel)
		g.SetLogLevel(g.DebugLevel)
		if os.Getenv("DEBUG") == "LOW" {
			g.SetLogLevel(g.LowDebugLevel)
		}
	}

	outputErr := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"}
	outputErr.FormatErrFieldValue = func(i interface{}) string {
		return fmt.Sprintf("%s", i)
	}

	switch os.Getenv("FEDERATION_LOGGING") {
	case "NO_COLOR":
		NoColor = true
		outputErr.NoColor = true
		g.ZLogOut = zerolog.New(outputErr).With().Timestamp().Logger()
		g.ZLogErr = zerolog.New(outputErr).With().Timestamp().Logger()
	case "JSON":
		NoColor = true
		zerolog.LevelFieldName = "lvl"
		zerolog.MessageFieldName = "msg"
		g.ZLogOut = zerolog.New(os.Stdout).With().Timestamp().Logger()
		g.ZLogErr = zerolog.New(os.Stdout).With().Timestamp().Logger()
	default:
		NoColor = !IsInteractiveTerminal()
		if !g.IsDebugLow() {
			outputErr = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "3:04PM"}
		}
		outputErr.NoColor = NoColor
		g.ZLogOut = zerolog.New(outputErr).With().Timestamp().Logger()
		g.ZLogErr = zerolog.New(outputErr).With().Timestamp().Logger()
	}
}

// InitLogger initializes the g Logger
func InitLogger() {

	// set log hook
	g.SetLogHook(
		g.NewLogHook(
			g.DebugLevel,
			func(ll *g.LogLine) { processLogEntry(ll) },
		),
	)

	SetLogger()
}

func processLogEntry(ll *g.LogLine) {
	if LogSink != nil {
		LogSink(ll)
	}
}

// ThrottleConfig collects the throttle settings from FEDERATION_THROTTLE_*
// environment variables. Unset variables are left out.
func ThrottleConfig() map[string]string {
	config := map[string]string{}
	for envKey, key := range throttleEnvKeys {
		if val := strings.TrimSpace(os.Getenv(envKey)); val != "" {
			config[key] = val
		}
	}
	return config
}

// MergeConfig overlays the later maps on the first, skipping empty values
func MergeConfig(configs ...map[string]string) map[string]string {
	merged := map[string]string{}
	for _, config := range configs {
		for k, v := range lo.PickBy(config, func(_ string, v string) bool { return v != "" }) {
			merged[k] = v
		}
	}
	return merged
}

func Println(text string) {
	fmt.Fprintf(os.Stderr, "%s\n", text)
}

func CyanString(text string) string {
	if NoColor {
		return text
	}
	return g.Colorize(g.ColorCyan, text)
}

// LogSQL debug-logs a rendered query, with its bind values at trace level
func LogSQL(query string, args ...any) {
	query = strings.TrimSuffix(strings.TrimSpace(query), ";")
	if len(args) > 0 {
		g.Trace(CyanString(query), g.M("query_args", args))
	}
	g.Debug(CyanString(query))
}
