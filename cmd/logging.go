package cmd

import (
	"os"
	"time"

	"balancecam/beam"
	"balancecam/detection"
	"balancecam/mark"
	"balancecam/overlay"
	"balancecam/pkg/video"
	"balancecam/record"
	"balancecam/tracking"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
	With().Timestamp().Logger().Level(zerolog.InfoLevel)

// setupLogging sets the level and connects the debug functions of every
// package to the logger.
func setupLogging(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger = logger.Level(level)

	fn := debugMsg
	detection.SetDebugFunction(fn)
	tracking.SetDebugFunction(fn)
	beam.SetDebugFunction(fn)
	mark.SetDebugFunction(fn)
	overlay.SetDebugFunction(fn)
	video.SetDebugFunction(fn)
	record.SetDebugFunction(fn)
}

// debugMsg logs a package debug message tagged with its component.
func debugMsg(component, message string) {
	logger.Debug().Str("component", component).Msg(message)
}
