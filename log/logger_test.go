/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"bytes"
	"testing"

	"github.com/ssgreg/logf"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(level Level) (*LogfAdapter, *bytes.Buffer, func()) {
	buf := &bytes.Buffer{}
	channel, closeFunc := logf.NewChannelWriter(logf.ChannelWriterConfig{
		Appender: logf.NewWriteAppender(buf, logf.NewJSONEncoder(logf.JSONEncoderConfig{})),
	})
	logger := logf.NewLogger(convertLevelToLogfLevel(level), channel)
	return &LogfAdapter{logger}, buf, func() { closeFunc() }
}

func TestLoggerLevels(t *testing.T) {
	logger, buf, closeLogger := newBufferedLogger(LevelInfo)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")
	closeLogger()

	out := buf.String()
	require.NotContains(t, out, "debug message")
	require.Contains(t, out, "info message")
	require.Contains(t, out, "warn message")
	require.Contains(t, out, "error message")
}

func TestLoggerWith(t *testing.T) {
	logger, buf, closeLogger := newBufferedLogger(LevelInfo)

	boundLogger := logger.With(String("key", "rate-limit-user"))
	boundLogger.Info("request rejected", Int("remaining", 0))
	closeLogger()

	out := buf.String()
	require.Contains(t, out, "request rejected")
	require.Contains(t, out, "rate-limit-user")
	require.Contains(t, out, "remaining")
}

func TestLoggerAtLevel(t *testing.T) {
	logger, buf, closeLogger := newBufferedLogger(LevelWarn)

	logger.AtLevel(LevelDebug, func(logFunc LogFunc) {
		logFunc("not enabled")
	})
	logger.AtLevel(LevelError, func(logFunc LogFunc) {
		logFunc("enabled")
	})
	closeLogger()

	out := buf.String()
	require.NotContains(t, out, "not enabled")
	require.Contains(t, out, "enabled")
}

func TestNewDisabledLogger(t *testing.T) {
	logger := NewDisabledLogger()
	logger.Info("nothing happens")

	called := false
	logger.AtLevel(LevelError, func(logFunc LogFunc) {
		called = true
	})
	require.False(t, called)
}

func TestNewLogger(t *testing.T) {
	logger, closeLogger := NewLogger(NewDefaultConfig())
	defer closeLogger()
	require.NotNil(t, logger)
}
