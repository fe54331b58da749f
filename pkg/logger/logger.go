// Package logger provides opinionated logging capabilities for parley
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a console logger writing to stdout.
func NewLogger(debug bool) *zap.Logger {
	return NewLoggerTo(os.Stdout, debug)
}

// NewLoggerTo returns a console logger writing to w. The terminal chat uses
// this to keep log lines out of the alternate screen.
func NewLoggerTo(w io.Writer, debug bool) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		level,
	)

	return zap.New(core, zap.AddCaller())
}

// Preview flattens s onto one line and cuts it to maxWidth display cells.
// Replies are mostly Japanese, so the cut is width aware and never splits a rune.
func Preview(s string, maxWidth int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return ansi.Truncate(s, maxWidth, "...")
}
