// Package diag builds the node's diagnostic logger. Output is line-oriented
// and meant for people watching a console, optionally mirrored to a serial
// port at a fixed baud rate.
package diag

import (
	"fmt"
	"io"
	"os"

	"go.bug.st/serial"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/itohio/soilsense/pkg/config"
)

// DefaultBaudRate is the diagnostic serial rate.
const DefaultBaudRate = 9600

// Opener opens the serial mirror. Tests replace it.
type Opener func(port string, baudRate int) (io.WriteCloser, error)

// Logger is a zap logger together with the sinks it owns.
type Logger struct {
	*zap.Logger
	closers []io.Closer
}

// New builds the diagnostic logger writing to console and, when
// cfg.Port is set, to a serial port opened with open (nil = real port).
func New(cfg config.DiagnosticsConfig, console io.Writer, open Opener) (*Logger, error) {
	if console == nil {
		console = os.Stderr
	}
	if open == nil {
		open = openSerial
	}

	level := zapcore.InfoLevel
	if cfg.Verbose {
		level = zapcore.DebugLevel
	}

	enc := zapcore.NewConsoleEncoder(encoderConfig())
	sinks := []zapcore.WriteSyncer{zapcore.AddSync(console)}

	l := &Logger{}
	if cfg.Port != "" {
		baud := cfg.BaudRate
		if baud == 0 {
			baud = DefaultBaudRate
		}
		port, err := open(cfg.Port, baud)
		if err != nil {
			return nil, fmt.Errorf("failed to open diagnostic port %s: %w", cfg.Port, err)
		}
		sinks = append(sinks, zapcore.AddSync(port))
		l.closers = append(l.closers, port)
	}

	core := zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(sinks...), level)
	l.Logger = zap.New(core)
	return l, nil
}

// Flush writes out buffered entries. Called before deep sleep.
func (l *Logger) Flush() {
	_ = l.Logger.Sync()
}

// Close flushes and releases the serial mirror.
func (l *Logger) Close() error {
	l.Flush()
	var first error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.closers = nil
	return first
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	cfg.CallerKey = ""
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.ConsoleSeparator = " "
	return cfg
}

func openSerial(port string, baudRate int) (io.WriteCloser, error) {
	return serial.Open(port, &serial.Mode{BaudRate: baudRate})
}
