// Package portlog implements a passthrough port that logs every call made
// by the line driver. It's mostly used for debugging wiring problems and
// targets misbehaving on the bus.
package portlog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oxplot/go-bbi2c"
)

// Logger is a passthrough port that logs the masks written to and the levels
// read from the underlying port at debug level.
type Logger struct {
	log  *slog.Logger
	base bbi2c.Port
}

// NewLogger creates a new logger which will log to the given logger and
// optionally pass the calls through to base. If no base is provided, writes
// are dropped and every line reads high, as on an idle bus with nothing
// attached. A nil log uses slog.Default.
func NewLogger(log *slog.Logger, base bbi2c.Port) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{
		log:  log.With("component", "port"),
		base: base,
	}
}

// SetupIO logs the mask and passes it down to the underlying port.
func (l *Logger) SetupIO(mask uint8) error {
	var err error
	if l.base != nil {
		err = l.base.SetupIO(mask)
	}
	l.logCall("setup", mask, 0, err)
	return err
}

// ReadIO passes the read down to the underlying port and logs the levels it
// returned.
func (l *Logger) ReadIO(mask uint8) (uint8, error) {
	v, err := mask, error(nil)
	if l.base != nil {
		v, err = l.base.ReadIO(mask)
	}
	l.logCall("read", mask, v, err)
	return v, err
}

func (l *Logger) logCall(op string, mask, levels uint8, err error) {
	if err != nil {
		l.log.Warn("port call failed", "op", op, "mask", bits(mask), "error", err)
		return
	}
	if !l.log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	if op == "setup" {
		l.log.Debug(op, "pulled", bits(mask))
		return
	}
	l.log.Debug(op, "mask", bits(mask), "levels", bits(levels))
}

func bits(v uint8) string {
	return fmt.Sprintf("%08b", v)
}

var _ bbi2c.Port = (*Logger)(nil)
