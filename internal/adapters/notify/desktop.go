// Package notify delivers desktop notifications, falling back to log lines
// when no toast surface is available.
package notify

import (
	"log/slog"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/hazuki-dev/vrcwatch/internal/ports"
)

// longDisplayThreshold maps onto the platform's "long" toast mode.
const longDisplayThreshold = 25 * time.Second

// Desktop sends native toasts via beeep. Failures fall back to the logger so
// a broken notification daemon never breaks the watcher.
type Desktop struct {
	logger *slog.Logger
}

var _ ports.Notifier = (*Desktop)(nil)

func NewDesktop(logger *slog.Logger) *Desktop {
	return &Desktop{logger: logger.With("component", "notify")}
}

func (d *Desktop) Notify(title, message string, duration time.Duration) error {
	n := beeep.Notify
	if duration >= longDisplayThreshold {
		// beeep has no duration knob; alert is the closest to a
		// sticky/long toast on platforms that distinguish them.
		n = beeep.Alert
	}
	if err := n(title, message, ""); err != nil {
		d.logger.Info("notify", "title", title, "message", message, "toast_error", err)
		return nil
	}
	return nil
}

// Log is the headless notifier: every notification becomes a log line.
type Log struct {
	logger *slog.Logger
}

var _ ports.Notifier = (*Log)(nil)

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger.With("component", "notify")}
}

func (l *Log) Notify(title, message string, _ time.Duration) error {
	l.logger.Info("notify", "title", title, "message", message)
	return nil
}
