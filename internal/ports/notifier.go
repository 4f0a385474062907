package ports

import "time"

// Notifier delivers a user-facing notification. Implementations must not
// block the caller for longer than the underlying toast mechanism needs,
// and must degrade to logging when no desktop surface is available.
type Notifier interface {
	Notify(title, message string, duration time.Duration) error
}
