package domain

import (
	"context"
	"time"
)

// Monitor defines the interface for the media session event source.
// Implementations should handle D-Bus/MPRIS communication
type Monitor interface {
	// Start connects to the bus and begins producing events.
	// It returns once the initial player scan is queued; a connection
	// failure is returned as an error and is fatal for the daemon.
	Start(ctx context.Context) error

	// Stop gracefully stops the monitor and closes the Events channel
	Stop(ctx context.Context) error

	// Events returns a read-only channel of decoded session events,
	// delivered in the order they were observed
	Events() <-chan SessionEvent
}

// Emitter writes one rendered line to the status bar host
type Emitter interface {
	// Emit writes text as a single status line and flushes it
	Emit(text string) error
}

// ArtworkCache maintains the well-known cover path for the host
type ArtworkCache interface {
	// Update points the cache at the artwork referenced by artURL.
	// Non-local references only clear the stale entry.
	Update(artURL string) error
}

// Executor defines the interface for executing system commands
type Executor interface {
	// SignalRefresh asks the host process to reload the artwork module.
	// It does not wait for the command to complete.
	SignalRefresh(ctx context.Context)
}

// Config defines the interface for application configuration
type Config interface {
	// GetMaxWidth returns the display width in codepoints
	GetMaxWidth() int

	// GetScrollInterval returns the period of the scroll ticker
	GetScrollInterval() time.Duration

	// GetCoverPath returns the artwork cache symlink path
	GetCoverPath() string

	// GetRefreshSignal returns the realtime signal offset sent to the host
	GetRefreshSignal() int

	// GetSignalProcess returns the process name the refresh signal targets
	GetSignalProcess() string

	// IsDebug reports whether debug logging is enabled
	IsDebug() bool
}
