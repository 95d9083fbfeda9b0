package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/omm-project/omm-go/pkg/connection"
	"github.com/omm-project/omm-go/pkg/hidpp"
)

// Service errors.
var (
	ErrNotConnected = errors.New("mouse not connected")
	ErrNoStore      = errors.New("no profile store configured")
)

// DefaultCheckInterval is the keepalive ping period when auto-reconnect
// is enabled.
const DefaultCheckInterval = 2 * time.Second

// Config configures a MouseService.
type Config struct {
	// Device configures the protocol engine.
	Device hidpp.Config

	// StateDir holds one profile file per product id. Empty disables
	// persistence unless StatePath is set.
	StateDir string

	// StatePath overrides the per-product file inside StateDir.
	StatePath string

	// AutoReconnect pings the mouse every CheckInterval and reconnects
	// with backoff when it stops answering.
	AutoReconnect bool

	// Reconnect configures the session supervisor.
	Reconnect connection.Config

	// Logger is optional.
	Logger *slog.Logger
}

// DefaultConfig returns the default service configuration.
func DefaultConfig() Config {
	rc := connection.DefaultConfig()
	rc.CheckInterval = DefaultCheckInterval
	return Config{
		Device:    hidpp.DefaultConfig(),
		Reconnect: rc,
	}
}

// EventType identifies a service event.
type EventType uint8

const (
	// EventConnected is emitted after a connect or reconnect finished,
	// sync included.
	EventConnected EventType = iota

	// EventDisconnected is emitted when the session ends, either by
	// Disconnect or by a lost device.
	EventDisconnected

	// EventReconnecting is emitted before each reconnect delay.
	EventReconnecting

	// EventApplied is emitted after a profile was written to the device.
	EventApplied

	// EventSyncFailed is emitted when reading device state into the
	// profile set failed.
	EventSyncFailed

	// EventProfileSelected is emitted when the selected slot changes.
	EventProfileSelected
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventConnected:
		return "CONNECTED"
	case EventDisconnected:
		return "DISCONNECTED"
	case EventReconnecting:
		return "RECONNECTING"
	case EventApplied:
		return "APPLIED"
	case EventSyncFailed:
		return "SYNC_FAILED"
	case EventProfileSelected:
		return "PROFILE_SELECTED"
	default:
		return "UNKNOWN"
	}
}

// Event is a service event.
type Event struct {
	Type EventType

	// Profile is the selected slot when the event fired.
	Profile int

	// Info is set on EventConnected.
	Info *hidpp.DeviceInfo

	// Attempt is set on EventReconnecting.
	Attempt int

	// Error is set on EventSyncFailed and on a lost device.
	Error error
}

// EventHandler handles service events.
type EventHandler func(Event)
