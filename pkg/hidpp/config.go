package hidpp

import (
	"log/slog"
	"time"

	"github.com/omm-project/omm-go/pkg/log"
)

// DefaultRequestTimeout bounds every request.
const DefaultRequestTimeout = 5 * time.Second

// Config configures a Device.
type Config struct {
	// RequestTimeout bounds each request. Default: 5s.
	RequestTimeout time.Duration

	// ProbeTimeout bounds each root ping while probing addressing indices.
	// Default: RequestTimeout.
	ProbeTimeout time.Duration

	// Logger receives operational logs. nil disables them.
	Logger *slog.Logger

	// ProtocolLogger receives frame and exchange capture events. nil
	// disables capture.
	ProtocolLogger log.Logger
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		RequestTimeout: DefaultRequestTimeout,
		ProbeTimeout:   DefaultRequestTimeout,
	}
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = c.RequestTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}
