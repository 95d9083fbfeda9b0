package log

import (
	"context"
	"encoding/hex"
	"log/slog"
)

// SlogAdapter renders capture events on an slog.Logger at debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates an adapter writing to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session", event.SessionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.Device != "" {
		attrs = append(attrs, slog.String("device", event.Device))
	}

	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.Int("report_id", int(event.Frame.ReportID)),
			slog.String("data", hex.EncodeToString(event.Frame.Data)),
		)
		if event.Frame.Discarded {
			attrs = append(attrs, slog.Bool("discarded", true))
		}
	case event.Exchange != nil:
		x := event.Exchange
		attrs = append(attrs,
			slog.Int("device_index", int(x.DeviceIndex)),
			slog.Int("feature_index", int(x.FeatureIndex)),
			slog.Int("function", int(x.Function)),
			slog.Int("swid", int(x.SoftwareID)),
			slog.String("outcome", x.Outcome.String()),
			slog.Duration("round_trip", x.RoundTrip),
		)
		if x.FeatureID != nil {
			attrs = append(attrs, slog.Int("feature_id", int(*x.FeatureID)))
		}
		if x.ErrorCode != nil {
			attrs = append(attrs, slog.Int("error_code", int(*x.ErrorCode)))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "hidpp", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
