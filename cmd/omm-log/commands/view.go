// Package commands implements the omm-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/omm-project/omm-go/pkg/log"
	"github.com/omm-project/omm-go/pkg/wire"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Layer     *log.Layer
	Direction *log.Direction
	Category  *log.Category
}

func (f ViewFilter) match(e log.Event) bool {
	lf := log.Filter{Layer: f.Layer, Direction: f.Direction, Category: f.Category}
	return lf.Match(e)
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session] DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	fmt.Fprintf(w, "%s [session:%s] %-3s %s %s\n",
		ts, shortenSessionID(event.SessionID), event.Direction.String(), event.Layer.String(), typeLabel(event))

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.Exchange != nil:
		formatExchangeDetails(w, event.Exchange)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}
	if event.Device != "" {
		fmt.Fprintf(w, "  Device: %s\n", event.Device)
	}

	fmt.Fprintln(w)
}

func typeLabel(event log.Event) string {
	switch {
	case event.Frame != nil:
		return "Frame"
	case event.Exchange != nil:
		return "Exchange"
	case event.StateChange != nil:
		return "State"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// shortenSessionID returns the first 8 characters of the session id.
func shortenSessionID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatFrameDetails(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Report: %s (0x%02x), %d bytes", wire.ReportID(frame.ReportID), frame.ReportID, len(frame.Data))
	if frame.Discarded {
		fmt.Fprint(w, " (discarded)")
	}
	fmt.Fprintln(w)
	if len(frame.Data) >= wire.HeaderLen {
		fmt.Fprintf(w, "  Header: dev=0x%02x feat=0x%02x fn=%d sw=%d\n",
			frame.Data[0], frame.Data[1], frame.Data[2]>>4, frame.Data[2]&0x0F)
	}
	if len(frame.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s\n", hex.EncodeToString(frame.Data))
	}
}

func formatExchangeDetails(w io.Writer, ex *log.ExchangeEvent) {
	fmt.Fprintf(w, "  Device: 0x%02x (%s)\n", ex.DeviceIndex, wire.DeviceIndexName(ex.DeviceIndex))
	fmt.Fprintf(w, "  Feature: index 0x%02x", ex.FeatureIndex)
	if ex.FeatureID != nil {
		fmt.Fprintf(w, " %s", wire.FeatureID(*ex.FeatureID))
	}
	fmt.Fprintf(w, "  Function: %d  SoftwareID: %d\n", ex.Function, ex.SoftwareID)
	fmt.Fprintf(w, "  Outcome: %s", ex.Outcome)
	if ex.ErrorCode != nil {
		code := wire.ErrorCode(*ex.ErrorCode)
		fmt.Fprintf(w, " %s (0x%02x)", code, *ex.ErrorCode)
	}
	fmt.Fprintln(w)
	if ex.RoundTrip > 0 {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(ex.RoundTrip))
	}
	if len(ex.Params) > 0 {
		fmt.Fprintf(w, "  Params: %s\n", hex.EncodeToString(ex.Params))
	}
	if len(ex.Response) > 0 {
		fmt.Fprintf(w, "  Response: %s\n", hex.EncodeToString(ex.Response))
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseLayerFlag parses a layer name (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "protocol":
		return log.LayerProtocol, nil
	case "session":
		return log.LayerSession, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, protocol, or session)", s)
	}
}

// ParseDirectionFlag parses a direction name (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category name (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, state, or error)", s)
	}
}

// RunView prints the events of path matching filter.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if filter.match(event) {
			formatEvent(output, event)
		}
	}
	return nil
}
