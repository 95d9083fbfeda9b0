package log

import (
	"bytes"
	"testing"
	"time"
)

func TestEventCBORRoundTrip(t *testing.T) {
	fid := uint16(0x2201)
	code := uint8(0x02)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)

	tests := []struct {
		name  string
		event Event
	}{
		{
			name: "frame",
			event: Event{
				Timestamp: ts,
				SessionID: "session-1",
				Direction: DirectionOut,
				Layer:     LayerTransport,
				Category:  CategoryMessage,
				Frame:     &FrameEvent{ReportID: 0x10, Data: []byte{0xFF, 0x00, 0x11, 0x22, 0x01, 0x00}},
			},
		},
		{
			name: "exchange with error",
			event: Event{
				Timestamp: ts,
				SessionID: "session-1",
				Direction: DirectionIn,
				Layer:     LayerProtocol,
				Category:  CategoryError,
				Exchange: &ExchangeEvent{
					DeviceIndex:  0xFF,
					FeatureIndex: 0x0A,
					Function:     2,
					SoftwareID:   3,
					FeatureID:    &fid,
					Outcome:      OutcomeProtocolError,
					ErrorCode:    &code,
					RoundTrip:    1500 * time.Microsecond,
				},
			},
		},
		{
			name: "state change",
			event: Event{
				Timestamp:   ts,
				SessionID:   "session-2",
				Layer:       LayerSession,
				Category:    CategoryState,
				StateChange: &StateChangeEvent{OldState: "PROBING", NewState: "CONNECTED", Reason: "wired"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeEvent(tt.event)
			if err != nil {
				t.Fatalf("EncodeEvent failed: %v", err)
			}
			got, err := DecodeEvent(data)
			if err != nil {
				t.Fatalf("DecodeEvent failed: %v", err)
			}
			if !got.Timestamp.Equal(tt.event.Timestamp) {
				t.Errorf("Timestamp: got %v, want %v", got.Timestamp, tt.event.Timestamp)
			}
			if got.SessionID != tt.event.SessionID || got.Layer != tt.event.Layer || got.Category != tt.event.Category {
				t.Errorf("header mismatch: got %+v", got)
			}
			switch {
			case tt.event.Frame != nil:
				if got.Frame == nil || !bytes.Equal(got.Frame.Data, tt.event.Frame.Data) {
					t.Errorf("Frame mismatch: %+v", got.Frame)
				}
			case tt.event.Exchange != nil:
				if got.Exchange == nil || got.Exchange.ErrorCode == nil || *got.Exchange.ErrorCode != code {
					t.Fatalf("Exchange mismatch: %+v", got.Exchange)
				}
				if got.Exchange.RoundTrip != tt.event.Exchange.RoundTrip {
					t.Errorf("RoundTrip: got %v", got.Exchange.RoundTrip)
				}
				if got.Exchange.FeatureID == nil || *got.Exchange.FeatureID != fid {
					t.Errorf("FeatureID mismatch")
				}
			case tt.event.StateChange != nil:
				if got.StateChange == nil || *got.StateChange != *tt.event.StateChange {
					t.Errorf("StateChange mismatch: %+v", got.StateChange)
				}
			}
		})
	}
}

func TestEnumStrings(t *testing.T) {
	if DirectionOut.String() != "OUT" || Direction(9).String() != "UNKNOWN" {
		t.Error("Direction.String mismatch")
	}
	if LayerProtocol.String() != "PROTOCOL" {
		t.Error("Layer.String mismatch")
	}
	if OutcomeTimeout.String() != "TIMEOUT" {
		t.Error("Outcome.String mismatch")
	}
}
