package transport

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/omm-project/omm-go/pkg/log"
	"github.com/omm-project/omm-go/pkg/wire"
)

func TestFrameWriterReader(t *testing.T) {
	tests := []struct {
		name   string
		report wire.ReportID
		data   []byte
	}{
		{"short report", wire.ReportShort, []byte{0xFF, 0x00, 0x1A, 0x00, 0x00, 0x00}},
		{"long report", wire.ReportLong, bytes.Repeat([]byte{0x11}, wire.LongLen)},
		{"very long report", wire.ReportVeryLong, bytes.Repeat([]byte{0x22}, wire.VeryLongLen)},
		{"empty body", wire.ReportShort, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)

			if err := NewFrameWriter(buf).WriteReport(tt.report, tt.data); err != nil {
				t.Fatalf("WriteReport failed: %v", err)
			}

			wantSize := LengthPrefixSize + 1 + len(tt.data)
			if buf.Len() != wantSize {
				t.Errorf("frame size = %d, want %d", buf.Len(), wantSize)
			}

			report, data, err := NewFrameReader(buf).ReadReport()
			if err != nil {
				t.Fatalf("ReadReport failed: %v", err)
			}
			if report != tt.report {
				t.Errorf("report = %v, want %v", report, tt.report)
			}
			if !bytes.Equal(data, tt.data) {
				t.Errorf("data = % x, want % x", data, tt.data)
			}
		})
	}
}

func TestFrameWireLayout(t *testing.T) {
	buf := new(bytes.Buffer)
	if err := NewFrameWriter(buf).WriteReport(wire.ReportShort, []byte{0xAA, 0xBB}); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x00, 0x03, 0x10, 0xAA, 0xBB}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("encoded = % x, want % x", buf.Bytes(), want)
	}
}

func TestFrameWriterTooLarge(t *testing.T) {
	err := NewFrameWriter(io.Discard).WriteReport(wire.ReportLong, make([]byte, DefaultMaxFrameSize))
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestFrameReaderErrors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  error
	}{
		{"clean eof", nil, io.EOF},
		{"partial prefix", []byte{0x00}, ErrFrameTruncated},
		{"empty frame", []byte{0x00, 0x00}, ErrFrameEmpty},
		{"oversized frame", []byte{0xFF, 0xFF}, ErrFrameTooLarge},
		{"truncated payload", []byte{0x00, 0x05, 0x10, 0x01}, ErrFrameTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewFrameReader(bytes.NewReader(tt.input)).ReadReport()
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFrameMultipleReports(t *testing.T) {
	buf := new(bytes.Buffer)
	w := NewFrameWriter(buf)
	for i := range 5 {
		if err := w.WriteReport(wire.ReportShort, []byte{byte(i)}); err != nil {
			t.Fatal(err)
		}
	}

	r := NewFrameReader(buf)
	for i := range 5 {
		_, data, err := r.ReadReport()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if data[0] != byte(i) {
			t.Errorf("frame %d: data = %d", i, data[0])
		}
	}
	if _, _, err := r.ReadReport(); err != io.EOF {
		t.Errorf("expected io.EOF after last frame, got %v", err)
	}
}

func TestFramerLogging(t *testing.T) {
	var mu sync.Mutex
	var events []log.Event
	capture := log.LoggerFunc(func(e log.Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	buf := new(bytes.Buffer)
	f := NewFramer(buf)
	f.SetLogger(capture, "conn-1")

	if err := f.WriteReport(helloReport, []byte{0x01}); err != nil {
		t.Fatal(err)
	}
	if err := f.WriteReport(wire.ReportShort, []byte{0xFF, 0x00, 0x1A}); err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if _, _, err := f.ReadReport(); err != nil {
			t.Fatal(err)
		}
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 events (hello frames are not captured), got %d", len(events))
	}
	if events[0].Direction != log.DirectionOut || events[1].Direction != log.DirectionIn {
		t.Errorf("directions = %v, %v", events[0].Direction, events[1].Direction)
	}
	for _, e := range events {
		if e.SessionID != "conn-1" {
			t.Errorf("session = %q", e.SessionID)
		}
		if e.Frame == nil || e.Frame.ReportID != uint8(wire.ReportShort) {
			t.Errorf("frame = %+v", e.Frame)
		}
	}
}
