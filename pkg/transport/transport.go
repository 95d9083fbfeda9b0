package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/omm-project/omm-go/pkg/wire"
)

// Transport errors.
var (
	// ErrTransportUnavailable indicates the host cannot provide the channel
	// at all (no HID backend, bridge unreachable).
	ErrTransportUnavailable = errors.New("transport unavailable")

	// ErrNoDeviceSelected indicates no device matched or the selection was
	// aborted.
	ErrNoDeviceSelected = errors.New("no device selected")

	// ErrNotOpen is returned by Send on a transport that is not open.
	ErrNotOpen = errors.New("transport not open")

	// ErrAlreadyOpen is returned by Open on an open transport.
	ErrAlreadyOpen = errors.New("transport already open")
)

// ReportHandler receives one inbound report. data is the report body
// without the report id and is owned by the handler.
type ReportHandler func(report wire.ReportID, data []byte)

// Transport is a bidirectional HID report channel owned by the caller.
type Transport interface {
	// Open acquires the underlying device and starts inbound delivery.
	Open(ctx context.Context) error

	// Close releases the device. Closing a closed transport is a no-op.
	Close() error

	// Send writes one report. data is the report body, header included.
	Send(report wire.ReportID, data []byte) error

	// SetReportHandler installs the inbound report callback. nil stops
	// delivery.
	SetReportHandler(h ReportHandler)

	// Info describes the opened device.
	Info() DeviceInfo
}

// DeviceInfo describes the device behind a transport.
type DeviceInfo struct {
	Name      string `cbor:"1,keyasint,omitempty" json:"name,omitempty"`
	VendorID  uint16 `cbor:"2,keyasint" json:"vendorId"`
	ProductID uint16 `cbor:"3,keyasint" json:"productId"`
	Path      string `cbor:"4,keyasint,omitempty" json:"path,omitempty"`
	Serial    string `cbor:"5,keyasint,omitempty" json:"serial,omitempty"`
	UsagePage uint16 `cbor:"6,keyasint,omitempty" json:"usagePage,omitempty"`
	Interface int    `cbor:"7,keyasint,omitempty" json:"interface,omitempty"`
}

// String returns a short human readable description.
func (d DeviceInfo) String() string {
	name := d.Name
	if name == "" {
		name = "unknown device"
	}
	return fmt.Sprintf("%s (%04x:%04x)", name, d.VendorID, d.ProductID)
}
