package wire

// ReportID selects the HID report class of a HID++ frame.
type ReportID uint8

const (
	// ReportShort carries up to 3 parameter bytes.
	ReportShort ReportID = 0x10

	// ReportLong carries up to 16 parameter bytes.
	ReportLong ReportID = 0x11

	// ReportVeryLong carries up to 60 parameter bytes.
	ReportVeryLong ReportID = 0x12
)

// Frame body lengths, header included.
const (
	ShortLen    = 6
	LongLen     = 19
	VeryLongLen = 63

	// HeaderLen is the size of the [device, feature, function|swid] header.
	HeaderLen = 3
)

// Len returns the fixed body length of the report class, or 0 for an
// unrecognized report id.
func (r ReportID) Len() int {
	switch r {
	case ReportShort:
		return ShortLen
	case ReportLong:
		return LongLen
	case ReportVeryLong:
		return VeryLongLen
	default:
		return 0
	}
}

// Valid reports whether r is one of the three HID++ report classes.
func (r ReportID) Valid() bool {
	return r.Len() != 0
}

// String returns the report class name.
func (r ReportID) String() string {
	switch r {
	case ReportShort:
		return "SHORT"
	case ReportLong:
		return "LONG"
	case ReportVeryLong:
		return "VERY_LONG"
	default:
		return "UNKNOWN"
	}
}

// ReportForParams picks the smallest report class able to carry n
// parameter bytes.
func ReportForParams(n int) ReportID {
	switch {
	case n <= ShortLen-HeaderLen:
		return ReportShort
	case n <= 16:
		return ReportLong
	default:
		return ReportVeryLong
	}
}

// Device addressing indices.
const (
	// DeviceWired addresses a device attached directly over USB.
	DeviceWired uint8 = 0xFF

	// DeviceBluetooth addresses a device paired over Bluetooth.
	DeviceBluetooth uint8 = 0x00

	// FirstReceiverChannel and LastReceiverChannel bound the unifying /
	// lightspeed receiver slots.
	FirstReceiverChannel uint8 = 1
	LastReceiverChannel  uint8 = 6
)

// ProbeOrder returns the addressing indices tried while connecting:
// wired, receiver channels 1 through 6, then bluetooth.
func ProbeOrder() []uint8 {
	order := []uint8{DeviceWired}
	for ch := FirstReceiverChannel; ch <= LastReceiverChannel; ch++ {
		order = append(order, ch)
	}
	return append(order, DeviceBluetooth)
}

// DeviceIndexName describes an addressing index for logs.
func DeviceIndexName(index uint8) string {
	switch {
	case index == DeviceWired:
		return "wired"
	case index == DeviceBluetooth:
		return "bluetooth"
	case index >= FirstReceiverChannel && index <= LastReceiverChannel:
		return "receiver"
	default:
		return "unknown"
	}
}
