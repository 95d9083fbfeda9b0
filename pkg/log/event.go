package log

import (
	"time"
)

// Event is a protocol capture record. Exactly one of the type-specific
// payload fields is set. CBOR encoding uses integer keys.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the device session (UUID), one per connect.
	SessionID string `cbor:"2,keyasint"`

	Direction Direction `cbor:"3,keyasint"`
	Layer     Layer     `cbor:"4,keyasint"`
	Category  Category  `cbor:"5,keyasint"`

	// Device is the product name reported by the transport, if known.
	Device string `cbor:"6,keyasint,omitempty"`

	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Exchange    *ExchangeEvent    `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
}

// Direction indicates the direction of traffic.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates where the event was captured.
type Layer uint8

const (
	// LayerTransport is raw HID reports.
	LayerTransport Layer = 0
	// LayerProtocol is decoded HID++ request/response exchanges.
	LayerProtocol Layer = 1
	// LayerSession is connection lifecycle.
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerProtocol:
		return "PROTOCOL"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event.
type Category uint8

const (
	CategoryMessage Category = 0
	CategoryState   Category = 1
	CategoryError   Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures one HID report as it crossed the transport.
type FrameEvent struct {
	// ReportID is the HID report id (0x10 short, 0x11 long, 0x12 very long).
	ReportID uint8 `cbor:"1,keyasint"`

	// Data is the report body, header included.
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Discarded marks inbound reports that matched no pending request or
	// carried an unrecognized report id.
	Discarded bool `cbor:"3,keyasint,omitempty"`
}

// ExchangeEvent captures the outcome of one request.
type ExchangeEvent struct {
	DeviceIndex  uint8 `cbor:"1,keyasint"`
	FeatureIndex uint8 `cbor:"2,keyasint"`
	Function     uint8 `cbor:"3,keyasint"`
	SoftwareID   uint8 `cbor:"4,keyasint"`

	// FeatureID is set when the request was issued by feature id.
	FeatureID *uint16 `cbor:"5,keyasint,omitempty"`

	Outcome Outcome `cbor:"6,keyasint"`

	// ErrorCode is the HID++ error code for OutcomeProtocolError.
	ErrorCode *uint8 `cbor:"7,keyasint,omitempty"`

	// Params and Response are the parameter bytes sent and payload received.
	Params   []byte `cbor:"8,keyasint,omitempty"`
	Response []byte `cbor:"9,keyasint,omitempty"`

	// RoundTrip is the time from send to resolution (nanoseconds).
	RoundTrip time.Duration `cbor:"10,keyasint,omitempty"`
}

// Outcome is how a request resolved.
type Outcome uint8

const (
	OutcomeSuccess       Outcome = 0
	OutcomeProtocolError Outcome = 1
	OutcomeTimeout       Outcome = 2
	OutcomeClosed        Outcome = 3
	OutcomeCanceled      Outcome = 4
	OutcomeSendFailed    Outcome = 5
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "SUCCESS"
	case OutcomeProtocolError:
		return "PROTOCOL_ERROR"
	case OutcomeTimeout:
		return "TIMEOUT"
	case OutcomeClosed:
		return "CLOSED"
	case OutcomeCanceled:
		return "CANCELED"
	case OutcomeSendFailed:
		return "SEND_FAILED"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures session lifecycle transitions.
type StateChangeEvent struct {
	OldState string `cbor:"1,keyasint,omitempty"`
	NewState string `cbor:"2,keyasint"`

	// Reason for the change, e.g. which addressing index answered a probe.
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`

	// Context describes the operation in progress.
	Context string `cbor:"3,keyasint,omitempty"`
}
