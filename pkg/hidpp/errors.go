package hidpp

import (
	"errors"
	"fmt"

	"github.com/omm-project/omm-go/pkg/transport"
	"github.com/omm-project/omm-go/pkg/wire"
)

// Engine errors.
var (
	// ErrTransportUnavailable is re-exported from the transport package.
	ErrTransportUnavailable = transport.ErrTransportUnavailable

	// ErrNoDeviceSelected is re-exported from the transport package.
	ErrNoDeviceSelected = transport.ErrNoDeviceSelected

	// ErrConnectionFailed indicates the transport could not be opened.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrAlreadyConnected is returned by Connect on a live session.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrNotConnected is returned by requests issued outside a session.
	ErrNotConnected = errors.New("not connected")

	// ErrUnsupportedFeature indicates the device does not implement the
	// feature an operation needs.
	ErrUnsupportedFeature = errors.New("unsupported feature")

	// ErrTimeout indicates no response arrived within the request timeout.
	ErrTimeout = errors.New("request timeout")

	// ErrConnectionClosed rejects requests still pending at disconnect.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrInvalidArgument indicates a value the device cannot accept.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ProtocolError is a HID++ error report received in answer to a request.
type ProtocolError struct {
	Code wire.ErrorCode
}

// Error implements error.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("hid++ error 0x%02x %s: %s", uint8(e.Code), e.Code, e.Code.Message())
}

// Is matches any ProtocolError with the same code.
func (e *ProtocolError) Is(target error) bool {
	var pe *ProtocolError
	if !errors.As(target, &pe) {
		return false
	}
	return pe.Code == e.Code
}

// unsupported wraps ErrUnsupportedFeature with the feature name.
func unsupported(id wire.FeatureID) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedFeature, id)
}
