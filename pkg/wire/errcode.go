package wire

import "fmt"

// ErrorFeatureIndex is the feature index of a HID++ 2.0 error report.
const ErrorFeatureIndex uint8 = 0x8F

// ErrorCode is the error carried by a HID++ 2.0 error report.
type ErrorCode uint8

const (
	ErrNoError             ErrorCode = 0x00
	ErrUnknown             ErrorCode = 0x01
	ErrInvalidArgument     ErrorCode = 0x02
	ErrOutOfRange          ErrorCode = 0x03
	ErrHardware            ErrorCode = 0x04
	ErrInternal            ErrorCode = 0x05
	ErrInvalidFeatureIndex ErrorCode = 0x06
	ErrInvalidFunctionID   ErrorCode = 0x07
	ErrBusy                ErrorCode = 0x08
	ErrUnsupported         ErrorCode = 0x09
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrNoError:
		return "NO_ERROR"
	case ErrUnknown:
		return "UNKNOWN"
	case ErrInvalidArgument:
		return "INVALID_ARGUMENT"
	case ErrOutOfRange:
		return "OUT_OF_RANGE"
	case ErrHardware:
		return "HARDWARE_ERROR"
	case ErrInternal:
		return "INTERNAL"
	case ErrInvalidFeatureIndex:
		return "INVALID_FEATURE_INDEX"
	case ErrInvalidFunctionID:
		return "INVALID_FUNCTION_ID"
	case ErrBusy:
		return "BUSY"
	case ErrUnsupported:
		return "UNSUPPORTED"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(c))
	}
}

// Message returns a human-readable description of the error code.
func (c ErrorCode) Message() string {
	switch c {
	case ErrNoError:
		return "success"
	case ErrUnknown:
		return "unknown error"
	case ErrInvalidArgument:
		return "invalid argument"
	case ErrOutOfRange:
		return "value out of range"
	case ErrHardware:
		return "hardware error"
	case ErrInternal:
		return "internal error"
	case ErrInvalidFeatureIndex:
		return "invalid feature index"
	case ErrInvalidFunctionID:
		return "invalid function id"
	case ErrBusy:
		return "device busy"
	case ErrUnsupported:
		return "not supported"
	default:
		return fmt.Sprintf("unknown error (0x%02x)", uint8(c))
	}
}
