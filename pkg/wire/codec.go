package wire

import (
	"errors"
	"fmt"
)

// Codec errors.
var (
	// ErrUnknownReport indicates a report id outside the three HID++ classes.
	ErrUnknownReport = errors.New("unknown report id")

	// ErrFrameTooShort indicates a body shorter than the 3-byte header.
	ErrFrameTooShort = errors.New("frame shorter than header")

	// ErrParamsTooLong indicates more parameters than the report class holds.
	ErrParamsTooLong = errors.New("parameters exceed report length")
)

// Key identifies an in-flight request: the addressing index, the feature
// index it targets and its software id.
type Key struct {
	DeviceIndex  uint8
	FeatureIndex uint8
	SoftwareID   uint8
}

// String formats the key as dev-feature-swid.
func (k Key) String() string {
	return fmt.Sprintf("%02x-%02x-%x", k.DeviceIndex, k.FeatureIndex, k.SoftwareID)
}

// Frame is a decoded HID++ 2.0 report body.
type Frame struct {
	Report       ReportID
	DeviceIndex  uint8
	FeatureIndex uint8
	Function     uint8
	SoftwareID   uint8

	// Params holds every byte after the header, padding included.
	Params []byte
}

// NewRequest builds a request frame, choosing the report class from the
// parameter count.
func NewRequest(deviceIndex, featureIndex, function, softwareID uint8, params []byte) Frame {
	return Frame{
		Report:       ReportForParams(len(params)),
		DeviceIndex:  deviceIndex,
		FeatureIndex: featureIndex,
		Function:     function & 0x0F,
		SoftwareID:   softwareID & 0x0F,
		Params:       params,
	}
}

// Encode returns the zero-padded report body for f.Report.
func (f Frame) Encode() ([]byte, error) {
	size := f.Report.Len()
	if size == 0 {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownReport, uint8(f.Report))
	}
	if HeaderLen+len(f.Params) > size {
		return nil, fmt.Errorf("%w: %d > %d", ErrParamsTooLong, len(f.Params), size-HeaderLen)
	}

	buf := make([]byte, size)
	buf[0] = f.DeviceIndex
	buf[1] = f.FeatureIndex
	buf[2] = f.Function<<4 | f.SoftwareID&0x0F
	copy(buf[HeaderLen:], f.Params)
	return buf, nil
}

// DecodeFrame parses a report body received under report id r.
func DecodeFrame(r ReportID, data []byte) (Frame, error) {
	if !r.Valid() {
		return Frame{}, fmt.Errorf("%w: 0x%02x", ErrUnknownReport, uint8(r))
	}
	if len(data) < HeaderLen {
		return Frame{}, ErrFrameTooShort
	}

	params := make([]byte, len(data)-HeaderLen)
	copy(params, data[HeaderLen:])

	return Frame{
		Report:       r,
		DeviceIndex:  data[0],
		FeatureIndex: data[1],
		Function:     data[2] >> 4,
		SoftwareID:   data[2] & 0x0F,
		Params:       params,
	}, nil
}

// IsError reports whether f is a HID++ 2.0 error report.
func (f Frame) IsError() bool {
	return f.FeatureIndex == ErrorFeatureIndex
}

// ErrorCode returns the code of an error report (body offset 4).
func (f Frame) ErrorCode() ErrorCode {
	if len(f.Params) < 2 {
		return ErrUnknown
	}
	return ErrorCode(f.Params[1])
}

// Key returns the correlation key of f. Error reports echo the original
// feature index and function byte after the 0x8F marker, so their key is
// built from those echoed bytes.
func (f Frame) Key() Key {
	if f.IsError() {
		var sw uint8
		if len(f.Params) > 0 {
			sw = f.Params[0] & 0x0F
		}
		return Key{
			DeviceIndex:  f.DeviceIndex,
			FeatureIndex: f.Function<<4 | f.SoftwareID,
			SoftwareID:   sw,
		}
	}
	return Key{
		DeviceIndex:  f.DeviceIndex,
		FeatureIndex: f.FeatureIndex,
		SoftwareID:   f.SoftwareID,
	}
}
