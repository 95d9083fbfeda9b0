// Package wire defines the HID++ 2.0 wire vocabulary.
//
// HID++ 2.0 is carried in fixed-size HID reports. Every report body starts
// with a 3-byte header followed by zero-padded parameters:
//
//	[deviceIndex, featureIndex, (function<<4)|softwareID, params...]
//
// # Report Classes
//
// Three report ids select the body length (header included, report id
// excluded):
//   - Short (0x10): 6 bytes
//   - Long (0x11): 19 bytes
//   - Very long (0x12): 63 bytes
//
// # Feature Indices
//
// Features are named by stable 16-bit identifiers (see Features) but
// addressed on the wire by an 8-bit index the device assigns per session.
// The root feature (0x0000) is always at index 0 and resolves the others.
//
// # Errors
//
// A device answers a failed request with an error report whose feature index
// is 0x8F. The original feature index and function byte follow, then the
// error code:
//
//	[deviceIndex, 0x8F, featureIndex, (function<<4)|softwareID, code]
package wire
