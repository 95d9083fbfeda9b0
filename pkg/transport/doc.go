// Package transport provides the report channels the HID++ engine talks
// through.
//
// A Transport carries whole HID reports: the report id travels separately
// from the report body, and the body always starts with the 3-byte HID++
// header. Implementations:
//
//   - HID opens a hidraw/hidapi interface of a Logitech receiver or mouse
//     using github.com/sstallion/go-hid.
//   - Pipe is an in-memory pair used by the device simulator and tests.
//   - BridgeClient reaches a Transport exported by a BridgeServer on
//     another host over TCP.
//
// Inbound reports are delivered to the handler registered with
// SetReportHandler from a single goroutine per transport, in arrival order.
package transport
