// Package discovery advertises and finds HID++ bridges on the local network
// with mDNS/DNS-SD.
//
// A host exporting a mouse over TCP (transport.BridgeServer) registers one
// _omm-hidpp._tcp instance. TXT records describe the device behind it:
//
//	name  product name reported by the transport
//	vid   USB vendor id, 4 hex digits
//	pid   USB product id, 4 hex digits
//	ver   bridge framing version
//
// Browsers aggregate the addresses an instance is announced on across
// interfaces and emit each instance once.
package discovery
