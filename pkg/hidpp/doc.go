// Package hidpp implements the host side of the HID++ 2.0 protocol for
// Logitech gaming mice.
//
// A Device owns one Transport and runs a session over it: Connect opens the
// transport, probes the addressing indices (wired, receiver channels 1-6,
// bluetooth) with root pings and reads the device identity. Requests are
// addressed by feature id; the feature index each id resolves to is cached
// for the session. Every request takes a software id slot (1-15) so that up
// to fifteen requests can be in flight per feature index, and responses are
// matched back to their request by (addressing index, feature index,
// software id).
//
// Typed operations cover adjustable DPI, report rate, onboard profiles,
// RGB effects, battery and device name. All blocking calls take a context
// and are bounded by Config.RequestTimeout.
package hidpp
