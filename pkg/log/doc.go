// Package log captures HID++ protocol traffic.
//
// It is separate from operational logging (slog). A capture is a complete,
// machine-readable trace of what crossed the transport and how each request
// resolved, meant for debugging device quirks after the fact.
//
// # Basic Usage
//
//	// Console while developing
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// File capture
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/tmp/mouse.olog")
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(console, file)
//
// # Event Types
//
//   - Transport layer: raw report bytes (FrameEvent)
//   - Protocol layer: one ExchangeEvent per request once it resolves
//   - Session layer: connect, probe and disconnect transitions
//     (StateChangeEvent)
//
// Errors at any layer use ErrorEventData.
//
// # File Format
//
// Capture files are a stream of CBOR-encoded events (.olog). The omm-log
// command views, exports and summarizes them.
package log
