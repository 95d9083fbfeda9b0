// Package profile models onboard mouse profiles and their storage formats.
//
// A Profile is one configuration slot: five DPI stages, a polling rate,
// two lighting zones, seven remappable buttons and a list of macros. The
// package provides:
//
//   - Default profiles and the field invariants (ClampDPI, legal polling
//     rates, lighting ranges).
//   - The 256-byte onboard block codec (Encode, Decode) with its trailing
//     CRC16-CCITT checksum (Checksum, Verify).
//   - Normalization of loosely structured JSON into a valid Profile
//     (Normalize, NormalizeJSON).
//   - The export envelope and a concurrency-safe Manager holding the
//     profile set of one device.
//
// Decode is total: any byte content yields a valid Profile, substituting
// defaults for unrecognized encodings. Integrity checking is the separate
// Verify step.
package profile
