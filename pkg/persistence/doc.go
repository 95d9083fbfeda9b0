// Package persistence stores the host-side profile set between runs.
//
// Each device gets one JSON file holding the last export of its profile
// set and the selected slot. Profiles are normalized again on load, so a
// hand-edited file cannot inject out-of-range values.
package persistence
