package profile

import (
	"encoding/json"
	"fmt"
	"time"
)

// EnvelopeVersion is written into every export.
const EnvelopeVersion = "1.0"

// DeviceRef names the device an export was taken from.
type DeviceRef struct {
	Name string `json:"name"`
	PID  uint16 `json:"pid"`
}

// Envelope is the export format. Exactly one of Profile and Profiles is
// set.
type Envelope struct {
	Version  string     `json:"version"`
	Exported time.Time  `json:"exported"`
	Device   *DeviceRef `json:"device"`
	Profile  *Profile   `json:"profile,omitempty"`
	Profiles []Profile  `json:"profiles,omitempty"`
}

// ParseEnvelope reads an export and normalizes the contained profiles.
// A single-profile export yields one profile; a multi-profile export yields
// them reindexed from zero. The second result reports which form was read.
func ParseEnvelope(data []byte) (profiles []Profile, multi bool, err error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidProfileData, err)
	}

	if single, ok := raw["profile"].(map[string]any); ok {
		return []Profile{Normalize(single)}, false, nil
	}

	if list, ok := raw["profiles"].([]any); ok {
		profiles = make([]Profile, 0, len(list))
		for i, item := range list {
			m, _ := item.(map[string]any)
			p := Normalize(m)
			p.Index = i
			profiles = append(profiles, p)
		}
		return profiles, true, nil
	}

	return nil, false, fmt.Errorf("%w: neither profile nor profiles present", ErrInvalidProfileData)
}
