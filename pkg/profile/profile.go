package profile

import (
	"fmt"
	"slices"
)

// Profile field limits.
const (
	StageCount      = 5
	MinDPI          = 100
	MaxDPI          = 25600
	DPIStep         = 50
	MaxNameLength   = 32
	MaxMacros       = 16
	MaxMacroActions = 256
	MaxMacroRepeat  = 255
	MinBrightness   = 0
	MaxBrightness   = 100
	MinSpeed        = 100
	MaxSpeed        = 5000
	MaxDefaultStage = StageCount - 1
)

// PollingRates lists the legal polling rates in Hz, slowest first.
var PollingRates = []int{125, 250, 500, 1000}

// ValidPollingRate reports whether hz is a legal polling rate.
func ValidPollingRate(hz int) bool {
	return slices.Contains(PollingRates, hz)
}

// Profile is one onboard configuration slot.
type Profile struct {
	Index           int                  `json:"index"`
	Name            string               `json:"name"`
	Enabled         bool                 `json:"enabled"`
	Visible         bool                 `json:"visible"`
	DPIStages       [StageCount]DPIStage `json:"dpiStages"`
	DPIShift        int                  `json:"dpiShift"`
	DefaultDPIStage int                  `json:"defaultDpiStage"`
	PollingRate     int                  `json:"pollingRate"`
	AngleSnapping   bool                 `json:"angleSnapping"`
	LOD             LOD                  `json:"lod"`
	RGB             RGB                  `json:"rgb"`
	Buttons         Buttons              `json:"buttons"`
	Macros          []Macro              `json:"macros"`
}

// ActiveStage returns the default DPI stage.
func (p Profile) ActiveStage() DPIStage {
	return p.DPIStages[p.DefaultDPIStage]
}

// DPIStage is one selectable sensitivity preset.
type DPIStage struct {
	Enabled bool  `json:"enabled"`
	X       int   `json:"x"`
	Y       int   `json:"y"`
	Color   Color `json:"color"`
}

// LOD is the lift-off distance.
type LOD string

// Lift-off distances.
const (
	LODLow    LOD = "low"
	LODMedium LOD = "medium"
	LODHigh   LOD = "high"
)

// Valid reports whether l is one of the three distances.
func (l LOD) Valid() bool {
	switch l {
	case LODLow, LODMedium, LODHigh:
		return true
	default:
		return false
	}
}

// Effect is a lighting effect.
type Effect string

// Lighting effects.
const (
	EffectOff       Effect = "off"
	EffectStatic    Effect = "static"
	EffectBreathing Effect = "breathing"
	EffectCycle     Effect = "cycle"
)

// Valid reports whether e is one of the four effects.
func (e Effect) Valid() bool {
	switch e {
	case EffectOff, EffectStatic, EffectBreathing, EffectCycle:
		return true
	default:
		return false
	}
}

// Code returns the device mode code of e.
func (e Effect) Code() uint8 {
	switch e {
	case EffectOff:
		return 0
	case EffectCycle:
		return 3
	case EffectBreathing:
		return 10
	default:
		return 1
	}
}

// EffectFromCode maps a device mode code back to an effect.
func EffectFromCode(code uint8) (Effect, bool) {
	switch code {
	case 0:
		return EffectOff, true
	case 1:
		return EffectStatic, true
	case 3:
		return EffectCycle, true
	case 10:
		return EffectBreathing, true
	default:
		return "", false
	}
}

// Zone selects a lighting zone.
type Zone int

// Lighting zones. ZoneAll addresses both and marks them synchronized.
const (
	ZoneLogo Zone = 0
	ZoneDPI  Zone = 1
	ZoneAll  Zone = -1
)

// String returns the zone name.
func (z Zone) String() string {
	switch z {
	case ZoneLogo:
		return "logo"
	case ZoneDPI:
		return "dpi"
	case ZoneAll:
		return "both"
	default:
		return fmt.Sprintf("zone(%d)", int(z))
	}
}

// ParseZone accepts logo, dpi, both or all.
func ParseZone(s string) (Zone, error) {
	switch s {
	case "logo":
		return ZoneLogo, nil
	case "dpi":
		return ZoneDPI, nil
	case "both", "all":
		return ZoneAll, nil
	default:
		return 0, fmt.Errorf("unknown lighting zone %q", s)
	}
}

// Lighting is the state of one zone.
type Lighting struct {
	Effect     Effect `json:"effect"`
	Color      Color  `json:"color"`
	Brightness int    `json:"brightness"`
	Speed      int    `json:"speed"`
}

// BrightnessByte scales the 0..100 brightness to 0..255.
func (l Lighting) BrightnessByte() uint8 {
	return brightnessToByte(l.Brightness)
}

// RGB holds both lighting zones.
type RGB struct {
	Logo Lighting `json:"logo"`
	DPI  Lighting `json:"dpi"`

	// SyncZones is set when the last write applied to both zones.
	SyncZones bool `json:"syncZones"`
}

// Zone returns the lighting of z. ZoneAll returns the logo zone.
func (r RGB) Zone(z Zone) Lighting {
	if z == ZoneDPI {
		return r.DPI
	}
	return r.Logo
}

// Set writes l to z with the synchronization rule: ZoneAll writes both
// zones and sets SyncZones, a single zone clears it.
func (r *RGB) Set(z Zone, l Lighting) {
	switch z {
	case ZoneAll:
		r.Logo = l
		r.DPI = l
		r.SyncZones = true
	case ZoneDPI:
		r.DPI = l
		r.SyncZones = false
	default:
		r.Logo = l
		r.SyncZones = false
	}
}

// Macro is a recorded action sequence.
type Macro struct {
	Name    string        `json:"name"`
	Repeat  int           `json:"repeat"`
	Actions []MacroAction `json:"actions"`
}

// MacroActionType is the kind of a macro step.
type MacroActionType string

// Macro step kinds.
const (
	MacroKeyDown   MacroActionType = "keydown"
	MacroKeyUp     MacroActionType = "keyup"
	MacroDelay     MacroActionType = "delay"
	MacroMouseDown MacroActionType = "mousedown"
	MacroMouseUp   MacroActionType = "mouseup"
	MacroWheel     MacroActionType = "wheel"
	MacroMove      MacroActionType = "move"
)

// Valid reports whether t is a known step kind.
func (t MacroActionType) Valid() bool {
	switch t {
	case MacroKeyDown, MacroKeyUp, MacroDelay, MacroMouseDown, MacroMouseUp, MacroWheel, MacroMove:
		return true
	default:
		return false
	}
}

// MacroAction is one macro step. Value depends on the type: a key name,
// a delay in milliseconds, a mouse button, a wheel delta or a move vector.
type MacroAction struct {
	Type      MacroActionType `json:"type"`
	Value     any             `json:"value,omitempty"`
	Modifiers []string        `json:"modifiers,omitempty"`
}

// FallbackMacroAction replaces steps of unknown type.
var FallbackMacroAction = MacroAction{Type: MacroDelay, Value: 10}
