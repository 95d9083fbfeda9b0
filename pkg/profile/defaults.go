package profile

import (
	"fmt"
	"math"
)

// Defaults.
const (
	DefaultStage       = 1
	DefaultPollingRate = 1000
	DefaultDPIShift    = 400
	DefaultBrightness  = 100
	DefaultSpeed       = 1000
)

// DefaultStageDPI are the stage sensitivities of a fresh profile. Stages
// past the third start disabled.
var DefaultStageDPI = [StageCount]int{800, 1600, 3200, 6400, 12800}

// DefaultStageColors are the indicator colors of the DPI stages.
var DefaultStageColors = [StageCount]Color{
	{0x00, 0xFF, 0x00},
	{0xFF, 0xFF, 0x00},
	{0x00, 0xFF, 0xFF},
	{0xFF, 0x00, 0xFF},
	{0xFF, 0x00, 0x00},
}

// DefaultColor is the lighting color of a fresh profile.
var DefaultColor = Color{0x00, 0xD4, 0xAA}

// DefaultLighting returns the lighting of a fresh zone.
func DefaultLighting() Lighting {
	return Lighting{
		Effect:     EffectStatic,
		Color:      DefaultColor,
		Brightness: DefaultBrightness,
		Speed:      DefaultSpeed,
	}
}

// DefaultButtons returns the factory button mapping.
func DefaultButtons() Buttons {
	return Buttons{
		ButtonLeft:    FunctionAction("click"),
		ButtonRight:   FunctionAction("context"),
		ButtonMiddle:  FunctionAction("middle_click"),
		ButtonBack:    FunctionAction("back"),
		ButtonForward: FunctionAction("forward"),
		ButtonDPI:     FunctionAction("dpi_cycle"),
		ButtonGShift:  FunctionAction("gshift"),
	}
}

func defaultStage(i int) DPIStage {
	return DPIStage{
		Enabled: i < 3,
		X:       DefaultStageDPI[i],
		Y:       DefaultStageDPI[i],
		Color:   DefaultStageColors[i],
	}
}

// Default returns a fresh profile for slot index.
func Default(index int) Profile {
	p := Profile{
		Index:           index,
		Name:            fmt.Sprintf("Profile %d", index+1),
		Enabled:         true,
		Visible:         true,
		DPIShift:        DefaultDPIShift,
		DefaultDPIStage: DefaultStage,
		PollingRate:     DefaultPollingRate,
		AngleSnapping:   false,
		LOD:             LODMedium,
		RGB: RGB{
			Logo:      DefaultLighting(),
			DPI:       DefaultLighting(),
			SyncZones: true,
		},
		Buttons: DefaultButtons(),
		Macros:  []Macro{},
	}
	for i := range p.DPIStages {
		p.DPIStages[i] = defaultStage(i)
	}
	return p
}

// ClampDPI bounds v to [MinDPI, MaxDPI] and rounds it to the nearest
// DPIStep.
func ClampDPI(v int) int {
	v = clamp(v, MinDPI, MaxDPI)
	v = int(math.Round(float64(v)/DPIStep)) * DPIStep
	return clamp(v, MinDPI, MaxDPI)
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func brightnessToByte(percent int) uint8 {
	return uint8(math.Round(float64(clamp(percent, MinBrightness, MaxBrightness)) * 2.55))
}

func brightnessFromByte(b uint8) int {
	return int(math.Round(float64(b) / 2.55))
}
