package profile

import (
	"encoding/hex"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumReferenceVectors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  uint16
	}{
		{"empty", nil, 0xFFFF},
		{"check string", []byte("123456789"), 0x29B1},
		{"zero block body", make([]byte, BlockSize-2), 0x592D},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Checksum(tt.input), "0x%04x", Checksum(tt.input))
		})
	}
}

func TestEncodeDefaultLayout(t *testing.T) {
	block := Encode(Default(0))

	want, err := hex.DecodeString(
		"01010000" + // rate 1000 Hz, default stage 1, reserved
			"01032000" + "01064000" + "010c8000" + "00190000" + "00320000" +
			strings.Repeat("00", 8) +
			"0100d4aaff03e8" +
			strings.Repeat("00", 25) +
			"80500000" + "80510000" + "80520000" + "80530000" + "80560000" + "804f0000" + "80580000")
	require.NoError(t, err)
	require.Len(t, want, 92)

	assert.Equal(t, want, block[:92])
	assert.Equal(t, make([]byte, 254-92), block[92:254])
	assert.Equal(t, []byte{0x25, 0xC7}, block[254:])
	assert.NoError(t, Verify(block[:]))
}

func TestEncodeButtonRecords(t *testing.T) {
	p := Default(0)
	p.Buttons[ButtonLeft] = KeyAction("Enter", ModCtrl|ModShift)
	p.Buttons[ButtonRight] = MacroButton(3)
	p.Buttons[ButtonMiddle] = Disabled()
	p.Buttons[ButtonBack] = FunctionAction("no_such_function")
	p.Buttons[ButtonForward] = KeyAction("enter", 0)

	b := Encode(p)
	assert.Equal(t, []byte{0x90, 0x03, 0x28, 0x00}, b[64:68])
	assert.Equal(t, []byte{0xA0, 0x03, 0x00, 0x00}, b[68:72])
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00}, b[72:76])
	assert.Equal(t, []byte{0x80, 0x50, 0x00, 0x00}, b[76:80], "unknown function encodes as click")
	assert.Equal(t, []byte{0x90, 0x00, 0x28, 0x00}, b[80:84], "key names match case-insensitively")
}

func TestEncodeLighting(t *testing.T) {
	p := Default(0)
	p.RGB.Set(ZoneLogo, Lighting{Effect: EffectBreathing, Color: RGBColor(0x12, 0x34, 0x56), Brightness: 50, Speed: 2500})
	p.RGB.Set(ZoneDPI, Lighting{Effect: EffectCycle, Color: RGBColor(1, 2, 3), Brightness: 10, Speed: 100})

	b := Encode(p)
	assert.Equal(t, []byte{10, 0x12, 0x34, 0x56, 127, 0x09, 0xC4}, b[32:39], "only the logo zone is stored")
}

func TestVerify(t *testing.T) {
	block := Encode(Default(2))
	require.NoError(t, Verify(block[:]))

	block[10] ^= 0xFF
	assert.ErrorIs(t, Verify(block[:]), ErrChecksumMismatch)

	assert.ErrorIs(t, Verify(block[:100]), ErrBlockSize)
}

func TestDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Profile)
	}{
		{"defaults", func(*Profile) {}},
		{"stages", func(p *Profile) {
			p.DPIStages[0] = DPIStage{Enabled: false, X: 100, Y: 100, Color: DefaultStageColors[0]}
			p.DPIStages[3] = DPIStage{Enabled: true, X: 25600, Y: 25600, Color: DefaultStageColors[3]}
			p.DefaultDPIStage = 4
		}},
		{"polling rate", func(p *Profile) { p.PollingRate = 125 }},
		{"lighting", func(p *Profile) {
			p.RGB.Logo = Lighting{Effect: EffectOff, Color: RGBColor(0xFF, 0x80, 0x01), Brightness: 37, Speed: 5000}
		}},
		{"buttons", func(p *Profile) {
			p.Buttons[ButtonLeft] = KeyAction("F12", ModAlt|ModRGUI)
			p.Buttons[ButtonDPI] = MacroButton(15)
			p.Buttons[ButtonGShift] = Disabled()
			p.Buttons[ButtonBack] = FunctionAction("profile_cycle")
			p.Buttons[ButtonForward] = FunctionAction("disabled")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Default(1)
			tt.mutate(&p)
			block := Encode(p)
			assert.Equal(t, p, Decode(block[:], 1))
		})
	}
}

func TestDecodeCollapsesLossyFields(t *testing.T) {
	p := Default(0)
	p.DPIStages[2].Y = 400
	p.RGB.Set(ZoneDPI, Lighting{Effect: EffectCycle, Color: RGBColor(9, 9, 9), Brightness: 5, Speed: 300})

	block := Encode(p)
	got := Decode(block[:], 0)

	assert.Equal(t, p.DPIStages[2].X, got.DPIStages[2].Y, "y collapses to x")
	assert.Equal(t, p.RGB.Logo, got.RGB.Logo)
	assert.Equal(t, DefaultLighting(), got.RGB.DPI, "dpi zone is not stored")
	assert.True(t, got.RGB.SyncZones)
}

func TestMergeOnboardKeepsHostFields(t *testing.T) {
	local := Default(1)
	local.Name = "Desk"
	local.LOD = LODLow
	local.DPIShift = 400
	local.AngleSnapping = true
	local.DPIStages[0].Color = RGBColor(1, 2, 3)
	local.Macros = []Macro{{Name: "copy", Actions: []MacroAction{{Type: MacroDelay, Value: 10}}}}
	local.RGB.Set(ZoneDPI, Lighting{Effect: EffectCycle, Color: RGBColor(7, 7, 7), Brightness: 40, Speed: 500})

	dev := Default(1)
	dev.PollingRate = 250
	dev.DefaultDPIStage = 3
	dev.DPIStages[0] = DPIStage{Enabled: false, X: 3200, Y: 3200, Color: DefaultStageColors[0]}
	dev.RGB.Logo = Lighting{Effect: EffectBreathing, Color: RGBColor(0, 0, 255), Brightness: 60, Speed: 2000}
	dev.Buttons[ButtonBack] = KeyAction("c", ModCtrl)

	got := MergeOnboard(local, dev)

	assert.Equal(t, 250, got.PollingRate)
	assert.Equal(t, 3, got.DefaultDPIStage)
	assert.Equal(t, DPIStage{Enabled: false, X: 3200, Y: 3200, Color: RGBColor(1, 2, 3)}, got.DPIStages[0])
	assert.Equal(t, dev.RGB.Logo, got.RGB.Logo)
	assert.Equal(t, local.RGB.DPI, got.RGB.DPI)
	assert.Equal(t, dev.Buttons, got.Buttons)

	assert.Equal(t, "Desk", got.Name)
	assert.Equal(t, LODLow, got.LOD)
	assert.Equal(t, 400, got.DPIShift)
	assert.True(t, got.AngleSnapping)
	assert.Equal(t, local.Macros, got.Macros)

	got.Macros[0].Name = "changed"
	assert.Equal(t, "copy", local.Macros[0].Name, "merge copies the host profile")
}

func TestMergeOnboardSyncedZones(t *testing.T) {
	local := Default(0)
	require.True(t, local.RGB.SyncZones)

	dev := Default(0)
	dev.RGB.Logo.Color = RGBColor(255, 0, 0)

	got := MergeOnboard(local, dev)
	assert.Equal(t, got.RGB.Logo, got.RGB.DPI)
}

func TestDecodeFallbacks(t *testing.T) {
	var b [BlockSize]byte
	// Unknown rate code, default stage out of range.
	b[0], b[1] = 0x07, 9
	// Stage 0 at 65280 dpi, stage 1 at 1250 dpi, stage 2 zero.
	b[4], b[5], b[6] = 1, 0xFF, 0x00
	b[8], b[9], b[10] = 1, 0x04, 0xE2
	// Unknown effect, speed below range.
	b[32] = 7
	b[37], b[38] = 0, 10
	// Unknown tag, unknown function, unknown key code; slots 3..6 zero.
	b[64] = 0x77
	b[68], b[69] = 0x80, 0x99
	b[72], b[73], b[74] = 0x90, 0x01, 0xFE

	p := Decode(b[:], 4)

	assert.Equal(t, 4, p.Index)
	assert.Equal(t, "Profile 5", p.Name)
	assert.Equal(t, DefaultPollingRate, p.PollingRate)
	assert.Equal(t, DefaultStage, p.DefaultDPIStage)
	assert.Equal(t, DPIStage{Enabled: true, X: 800, Y: 800, Color: DefaultStageColors[0]}, p.DPIStages[0])
	assert.Equal(t, 1250, p.DPIStages[1].X)
	assert.False(t, p.DPIStages[2].Enabled)
	assert.Equal(t, 3200, p.DPIStages[2].X)
	assert.Equal(t, EffectStatic, p.RGB.Logo.Effect)
	assert.Equal(t, DefaultSpeed, p.RGB.Logo.Speed)
	assert.Equal(t, 0, p.RGB.Logo.Brightness)
	assert.Equal(t, Click, p.Buttons[ButtonLeft])
	assert.Equal(t, Click, p.Buttons[ButtonRight])
	assert.Equal(t, Click, p.Buttons[ButtonMiddle])
	for _, slot := range []Button{ButtonBack, ButtonForward, ButtonDPI, ButtonGShift} {
		assert.Equal(t, Disabled(), p.Buttons[slot], slot.String())
	}
}

func TestDecodeShortInput(t *testing.T) {
	p := Decode([]byte{0x08, 0x02}, 0)
	assert.Equal(t, 125, p.PollingRate)
	assert.Equal(t, 2, p.DefaultDPIStage)
	assert.Equal(t, Disabled(), p.Buttons[ButtonLeft])

	assert.NotPanics(t, func() { Decode(nil, 0) })
}

func TestDecodeIsTotal(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for range 500 {
		var b [BlockSize]byte
		for i := range b {
			b[i] = uint8(rng.IntN(256))
		}
		p := Decode(b[:], 0)

		require.True(t, ValidPollingRate(p.PollingRate))
		require.LessOrEqual(t, p.DefaultDPIStage, MaxDefaultStage)
		for _, s := range p.DPIStages {
			require.Equal(t, ClampDPI(s.X), s.X)
			require.Equal(t, s.X, s.Y)
		}
		require.True(t, p.RGB.Logo.Effect.Valid())
		require.GreaterOrEqual(t, p.RGB.Logo.Speed, MinSpeed)
		require.LessOrEqual(t, p.RGB.Logo.Speed, MaxSpeed)
		require.LessOrEqual(t, p.RGB.Logo.Brightness, MaxBrightness)
	}
}
