package profile

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sigurn/crc16"
)

// Block layout.
const (
	BlockSize = 256

	offsetRate         = 0
	offsetDefaultStage = 1
	offsetStages       = 4
	stageRecordSize    = 4
	offsetRGB          = 32
	offsetButtons      = 64
	buttonRecordSize   = 4
	offsetChecksum     = BlockSize - 2
)

// Button record tags.
const (
	tagFunction uint8 = 0x80
	tagKey      uint8 = 0x90
	tagMacro    uint8 = 0xA0
)

// Codec errors.
var (
	// ErrChecksumMismatch indicates the trailing CRC does not match the block.
	ErrChecksumMismatch = errors.New("profile block checksum mismatch")

	// ErrBlockSize indicates a block that is not BlockSize bytes long.
	ErrBlockSize = errors.New("profile block has wrong size")
)

var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// Checksum returns the CRC16-CCITT (poly 0x1021, init 0xFFFF, no
// reflection, no final xor) of data.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

// Verify checks the trailing checksum of a block.
func Verify(block []byte) error {
	if len(block) != BlockSize {
		return fmt.Errorf("%w: %d bytes", ErrBlockSize, len(block))
	}
	want := binary.BigEndian.Uint16(block[offsetChecksum:])
	got := Checksum(block[:offsetChecksum])
	if want != got {
		return fmt.Errorf("%w: stored 0x%04x, computed 0x%04x", ErrChecksumMismatch, want, got)
	}
	return nil
}

// Encode packs p into an onboard block. Only the X sensitivity of each
// stage and the logo lighting zone are stored; name, macros, lift-off
// distance, angle snapping and stage colors live off-device.
func Encode(p Profile) [BlockSize]byte {
	var b [BlockSize]byte

	rate, ok := RateCode(p.PollingRate)
	if !ok {
		rate, _ = RateCode(DefaultPollingRate)
	}
	b[offsetRate] = rate
	b[offsetDefaultStage] = uint8(p.DefaultDPIStage)

	for i, s := range p.DPIStages {
		off := offsetStages + i*stageRecordSize
		if s.Enabled {
			b[off] = 0x01
		}
		binary.BigEndian.PutUint16(b[off+1:], uint16(s.X))
	}

	l := p.RGB.Logo
	b[offsetRGB] = l.Effect.Code()
	b[offsetRGB+1] = l.Color.R
	b[offsetRGB+2] = l.Color.G
	b[offsetRGB+3] = l.Color.B
	b[offsetRGB+4] = l.BrightnessByte()
	binary.BigEndian.PutUint16(b[offsetRGB+5:], uint16(l.Speed))

	for i, a := range p.Buttons {
		encodeButton(b[offsetButtons+i*buttonRecordSize:][:buttonRecordSize], a)
	}

	binary.BigEndian.PutUint16(b[offsetChecksum:], Checksum(b[:offsetChecksum]))
	return b
}

func encodeButton(rec []byte, a ButtonAction) {
	switch a.Kind {
	case ActionButton:
		code, ok := FunctionCode(a.Function)
		if !ok {
			code = FuncLeftClick
		}
		rec[0] = tagFunction
		rec[1] = code
	case ActionKey:
		code, ok := KeyCode(a.Key)
		if !ok {
			code, _ = KeyCode(DefaultKey)
		}
		rec[0] = tagKey
		rec[1] = uint8(a.Modifiers)
		rec[2] = code
	case ActionMacro:
		rec[0] = tagMacro
		rec[1] = uint8(a.Macro)
	}
}

// Decode unpacks a block into a profile for slot index. It never fails:
// short input is treated as zero-extended and unrecognized encodings fall
// back to defaults. The checksum is not inspected; use Verify.
func Decode(data []byte, index int) Profile {
	var b [BlockSize]byte
	copy(b[:], data)

	p := Default(index)

	if hz, ok := RateFromCode(b[offsetRate]); ok {
		p.PollingRate = hz
	}
	if stage := int(b[offsetDefaultStage]); stage <= MaxDefaultStage {
		p.DefaultDPIStage = stage
	}

	for i := range p.DPIStages {
		off := offsetStages + i*stageRecordSize
		dpi := int(binary.BigEndian.Uint16(b[off+1:]))
		if dpi < MinDPI || dpi > MaxDPI {
			dpi = DefaultStageDPI[i]
		}
		dpi = ClampDPI(dpi)
		p.DPIStages[i] = DPIStage{
			Enabled: b[off] == 0x01,
			X:       dpi,
			Y:       dpi,
			Color:   DefaultStageColors[i],
		}
	}

	l := DefaultLighting()
	if effect, ok := EffectFromCode(b[offsetRGB]); ok {
		l.Effect = effect
	}
	l.Color = Color{R: b[offsetRGB+1], G: b[offsetRGB+2], B: b[offsetRGB+3]}
	l.Brightness = brightnessFromByte(b[offsetRGB+4])
	if speed := int(binary.BigEndian.Uint16(b[offsetRGB+5:])); speed >= MinSpeed && speed <= MaxSpeed {
		l.Speed = speed
	}
	p.RGB.Logo = l

	for i := range p.Buttons {
		p.Buttons[i] = decodeButton(b[offsetButtons+i*buttonRecordSize:][:buttonRecordSize])
	}
	return p
}

func decodeButton(rec []byte) ButtonAction {
	switch rec[0] {
	case tagFunction:
		name, ok := FunctionName(rec[1])
		if !ok {
			return Click
		}
		return FunctionAction(name)
	case tagKey:
		key, ok := KeyName(rec[2])
		if !ok {
			return Click
		}
		return KeyAction(key, ModifierSet(rec[1]))
	case tagMacro:
		return MacroButton(int(rec[1]))
	case 0:
		return Disabled()
	default:
		return Click
	}
}

// MergeOnboard overlays the fields an onboard block stores from dev onto
// p and returns the result. Everything Encode leaves out keeps p's value.
func MergeOnboard(p, dev Profile) Profile {
	out := clone(p)
	out.PollingRate = dev.PollingRate
	out.DefaultDPIStage = dev.DefaultDPIStage
	for i, st := range dev.DPIStages {
		out.DPIStages[i].Enabled = st.Enabled
		out.DPIStages[i].X = st.X
		out.DPIStages[i].Y = st.Y
	}
	out.RGB.Logo = dev.RGB.Logo
	if out.RGB.SyncZones {
		out.RGB.DPI = dev.RGB.Logo
	}
	out.Buttons = dev.Buttons
	return out
}
