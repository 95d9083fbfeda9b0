package profile

import "strings"

// Button function codes stored under the 0x80 button tag.
const (
	FuncDisabled     uint8 = 0x00
	FuncDPIUp        uint8 = 0x4D
	FuncDPIDown      uint8 = 0x4E
	FuncDPICycle     uint8 = 0x4F
	FuncLeftClick    uint8 = 0x50
	FuncRightClick   uint8 = 0x51
	FuncMiddleClick  uint8 = 0x52
	FuncBack         uint8 = 0x53
	FuncScrollUp     uint8 = 0x54
	FuncScrollDown   uint8 = 0x55
	FuncForward      uint8 = 0x56
	FuncDPIShift     uint8 = 0x57
	FuncGShift       uint8 = 0x58
	FuncScrollMode   uint8 = 0x5A
	FuncProfileCycle uint8 = 0x5B
)

type namedCode struct {
	name string
	code uint8
}

// functions is ordered; the first name wins on reverse lookup.
var functions = []namedCode{
	{"click", FuncLeftClick},
	{"context", FuncRightClick},
	{"middle_click", FuncMiddleClick},
	{"back", FuncBack},
	{"forward", FuncForward},
	{"dpi_up", FuncDPIUp},
	{"dpi_down", FuncDPIDown},
	{"dpi_cycle", FuncDPICycle},
	{"dpi_shift", FuncDPIShift},
	{"gshift", FuncGShift},
	{"profile_cycle", FuncProfileCycle},
	{"scroll_mode", FuncScrollMode},
	{"disabled", FuncDisabled},
}

// FunctionCode returns the device code of a button function name.
func FunctionCode(name string) (uint8, bool) {
	for _, f := range functions {
		if f.name == name {
			return f.code, true
		}
	}
	return 0, false
}

// FunctionName returns the name of a button function code.
func FunctionName(code uint8) (string, bool) {
	for _, f := range functions {
		if f.code == code {
			return f.name, true
		}
	}
	return "", false
}

// FunctionNames lists the known button functions in table order.
func FunctionNames() []string {
	names := make([]string, len(functions))
	for i, f := range functions {
		names[i] = f.name
	}
	return names
}

// keys maps key names to USB HID usage ids (keyboard page).
var keys = []namedCode{
	{"a", 0x04}, {"b", 0x05}, {"c", 0x06}, {"d", 0x07}, {"e", 0x08}, {"f", 0x09},
	{"g", 0x0A}, {"h", 0x0B}, {"i", 0x0C}, {"j", 0x0D}, {"k", 0x0E}, {"l", 0x0F},
	{"m", 0x10}, {"n", 0x11}, {"o", 0x12}, {"p", 0x13}, {"q", 0x14}, {"r", 0x15},
	{"s", 0x16}, {"t", 0x17}, {"u", 0x18}, {"v", 0x19}, {"w", 0x1A}, {"x", 0x1B},
	{"y", 0x1C}, {"z", 0x1D},
	{"1", 0x1E}, {"2", 0x1F}, {"3", 0x20}, {"4", 0x21}, {"5", 0x22},
	{"6", 0x23}, {"7", 0x24}, {"8", 0x25}, {"9", 0x26}, {"0", 0x27},
	{"Enter", 0x28}, {"Escape", 0x29}, {"Backspace", 0x2A}, {"Tab", 0x2B},
	{" ", 0x2C}, {"-", 0x2D}, {"=", 0x2E}, {"[", 0x2F}, {"]", 0x30},
	{"\\", 0x31}, {";", 0x33}, {"'", 0x34}, {"`", 0x35}, {",", 0x36},
	{".", 0x37}, {"/", 0x38},
	{"CapsLock", 0x39},
	{"F1", 0x3A}, {"F2", 0x3B}, {"F3", 0x3C}, {"F4", 0x3D}, {"F5", 0x3E}, {"F6", 0x3F},
	{"F7", 0x40}, {"F8", 0x41}, {"F9", 0x42}, {"F10", 0x43}, {"F11", 0x44}, {"F12", 0x45},
	{"PrintScreen", 0x46}, {"ScrollLock", 0x47}, {"Pause", 0x48},
	{"Insert", 0x49}, {"Home", 0x4A}, {"PageUp", 0x4B}, {"Delete", 0x4C},
	{"End", 0x4D}, {"PageDown", 0x4E},
	{"ArrowRight", 0x4F}, {"ArrowLeft", 0x50}, {"ArrowDown", 0x51}, {"ArrowUp", 0x52},
	{"NumLock", 0x53},
}

// DefaultKey is used when a key name or code is not recognized.
const DefaultKey = "a"

// KeyCode returns the usage id of a key name, ignoring case.
func KeyCode(name string) (uint8, bool) {
	for _, k := range keys {
		if strings.EqualFold(k.name, name) {
			return k.code, true
		}
	}
	return 0, false
}

// KeyName returns the canonical key name of a usage id.
func KeyName(code uint8) (string, bool) {
	for _, k := range keys {
		if k.code == code {
			return k.name, true
		}
	}
	return "", false
}

// CanonicalKey returns the table spelling of name, or false if unknown.
func CanonicalKey(name string) (string, bool) {
	code, ok := KeyCode(name)
	if !ok {
		return "", false
	}
	return KeyName(code)
}

// rateCodes maps polling rates to report-rate codes (ms per report).
var rateCodes = map[int]uint8{
	125:  0x08,
	250:  0x04,
	500:  0x02,
	1000: 0x01,
}

// RateCode returns the device code of a polling rate.
func RateCode(hz int) (uint8, bool) {
	code, ok := rateCodes[hz]
	return code, ok
}

// RateFromCode returns the polling rate of a device code.
func RateFromCode(code uint8) (int, bool) {
	for hz, c := range rateCodes {
		if c == code {
			return hz, true
		}
	}
	return 0, false
}
