package profile

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"strings"
)

// Button is a remappable button slot.
type Button int

// Button slots in on-device order.
const (
	ButtonLeft Button = iota
	ButtonRight
	ButtonMiddle
	ButtonBack
	ButtonForward
	ButtonDPI
	ButtonGShift

	ButtonCount = 7
)

var buttonNames = [ButtonCount]string{"left", "right", "middle", "back", "forward", "dpi", "gshift"}

// String returns the slot name.
func (b Button) String() string {
	if b < 0 || int(b) >= ButtonCount {
		return fmt.Sprintf("button(%d)", int(b))
	}
	return buttonNames[b]
}

// ParseButton returns the slot with the given name.
func ParseButton(name string) (Button, error) {
	for i, n := range buttonNames {
		if n == name {
			return Button(i), nil
		}
	}
	return 0, fmt.Errorf("unknown button %q", name)
}

// ActionKind discriminates ButtonAction.
type ActionKind string

// Button action kinds.
const (
	ActionButton   ActionKind = "button"
	ActionKey      ActionKind = "key"
	ActionMacro    ActionKind = "macro"
	ActionDisabled ActionKind = "disabled"
)

// ButtonAction is what a button does. Only the fields of its Kind are
// meaningful; constructors leave the others zero so actions compare with ==.
type ButtonAction struct {
	Kind ActionKind

	// Function is the button-function name (ActionButton).
	Function string

	// Key and Modifiers describe a keystroke (ActionKey).
	Key       string
	Modifiers ModifierSet

	// Macro is the macro slot (ActionMacro).
	Macro int
}

// FunctionAction maps a button to a built-in function.
func FunctionAction(name string) ButtonAction {
	return ButtonAction{Kind: ActionButton, Function: name}
}

// KeyAction maps a button to a keystroke.
func KeyAction(key string, mods ModifierSet) ButtonAction {
	return ButtonAction{Kind: ActionKey, Key: key, Modifiers: mods}
}

// MacroButton maps a button to a macro slot.
func MacroButton(index int) ButtonAction {
	return ButtonAction{Kind: ActionMacro, Macro: index}
}

// Disabled turns a button off.
func Disabled() ButtonAction {
	return ButtonAction{Kind: ActionDisabled}
}

// Click is the fallback action for unrecognized mappings.
var Click = FunctionAction("click")

// String renders the action for display.
func (a ButtonAction) String() string {
	switch a.Kind {
	case ActionButton:
		return a.Function
	case ActionKey:
		if a.Modifiers == 0 {
			return "key " + a.Key
		}
		return "key " + strings.Join(append(a.Modifiers.Names(), a.Key), "+")
	case ActionMacro:
		return fmt.Sprintf("macro %d", a.Macro)
	case ActionDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

type buttonActionJSON struct {
	Action     ActionKind `json:"action"`
	Value      string     `json:"value,omitempty"`
	Key        string     `json:"key,omitempty"`
	Modifiers  *[]string  `json:"modifiers,omitempty"`
	MacroIndex *int       `json:"macroIndex,omitempty"`
}

// MarshalJSON encodes the {action, ...} object form.
func (a ButtonAction) MarshalJSON() ([]byte, error) {
	out := buttonActionJSON{Action: a.Kind}
	switch a.Kind {
	case ActionButton:
		out.Value = a.Function
	case ActionKey:
		out.Key = a.Key
		// Key actions always carry the list, even when empty.
		mods := a.Modifiers.Names()
		if mods == nil {
			mods = []string{}
		}
		out.Modifiers = &mods
	case ActionMacro:
		idx := a.Macro
		out.MacroIndex = &idx
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the object form and the legacy string shorthand.
// Unrecognized mappings decode to Click.
func (a *ButtonAction) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = normalizeButton(raw)
	return nil
}

// Buttons maps every slot to its action.
type Buttons [ButtonCount]ButtonAction

// MarshalJSON encodes the slots as an object keyed by slot name.
func (b Buttons) MarshalJSON() ([]byte, error) {
	m := make(map[string]ButtonAction, ButtonCount)
	for i, a := range b {
		m[buttonNames[i]] = a
	}
	return json.Marshal(m)
}

// UnmarshalJSON overlays the named slots onto the default mapping.
func (b *Buttons) UnmarshalJSON(data []byte) error {
	var m map[string]ButtonAction
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*b = DefaultButtons()
	for name, a := range m {
		if slot, err := ParseButton(name); err == nil {
			b[slot] = a
		}
	}
	return nil
}

// ModifierSet is a bitmask of keyboard modifiers as stored on the device.
type ModifierSet uint8

// Modifier bits.
const (
	ModCtrl   ModifierSet = 0x01
	ModShift  ModifierSet = 0x02
	ModAlt    ModifierSet = 0x04
	ModWin    ModifierSet = 0x08
	ModRCtrl  ModifierSet = 0x10
	ModRShift ModifierSet = 0x20
	ModRAlt   ModifierSet = 0x40
	ModRGUI   ModifierSet = 0x80
)

var modifierNames = [8]string{"ctrl", "shift", "alt", "win", "rctrl", "rshift", "ralt", "rgui"}

var modifierAliases = map[string]ModifierSet{
	"lctrl":  ModCtrl,
	"lshift": ModShift,
	"lalt":   ModAlt,
	"lgui":   ModWin,
}

// ParseModifier returns the bit of a modifier name.
func ParseModifier(name string) (ModifierSet, bool) {
	name = strings.ToLower(name)
	for i, n := range modifierNames {
		if n == name {
			return 1 << i, true
		}
	}
	m, ok := modifierAliases[name]
	return m, ok
}

// ParseModifiers ORs the known names; unknown names are ignored.
func ParseModifiers(names []string) ModifierSet {
	var set ModifierSet
	for _, n := range names {
		if m, ok := ParseModifier(n); ok {
			set |= m
		}
	}
	return set
}

// Names returns the canonical names of the set bits, lowest bit first.
func (m ModifierSet) Names() []string {
	if m == 0 {
		return nil
	}
	names := make([]string, 0, bits.OnesCount8(uint8(m)))
	for i, n := range modifierNames {
		if m&(1<<i) != 0 {
			names = append(names, n)
		}
	}
	return names
}
