package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidProfileData indicates imported data that cannot be read as a
// profile at all.
var ErrInvalidProfileData = errors.New("invalid profile data")

// NormalizeJSON parses a profile object and normalizes it.
func NormalizeJSON(data []byte) (Profile, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrInvalidProfileData, err)
	}
	return Normalize(raw), nil
}

// Normalize builds a valid profile from loosely typed data. It starts from
// Default(0) and overlays only the fields that pass type and range checks;
// numeric fields are clamped, enumerations outside their set are ignored.
func Normalize(raw map[string]any) Profile {
	p := Default(0)

	if s, ok := text(raw["name"]); ok && s != "" {
		p.Name = truncate(s, MaxNameLength)
	}
	if b, ok := raw["enabled"].(bool); ok {
		p.Enabled = b
	}
	if b, ok := raw["visible"].(bool); ok {
		p.Visible = b
	}

	if stages, ok := raw["dpiStages"].([]any); ok {
		normalizeStages(&p, stages)
	}
	if n, ok := number(raw["defaultDpiStage"]); ok {
		p.DefaultDPIStage = clamp(toInt(n), 0, MaxDefaultStage)
	}
	if n, ok := number(raw["dpiShift"]); ok {
		p.DPIShift = ClampDPI(toInt(n))
	}
	if n, ok := number(raw["pollingRate"]); ok && n == math.Trunc(n) && ValidPollingRate(toInt(n)) {
		p.PollingRate = toInt(n)
	}
	if b, ok := raw["angleSnapping"].(bool); ok {
		p.AngleSnapping = b
	}
	if s, ok := raw["lod"].(string); ok && LOD(s).Valid() {
		p.LOD = LOD(s)
	}

	if rgb, ok := raw["rgb"].(map[string]any); ok {
		normalizeRGB(&p.RGB, rgb)
	}

	if buttons, ok := raw["buttons"].(map[string]any); ok {
		for name, mapping := range buttons {
			if slot, err := ParseButton(name); err == nil {
				p.Buttons[slot] = normalizeButton(mapping)
			}
		}
	}

	if macros, ok := raw["macros"].([]any); ok {
		if len(macros) > MaxMacros {
			macros = macros[:MaxMacros]
		}
		p.Macros = make([]Macro, len(macros))
		for i, m := range macros {
			p.Macros[i] = normalizeMacro(m)
		}
	}

	return p
}

func normalizeStages(p *Profile, stages []any) {
	for i := range StageCount {
		if i >= len(stages) {
			// Missing stages double the previous default and start disabled.
			dpi := 800 << i
			p.DPIStages[i] = DPIStage{X: dpi, Y: dpi, Color: DefaultStageColors[i]}
			continue
		}

		s, _ := stages[i].(map[string]any)
		stage := DPIStage{Enabled: true, Color: DefaultStageColors[i]}
		if b, ok := s["enabled"].(bool); ok {
			stage.Enabled = b
		}
		stage.X = ClampDPI(firstNonZero(s["x"], s["dpi"], 800))
		stage.Y = ClampDPI(firstNonZero(s["y"], s["dpi"], 800))
		if c, ok := s["color"].(string); ok {
			if parsed, err := ParseColor(c); err == nil {
				stage.Color = parsed
			}
		}
		p.DPIStages[i] = stage
	}
}

func normalizeRGB(rgb *RGB, raw map[string]any) {
	// Flat fields address both zones.
	rgb.Logo = normalizeLighting(rgb.Logo, raw)
	rgb.DPI = normalizeLighting(rgb.DPI, raw)

	if logo, ok := raw["logo"].(map[string]any); ok {
		rgb.Logo = normalizeLighting(rgb.Logo, logo)
	}
	if dpi, ok := raw["dpi"].(map[string]any); ok {
		rgb.DPI = normalizeLighting(rgb.DPI, dpi)
	}

	if b, ok := raw["syncZones"].(bool); ok {
		rgb.SyncZones = b
	} else if rgb.Logo != rgb.DPI {
		rgb.SyncZones = false
	}
}

func normalizeLighting(l Lighting, raw map[string]any) Lighting {
	if s, ok := raw["effect"].(string); ok && Effect(s).Valid() {
		l.Effect = Effect(s)
	}
	if s, ok := raw["color"].(string); ok {
		if c, err := ParseColor(s); err == nil {
			l.Color = c
		}
	}
	if n, ok := number(raw["brightness"]); ok {
		l.Brightness = clamp(toInt(n), MinBrightness, MaxBrightness)
	}
	if n, ok := number(raw["speed"]); ok {
		l.Speed = clamp(toInt(n), MinSpeed, MaxSpeed)
	}
	return l
}

// normalizeButton maps a legacy string or an {action: ...} object to a
// ButtonAction. Anything unrecognized becomes Click.
func normalizeButton(raw any) ButtonAction {
	switch v := raw.(type) {
	case string:
		return functionOrClick(v)
	case map[string]any:
		action, _ := v["action"].(string)
		switch ActionKind(action) {
		case ActionButton:
			name, _ := v["value"].(string)
			if name == "" {
				return Click
			}
			return functionOrClick(name)
		case ActionKey:
			name, _ := v["key"].(string)
			key, ok := CanonicalKey(name)
			if !ok {
				key = DefaultKey
			}
			var mods ModifierSet
			if list, ok := v["modifiers"].([]any); ok {
				for _, m := range list {
					if s, ok := m.(string); ok {
						bit, _ := ParseModifier(s)
						mods |= bit
					}
				}
			}
			return KeyAction(key, mods)
		case ActionMacro:
			idx := 0
			if n, ok := number(v["macroIndex"]); ok {
				idx = clamp(toInt(n), 0, MaxMacros-1)
			}
			return MacroButton(idx)
		case ActionDisabled:
			return Disabled()
		}
	}
	return Click
}

func functionOrClick(name string) ButtonAction {
	if _, ok := FunctionCode(name); !ok {
		return Click
	}
	return FunctionAction(name)
}

func normalizeMacro(raw any) Macro {
	m, ok := raw.(map[string]any)
	if !ok {
		return Macro{Name: "Macro", Actions: []MacroAction{}}
	}

	macro := Macro{Name: "Macro", Actions: []MacroAction{}}
	if s, ok := text(m["name"]); ok && s != "" {
		macro.Name = truncate(s, MaxNameLength)
	}
	if n, ok := number(m["repeat"]); ok {
		macro.Repeat = clamp(toInt(n), 0, MaxMacroRepeat)
	}

	actions, _ := m["actions"].([]any)
	if len(actions) > MaxMacroActions {
		actions = actions[:MaxMacroActions]
	}
	for _, a := range actions {
		macro.Actions = append(macro.Actions, normalizeMacroAction(a))
	}
	return macro
}

func normalizeMacroAction(raw any) MacroAction {
	a, ok := raw.(map[string]any)
	if !ok {
		return FallbackMacroAction
	}
	t, _ := a["type"].(string)
	if !MacroActionType(t).Valid() {
		return FallbackMacroAction
	}

	action := MacroAction{Type: MacroActionType(t), Value: a["value"]}
	if list, ok := a["modifiers"].([]any); ok {
		for _, m := range list {
			if s, ok := m.(string); ok {
				action.Modifiers = append(action.Modifiers, s)
			}
		}
	}
	return action
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// toInt rounds n and bounds it well inside the int range before conversion.
func toInt(n float64) int {
	return int(math.Round(math.Max(-1e9, math.Min(1e9, n))))
}

func firstNonZero(values ...any) int {
	for _, v := range values {
		if n, ok := number(v); ok && n != 0 {
			return toInt(n)
		}
	}
	return 0
}

func text(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case float64:
		return fmt.Sprint(s), true
	default:
		return "", false
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
