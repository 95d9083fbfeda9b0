package profile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestButtonActionJSON(t *testing.T) {
	tests := []struct {
		name   string
		action ButtonAction
		json   string
	}{
		{"function", FunctionAction("back"), `{"action":"button","value":"back"}`},
		{"key", KeyAction("c", ModCtrl|ModShift), `{"action":"key","key":"c","modifiers":["ctrl","shift"]}`},
		{"key without modifiers", KeyAction("Tab", 0), `{"action":"key","key":"Tab","modifiers":[]}`},
		{"macro", MacroButton(0), `{"action":"macro","macroIndex":0}`},
		{"disabled", Disabled(), `{"action":"disabled"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.action)
			require.NoError(t, err)
			assert.JSONEq(t, tt.json, string(data))

			var back ButtonAction
			require.NoError(t, json.Unmarshal(data, &back))
			assert.Equal(t, tt.action, back)
		})
	}
}

func TestButtonActionLegacyString(t *testing.T) {
	var a ButtonAction
	require.NoError(t, json.Unmarshal([]byte(`"forward"`), &a))
	assert.Equal(t, FunctionAction("forward"), a)

	require.NoError(t, json.Unmarshal([]byte(`{"action":"teleport"}`), &a))
	assert.Equal(t, Click, a)
}

func TestButtonsJSONOverlaysDefaults(t *testing.T) {
	var b Buttons
	require.NoError(t, json.Unmarshal([]byte(`{"gshift":"dpi_shift","wheel_left":"back"}`), &b))

	want := DefaultButtons()
	want[ButtonGShift] = FunctionAction("dpi_shift")
	assert.Equal(t, want, b)
}

func TestModifiers(t *testing.T) {
	set := ParseModifiers([]string{"ctrl", "LShift", "rgui", "hyper"})
	assert.Equal(t, ModCtrl|ModShift|ModRGUI, set)
	assert.Equal(t, []string{"ctrl", "shift", "rgui"}, set.Names())
	assert.Nil(t, ModifierSet(0).Names())
}

func TestButtonNames(t *testing.T) {
	for i := range ButtonCount {
		b, err := ParseButton(Button(i).String())
		require.NoError(t, err)
		assert.Equal(t, Button(i), b)
	}
	_, err := ParseButton("wheel_left")
	assert.Error(t, err)
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "click", Click.String())
	assert.Equal(t, "key ctrl+alt+Delete", KeyAction("Delete", ModCtrl|ModAlt).String())
	assert.Equal(t, "macro 2", MacroButton(2).String())
	assert.Equal(t, "disabled", Disabled().String())
}
