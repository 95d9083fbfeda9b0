package wire

import "fmt"

// FeatureID is the stable 16-bit identifier of a HID++ 2.0 feature.
type FeatureID uint16

const (
	// FeatureRoot resolves feature ids to indices and answers pings.
	// Always at index 0.
	FeatureRoot FeatureID = 0x0000

	FeatureFeatureSet     FeatureID = 0x0001
	FeatureDeviceInfo     FeatureID = 0x0003
	FeatureDeviceName     FeatureID = 0x0005
	FeatureDeviceType     FeatureID = 0x0020
	FeatureDFU            FeatureID = 0x00C0
	FeatureBatteryStatus  FeatureID = 0x1000
	FeatureBatteryVoltage FeatureID = 0x1001
	FeatureLEDControl     FeatureID = 0x1300
	FeatureBacklight      FeatureID = 0x1981
	FeatureRGBEffects     FeatureID = 0x8071
	FeaturePerKeyLighting FeatureID = 0x8081
	FeatureOnboardProfile FeatureID = 0x8100
	FeatureMouseButtonSpy FeatureID = 0x8110
	FeatureReprogControls FeatureID = 0x1B00

	// FeatureReprogControlsV4 is the v4 revision of reprogrammable controls.
	FeatureReprogControlsV4 FeatureID = 0x1B04

	FeatureAdjustableDPI FeatureID = 0x2201
	FeatureAngleSnapping FeatureID = 0x2230
	FeatureSurfaceTuning FeatureID = 0x2240
	FeatureReportRate    FeatureID = 0x8060
)

// FeatureEntry pairs a feature id with its registry name.
type FeatureEntry struct {
	ID   FeatureID
	Name string
}

// Features is the registry of known features in a fixed order. Capability
// enumeration walks it front to back.
var Features = []FeatureEntry{
	{FeatureRoot, "root"},
	{FeatureFeatureSet, "feature-set"},
	{FeatureDeviceInfo, "device-info"},
	{FeatureDeviceName, "device-name"},
	{FeatureDeviceType, "device-type"},
	{FeatureDFU, "dfu"},
	{FeatureBatteryStatus, "battery-status"},
	{FeatureBatteryVoltage, "battery-voltage"},
	{FeatureLEDControl, "led-control"},
	{FeatureBacklight, "backlight"},
	{FeatureRGBEffects, "rgb-effects"},
	{FeaturePerKeyLighting, "per-key-lighting"},
	{FeatureOnboardProfile, "onboard-profiles"},
	{FeatureMouseButtonSpy, "mouse-button-spy"},
	{FeatureReprogControls, "reprog-controls"},
	{FeatureReprogControlsV4, "reprog-controls-v4"},
	{FeatureAdjustableDPI, "adjustable-dpi"},
	{FeatureAngleSnapping, "angle-snapping"},
	{FeatureSurfaceTuning, "surface-tuning"},
	{FeatureReportRate, "report-rate"},
}

// String returns the registry name, or the hex id for unregistered features.
func (f FeatureID) String() string {
	for _, e := range Features {
		if e.ID == f {
			return e.Name
		}
	}
	return fmt.Sprintf("0x%04X", uint16(f))
}

// FeatureByName looks up a feature id by registry name.
func FeatureByName(name string) (FeatureID, bool) {
	for _, e := range Features {
		if e.Name == name {
			return e.ID, true
		}
	}
	return 0, false
}
