package hidpp

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/omm-project/omm-go/pkg/profile"
	"github.com/omm-project/omm-go/pkg/wire"
)

// Function ids per feature.
const (
	dpiFnSensorCount uint8 = 0
	dpiFnGet         uint8 = 1
	dpiFnSet         uint8 = 2

	rateFnGet uint8 = 0
	rateFnSet uint8 = 1

	onboardFnInfo       uint8 = 0
	onboardFnSetMode    uint8 = 1
	onboardFnGetMode    uint8 = 2
	onboardFnSwitch     uint8 = 3
	onboardFnCurrent    uint8 = 4
	onboardFnReadMemory uint8 = 5

	rgbFnSetEffect uint8 = 1

	batteryFnStatus uint8 = 0

	nameFnLength uint8 = 0
	nameFnChunk  uint8 = 1
)

// Onboard modes written by SetOnboardMode.
const (
	onboardModeOnboard uint8 = 1
	onboardModeHost    uint8 = 2
)

// Onboard memory is read in 16-byte chunks.
const memoryChunk = 16

// DPIInfo is the state of one sensor.
type DPIInfo struct {
	SensorCount int
	Current     int
	Default     int
}

// GetDPI reads the current and default resolution of sensor.
func (d *Device) GetDPI(ctx context.Context, sensor uint8) (DPIInfo, error) {
	resp, err := d.CallFeature(ctx, wire.FeatureAdjustableDPI, dpiFnSensorCount, []byte{sensor})
	if err != nil {
		return DPIInfo{}, fmt.Errorf("dpi sensor count: %w", err)
	}
	info := DPIInfo{SensorCount: int(byteAt(resp, 0))}

	resp, err = d.CallFeature(ctx, wire.FeatureAdjustableDPI, dpiFnGet, []byte{sensor})
	if err != nil {
		return DPIInfo{}, fmt.Errorf("get dpi: %w", err)
	}
	info.Current = int(be16At(resp, 0))
	info.Default = int(be16At(resp, 2))
	return info, nil
}

// SetDPI sets the resolution of sensor. dpi must lie between 100 and the
// model's maximum.
func (d *Device) SetDPI(ctx context.Context, dpi int, sensor uint8) error {
	if limit := d.maxDPI(); dpi < profile.MinDPI || dpi > limit {
		return fmt.Errorf("%w: dpi %d outside %d..%d", ErrInvalidArgument, dpi, profile.MinDPI, limit)
	}
	_, err := d.CallFeature(ctx, wire.FeatureAdjustableDPI, dpiFnSet, []byte{sensor, byte(dpi >> 8), byte(dpi)})
	if err != nil {
		return fmt.Errorf("set dpi: %w", err)
	}
	return nil
}

func (d *Device) maxDPI() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.info != nil {
		return d.info.MaxDPI()
	}
	return profile.MaxDPI
}

// GetReportRate returns the polling rate in Hz. A rate code outside the
// table reads as 0.
func (d *Device) GetReportRate(ctx context.Context) (int, error) {
	resp, err := d.CallFeature(ctx, wire.FeatureReportRate, rateFnGet, nil)
	if err != nil {
		return 0, fmt.Errorf("get report rate: %w", err)
	}
	hz, ok := profile.RateFromCode(byteAt(resp, 0))
	if !ok {
		return 0, nil
	}
	return hz, nil
}

// SetReportRate sets the polling rate; hz must be 125, 250, 500 or 1000.
func (d *Device) SetReportRate(ctx context.Context, hz int) error {
	code, ok := profile.RateCode(hz)
	if !ok {
		return fmt.Errorf("%w: report rate %d Hz", ErrInvalidArgument, hz)
	}
	if _, err := d.CallFeature(ctx, wire.FeatureReportRate, rateFnSet, []byte{code}); err != nil {
		return fmt.Errorf("set report rate: %w", err)
	}
	return nil
}

// OnboardInfo describes the onboard profile memory.
type OnboardInfo struct {
	MemoryModel      uint8 `json:"memoryModel"`
	ProfileFormat    uint8 `json:"profileFormat"`
	MacroFormat      uint8 `json:"macroFormat"`
	ProfileCount     int   `json:"profileCount"`
	ProfileCountOOB  int   `json:"profileCountOob"`
	ButtonCount      int   `json:"buttonCount"`
	SectorCount      int   `json:"sectorCount"`
	SectorSize       int   `json:"sectorSize"`
	MechanicalLayout uint8 `json:"mechanicalLayout"`
	VariousInfo      uint8 `json:"variousInfo"`
}

// HasGShift reports whether the device has a G-shift button.
func (i OnboardInfo) HasGShift() bool { return i.VariousInfo&0x01 != 0 }

// HasDPIShift reports whether the device has a DPI-shift button.
func (i OnboardInfo) HasDPIShift() bool { return i.VariousInfo&0x02 != 0 }

// GetOnboardProfileInfo reads the onboard memory description.
func (d *Device) GetOnboardProfileInfo(ctx context.Context) (OnboardInfo, error) {
	resp, err := d.CallFeature(ctx, wire.FeatureOnboardProfile, onboardFnInfo, nil)
	if err != nil {
		return OnboardInfo{}, fmt.Errorf("onboard info: %w", err)
	}
	return OnboardInfo{
		MemoryModel:      byteAt(resp, 0),
		ProfileFormat:    byteAt(resp, 1),
		MacroFormat:      byteAt(resp, 2),
		ProfileCount:     int(byteAt(resp, 3)),
		ProfileCountOOB:  int(byteAt(resp, 4)),
		ButtonCount:      int(byteAt(resp, 5)),
		SectorCount:      int(byteAt(resp, 6)),
		SectorSize:       int(be16At(resp, 7)),
		MechanicalLayout: byteAt(resp, 9),
		VariousInfo:      byteAt(resp, 10),
	}, nil
}

// GetOnboardMode reports whether the device runs from its onboard
// profiles.
func (d *Device) GetOnboardMode(ctx context.Context) (bool, error) {
	resp, err := d.CallFeature(ctx, wire.FeatureOnboardProfile, onboardFnGetMode, nil)
	if err != nil {
		return false, fmt.Errorf("get onboard mode: %w", err)
	}
	return byteAt(resp, 0) == onboardModeOnboard, nil
}

// SetOnboardMode switches between onboard and host mode.
func (d *Device) SetOnboardMode(ctx context.Context, enabled bool) error {
	mode := onboardModeHost
	if enabled {
		mode = onboardModeOnboard
	}
	if _, err := d.CallFeature(ctx, wire.FeatureOnboardProfile, onboardFnSetMode, []byte{mode}); err != nil {
		return fmt.Errorf("set onboard mode: %w", err)
	}
	return nil
}

// GetCurrentProfile returns the active onboard profile index.
func (d *Device) GetCurrentProfile(ctx context.Context) (int, error) {
	resp, err := d.CallFeature(ctx, wire.FeatureOnboardProfile, onboardFnCurrent, nil)
	if err != nil {
		return 0, fmt.Errorf("get current profile: %w", err)
	}
	return int(byteAt(resp, 0)), nil
}

// SwitchProfile activates onboard profile index.
func (d *Device) SwitchProfile(ctx context.Context, index int) error {
	if index < 0 || index > math.MaxUint8 {
		return fmt.Errorf("%w: profile index %d", ErrInvalidArgument, index)
	}
	if _, err := d.CallFeature(ctx, wire.FeatureOnboardProfile, onboardFnSwitch, []byte{byte(index)}); err != nil {
		return fmt.Errorf("switch profile: %w", err)
	}
	return nil
}

// ReadMemoryPage reads one 256-byte page of onboard memory.
func (d *Device) ReadMemoryPage(ctx context.Context, page uint16) ([]byte, error) {
	data := make([]byte, profile.BlockSize)
	for offset := 0; offset < profile.BlockSize; offset += memoryChunk {
		params := []byte{byte(page >> 8), byte(page), byte(offset >> 8), byte(offset)}
		resp, err := d.CallFeature(ctx, wire.FeatureOnboardProfile, onboardFnReadMemory, params)
		if err != nil {
			return nil, fmt.Errorf("read page %d offset %d: %w", page, offset, err)
		}
		copy(data[offset:offset+memoryChunk], resp)
	}
	return data, nil
}

// ReadProfile reads page and decodes it as profile index. valid reports
// whether the block checksum matched; the profile is returned either way.
func (d *Device) ReadProfile(ctx context.Context, page uint16, index int) (p profile.Profile, valid bool, err error) {
	block, err := d.ReadMemoryPage(ctx, page)
	if err != nil {
		return profile.Profile{}, false, err
	}
	p = profile.Decode(block, index)
	if verr := profile.Verify(block); verr != nil {
		d.logger.Warn("onboard profile checksum mismatch", "page", page, "error", verr)
		return p, false, nil
	}
	return p, true, nil
}

// SetRGBEffect applies l to a lighting zone; profile.ZoneAll writes both
// zones. Devices with only the backlight feature accept the call without
// changing anything.
func (d *Device) SetRGBEffect(ctx context.Context, zone profile.Zone, l profile.Lighting) error {
	if !d.HasFeature(ctx, wire.FeatureRGBEffects) {
		if d.HasFeature(ctx, wire.FeatureBacklight) {
			d.logger.Info("backlight-only device, lighting not applied", "zone", zone.String())
			return nil
		}
		return unsupported(wire.FeatureRGBEffects)
	}

	zones := []profile.Zone{zone}
	if zone == profile.ZoneAll {
		zones = []profile.Zone{profile.ZoneLogo, profile.ZoneDPI}
	}
	for _, z := range zones {
		if z < 0 || z > math.MaxUint8 {
			return fmt.Errorf("%w: zone %d", ErrInvalidArgument, int(z))
		}
		speed := uint16(min(max(l.Speed, 0), math.MaxUint16))
		params := []byte{
			byte(z),
			l.Effect.Code(),
			l.Color.R, l.Color.G, l.Color.B,
			l.BrightnessByte(),
			byte(speed >> 8), byte(speed),
		}
		if _, err := d.CallFeature(ctx, wire.FeatureRGBEffects, rgbFnSetEffect, params); err != nil {
			return fmt.Errorf("set rgb effect on %s zone: %w", z, err)
		}
	}
	return nil
}

// Battery is a battery reading. Voltage is only reported by devices with
// the battery-voltage feature.
type Battery struct {
	Level    int   `json:"level"`
	Status   uint8 `json:"status"`
	Charging bool  `json:"charging"`
	Voltage  int   `json:"voltage,omitempty"`
}

// Battery voltage range mapped linearly onto 0..100%.
const (
	batteryEmptyMillivolts = 3500
	batteryFullMillivolts  = 4200
)

// GetBatteryStatus reads the battery through battery-status, falling back
// to battery-voltage.
func (d *Device) GetBatteryStatus(ctx context.Context) (Battery, error) {
	if d.HasFeature(ctx, wire.FeatureBatteryStatus) {
		resp, err := d.CallFeature(ctx, wire.FeatureBatteryStatus, batteryFnStatus, nil)
		if err != nil {
			return Battery{}, fmt.Errorf("battery status: %w", err)
		}
		return Battery{
			Level:    int(byteAt(resp, 0)),
			Status:   byteAt(resp, 1),
			Charging: byteAt(resp, 1) == 0x01,
		}, nil
	}

	if d.HasFeature(ctx, wire.FeatureBatteryVoltage) {
		resp, err := d.CallFeature(ctx, wire.FeatureBatteryVoltage, batteryFnStatus, nil)
		if err != nil {
			return Battery{}, fmt.Errorf("battery voltage: %w", err)
		}
		mv := int(be16At(resp, 0))
		return Battery{
			Level:   voltageLevel(mv),
			Status:  byteAt(resp, 2),
			Voltage: mv,
		}, nil
	}

	return Battery{}, unsupported(wire.FeatureBatteryStatus)
}

func voltageLevel(mv int) int {
	pct := float64(mv-batteryEmptyMillivolts) / float64(batteryFullMillivolts-batteryEmptyMillivolts) * 100
	return int(math.Round(min(100, max(0, pct))))
}

// GetDeviceName reads the marketing name stored on the device.
func (d *Device) GetDeviceName(ctx context.Context) (string, error) {
	resp, err := d.CallFeature(ctx, wire.FeatureDeviceName, nameFnLength, nil)
	if err != nil {
		return "", fmt.Errorf("device name length: %w", err)
	}
	length := int(byteAt(resp, 0))

	var b strings.Builder
	for offset := 0; offset < length; {
		chunk, err := d.CallFeature(ctx, wire.FeatureDeviceName, nameFnChunk, []byte{byte(offset)})
		if err != nil {
			return "", fmt.Errorf("device name at %d: %w", offset, err)
		}
		if len(chunk) == 0 {
			break
		}
		for i := 0; i < len(chunk) && offset < length; i, offset = i+1, offset+1 {
			if chunk[i] != 0 {
				b.WriteByte(chunk[i])
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// Features lists the registry names of every feature the device
// implements, in registry order. Resolution failures count as absent, and
// root is listed only when the device answered the connect probe.
func (d *Device) Features(ctx context.Context) []string {
	d.mu.Lock()
	answered := d.answered
	d.mu.Unlock()

	var names []string
	for _, f := range wire.Features {
		if f.ID == wire.FeatureRoot && !answered {
			continue
		}
		if d.HasFeature(ctx, f.ID) {
			names = append(names, f.Name)
		}
	}
	return names
}
