package hidpp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omm-project/omm-go/internal/simulator"
	"github.com/omm-project/omm-go/pkg/profile"
	"github.com/omm-project/omm-go/pkg/wire"
)

func TestDPI(t *testing.T) {
	ctx := context.Background()
	d, mouse := connectSim(t, simulator.DefaultConfig(), testConfig())

	info, err := d.GetDPI(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, DPIInfo{SensorCount: 1, Current: 1600, Default: 1600}, info)

	require.NoError(t, d.SetDPI(ctx, 3200, 0))
	assert.Equal(t, 3200, mouse.DPI())

	info, err = d.GetDPI(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 3200, info.Current)

	sent := len(mouse.Requests())
	assert.ErrorIs(t, d.SetDPI(ctx, 50, 0), ErrInvalidArgument)
	assert.ErrorIs(t, d.SetDPI(ctx, 25650, 0), ErrInvalidArgument)
	assert.Len(t, mouse.Requests(), sent, "rejected before any request")
}

func TestSetDPIUsesModelLimit(t *testing.T) {
	cfg := simulator.DefaultConfig()
	cfg.Info.ProductID = 0xC07E // G402
	d, _ := connectSim(t, cfg, testConfig())

	assert.ErrorIs(t, d.SetDPI(context.Background(), 4050, 0), ErrInvalidArgument)
	assert.NoError(t, d.SetDPI(context.Background(), 4000, 0))
}

func TestReportRate(t *testing.T) {
	ctx := context.Background()
	d, mouse := connectSim(t, simulator.DefaultConfig(), testConfig())

	hz, err := d.GetReportRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1000, hz)

	tests := []struct {
		hz   int
		code uint8
	}{
		{125, 0x08},
		{250, 0x04},
		{500, 0x02},
		{1000, 0x01},
	}
	for _, tt := range tests {
		require.NoError(t, d.SetReportRate(ctx, tt.hz))
		assert.Equal(t, tt.code, mouse.RateCode(), "%d Hz", tt.hz)
		got, err := d.GetReportRate(ctx)
		require.NoError(t, err)
		assert.Equal(t, tt.hz, got)
	}

	assert.ErrorIs(t, d.SetReportRate(ctx, 300), ErrInvalidArgument)
}

func TestReportRateUnknownCode(t *testing.T) {
	cfg := simulator.DefaultConfig()
	cfg.RateCode = 0x03
	d, _ := connectSim(t, cfg, testConfig())

	hz, err := d.GetReportRate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, hz)
}

func TestOnboardProfiles(t *testing.T) {
	ctx := context.Background()
	d, mouse := connectSim(t, simulator.DefaultConfig(), testConfig())

	info, err := d.GetOnboardProfileInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, info.ProfileCount)
	assert.Equal(t, 11, info.ButtonCount)
	assert.Equal(t, 16, info.SectorCount)
	assert.Equal(t, 256, info.SectorSize)
	assert.True(t, info.HasGShift())
	assert.False(t, info.HasDPIShift())

	onboard, err := d.GetOnboardMode(ctx)
	require.NoError(t, err)
	assert.True(t, onboard)

	require.NoError(t, d.SetOnboardMode(ctx, false))
	assert.Equal(t, uint8(2), mouse.OnboardMode())
	onboard, err = d.GetOnboardMode(ctx)
	require.NoError(t, err)
	assert.False(t, onboard)

	require.NoError(t, d.SwitchProfile(ctx, 2))
	assert.Equal(t, 2, mouse.CurrentProfile())
	current, err := d.GetCurrentProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, current)

	err = d.SwitchProfile(ctx, 5)
	assert.ErrorIs(t, err, &ProtocolError{Code: wire.ErrOutOfRange})
	assert.ErrorIs(t, d.SwitchProfile(ctx, 256), ErrInvalidArgument)
}

func TestReadMemoryPage(t *testing.T) {
	d, mouse := connectSim(t, simulator.DefaultConfig(), testConfig())

	page, err := d.ReadMemoryPage(context.Background(), 2)
	require.NoError(t, err)
	want := profile.Encode(profile.Default(1))
	assert.Equal(t, want[:], page)

	var reads int
	for _, f := range mouse.Requests() {
		if f.FeatureIndex == 5 && f.Function == onboardFnReadMemory {
			assert.Equal(t, []byte{0x00, 0x02, 0x00, byte(reads * 16)}, f.Params[:4])
			reads++
		}
	}
	assert.Equal(t, 16, reads)
}

func TestReadProfile(t *testing.T) {
	ctx := context.Background()
	d, mouse := connectSim(t, simulator.DefaultConfig(), testConfig())

	p, valid, err := d.ReadProfile(ctx, 1, 0)
	require.NoError(t, err)
	assert.True(t, valid)
	want := profile.Default(0)
	assert.Equal(t, want.DPIStages, p.DPIStages)
	assert.Equal(t, want.PollingRate, p.PollingRate)
	assert.Equal(t, want.Buttons, p.Buttons)

	block := profile.Encode(want)
	block[4] ^= 0xFF
	mouse.SetPage(1, block[:])
	_, valid, err = d.ReadProfile(ctx, 1, 0)
	require.NoError(t, err)
	assert.False(t, valid)

	mouse.Fail(wire.FeatureOnboardProfile, onboardFnReadMemory, wire.ErrHardware)
	_, _, err = d.ReadProfile(ctx, 1, 0)
	assert.ErrorIs(t, err, &ProtocolError{Code: wire.ErrHardware})
}

func TestSetRGBEffect(t *testing.T) {
	ctx := context.Background()
	d, mouse := connectSim(t, simulator.DefaultConfig(), testConfig())

	l := profile.Lighting{
		Effect:     profile.EffectBreathing,
		Color:      profile.MustParseColor("#ff8000"),
		Brightness: 50,
		Speed:      2000,
	}
	require.NoError(t, d.SetRGBEffect(ctx, profile.ZoneAll, l))

	for _, zone := range []uint8{0, 1} {
		got, ok := mouse.Lighting(zone)
		require.True(t, ok)
		assert.Equal(t, []byte{zone, 10, 0xFF, 0x80, 0x00, 127, 0x07, 0xD0}, got)
	}

	l.Effect = profile.EffectOff
	l.Brightness = 100
	require.NoError(t, d.SetRGBEffect(ctx, profile.ZoneDPI, l))
	got, _ := mouse.Lighting(1)
	assert.Equal(t, []byte{1, 0, 0xFF, 0x80, 0x00, 255, 0x07, 0xD0}, got)
}

func TestSetRGBEffectFallbacks(t *testing.T) {
	t.Run("backlight only", func(t *testing.T) {
		cfg := simulator.DefaultConfig()
		cfg.Features = []wire.FeatureID{wire.FeatureBacklight}
		d, mouse := connectSim(t, cfg, testConfig())

		assert.NoError(t, d.SetRGBEffect(context.Background(), profile.ZoneLogo, profile.DefaultLighting()))
		_, ok := mouse.Lighting(0)
		assert.False(t, ok)
	})

	t.Run("no lighting", func(t *testing.T) {
		cfg := simulator.DefaultConfig()
		cfg.Features = []wire.FeatureID{wire.FeatureAdjustableDPI}
		d, _ := connectSim(t, cfg, testConfig())

		err := d.SetRGBEffect(context.Background(), profile.ZoneLogo, profile.DefaultLighting())
		assert.ErrorIs(t, err, ErrUnsupportedFeature)
	})
}

func TestBattery(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		cfg := simulator.DefaultConfig()
		cfg.Features = append(cfg.Features, wire.FeatureBatteryStatus, wire.FeatureBatteryVoltage)
		cfg.BatteryLevel = 80
		cfg.BatteryStatus = 0x01
		d, _ := connectSim(t, cfg, testConfig())

		b, err := d.GetBatteryStatus(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Battery{Level: 80, Status: 1, Charging: true}, b)
	})

	t.Run("voltage", func(t *testing.T) {
		cfg := simulator.DefaultConfig()
		cfg.Features = append(cfg.Features, wire.FeatureBatteryVoltage)
		cfg.BatteryMillivolts = 3850
		cfg.BatteryStatus = 0x02
		d, _ := connectSim(t, cfg, testConfig())

		b, err := d.GetBatteryStatus(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Battery{Level: 50, Status: 2, Voltage: 3850}, b)
	})

	t.Run("unsupported", func(t *testing.T) {
		d, _ := connectSim(t, simulator.DefaultConfig(), testConfig())
		_, err := d.GetBatteryStatus(context.Background())
		assert.ErrorIs(t, err, ErrUnsupportedFeature)
	})
}

func TestVoltageLevel(t *testing.T) {
	tests := []struct {
		mv   int
		want int
	}{
		{3000, 0},
		{3500, 0},
		{3507, 1},
		{3850, 50},
		{4200, 100},
		{4400, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, voltageLevel(tt.mv), "%d mV", tt.mv)
	}
}

func TestGetDeviceName(t *testing.T) {
	cfg := simulator.DefaultConfig()
	cfg.Name = "PRO X SUPERLIGHT Wireless  "
	d, _ := connectSim(t, cfg, testConfig())

	name, err := d.GetDeviceName(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PRO X SUPERLIGHT Wireless", name)
	assert.Equal(t, "PRO X SUPERLIGHT Wireless", d.Info().DisplayName())
}

func TestUnsupportedFeatureOperations(t *testing.T) {
	cfg := simulator.DefaultConfig()
	cfg.Features = nil
	d, mouse := connectSim(t, cfg, testConfig())
	ctx := context.Background()

	_, err := d.GetDPI(ctx, 0)
	assert.ErrorIs(t, err, ErrUnsupportedFeature)
	_, err = d.GetReportRate(ctx)
	assert.ErrorIs(t, err, ErrUnsupportedFeature)
	_, err = d.GetOnboardProfileInfo(ctx)
	assert.ErrorIs(t, err, ErrUnsupportedFeature)
	_, err = d.GetDeviceName(ctx)
	assert.ErrorIs(t, err, ErrUnsupportedFeature)

	assert.Equal(t, []string{"root"}, d.Features(ctx))
	assert.Equal(t, 1, mouse.Lookups(wire.FeatureReportRate))
}

func TestModels(t *testing.T) {
	m, ok := LookupModel(0xC08B)
	require.True(t, ok)
	assert.Equal(t, Model{Name: "G502 HERO", Buttons: 11, MaxDPI: 25600}, m)

	_, ok = LookupModel(0x1234)
	assert.False(t, ok)

	ids := SupportedProductIDs()
	assert.Len(t, ids, 15)
	assert.IsIncreasing(t, ids)

	unknown := &DeviceInfo{Name: "USB Receiver"}
	assert.Equal(t, profile.MaxDPI, unknown.MaxDPI())
	assert.Equal(t, "USB Receiver", unknown.DisplayName())
}
