package hidpp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/omm-project/omm-go/internal/simulator"
	"github.com/omm-project/omm-go/pkg/log"
	"github.com/omm-project/omm-go/pkg/transport"
	"github.com/omm-project/omm-go/pkg/transport/mocks"
	"github.com/omm-project/omm-go/pkg/wire"
)

func testConfig() Config {
	return Config{
		RequestTimeout: 200 * time.Millisecond,
		ProbeTimeout:   50 * time.Millisecond,
	}
}

func connectSim(t *testing.T, cfg simulator.Config, config Config) (*Device, *simulator.Mouse) {
	t.Helper()
	mouse := simulator.New(cfg)
	d := New(mouse.Transport(), config)
	_, err := d.Connect(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Disconnect() })
	return d, mouse
}

type eventSink struct {
	mu     sync.Mutex
	events []log.Event
}

func (s *eventSink) Log(e log.Event) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *eventSink) all() []log.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]log.Event(nil), s.events...)
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, 5*time.Second, c.RequestTimeout)
	assert.Equal(t, 5*time.Second, c.ProbeTimeout)

	filled := Config{}.withDefaults()
	assert.Equal(t, DefaultRequestTimeout, filled.RequestTimeout)
	assert.Equal(t, DefaultRequestTimeout, filled.ProbeTimeout)
	assert.NotNil(t, filled.Logger)
}

func TestConnectWired(t *testing.T) {
	d, _ := connectSim(t, simulator.DefaultConfig(), testConfig())

	info := d.Info()
	require.NotNil(t, info)
	assert.True(t, d.IsConnected())
	assert.Equal(t, StateConnected, d.State())
	assert.Equal(t, wire.DeviceWired, d.DeviceIndex())
	assert.Equal(t, wire.DeviceWired, info.DeviceIndex)
	assert.Equal(t, "HID++ 4.2", info.Protocol)
	assert.Equal(t, uint16(0x046D), info.VendorID)
	assert.Equal(t, uint16(0xC08B), info.ProductID)
	require.NotNil(t, info.Model)
	assert.Equal(t, "G502 HERO", info.Model.Name)
	assert.Equal(t, 25600, info.MaxDPI())
	assert.Equal(t, "G502 HERO Gaming Mouse", info.DeviceName)
	assert.Equal(t, []string{
		"root", "feature-set", "device-name", "rgb-effects",
		"onboard-profiles", "adjustable-dpi", "report-rate",
	}, info.Features)
	assert.True(t, info.HasFeature("report-rate"))
	assert.False(t, info.HasFeature("battery-status"))

	_, err := uuid.Parse(d.SessionID())
	assert.NoError(t, err)
}

func TestConnectProbesReceiverChannels(t *testing.T) {
	cfg := simulator.DefaultConfig()
	cfg.DeviceIndex = 3
	d, mouse := connectSim(t, cfg, testConfig())

	assert.Equal(t, uint8(3), d.DeviceIndex())

	var pinged []uint8
	for _, f := range mouse.Requests() {
		if f.FeatureIndex == 0 && f.Function == rootFnPing {
			pinged = append(pinged, f.DeviceIndex)
		}
	}
	assert.Equal(t, []uint8{0xFF, 1, 2, 3}, pinged)
}

func TestConnectBluetooth(t *testing.T) {
	cfg := simulator.DefaultConfig()
	cfg.DeviceIndex = wire.DeviceBluetooth
	d, _ := connectSim(t, cfg, Config{RequestTimeout: 200 * time.Millisecond, ProbeTimeout: 20 * time.Millisecond})

	assert.Equal(t, wire.DeviceBluetooth, d.DeviceIndex())
	assert.Equal(t, "bluetooth", wire.DeviceIndexName(d.DeviceIndex()))
}

func TestConnectFallsBackToWired(t *testing.T) {
	mouse := simulator.New(simulator.DefaultConfig())
	mouse.SetSilent(true)
	d := New(mouse.Transport(), Config{RequestTimeout: 10 * time.Millisecond, ProbeTimeout: 10 * time.Millisecond})

	info, err := d.Connect(context.Background())
	require.NoError(t, err)
	defer d.Disconnect()

	assert.True(t, d.IsConnected())
	assert.Equal(t, wire.DeviceWired, info.DeviceIndex)
	assert.Equal(t, "HID++ 2.0", info.Protocol)
	assert.Empty(t, info.Features)
	assert.Empty(t, info.DeviceName)
	require.NotNil(t, info.Model)

	// Root resolves statically but is not reported for a silent device.
	assert.True(t, d.HasFeature(context.Background(), wire.FeatureRoot))
	assert.NotContains(t, d.Features(context.Background()), "root")
}

func TestConnectErrors(t *testing.T) {
	t.Run("nil transport", func(t *testing.T) {
		_, err := New(nil, testConfig()).Connect(context.Background())
		assert.ErrorIs(t, err, ErrConnectionFailed)
		assert.ErrorIs(t, err, ErrTransportUnavailable)
	})

	t.Run("open failure", func(t *testing.T) {
		mouse := simulator.New(simulator.DefaultConfig())
		mouse.Transport().FailOpen(errors.New("permission denied"))
		d := New(mouse.Transport(), testConfig())

		_, err := d.Connect(context.Background())
		assert.ErrorIs(t, err, ErrConnectionFailed)
		assert.False(t, d.IsConnected())
		assert.Equal(t, StateDisconnected, d.State())
	})

	t.Run("no device selected", func(t *testing.T) {
		mouse := simulator.New(simulator.DefaultConfig())
		mouse.Transport().FailOpen(transport.ErrNoDeviceSelected)

		_, err := New(mouse.Transport(), testConfig()).Connect(context.Background())
		assert.ErrorIs(t, err, ErrNoDeviceSelected)
		assert.NotErrorIs(t, err, ErrConnectionFailed)
	})

	t.Run("transport unavailable", func(t *testing.T) {
		mt := mocks.NewMockTransport(t)
		mt.EXPECT().SetReportHandler(mock.Anything).Return()
		mt.EXPECT().Open(mock.Anything).Return(transport.ErrTransportUnavailable)

		_, err := New(mt, testConfig()).Connect(context.Background())
		assert.ErrorIs(t, err, ErrTransportUnavailable)
		assert.NotErrorIs(t, err, ErrConnectionFailed)
	})

	t.Run("already connected", func(t *testing.T) {
		d, _ := connectSim(t, simulator.DefaultConfig(), testConfig())
		_, err := d.Connect(context.Background())
		assert.ErrorIs(t, err, ErrAlreadyConnected)
	})
}

func TestConnectCanceledDuringProbe(t *testing.T) {
	mouse := simulator.New(simulator.DefaultConfig())
	mouse.SetSilent(true)
	d := New(mouse.Transport(), Config{RequestTimeout: time.Second, ProbeTimeout: time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := d.Connect(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateDisconnected, d.State())
	assert.False(t, mouse.Transport().IsOpen())
}

func TestConnectSendFailure(t *testing.T) {
	mt := mocks.NewMockTransport(t)
	mt.EXPECT().SetReportHandler(mock.Anything).Return()
	mt.EXPECT().Open(mock.Anything).Return(nil)
	mt.EXPECT().Info().Return(transport.DeviceInfo{Name: "G305", VendorID: 0x046D, ProductID: 0xC090})
	mt.EXPECT().Send(mock.Anything, mock.Anything).Return(errors.New("write failed"))
	mt.EXPECT().Close().Return(nil)

	d := New(mt, testConfig())
	info, err := d.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "G305", info.DisplayName())
	assert.Equal(t, 12000, info.MaxDPI())
	assert.Empty(t, info.Features)

	_, err = d.GetReportRate(context.Background())
	assert.ErrorContains(t, err, "write failed")

	require.NoError(t, d.Disconnect())
}

func TestDisconnect(t *testing.T) {
	d, mouse := connectSim(t, simulator.DefaultConfig(), testConfig())

	require.NoError(t, d.Disconnect())
	assert.False(t, d.IsConnected())
	assert.Empty(t, d.SessionID())
	assert.Nil(t, d.Info())
	assert.False(t, mouse.Transport().IsOpen())

	// Idempotent.
	require.NoError(t, d.Disconnect())

	_, err := d.GetReportRate(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.False(t, d.HasFeature(context.Background(), wire.FeatureReportRate))
}

func TestDisconnectRejectsPending(t *testing.T) {
	d, mouse := connectSim(t, simulator.DefaultConfig(), Config{RequestTimeout: 5 * time.Second})
	mouse.Hold()

	errs := make(chan error, 3)
	for range 3 {
		go func() {
			_, err := d.GetReportRate(context.Background())
			errs <- err
		}()
	}
	require.Eventually(t, func() bool { return mouse.Held() == 3 }, time.Second, time.Millisecond)

	start := time.Now()
	require.NoError(t, d.Disconnect())
	for range 3 {
		assert.ErrorIs(t, <-errs, ErrConnectionClosed)
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestReconnectClearsFeatureCache(t *testing.T) {
	d, mouse := connectSim(t, simulator.DefaultConfig(), testConfig())
	first := d.SessionID()
	assert.Equal(t, 1, mouse.Lookups(wire.FeatureAdjustableDPI))

	require.NoError(t, d.Disconnect())
	_, err := d.Connect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, mouse.Lookups(wire.FeatureAdjustableDPI))
	assert.NotEqual(t, first, d.SessionID())
}

func TestFeatureIndexResolvedOncePerSession(t *testing.T) {
	cfg := simulator.DefaultConfig()
	mouse := simulator.New(cfg)
	d := New(mouse.Transport(), testConfig())

	// Connect enumerates every registry feature once.
	_, err := d.Connect(context.Background())
	require.NoError(t, err)
	defer d.Disconnect()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.GetDPI(context.Background(), 0)
			d.HasFeature(context.Background(), wire.FeatureBatteryStatus)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, mouse.Lookups(wire.FeatureAdjustableDPI))
	assert.Equal(t, 1, mouse.Lookups(wire.FeatureBatteryStatus), "absent features are cached too")
	assert.Zero(t, mouse.Lookups(wire.FeatureRoot))

	index, err := d.GetFeatureIndex(context.Background(), wire.FeatureRoot)
	require.NoError(t, err)
	assert.Zero(t, index)
}

func TestConcurrentResolutionSharesOneLookup(t *testing.T) {
	mouse := simulator.New(simulator.DefaultConfig())
	d := New(mouse.Transport(), testConfig())
	_, err := d.beginSession()
	require.NoError(t, err)
	d.transport.SetReportHandler(d.HandleReport)
	require.NoError(t, mouse.Transport().Open(context.Background()))
	defer d.Disconnect()

	mouse.Hold()
	results := make(chan uint8, 8)
	for range 8 {
		go func() {
			index, _ := d.GetFeatureIndex(context.Background(), wire.FeatureReportRate)
			results <- index
		}()
	}
	require.Eventually(t, func() bool { return mouse.Held() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, mouse.Held())

	mouse.Release()
	for range 8 {
		assert.Equal(t, uint8(4), <-results)
	}
	assert.Equal(t, 1, mouse.Lookups(wire.FeatureReportRate))
}

func TestRequestTimeout(t *testing.T) {
	d, mouse := connectSim(t, simulator.DefaultConfig(), Config{RequestTimeout: 30 * time.Millisecond})
	mouse.SetSilent(true)

	start := time.Now()
	_, err := d.GetReportRate(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	// The slot is free again.
	mouse.SetSilent(false)
	hz, err := d.GetReportRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1000, hz)
}

func TestRequestCanceled(t *testing.T) {
	d, mouse := connectSim(t, simulator.DefaultConfig(), testConfig())
	mouse.Hold()

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := d.GetCurrentProfile(ctx)
		errs <- err
	}()
	require.Eventually(t, func() bool { return mouse.Held() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errs, context.Canceled)

	// A late response for the canceled request is discarded.
	mouse.Release()
	current, err := d.GetCurrentProfile(context.Background())
	require.NoError(t, err)
	assert.Zero(t, current)
}

func TestProtocolError(t *testing.T) {
	d, mouse := connectSim(t, simulator.DefaultConfig(), testConfig())
	mouse.Fail(wire.FeatureReportRate, rateFnGet, wire.ErrBusy)

	_, err := d.GetReportRate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, &ProtocolError{Code: wire.ErrBusy})
	assert.NotErrorIs(t, err, &ProtocolError{Code: wire.ErrHardware})

	var pe *ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, wire.ErrBusy, pe.Code)
	assert.Contains(t, pe.Error(), "BUSY")

	mouse.Fail(wire.FeatureReportRate, rateFnGet, wire.ErrNoError)
	_, err = d.GetReportRate(context.Background())
	assert.NoError(t, err)
}

func TestSoftwareIDsCorrelateOutOfOrder(t *testing.T) {
	d, mouse := connectSim(t, simulator.DefaultConfig(), Config{RequestTimeout: 2 * time.Second})
	before := len(mouse.Requests())
	mouse.Hold()

	const n = maxSoftwareID
	echoes := make([]uint8, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := d.CallFeatureByIndex(context.Background(), 0, rootFnPing, []byte{0, 0, byte(0xA0 + i)})
			if assert.NoError(t, err) {
				echoes[i] = resp[2]
			}
		}()
	}
	require.Eventually(t, func() bool { return mouse.Held() == n }, time.Second, time.Millisecond)

	ids := make(map[uint8]bool)
	for _, f := range mouse.Requests()[before:] {
		assert.NotZero(t, f.SoftwareID)
		ids[f.SoftwareID] = true
	}
	assert.Len(t, ids, n)

	mouse.Release()
	wg.Wait()
	for i, echo := range echoes {
		assert.Equal(t, byte(0xA0+i), echo, "request %d", i)
	}
}

func TestSlotExhaustionWaits(t *testing.T) {
	d, mouse := connectSim(t, simulator.DefaultConfig(), Config{RequestTimeout: 2 * time.Second})
	mouse.Hold()

	const n = maxSoftwareID + 1
	errs := make(chan error, n)
	for range n {
		go func() {
			_, err := d.Ping(context.Background())
			errs <- err
		}()
	}
	require.Eventually(t, func() bool { return mouse.Held() == maxSoftwareID }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, maxSoftwareID, mouse.Held(), "sixteenth request waits for a free id")

	mouse.Release()
	for range n {
		assert.NoError(t, <-errs)
	}
}

func TestSlotWaitHonorsContext(t *testing.T) {
	d, mouse := connectSim(t, simulator.DefaultConfig(), Config{RequestTimeout: 2 * time.Second})
	mouse.Hold()

	for range maxSoftwareID {
		go func() { _, _ = d.Ping(context.Background()) }()
	}
	require.Eventually(t, func() bool { return mouse.Held() == maxSoftwareID }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := d.Ping(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	mouse.Release()
}

func TestSoftwareIDsSkipZero(t *testing.T) {
	d := New(nil, testConfig())
	d.pending = make(map[wire.Key]*pendingRequest)

	var seen []uint8
	for range 2 * maxSoftwareID {
		key, ok := d.nextKeyLocked(1)
		require.True(t, ok)
		seen = append(seen, key.SoftwareID)
	}
	assert.NotContains(t, seen, uint8(0))
	assert.Equal(t, uint8(1), seen[0])
	assert.Equal(t, uint8(15), seen[14])
	assert.Equal(t, uint8(1), seen[15])

	// Busy ids are skipped.
	d.swCounter = 0
	d.pending[wire.Key{DeviceIndex: wire.DeviceWired, FeatureIndex: 1, SoftwareID: 1}] = &pendingRequest{}
	key, ok := d.nextKeyLocked(1)
	require.True(t, ok)
	assert.Equal(t, uint8(2), key.SoftwareID)

	// Other feature indices do not share slots.
	d.swCounter = 0
	key, ok = d.nextKeyLocked(2)
	require.True(t, ok)
	assert.Equal(t, uint8(1), key.SoftwareID)
}

func TestHandleReportDiscardsUnmatched(t *testing.T) {
	sink := &eventSink{}
	config := testConfig()
	config.ProtocolLogger = sink
	d, mouse := connectSim(t, simulator.DefaultConfig(), config)

	require.NoError(t, mouse.Inject(wire.ReportLong, []byte{0xFF, 0x04, 0x07, 0x01}))
	require.NoError(t, mouse.Inject(0x20, []byte{0x01, 0x02, 0x03}))
	d.HandleReport(wire.ReportShort, []byte{0xFF})

	require.Eventually(t, func() bool {
		n := 0
		for _, e := range sink.all() {
			if e.Frame != nil && e.Frame.Discarded {
				n++
			}
		}
		return n == 3
	}, time.Second, time.Millisecond)
	assert.True(t, d.IsConnected())
}

func TestProtocolCapture(t *testing.T) {
	sink := &eventSink{}
	config := testConfig()
	config.ProtocolLogger = sink
	d, mouse := connectSim(t, simulator.DefaultConfig(), config)
	mouse.Fail(wire.FeatureReportRate, rateFnSet, wire.ErrHardware)

	_, _ = d.GetReportRate(context.Background())
	_ = d.SetReportRate(context.Background(), 500)
	sid := d.SessionID()
	require.NoError(t, d.Disconnect())

	var states []string
	var success, failed int
	for _, e := range sink.all() {
		assert.Equal(t, sid, e.SessionID)
		assert.Equal(t, "G502 HERO Gaming Mouse", e.Device)
		switch {
		case e.StateChange != nil:
			states = append(states, e.StateChange.NewState)
		case e.Exchange != nil && e.Exchange.Outcome == log.OutcomeSuccess:
			success++
		case e.Exchange != nil && e.Exchange.Outcome == log.OutcomeProtocolError:
			failed++
			require.NotNil(t, e.Exchange.FeatureID)
			assert.Equal(t, uint16(wire.FeatureReportRate), *e.Exchange.FeatureID)
			require.NotNil(t, e.Exchange.ErrorCode)
			assert.Equal(t, uint8(wire.ErrHardware), *e.Exchange.ErrorCode)
			assert.Equal(t, log.CategoryError, e.Category)
		}
	}
	assert.Equal(t, []string{"PROBING", "CONNECTED", "DISCONNECTED"}, states)
	assert.Positive(t, success)
	assert.Equal(t, 1, failed)
}

func TestProtocolErrorIs(t *testing.T) {
	err := &ProtocolError{Code: wire.ErrOutOfRange}
	assert.True(t, errors.Is(err, &ProtocolError{Code: wire.ErrOutOfRange}))
	assert.False(t, errors.Is(err, &ProtocolError{Code: wire.ErrBusy}))
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "DISCONNECTED", StateDisconnected.String())
	assert.Equal(t, "PROBING", StateProbing.String())
	assert.Equal(t, "CONNECTED", StateConnected.String())
	assert.Equal(t, "UNKNOWN", State(9).String())
}
