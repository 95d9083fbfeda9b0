// Package simulator provides an in-process HID++ 2.0 mouse. It answers
// root pings and feature lookups, keeps DPI, report rate, onboard profile
// and lighting state, and serves onboard memory pages, all over the device
// side of a transport.Pipe.
package simulator

import (
	"slices"
	"sync"
	"time"

	"github.com/omm-project/omm-go/pkg/profile"
	"github.com/omm-project/omm-go/pkg/transport"
	"github.com/omm-project/omm-go/pkg/wire"
)

// Config describes the simulated device.
type Config struct {
	Info transport.DeviceInfo

	// DeviceIndex is the only addressing index the mouse answers on.
	DeviceIndex uint8

	// Features lists the supported features; the n-th entry sits at
	// feature index n+1. Root is implicit at index 0.
	Features []wire.FeatureID

	ProtocolMajor uint8
	ProtocolMinor uint8

	Name string

	SensorCount uint8
	DPI         uint16
	DefaultDPI  uint16
	MaxDPI      uint16

	// RateCode is the report-rate code (1 = 1000 Hz).
	RateCode uint8

	ProfileCount   uint8
	CurrentProfile uint8
	VariousInfo    uint8

	// Pages holds onboard memory by page number.
	Pages map[uint16][]byte

	BatteryLevel      uint8
	BatteryStatus     uint8
	BatteryMillivolts uint16
}

// DefaultConfig describes a wired G502 HERO with three default profiles
// stored on pages 1 to 3.
func DefaultConfig() Config {
	pages := make(map[uint16][]byte)
	for i := range 3 {
		block := profile.Encode(profile.Default(i))
		pages[uint16(i+1)] = block[:]
	}
	return Config{
		Info: transport.DeviceInfo{
			Name:      "G502 HERO Gaming Mouse",
			VendorID:  transport.LogitechVendorID,
			ProductID: 0xC08B,
			UsagePage: transport.VendorUsagePage,
		},
		DeviceIndex: wire.DeviceWired,
		Features: []wire.FeatureID{
			wire.FeatureFeatureSet,
			wire.FeatureDeviceName,
			wire.FeatureAdjustableDPI,
			wire.FeatureReportRate,
			wire.FeatureOnboardProfile,
			wire.FeatureRGBEffects,
		},
		ProtocolMajor:  4,
		ProtocolMinor:  2,
		Name:           "G502 HERO Gaming Mouse",
		SensorCount:    1,
		DPI:            1600,
		DefaultDPI:     1600,
		MaxDPI:         25600,
		RateCode:       0x01,
		ProfileCount:   3,
		CurrentProfile: 0,
		VariousInfo:    0x01,
		Pages:          pages,
	}
}

type failKey struct {
	feature wire.FeatureID
	fn      uint8
}

// Mouse is a simulated device. Create with New and hand Transport() to the
// engine.
type Mouse struct {
	cfg  Config
	pipe *transport.Pipe

	mu          sync.Mutex
	dpi         uint16
	rateCode    uint8
	onboardMode uint8
	current     uint8
	pages       map[uint16][]byte
	lighting    map[uint8][]byte
	lookups     map[wire.FeatureID]int
	requests    []wire.Frame
	failures    map[failKey]wire.ErrorCode
	silent      bool
	delay       time.Duration
	holding     bool
	held        []wire.Frame
}

// New creates a mouse behind a fresh pipe.
func New(cfg Config) *Mouse {
	m := &Mouse{
		cfg:         cfg,
		pipe:        transport.NewPipe(cfg.Info),
		dpi:         cfg.DPI,
		rateCode:    cfg.RateCode,
		onboardMode: 1,
		current:     cfg.CurrentProfile,
		pages:       make(map[uint16][]byte),
		lighting:    make(map[uint8][]byte),
		lookups:     make(map[wire.FeatureID]int),
		failures:    make(map[failKey]wire.ErrorCode),
	}
	for page, data := range cfg.Pages {
		m.pages[page] = slices.Clone(data)
	}
	m.pipe.Peer().SetReportHandler(m.handle)
	return m
}

// Transport returns the host side of the mouse's pipe.
func (m *Mouse) Transport() *transport.Pipe {
	return m.pipe
}

// SetSilent makes the mouse ignore every request.
func (m *Mouse) SetSilent(silent bool) {
	m.mu.Lock()
	m.silent = silent
	m.mu.Unlock()
}

// SetDelay delays every response by d.
func (m *Mouse) SetDelay(d time.Duration) {
	m.mu.Lock()
	m.delay = d
	m.mu.Unlock()
}

// Fail makes function fn of feature answer with an error report. Code
// ErrNoError clears the failure.
func (m *Mouse) Fail(feature wire.FeatureID, fn uint8, code wire.ErrorCode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if code == wire.ErrNoError {
		delete(m.failures, failKey{feature, fn})
		return
	}
	m.failures[failKey{feature, fn}] = code
}

// Hold queues requests instead of answering them until Release.
func (m *Mouse) Hold() {
	m.mu.Lock()
	m.holding = true
	m.mu.Unlock()
}

// Held returns the number of queued requests.
func (m *Mouse) Held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.held)
}

// Release answers the queued requests in reverse arrival order and stops
// holding.
func (m *Mouse) Release() {
	m.mu.Lock()
	held := m.held
	m.held = nil
	m.holding = false
	m.mu.Unlock()

	for i := len(held) - 1; i >= 0; i-- {
		m.respond(held[i])
	}
}

// Lookups returns how often the host resolved feature id.
func (m *Mouse) Lookups(id wire.FeatureID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups[id]
}

// Requests returns every request received so far.
func (m *Mouse) Requests() []wire.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.requests)
}

// DPI returns the current sensor resolution.
func (m *Mouse) DPI() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int(m.dpi)
}

// RateCode returns the current report-rate code.
func (m *Mouse) RateCode() uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rateCode
}

// CurrentProfile returns the active onboard profile.
func (m *Mouse) CurrentProfile() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int(m.current)
}

// OnboardMode returns the mode last written (1 onboard, 2 host).
func (m *Mouse) OnboardMode() uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.onboardMode
}

// Lighting returns the last rgb-effects parameters written to zone.
func (m *Mouse) Lighting(zone uint8) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.lighting[zone]
	return slices.Clone(p), ok
}

// SetPage replaces an onboard memory page.
func (m *Mouse) SetPage(page uint16, data []byte) {
	m.mu.Lock()
	m.pages[page] = slices.Clone(data)
	m.mu.Unlock()
}

// Inject sends an unsolicited report to the host.
func (m *Mouse) Inject(report wire.ReportID, data []byte) error {
	return m.pipe.Peer().Inject(report, data)
}

func (m *Mouse) handle(report wire.ReportID, data []byte) {
	req, err := wire.DecodeFrame(report, data)
	if err != nil {
		return
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	if m.silent || req.DeviceIndex != m.cfg.DeviceIndex {
		m.mu.Unlock()
		return
	}
	if m.holding {
		m.held = append(m.held, req)
		m.mu.Unlock()
		return
	}
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		go func() {
			time.Sleep(delay)
			m.respond(req)
		}()
		return
	}
	m.respond(req)
}

func (m *Mouse) respond(req wire.Frame) {
	params, code := m.dispatch(req)
	if code != wire.ErrNoError {
		body := make([]byte, wire.LongLen)
		body[0] = req.DeviceIndex
		body[1] = wire.ErrorFeatureIndex
		body[2] = req.FeatureIndex
		body[3] = req.Function<<4 | req.SoftwareID
		body[4] = uint8(code)
		_ = m.pipe.Peer().Inject(wire.ReportLong, body)
		return
	}

	resp := wire.Frame{
		Report:       wire.ReportLong,
		DeviceIndex:  req.DeviceIndex,
		FeatureIndex: req.FeatureIndex,
		Function:     req.Function,
		SoftwareID:   req.SoftwareID,
		Params:       params,
	}
	body, err := resp.Encode()
	if err != nil {
		return
	}
	_ = m.pipe.Peer().Inject(wire.ReportLong, body)
}

func (m *Mouse) featureAt(index uint8) (wire.FeatureID, bool) {
	if index == 0 {
		return wire.FeatureRoot, true
	}
	if int(index) > len(m.cfg.Features) {
		return 0, false
	}
	return m.cfg.Features[index-1], true
}

func (m *Mouse) indexOf(id wire.FeatureID) uint8 {
	for i, f := range m.cfg.Features {
		if f == id {
			return uint8(i + 1)
		}
	}
	return 0
}

func (m *Mouse) dispatch(req wire.Frame) ([]byte, wire.ErrorCode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	feature, ok := m.featureAt(req.FeatureIndex)
	if !ok {
		return nil, wire.ErrInvalidFeatureIndex
	}
	if code, fail := m.failures[failKey{feature, req.Function}]; fail {
		return nil, code
	}

	p := req.Params
	switch feature {
	case wire.FeatureRoot:
		return m.root(req.Function, p)
	case wire.FeatureDeviceName:
		return m.deviceName(req.Function, p)
	case wire.FeatureAdjustableDPI:
		return m.adjustableDPI(req.Function, p)
	case wire.FeatureReportRate:
		return m.reportRate(req.Function, p)
	case wire.FeatureOnboardProfile:
		return m.onboard(req.Function, p)
	case wire.FeatureRGBEffects:
		if req.Function != 1 {
			return nil, wire.ErrInvalidFunctionID
		}
		m.lighting[param(p, 0)] = slices.Clone(p[:min(8, len(p))])
		return nil, wire.ErrNoError
	case wire.FeatureBatteryStatus:
		return []byte{m.cfg.BatteryLevel, m.cfg.BatteryStatus, 0}, wire.ErrNoError
	case wire.FeatureBatteryVoltage:
		mv := m.cfg.BatteryMillivolts
		return []byte{byte(mv >> 8), byte(mv), m.cfg.BatteryStatus}, wire.ErrNoError
	default:
		return nil, wire.ErrNoError
	}
}

func (m *Mouse) root(fn uint8, p []byte) ([]byte, wire.ErrorCode) {
	switch fn {
	case 0:
		id := wire.FeatureID(uint16(param(p, 0))<<8 | uint16(param(p, 1)))
		m.lookups[id]++
		return []byte{m.indexOf(id), 0, 0}, wire.ErrNoError
	case 1:
		return []byte{m.cfg.ProtocolMajor, m.cfg.ProtocolMinor, param(p, 2)}, wire.ErrNoError
	default:
		return nil, wire.ErrInvalidFunctionID
	}
}

func (m *Mouse) deviceName(fn uint8, p []byte) ([]byte, wire.ErrorCode) {
	switch fn {
	case 0:
		return []byte{uint8(len(m.cfg.Name))}, wire.ErrNoError
	case 1:
		off := int(param(p, 0))
		if off >= len(m.cfg.Name) {
			return nil, wire.ErrOutOfRange
		}
		chunk := make([]byte, 16)
		copy(chunk, m.cfg.Name[off:])
		return chunk, wire.ErrNoError
	default:
		return nil, wire.ErrInvalidFunctionID
	}
}

func (m *Mouse) adjustableDPI(fn uint8, p []byte) ([]byte, wire.ErrorCode) {
	if param(p, 0) >= max(m.cfg.SensorCount, 1) {
		return nil, wire.ErrOutOfRange
	}
	switch fn {
	case 0:
		return []byte{m.cfg.SensorCount}, wire.ErrNoError
	case 1:
		return []byte{
			byte(m.dpi >> 8), byte(m.dpi),
			byte(m.cfg.DefaultDPI >> 8), byte(m.cfg.DefaultDPI),
		}, wire.ErrNoError
	case 2:
		dpi := uint16(param(p, 1))<<8 | uint16(param(p, 2))
		if dpi < profile.MinDPI || dpi > m.cfg.MaxDPI {
			return nil, wire.ErrInvalidArgument
		}
		m.dpi = dpi
		return p[:3], wire.ErrNoError
	default:
		return nil, wire.ErrInvalidFunctionID
	}
}

func (m *Mouse) reportRate(fn uint8, p []byte) ([]byte, wire.ErrorCode) {
	switch fn {
	case 0:
		return []byte{m.rateCode}, wire.ErrNoError
	case 1:
		if _, ok := profile.RateFromCode(param(p, 0)); !ok {
			return nil, wire.ErrInvalidArgument
		}
		m.rateCode = param(p, 0)
		return nil, wire.ErrNoError
	default:
		return nil, wire.ErrInvalidFunctionID
	}
}

func (m *Mouse) onboard(fn uint8, p []byte) ([]byte, wire.ErrorCode) {
	switch fn {
	case 0:
		return []byte{
			0x01, 0x01, 0x01,
			m.cfg.ProfileCount, 0,
			11, 16,
			byte(profile.BlockSize >> 8), byte(profile.BlockSize & 0xFF),
			0x02, m.cfg.VariousInfo,
		}, wire.ErrNoError
	case 1:
		mode := param(p, 0)
		if mode != 1 && mode != 2 {
			return nil, wire.ErrInvalidArgument
		}
		m.onboardMode = mode
		return nil, wire.ErrNoError
	case 2:
		return []byte{m.onboardMode}, wire.ErrNoError
	case 3:
		if param(p, 0) >= m.cfg.ProfileCount {
			return nil, wire.ErrOutOfRange
		}
		m.current = param(p, 0)
		return nil, wire.ErrNoError
	case 4:
		return []byte{m.current}, wire.ErrNoError
	case 5:
		page := uint16(param(p, 0))<<8 | uint16(param(p, 1))
		off := int(param(p, 2))<<8 | int(param(p, 3))
		if off+16 > profile.BlockSize {
			return nil, wire.ErrOutOfRange
		}
		chunk := make([]byte, 16)
		if data, ok := m.pages[page]; ok && off < len(data) {
			copy(chunk, data[off:])
		}
		return chunk, wire.ErrNoError
	default:
		return nil, wire.ErrInvalidFunctionID
	}
}

func param(p []byte, i int) uint8 {
	if i < len(p) {
		return p[i]
	}
	return 0
}
