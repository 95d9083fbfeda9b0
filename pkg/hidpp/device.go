package hidpp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/omm-project/omm-go/pkg/log"
	"github.com/omm-project/omm-go/pkg/transport"
	"github.com/omm-project/omm-go/pkg/wire"
)

// State is the session state of a Device.
type State uint8

const (
	StateDisconnected State = iota
	StateProbing
	StateConnected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateProbing:
		return "PROBING"
	case StateConnected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// Version is the HID++ protocol version answered by a root ping.
type Version struct {
	Major uint8
	Minor uint8
}

// String formats the version as "HID++ major.minor".
func (v Version) String() string {
	return fmt.Sprintf("HID++ %d.%d", v.Major, v.Minor)
}

// Device is a HID++ 2.0 session over one transport. It is safe for
// concurrent use; requests issued from several goroutines are multiplexed
// over software id slots.
type Device struct {
	transport transport.Transport
	config    Config
	logger    *slog.Logger

	mu          sync.Mutex
	state       State
	sessionID   string
	product     string
	deviceIndex uint8
	answered    bool
	features    map[wire.FeatureID]uint8
	resolver    *singleflight.Group
	pending     map[wire.Key]*pendingRequest
	swCounter   uint8
	slotFreed   chan struct{}
	info        *DeviceInfo
}

// New creates a Device speaking over t. Nothing is opened until Connect.
func New(t transport.Transport, config Config) *Device {
	config = config.withDefaults()
	return &Device{
		transport:   t,
		config:      config,
		logger:      config.Logger,
		deviceIndex: wire.DeviceWired,
		features:    make(map[wire.FeatureID]uint8),
		pending:     make(map[wire.Key]*pendingRequest),
		slotFreed:   make(chan struct{}),
	}
}

// Connect opens the transport, locates the addressing index the mouse
// answers on and reads its identity.
func (d *Device) Connect(ctx context.Context) (*DeviceInfo, error) {
	if d.transport == nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, ErrTransportUnavailable)
	}

	sid, err := d.beginSession()
	if err != nil {
		return nil, err
	}

	d.transport.SetReportHandler(d.HandleReport)
	if err := d.transport.Open(ctx); err != nil {
		d.transport.SetReportHandler(nil)
		d.endSession()
		if errors.Is(err, ErrNoDeviceSelected) || errors.Is(err, ErrTransportUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	tinfo := d.transport.Info()
	d.mu.Lock()
	d.product = tinfo.Name
	d.mu.Unlock()
	d.captureState(sid, StateDisconnected, StateProbing, tinfo.String())

	index, version, answered, err := d.probe(ctx)
	if err != nil {
		_ = d.Disconnect()
		return nil, err
	}

	d.mu.Lock()
	if d.sessionID != sid || d.state != StateProbing {
		d.mu.Unlock()
		return nil, ErrConnectionClosed
	}
	d.state = StateConnected
	d.answered = answered
	d.mu.Unlock()

	reason := fmt.Sprintf("index 0x%02x (%s)", index, wire.DeviceIndexName(index))
	if !answered {
		reason = "no probe answer, assuming wired"
	}
	d.captureState(sid, StateProbing, StateConnected, reason)
	d.logger.Info("device connected",
		"device", tinfo.String(),
		"index", fmt.Sprintf("0x%02x", index),
		"session", sid)

	info := d.readInfo(ctx, tinfo, index, version, answered)
	d.mu.Lock()
	if d.sessionID == sid {
		d.info = info
	}
	d.mu.Unlock()
	return info, nil
}

// Disconnect ends the session. Pending requests fail with
// ErrConnectionClosed, the feature cache is dropped and the transport is
// closed. Disconnecting a disconnected device is a no-op.
func (d *Device) Disconnect() error {
	d.mu.Lock()
	if d.state == StateDisconnected {
		d.mu.Unlock()
		return nil
	}
	old := d.state
	sid := d.sessionID
	pending := d.pending
	d.pending = make(map[wire.Key]*pendingRequest)
	d.features = make(map[wire.FeatureID]uint8)
	d.resolver = nil
	d.info = nil
	d.answered = false
	d.state = StateDisconnected
	d.wakeLocked()
	d.mu.Unlock()

	for _, req := range pending {
		req.ch <- result{err: ErrConnectionClosed}
	}

	d.transport.SetReportHandler(nil)
	err := d.transport.Close()
	d.captureState(sid, old, StateDisconnected, "disconnect")
	d.logger.Info("device disconnected", "session", sid, "rejected", len(pending))
	if err != nil {
		return fmt.Errorf("close transport: %w", err)
	}
	return nil
}

// IsConnected reports whether a session is established.
func (d *Device) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state == StateConnected
}

// State returns the session state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// DeviceIndex returns the addressing index requests are sent to.
func (d *Device) DeviceIndex() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deviceIndex
}

// SessionID returns the id of the current session, empty when
// disconnected.
func (d *Device) SessionID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateDisconnected {
		return ""
	}
	return d.sessionID
}

// Info returns the identity read by the last Connect, nil when
// disconnected.
func (d *Device) Info() *DeviceInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.info
}

// Ping sends a root ping to the current addressing index.
func (d *Device) Ping(ctx context.Context) (Version, error) {
	resp, err := d.CallFeature(ctx, wire.FeatureRoot, rootFnPing, nil)
	if err != nil {
		return Version{}, err
	}
	return Version{Major: byteAt(resp, 0), Minor: byteAt(resp, 1)}, nil
}

// HandleReport is the transport's report handler. Reports that match no
// pending request are dropped.
func (d *Device) HandleReport(report wire.ReportID, data []byte) {
	frame, err := wire.DecodeFrame(report, data)
	if err != nil {
		d.mu.Lock()
		sid := d.sessionID
		d.mu.Unlock()
		d.captureFrame(sid, log.DirectionIn, report, data, true)
		d.logger.Debug("discarding report", "report", fmt.Sprintf("0x%02x", uint8(report)), "error", err)
		return
	}

	key := frame.Key()
	d.mu.Lock()
	sid := d.sessionID
	req, ok := d.pending[key]
	if ok {
		delete(d.pending, key)
		d.wakeLocked()
	}
	d.mu.Unlock()

	d.captureFrame(sid, log.DirectionIn, report, data, !ok)
	if !ok {
		d.logger.Debug("unsolicited report", "key", key.String())
		return
	}

	if frame.IsError() {
		req.ch <- result{err: &ProtocolError{Code: frame.ErrorCode()}}
		return
	}
	req.ch <- result{params: frame.Params}
}

func (d *Device) beginSession() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateDisconnected {
		return "", ErrAlreadyConnected
	}
	d.sessionID = uuid.NewString()
	d.state = StateProbing
	d.deviceIndex = wire.DeviceWired
	d.features = make(map[wire.FeatureID]uint8)
	d.resolver = &singleflight.Group{}
	d.pending = make(map[wire.Key]*pendingRequest)
	d.swCounter = 0
	d.info = nil
	return d.sessionID, nil
}

// endSession rolls back beginSession when the transport never opened.
func (d *Device) endSession() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = StateDisconnected
	d.resolver = nil
	d.wakeLocked()
}

// probe pings every addressing index in order and keeps the first that
// answers. Without any answer the wired index is assumed.
func (d *Device) probe(ctx context.Context) (uint8, Version, bool, error) {
	for _, index := range wire.ProbeOrder() {
		d.setDeviceIndex(index)

		pctx, cancel := context.WithTimeout(ctx, d.config.ProbeTimeout)
		version, err := d.Ping(pctx)
		cancel()
		if err == nil {
			return index, version, true, nil
		}
		if ctx.Err() != nil {
			return 0, Version{}, false, ctx.Err()
		}
		if errors.Is(err, ErrConnectionClosed) || errors.Is(err, ErrNotConnected) {
			return 0, Version{}, false, err
		}
		d.logger.Debug("probe: no answer", "index", fmt.Sprintf("0x%02x", index), "error", err)
	}

	d.setDeviceIndex(wire.DeviceWired)
	return wire.DeviceWired, Version{}, false, nil
}

func (d *Device) setDeviceIndex(index uint8) {
	d.mu.Lock()
	d.deviceIndex = index
	d.mu.Unlock()
}

// wakeLocked releases every goroutine waiting for a free software id.
// Callers hold d.mu.
func (d *Device) wakeLocked() {
	close(d.slotFreed)
	d.slotFreed = make(chan struct{})
}

func byteAt(b []byte, i int) uint8 {
	if i < len(b) {
		return b[i]
	}
	return 0
}

func be16At(b []byte, i int) uint16 {
	return uint16(byteAt(b, i))<<8 | uint16(byteAt(b, i+1))
}

func (d *Device) emit(sid string, e log.Event) {
	if d.config.ProtocolLogger == nil {
		return
	}
	e.Timestamp = time.Now()
	e.SessionID = sid
	d.mu.Lock()
	e.Device = d.product
	d.mu.Unlock()
	d.config.ProtocolLogger.Log(e)
}

func (d *Device) captureFrame(sid string, dir log.Direction, report wire.ReportID, data []byte, discarded bool) {
	if d.config.ProtocolLogger == nil {
		return
	}
	d.emit(sid, log.Event{
		Direction: dir,
		Layer:     log.LayerTransport,
		Category:  log.CategoryMessage,
		Frame: &log.FrameEvent{
			ReportID:  uint8(report),
			Data:      append([]byte(nil), data...),
			Discarded: discarded,
		},
	})
}

func (d *Device) captureState(sid string, from, to State, reason string) {
	d.emit(sid, log.Event{
		Layer:    log.LayerSession,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			OldState: from.String(),
			NewState: to.String(),
			Reason:   reason,
		},
	})
}
