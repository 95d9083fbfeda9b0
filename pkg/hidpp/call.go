package hidpp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/omm-project/omm-go/pkg/log"
	"github.com/omm-project/omm-go/pkg/wire"
)

// Root feature functions.
const (
	rootFnGetFeature uint8 = 0
	rootFnPing       uint8 = 1
)

// maxSoftwareID is the highest software id; 0 is reserved for
// device-initiated notifications.
const maxSoftwareID = 15

type result struct {
	params []byte
	err    error
}

// pendingRequest is one in-flight request. ch is buffered so completion
// never blocks the report path.
type pendingRequest struct {
	ch chan result
}

// slot is a reserved software id together with the request registered
// under it.
type slot struct {
	key     wire.Key
	req     *pendingRequest
	session string
}

// GetFeatureIndex resolves a feature id to the device's feature index. The
// root feature is always index 0. Resolutions are cached for the session,
// including negative ones, so each id is asked at most once.
func (d *Device) GetFeatureIndex(ctx context.Context, id wire.FeatureID) (uint8, error) {
	if id == wire.FeatureRoot {
		return 0, nil
	}

	d.mu.Lock()
	if d.state == StateDisconnected {
		d.mu.Unlock()
		return 0, ErrNotConnected
	}
	if index, ok := d.features[id]; ok {
		d.mu.Unlock()
		return cachedIndex(id, index)
	}
	group := d.resolver
	sid := d.sessionID
	d.mu.Unlock()

	ch := group.DoChan(strconv.Itoa(int(id)), func() (any, error) {
		return d.resolve(context.WithoutCancel(ctx), sid, id)
	})

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return 0, r.Err
		}
		return cachedIndex(id, r.Val.(uint8))
	}
}

func (d *Device) resolve(ctx context.Context, sid string, id wire.FeatureID) (uint8, error) {
	d.mu.Lock()
	index, ok := d.features[id]
	d.mu.Unlock()
	if ok {
		return index, nil
	}

	root := wire.FeatureRoot
	resp, err := d.call(ctx, 0, rootFnGetFeature, []byte{byte(id >> 8), byte(id)}, &root)
	if err != nil {
		return 0, err
	}
	index = byteAt(resp, 0)

	d.mu.Lock()
	if d.sessionID == sid && d.state != StateDisconnected {
		d.features[id] = index
	}
	d.mu.Unlock()
	return index, nil
}

func cachedIndex(id wire.FeatureID, index uint8) (uint8, error) {
	if index == 0 {
		return 0, unsupported(id)
	}
	return index, nil
}

// HasFeature reports whether the device implements id. Any failure to
// resolve counts as absent.
func (d *Device) HasFeature(ctx context.Context, id wire.FeatureID) bool {
	_, err := d.GetFeatureIndex(ctx, id)
	return err == nil
}

// CallFeature resolves id and invokes function fn with params. It returns
// the response parameters, padding included.
func (d *Device) CallFeature(ctx context.Context, id wire.FeatureID, fn uint8, params []byte) ([]byte, error) {
	index, err := d.GetFeatureIndex(ctx, id)
	if err != nil {
		return nil, err
	}
	return d.call(ctx, index, fn, params, &id)
}

// CallFeatureByIndex invokes fn on an already known feature index.
func (d *Device) CallFeatureByIndex(ctx context.Context, index, fn uint8, params []byte) ([]byte, error) {
	return d.call(ctx, index, fn, params, nil)
}

func (d *Device) call(ctx context.Context, index, fn uint8, params []byte, feature *wire.FeatureID) ([]byte, error) {
	if fn > 0x0F {
		return nil, fmt.Errorf("%w: function %d", ErrInvalidArgument, fn)
	}
	if len(params) > wire.VeryLongLen-wire.HeaderLen {
		return nil, fmt.Errorf("%w: %d parameter bytes", ErrInvalidArgument, len(params))
	}

	s, err := d.acquire(ctx, index)
	if err != nil {
		return nil, err
	}

	frame := wire.NewRequest(s.key.DeviceIndex, index, fn, s.key.SoftwareID, params)
	body, err := frame.Encode()
	if err != nil {
		d.release(s)
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	ex := &log.ExchangeEvent{
		DeviceIndex:  s.key.DeviceIndex,
		FeatureIndex: index,
		Function:     fn,
		SoftwareID:   s.key.SoftwareID,
		Params:       append([]byte(nil), params...),
	}
	if feature != nil {
		id := uint16(*feature)
		ex.FeatureID = &id
	}

	d.captureFrame(s.session, log.DirectionOut, frame.Report, body, false)
	start := time.Now()
	if err := d.transport.Send(frame.Report, body); err != nil {
		d.release(s)
		d.captureExchange(s.session, ex, log.OutcomeSendFailed, start)
		return nil, fmt.Errorf("send %s: %w", s.key, err)
	}

	cctx, cancel := context.WithTimeout(ctx, d.config.RequestTimeout)
	defer cancel()

	select {
	case res := <-s.req.ch:
		return d.complete(s, ex, start, res)
	case <-cctx.Done():
		if !d.release(s) {
			// Completed while the deadline fired.
			return d.complete(s, ex, start, <-s.req.ch)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			d.captureExchange(s.session, ex, log.OutcomeCanceled, start)
			return nil, ctx.Err()
		}
		d.captureExchange(s.session, ex, log.OutcomeTimeout, start)
		return nil, fmt.Errorf("%w: %s function %d", ErrTimeout, s.key, fn)
	}
}

func (d *Device) complete(s slot, ex *log.ExchangeEvent, start time.Time, res result) ([]byte, error) {
	if res.err == nil {
		ex.Response = res.params
		d.captureExchange(s.session, ex, log.OutcomeSuccess, start)
		return res.params, nil
	}

	var pe *ProtocolError
	switch {
	case errors.As(res.err, &pe):
		code := uint8(pe.Code)
		ex.ErrorCode = &code
		d.captureExchange(s.session, ex, log.OutcomeProtocolError, start)
	case errors.Is(res.err, ErrConnectionClosed):
		d.captureExchange(s.session, ex, log.OutcomeClosed, start)
	}
	return nil, res.err
}

// acquire reserves a software id for index and registers the pending
// request under it. When all fifteen ids are in flight for the same
// (addressing index, feature index) pair it waits for one to free.
func (d *Device) acquire(ctx context.Context, index uint8) (slot, error) {
	d.mu.Lock()
	if d.state == StateDisconnected {
		d.mu.Unlock()
		return slot{}, ErrNotConnected
	}
	sid := d.sessionID

	for {
		if d.state == StateDisconnected || d.sessionID != sid {
			d.mu.Unlock()
			return slot{}, ErrConnectionClosed
		}
		if key, ok := d.nextKeyLocked(index); ok {
			req := &pendingRequest{ch: make(chan result, 1)}
			d.pending[key] = req
			d.mu.Unlock()
			return slot{key: key, req: req, session: sid}, nil
		}

		freed := d.slotFreed
		d.mu.Unlock()
		select {
		case <-ctx.Done():
			return slot{}, ctx.Err()
		case <-freed:
		}
		d.mu.Lock()
	}
}

// nextKeyLocked advances the software id counter past ids already in
// flight for the same addressing and feature index.
func (d *Device) nextKeyLocked(index uint8) (wire.Key, bool) {
	for range maxSoftwareID {
		d.swCounter = d.swCounter%maxSoftwareID + 1
		key := wire.Key{DeviceIndex: d.deviceIndex, FeatureIndex: index, SoftwareID: d.swCounter}
		if _, busy := d.pending[key]; !busy {
			return key, true
		}
	}
	return wire.Key{}, false
}

// release drops the pending entry of s if it is still registered. It
// returns false when a response or disconnect already claimed it.
func (d *Device) release(s slot) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending[s.key] != s.req {
		return false
	}
	delete(d.pending, s.key)
	d.wakeLocked()
	return true
}

func (d *Device) captureExchange(sid string, ex *log.ExchangeEvent, outcome log.Outcome, start time.Time) {
	if d.config.ProtocolLogger == nil {
		return
	}
	ex.Outcome = outcome
	ex.RoundTrip = time.Since(start)
	category := log.CategoryMessage
	if outcome != log.OutcomeSuccess {
		category = log.CategoryError
	}
	d.emit(sid, log.Event{
		Direction: log.DirectionOut,
		Layer:     log.LayerProtocol,
		Category:  category,
		Exchange:  ex,
	})
}
