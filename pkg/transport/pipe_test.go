package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omm-project/omm-go/pkg/wire"
)

type received struct {
	report wire.ReportID
	data   []byte
}

func collect(ch chan<- received) ReportHandler {
	return func(report wire.ReportID, data []byte) {
		ch <- received{report, data}
	}
}

func waitReport(t *testing.T, ch <-chan received) received {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for report")
		return received{}
	}
}

func TestPipeDeliversBothDirections(t *testing.T) {
	p := NewPipe(DeviceInfo{Name: "sim", VendorID: LogitechVendorID, ProductID: 0xC08B})
	toDevice := make(chan received, 4)
	toHost := make(chan received, 4)
	p.Peer().SetReportHandler(collect(toDevice))
	p.SetReportHandler(collect(toHost))

	require.NoError(t, p.Open(context.Background()))
	defer p.Close()

	require.NoError(t, p.Send(wire.ReportShort, []byte{0xFF, 0x00, 0x1A}))
	got := waitReport(t, toDevice)
	assert.Equal(t, wire.ReportShort, got.report)
	assert.Equal(t, []byte{0xFF, 0x00, 0x1A}, got.data)

	require.NoError(t, p.Peer().Inject(wire.ReportLong, []byte{0xFF, 0x00, 0x1A, 0x04}))
	got = waitReport(t, toHost)
	assert.Equal(t, wire.ReportLong, got.report)
	assert.Equal(t, []byte{0xFF, 0x00, 0x1A, 0x04}, got.data)
}

func TestPipeCopiesData(t *testing.T) {
	p := NewPipe(DeviceInfo{})
	toDevice := make(chan received, 1)
	p.Peer().SetReportHandler(collect(toDevice))
	require.NoError(t, p.Open(context.Background()))
	defer p.Close()

	data := []byte{1, 2, 3}
	require.NoError(t, p.Send(wire.ReportShort, data))
	data[0] = 9

	got := waitReport(t, toDevice)
	assert.Equal(t, byte(1), got.data[0])
}

func TestPipeHandlerMayReplyInline(t *testing.T) {
	p := NewPipe(DeviceInfo{})
	toHost := make(chan received, 1)
	p.SetReportHandler(collect(toHost))
	p.Peer().SetReportHandler(func(report wire.ReportID, data []byte) {
		_ = p.Peer().Inject(report, data)
	})
	require.NoError(t, p.Open(context.Background()))
	defer p.Close()

	require.NoError(t, p.Send(wire.ReportShort, []byte{0x01, 0x02, 0x03}))
	got := waitReport(t, toHost)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, got.data)
}

func TestPipeLifecycle(t *testing.T) {
	p := NewPipe(DeviceInfo{})

	assert.ErrorIs(t, p.Send(wire.ReportShort, nil), ErrNotOpen)
	assert.ErrorIs(t, p.Peer().Inject(wire.ReportShort, nil), ErrNotOpen)

	require.NoError(t, p.Open(context.Background()))
	assert.True(t, p.IsOpen())
	assert.ErrorIs(t, p.Open(context.Background()), ErrAlreadyOpen)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.False(t, p.IsOpen())
	assert.ErrorIs(t, p.Send(wire.ReportShort, nil), ErrNotOpen)

	require.NoError(t, p.Open(context.Background()), "pipe reopens after close")
	require.NoError(t, p.Close())
}

func TestPipeFailOpen(t *testing.T) {
	p := NewPipe(DeviceInfo{})
	p.FailOpen(ErrNoDeviceSelected)
	err := p.Open(context.Background())
	assert.True(t, errors.Is(err, ErrNoDeviceSelected))

	p.FailOpen(nil)
	require.NoError(t, p.Open(context.Background()))
	require.NoError(t, p.Close())
}

func TestPipeOpenCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewPipe(DeviceInfo{}).Open(ctx), context.Canceled)
}
