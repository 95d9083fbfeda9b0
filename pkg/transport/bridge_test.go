package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omm-project/omm-go/pkg/wire"
)

func startBridge(t *testing.T, local Transport) *BridgeServer {
	t.Helper()

	server := NewBridgeServer(local, BridgeConfig{Addr: "127.0.0.1:0"})
	require.NoError(t, server.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, ErrServerClosed)
		case <-time.After(2 * time.Second):
			t.Error("bridge server did not stop")
		}
	})
	return server
}

func TestBridgeRoundTrip(t *testing.T) {
	local := NewPipe(DeviceInfo{Name: "G502 X", VendorID: LogitechVendorID, ProductID: 0xC098})
	local.Peer().SetReportHandler(func(report wire.ReportID, data []byte) {
		reply := append([]byte(nil), data...)
		reply[len(reply)-1] = 0x42
		_ = local.Peer().Inject(report, reply)
	})
	server := startBridge(t, local)

	client := NewBridgeClient(BridgeConfig{Addr: server.Addr().String()})
	inbound := make(chan received, 1)
	client.SetReportHandler(collect(inbound))

	require.NoError(t, client.Open(context.Background()))
	defer client.Close()

	info := client.Info()
	assert.Equal(t, "G502 X", info.Name)
	assert.Equal(t, uint16(0xC098), info.ProductID)

	require.NoError(t, client.Send(wire.ReportShort, []byte{0xFF, 0x00, 0x1A, 0x00, 0x00, 0x00}))
	got := waitReport(t, inbound)
	assert.Equal(t, wire.ReportShort, got.report)
	assert.Equal(t, []byte{0xFF, 0x00, 0x1A, 0x00, 0x00, 0x42}, got.data)

	assert.True(t, local.IsOpen(), "server opens the local transport for the client")
}

func TestBridgeClosesLocalOnDisconnect(t *testing.T) {
	local := NewPipe(DeviceInfo{Name: "sim"})
	server := startBridge(t, local)

	client := NewBridgeClient(BridgeConfig{Addr: server.Addr().String()})
	require.NoError(t, client.Open(context.Background()))
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	assert.Eventually(t, func() bool { return !local.IsOpen() }, time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, client.Send(wire.ReportShort, nil), ErrNotOpen)
}

func TestBridgeRejectsSecondClient(t *testing.T) {
	local := NewPipe(DeviceInfo{Name: "sim"})
	server := startBridge(t, local)

	first := NewBridgeClient(BridgeConfig{Addr: server.Addr().String()})
	require.NoError(t, first.Open(context.Background()))
	defer first.Close()

	second := NewBridgeClient(BridgeConfig{Addr: server.Addr().String(), HelloTimeout: time.Second})
	err := second.Open(context.Background())
	assert.ErrorIs(t, err, ErrTransportUnavailable)
}

func TestBridgeClientUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client := NewBridgeClient(BridgeConfig{Addr: addr, DialTimeout: time.Second})
	assert.ErrorIs(t, client.Open(context.Background()), ErrTransportUnavailable)
}

func TestBridgeClientBadHello(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = NewFrameWriter(conn).WriteReport(wire.ReportShort, []byte{0x01})
		time.Sleep(100 * time.Millisecond)
	}()

	client := NewBridgeClient(BridgeConfig{Addr: ln.Addr().String()})
	assert.ErrorIs(t, client.Open(context.Background()), ErrBadHello)
}
