package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/omm-project/omm-go/pkg/log"
	"github.com/omm-project/omm-go/pkg/wire"
)

// Bridge errors.
var (
	// ErrBridgeBusy indicates the server already serves another client.
	ErrBridgeBusy = errors.New("bridge busy")

	// ErrBadHello indicates the first frame was not a device description.
	ErrBadHello = errors.New("invalid bridge hello")

	// ErrServerClosed is returned by Serve after Stop.
	ErrServerClosed = errors.New("bridge server closed")
)

// BridgeConfig configures both ends of a TCP bridge.
type BridgeConfig struct {
	// Addr is the listen address (server) or the dial address (client).
	Addr string

	// DialTimeout bounds the TCP connect (client, default: 5s).
	DialTimeout time.Duration

	// HelloTimeout bounds the wait for the server's hello (client, default: 5s).
	HelloTimeout time.Duration

	// Logger receives operational logs. nil disables them.
	Logger *slog.Logger

	// ProtocolLogger captures every bridged report. nil disables capture.
	ProtocolLogger log.Logger
}

// DefaultBridgeConfig returns the default bridge configuration.
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		Addr:         ":7410",
		DialTimeout:  5 * time.Second,
		HelloTimeout: 5 * time.Second,
	}
}

func (c BridgeConfig) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return discardLogger
}

// BridgeServer exports a local Transport over TCP to one client at a time.
// The local transport is opened when a client connects and closed when it
// leaves.
type BridgeServer struct {
	config BridgeConfig
	local  Transport

	mu       sync.Mutex
	listener net.Listener
	active   net.Conn
	closed   bool
	wg       sync.WaitGroup
}

// NewBridgeServer creates a server exporting local.
func NewBridgeServer(local Transport, config BridgeConfig) *BridgeServer {
	return &BridgeServer{config: config, local: local}
}

// Listen binds the configured address.
func (s *BridgeServer) Listen() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("bridge listen %s: %w", s.config.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.config.logger().Info("bridge listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *BridgeServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts clients until ctx is done or Stop is called. Listen is
// called first if needed.
func (s *BridgeServer) Serve(ctx context.Context) error {
	if s.Addr() == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = s.Stop() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				s.wg.Wait()
				return ErrServerClosed
			}
			return fmt.Errorf("bridge accept: %w", err)
		}

		s.mu.Lock()
		if s.active != nil {
			s.mu.Unlock()
			s.config.logger().Warn("bridge busy, rejecting client", "remote", conn.RemoteAddr().String())
			_ = conn.Close()
			continue
		}
		s.active = conn
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handle(ctx, conn)
	}
}

// Stop closes the listener and the active client.
func (s *BridgeServer) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.listener
	active := s.active
	s.mu.Unlock()

	if active != nil {
		_ = active.Close()
	}
	if ln != nil {
		return ln.Close()
	}
	return nil
}

func (s *BridgeServer) handle(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.active = nil
		s.mu.Unlock()
		_ = conn.Close()
	}()

	connID := uuid.New().String()
	logger := s.config.logger().With("conn_id", connID, "remote", conn.RemoteAddr().String())

	framer := NewFramer(conn)
	if s.config.ProtocolLogger != nil {
		framer.SetLogger(s.config.ProtocolLogger, connID)
	}

	if err := s.local.Open(ctx); err != nil && !errors.Is(err, ErrAlreadyOpen) {
		logger.Error("bridge could not open local device", "error", err)
		return
	}
	defer func() {
		s.local.SetReportHandler(nil)
		if err := s.local.Close(); err != nil {
			logger.Warn("bridge close local device", "error", err)
		}
	}()

	hello, err := cbor.Marshal(s.local.Info())
	if err != nil {
		logger.Error("bridge encode hello", "error", err)
		return
	}
	if err := framer.WriteReport(helloReport, hello); err != nil {
		logger.Warn("bridge send hello", "error", err)
		return
	}

	s.local.SetReportHandler(func(report wire.ReportID, data []byte) {
		if err := framer.WriteReport(report, data); err != nil {
			logger.Debug("bridge forward to client failed", "error", err)
		}
	})

	logger.Info("bridge client connected")
	for {
		report, data, err := framer.ReadReport()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logger.Warn("bridge read", "error", err)
			}
			logger.Info("bridge client disconnected")
			return
		}
		if err := s.local.Send(report, data); err != nil {
			logger.Warn("bridge forward to device failed", "error", err)
		}
	}
}

// BridgeClient is a Transport reaching a BridgeServer.
type BridgeClient struct {
	config BridgeConfig

	mu     sync.Mutex
	conn   net.Conn
	framer *Framer
	info   DeviceInfo
	wg     sync.WaitGroup

	handlerMu sync.RWMutex
	handler   ReportHandler
}

// NewBridgeClient creates a closed client for config.Addr.
func NewBridgeClient(config BridgeConfig) *BridgeClient {
	defaults := DefaultBridgeConfig()
	if config.DialTimeout <= 0 {
		config.DialTimeout = defaults.DialTimeout
	}
	if config.HelloTimeout <= 0 {
		config.HelloTimeout = defaults.HelloTimeout
	}
	return &BridgeClient{config: config}
}

// Open dials the server and waits for its hello.
func (c *BridgeClient) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return ErrAlreadyOpen
	}

	dialer := net.Dialer{Timeout: c.config.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.config.Addr)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrTransportUnavailable, c.config.Addr, err)
	}

	connID := uuid.New().String()
	framer := NewFramer(conn)
	if c.config.ProtocolLogger != nil {
		framer.SetLogger(c.config.ProtocolLogger, connID)
	}

	_ = conn.SetReadDeadline(time.Now().Add(c.config.HelloTimeout))
	report, data, err := framer.ReadReport()
	if err != nil {
		_ = conn.Close()
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %w", ErrTransportUnavailable, ErrBridgeBusy)
		}
		return fmt.Errorf("%w: read hello: %v", ErrTransportUnavailable, err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	var info DeviceInfo
	if report != helloReport {
		_ = conn.Close()
		return fmt.Errorf("%w: report 0x%02x", ErrBadHello, uint8(report))
	}
	if err := cbor.Unmarshal(data, &info); err != nil {
		_ = conn.Close()
		return fmt.Errorf("%w: %v", ErrBadHello, err)
	}

	c.conn = conn
	c.framer = framer
	c.info = info

	c.config.logger().Info("bridge connected",
		"addr", c.config.Addr, "conn_id", connID, "device", info.String())

	c.wg.Add(1)
	go c.readLoop(framer)
	return nil
}

// Close disconnects from the server.
func (c *BridgeClient) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.framer = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	c.wg.Wait()
	return err
}

// Send forwards one report to the server.
func (c *BridgeClient) Send(report wire.ReportID, data []byte) error {
	c.mu.Lock()
	framer := c.framer
	c.mu.Unlock()

	if framer == nil {
		return ErrNotOpen
	}
	return framer.WriteReport(report, data)
}

// SetReportHandler installs the inbound report handler.
func (c *BridgeClient) SetReportHandler(h ReportHandler) {
	c.handlerMu.Lock()
	c.handler = h
	c.handlerMu.Unlock()
}

// Info returns the description received in the server's hello.
func (c *BridgeClient) Info() DeviceInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

func (c *BridgeClient) readLoop(framer *Framer) {
	defer c.wg.Done()
	for {
		report, data, err := framer.ReadReport()
		if err != nil {
			c.mu.Lock()
			open := c.framer == framer
			c.mu.Unlock()
			if open {
				c.config.logger().Warn("bridge connection lost", "addr", c.config.Addr, "error", err)
			}
			return
		}

		c.handlerMu.RLock()
		h := c.handler
		c.handlerMu.RUnlock()
		if h != nil {
			h(report, data)
		}
	}
}

var _ Transport = (*BridgeClient)(nil)
