// Command ommctl configures HID++ 2.0 gaming mice.
//
// It talks to a mouse over a local HID interface, through a TCP bridge
// exported by another ommctl instance, or to the built-in simulator.
//
// Usage:
//
//	ommctl [flags] [command [args...]]
//
// Examples:
//
//	# Show the connected mouse
//	ommctl
//
//	# Set the sensor resolution
//	ommctl dpi 1600
//
//	# Edit profiles interactively, capturing all traffic
//	ommctl -interactive -protocol-log session.olog
//
//	# Export the local mouse on the network and announce it
//	ommctl -serve :7410 -advertise -name desk
//
//	# Use the first bridge found over mDNS
//	ommctl -bridge mdns -interactive
//
// Commands are the same as in the interactive shell; run "ommctl help" for
// the list.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/omm-project/omm-go/cmd/ommctl/interactive"
	"github.com/omm-project/omm-go/internal/simulator"
	"github.com/omm-project/omm-go/pkg/discovery"
	ommlog "github.com/omm-project/omm-go/pkg/log"
	"github.com/omm-project/omm-go/pkg/service"
	"github.com/omm-project/omm-go/pkg/transport"
)

const browseWindow = 3 * time.Second

func main() {
	cfg, args, err := parseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ommctl: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg, args); err != nil {
		fmt.Fprintf(os.Stderr, "ommctl: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg Config, args []string) error {
	level, _ := cfg.level()
	out := &logOutput{w: os.Stderr}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	capture, closeCapture, err := openCapture(cfg.ProtocolLog, logger, level)
	if err != nil {
		return err
	}
	defer closeCapture()

	switch {
	case cfg.Browse:
		return runBrowse(ctx, cfg, os.Stdout)
	case cfg.Serve != "":
		return runServe(ctx, cfg, logger, capture)
	default:
		return runClient(ctx, cfg, args, logger, capture, out)
	}
}

// openCapture builds the protocol capture sink: the CBOR file when path is
// set, plus the debug log when the level allows it.
func openCapture(path string, logger *slog.Logger, level slog.Level) (ommlog.Logger, func(), error) {
	var sinks []ommlog.Logger
	closeFn := func() {}

	if path != "" {
		fl, err := ommlog.NewFileLogger(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open protocol log: %w", err)
		}
		sinks = append(sinks, fl)
		closeFn = func() {
			if err := fl.Close(); err != nil {
				logger.Warn("failed to close protocol log", "error", err)
			}
		}
	}
	if level <= slog.LevelDebug {
		sinks = append(sinks, ommlog.NewSlogAdapter(logger))
	}

	switch len(sinks) {
	case 0:
		return nil, closeFn, nil
	case 1:
		return sinks[0], closeFn, nil
	default:
		return ommlog.NewMultiLogger(sinks...), closeFn, nil
	}
}

func runBrowse(ctx context.Context, cfg Config, w io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, browseWindow)
	defer cancel()

	found, err := discovery.NewBrowser(cfg.discovery()).Browse(ctx)
	if err != nil {
		return err
	}
	n := 0
	for svc := range found {
		fmt.Fprintf(w, "%-24s %s\n", svc.Instance, svc)
		n++
	}
	if n == 0 {
		fmt.Fprintln(w, "No bridges found")
	}
	return nil
}

func runServe(ctx context.Context, cfg Config, logger *slog.Logger, capture ommlog.Logger) error {
	local, info := localTransport(cfg, logger)

	bcfg := transport.DefaultBridgeConfig()
	bcfg.Addr = cfg.Serve
	bcfg.Logger = logger
	bcfg.ProtocolLogger = capture

	srv := transport.NewBridgeServer(local, bcfg)
	if err := srv.Listen(); err != nil {
		return err
	}
	logger.Info("bridge listening", "addr", srv.Addr().String(), "device", info.String())

	if cfg.Advertise {
		port := discovery.DefaultPort
		if tcp, ok := srv.Addr().(*net.TCPAddr); ok {
			port = tcp.Port
		}
		adv := discovery.NewAdvertiser(cfg.discovery())
		err := adv.Advertise(ctx, &discovery.BridgeInfo{
			Instance:  cfg.Name,
			Name:      info.Name,
			VendorID:  info.VendorID,
			ProductID: info.ProductID,
			Port:      uint16(port),
		})
		if err != nil {
			_ = srv.Stop()
			return err
		}
		defer adv.Stop()
		logger.Info("bridge advertised", "service", discovery.ServiceType)
	}

	err := srv.Serve(ctx)
	if errors.Is(err, transport.ErrServerClosed) {
		return nil
	}
	return err
}

// localTransport returns the transport for the mouse attached to this host
// and a best-effort description of it.
func localTransport(cfg Config, logger *slog.Logger) (transport.Transport, transport.DeviceInfo) {
	if cfg.Simulate {
		mouse := simulator.New(simulator.DefaultConfig())
		return mouse.Transport(), mouse.Transport().Info()
	}

	hcfg := transport.DefaultHIDConfig()
	hcfg.Path = cfg.Path
	hcfg.Logger = logger

	info := transport.DeviceInfo{Path: cfg.Path, VendorID: hcfg.VendorID}
	if cfg.Path == "" {
		if candidates, err := transport.Enumerate(hcfg.VendorID, nil); err == nil {
			if chosen, ok := transport.PreferVendorInterface(candidates); ok {
				info = chosen
			}
		}
	}
	return transport.NewHID(hcfg), info
}

func runClient(ctx context.Context, cfg Config, args []string, logger *slog.Logger, capture ommlog.Logger, out *logOutput) error {
	t, err := clientTransport(ctx, cfg, logger)
	if err != nil {
		return err
	}

	scfg := service.DefaultConfig()
	scfg.Device = cfg.device(logger)
	scfg.Device.ProtocolLogger = capture
	scfg.StateDir = cfg.StateDir
	scfg.AutoReconnect = cfg.AutoReconnect
	scfg.Reconnect.Backoff = cfg.Reconnect
	scfg.Reconnect.AttemptTimeout = cfg.ConnectTimeout
	scfg.Logger = logger

	svc := service.New(t, scfg)
	defer svc.Close()

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	info, err := svc.Connect(connectCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	logger.Debug("connected", "device", info.DisplayName(), "session", svc.Device().SessionID())

	shell := interactive.New(svc, os.Stdout)
	if cfg.Interactive {
		out.follow(shell.Stderr)
		return shell.Run(ctx)
	}
	if len(args) == 0 {
		args = []string{"info"}
	}
	if err := shell.Exec(ctx, args); err != nil && !errors.Is(err, interactive.ErrQuit) {
		return err
	}
	return nil
}

func clientTransport(ctx context.Context, cfg Config, logger *slog.Logger) (transport.Transport, error) {
	switch {
	case cfg.Simulate:
		return simulator.New(simulator.DefaultConfig()).Transport(), nil
	case cfg.Bridge == BridgeMDNS:
		findCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
		found, err := discovery.NewBrowser(cfg.discovery()).Find(findCtx, 0)
		if err != nil {
			return nil, fmt.Errorf("find bridge: %w", err)
		}
		logger.Info("using bridge", "bridge", found.String())
		return bridgeClient(found.Addr(), logger), nil
	case cfg.Bridge != "":
		return bridgeClient(cfg.Bridge, logger), nil
	default:
		t, _ := localTransport(cfg, logger)
		return t, nil
	}
}

func bridgeClient(addr string, logger *slog.Logger) *transport.BridgeClient {
	bcfg := transport.DefaultBridgeConfig()
	bcfg.Addr = addr
	bcfg.Logger = logger
	return transport.NewBridgeClient(bcfg)
}

// logOutput is the log destination. It follows the shell once the prompt is
// up so log lines do not corrupt the input line.
type logOutput struct {
	mu     sync.Mutex
	w      io.Writer
	target func() io.Writer
}

func (o *logOutput) follow(target func() io.Writer) {
	o.mu.Lock()
	o.target = target
	o.mu.Unlock()
}

func (o *logOutput) Write(p []byte) (int, error) {
	o.mu.Lock()
	w := o.w
	if o.target != nil {
		w = o.target()
	}
	o.mu.Unlock()
	return w.Write(p)
}
