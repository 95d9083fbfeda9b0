package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/omm-project/omm-go/pkg/connection"
	"github.com/omm-project/omm-go/pkg/discovery"
	"github.com/omm-project/omm-go/pkg/hidpp"
)

// BridgeMDNS selects a bridge by mDNS browsing instead of an address.
const BridgeMDNS = "mdns"

// Config holds the ommctl configuration. The YAML keys mirror the flags.
type Config struct {
	ConfigFile string `yaml:"-"`

	LogLevel    string `yaml:"log_level"`
	ProtocolLog string `yaml:"protocol_log"`
	StateDir    string `yaml:"state_dir"`

	// Device selection.
	Path     string `yaml:"path"`
	Bridge   string `yaml:"bridge"`
	Simulate bool   `yaml:"simulate"`

	// Bridge host mode.
	Serve     string `yaml:"serve"`
	Advertise bool   `yaml:"advertise"`
	Name      string `yaml:"name"`
	Interface string `yaml:"interface"`
	Browse    bool   `yaml:"browse"`

	Interactive    bool          `yaml:"interactive"`
	Timeout        time.Duration `yaml:"timeout"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	AutoReconnect bool                     `yaml:"auto_reconnect"`
	Reconnect     connection.BackoffConfig `yaml:"reconnect"`
}

func defaultConfig() Config {
	cfg := Config{
		LogLevel:       "info",
		Timeout:        hidpp.DefaultRequestTimeout,
		ConnectTimeout: 30 * time.Second,
		Reconnect:      connection.DefaultBackoffConfig(),
	}
	if dir, err := os.UserConfigDir(); err == nil {
		cfg.StateDir = filepath.Join(dir, "omm")
	}
	return cfg
}

func newFlagSet(cfg *Config, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("ommctl", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintln(output, "Usage: ommctl [flags] [command [args...]]")
		fmt.Fprintln(output)
		fmt.Fprintln(output, "Without a command ommctl prints the device info; -interactive starts a shell.")
		fmt.Fprintln(output)
		fmt.Fprintln(output, "Flags:")
		fs.PrintDefaults()
	}

	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "YAML configuration file")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.ProtocolLog, "protocol-log", cfg.ProtocolLog, "Capture HID++ traffic to this file (CBOR)")
	fs.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "Directory for persisted profiles")

	fs.StringVar(&cfg.Path, "path", cfg.Path, "Open this HID device path")
	fs.StringVar(&cfg.Bridge, "bridge", cfg.Bridge, "Connect through a bridge at host:port, or \"mdns\" to browse for one")
	fs.BoolVar(&cfg.Simulate, "simulate", cfg.Simulate, "Use the built-in simulated mouse")

	fs.StringVar(&cfg.Serve, "serve", cfg.Serve, "Export the local mouse as a bridge on this address (e.g. :7410)")
	fs.BoolVar(&cfg.Advertise, "advertise", cfg.Advertise, "Announce the bridge over mDNS (with -serve)")
	fs.StringVar(&cfg.Name, "name", cfg.Name, "mDNS instance name of the bridge")
	fs.StringVar(&cfg.Interface, "interface", cfg.Interface, "Restrict mDNS to this network interface")
	fs.BoolVar(&cfg.Browse, "browse", cfg.Browse, "List bridges announced over mDNS and exit")

	fs.BoolVar(&cfg.Interactive, "interactive", cfg.Interactive, "Start the interactive shell")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout")
	fs.DurationVar(&cfg.ConnectTimeout, "connect-timeout", cfg.ConnectTimeout, "Timeout for opening the device")
	fs.BoolVar(&cfg.AutoReconnect, "auto-reconnect", cfg.AutoReconnect, "Reconnect when the device is lost")
	return fs
}

// parseArgs parses the command line. When -config names a file, the file is
// loaded over the defaults and the command line is applied again on top, so
// flags override file values.
func parseArgs(args []string, output io.Writer) (Config, []string, error) {
	cfg := defaultConfig()
	fs := newFlagSet(&cfg, output)
	if err := fs.Parse(args); err != nil {
		return Config{}, nil, err
	}
	if cfg.ConfigFile == "" {
		return cfg, fs.Args(), cfg.validate()
	}

	file := defaultConfig()
	if err := loadConfigFile(cfg.ConfigFile, &file); err != nil {
		return Config{}, nil, err
	}
	file.ConfigFile = cfg.ConfigFile

	fs = newFlagSet(&file, output)
	if err := fs.Parse(args); err != nil {
		return Config{}, nil, err
	}
	return file, fs.Args(), file.validate()
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c Config) validate() error {
	sources := 0
	for _, set := range []bool{c.Path != "", c.Bridge != "", c.Simulate} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return errors.New("-path, -bridge and -simulate are mutually exclusive")
	}
	if c.Serve != "" && c.Bridge != "" {
		return errors.New("-serve cannot export a bridged device")
	}
	if c.Advertise && c.Serve == "" {
		return errors.New("-advertise requires -serve")
	}
	if c.Timeout <= 0 || c.ConnectTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if _, err := c.level(); err != nil {
		return err
	}
	return nil
}

func (c Config) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}

func (c Config) discovery() discovery.Config {
	dc := discovery.DefaultConfig()
	dc.Interface = c.Interface
	return dc
}

func (c Config) device(logger *slog.Logger) hidpp.Config {
	dc := hidpp.DefaultConfig()
	dc.RequestTimeout = c.Timeout
	dc.ProbeTimeout = min(c.Timeout, time.Second)
	dc.Logger = logger
	return dc
}
