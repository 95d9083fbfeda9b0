package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omm-project/omm-go/pkg/hidpp"
	ommlog "github.com/omm-project/omm-go/pkg/log"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ommctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestParseArgsDefaults(t *testing.T) {
	cfg, args, err := parseArgs(nil, io.Discard)
	require.NoError(t, err)

	assert.Empty(t, args)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, hidpp.DefaultRequestTimeout, cfg.Timeout)
	assert.Equal(t, 30*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Reconnect.Initial)
	assert.False(t, cfg.Interactive)
}

func TestParseArgsCommand(t *testing.T) {
	cfg, args, err := parseArgs([]string{"-simulate", "-timeout", "2s", "dpi", "800"}, io.Discard)
	require.NoError(t, err)

	assert.True(t, cfg.Simulate)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"dpi", "800"}, args)
}

func TestParseArgsConfigFile(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
bridge: 192.168.1.20:7410
state_dir: /tmp/omm-state
timeout: 2s
auto_reconnect: true
reconnect:
  initial: 1s
  max: 10s
`)

	cfg, _, err := parseArgs([]string{"-config", path}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "192.168.1.20:7410", cfg.Bridge)
	assert.Equal(t, "/tmp/omm-state", cfg.StateDir)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.True(t, cfg.AutoReconnect)
	assert.Equal(t, time.Second, cfg.Reconnect.Initial)
	assert.Equal(t, 10*time.Second, cfg.Reconnect.Max)
	// Keys missing from the file keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 2.0, cfg.Reconnect.Multiplier)
}

func TestParseArgsFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "log_level: debug\ntimeout: 2s\n")

	cfg, args, err := parseArgs([]string{"-config", path, "-log-level", "warn", "battery"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"battery"}, args)
}

func TestParseArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"two sources", []string{"-simulate", "-bridge", "host:7410"}},
		{"serve bridged", []string{"-serve", ":7410", "-bridge", "host:7410"}},
		{"advertise without serve", []string{"-advertise"}},
		{"bad level", []string{"-log-level", "loud"}},
		{"zero timeout", []string{"-timeout", "0s"}},
		{"unknown flag", []string{"-frobnicate"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseArgs(tt.args, io.Discard)
			assert.Error(t, err)
		})
	}
}

func TestParseArgsHelp(t *testing.T) {
	var out bytes.Buffer
	_, _, err := parseArgs([]string{"-h"}, &out)
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, out.String(), "-protocol-log")
}

func TestParseArgsBadConfigFile(t *testing.T) {
	_, _, err := parseArgs([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}, io.Discard)
	assert.Error(t, err)

	path := writeConfig(t, "timeout: [not a duration\n")
	_, _, err = parseArgs([]string{"-config", path}, io.Discard)
	assert.Error(t, err)
}

func TestOpenCapture(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	capture, closeFn, err := openCapture("", logger, slog.LevelInfo)
	require.NoError(t, err)
	assert.Nil(t, capture)
	closeFn()

	capture, closeFn, err = openCapture("", logger, slog.LevelDebug)
	require.NoError(t, err)
	assert.IsType(t, &ommlog.SlogAdapter{}, capture)
	closeFn()

	path := filepath.Join(t.TempDir(), "capture.cbor")
	capture, closeFn, err = openCapture(path, logger, slog.LevelDebug)
	require.NoError(t, err)
	assert.IsType(t, &ommlog.MultiLogger{}, capture)
	capture.Log(ommlog.Event{SessionID: "s1", Frame: &ommlog.FrameEvent{ReportID: 0x11}})
	closeFn()

	events, err := readAll(path)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "s1", events[0].SessionID)
}

func readAll(path string) ([]ommlog.Event, error) {
	r, err := ommlog.NewReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.All()
}

func TestRunClientSimulated(t *testing.T) {
	cfg := defaultConfig()
	cfg.Simulate = true
	cfg.StateDir = t.TempDir()
	cfg.Timeout = 200 * time.Millisecond
	cfg.ConnectTimeout = 5 * time.Second

	out := &logOutput{w: io.Discard}
	logger := slog.New(slog.NewTextHandler(out, nil))
	err := runClient(context.Background(), cfg, []string{"dpi", "800"}, logger, nil, out)
	assert.NoError(t, err)
}

func TestLogOutputFollowsTarget(t *testing.T) {
	var first, second bytes.Buffer
	out := &logOutput{w: &first}

	_, _ = out.Write([]byte("a"))
	out.follow(func() io.Writer { return &second })
	_, _ = out.Write([]byte("b"))

	assert.Equal(t, "a", first.String())
	assert.Equal(t, "b", second.String())
}
