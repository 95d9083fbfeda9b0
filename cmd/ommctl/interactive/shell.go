// Package interactive provides the command set of ommctl, both as one-shot
// commands and as a readline shell.
package interactive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/omm-project/omm-go/pkg/hidpp"
	"github.com/omm-project/omm-go/pkg/profile"
	"github.com/omm-project/omm-go/pkg/service"
	"github.com/omm-project/omm-go/pkg/wire"
)

// ErrQuit is returned by Exec for the quit command.
var ErrQuit = errors.New("quit")

// Shell executes ommctl commands against a MouseService.
type Shell struct {
	svc *service.MouseService
	out io.Writer
	rl  *readline.Instance
}

// New creates a shell writing to out.
func New(svc *service.MouseService, out io.Writer) *Shell {
	return &Shell{svc: svc, out: out}
}

// Run starts the interactive command loop. It returns when the user quits,
// input ends or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "omm> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	s.rl = rl
	s.out = rl.Stdout()

	s.svc.OnEvent(s.handleEvent)
	s.printHelp()

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			return nil
		}

		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if err := s.Exec(ctx, args); err != nil {
			if errors.Is(err, ErrQuit) {
				fmt.Fprintln(s.out, "Exiting...")
				return nil
			}
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
	}
}

// Stderr returns a writer that coordinates with the prompt once Run has
// started, and os.Stderr before.
func (s *Shell) Stderr() io.Writer {
	if s.rl != nil {
		return s.rl.Stderr()
	}
	return os.Stderr
}

func completer() *readline.PrefixCompleter {
	zones := []readline.PrefixCompleterInterface{
		readline.PcItem("logo"), readline.PcItem("dpi"), readline.PcItem("both"),
	}
	var buttons []readline.PrefixCompleterInterface
	for b := range profile.ButtonCount {
		buttons = append(buttons, readline.PcItem(profile.Button(b).String()))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("info"),
		readline.PcItem("features"),
		readline.PcItem("battery"),
		readline.PcItem("dpi"),
		readline.PcItem("rate"),
		readline.PcItem("profile"),
		readline.PcItem("profiles"),
		readline.PcItem("select"),
		readline.PcItem("stage"),
		readline.PcItem("rgb", zones...),
		readline.PcItem("button", buttons...),
		readline.PcItem("onboard", readline.PcItem("on"), readline.PcItem("off")),
		readline.PcItem("pull"),
		readline.PcItem("apply"),
		readline.PcItem("save"),
		readline.PcItem("load"),
		readline.PcItem("reset"),
		readline.PcItem("export", readline.PcItem("all")),
		readline.PcItem("import"),
		readline.PcItem("quit"),
	)
}

// Exec runs one command.
func (s *Shell) Exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return nil
	}
	cmd, rest := strings.ToLower(args[0]), args[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()
		return nil
	case "info", "i":
		return s.cmdInfo()
	case "features", "f":
		return s.cmdFeatures(ctx)
	case "battery":
		return s.cmdBattery(ctx)
	case "dpi":
		return s.cmdDPI(ctx, rest)
	case "rate":
		return s.cmdRate(ctx, rest)
	case "profile", "p":
		s.printProfile(s.svc.Manager().Current())
		return nil
	case "profiles":
		return s.cmdProfiles()
	case "select":
		return s.cmdSelect(ctx, rest)
	case "stage":
		return s.cmdStage(rest)
	case "rgb":
		return s.cmdRGB(rest)
	case "button":
		return s.cmdButton(rest)
	case "onboard":
		return s.cmdOnboard(ctx, rest)
	case "pull":
		return s.cmdPull(ctx)
	case "apply":
		if err := s.svc.ApplyCurrent(ctx); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Profile applied")
		return nil
	case "save":
		if err := s.svc.Save(); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Saved to %s\n", s.svc.Store().Path())
		return nil
	case "load":
		return s.cmdLoad()
	case "reset":
		p, err := s.svc.ResetCurrent()
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Profile %d reset to defaults\n", p.Index)
		return nil
	case "export":
		return s.cmdExport(rest)
	case "import":
		return s.cmdImport(rest)
	case "quit", "exit", "q":
		return ErrQuit
	default:
		return fmt.Errorf("unknown command: %s (type 'help' for commands)", cmd)
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
ommctl Commands:
  Device:
    info                      - Show the connected device
    features                  - List supported HID++ features
    battery                   - Show the battery state
    dpi [value]               - Read or set the sensor resolution
    rate [hz]                 - Read or set the polling rate
    onboard on|off            - Switch between onboard and host mode
    pull                      - Read the onboard profiles into the editor

  Profiles:
    profile                   - Show the selected profile
    profiles                  - List all profiles
    select <n>                - Select profile n (switches the device)
    stage <n> <dpi> [on|off]  - Edit a DPI stage of the selected profile
    rgb <zone> <effect> [color] [brightness] [speed]
                              - Edit lighting (zone: logo, dpi, both)
    button <name> <action>    - Remap a button (function, key [mods+]key, macro n, disabled)
    apply                     - Write the selected profile to the device
    reset                     - Restore the selected profile to defaults

  Storage:
    save | load               - Persist or restore the profile set
    export [all] [file]       - Export the selected profile (or all) as JSON
    import <file> [slot]      - Import an export

  General:
    help                      - Show this help
    quit                      - Exit`)
}

func (s *Shell) handleEvent(e service.Event) {
	switch e.Type {
	case service.EventDisconnected:
		if e.Error != nil {
			fmt.Fprintf(s.Stderr(), "[device lost: %v]\n", e.Error)
		}
	case service.EventReconnecting:
		fmt.Fprintf(s.Stderr(), "[reconnecting, attempt %d]\n", e.Attempt)
	case service.EventConnected:
		if e.Info != nil {
			fmt.Fprintf(s.Stderr(), "[connected: %s]\n", e.Info.DisplayName())
		}
	case service.EventSyncFailed:
		fmt.Fprintf(s.Stderr(), "[device state not fully read: %v]\n", e.Error)
	}
}

func (s *Shell) cmdInfo() error {
	info := s.svc.Info()
	if info == nil {
		return service.ErrNotConnected
	}
	fmt.Fprintf(s.out, "Name:      %s\n", info.DisplayName())
	fmt.Fprintf(s.out, "USB ID:    %04x:%04x\n", info.VendorID, info.ProductID)
	fmt.Fprintf(s.out, "Protocol:  %s\n", info.Protocol)
	fmt.Fprintf(s.out, "Address:   0x%02x (%s)\n", info.DeviceIndex, wire.DeviceIndexName(info.DeviceIndex))
	if info.Model != nil {
		fmt.Fprintf(s.out, "Model:     %s, %d buttons\n", info.Model.Name, info.Model.Buttons)
	}
	fmt.Fprintf(s.out, "Max DPI:   %d\n", info.MaxDPI())
	fmt.Fprintf(s.out, "Session:   %s\n", s.svc.Device().SessionID())
	return nil
}

func (s *Shell) cmdFeatures(ctx context.Context) error {
	if !s.svc.IsConnected() {
		return service.ErrNotConnected
	}
	for _, name := range s.svc.Device().Features(ctx) {
		id, _ := wire.FeatureByName(name)
		idx, _ := s.svc.Device().GetFeatureIndex(ctx, id)
		fmt.Fprintf(s.out, "  0x%02x  0x%04X  %s\n", idx, uint16(id), name)
	}
	return nil
}

func (s *Shell) cmdBattery(ctx context.Context) error {
	b, err := s.svc.Device().GetBatteryStatus(ctx)
	if errors.Is(err, hidpp.ErrUnsupportedFeature) {
		fmt.Fprintln(s.out, "Battery: not reported by this device")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Battery: %d%%", b.Level)
	if b.Charging {
		fmt.Fprint(s.out, " (charging)")
	}
	if b.Voltage > 0 {
		fmt.Fprintf(s.out, ", %d mV", b.Voltage)
	}
	fmt.Fprintln(s.out)
	return nil
}

func (s *Shell) cmdDPI(ctx context.Context, args []string) error {
	dev := s.svc.Device()
	if len(args) == 0 {
		info, err := dev.GetDPI(ctx, 0)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "DPI: %d (default %d, %d sensor(s))\n", info.Current, info.Default, info.SensorCount)
		return nil
	}

	dpi, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid dpi %q", args[0])
	}
	if err := dev.SetDPI(ctx, dpi, 0); err != nil {
		return err
	}
	stage := s.svc.Manager().Current().DefaultDPIStage
	if _, err := s.svc.Manager().UpdateDPIStage(stage, func(st *profile.DPIStage) { st.X, st.Y = dpi, dpi }); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "DPI set to %d\n", dpi)
	return nil
}

func (s *Shell) cmdRate(ctx context.Context, args []string) error {
	dev := s.svc.Device()
	if len(args) == 0 {
		hz, err := dev.GetReportRate(ctx)
		if err != nil {
			return err
		}
		if hz == 0 {
			fmt.Fprintln(s.out, "Polling rate: unknown")
			return nil
		}
		fmt.Fprintf(s.out, "Polling rate: %d Hz\n", hz)
		return nil
	}

	hz, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(args[0]), "hz"))
	if err != nil {
		return fmt.Errorf("invalid rate %q", args[0])
	}
	if err := dev.SetReportRate(ctx, hz); err != nil {
		return err
	}
	if _, err := s.svc.Manager().UpdateCurrent(func(p *profile.Profile) { p.PollingRate = hz }); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Polling rate set to %d Hz\n", hz)
	return nil
}

func (s *Shell) cmdProfiles() error {
	m := s.svc.Manager()
	current := m.CurrentIndex()
	for _, p := range m.Profiles() {
		marker := " "
		if p.Index == current {
			marker = "*"
		}
		stage := p.ActiveStage()
		fmt.Fprintf(s.out, "%s %d  %-20s %5d DPI  %4d Hz  %s\n",
			marker, p.Index, p.Name, stage.X, p.PollingRate, p.RGB.Logo.Effect)
	}
	return nil
}

func (s *Shell) printProfile(p profile.Profile) {
	fmt.Fprintf(s.out, "Profile %d: %s\n", p.Index, p.Name)
	fmt.Fprintf(s.out, "  Polling rate: %d Hz   LOD: %s   Angle snapping: %t\n", p.PollingRate, p.LOD, p.AngleSnapping)
	fmt.Fprintln(s.out, "  DPI stages:")
	for i, st := range p.DPIStages {
		marker := " "
		if i == p.DefaultDPIStage {
			marker = "*"
		}
		state := "on"
		if !st.Enabled {
			state = "off"
		}
		fmt.Fprintf(s.out, "   %s %d  %5d x %-5d %s  %s\n", marker, i, st.X, st.Y, st.Color, state)
	}
	fmt.Fprintf(s.out, "  DPI shift: %d\n", p.DPIShift)
	for _, z := range []profile.Zone{profile.ZoneLogo, profile.ZoneDPI} {
		l := p.RGB.Zone(z)
		fmt.Fprintf(s.out, "  Lighting %-4s %s %s brightness %d%% speed %d ms\n", z.String()+":", l.Effect, l.Color, l.Brightness, l.Speed)
	}
	fmt.Fprintln(s.out, "  Buttons:")
	for i, a := range p.Buttons {
		fmt.Fprintf(s.out, "    %-8s %s\n", profile.Button(i).String(), a)
	}
	if len(p.Macros) > 0 {
		fmt.Fprintf(s.out, "  Macros: %d\n", len(p.Macros))
	}
}

func (s *Shell) cmdSelect(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: select <n>")
	}
	i, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid profile index %q", args[0])
	}
	p, err := s.svc.SelectProfile(ctx, i)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Selected profile %d (%s)\n", p.Index, p.Name)
	return nil
}

func (s *Shell) cmdStage(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: stage <n> <dpi> [on|off]")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid stage %q", args[0])
	}
	dpi, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid dpi %q", args[1])
	}
	enabled := true
	if len(args) > 2 {
		switch strings.ToLower(args[2]) {
		case "on":
		case "off":
			enabled = false
		default:
			return fmt.Errorf("invalid stage state %q (on or off)", args[2])
		}
	}

	st, err := s.svc.Manager().UpdateDPIStage(n, func(st *profile.DPIStage) {
		st.X, st.Y = dpi, dpi
		st.Enabled = enabled
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Stage %d: %d DPI, enabled %t\n", n, st.X, st.Enabled)
	return nil
}

func (s *Shell) cmdRGB(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: rgb <zone> <effect> [color] [brightness] [speed]")
	}
	zone, err := profile.ParseZone(strings.ToLower(args[0]))
	if err != nil {
		return err
	}
	effect := profile.Effect(strings.ToLower(args[1]))
	if !effect.Valid() {
		return fmt.Errorf("unknown effect %q (off, static, breathing, cycle)", args[1])
	}

	l := s.svc.Manager().Current().RGB.Zone(zone)
	l.Effect = effect
	if len(args) > 2 {
		c, err := profile.ParseColor(args[2])
		if err != nil {
			return err
		}
		l.Color = c
	}
	if len(args) > 3 {
		if l.Brightness, err = strconv.Atoi(strings.TrimSuffix(args[3], "%")); err != nil {
			return fmt.Errorf("invalid brightness %q", args[3])
		}
	}
	if len(args) > 4 {
		if l.Speed, err = strconv.Atoi(strings.TrimSuffix(args[4], "ms")); err != nil {
			return fmt.Errorf("invalid speed %q", args[4])
		}
	}

	rgb, err := s.svc.Manager().SetLighting(zone, l)
	if err != nil {
		return err
	}
	applied := rgb.Zone(zone)
	fmt.Fprintf(s.out, "Lighting %s: %s %s brightness %d%% speed %d ms\n",
		zone, applied.Effect, applied.Color, applied.Brightness, applied.Speed)
	return nil
}

func (s *Shell) cmdButton(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: button <name> <action>")
	}
	b, err := profile.ParseButton(strings.ToLower(args[0]))
	if err != nil {
		return err
	}
	action, err := ParseAction(args[1:])
	if err != nil {
		return err
	}
	if err := s.svc.Manager().SetButton(b, action); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s -> %s\n", b, action)
	return nil
}

// ParseAction parses a button action: "disabled", "macro <n>",
// "key [mod+...]key" or a function name.
func ParseAction(args []string) (profile.ButtonAction, error) {
	switch strings.ToLower(args[0]) {
	case "disabled", "off":
		return profile.Disabled(), nil
	case "macro":
		if len(args) < 2 {
			return profile.ButtonAction{}, errors.New("usage: macro <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 || n >= profile.MaxMacros {
			return profile.ButtonAction{}, fmt.Errorf("invalid macro slot %q", args[1])
		}
		return profile.MacroButton(n), nil
	case "key":
		if len(args) < 2 {
			return profile.ButtonAction{}, errors.New("usage: key [mod+...]key")
		}
		parts := strings.Split(args[1], "+")
		return profile.KeyAction(parts[len(parts)-1], profile.ParseModifiers(parts[:len(parts)-1])), nil
	default:
		return profile.FunctionAction(strings.ToLower(args[0])), nil
	}
}

func (s *Shell) cmdOnboard(ctx context.Context, args []string) error {
	if len(args) != 1 {
		enabled, err := s.svc.Device().GetOnboardMode(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Onboard mode: %t\n", enabled)
		return nil
	}
	var enabled bool
	switch strings.ToLower(args[0]) {
	case "on":
		enabled = true
	case "off":
	default:
		return errors.New("usage: onboard on|off")
	}
	if err := s.svc.SetOnboardMode(ctx, enabled); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Onboard mode: %t\n", enabled)
	return nil
}

func (s *Shell) cmdPull(ctx context.Context) error {
	n, err := s.svc.PullOnboardProfiles(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Read %d of %d onboard profiles\n", n, s.svc.Manager().Len())
	return nil
}

func (s *Shell) cmdLoad() error {
	loaded, err := s.svc.Load()
	if err != nil {
		return err
	}
	if !loaded {
		fmt.Fprintln(s.out, "Nothing saved yet")
		return nil
	}
	fmt.Fprintf(s.out, "Loaded %d profiles\n", s.svc.Manager().Len())
	return nil
}

func (s *Shell) cmdExport(args []string) error {
	m := s.svc.Manager()
	env := m.ExportCurrent()
	if len(args) > 0 && args[0] == "all" {
		env = m.ExportAll()
		args = args[1:]
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return err
	}
	if len(args) == 0 {
		fmt.Fprintln(s.out, string(data))
		return nil
	}
	if err := os.WriteFile(args[0], append(data, '\n'), 0644); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Exported to %s\n", args[0])
	return nil
}

func (s *Shell) cmdImport(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: import <file> [slot]")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	target := -1
	if len(args) > 1 {
		if target, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("invalid slot %q", args[1])
		}
	}

	imported, err := s.svc.Manager().Import(data, target)
	if err != nil {
		return err
	}
	for _, p := range imported {
		fmt.Fprintf(s.out, "Imported profile %d (%s)\n", p.Index, p.Name)
	}
	return nil
}
