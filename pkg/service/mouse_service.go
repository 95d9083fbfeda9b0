package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/omm-project/omm-go/pkg/connection"
	"github.com/omm-project/omm-go/pkg/hidpp"
	"github.com/omm-project/omm-go/pkg/persistence"
	"github.com/omm-project/omm-go/pkg/profile"
	"github.com/omm-project/omm-go/pkg/transport"
	"github.com/omm-project/omm-go/pkg/wire"
)

// MouseService runs the configuration flows for one mouse.
type MouseService struct {
	mu sync.RWMutex

	config     Config
	logger     *slog.Logger
	device     *hidpp.Device
	manager    *profile.Manager
	supervisor *connection.Supervisor

	store    *persistence.ProfileStore
	storePID uint16
	info     *hidpp.DeviceInfo

	eventHandlers []EventHandler
}

// New creates a service over t. The transport is opened on Connect.
func New(t transport.Transport, config Config) *MouseService {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if config.Device.Logger == nil {
		config.Device.Logger = logger
	}
	if config.Reconnect.Logger == nil {
		config.Reconnect.Logger = logger
	}

	s := &MouseService{
		config:  config,
		logger:  logger,
		device:  hidpp.New(t, config.Device),
		manager: profile.NewManager(),
	}
	if config.StatePath != "" {
		s.store = persistence.NewProfileStore(config.StatePath)
	}

	s.supervisor = connection.NewSupervisor(s.establish, config.Reconnect)
	s.supervisor.SetAutoReconnect(config.AutoReconnect)
	s.supervisor.SetCheck(func(ctx context.Context) error {
		_, err := s.device.Ping(ctx)
		return err
	})
	s.supervisor.OnLost(s.handleLost)
	s.supervisor.OnReconnecting(func(attempt int, delay time.Duration) {
		s.logger.Info("reconnecting", "attempt", attempt, "delay", delay)
		s.emitEvent(Event{Type: EventReconnecting, Attempt: attempt, Profile: s.manager.CurrentIndex()})
	})
	return s
}

// Device returns the protocol engine.
func (s *MouseService) Device() *hidpp.Device {
	return s.device
}

// Manager returns the profile set.
func (s *MouseService) Manager() *profile.Manager {
	return s.manager
}

// Store returns the profile store, or nil when persistence is disabled or
// the product is not known yet.
func (s *MouseService) Store() *persistence.ProfileStore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// Info returns the connected device description, or nil.
func (s *MouseService) Info() *hidpp.DeviceInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// IsConnected reports whether the mouse session is up.
func (s *MouseService) IsConnected() bool {
	return s.device.IsConnected()
}

// SupervisorState returns the session supervisor state.
func (s *MouseService) SupervisorState() connection.State {
	return s.supervisor.State()
}

// OnEvent registers an event handler. Handlers run on their own
// goroutine.
func (s *MouseService) OnEvent(handler EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventHandlers = append(s.eventHandlers, handler)
}

// Connect opens the mouse, restores the saved profile set for its product
// and reads the live settings into the selected profile. Read failures
// are reported through EventSyncFailed and do not fail the connect.
func (s *MouseService) Connect(ctx context.Context) (*hidpp.DeviceInfo, error) {
	if s.config.AutoReconnect {
		s.supervisor.Start()
	}
	if err := s.supervisor.Connect(ctx); err != nil {
		if errors.Is(err, connection.ErrAlreadyConnected) {
			return nil, hidpp.ErrAlreadyConnected
		}
		return nil, err
	}
	return s.Info(), nil
}

// Disconnect ends the session. No reconnect follows.
func (s *MouseService) Disconnect() error {
	s.supervisor.Disconnect()
	wasConnected := s.device.State() != hidpp.StateDisconnected
	err := s.device.Disconnect()

	s.mu.Lock()
	s.info = nil
	s.mu.Unlock()

	if wasConnected {
		s.emitEvent(Event{Type: EventDisconnected, Profile: s.manager.CurrentIndex()})
	}
	return err
}

// Close disconnects and stops the reconnect loop.
func (s *MouseService) Close() error {
	err := s.Disconnect()
	s.supervisor.Close()
	return err
}

// establish is the supervised connect: engine connect, store, sync.
func (s *MouseService) establish(ctx context.Context) error {
	if s.device.State() != hidpp.StateDisconnected {
		_ = s.device.Disconnect()
	}

	info, err := s.device.Connect(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.info = info
	s.mu.Unlock()

	s.manager.SetDevice(&profile.DeviceRef{Name: info.DisplayName(), PID: info.ProductID})
	s.openStore(info.ProductID)

	if err := s.SyncFromDevice(ctx); err != nil {
		s.logger.Warn("reading device state failed", "error", err)
		s.emitEvent(Event{Type: EventSyncFailed, Error: err, Profile: s.manager.CurrentIndex()})
	}

	s.logger.Info("mouse connected",
		"name", info.DisplayName(),
		"pid", fmt.Sprintf("%04x", info.ProductID),
		"protocol", info.Protocol,
		"profile", s.manager.CurrentIndex())
	s.emitEvent(Event{Type: EventConnected, Info: info, Profile: s.manager.CurrentIndex()})
	return nil
}

func (s *MouseService) handleLost(reason error) {
	_ = s.device.Disconnect()
	s.mu.Lock()
	s.info = nil
	s.mu.Unlock()
	s.emitEvent(Event{Type: EventDisconnected, Error: reason, Profile: s.manager.CurrentIndex()})
}

// openStore binds the per-product store and loads it once per product.
func (s *MouseService) openStore(pid uint16) {
	s.mu.Lock()
	if s.config.StatePath != "" || s.config.StateDir == "" || (s.store != nil && s.storePID == pid) {
		s.mu.Unlock()
		return
	}
	store := persistence.NewProfileStore(persistence.StatePath(s.config.StateDir, pid))
	s.store = store
	s.storePID = pid
	s.mu.Unlock()

	loaded, err := store.LoadInto(s.manager)
	switch {
	case err != nil:
		s.logger.Warn("saved profiles unreadable", "path", store.Path(), "error", err)
	case loaded:
		s.logger.Info("saved profiles restored", "path", store.Path(), "count", s.manager.Len())
	}
}

// SyncFromDevice reads onboard profile info, the current DPI and the
// report rate into the profile set. Every supported read is attempted;
// the failures are joined.
func (s *MouseService) SyncFromDevice(ctx context.Context) error {
	if !s.device.IsConnected() {
		return ErrNotConnected
	}
	var errs []error

	if s.device.HasFeature(ctx, wire.FeatureOnboardProfile) {
		if err := s.syncOnboard(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if s.device.HasFeature(ctx, wire.FeatureAdjustableDPI) {
		if err := s.syncDPI(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if s.device.HasFeature(ctx, wire.FeatureReportRate) {
		rate, err := s.device.GetReportRate(ctx)
		switch {
		case err != nil:
			errs = append(errs, err)
		case rate != 0:
			if _, err := s.manager.UpdateCurrent(func(p *profile.Profile) { p.PollingRate = rate }); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}

func (s *MouseService) syncOnboard(ctx context.Context) error {
	info, err := s.device.GetOnboardProfileInfo(ctx)
	if err != nil {
		return err
	}
	if info.ProfileCount > 0 && info.ProfileCount != s.manager.Len() {
		s.manager.Init(info.ProfileCount)
	}

	current, err := s.device.GetCurrentProfile(ctx)
	if err != nil {
		return err
	}
	if _, err := s.manager.Select(current); err != nil {
		return fmt.Errorf("device reports profile %d: %w", current, err)
	}
	return nil
}

func (s *MouseService) syncDPI(ctx context.Context) error {
	dpi, err := s.device.GetDPI(ctx, 0)
	if err != nil {
		return err
	}
	if dpi.Current == 0 {
		return nil
	}
	p := s.manager.Current()
	for i, stage := range p.DPIStages {
		if !stage.Enabled {
			continue
		}
		_, err := s.manager.UpdateDPIStage(i, func(st *profile.DPIStage) {
			st.X = dpi.Current
			st.Y = dpi.Current
		})
		return err
	}
	return nil
}

// PullOnboardProfiles reads every onboard profile block and merges the
// device-stored fields into the matching slot. Fields the block does not
// carry keep their host values, and blocks failing the checksum leave the
// slot untouched. It returns the number of blocks decoded.
func (s *MouseService) PullOnboardProfiles(ctx context.Context) (int, error) {
	if !s.device.IsConnected() {
		return 0, ErrNotConnected
	}
	info, err := s.device.GetOnboardProfileInfo(ctx)
	if err != nil {
		return 0, err
	}

	current := s.manager.CurrentIndex()
	existing := s.manager.Profiles()
	profiles := make([]profile.Profile, info.ProfileCount)
	decoded := 0
	for i := range profiles {
		base := profile.Default(i)
		if i < len(existing) {
			base = existing[i]
		}
		p, valid, err := s.device.ReadProfile(ctx, uint16(i+1), i)
		if err != nil {
			return decoded, err
		}
		if valid {
			base = profile.MergeOnboard(base, p)
			decoded++
		}
		profiles[i] = base
	}
	if len(profiles) == 0 {
		return 0, nil
	}
	if err := s.manager.Replace(profiles); err != nil {
		return decoded, err
	}
	if current < len(profiles) {
		_, _ = s.manager.Select(current)
	}
	return decoded, nil
}

// SelectProfile selects slot i and, when connected, switches the
// device's onboard profile to it.
func (s *MouseService) SelectProfile(ctx context.Context, i int) (profile.Profile, error) {
	p, err := s.manager.Select(i)
	if err != nil {
		return profile.Profile{}, err
	}
	if s.device.IsConnected() && s.device.HasFeature(ctx, wire.FeatureOnboardProfile) {
		if err := s.device.SwitchProfile(ctx, i); err != nil {
			return p, err
		}
	}
	s.emitEvent(Event{Type: EventProfileSelected, Profile: i})
	return p, nil
}

// SetOnboardMode switches the device between onboard and host mode.
func (s *MouseService) SetOnboardMode(ctx context.Context, enabled bool) error {
	if !s.device.IsConnected() {
		return ErrNotConnected
	}
	return s.device.SetOnboardMode(ctx, enabled)
}

// ResetCurrent restores the selected slot to defaults.
func (s *MouseService) ResetCurrent() (profile.Profile, error) {
	return s.manager.Reset(s.manager.CurrentIndex())
}

// ApplyCurrent writes the selected profile to the device: the default DPI
// stage when enabled, the report rate, and both lighting zones. DPI and
// rate failures abort; lighting failures are logged. The set is saved
// afterwards when a store is configured.
func (s *MouseService) ApplyCurrent(ctx context.Context) error {
	if !s.device.IsConnected() {
		return ErrNotConnected
	}
	p := s.manager.Current()

	if s.device.HasFeature(ctx, wire.FeatureAdjustableDPI) {
		if stage := p.ActiveStage(); stage.Enabled {
			if err := s.device.SetDPI(ctx, stage.X, 0); err != nil {
				return err
			}
		}
	}

	if s.device.HasFeature(ctx, wire.FeatureReportRate) {
		if err := s.device.SetReportRate(ctx, p.PollingRate); err != nil {
			return err
		}
	}

	for _, z := range []profile.Zone{profile.ZoneLogo, profile.ZoneDPI} {
		if err := s.device.SetRGBEffect(ctx, z, p.RGB.Zone(z)); err != nil {
			s.logger.Warn("lighting not applied", "zone", z.String(), "error", err)
		}
	}

	if err := s.Save(); err != nil && !errors.Is(err, ErrNoStore) {
		s.logger.Warn("saving profiles failed", "error", err)
	}

	s.logger.Info("profile applied", "profile", p.Index, "dpi", p.ActiveStage().X, "rate", p.PollingRate)
	s.emitEvent(Event{Type: EventApplied, Profile: p.Index})
	return nil
}

// Save persists the profile set.
func (s *MouseService) Save() error {
	store := s.Store()
	if store == nil {
		return ErrNoStore
	}
	return store.SaveManager(s.manager)
}

// Load restores the saved profile set. It reports false when nothing was
// saved.
func (s *MouseService) Load() (bool, error) {
	store := s.Store()
	if store == nil {
		return false, ErrNoStore
	}
	return store.LoadInto(s.manager)
}

// emitEvent sends an event to all registered handlers.
func (s *MouseService) emitEvent(event Event) {
	s.mu.RLock()
	handlers := s.eventHandlers
	s.mu.RUnlock()
	for _, handler := range handlers {
		go handler(event)
	}
}
