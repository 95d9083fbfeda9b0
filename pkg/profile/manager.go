package profile

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// DefaultProfileCount is the number of slots before a device reports its
// own count.
const DefaultProfileCount = 3

// Manager errors.
var (
	// ErrInvalidIndex indicates a profile slot outside the current set.
	ErrInvalidIndex = errors.New("invalid profile index")

	// ErrInvalidStage indicates a DPI stage outside 0..StageCount-1.
	ErrInvalidStage = errors.New("invalid dpi stage index")
)

// Manager holds the profile set of one device and the selected slot.
// It is safe for concurrent use; accessors return copies.
type Manager struct {
	mu       sync.RWMutex
	profiles []Profile
	current  int
	device   *DeviceRef

	now func() time.Time
}

// NewManager returns a manager with DefaultProfileCount default profiles.
func NewManager() *Manager {
	m := &Manager{now: time.Now}
	m.Init(DefaultProfileCount)
	return m
}

// Init replaces the set with count default profiles and selects the
// first. count below one is treated as one.
func (m *Manager) Init(count int) {
	count = max(count, 1)
	profiles := make([]Profile, count)
	for i := range profiles {
		profiles[i] = Default(i)
	}

	m.mu.Lock()
	m.profiles = profiles
	m.current = 0
	m.mu.Unlock()
}

// Replace installs profiles, reindexing them, and selects the first.
func (m *Manager) Replace(profiles []Profile) error {
	if len(profiles) == 0 {
		return fmt.Errorf("%w: empty profile set", ErrInvalidProfileData)
	}
	set := make([]Profile, len(profiles))
	for i, p := range profiles {
		set[i] = clone(p)
		set[i].Index = i
	}

	m.mu.Lock()
	m.profiles = set
	m.current = 0
	m.mu.Unlock()
	return nil
}

// Len returns the number of slots.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.profiles)
}

// Profiles returns a copy of every profile.
func (m *Manager) Profiles() []Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Profile, len(m.profiles))
	for i, p := range m.profiles {
		out[i] = clone(p)
	}
	return out
}

// Profile returns slot i.
func (m *Manager) Profile(i int) (Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(i); err != nil {
		return Profile{}, err
	}
	return clone(m.profiles[i]), nil
}

// Current returns the selected profile.
func (m *Manager) Current() Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.profiles[m.current])
}

// CurrentIndex returns the selected slot.
func (m *Manager) CurrentIndex() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Select makes slot i current.
func (m *Manager) Select(i int) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(i); err != nil {
		return Profile{}, err
	}
	m.current = i
	return clone(m.profiles[i]), nil
}

// Update applies fn to slot i. The slot index is preserved.
func (m *Manager) Update(i int, fn func(*Profile)) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.update(i, fn)
}

// UpdateCurrent applies fn to the selected profile. The selection is
// resolved under the same lock as the write.
func (m *Manager) UpdateCurrent(fn func(*Profile)) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.update(m.current, fn)
}

// update must be called with mu held.
func (m *Manager) update(i int, fn func(*Profile)) (Profile, error) {
	if err := m.check(i); err != nil {
		return Profile{}, err
	}
	p := clone(m.profiles[i])
	fn(&p)
	p.Index = i
	m.profiles[i] = p
	return clone(p), nil
}

// UpdateDPIStage applies fn to a stage of the selected profile and
// re-clamps its sensitivities.
func (m *Manager) UpdateDPIStage(stage int, fn func(*DPIStage)) (DPIStage, error) {
	if stage < 0 || stage >= StageCount {
		return DPIStage{}, fmt.Errorf("%w: %d", ErrInvalidStage, stage)
	}
	p, err := m.UpdateCurrent(func(p *Profile) {
		s := &p.DPIStages[stage]
		fn(s)
		s.X = ClampDPI(s.X)
		s.Y = ClampDPI(s.Y)
	})
	if err != nil {
		return DPIStage{}, err
	}
	return p.DPIStages[stage], nil
}

// SetButton remaps a button of the selected profile.
func (m *Manager) SetButton(b Button, a ButtonAction) error {
	if b < 0 || int(b) >= ButtonCount {
		return fmt.Errorf("unknown button %d", int(b))
	}
	_, err := m.UpdateCurrent(func(p *Profile) { p.Buttons[b] = a })
	return err
}

// SetLighting writes the lighting of the selected profile. ZoneAll writes
// both zones and marks them synchronized.
func (m *Manager) SetLighting(z Zone, l Lighting) (RGB, error) {
	l.Brightness = clamp(l.Brightness, MinBrightness, MaxBrightness)
	l.Speed = clamp(l.Speed, MinSpeed, MaxSpeed)
	if !l.Effect.Valid() {
		l.Effect = EffectStatic
	}
	p, err := m.UpdateCurrent(func(p *Profile) { p.RGB.Set(z, l) })
	if err != nil {
		return RGB{}, err
	}
	return p.RGB, nil
}

// Reset restores slot i to defaults.
func (m *Manager) Reset(i int) (Profile, error) {
	return m.Update(i, func(p *Profile) { *p = Default(i) })
}

// SetDevice records the device exports are attributed to. nil clears it.
func (m *Manager) SetDevice(ref *DeviceRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ref == nil {
		m.device = nil
		return
	}
	d := *ref
	m.device = &d
}

// Device returns the recorded device, or nil.
func (m *Manager) Device() *DeviceRef {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.device == nil {
		return nil
	}
	d := *m.device
	return &d
}

// Export wraps slot i in a single-profile envelope.
func (m *Manager) Export(i int) (*Envelope, error) {
	p, err := m.Profile(i)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Version:  EnvelopeVersion,
		Exported: m.now().UTC(),
		Device:   m.Device(),
		Profile:  &p,
	}, nil
}

// ExportCurrent wraps the selected profile in a single-profile envelope.
func (m *Manager) ExportCurrent() *Envelope {
	env, _ := m.Export(m.CurrentIndex())
	return env
}

// ExportAll wraps every profile in a multi-profile envelope.
func (m *Manager) ExportAll() *Envelope {
	return &Envelope{
		Version:  EnvelopeVersion,
		Exported: m.now().UTC(),
		Device:   m.Device(),
		Profiles: m.Profiles(),
	}
}

// Import reads an export. A single profile replaces slot target (the
// selected slot when target is negative); a profile list replaces the
// whole set and selects the first. It returns the imported profiles.
func (m *Manager) Import(data []byte, target int) ([]Profile, error) {
	profiles, multi, err := ParseEnvelope(data)
	if err != nil {
		return nil, err
	}

	if multi {
		if err := m.Replace(profiles); err != nil {
			return nil, err
		}
		return m.Profiles(), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if target < 0 {
		target = m.current
	}
	if err := m.check(target); err != nil {
		return nil, err
	}
	p := profiles[0]
	p.Index = target
	m.profiles[target] = p
	return []Profile{clone(p)}, nil
}

func (m *Manager) check(i int) error {
	if i < 0 || i >= len(m.profiles) {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, i)
	}
	return nil
}

func clone(p Profile) Profile {
	p.Macros = slices.Clone(p.Macros)
	for i := range p.Macros {
		p.Macros[i].Actions = slices.Clone(p.Macros[i].Actions)
	}
	if p.Macros == nil {
		p.Macros = []Macro{}
	}
	return p
}
