package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/omm-project/omm-go/pkg/profile"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// ErrUnsupportedVersion indicates a state file written by a newer format.
var ErrUnsupportedVersion = errors.New("unsupported state file version")

// ProfileState is the persisted profile set of one device.
type ProfileState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Current is the selected profile slot.
	Current int `json:"current"`

	// Export is the multi-profile export of the set.
	Export *profile.Envelope `json:"export"`
}

// Profiles returns the normalized profiles of the export.
func (s *ProfileState) Profiles() ([]profile.Profile, error) {
	if s.Export == nil {
		return nil, fmt.Errorf("%w: no export", profile.ErrInvalidProfileData)
	}
	data, err := json.Marshal(s.Export)
	if err != nil {
		return nil, err
	}
	profiles, _, err := profile.ParseEnvelope(data)
	return profiles, err
}

// ProfileStore manages one state file.
type ProfileStore struct {
	mu   sync.Mutex
	path string
}

// NewProfileStore creates a store backed by path.
func NewProfileStore(path string) *ProfileStore {
	return &ProfileStore{path: path}
}

// StatePath returns the state file of product pid inside dir.
func StatePath(dir string, pid uint16) string {
	return filepath.Join(dir, fmt.Sprintf("profiles-%04x.json", pid))
}

// Path returns the state file location.
func (s *ProfileStore) Path() string {
	return s.path
}

// Save persists state to disk.
func (s *ProfileStore) Save(state *ProfileState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Ensure parent directory exists
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	state.Version = StateVersion
	if state.SavedAt.IsZero() {
		state.SavedAt = time.Now()
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	// Write to a temp file and rename so a crash never leaves half a file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// SaveManager snapshots m.
func (s *ProfileStore) SaveManager(m *profile.Manager) error {
	return s.Save(&ProfileState{
		Current: m.CurrentIndex(),
		Export:  m.ExportAll(),
	})
}

// Load reads the state from disk.
// Returns nil, nil if the file doesn't exist (empty state).
func (s *ProfileStore) Load() (*ProfileState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &ProfileState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("%w: %v", profile.ErrInvalidProfileData, err)
	}
	if state.Version > StateVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, state.Version)
	}

	return state, nil
}

// LoadInto restores the saved set into m. It reports false when nothing
// was saved.
func (s *ProfileStore) LoadInto(m *profile.Manager) (bool, error) {
	state, err := s.Load()
	if err != nil || state == nil {
		return false, err
	}

	profiles, err := state.Profiles()
	if err != nil {
		return false, err
	}
	if err := m.Replace(profiles); err != nil {
		return false, err
	}
	if state.Current > 0 && state.Current < len(profiles) {
		if _, err := m.Select(state.Current); err != nil {
			return false, err
		}
	}
	if state.Export.Device != nil {
		m.SetDevice(state.Export.Device)
	}
	return true, nil
}

// Clear removes the state file.
func (s *ProfileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
