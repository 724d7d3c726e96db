package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spoolbuddy/bamlink-go/pkg/discovery"
	"github.com/spoolbuddy/bamlink-go/pkg/printer"
)

// RegistryVersion is the current version of the registry file format.
const RegistryVersion = 1

// Registry is the on-disk shape of the known-printer registry.
type Registry struct {
	// Version is the registry file format version.
	Version int `json:"version"`

	// SavedAt is when the registry was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Printers lists every printer ever configured or discovered.
	Printers []Printer `json:"printers,omitempty"`
}

// Printer is a single registry entry. AccessCode is empty for printers
// that were only seen via discovery and never configured; such entries
// cannot be connected until a code is supplied.
type Printer struct {
	// Serial is the unique printer serial number.
	Serial string `json:"serial"`

	// Address is the last known IP address.
	Address string `json:"address,omitempty"`

	// AccessCode is the LAN access code, if configured.
	AccessCode string `json:"access_code,omitempty"`

	// Name is a human readable label.
	Name string `json:"name,omitempty"`

	// Model is the printer model name.
	Model string `json:"model,omitempty"`

	// LastSeenAt is when the printer was last configured or announced.
	LastSeenAt time.Time `json:"last_seen_at,omitempty"`
}

// Store manages persistence of the printer registry to a JSON file.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a registry store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the registry from disk.
// Returns nil, nil if the file doesn't exist (empty registry).
func (s *Store) Load() (*Registry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save persists the registry to disk.
func (s *Store) Save(reg *Registry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(reg)
}

// Clear removes the registry file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Upsert inserts or updates the entry for p.Serial and saves the registry.
// Empty fields in p leave the existing value in place, so an upsert from
// discovery never erases a configured access code.
func (s *Store) Upsert(p Printer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := s.load()
	if err != nil {
		return err
	}
	if reg == nil {
		reg = &Registry{}
	}

	p.LastSeenAt = time.Now()
	for i := range reg.Printers {
		if reg.Printers[i].Serial != p.Serial {
			continue
		}
		merge(&reg.Printers[i], p)
		return s.save(reg)
	}
	reg.Printers = append(reg.Printers, p)
	return s.save(reg)
}

// RecordDiscovered stores the identity of an announced printer. Only the
// identity fields are taken from the announcement; credentials are never
// written from discovery data.
func (s *Store) RecordDiscovered(dev discovery.Device) error {
	return s.Upsert(Printer{
		Serial:  dev.Serial,
		Address: dev.Address,
		Name:    dev.Name,
		Model:   dev.Model,
	})
}

// Configs returns connection configs for every registry entry that has an
// access code. Entries without one are skipped.
func (s *Store) Configs() ([]printer.Config, error) {
	reg, err := s.Load()
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, nil
	}

	var configs []printer.Config
	for _, p := range reg.Printers {
		if p.AccessCode == "" {
			continue
		}
		configs = append(configs, printer.Config{
			Serial:     p.Serial,
			Address:    p.Address,
			AccessCode: p.AccessCode,
			Name:       p.Name,
		})
	}
	return configs, nil
}

func (s *Store) load() (*Registry, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	reg := &Registry{}
	if err := json.Unmarshal(data, reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *Store) save(reg *Registry) error {
	// Ensure parent directory exists
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	reg.Version = RegistryVersion
	reg.SavedAt = time.Now()

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0644)
}

func merge(dst *Printer, src Printer) {
	if src.Address != "" {
		dst.Address = src.Address
	}
	if src.AccessCode != "" {
		dst.AccessCode = src.AccessCode
	}
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	dst.LastSeenAt = src.LastSeenAt
}
