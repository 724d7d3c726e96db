package printer

import "errors"

// Configuration and command delivery errors surfaced synchronously to callers.
var (
	ErrAlreadyConnected  = errors.New("printer already connected")
	ErrNotConnected      = errors.New("printer not connected")
	ErrMissingAddress    = errors.New("printer address is required")
	ErrMissingAccessCode = errors.New("printer access code is required")
)

// Config identifies a printer and how to reach it.
// A Config is immutable for the lifetime of a session.
type Config struct {
	// Serial is the unique device identifier (also keys the MQTT topics).
	Serial string

	// Address is the printer's IP address or host name on the LAN.
	Address string

	// AccessCode is the per-device shared secret shown on the printer's
	// display. It is the MQTT password; the username is fixed.
	AccessCode string

	// Name is an optional human-readable display name.
	Name string
}

// Validate checks that the config is sufficient to open a session.
func (c *Config) Validate() error {
	if c.Address == "" {
		return ErrMissingAddress
	}
	if c.AccessCode == "" {
		return ErrMissingAccessCode
	}
	return nil
}

// Phase is the enumerated print-job phase reported by the device.
type Phase uint8

const (
	PhaseUnknown Phase = iota
	PhaseIdle
	PhaseSlicing
	PhasePreparing
	PhaseRunning
	PhaseFinished
	PhaseFailed
	PhasePaused

	// PhaseUnsupported is reported for wire values this library does not
	// recognize. New firmware occasionally introduces phases.
	PhaseUnsupported
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseUnknown:
		return "UNKNOWN"
	case PhaseIdle:
		return "IDLE"
	case PhaseSlicing:
		return "SLICING"
	case PhasePreparing:
		return "PREPARING"
	case PhaseRunning:
		return "RUNNING"
	case PhaseFinished:
		return "FINISHED"
	case PhaseFailed:
		return "FAILED"
	case PhasePaused:
		return "PAUSED"
	case PhaseUnsupported:
		return "UNSUPPORTED"
	default:
		return "UNKNOWN"
	}
}

// State is the normalized snapshot of a printer derived from its most recent
// report. A report always carries the full tray table, so the snapshot is
// replaced wholesale on every StateUpdated event, never patched field by field.
type State struct {
	// Phase is the current print-job phase.
	Phase Phase

	// Progress is the job preparation/print progress in percent, if reported.
	Progress *int

	// LayerNum is the current layer number, if reported.
	LayerNum *int

	// TotalLayerNum is the total layer count of the job, if reported.
	TotalLayerNum *int

	// JobName is the name of the running job, if reported.
	JobName *string

	// AmsTrays lists every physically present AMS tray, in report order.
	AmsTrays []AmsTray

	// ExternalTray is the external spool holder, if reported.
	ExternalTray *AmsTray
}

// Clone returns a deep copy of the snapshot. The manager hands out clones so
// cached snapshots are never shared with callers.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.Progress = clonePtr(s.Progress)
	out.LayerNum = clonePtr(s.LayerNum)
	out.TotalLayerNum = clonePtr(s.TotalLayerNum)
	out.JobName = clonePtr(s.JobName)
	if s.AmsTrays != nil {
		out.AmsTrays = make([]AmsTray, len(s.AmsTrays))
		for i, tray := range s.AmsTrays {
			out.AmsTrays[i] = tray.clone()
		}
	}
	if s.ExternalTray != nil {
		external := s.ExternalTray.clone()
		out.ExternalTray = &external
	}
	return &out
}

func (t AmsTray) clone() AmsTray {
	out := t
	out.Material = clonePtr(t.Material)
	out.Color = clonePtr(t.Color)
	out.MaterialKey = clonePtr(t.MaterialKey)
	out.KCoefficient = clonePtr(t.KCoefficient)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// AmsTray describes one filament slot of an AMS unit.
// Optional fields are nil when the slot is empty or the device did not
// report them; nil is distinct from a zero value.
type AmsTray struct {
	// UnitID identifies the AMS unit. The external spool holder uses
	// ExternalUnitID.
	UnitID int

	// TrayID is the slot index within the unit.
	TrayID int

	// Material is the material type (e.g. "PLA"), if known.
	Material *string

	// Color is the material color as an RGBA hex string, if known.
	Color *string

	// MaterialKey is the vendor filament catalog key (e.g. "GFL99"), if known.
	MaterialKey *string

	// KCoefficient is the pressure-advance calibration coefficient, if known.
	KCoefficient *float64
}

// Identifiers the device uses for the external spool holder.
const (
	// ExternalUnitID is the pseudo AMS unit id of the external spool holder.
	ExternalUnitID = 255

	// ExternalTrayID is the default tray id of the external spool holder
	// when the device omits one.
	ExternalTrayID = 254
)

// ConnectionRecord is the manager's view of one printer: whether its session
// is currently connected and the last known state, if any.
type ConnectionRecord struct {
	Serial    string
	Connected bool
	State     *State
}
