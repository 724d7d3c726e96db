package printer

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{
		Serial:     "01S00C123400001",
		Address:    "192.168.1.50",
		AccessCode: "12345678",
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid config: got error %v", err)
	}

	noAddr := valid
	noAddr.Address = ""
	if err := noAddr.Validate(); !errors.Is(err, ErrMissingAddress) {
		t.Errorf("missing address: got %v, want ErrMissingAddress", err)
	}

	noCode := valid
	noCode.AccessCode = ""
	if err := noCode.Validate(); !errors.Is(err, ErrMissingAccessCode) {
		t.Errorf("missing access code: got %v, want ErrMissingAccessCode", err)
	}
}

func TestStateCloneIsDeep(t *testing.T) {
	progress := 50
	layer := 10
	total := 120
	job := "benchy"
	material := "PLA"
	k := 0.02

	original := &State{
		Phase:         PhaseRunning,
		Progress:      &progress,
		LayerNum:      &layer,
		TotalLayerNum: &total,
		JobName:       &job,
		AmsTrays: []AmsTray{
			{UnitID: 0, TrayID: 1, Material: &material, KCoefficient: &k},
		},
		ExternalTray: &AmsTray{UnitID: ExternalUnitID, TrayID: ExternalTrayID},
	}

	clone := original.Clone()

	// Mutating the clone must not affect the original.
	*clone.Progress = 99
	*clone.AmsTrays[0].Material = "PETG"
	clone.ExternalTray.TrayID = 0

	if *original.Progress != 50 {
		t.Errorf("original progress mutated: got %d", *original.Progress)
	}
	if *original.AmsTrays[0].Material != "PLA" {
		t.Errorf("original tray material mutated: got %s", *original.AmsTrays[0].Material)
	}
	if original.ExternalTray.TrayID != ExternalTrayID {
		t.Errorf("original external tray mutated: got %d", original.ExternalTray.TrayID)
	}
}

func TestStateCloneNil(t *testing.T) {
	var s *State
	if s.Clone() != nil {
		t.Error("nil state clone should be nil")
	}
}

func TestPhaseString(t *testing.T) {
	cases := map[Phase]string{
		PhaseUnknown:     "UNKNOWN",
		PhaseIdle:        "IDLE",
		PhaseRunning:     "RUNNING",
		PhasePaused:      "PAUSED",
		PhaseUnsupported: "UNSUPPORTED",
	}
	for phase, want := range cases {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String(): got %q, want %q", phase, got, want)
		}
	}
}
