package bambu

import (
	"encoding/json"
	"fmt"

	"github.com/spoolbuddy/bamlink-go/pkg/printer"
)

// DecodeReport decodes a report payload by attempting the known message
// shapes in order: print first, then info.
//
// A payload that matches neither shape is not an error; the report channel
// carries many message families and only recognized ones are acted on. In
// that case both return values are nil. An error is returned only when a
// payload is recognized as one of the known shapes but a field inside it
// fails to parse; callers log and discard such payloads.
func DecodeReport(payload []byte) (*Report, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil, nil
	}

	if raw, ok := probe["print"]; ok && !isNull(raw) {
		var data PrintData
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("print report: %w", err)
		}
		return &Report{Print: &data}, nil
	}

	if raw, ok := probe["info"]; ok && !isNull(raw) {
		var data InfoData
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("info report: %w", err)
		}
		return &Report{Info: &data}, nil
	}

	return nil, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// PhaseFromGcodeState maps a wire gcode_state value to the normalized phase.
// An empty string means the report carried no phase; values introduced by
// newer firmware map to PhaseUnsupported.
func PhaseFromGcodeState(s string) printer.Phase {
	switch s {
	case "":
		return printer.PhaseUnknown
	case GcodeStateIdle:
		return printer.PhaseIdle
	case GcodeStateSlicing:
		return printer.PhaseSlicing
	case GcodeStatePrepare:
		return printer.PhasePreparing
	case GcodeStateRunning:
		return printer.PhaseRunning
	case GcodeStateFinish:
		return printer.PhaseFinished
	case GcodeStateFailed:
		return printer.PhaseFailed
	case GcodeStatePause:
		return printer.PhasePaused
	default:
		return printer.PhaseUnsupported
	}
}

// State converts a print report into the normalized snapshot consumed by the
// connection manager. Only trays with an id are physically present; empty
// slots are skipped.
func (d *PrintData) State() *printer.State {
	state := &printer.State{
		Phase:         PhaseFromGcodeState(d.GcodeState),
		LayerNum:      d.LayerNum,
		TotalLayerNum: d.TotalLayerNum,
		JobName:       d.SubtaskName,
	}

	if d.PreparePercent != nil {
		progress := d.PreparePercent.Int()
		state.Progress = &progress
	}

	if d.Ams != nil {
		for _, unit := range d.Ams.Units {
			for _, tray := range unit.Trays {
				if tray.ID == nil {
					continue
				}
				state.AmsTrays = append(state.AmsTrays, trayState(unit.ID.Int(), tray.ID.Int(), tray))
			}
		}
	}

	if d.ExternalTray != nil {
		trayID := printer.ExternalTrayID
		if d.ExternalTray.ID != nil {
			trayID = d.ExternalTray.ID.Int()
		}
		external := trayState(printer.ExternalUnitID, trayID, *d.ExternalTray)
		state.ExternalTray = &external
	}

	return state
}

func trayState(unitID, trayID int, tray Tray) printer.AmsTray {
	return printer.AmsTray{
		UnitID:       unitID,
		TrayID:       trayID,
		Material:     tray.TrayType,
		Color:        tray.TrayColor,
		MaterialKey:  tray.TrayInfoIdx,
		KCoefficient: tray.K,
	}
}
