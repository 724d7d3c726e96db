package bambu

import (
	"encoding/json"
	"fmt"

	"github.com/spoolbuddy/bamlink-go/pkg/printer"
)

// Wire command identifiers.
const (
	CommandPushAll         = "pushall"
	CommandGetVersion      = "get_version"
	CommandFilamentSetting = "ams_filament_setting"
)

// DefaultSequenceID is the sequence token stamped on outgoing requests. The
// device echoes it back in responses; uniqueness per command is not required
// by the protocol.
const DefaultSequenceID = "1"

// PushAllRequest asks the printer to push its complete state.
type PushAllRequest struct {
	Pushing PushAll `json:"pushing"`
}

// PushAll is the body of a pushall request.
type PushAll struct {
	Command    string `json:"command"`
	SequenceID string `json:"sequence_id,omitempty"`
}

// NewPushAllRequest builds a pushall request.
func NewPushAllRequest() PushAllRequest {
	return PushAllRequest{Pushing: PushAll{
		Command:    CommandPushAll,
		SequenceID: DefaultSequenceID,
	}}
}

// GetVersionRequest asks the printer for module version information.
type GetVersionRequest struct {
	Info GetVersion `json:"info"`
}

// GetVersion is the body of a get_version request.
type GetVersion struct {
	Command    string `json:"command"`
	SequenceID string `json:"sequence_id,omitempty"`
}

// NewGetVersionRequest builds a get_version request.
func NewGetVersionRequest() GetVersionRequest {
	return GetVersionRequest{Info: GetVersion{
		Command:    CommandGetVersion,
		SequenceID: DefaultSequenceID,
	}}
}

// FilamentSettingRequest assigns filament settings to an AMS tray slot.
type FilamentSettingRequest struct {
	Print FilamentSetting `json:"print"`
}

// FilamentSetting is the body of an ams_filament_setting request.
// Temperatures are plain numbers here, unlike the string encoding used in
// tray reports.
type FilamentSetting struct {
	Command       string `json:"command"`
	AmsID         int    `json:"ams_id"`
	TrayID        int    `json:"tray_id"`
	SlotID        int    `json:"slot_id"`
	TrayInfoIdx   string `json:"tray_info_idx"`
	SettingID     string `json:"setting_id,omitempty"`
	TrayColor     string `json:"tray_color"`
	NozzleTempMin int    `json:"nozzle_temp_min"`
	NozzleTempMax int    `json:"nozzle_temp_max"`
	TrayType      string `json:"tray_type"`
	SequenceID    string `json:"sequence_id"`
}

// NewFilamentSettingRequest builds an ams_filament_setting request from
// tray slot parameters.
func NewFilamentSettingRequest(slot printer.TraySlot) FilamentSettingRequest {
	return FilamentSettingRequest{Print: FilamentSetting{
		Command:       CommandFilamentSetting,
		AmsID:         slot.Unit,
		TrayID:        slot.Tray,
		SlotID:        slot.TargetSlot,
		TrayInfoIdx:   slot.MaterialKey,
		TrayColor:     slot.Color,
		NozzleTempMin: slot.NozzleTempMin,
		NozzleTempMax: slot.NozzleTempMax,
		TrayType:      slot.MaterialType,
		SequenceID:    DefaultSequenceID,
	}}
}

// EncodeCommand translates a command into its wire request payload.
// Every command variant maps to exactly one request.
func EncodeCommand(cmd printer.Command) ([]byte, error) {
	switch cmd.Type {
	case printer.CommandRequestFullState:
		return json.Marshal(NewPushAllRequest())
	case printer.CommandRequestVersion:
		return json.Marshal(NewGetVersionRequest())
	case printer.CommandSetTraySlot:
		if cmd.TraySlot == nil {
			return nil, fmt.Errorf("set tray slot command without parameters")
		}
		return json.Marshal(NewFilamentSettingRequest(*cmd.TraySlot))
	default:
		return nil, fmt.Errorf("unknown command type %d", cmd.Type)
	}
}

// DecodeCommand is the inverse of EncodeCommand: it recognizes a wire request
// payload and reconstructs the command it was built from. Used by tests and
// log tooling; the device itself never sends these shapes on the report
// channel.
func DecodeCommand(payload []byte) (printer.Command, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(payload, &probe); err != nil {
		return printer.Command{}, fmt.Errorf("command payload: %w", err)
	}

	if raw, ok := probe["pushing"]; ok {
		var body PushAll
		if err := json.Unmarshal(raw, &body); err != nil {
			return printer.Command{}, fmt.Errorf("pushall request: %w", err)
		}
		if body.Command != CommandPushAll {
			return printer.Command{}, fmt.Errorf("unexpected pushing command %q", body.Command)
		}
		return printer.RequestFullState(), nil
	}

	if raw, ok := probe["info"]; ok {
		var body GetVersion
		if err := json.Unmarshal(raw, &body); err != nil {
			return printer.Command{}, fmt.Errorf("get_version request: %w", err)
		}
		if body.Command != CommandGetVersion {
			return printer.Command{}, fmt.Errorf("unexpected info command %q", body.Command)
		}
		return printer.RequestVersion(), nil
	}

	if raw, ok := probe["print"]; ok {
		var body FilamentSetting
		if err := json.Unmarshal(raw, &body); err != nil {
			return printer.Command{}, fmt.Errorf("ams_filament_setting request: %w", err)
		}
		if body.Command != CommandFilamentSetting {
			return printer.Command{}, fmt.Errorf("unexpected print command %q", body.Command)
		}
		return printer.SetTraySlot(printer.TraySlot{
			Unit:          body.AmsID,
			Tray:          body.TrayID,
			TargetSlot:    body.SlotID,
			MaterialKey:   body.TrayInfoIdx,
			MaterialType:  body.TrayType,
			Color:         body.TrayColor,
			NozzleTempMin: body.NozzleTempMin,
			NozzleTempMax: body.NozzleTempMax,
		}), nil
	}

	return printer.Command{}, fmt.Errorf("unrecognized command payload")
}
