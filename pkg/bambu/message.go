package bambu

// Wire values of the gcode_state field.
const (
	GcodeStateIdle    = "IDLE"
	GcodeStateSlicing = "SLICING"
	GcodeStatePrepare = "PREPARE"
	GcodeStateRunning = "RUNNING"
	GcodeStateFinish  = "FINISH"
	GcodeStateFailed  = "FAILED"
	GcodeStatePause   = "PAUSE"
)

// Report is a decoded report payload. Exactly one of Print or Info is set.
type Report struct {
	Print *PrintData
	Info  *InfoData
}

// PrintData is the body of a print report. The device sends far more fields
// than listed here; unknown fields are ignored on decode. Optional fields are
// pointers so that absence is distinguishable from zero.
type PrintData struct {
	GcodeState     string     `json:"gcode_state,omitempty"`
	PreparePercent *IntString `json:"gcode_file_prepare_percent,omitempty"`
	ProjectID      *string    `json:"project_id,omitempty"`
	SubtaskName    *string    `json:"subtask_name,omitempty"`
	LayerNum       *int       `json:"layer_num,omitempty"`
	TotalLayerNum  *int       `json:"total_layer_num,omitempty"`

	Ams          *Ams   `json:"ams,omitempty"`
	ExternalTray *Tray  `json:"vt_tray,omitempty"`
	VirtualSlots []Tray `json:"vir_slot,omitempty"`

	// Command acknowledgement fields, echoed on responses to requests.
	Command    string  `json:"command,omitempty"`
	SequenceID string  `json:"sequence_id,omitempty"`
	Result     *string `json:"result,omitempty"`
	Reason     *string `json:"reason,omitempty"`
}

// Ams is the AMS section of a print report.
type Ams struct {
	Units []AmsUnit `json:"ams,omitempty"`

	AmsExistBits  *string `json:"ams_exist_bits,omitempty"`
	TrayExistBits *string `json:"tray_exist_bits,omitempty"`

	// Active/target tray selection, decimal-string encoded.
	TrayTarget   *IntString `json:"tray_tar,omitempty"`
	TrayNow      *IntString `json:"tray_now,omitempty"`
	TrayPrevious *IntString `json:"tray_pre,omitempty"`
}

// AmsUnit is one AMS unit with its tray table.
type AmsUnit struct {
	// ID is the unit index, decimal-string encoded on the wire.
	ID IntString `json:"id"`

	Humidity string `json:"humidity,omitempty"`

	// Info is a status word, hex-string encoded on the wire.
	Info *HexUint32 `json:"info,omitempty"`

	Trays []Tray `json:"tray"`
}

// Tray is one filament slot. An empty slot is reported with its optional
// fields absent; in particular ID is nil for slots that are not present.
type Tray struct {
	ID *IntString `json:"id,omitempty"`

	// K is the pressure-advance coefficient. Reported only, never sent.
	K *float64 `json:"k,omitempty"`

	CaliIdx       *int       `json:"cali_idx,omitempty"`
	TrayInfoIdx   *string    `json:"tray_info_idx,omitempty"`
	TrayType      *string    `json:"tray_type,omitempty"`
	TrayColor     *string    `json:"tray_color,omitempty"`
	NozzleTempMin *IntString `json:"nozzle_temp_min,omitempty"`
	NozzleTempMax *IntString `json:"nozzle_temp_max,omitempty"`
}

// InfoData is the body of an info report, the response to a get_version
// request.
type InfoData struct {
	Command    string       `json:"command"`
	SequenceID string       `json:"sequence_id"`
	Modules    []InfoModule `json:"module"`
	Result     *string      `json:"result,omitempty"`
	Reason     *string      `json:"reason,omitempty"`
}

// InfoModule describes one firmware/hardware module of the printer.
type InfoModule struct {
	Name        string  `json:"name"`
	ProjectName *string `json:"project_name,omitempty"`
	ProductName *string `json:"product_name,omitempty"`
	SWVersion   string  `json:"sw_ver"`
	HWVersion   string  `json:"hw_ver"`
	Serial      string  `json:"sn"`
}
