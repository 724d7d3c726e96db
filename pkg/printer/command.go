package printer

// CommandType discriminates the Command union.
type CommandType uint8

const (
	// CommandRequestFullState asks the printer to push its complete state.
	CommandRequestFullState CommandType = iota

	// CommandRequestVersion asks for firmware/hardware module versions.
	CommandRequestVersion

	// CommandSetTraySlot assigns filament settings to an AMS tray slot.
	CommandSetTraySlot
)

// String returns the command type name.
func (t CommandType) String() string {
	switch t {
	case CommandRequestFullState:
		return "REQUEST_FULL_STATE"
	case CommandRequestVersion:
		return "REQUEST_VERSION"
	case CommandSetTraySlot:
		return "SET_TRAY_SLOT"
	default:
		return "UNKNOWN"
	}
}

// Command is a request to a printer. A command is constructed by a caller,
// consumed exactly once by a session, and translated into exactly one wire
// request.
type Command struct {
	// Type selects the variant.
	Type CommandType

	// TraySlot holds the parameters for CommandSetTraySlot; nil otherwise.
	TraySlot *TraySlot
}

// TraySlot carries the parameters of a SetTraySlot command.
type TraySlot struct {
	// Unit is the AMS unit id (ExternalUnitID for the external holder).
	Unit int

	// Tray is the tray index within the unit.
	Tray int

	// TargetSlot is the slot the assignment applies to.
	TargetSlot int

	// MaterialKey is the vendor filament catalog key.
	MaterialKey string

	// MaterialType is the material type string (e.g. "PLA").
	MaterialType string

	// Color is the RGBA hex color string.
	Color string

	// NozzleTempMin and NozzleTempMax bound the material's nozzle
	// temperature range in degrees Celsius.
	NozzleTempMin int
	NozzleTempMax int
}

// RequestFullState returns a command asking for a complete state push.
func RequestFullState() Command {
	return Command{Type: CommandRequestFullState}
}

// RequestVersion returns a command asking for module version information.
func RequestVersion() Command {
	return Command{Type: CommandRequestVersion}
}

// SetTraySlot returns a command assigning filament settings to a tray slot.
func SetTraySlot(slot TraySlot) Command {
	return Command{Type: CommandSetTraySlot, TraySlot: &slot}
}
