package discovery

// Device is a single printer seen on the network. The fields come straight
// from an SSDP announcement; in particular no access code is ever present,
// so a Device alone is not enough to open a connection.
type Device struct {
	Serial    string `json:"serial"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Model     string `json:"model"`
	ModelCode string `json:"modelCode"`
}

// ModelName maps a vendor model code to a human readable model name.
// Unknown codes map to "Unknown" rather than an error so that new printer
// generations still get discovered.
func ModelName(code string) string {
	switch code {
	case "C11":
		return "P1P"
	case "C12":
		return "P1S"
	case "C13":
		return "X1E"
	case "N1":
		return "A1-Mini"
	case "N2":
		return "A1"
	case "N7":
		return "P2S"
	case "O1D":
		return "H2D"
	case "H2S":
		return "H2S"
	case "H2C":
		return "H2C"
	case "3DPrinter-X1":
		return "X1"
	case "3DPrinter-X1-Carbon", "BL-P001":
		return "X1-Carbon"
	default:
		return "Unknown"
	}
}
