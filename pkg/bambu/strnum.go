package bambu

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// IntString is an integer that travels as a decimal string on the wire.
// The device reports AMS ids, tray ids, temperatures, and progress this way.
type IntString int

// MarshalJSON encodes the value as a decimal string.
func (v IntString) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.Itoa(int(v)))
}

// UnmarshalJSON decodes a decimal string into the value.
func (v *IntString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("numeric string: %w", err)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("numeric string %q: %w", s, err)
	}
	*v = IntString(n)
	return nil
}

// Int returns the value as a plain int.
func (v IntString) Int() int { return int(v) }

// HexUint32 is an unsigned integer that travels as a lowercase hexadecimal
// string without prefix, as used for the AMS unit info word.
type HexUint32 uint32

// MarshalJSON encodes the value as a hex string.
func (v HexUint32) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(v), 16))
}

// UnmarshalJSON decodes a hex string into the value.
func (v *HexUint32) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("hex string: %w", err)
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fmt.Errorf("hex string %q: %w", s, err)
	}
	*v = HexUint32(n)
	return nil
}
