package bambu

import (
	"encoding/json"
	"testing"
)

func TestIntStringRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 42, 254, 255, -1} {
		v := IntString(n)
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("Marshal(%d) failed: %v", n, err)
		}

		var decoded IntString
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("Unmarshal(%s) failed: %v", data, err)
		}
		if decoded.Int() != n {
			t.Errorf("round trip: got %d, want %d", decoded.Int(), n)
		}
	}
}

func TestIntStringEncodesAsString(t *testing.T) {
	data, err := json.Marshal(IntString(75))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `"75"` {
		t.Errorf("encoding: got %s, want %q", data, `"75"`)
	}
}

func TestIntStringRejectsBareNumber(t *testing.T) {
	var v IntString
	if err := json.Unmarshal([]byte(`75`), &v); err == nil {
		t.Error("expected error for bare number")
	}
}

func TestIntStringRejectsNonNumeric(t *testing.T) {
	var v IntString
	if err := json.Unmarshal([]byte(`"abc"`), &v); err == nil {
		t.Error("expected error for non-numeric string")
	}
}

func TestHexUint32RoundTrip(t *testing.T) {
	for _, n := range []uint32{0, 0x1003, 0xdeadbeef, 0xffffffff} {
		v := HexUint32(n)
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("Marshal(%#x) failed: %v", n, err)
		}

		var decoded HexUint32
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("Unmarshal(%s) failed: %v", data, err)
		}
		if uint32(decoded) != n {
			t.Errorf("round trip: got %#x, want %#x", uint32(decoded), n)
		}
	}
}

func TestHexUint32Encoding(t *testing.T) {
	data, err := json.Marshal(HexUint32(0x1003))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `"1003"` {
		t.Errorf("encoding: got %s, want %q", data, `"1003"`)
	}
}

func TestHexUint32RejectsInvalid(t *testing.T) {
	var v HexUint32
	if err := json.Unmarshal([]byte(`"zz"`), &v); err == nil {
		t.Error("expected error for invalid hex string")
	}
}
