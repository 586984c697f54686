package amf0

import (
	"bytes"
	"testing"
)

// TestEncodeAll_NoStrictArray verifies that EncodeAll writes values
// sequentially without wrapping them in a StrictArray (0x0A). RTMP command
// bodies must start with the first value's type marker (0x02 for "_result").
func TestEncodeAll_NoStrictArray(t *testing.T) {
	var buf bytes.Buffer
	err := EncodeAll(&buf,
		"_result",
		float64(1),
		Object{
			"fmsVer":       "FMS/3,0,1,123",
			"capabilities": float64(31),
		},
		Object{
			"level":       "status",
			"code":        "NetConnection.Connect.Success",
			"description": "Connection succeeded.",
		},
	)
	if err != nil {
		t.Fatalf("EncodeAll failed: %v", err)
	}

	body := buf.Bytes()
	if len(body) == 0 {
		t.Fatal("Encoded body is empty")
	}

	if body[0] == TypeStrictArray {
		t.Fatalf("Command encoding incorrectly wraps values in StrictArray (0x%02x)", body[0])
	}
	if body[0] != TypeString {
		t.Fatalf("Command encoding first byte should be 0x02 (TypeString), got 0x%02x", body[0])
	}

	// Type marker (1 byte) + length (2 bytes), then the string itself
	expected := "_result"
	if len(body) < 3+len(expected) {
		t.Fatalf("Encoded body too short: %d bytes", len(body))
	}
	if string(body[3:3+len(expected)]) != expected {
		t.Errorf("Expected %q after type marker, got %q", expected, string(body[3:3+len(expected)]))
	}
}

func TestEncodeNumberLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, float64(1)); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	want := []byte{0x00, 0x3F, 0xF0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("Encoded number = % x, want % x", buf.Bytes(), want)
	}
}

func TestEncodeWidensGoNumerics(t *testing.T) {
	tests := []struct {
		name string
		val  Value
		want float64
	}{
		{"int", int(42), 42},
		{"int64", int64(-7), -7},
		{"uint32", uint32(1935), 1935},
		{"float32", float32(29.97), float64(float32(29.97))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, tt.val); err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			got, err := Decode(&buf)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			num, ok := NumberValue(got)
			if !ok {
				t.Fatalf("Decoded value is %T, want number", got)
			}
			if num != tt.want {
				t.Errorf("Round-tripped %v, want %v", num, tt.want)
			}
		})
	}
}

func TestEncodeUnsupportedType(t *testing.T) {
	var buf bytes.Buffer
	err := Encode(&buf, struct{ X int }{1})
	if err == nil {
		t.Fatal("Expected error for unencodable value")
	}
}
