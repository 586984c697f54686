package amf0

import (
	"bytes"
	"reflect"
	"testing"
)

func TestDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		val  Value
	}{
		{"number", float64(1935)},
		{"negative number", float64(-1.5)},
		{"boolean true", true},
		{"boolean false", false},
		{"string", "onMetaData"},
		{"empty string", ""},
		{"null", nil},
		{"object", Object{"app": "live", "tcUrl": "rtmp://localhost/live"}},
		{"nested object", Object{"info": Object{"level": "status"}}},
		{"strict array", Array{float64(1), "two", true}},
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
			if !reflect.DeepEqual(got, tt.val) {
				t.Errorf("Round trip = %#v, want %#v", got, tt.val)
			}
		})
	}
}

func TestDecodeAllSequence(t *testing.T) {
	var buf bytes.Buffer
	err := EncodeAll(&buf, "connect", float64(1), Object{"app": "live"}, nil)
	if err != nil {
		t.Fatalf("EncodeAll failed: %v", err)
	}

	values, err := DecodeAll(&buf)
	if err != nil {
		t.Fatalf("DecodeAll failed: %v", err)
	}
	if len(values) != 4 {
		t.Fatalf("Expected 4 values, got %d", len(values))
	}

	if name, _ := StringValue(values[0]); name != "connect" {
		t.Errorf("values[0] = %v, want connect", values[0])
	}
	if txid, _ := NumberValue(values[1]); txid != 1 {
		t.Errorf("values[1] = %v, want 1", values[1])
	}
	obj, ok := ObjectValue(values[2])
	if !ok {
		t.Fatalf("values[2] is %T, want Object", values[2])
	}
	if app, _ := StringValue(obj["app"]); app != "live" {
		t.Errorf("app = %v, want live", obj["app"])
	}
	if values[3] != nil {
		t.Errorf("values[3] = %v, want nil", values[3])
	}
}

func TestDecodeECMAArrayAsObject(t *testing.T) {
	// count prefix, then object-style properties with end marker
	var buf bytes.Buffer
	buf.WriteByte(TypeECMAArray)
	buf.Write([]byte{0x00, 0x00, 0x00, 0x01})
	buf.Write([]byte{0x00, 0x05})
	buf.WriteString("width")
	buf.WriteByte(TypeNumber)
	buf.Write([]byte{0x40, 0x9E, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}) // 1920.0
	buf.Write([]byte{0x00, 0x00, TypeObjectEnd})

	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	obj, ok := ObjectValue(got)
	if !ok {
		t.Fatalf("Decoded %T, want Object", got)
	}
	if w, _ := NumberValue(obj["width"]); w != 1920 {
		t.Errorf("width = %v, want 1920", obj["width"])
	}
}

func TestDecodeTruncatedObject(t *testing.T) {
	var full bytes.Buffer
	if err := Encode(&full, Object{"key": "value"}); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// Every strict prefix must fail, never hang or mis-decode.
	data := full.Bytes()
	for cut := 1; cut < len(data); cut++ {
		if _, err := Decode(bytes.NewReader(data[:cut])); err == nil {
			t.Errorf("Decode of %d/%d bytes should fail", cut, len(data))
		}
	}
}

func TestValueAccessorKinds(t *testing.T) {
	if _, ok := NumberValue("text"); ok {
		t.Error("NumberValue should reject a string")
	}
	if _, ok := BooleanValue(float64(1)); ok {
		t.Error("BooleanValue should reject a number")
	}
	if _, ok := StringValue(true); ok {
		t.Error("StringValue should reject a boolean")
	}
	if _, ok := ObjectValue(Array{}); ok {
		t.Error("ObjectValue should reject an array")
	}
}
