package amf0

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

var ErrUnsupportedType = errors.New("unsupported AMF0 value type")

// Encode writes a single AMF0 value to the writer. Go numeric types widen
// to the AMF0 number; values outside the encodable set yield
// ErrUnsupportedType.
func Encode(w io.Writer, val Value) error {
	switch v := val.(type) {
	case float64:
		return encodeNumber(w, v)
	case float32:
		return encodeNumber(w, float64(v))
	case int:
		return encodeNumber(w, float64(v))
	case int32:
		return encodeNumber(w, float64(v))
	case int64:
		return encodeNumber(w, float64(v))
	case uint32:
		return encodeNumber(w, float64(v))
	case uint64:
		return encodeNumber(w, float64(v))
	case bool:
		return encodeBoolean(w, v)
	case string:
		return encodeString(w, v)
	case nil:
		return encodeNull(w)
	case Object:
		return encodeObject(w, v)
	case Array:
		return encodeStrictArray(w, v)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedType, val)
	}
}

// EncodeAll writes values sequentially with no framing around them.
// Command bodies must start with the first value's own type marker, never
// a strict array wrapper.
func EncodeAll(w io.Writer, values ...Value) error {
	for _, v := range values {
		if err := Encode(w, v); err != nil {
			return err
		}
	}
	return nil
}

// encodeNumber encodes an AMF0 number.
func encodeNumber(w io.Writer, num float64) error {
	if err := binary.Write(w, binary.BigEndian, byte(TypeNumber)); err != nil {
		return err
	}
	return binary.Write(w, binary.BigEndian, num)
}

// encodeBoolean encodes an AMF0 boolean.
func encodeBoolean(w io.Writer, b bool) error {
	if err := binary.Write(w, binary.BigEndian, byte(TypeBoolean)); err != nil {
		return err
	}
	var val byte
	if b {
		val = 1
	}
	return binary.Write(w, binary.BigEndian, val)
}

// encodeString encodes a short or long string depending on length.
func encodeString(w io.Writer, s string) error {
	if len(s) > math.MaxUint16 {
		if err := binary.Write(w, binary.BigEndian, byte(TypeLongString)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint32(len(s))); err != nil {
			return err
		}
		_, err := w.Write([]byte(s))
		return err
	}
	if err := binary.Write(w, binary.BigEndian, byte(TypeString)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

// encodeNull encodes an AMF0 null.
func encodeNull(w io.Writer) error {
	return binary.Write(w, binary.BigEndian, byte(TypeNull))
}

// encodeObject encodes an AMF0 object with the end marker.
func encodeObject(w io.Writer, obj Object) error {
	if err := binary.Write(w, binary.BigEndian, byte(TypeObject)); err != nil {
		return err
	}
	for key, val := range obj {
		if err := encodeProperty(w, key, val); err != nil {
			return err
		}
	}
	// Object end marker
	if err := binary.Write(w, binary.BigEndian, uint16(0)); err != nil {
		return err
	}
	return binary.Write(w, binary.BigEndian, byte(TypeObjectEnd))
}

// encodeProperty encodes one object key-value pair.
func encodeProperty(w io.Writer, key string, val Value) error {
	if err := binary.Write(w, binary.BigEndian, uint16(len(key))); err != nil {
		return err
	}
	if _, err := w.Write([]byte(key)); err != nil {
		return err
	}
	return Encode(w, val)
}

// encodeStrictArray encodes an AMF0 strict array.
func encodeStrictArray(w io.Writer, arr Array) error {
	if err := binary.Write(w, binary.BigEndian, byte(TypeStrictArray)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(arr))); err != nil {
		return err
	}
	for _, val := range arr {
		if err := Encode(w, val); err != nil {
			return err
		}
	}
	return nil
}
