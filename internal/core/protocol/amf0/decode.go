package amf0

import (
	"encoding/binary"
	"errors"
	"io"
)

var (
	ErrUnexpectedType = errors.New("unexpected AMF0 type")
	ErrInvalidData    = errors.New("invalid AMF0 data")
)

// Decode reads and decodes a single AMF0 value from the reader.
func Decode(r io.Reader) (Value, error) {
	var typeMarker byte
	if err := binary.Read(r, binary.BigEndian, &typeMarker); err != nil {
		return nil, err
	}

	switch typeMarker {
	case TypeNumber:
		return decodeNumber(r)
	case TypeBoolean:
		return decodeBoolean(r)
	case TypeString:
		return decodeString(r)
	case TypeNull, TypeUndefined:
		return nil, nil
	case TypeObject:
		return decodeObject(r)
	case TypeECMAArray:
		return decodeECMAArray(r)
	case TypeStrictArray:
		return decodeStrictArray(r)
	case TypeDate:
		return decodeDate(r)
	case TypeLongString:
		return decodeLongString(r)
	default:
		return nil, ErrUnexpectedType
	}
}

// DecodeAll decodes consecutive AMF0 values until the reader is exhausted.
// Command and data message bodies are encoded exactly this way: a sequence
// of values with no framing around them.
func DecodeAll(r io.Reader) ([]Value, error) {
	var values []Value
	for {
		v, err := Decode(r)
		if err != nil {
			if err == io.EOF {
				return values, nil
			}
			return nil, err
		}
		values = append(values, v)
	}
}

// DecodeString reads an AMF0 string value.
func DecodeString(r io.Reader) (string, error) {
	var typeMarker byte
	if err := binary.Read(r, binary.BigEndian, &typeMarker); err != nil {
		return "", err
	}
	if typeMarker != TypeString {
		return "", ErrUnexpectedType
	}
	return decodeString(r)
}

// decodeNumber decodes an AMF0 number (double precision float64).
func decodeNumber(r io.Reader) (float64, error) {
	var num float64
	err := binary.Read(r, binary.BigEndian, &num)
	return num, err
}

// decodeBoolean decodes an AMF0 boolean.
func decodeBoolean(r io.Reader) (bool, error) {
	var b byte
	if err := binary.Read(r, binary.BigEndian, &b); err != nil {
		return false, err
	}
	return b != 0, nil
}

// decodeString decodes an AMF0 short string (16-bit length).
func decodeString(r io.Reader) (string, error) {
	var length uint16
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return "", err
	}
	if length == 0 {
		return "", nil
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// decodeLongString decodes an AMF0 long string (32-bit length).
func decodeLongString(r io.Reader) (string, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return "", err
	}
	if length == 0 {
		return "", nil
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// decodeObject decodes AMF0 object properties up to the object end marker.
func decodeObject(r io.Reader) (Object, error) {
	obj := make(Object)
	for {
		var keyLen uint16
		if err := binary.Read(r, binary.BigEndian, &keyLen); err != nil {
			return nil, err
		}
		if keyLen == 0 {
			// Object end marker
			var endMarker byte
			if err := binary.Read(r, binary.BigEndian, &endMarker); err != nil {
				return nil, err
			}
			if endMarker != TypeObjectEnd {
				return nil, ErrInvalidData
			}
			break
		}
		keyBuf := make([]byte, keyLen)
		if _, err := io.ReadFull(r, keyBuf); err != nil {
			return nil, err
		}
		key := string(keyBuf)
		value, err := Decode(r)
		if err != nil {
			return nil, err
		}
		obj[key] = value
	}
	return obj, nil
}

// decodeECMAArray decodes an AMF0 ECMA array. The leading count is
// advisory; the property list is terminated like an object.
func decodeECMAArray(r io.Reader) (Object, error) {
	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	return decodeObject(r)
}

// decodeStrictArray decodes an AMF0 strict array of counted values.
func decodeStrictArray(r io.Reader) (Array, error) {
	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	arr := make(Array, 0, count)
	for i := uint32(0); i < count; i++ {
		v, err := Decode(r)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	return arr, nil
}

// decodeDate decodes an AMF0 date as milliseconds since epoch.
// The trailing time-zone field is reserved and discarded.
func decodeDate(r io.Reader) (float64, error) {
	var millis float64
	if err := binary.Read(r, binary.BigEndian, &millis); err != nil {
		return 0, err
	}
	var tz int16
	if err := binary.Read(r, binary.BigEndian, &tz); err != nil {
		return 0, err
	}
	return millis, nil
}
