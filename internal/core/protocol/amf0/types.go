// Package amf0 implements the AMF0 value encoding used by RTMP command
// and data messages.
package amf0

// AMF0 type markers
const (
	TypeNumber      = 0
	TypeBoolean     = 1
	TypeString      = 2
	TypeObject      = 3
	TypeNull        = 5
	TypeUndefined   = 6
	TypeReference   = 7
	TypeECMAArray   = 8
	TypeObjectEnd   = 9
	TypeStrictArray = 10
	TypeDate        = 11
	TypeLongString  = 12
	TypeXMLDocument = 15
	TypeTypedObject = 16
)

// Value represents a decoded AMF0 value.
type Value interface{}

// Object represents an AMF0 object (key-value pairs). ECMA arrays decode
// to an Object as well; the count prefix carries no information the key
// set does not.
type Object map[string]Value

// Array represents an AMF0 strict array.
type Array []Value

// NumberValue returns the numeric content of v. Decoded numbers are always
// float64; hand-built values may use other Go numeric types and are widened.
func NumberValue(v Value) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// BooleanValue returns the boolean content of v.
func BooleanValue(v Value) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// StringValue returns the text content of v.
func StringValue(v Value) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// ObjectValue returns the keyed-map content of v.
func ObjectValue(v Value) (Object, bool) {
	o, ok := v.(Object)
	return o, ok
}
