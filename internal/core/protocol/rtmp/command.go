package rtmp

import (
	"bytes"

	"weir/internal/core/protocol/amf0"
)

// Amf0Command is a NetConnection/NetStream command: a command name, the
// caller-chosen transaction id its reply will carry, an optional command
// object, and trailing arguments. On the wire these are sequential AMF0
// values with no framing around them.
type Amf0Command struct {
	Name           string
	TransactionID  float64
	CommandObject  amf0.Value
	AdditionalArgs []amf0.Value
}

func (m *Amf0Command) TypeID() uint8 { return MessageTypeCommandAMF0 }

func (m *Amf0Command) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	values := append([]amf0.Value{m.Name, m.TransactionID, m.CommandObject}, m.AdditionalArgs...)
	if err := amf0.EncodeAll(&buf, values...); err != nil {
		return nil, &SerializationError{TypeID: m.TypeID(), Err: err}
	}
	return buf.Bytes(), nil
}

func (m *Amf0Command) UnmarshalBinary(data []byte) error {
	values, err := amf0.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return &DeserializationError{TypeID: m.TypeID(), Reason: err.Error()}
	}
	if len(values) < 2 {
		return &DeserializationError{TypeID: m.TypeID(), Reason: "command needs a name and a transaction id"}
	}
	name, ok := amf0.StringValue(values[0])
	if !ok {
		return &DeserializationError{TypeID: m.TypeID(), Reason: "command name is not a string"}
	}
	txid, ok := amf0.NumberValue(values[1])
	if !ok {
		return &DeserializationError{TypeID: m.TypeID(), Reason: "transaction id is not a number"}
	}
	m.Name = name
	m.TransactionID = txid
	m.CommandObject = nil
	m.AdditionalArgs = nil
	if len(values) > 2 {
		m.CommandObject = values[2]
	}
	if len(values) > 3 {
		m.AdditionalArgs = values[3:]
	}
	return nil
}

// Amf0Data is a data message such as onMetaData: a plain sequence of AMF0
// values.
type Amf0Data struct {
	Values []amf0.Value
}

func (m *Amf0Data) TypeID() uint8 { return MessageTypeDataAMF0 }

func (m *Amf0Data) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := amf0.EncodeAll(&buf, m.Values...); err != nil {
		return nil, &SerializationError{TypeID: m.TypeID(), Err: err}
	}
	return buf.Bytes(), nil
}

func (m *Amf0Data) UnmarshalBinary(data []byte) error {
	values, err := amf0.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return &DeserializationError{TypeID: m.TypeID(), Reason: err.Error()}
	}
	m.Values = values
	return nil
}

// DataName returns the first string value of a data message, which names
// the payload ("onMetaData", "@setDataFrame").
func (m *Amf0Data) DataName() string {
	if len(m.Values) == 0 {
		return ""
	}
	name, _ := amf0.StringValue(m.Values[0])
	return name
}
