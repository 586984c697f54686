package rtmp

import (
	"encoding"
)

// Message is one typed RTMP protocol message. Every variant has a fixed,
// self-describing body layout: marshalling consults nothing beyond the
// typed value and unmarshalling nothing beyond the bytes handed to it, so
// the codec stays a stateless unit regardless of session state.
type Message interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler

	// TypeID returns the message type id carried in chunk headers.
	TypeID() uint8
}

// Decode constructs the message variant selected by typeID from a complete
// message body. Unrecognized type ids decode to Unknown so a session can
// carry or skip what it does not speak.
func Decode(typeID uint8, body []byte) (Message, error) {
	var msg Message
	switch typeID {
	case MessageTypeSetChunkSize:
		msg = &SetChunkSize{}
	case MessageTypeAbort:
		msg = &Abort{}
	case MessageTypeAcknowledgement:
		msg = &Acknowledgement{}
	case MessageTypeUserControl:
		msg = &UserControl{}
	case MessageTypeWindowAckSize:
		msg = &WindowAcknowledgementSize{}
	case MessageTypeSetPeerBandwidth:
		msg = &SetPeerBandwidth{}
	case MessageTypeAudio:
		msg = &AudioData{}
	case MessageTypeVideo:
		msg = &VideoData{}
	case MessageTypeDataAMF0:
		msg = &Amf0Data{}
	case MessageTypeCommandAMF0:
		msg = &Amf0Command{}
	default:
		msg = &Unknown{MessageTypeID: typeID}
	}
	if err := msg.UnmarshalBinary(body); err != nil {
		return nil, err
	}
	return msg, nil
}

// Unknown carries the body of a message type the engine does not decode
// (shared objects, AMF3 traffic, aggregates). The payload aliases the
// slice handed to UnmarshalBinary.
type Unknown struct {
	MessageTypeID uint8
	Payload       []byte
}

func (m *Unknown) TypeID() uint8 { return m.MessageTypeID }

func (m *Unknown) MarshalBinary() ([]byte, error) {
	return m.Payload, nil
}

func (m *Unknown) UnmarshalBinary(data []byte) error {
	m.Payload = data
	return nil
}
