package rtmp

import (
	"encoding/binary"
	"fmt"
)

// SetChunkSize announces the maximum chunk payload size the sender will
// use from this point on.
type SetChunkSize struct {
	Size uint32
}

func (m *SetChunkSize) TypeID() uint8 { return MessageTypeSetChunkSize }

func (m *SetChunkSize) MarshalBinary() ([]byte, error) {
	body := make([]byte, 4)
	binary.BigEndian.PutUint32(body, m.Size)
	return body, nil
}

func (m *SetChunkSize) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return &DeserializationError{TypeID: m.TypeID(), Reason: "body shorter than 4 bytes"}
	}
	size := binary.BigEndian.Uint32(data)
	if size&0x80000000 != 0 {
		return &DeserializationError{TypeID: m.TypeID(), Reason: "reserved high bit set"}
	}
	if size == 0 {
		return &DeserializationError{TypeID: m.TypeID(), Reason: "chunk size zero"}
	}
	m.Size = size
	return nil
}

// Abort tells the peer to discard any partially assembled message on the
// given chunk stream.
type Abort struct {
	StreamID uint32
}

func (m *Abort) TypeID() uint8 { return MessageTypeAbort }

func (m *Abort) MarshalBinary() ([]byte, error) {
	body := make([]byte, 4)
	binary.BigEndian.PutUint32(body, m.StreamID)
	return body, nil
}

func (m *Abort) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return &DeserializationError{TypeID: m.TypeID(), Reason: "body shorter than 4 bytes"}
	}
	m.StreamID = binary.BigEndian.Uint32(data)
	return nil
}

// Acknowledgement reports the total bytes received so far, sent whenever a
// window acknowledgement size worth of bytes has arrived.
type Acknowledgement struct {
	SequenceNumber uint32
}

func (m *Acknowledgement) TypeID() uint8 { return MessageTypeAcknowledgement }

func (m *Acknowledgement) MarshalBinary() ([]byte, error) {
	body := make([]byte, 4)
	binary.BigEndian.PutUint32(body, m.SequenceNumber)
	return body, nil
}

func (m *Acknowledgement) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return &DeserializationError{TypeID: m.TypeID(), Reason: "body shorter than 4 bytes"}
	}
	m.SequenceNumber = binary.BigEndian.Uint32(data)
	return nil
}

// WindowAcknowledgementSize asks the peer to send an Acknowledgement every
// Size bytes.
type WindowAcknowledgementSize struct {
	Size uint32
}

func (m *WindowAcknowledgementSize) TypeID() uint8 { return MessageTypeWindowAckSize }

func (m *WindowAcknowledgementSize) MarshalBinary() ([]byte, error) {
	body := make([]byte, 4)
	binary.BigEndian.PutUint32(body, m.Size)
	return body, nil
}

func (m *WindowAcknowledgementSize) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return &DeserializationError{TypeID: m.TypeID(), Reason: "body shorter than 4 bytes"}
	}
	m.Size = binary.BigEndian.Uint32(data)
	return nil
}

// SetPeerBandwidth limits the peer's outgoing bandwidth.
type SetPeerBandwidth struct {
	Size  uint32
	Limit LimitType
}

func (m *SetPeerBandwidth) TypeID() uint8 { return MessageTypeSetPeerBandwidth }

func (m *SetPeerBandwidth) MarshalBinary() ([]byte, error) {
	body := make([]byte, 5)
	binary.BigEndian.PutUint32(body[0:4], m.Size)
	body[4] = byte(m.Limit)
	return body, nil
}

func (m *SetPeerBandwidth) UnmarshalBinary(data []byte) error {
	if len(data) < 5 {
		return &DeserializationError{TypeID: m.TypeID(), Reason: "body shorter than 5 bytes"}
	}
	limit := LimitType(data[4])
	switch limit {
	case LimitHard, LimitSoft, LimitDynamic:
	default:
		return &DeserializationError{TypeID: m.TypeID(), Reason: fmt.Sprintf("invalid limit type %d", data[4])}
	}
	m.Size = binary.BigEndian.Uint32(data[0:4])
	m.Limit = limit
	return nil
}

// UserControl carries a stream lifecycle event. The fields after Event are
// populated according to the event type: StreamID for the stream events,
// BufferLength additionally for SetBufferLength, Timestamp for the pings.
type UserControl struct {
	Event        UserControlEvent
	StreamID     uint32
	BufferLength uint32
	Timestamp    uint32
}

func (m *UserControl) TypeID() uint8 { return MessageTypeUserControl }

func (m *UserControl) MarshalBinary() ([]byte, error) {
	switch m.Event {
	case ControlStreamBegin, ControlStreamEOF, ControlStreamDry, ControlStreamIsRecorded:
		body := make([]byte, 6)
		binary.BigEndian.PutUint16(body[0:2], uint16(m.Event))
		binary.BigEndian.PutUint32(body[2:6], m.StreamID)
		return body, nil
	case ControlSetBufferLength:
		body := make([]byte, 10)
		binary.BigEndian.PutUint16(body[0:2], uint16(m.Event))
		binary.BigEndian.PutUint32(body[2:6], m.StreamID)
		binary.BigEndian.PutUint32(body[6:10], m.BufferLength)
		return body, nil
	case ControlPingRequest, ControlPingResponse:
		body := make([]byte, 6)
		binary.BigEndian.PutUint16(body[0:2], uint16(m.Event))
		binary.BigEndian.PutUint32(body[2:6], m.Timestamp)
		return body, nil
	default:
		return nil, &SerializationError{TypeID: m.TypeID(), Err: fmt.Errorf("unknown user control event %d", m.Event)}
	}
}

func (m *UserControl) UnmarshalBinary(data []byte) error {
	if len(data) < 2 {
		return &DeserializationError{TypeID: m.TypeID(), Reason: "body shorter than 2 bytes"}
	}
	event := UserControlEvent(binary.BigEndian.Uint16(data[0:2]))
	switch event {
	case ControlStreamBegin, ControlStreamEOF, ControlStreamDry, ControlStreamIsRecorded:
		if len(data) < 6 {
			return &DeserializationError{TypeID: m.TypeID(), Reason: "stream event shorter than 6 bytes"}
		}
		m.Event = event
		m.StreamID = binary.BigEndian.Uint32(data[2:6])
		return nil
	case ControlSetBufferLength:
		if len(data) < 10 {
			return &DeserializationError{TypeID: m.TypeID(), Reason: "set buffer length shorter than 10 bytes"}
		}
		m.Event = event
		m.StreamID = binary.BigEndian.Uint32(data[2:6])
		m.BufferLength = binary.BigEndian.Uint32(data[6:10])
		return nil
	case ControlPingRequest, ControlPingResponse:
		if len(data) < 6 {
			return &DeserializationError{TypeID: m.TypeID(), Reason: "ping shorter than 6 bytes"}
		}
		m.Event = event
		m.Timestamp = binary.BigEndian.Uint32(data[2:6])
		return nil
	default:
		return &DeserializationError{TypeID: m.TypeID(), Reason: fmt.Sprintf("invalid user control event %d", event)}
	}
}
