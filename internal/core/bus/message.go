// Package bus is the in-process fanout layer between ingest and egress.
// Publishers push media messages into per-stream buffers; subscribers
// drain them at their own pace.
package bus

import (
	"sync"
)

// MessageType classifies a media message.
type MessageType uint8

const (
	MessageTypeAudio MessageType = iota
	MessageTypeVideo
	MessageTypeMetadata
)

// MediaMessage is one unit of media flowing through the bus. Payload
// buffers come from a pool. Fanout hands every subscriber its own clone,
// so whoever reads a message from a buffer owns it and must release it.
type MediaMessage struct {
	Type      MessageType
	Timestamp uint32
	Payload   []byte
	// IsInit marks decoder configuration (AVC/AAC sequence headers).
	// Init messages are cached on the stream and replayed to late joiners.
	IsInit bool
}

var messagePool = sync.Pool{
	New: func() interface{} {
		return &MediaMessage{}
	},
}

// AcquireMessage takes a zeroed MediaMessage from the pool. Pair with
// ReleaseMessage.
func AcquireMessage() *MediaMessage {
	msg := messagePool.Get().(*MediaMessage)
	msg.Type = 0
	msg.Timestamp = 0
	msg.Payload = nil
	msg.IsInit = false
	return msg
}

// ReleaseMessage returns a message and its payload buffer to their pools.
// Neither may be used afterwards.
func ReleaseMessage(msg *MediaMessage) {
	if msg == nil {
		return
	}
	ReleasePayload(msg.Payload)
	msg.Payload = nil
	messagePool.Put(msg)
}

// Payload buffers outside these bounds skip the pool: tiny buffers would
// poison it, oversized ones would pin memory.
const (
	minPooledPayload = 4 * 1024
	maxPooledPayload = 256 * 1024
)

var payloadPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, 0, 64*1024)
		return &buf
	},
}

// AcquirePayload takes an empty payload buffer from the pool. Pair with
// ReleasePayload.
func AcquirePayload() []byte {
	bufPtr := payloadPool.Get().(*[]byte)
	return (*bufPtr)[:0]
}

// ReleasePayload returns a payload buffer to the pool.
func ReleasePayload(buf []byte) {
	if cap(buf) < minPooledPayload || cap(buf) > maxPooledPayload {
		return
	}
	buf = buf[:0]
	payloadPool.Put(&buf)
}

// SetPayload copies data into a fresh pooled buffer on the message.
func (m *MediaMessage) SetPayload(data []byte) {
	buf := AcquirePayload()
	m.Payload = append(buf, data...)
}

// Clone deep-copies the message with its own pooled payload. Original and
// clone release independently.
func (m *MediaMessage) Clone() *MediaMessage {
	clone := AcquireMessage()
	clone.Type = m.Type
	clone.Timestamp = m.Timestamp
	clone.IsInit = m.IsInit
	if len(m.Payload) > 0 {
		clone.SetPayload(m.Payload)
	}
	return clone
}

func (t MessageType) String() string {
	switch t {
	case MessageTypeAudio:
		return "audio"
	case MessageTypeVideo:
		return "video"
	case MessageTypeMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}
