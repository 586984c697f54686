package rtmp

import (
	"sync/atomic"

	"weir/internal/core/bus"
	"weir/internal/core/protocol/flv"
)

var nextPublisherID atomic.Uint64

// Publisher forwards one session's media into its bus stream. Sequence
// headers are cached on the stream as they pass so late joiners can
// decode.
type Publisher struct {
	stream *bus.Stream
	id     uint64
}

// NewPublisher claims the stream's publisher slot. ok is false when
// another session already publishes there.
func NewPublisher(stream *bus.Stream) (*Publisher, bool) {
	id := nextPublisherID.Add(1)
	if !stream.AttachPublisher(id) {
		return nil, false
	}
	return &Publisher{stream: stream, id: id}, true
}

// Audio forwards an audio payload. AAC sequence headers are cached.
func (p *Publisher) Audio(timestamp uint32, payload []byte) {
	init := flv.IsAudioSequenceHeader(payload)
	if init {
		p.stream.SetAudioInit(payload)
	}
	p.publish(bus.MessageTypeAudio, timestamp, payload, init)
}

// Video forwards a video payload. AVC sequence headers are cached.
func (p *Publisher) Video(timestamp uint32, payload []byte) {
	init := flv.IsVideoSequenceHeader(payload)
	if init {
		p.stream.SetVideoInit(payload)
	}
	p.publish(bus.MessageTypeVideo, timestamp, payload, init)
}

// Metadata forwards a normalized onMetaData payload and caches it for late
// joiners.
func (p *Publisher) Metadata(timestamp uint32, payload []byte) {
	p.stream.SetMetadata(payload)
	p.publish(bus.MessageTypeMetadata, timestamp, payload, false)
}

// Data forwards script payloads that are not stream metadata.
func (p *Publisher) Data(timestamp uint32, payload []byte) {
	p.publish(bus.MessageTypeMetadata, timestamp, payload, false)
}

// publish hands the payload to the bus. The message takes the payload
// slice as is; the bus owns both from here.
func (p *Publisher) publish(t bus.MessageType, timestamp uint32, payload []byte, init bool) {
	msg := bus.AcquireMessage()
	msg.Type = t
	msg.Timestamp = timestamp
	msg.Payload = payload
	msg.IsInit = init
	p.stream.Publish(msg)
}

// Detach releases the publisher slot.
func (p *Publisher) Detach() {
	p.stream.DetachPublisher()
}

// Key returns the published stream's key.
func (p *Publisher) Key() bus.StreamKey {
	return p.stream.Key()
}
