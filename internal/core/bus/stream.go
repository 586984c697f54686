package bus

import (
	"sync"
)

// Stream is one live stream instance: at most one publisher, any number of
// subscribers, and the cached configuration a late joiner needs before it
// can decode mid-stream. Fanout never blocks on a slow subscriber.
type Stream struct {
	key         StreamKey
	mu          sync.RWMutex
	publisher   *Publisher
	subscribers map[uint64]*Subscriber
	nextSubID   uint64

	// Cached for late joiners. Payloads are owned by the stream.
	metadata  []byte
	videoInit []byte
	audioInit []byte
}

// Publisher marks the single attached publisher of a stream.
type Publisher struct {
	id uint64
}

// NewStream creates an empty stream with the given key.
func NewStream(key StreamKey) *Stream {
	return &Stream{
		key:         key,
		subscribers: make(map[uint64]*Subscriber),
		nextSubID:   1,
	}
}

// Key returns the stream's key.
func (s *Stream) Key() StreamKey {
	return s.key
}

// AttachPublisher claims the publisher slot. Returns false if the stream
// already has a publisher.
func (s *Stream) AttachPublisher(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.publisher != nil {
		return false
	}
	s.publisher = &Publisher{id: id}
	return true
}

// DetachPublisher releases the publisher slot and drops the cached
// configuration, which belongs to the departing publisher's encode.
func (s *Stream) DetachPublisher() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publisher = nil
	s.metadata = nil
	s.videoInit = nil
	s.audioInit = nil
}

// HasPublisher reports whether a publisher is attached.
func (s *Stream) HasPublisher() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.publisher != nil
}

// AttachSubscriber adds a subscriber and returns it with its id.
func (s *Stream) AttachSubscriber(capacity uint32, strategy BackpressureStrategy) (*Subscriber, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++

	sub := NewSubscriber(id, capacity, strategy)
	s.subscribers[id] = sub
	return sub, id
}

// DetachSubscriber removes a subscriber and wakes its consumer loop.
func (s *Stream) DetachSubscriber(id uint64) {
	s.mu.Lock()
	sub := s.subscribers[id]
	delete(s.subscribers, id)
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
}

// Publish fans a message out to every subscriber buffer and takes
// ownership of it. Each subscriber gets its own clone, so consumers
// release what they read without coordinating. Never blocks.
func (s *Stream) Publish(msg *MediaMessage) {
	if msg == nil {
		return
	}

	s.mu.RLock()
	subs := make([]*Subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.mu.RUnlock()

	for _, sub := range subs {
		clone := msg.Clone()
		if !sub.Buffer().Write(clone) {
			ReleaseMessage(clone)
		}
		sub.notify()
	}
	ReleaseMessage(msg)
}

// SetMetadata caches the latest script payload for late joiners. The
// payload is copied.
func (s *Stream) SetMetadata(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = append([]byte(nil), payload...)
}

// Metadata returns the cached script payload, nil if none arrived yet.
// Callers must not modify it.
func (s *Stream) Metadata() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadata
}

// SetVideoInit caches the video sequence header. The payload is copied.
func (s *Stream) SetVideoInit(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videoInit = append([]byte(nil), payload...)
}

// SetAudioInit caches the audio sequence header. The payload is copied.
func (s *Stream) SetAudioInit(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioInit = append([]byte(nil), payload...)
}

// HasVideo reports whether a video sequence header has been seen.
func (s *Stream) HasVideo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.videoInit != nil
}

// HasAudio reports whether an audio sequence header has been seen.
func (s *Stream) HasAudio() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.audioInit != nil
}

// InitMessages builds replayable copies of the cached configuration in
// write order: metadata, then video and audio sequence headers. Caller
// owns the returned messages.
func (s *Stream) InitMessages() []*MediaMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := make([]*MediaMessage, 0, 3)
	if s.metadata != nil {
		msg := AcquireMessage()
		msg.Type = MessageTypeMetadata
		msg.SetPayload(s.metadata)
		msgs = append(msgs, msg)
	}
	if s.videoInit != nil {
		msg := AcquireMessage()
		msg.Type = MessageTypeVideo
		msg.IsInit = true
		msg.SetPayload(s.videoInit)
		msgs = append(msgs, msg)
	}
	if s.audioInit != nil {
		msg := AcquireMessage()
		msg.Type = MessageTypeAudio
		msg.IsInit = true
		msg.SetPayload(s.audioInit)
		msgs = append(msgs, msg)
	}
	return msgs
}

// SubscriberCount returns the number of attached subscribers.
func (s *Stream) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// IsEmpty reports whether the stream has neither publisher nor
// subscribers.
func (s *Stream) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.publisher == nil && len(s.subscribers) == 0
}
