package bus

import (
	"context"
	"sync"
)

// Subscriber consumes media messages from one stream through its own ring
// buffer, so a slow consumer never stalls the publisher.
type Subscriber struct {
	id        uint64
	buffer    *RingBuffer
	onMessage func(*MediaMessage)

	wake      chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

// NewSubscriber creates a subscriber with the given buffer capacity and
// overflow strategy.
func NewSubscriber(id uint64, capacity uint32, strategy BackpressureStrategy) *Subscriber {
	return &Subscriber{
		id:     id,
		buffer: NewRingBuffer(capacity, strategy),
		wake:   make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// ID returns the subscriber's id within its stream.
func (s *Subscriber) ID() uint64 {
	return s.id
}

// Buffer exposes the delivery buffer. The stream writes into it; the
// consumer reads from it.
func (s *Subscriber) Buffer() *RingBuffer {
	return s.buffer
}

// SetMessageHandler installs the callback Process invokes per message.
func (s *Subscriber) SetMessageHandler(handler func(*MediaMessage)) {
	s.onMessage = handler
}

// Process drains up to maxMessages buffered messages through the handler
// and returns how many it handled. Message ownership passes to the
// handler.
func (s *Subscriber) Process(maxMessages int) int {
	processed := 0
	for i := 0; i < maxMessages; i++ {
		msg, ok := s.buffer.Read()
		if !ok {
			break
		}
		if s.onMessage != nil {
			s.onMessage(msg)
		}
		processed++
	}
	return processed
}

// notify signals a blocked Wait call. At most one signal is buffered, the
// consumer re-drains after every wakeup.
func (s *Subscriber) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Wait blocks until more messages may be available. Returns false when the
// subscriber is detached or ctx is done, which tells the consumer loop to
// stop.
func (s *Subscriber) Wait(ctx context.Context) bool {
	select {
	case <-s.wake:
		return true
	case <-s.closed:
		return false
	case <-ctx.Done():
		return false
	}
}

// Close permanently wakes blocked Wait callers. The stream calls it on
// detach.
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() { close(s.closed) })
}

// Dropped returns how many messages overflowed this subscriber's buffer.
func (s *Subscriber) Dropped() uint64 {
	return s.buffer.Dropped()
}
