package bus

import (
	"sync/atomic"
)

// BackpressureStrategy says which side loses when a subscriber buffer
// overflows.
type BackpressureStrategy uint8

const (
	// BackpressureDropOldest overwrites the oldest buffered message.
	BackpressureDropOldest BackpressureStrategy = iota
	// BackpressureDropNewest discards the incoming message.
	BackpressureDropNewest
)

// RingBuffer is a bounded single-producer single-consumer buffer.
// Both positions are free-running counters, never masked in place; the
// mask applies only when indexing the array. Emptiness is readPos ==
// writePos, which stays correct across uint32 wrap.
type RingBuffer struct {
	buffer   []*MediaMessage
	size     uint32 // power of 2
	mask     uint32 // size - 1
	writePos uint32 // atomic, free-running
	readPos  uint32 // atomic, free-running
	strategy BackpressureStrategy
	dropped  uint64 // atomic
}

// NewRingBuffer creates a buffer holding at least capacity messages,
// rounded up to a power of 2.
func NewRingBuffer(capacity uint32, strategy BackpressureStrategy) *RingBuffer {
	actualSize := uint32(1)
	for actualSize < capacity {
		actualSize <<= 1
	}

	return &RingBuffer{
		buffer:   make([]*MediaMessage, actualSize),
		size:     actualSize,
		mask:     actualSize - 1,
		strategy: strategy,
	}
}

// Write stores one message. Returns false only when the buffer is full
// and the strategy drops the incoming message. Single writer.
func (rb *RingBuffer) Write(msg *MediaMessage) bool {
	if msg == nil {
		return false
	}

	writePos := atomic.LoadUint32(&rb.writePos)
	readPos := atomic.LoadUint32(&rb.readPos)

	// Unsigned subtraction keeps the fullness check valid after wrap.
	if writePos-readPos >= rb.size {
		atomic.AddUint64(&rb.dropped, 1)
		if rb.strategy == BackpressureDropOldest {
			atomic.AddUint32(&rb.readPos, 1)
		} else {
			return false
		}
	}

	rb.buffer[writePos&rb.mask] = msg
	atomic.StoreUint32(&rb.writePos, writePos+1)
	return true
}

// Read takes the oldest buffered message, reporting false when empty.
// Single reader.
func (rb *RingBuffer) Read() (*MediaMessage, bool) {
	readPos := atomic.LoadUint32(&rb.readPos)
	writePos := atomic.LoadUint32(&rb.writePos)

	if readPos == writePos {
		return nil, false
	}

	msg := rb.buffer[readPos&rb.mask]
	atomic.AddUint32(&rb.readPos, 1)
	return msg, true
}

// Dropped returns how many messages were lost to backpressure.
func (rb *RingBuffer) Dropped() uint64 {
	return atomic.LoadUint64(&rb.dropped)
}

// Available returns the number of free slots.
func (rb *RingBuffer) Available() uint32 {
	writePos := atomic.LoadUint32(&rb.writePos)
	readPos := atomic.LoadUint32(&rb.readPos)
	return rb.size - (writePos - readPos)
}
