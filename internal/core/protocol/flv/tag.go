package flv

import (
	"encoding/binary"
)

// Tag is one FLV tag: audio, video, or script data.
type Tag struct {
	Type      byte
	Timestamp uint32
	Data      []byte
}

// NewTag builds a tag around an existing payload slice.
func NewTag(tagType byte, timestamp uint32, data []byte) *Tag {
	return &Tag{
		Type:      tagType,
		Timestamp: timestamp,
		Data:      data,
	}
}

// Bytes encodes the complete tag: 11-byte tag header, payload, and the
// trailing previous-tag-size field.
func (t *Tag) Bytes() []byte {
	dataSize := uint32(len(t.Data))
	result := make([]byte, 11+len(t.Data)+4)

	result[0] = t.Type
	result[1] = byte(dataSize >> 16)
	result[2] = byte(dataSize >> 8)
	result[3] = byte(dataSize)

	// Timestamp splits into a lower 24-bit field and an extension byte.
	result[4] = byte(t.Timestamp >> 16)
	result[5] = byte(t.Timestamp >> 8)
	result[6] = byte(t.Timestamp)
	result[7] = byte(t.Timestamp >> 24)

	// Stream id, always zero.
	result[8] = 0
	result[9] = 0
	result[10] = 0

	copy(result[11:], t.Data)

	binary.BigEndian.PutUint32(result[11+len(t.Data):], 11+dataSize)
	return result
}
