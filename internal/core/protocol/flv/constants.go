// Package flv builds FLV byte streams from bus media messages. Payloads
// pass through untouched; only the container framing is produced here.
package flv

// File signature and layout
const (
	FLVSignature         = "FLV"
	FLVVersion           = 1
	FLVHeaderSize        = 9
	FirstPreviousTagSize = 0
)

// Tag types
const (
	TagTypeAudio  = 8
	TagTypeVideo  = 9
	TagTypeScript = 18
)

// Audio formats (high nibble of the first payload byte)
const (
	AudioFormatAAC = 10
)

// Video codecs (low nibble of the first payload byte)
const (
	VideoCodecAVC = 7
)

// Video frame types (high nibble of the first payload byte)
const (
	VideoFrameKeyFrame   = 1
	VideoFrameInterFrame = 2
)

// AVC packet types (second payload byte)
const (
	AVCPacketTypeSequenceHeader = 0
	AVCPacketTypeNALU           = 1
)

// AAC packet types (second payload byte)
const (
	AACPacketTypeSequenceHeader = 0
	AACPacketTypeRaw            = 1
)

// IsVideoKeyframe reports whether an FLV video payload is a keyframe.
func IsVideoKeyframe(payload []byte) bool {
	return len(payload) >= 1 && payload[0]>>4 == VideoFrameKeyFrame
}

// IsVideoSequenceHeader reports whether an FLV video payload carries the
// AVC decoder configuration record.
func IsVideoSequenceHeader(payload []byte) bool {
	return len(payload) >= 2 &&
		payload[0]>>4 == VideoFrameKeyFrame &&
		payload[0]&0x0F == VideoCodecAVC &&
		payload[1] == AVCPacketTypeSequenceHeader
}

// IsAudioSequenceHeader reports whether an FLV audio payload carries the
// AAC audio specific config.
func IsAudioSequenceHeader(payload []byte) bool {
	return len(payload) >= 2 &&
		payload[0]>>4 == AudioFormatAAC &&
		payload[1] == AACPacketTypeSequenceHeader
}
