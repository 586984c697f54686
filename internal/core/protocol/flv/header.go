package flv

// Header is the 9-byte FLV file header, written once at stream start.
type Header struct {
	HasAudio bool
	HasVideo bool
}

// NewHeader creates a header with the given track flags.
func NewHeader(hasAudio, hasVideo bool) *Header {
	return &Header{
		HasAudio: hasAudio,
		HasVideo: hasVideo,
	}
}

// Bytes encodes the header: signature, version, track flags, and the data
// offset pointing past the header and the first previous-tag-size field.
func (h *Header) Bytes() []byte {
	header := make([]byte, FLVHeaderSize)
	copy(header[0:3], FLVSignature)
	header[3] = FLVVersion

	flags := byte(0)
	if h.HasAudio {
		flags |= 0x04
	}
	if h.HasVideo {
		flags |= 0x01
	}
	header[4] = flags

	offset := uint32(FLVHeaderSize)
	header[5] = byte(offset >> 24)
	header[6] = byte(offset >> 16)
	header[7] = byte(offset >> 8)
	header[8] = byte(offset)

	return header
}
