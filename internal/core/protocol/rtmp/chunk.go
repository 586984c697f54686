package rtmp

import (
	"bufio"
	"encoding/binary"
	"io"
)

// RawMessage is one fully reassembled protocol message together with the
// chunk header fields that framed it.
type RawMessage struct {
	ChunkStreamID uint32
	Timestamp     uint32
	TypeID        uint8
	StreamID      uint32
	Body          []byte
}

// chunkState is the per-chunk-stream reassembly state. Compressed headers
// (fmt 1-3) reuse whatever fields the previous header on the same chunk
// stream established.
type chunkState struct {
	timestamp      uint32
	timestampDelta uint32
	length         uint32
	typeID         uint8
	streamID       uint32
	extended       bool   // last header carried an extended timestamp
	extValue       uint32 // the exact value of that extended field
	lastFmt        uint8  // format of the last fmt 0-2 header
	primed         bool   // a full header has been seen on this chunk stream
	body           []byte
	received       uint32
	active         bool // message mid-reassembly
}

// ChunkReader reads chunks from a connection and reassembles complete
// messages, keeping one state per chunk stream id so interleaved messages
// come apart cleanly.
type ChunkReader struct {
	br        *bufio.Reader
	chunkSize uint32
	streams   map[uint32]*chunkState
}

// NewChunkReader creates a reader starting at the protocol default chunk
// size.
func NewChunkReader(r io.Reader) *ChunkReader {
	return &ChunkReader{
		br:        bufio.NewReader(r),
		chunkSize: DefaultChunkSize,
		streams:   make(map[uint32]*chunkState),
	}
}

// SetChunkSize applies a SetChunkSize announcement from the peer.
func (cr *ChunkReader) SetChunkSize(size uint32) {
	if size > 0 && size <= MaxChunkSize {
		cr.chunkSize = size
	}
}

// Discard drops any partially assembled message on the given chunk stream.
// Header fields survive so compressed headers keep decoding afterwards.
func (cr *ChunkReader) Discard(csid uint32) {
	if st, ok := cr.streams[csid]; ok {
		st.body = nil
		st.received = 0
		st.active = false
	}
}

// ReadMessage reads chunks until one message is fully reassembled.
func (cr *ChunkReader) ReadMessage() (*RawMessage, error) {
	for {
		msg, err := cr.readChunk()
		if err != nil {
			return nil, err
		}
		if msg != nil {
			return msg, nil
		}
	}
}

// readChunk consumes one chunk and returns a message when it completes one.
func (cr *ChunkReader) readChunk() (*RawMessage, error) {
	fmtType, csid, err := cr.readBasicHeader()
	if err != nil {
		return nil, err
	}

	st, ok := cr.streams[csid]
	if !ok {
		st = &chunkState{}
		cr.streams[csid] = st
	}

	if st.active {
		// Continuation of a message in progress: only fmt 3 is legal.
		if fmtType != ChunkFmt3 {
			return nil, ErrInvalidChunkHeader
		}
		if st.extended {
			if err := cr.dropEchoedExtendedTimestamp(st); err != nil {
				return nil, err
			}
		}
	} else {
		if err := cr.readMessageHeader(st, fmtType); err != nil {
			return nil, err
		}
		st.active = true
		st.received = 0
		st.body = make([]byte, 0, st.length)
	}

	n := cr.chunkSize
	if st.received+n > st.length {
		n = st.length - st.received
	}
	if n > 0 {
		start := len(st.body)
		st.body = st.body[:start+int(n)]
		if _, err := io.ReadFull(cr.br, st.body[start:]); err != nil {
			return nil, err
		}
		st.received += n
	}

	if st.received < st.length {
		return nil, nil
	}

	msg := &RawMessage{
		ChunkStreamID: csid,
		Timestamp:     st.timestamp,
		TypeID:        st.typeID,
		StreamID:      st.streamID,
		Body:          st.body,
	}
	st.body = nil
	st.active = false
	return msg, nil
}

// readBasicHeader reads the 1-3 byte basic header. csid 0 and 1 select the
// extended encodings: one extra byte (64-319) or two, low byte first
// (64-65599).
func (cr *ChunkReader) readBasicHeader() (uint8, uint32, error) {
	b, err := cr.br.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	fmtType := b >> 6
	csid := uint32(b & 0x3F)
	switch csid {
	case 0:
		b2, err := cr.br.ReadByte()
		if err != nil {
			return 0, 0, err
		}
		csid = 64 + uint32(b2)
	case 1:
		b2, err := cr.br.ReadByte()
		if err != nil {
			return 0, 0, err
		}
		b3, err := cr.br.ReadByte()
		if err != nil {
			return 0, 0, err
		}
		csid = 64 + uint32(b2) + 256*uint32(b3)
	}
	return fmtType, csid, nil
}

// readMessageHeader reads the message header that starts a new message on
// this chunk stream.
func (cr *ChunkReader) readMessageHeader(st *chunkState, fmtType uint8) error {
	switch fmtType {
	case ChunkFmt0:
		var h [11]byte
		if _, err := io.ReadFull(cr.br, h[:]); err != nil {
			return err
		}
		ts := uint24(h[0:3])
		st.length = uint24(h[3:6])
		st.typeID = h[6]
		// Message stream id is the one little-endian field in the protocol.
		st.streamID = binary.LittleEndian.Uint32(h[7:11])
		st.timestampDelta = 0
		st.extended = ts == 0xFFFFFF
		if st.extended {
			ext, err := cr.readUint32()
			if err != nil {
				return err
			}
			st.extValue = ext
			ts = ext
		}
		st.timestamp = ts

	case ChunkFmt1:
		var h [7]byte
		if _, err := io.ReadFull(cr.br, h[:]); err != nil {
			return err
		}
		delta := uint24(h[0:3])
		st.length = uint24(h[3:6])
		st.typeID = h[6]
		st.extended = delta == 0xFFFFFF
		if st.extended {
			ext, err := cr.readUint32()
			if err != nil {
				return err
			}
			st.extValue = ext
			delta = ext
		}
		st.timestampDelta = delta
		st.timestamp += delta

	case ChunkFmt2:
		var h [3]byte
		if _, err := io.ReadFull(cr.br, h[:]); err != nil {
			return err
		}
		delta := uint24(h[:])
		st.extended = delta == 0xFFFFFF
		if st.extended {
			ext, err := cr.readUint32()
			if err != nil {
				return err
			}
			st.extValue = ext
			delta = ext
		}
		st.timestampDelta = delta
		st.timestamp += delta

	case ChunkFmt3:
		// A new message that repeats the previous header wholesale.
		if !st.primed {
			return ErrInvalidChunkHeader
		}
		if st.extended {
			ext, err := cr.readUint32()
			if err != nil {
				return err
			}
			st.extValue = ext
			if st.lastFmt == ChunkFmt0 {
				st.timestamp = ext
			} else {
				st.timestampDelta = ext
				st.timestamp += ext
			}
		} else {
			st.timestamp += st.timestampDelta
		}
	}

	if fmtType != ChunkFmt3 {
		st.lastFmt = fmtType
	}
	st.primed = true
	return nil
}

// dropEchoedExtendedTimestamp consumes the 4-byte extended timestamp some
// encoders repeat on every continuation chunk. Others omit it, so the echo
// is only consumed when it matches the value from the message header.
func (cr *ChunkReader) dropEchoedExtendedTimestamp(st *chunkState) error {
	b, err := cr.br.Peek(4)
	if err != nil || len(b) < 4 {
		return nil
	}
	if binary.BigEndian.Uint32(b) == st.extValue {
		if _, err := cr.br.Discard(4); err != nil {
			return err
		}
	}
	return nil
}

func (cr *ChunkReader) readUint32() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(cr.br, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// ChunkWriter frames messages into chunks at the negotiated outbound size.
type ChunkWriter struct {
	w         io.Writer
	chunkSize uint32
}

// NewChunkWriter creates a writer starting at the protocol default chunk
// size.
func NewChunkWriter(w io.Writer) *ChunkWriter {
	return &ChunkWriter{w: w, chunkSize: DefaultChunkSize}
}

// SetChunkSize changes the outbound chunk size. Callers announce the new
// size to the peer before switching.
func (cw *ChunkWriter) SetChunkSize(size uint32) {
	if size > 0 && size <= MaxChunkSize {
		cw.chunkSize = size
	}
}

// WriteMessage writes one message as an fmt 0 chunk followed by fmt 3
// continuations. Extended timestamps are echoed on every continuation so
// readers expecting the echo stay aligned.
func (cw *ChunkWriter) WriteMessage(csid, timestamp uint32, typeID uint8, streamID uint32, body []byte) error {
	extended := timestamp >= 0xFFFFFF

	if err := cw.writeBasicHeader(ChunkFmt0, csid); err != nil {
		return err
	}
	var h [11]byte
	ts := timestamp
	if extended {
		ts = 0xFFFFFF
	}
	putUint24(h[0:3], ts)
	putUint24(h[3:6], uint32(len(body)))
	h[6] = typeID
	binary.LittleEndian.PutUint32(h[7:11], streamID)
	if _, err := cw.w.Write(h[:]); err != nil {
		return err
	}
	if extended {
		if err := cw.writeUint32(timestamp); err != nil {
			return err
		}
	}

	total := uint32(len(body))
	offset := cw.chunkSize
	if offset > total {
		offset = total
	}
	if _, err := cw.w.Write(body[:offset]); err != nil {
		return err
	}
	for offset < total {
		if err := cw.writeBasicHeader(ChunkFmt3, csid); err != nil {
			return err
		}
		if extended {
			if err := cw.writeUint32(timestamp); err != nil {
				return err
			}
		}
		n := cw.chunkSize
		if offset+n > total {
			n = total - offset
		}
		if _, err := cw.w.Write(body[offset : offset+n]); err != nil {
			return err
		}
		offset += n
	}

	if flusher, ok := cw.w.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}

// writeBasicHeader writes the shortest basic header encoding for csid.
// Ids 0 and 1 are reserved for the extended encodings and cannot be used
// as chunk stream ids themselves.
func (cw *ChunkWriter) writeBasicHeader(fmtType uint8, csid uint32) error {
	switch {
	case csid < 2 || csid > 65599:
		return ErrInvalidChunkHeader
	case csid < 64:
		_, err := cw.w.Write([]byte{fmtType<<6 | byte(csid)})
		return err
	case csid < 320:
		_, err := cw.w.Write([]byte{fmtType << 6, byte(csid - 64)})
		return err
	default:
		v := csid - 64
		_, err := cw.w.Write([]byte{fmtType<<6 | 1, byte(v), byte(v >> 8)})
		return err
	}
}

func (cw *ChunkWriter) writeUint32(v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := cw.w.Write(b[:])
	return err
}

func uint24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

func putUint24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}
