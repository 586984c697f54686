// Package rtmp implements the RTMP protocol core: typed message codec,
// chunk framing, handshake, per-connection sessions, the outstanding
// transaction ledger, and stream metadata translation.
package rtmp

// RTMP version exchanged in C0/S0
const RTMPVersion = 3

// Handshake block sizes. C1/C2/S1/S2 are all the same fixed-size block.
const (
	HandshakeBlockSize  = 1536
	HandshakeRandomSize = HandshakeBlockSize - 8 // after 4-byte time + 4-byte zero
)

// Chunk sizes
const (
	DefaultChunkSize = 128
	MaxChunkSize     = 0xFFFFFF
)

// Defaults announced by a session during connection setup
const (
	DefaultWindowAckSize = 2500000
	DefaultOutChunkSize  = 4096
)

// Message type ids
const (
	MessageTypeSetChunkSize     = 1
	MessageTypeAbort            = 2
	MessageTypeAcknowledgement  = 3
	MessageTypeUserControl      = 4
	MessageTypeWindowAckSize    = 5
	MessageTypeSetPeerBandwidth = 6
	MessageTypeAudio            = 8
	MessageTypeVideo            = 9
	MessageTypeDataAMF3         = 15
	MessageTypeSharedObjectAMF3 = 16
	MessageTypeCommandAMF3      = 17
	MessageTypeDataAMF0         = 18
	MessageTypeSharedObjectAMF0 = 19
	MessageTypeCommandAMF0      = 20
	MessageTypeAggregate        = 22
)

// Chunk basic header format types
const (
	ChunkFmt0 = 0 // 11-byte message header
	ChunkFmt1 = 1 // 7-byte message header
	ChunkFmt2 = 2 // 3-byte message header
	ChunkFmt3 = 3 // no message header
)

// Chunk stream id conventions. Protocol control always travels on 2;
// connection-level commands on 3; stream-level commands and data on 5;
// media on 6 and 7.
const (
	ChunkStreamProtocolControl = 2
	ChunkStreamCommand         = 3
	ChunkStreamStreamCommand   = 5
	ChunkStreamAudio           = 6
	ChunkStreamVideo           = 7
)

// UserControlEvent identifies a user control message event type.
type UserControlEvent uint16

// User control event types
const (
	ControlStreamBegin      UserControlEvent = 0
	ControlStreamEOF        UserControlEvent = 1
	ControlStreamDry        UserControlEvent = 2
	ControlSetBufferLength  UserControlEvent = 3
	ControlStreamIsRecorded UserControlEvent = 4
	ControlPingRequest      UserControlEvent = 6
	ControlPingResponse     UserControlEvent = 7
)

// LimitType classifies a SetPeerBandwidth request.
type LimitType uint8

// Peer bandwidth limit types
const (
	LimitHard    LimitType = 0
	LimitSoft    LimitType = 1
	LimitDynamic LimitType = 2
)
