package rtmp

import (
	"io"
	"sync"
)

// Session wraps one connection with chunked, typed message IO plus the
// window-acknowledgement bookkeeping both roles share. Reads belong to a
// single goroutine; writes may come from several and are serialized.
type Session struct {
	conn    io.ReadWriter
	counter *countingReader
	reader  *ChunkReader
	writer  *ChunkWriter

	wmu sync.Mutex

	windowAckSize uint32 // cadence requested by the peer
	lastAcked     uint32
}

// NewSession wraps an already handshaken connection.
func NewSession(conn io.ReadWriter) *Session {
	counter := &countingReader{r: conn}
	return &Session{
		conn:    conn,
		counter: counter,
		reader:  NewChunkReader(counter),
		writer:  NewChunkWriter(conn),
	}
}

// ReadMessage returns the next complete message, decoded. Protocol control
// side effects (chunk size, abort, ack window) are applied before it
// returns. The raw frame accompanies the decoded message so callers keep
// the timestamp and message stream id.
func (s *Session) ReadMessage() (*RawMessage, Message, error) {
	raw, err := s.reader.ReadMessage()
	if err != nil {
		return nil, nil, err
	}
	msg, err := Decode(raw.TypeID, raw.Body)
	if err != nil {
		return raw, nil, err
	}

	switch m := msg.(type) {
	case *SetChunkSize:
		s.reader.SetChunkSize(m.Size)
	case *Abort:
		s.reader.Discard(m.StreamID)
	case *WindowAcknowledgementSize:
		s.windowAckSize = m.Size
	}

	if err := s.maybeAcknowledge(); err != nil {
		return raw, msg, err
	}
	return raw, msg, nil
}

// maybeAcknowledge reports received bytes once a window worth has arrived
// since the last report.
func (s *Session) maybeAcknowledge() error {
	if s.windowAckSize == 0 {
		return nil
	}
	received := s.counter.total()
	// Sequence numbers restart well before uint32 wraparound.
	if received >= 0xf0000000 {
		s.counter.reset()
		s.lastAcked = 0
		return nil
	}
	if received-s.lastAcked < s.windowAckSize {
		return nil
	}
	s.lastAcked = received
	return s.WriteMessage(ChunkStreamProtocolControl, 0, 0, &Acknowledgement{SequenceNumber: received})
}

// WriteMessage marshals and chunks one message. A SetChunkSize is written
// at the old size and takes effect for everything after it.
func (s *Session) WriteMessage(csid, timestamp, streamID uint32, msg Message) error {
	body, err := msg.MarshalBinary()
	if err != nil {
		return err
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if err := s.writer.WriteMessage(csid, timestamp, msg.TypeID(), streamID, body); err != nil {
		return err
	}
	if sc, ok := msg.(*SetChunkSize); ok {
		s.writer.SetChunkSize(sc.Size)
	}
	return nil
}

// WriteRaw chunks an already encoded message body. The hot path for
// forwarding media: payloads pass through without a decode/encode round.
func (s *Session) WriteRaw(csid, timestamp uint32, typeID uint8, streamID uint32, body []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.writer.WriteMessage(csid, timestamp, typeID, streamID, body)
}

// WriteCommand sends a command on the connection control stream.
func (s *Session) WriteCommand(cmd *Amf0Command) error {
	return s.WriteMessage(ChunkStreamCommand, 0, 0, cmd)
}

// WriteStreamCommand sends a command scoped to a message stream, as
// publish and play are.
func (s *Session) WriteStreamCommand(cmd *Amf0Command, streamID uint32) error {
	return s.WriteMessage(ChunkStreamStreamCommand, 0, streamID, cmd)
}

// Close closes the underlying connection when it supports closing.
func (s *Session) Close() error {
	if closer, ok := s.conn.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// countingReader tracks total bytes read for acknowledgement reporting.
type countingReader struct {
	r io.Reader
	n uint32
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += uint32(n)
	return n, err
}

func (c *countingReader) total() uint32 { return c.n }

func (c *countingReader) reset() { c.n = 0 }
