package rtmp

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"time"
)

// newHandshakeBlock builds one 1536-byte handshake block: a 4-byte time,
// four zero bytes, then random fill.
func newHandshakeBlock() ([]byte, error) {
	block := make([]byte, HandshakeBlockSize)
	binary.BigEndian.PutUint32(block[0:4], uint32(time.Now().Unix()))
	if _, err := rand.Read(block[8:]); err != nil {
		return nil, err
	}
	return block, nil
}

// PerformServerHandshake runs the server side of the plain handshake:
// read C0/C1, send S0/S1/S2, read C2. S2 echoes C1 so the peer can verify
// the exchange.
func PerformServerHandshake(conn io.ReadWriter) error {
	var c0 [1]byte
	if _, err := io.ReadFull(conn, c0[:]); err != nil {
		return err
	}
	if c0[0] != RTMPVersion {
		return ErrInvalidVersion
	}

	c1 := make([]byte, HandshakeBlockSize)
	if _, err := io.ReadFull(conn, c1); err != nil {
		return err
	}

	s1, err := newHandshakeBlock()
	if err != nil {
		return err
	}
	out := make([]byte, 0, 1+2*HandshakeBlockSize)
	out = append(out, RTMPVersion)
	out = append(out, s1...)
	out = append(out, c1...)
	if _, err := conn.Write(out); err != nil {
		return err
	}

	c2 := make([]byte, HandshakeBlockSize)
	_, err = io.ReadFull(conn, c2)
	return err
}
