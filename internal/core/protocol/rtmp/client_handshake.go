package rtmp

import "io"

// PerformClientHandshake runs the client side of the plain handshake:
// send C0/C1, read S0/S1/S2, send C2. C2 echoes S1. Relay tasks use this
// when dialing a remote server.
func PerformClientHandshake(conn io.ReadWriter) error {
	c1, err := newHandshakeBlock()
	if err != nil {
		return err
	}
	out := make([]byte, 0, 1+HandshakeBlockSize)
	out = append(out, RTMPVersion)
	out = append(out, c1...)
	if _, err := conn.Write(out); err != nil {
		return err
	}

	var s0 [1]byte
	if _, err := io.ReadFull(conn, s0[:]); err != nil {
		return err
	}
	if s0[0] != RTMPVersion {
		return ErrInvalidVersion
	}

	s1 := make([]byte, HandshakeBlockSize)
	if _, err := io.ReadFull(conn, s1); err != nil {
		return err
	}
	s2 := make([]byte, HandshakeBlockSize)
	if _, err := io.ReadFull(conn, s2); err != nil {
		return err
	}

	_, err = conn.Write(s1)
	return err
}
