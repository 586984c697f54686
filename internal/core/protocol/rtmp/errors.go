package rtmp

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidChunkHeader = errors.New("invalid chunk header")
	ErrInvalidVersion     = errors.New("invalid RTMP version")
)

// DeserializationError reports a message body that cannot be decoded:
// truncated input or an invalid discriminant value. Recoverable; the
// session owner decides whether to drop the message or the connection.
type DeserializationError struct {
	TypeID uint8
	Reason string
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("rtmp: cannot decode message type %d: %s", e.TypeID, e.Reason)
}

// SerializationError wraps a failure while producing a message body.
// Fixed-layout variants cannot hit it; AMF0-carrying variants can, when
// handed a Go value the encoding has no representation for.
type SerializationError struct {
	TypeID uint8
	Err    error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("rtmp: cannot encode message type %d: %v", e.TypeID, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// UnknownTransactionError reports a reply whose transaction id has no
// registered entry: the peer answered something never asked, or twice.
type UnknownTransactionError struct {
	TransactionID uint32
}

func (e *UnknownTransactionError) Error() string {
	return fmt.Sprintf("rtmp: no outstanding transaction with id %d", e.TransactionID)
}
