package rtmp

// OutstandingTransaction records why a session issued a request, so the
// asynchronous reply can be routed to the right follow-up. One variant per
// request kind; consumption sites switch exhaustively.
type OutstandingTransaction interface {
	outstandingTransaction()
}

// ConnectionRequested marks a pending connect. On success AppName becomes
// the connection's active application context.
type ConnectionRequested struct {
	AppName string
}

// CreateStream marks a pending createStream. Purpose is immutable once
// recorded and is consumed exactly once, when the stream id arrives.
type CreateStream struct {
	Purpose TransactionPurpose
}

func (ConnectionRequested) outstandingTransaction() {}
func (CreateStream) outstandingTransaction()        {}

// TransactionPurpose says what a stream requested via createStream will be
// used for once its id is known.
type TransactionPurpose interface {
	transactionPurpose()
}

// PlayRequest plays the given stream key on the new stream.
type PlayRequest struct {
	StreamKey string
}

// PublishRequest publishes to the given stream key on the new stream.
type PublishRequest struct {
	StreamKey string
	Type      PublishType
}

func (PlayRequest) transactionPurpose()    {}
func (PublishRequest) transactionPurpose() {}

// PublishType is the publish mode sent with a publish command.
type PublishType string

// Publish modes
const (
	PublishTypeLive   PublishType = "live"
	PublishTypeRecord PublishType = "record"
	PublishTypeAppend PublishType = "append"
)

// TransactionLedger tracks the outstanding transactions of one session
// direction. It is owned by a single session goroutine and deliberately
// carries no locking: a process with many connections runs one ledger per
// connection, never shared.
type TransactionLedger struct {
	pending map[uint32]OutstandingTransaction
}

// NewTransactionLedger creates an empty ledger.
func NewTransactionLedger() *TransactionLedger {
	return &TransactionLedger{
		pending: make(map[uint32]OutstandingTransaction),
	}
}

// Register records an outstanding transaction under a caller-chosen id.
// Registering an id that is already pending silently overwrites the old
// entry: ids are caller-controlled and reuse after completion is legal, so
// a collision is a caller defect the ledger does not arbitrate.
func (l *TransactionLedger) Register(id uint32, tx OutstandingTransaction) {
	l.pending[id] = tx
}

// Take removes and returns the entry for id. A reply with no matching
// entry means the peer answered something never asked, or answered twice;
// that surfaces as UnknownTransactionError rather than being swallowed.
func (l *TransactionLedger) Take(id uint32) (OutstandingTransaction, error) {
	tx, ok := l.pending[id]
	if !ok {
		return nil, &UnknownTransactionError{TransactionID: id}
	}
	delete(l.pending, id)
	return tx, nil
}

// Pending returns the number of transactions still awaiting replies.
func (l *TransactionLedger) Pending() int {
	return len(l.pending)
}
