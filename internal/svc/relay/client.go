package relay

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"weir/internal/core/protocol/amf0"
	rtmpproto "weir/internal/core/protocol/rtmp"
)

// Remote is a parsed rtmp:// URL: the dial address, the application, and
// the stream name on the far side.
type Remote struct {
	Addr string
	App  string
	Name string
}

// ParseRemote splits an rtmp:// URL. The port defaults to 1935, the last
// path segment is the stream name, and everything between host and name
// is the application.
func ParseRemote(raw string) (Remote, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Remote{}, fmt.Errorf("remote url: %w", err)
	}
	if u.Scheme != "rtmp" {
		return Remote{}, fmt.Errorf("remote url %q: scheme must be rtmp", raw)
	}
	if u.Hostname() == "" {
		return Remote{}, fmt.Errorf("remote url %q: missing host", raw)
	}
	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), "1935")
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[len(parts)-1] == "" {
		return Remote{}, fmt.Errorf("remote url %q: path must be /app/name", raw)
	}
	return Remote{
		Addr: addr,
		App:  strings.Join(parts[:len(parts)-1], "/"),
		Name: parts[len(parts)-1],
	}, nil
}

// TCURL reconstructs the tcUrl advertised in connect.
func (r Remote) TCURL() string {
	return fmt.Sprintf("rtmp://%s/%s", r.Addr, r.App)
}

// ClientSession drives the client half of the command exchange on an
// already handshaken connection: connect, createStream, then the play or
// publish its purpose calls for. Every request is recorded in the ledger;
// each reply consumes its entry and decides the next step.
type ClientSession struct {
	*rtmpproto.Session
	ledger  *rtmpproto.TransactionLedger
	purpose rtmpproto.TransactionPurpose
	remote  Remote
	log     *logrus.Entry

	nextTxID uint32
	streamID uint32
	ready    chan struct{}
	once     sync.Once
	onMedia  func(*rtmpproto.RawMessage, rtmpproto.Message)
}

// NewClientSession wraps a connection whose handshake already completed.
func NewClientSession(conn io.ReadWriter, remote Remote, purpose rtmpproto.TransactionPurpose, log *logrus.Entry) *ClientSession {
	if log == nil {
		log = logrus.WithField("svc", "relay")
	}
	return &ClientSession{
		Session: rtmpproto.NewSession(conn),
		ledger:  rtmpproto.NewTransactionLedger(),
		purpose: purpose,
		remote:  remote,
		log:     log,
		ready:   make(chan struct{}),
	}
}

// OnMedia registers the sink for audio, video, and script messages. Pull
// tasks use it to feed the local bus.
func (c *ClientSession) OnMedia(fn func(*rtmpproto.RawMessage, rtmpproto.Message)) {
	c.onMedia = fn
}

// Ready is closed once the remote accepts the play or publish request.
func (c *ClientSession) Ready() <-chan struct{} {
	return c.ready
}

// StreamID is the message stream id granted by createStream. Valid once
// Ready has closed.
func (c *ClientSession) StreamID() uint32 {
	return c.streamID
}

func (c *ClientSession) takeTxID() uint32 {
	c.nextTxID++
	return c.nextTxID
}

// Begin raises the outgoing chunk size and sends connect. The reply chain
// continues inside Serve.
func (c *ClientSession) Begin() error {
	err := c.WriteMessage(rtmpproto.ChunkStreamProtocolControl, 0, 0, &rtmpproto.SetChunkSize{
		Size: rtmpproto.DefaultOutChunkSize,
	})
	if err != nil {
		return err
	}

	txid := c.takeTxID()
	c.ledger.Register(txid, rtmpproto.ConnectionRequested{AppName: c.remote.App})
	return c.WriteCommand(&rtmpproto.Amf0Command{
		Name:          "connect",
		TransactionID: float64(txid),
		CommandObject: amf0.Object{
			"app":      c.remote.App,
			"flashVer": "FMLE/3.0 (compatible; weir)",
			"tcUrl":    c.remote.TCURL(),
		},
	})
}

// Serve reads replies and media until the connection ends. A reply with
// no ledger entry and a rejection both end the session with an error.
func (c *ClientSession) Serve() error {
	for {
		raw, msg, err := c.ReadMessage()
		if err != nil {
			return err
		}
		if err := c.handle(raw, msg); err != nil {
			return err
		}
	}
}

func (c *ClientSession) handle(raw *rtmpproto.RawMessage, msg rtmpproto.Message) error {
	switch m := msg.(type) {
	case *rtmpproto.Amf0Command:
		return c.handleCommand(m)

	case *rtmpproto.UserControl:
		if m.Event == rtmpproto.ControlPingRequest {
			return c.WriteMessage(rtmpproto.ChunkStreamProtocolControl, 0, 0, &rtmpproto.UserControl{
				Event:     rtmpproto.ControlPingResponse,
				Timestamp: m.Timestamp,
			})
		}

	case *rtmpproto.SetChunkSize, *rtmpproto.Abort, *rtmpproto.Acknowledgement,
		*rtmpproto.WindowAcknowledgementSize, *rtmpproto.SetPeerBandwidth:
		// Applied inside the protocol session.

	case *rtmpproto.AudioData, *rtmpproto.VideoData, *rtmpproto.Amf0Data:
		if c.onMedia != nil {
			c.onMedia(raw, msg)
		}
	}
	return nil
}

func (c *ClientSession) handleCommand(cmd *rtmpproto.Amf0Command) error {
	switch cmd.Name {
	case "_result":
		return c.handleResult(cmd)
	case "_error":
		return c.handleError(cmd)
	case "onStatus":
		return c.handleStatus(cmd)
	default:
		c.log.WithField("command", cmd.Name).Debug("ignoring remote command")
	}
	return nil
}

// handleResult consumes the ledger entry for a reply and takes the next
// step the recorded intent calls for.
func (c *ClientSession) handleResult(cmd *rtmpproto.Amf0Command) error {
	tx, err := c.ledger.Take(uint32(cmd.TransactionID))
	if err != nil {
		return err
	}

	switch tx := tx.(type) {
	case rtmpproto.ConnectionRequested:
		c.log.WithField("app", tx.AppName).Debug("connected")
		return c.requestStream()

	case rtmpproto.CreateStream:
		streamID, ok := firstNumberArg(cmd)
		if !ok {
			return fmt.Errorf("createStream result carried no stream id")
		}
		c.streamID = uint32(streamID)
		return c.openStream(tx.Purpose)

	default:
		return fmt.Errorf("no follow-up for transaction %T", tx)
	}
}

// handleError consumes the entry so a rejection cannot also leave a
// dangling transaction, then reports it.
func (c *ClientSession) handleError(cmd *rtmpproto.Amf0Command) error {
	tx, err := c.ledger.Take(uint32(cmd.TransactionID))
	if err != nil {
		return err
	}
	return fmt.Errorf("remote rejected %T: %s", tx, statusDescription(cmd))
}

func (c *ClientSession) handleStatus(cmd *rtmpproto.Amf0Command) error {
	code := statusCode(cmd)
	switch code {
	case "NetStream.Play.Start", "NetStream.Publish.Start":
		c.log.WithField("code", code).Debug("stream open")
		c.once.Do(func() { close(c.ready) })
	case "NetStream.Play.Reset":
		// Sent before Play.Start; carries nothing actionable.
	default:
		if statusLevel(cmd) == "error" {
			return fmt.Errorf("remote status %s: %s", code, statusDescription(cmd))
		}
		c.log.WithField("code", code).Debug("remote status")
	}
	return nil
}

// requestStream issues createStream under a fresh transaction id carrying
// the session's purpose.
func (c *ClientSession) requestStream() error {
	txid := c.takeTxID()
	c.ledger.Register(txid, rtmpproto.CreateStream{Purpose: c.purpose})
	return c.WriteCommand(&rtmpproto.Amf0Command{
		Name:          "createStream",
		TransactionID: float64(txid),
	})
}

// openStream sends the play or publish the purpose calls for on the
// granted stream id. The remote answers with onStatus, not _result, so
// nothing is registered.
func (c *ClientSession) openStream(purpose rtmpproto.TransactionPurpose) error {
	switch p := purpose.(type) {
	case rtmpproto.PlayRequest:
		return c.WriteStreamCommand(&rtmpproto.Amf0Command{
			Name:           "play",
			AdditionalArgs: []amf0.Value{p.StreamKey},
		}, c.streamID)

	case rtmpproto.PublishRequest:
		return c.WriteStreamCommand(&rtmpproto.Amf0Command{
			Name:           "publish",
			AdditionalArgs: []amf0.Value{p.StreamKey, string(p.Type)},
		}, c.streamID)

	default:
		return fmt.Errorf("no follow-up for purpose %T", purpose)
	}
}

func statusObject(cmd *rtmpproto.Amf0Command) amf0.Object {
	for _, v := range cmd.AdditionalArgs {
		if obj, ok := amf0.ObjectValue(v); ok {
			return obj
		}
	}
	return nil
}

func statusField(cmd *rtmpproto.Amf0Command, key string) string {
	obj := statusObject(cmd)
	if obj == nil {
		return ""
	}
	s, _ := amf0.StringValue(obj[key])
	return s
}

func statusCode(cmd *rtmpproto.Amf0Command) string { return statusField(cmd, "code") }

func statusLevel(cmd *rtmpproto.Amf0Command) string { return statusField(cmd, "level") }

func statusDescription(cmd *rtmpproto.Amf0Command) string {
	if d := statusField(cmd, "description"); d != "" {
		return d
	}
	if code := statusCode(cmd); code != "" {
		return code
	}
	return "no reason given"
}

func firstNumberArg(cmd *rtmpproto.Amf0Command) (float64, bool) {
	for _, v := range cmd.AdditionalArgs {
		if n, ok := amf0.NumberValue(v); ok {
			return n, true
		}
	}
	return 0, false
}
