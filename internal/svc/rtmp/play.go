package rtmp

import (
	"context"

	"github.com/sirupsen/logrus"

	"weir/internal/core/bus"
	rtmpproto "weir/internal/core/protocol/rtmp"
)

// Player streams one bus subscription back out over the session. It runs
// its own writer goroutine; the session keeps reading commands meanwhile.
type Player struct {
	session  *rtmpproto.Session
	stream   *bus.Stream
	sub      *bus.Subscriber
	subID    uint64
	streamID uint32
	log      *logrus.Entry

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPlayer attaches a subscriber to the stream. streamID is the message
// stream the peer played on; outgoing media carries it.
func NewPlayer(session *rtmpproto.Session, stream *bus.Stream, streamID uint32, buffer uint32, log *logrus.Entry) *Player {
	sub, subID := stream.AttachSubscriber(buffer, bus.BackpressureDropOldest)
	return &Player{
		session:  session,
		stream:   stream,
		sub:      sub,
		subID:    subID,
		streamID: streamID,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start launches the writer loop.
func (p *Player) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.run(ctx)
}

// run replays the cached configuration, then drains the subscription until
// it ends or a write fails.
func (p *Player) run(ctx context.Context) {
	defer close(p.done)

	for _, msg := range p.stream.InitMessages() {
		err := p.write(msg)
		bus.ReleaseMessage(msg)
		if err != nil {
			p.log.WithError(err).Debug("init replay write failed")
			return
		}
	}

	for {
		for {
			msg, ok := p.sub.Buffer().Read()
			if !ok {
				break
			}
			err := p.write(msg)
			bus.ReleaseMessage(msg)
			if err != nil {
				p.log.WithError(err).Debug("play write failed")
				return
			}
		}
		if !p.sub.Wait(ctx) {
			return
		}
	}
}

func (p *Player) write(msg *bus.MediaMessage) error {
	switch msg.Type {
	case bus.MessageTypeAudio:
		return p.session.WriteRaw(rtmpproto.ChunkStreamAudio, msg.Timestamp, rtmpproto.MessageTypeAudio, p.streamID, msg.Payload)
	case bus.MessageTypeVideo:
		return p.session.WriteRaw(rtmpproto.ChunkStreamVideo, msg.Timestamp, rtmpproto.MessageTypeVideo, p.streamID, msg.Payload)
	case bus.MessageTypeMetadata:
		return p.session.WriteRaw(rtmpproto.ChunkStreamStreamCommand, msg.Timestamp, rtmpproto.MessageTypeDataAMF0, p.streamID, msg.Payload)
	default:
		return nil
	}
}

// Stop ends the writer loop, detaches the subscription, and reports how
// many messages the peer was too slow for.
func (p *Player) Stop() uint64 {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
	dropped := p.sub.Dropped()
	p.stream.DetachSubscriber(p.subID)
	return dropped
}

// Key returns the played stream's key.
func (p *Player) Key() bus.StreamKey {
	return p.stream.Key()
}
