package rtmp

import (
	"io"

	"github.com/sirupsen/logrus"

	"weir/internal/config"
	"weir/internal/core/bus"
	rtmpproto "weir/internal/core/protocol/rtmp"
	"weir/internal/metrics"
)

// ServiceSession drives one connection after the handshake: the command
// exchange, then publishing into or playing from the bus.
type ServiceSession struct {
	*rtmpproto.Session
	registry *bus.Registry
	metrics  *metrics.Metrics
	cfg      *config.Config
	log      *logrus.Entry

	app          string
	streamName   string
	nextStreamID uint32
	publisher    *Publisher
	player       *Player
}

// NewServiceSession wraps an already handshaken connection. A nil logger
// falls back to the standard one.
func NewServiceSession(conn io.ReadWriter, registry *bus.Registry, m *metrics.Metrics, cfg *config.Config, log *logrus.Entry) *ServiceSession {
	if log == nil {
		log = logrus.WithField("svc", "rtmp")
	}
	return &ServiceSession{
		Session:      rtmpproto.NewSession(conn),
		registry:     registry,
		metrics:      m,
		cfg:          cfg,
		log:          log,
		nextStreamID: 1,
	}
}

// Serve reads and dispatches messages until the connection fails or a
// handler reports a fatal error.
func (s *ServiceSession) Serve() error {
	for {
		raw, msg, err := s.ReadMessage()
		if err != nil {
			return err
		}
		if err := s.handle(raw, msg); err != nil {
			return err
		}
	}
}

func (s *ServiceSession) handle(raw *rtmpproto.RawMessage, msg rtmpproto.Message) error {
	switch m := msg.(type) {
	case *rtmpproto.SetChunkSize:
		// Already applied to the reader.
		s.log.WithField("size", m.Size).Debug("peer chunk size")

	case *rtmpproto.Abort, *rtmpproto.Acknowledgement, *rtmpproto.WindowAcknowledgementSize:
		// Applied inside the protocol session.

	case *rtmpproto.SetPeerBandwidth:
		s.log.WithField("size", m.Size).Debug("peer bandwidth request")

	case *rtmpproto.UserControl:
		if m.Event == rtmpproto.ControlPingRequest {
			return s.WriteMessage(rtmpproto.ChunkStreamProtocolControl, 0, 0, &rtmpproto.UserControl{
				Event:     rtmpproto.ControlPingResponse,
				Timestamp: m.Timestamp,
			})
		}

	case *rtmpproto.Amf0Command:
		return s.handleCommand(raw, m)

	case *rtmpproto.Amf0Data:
		s.handleData(raw, m)

	case *rtmpproto.AudioData:
		s.metrics.RecordMessage("audio", len(m.Payload))
		if s.publisher != nil {
			s.publisher.Audio(raw.Timestamp, m.Payload)
		}

	case *rtmpproto.VideoData:
		s.metrics.RecordMessage("video", len(m.Payload))
		if s.publisher != nil {
			s.publisher.Video(raw.Timestamp, m.Payload)
		}

	case *rtmpproto.Unknown:
		s.log.WithField("type", m.MessageTypeID).Debug("unhandled message type")
	}
	return nil
}

// handleData routes script data. Metadata announcements update the stream
// cache; anything else from a publisher is forwarded untranslated.
func (s *ServiceSession) handleData(raw *rtmpproto.RawMessage, m *rtmpproto.Amf0Data) {
	s.metrics.RecordMessage("data", len(raw.Body))
	if s.publisher == nil {
		return
	}

	switch m.DataName() {
	case "onMetaData", "@setDataFrame":
		s.handleMetadata(raw.Timestamp, m)
	default:
		s.publisher.Data(raw.Timestamp, raw.Body)
	}
}

// handleMetadata translates an onMetaData payload into typed fields and
// republishes it normalized: known keys only, numeric kinds settled.
func (s *ServiceSession) handleMetadata(timestamp uint32, m *rtmpproto.Amf0Data) {
	meta, payload, ok := rtmpproto.NormalizeOnMetaData(m)
	if !ok {
		s.log.Warn("metadata carried no object")
		return
	}
	s.log.WithFields(metadataLogFields(meta)).Info("stream metadata")
	s.publisher.Metadata(timestamp, payload)
}

func metadataLogFields(meta rtmpproto.StreamMetadata) logrus.Fields {
	fields := logrus.Fields{}
	if meta.VideoWidth != nil {
		fields["width"] = *meta.VideoWidth
	}
	if meta.VideoHeight != nil {
		fields["height"] = *meta.VideoHeight
	}
	if meta.VideoCodecID != nil {
		fields["video_codec"] = *meta.VideoCodecID
	}
	if meta.VideoFrameRate != nil {
		fields["fps"] = *meta.VideoFrameRate
	}
	if meta.VideoBitrateKbps != nil {
		fields["video_kbps"] = *meta.VideoBitrateKbps
	}
	if meta.AudioCodecID != nil {
		fields["audio_codec"] = *meta.AudioCodecID
	}
	if meta.AudioBitrateKbps != nil {
		fields["audio_kbps"] = *meta.AudioBitrateKbps
	}
	if meta.AudioSampleRate != nil {
		fields["sample_rate"] = *meta.AudioSampleRate
	}
	if meta.AudioChannels != nil {
		fields["channels"] = *meta.AudioChannels
	}
	if meta.AudioIsStereo != nil {
		fields["stereo"] = *meta.AudioIsStereo
	}
	if meta.Encoder != nil {
		fields["encoder"] = *meta.Encoder
	}
	return fields
}

// stopPublishing detaches the bus publisher, if any, and prunes the stream
// when nobody else holds it.
func (s *ServiceSession) stopPublishing() {
	if s.publisher == nil {
		return
	}
	key := s.publisher.Key()
	s.publisher.Detach()
	s.publisher = nil
	s.metrics.RecordPublishStop()
	s.registry.RemoveIfEmpty(key)
	s.log.WithField("stream", key.String()).Info("publish stopped")
}

// stopPlaying detaches the bus subscriber, if any.
func (s *ServiceSession) stopPlaying() {
	if s.player == nil {
		return
	}
	key := s.player.Key()
	dropped := s.player.Stop()
	s.player = nil
	s.metrics.RecordSubscriberStop(dropped)
	s.registry.RemoveIfEmpty(key)
	s.log.WithField("stream", key.String()).Info("play stopped")
}

// Close tears down both roles and the connection.
func (s *ServiceSession) Close() {
	s.stopPublishing()
	s.stopPlaying()
	s.Session.Close()
}
