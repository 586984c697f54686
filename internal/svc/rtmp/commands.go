package rtmp

import (
	"fmt"

	"weir/internal/core/bus"
	"weir/internal/core/protocol/amf0"
	rtmpproto "weir/internal/core/protocol/rtmp"
)

func (s *ServiceSession) handleCommand(raw *rtmpproto.RawMessage, cmd *rtmpproto.Amf0Command) error {
	s.log.WithField("command", cmd.Name).Debug("command received")

	switch cmd.Name {
	case "connect":
		return s.handleConnect(cmd)
	case "releaseStream", "FCPublish":
		// FFmpeg and OBS send these before createStream. A bare _result
		// keeps them moving.
		return s.replyResult(cmd)
	case "createStream":
		return s.handleCreateStream(cmd)
	case "publish":
		return s.handlePublish(raw, cmd)
	case "play":
		return s.handlePlay(raw, cmd)
	case "FCUnpublish":
		s.stopPublishing()
		return nil
	case "deleteStream", "closeStream":
		s.stopPublishing()
		s.stopPlaying()
		return nil
	default:
		s.log.WithField("command", cmd.Name).Debug("unhandled command")
		return nil
	}
}

// handleConnect stores the application context, sends the control burst,
// and acknowledges the connection.
func (s *ServiceSession) handleConnect(cmd *rtmpproto.Amf0Command) error {
	app := "live"
	if obj, ok := amf0.ObjectValue(cmd.CommandObject); ok {
		if v, ok := amf0.StringValue(obj["app"]); ok && v != "" {
			app = v
		}
	}
	s.app = app
	s.log = s.log.WithField("app", app)

	const ctl = rtmpproto.ChunkStreamProtocolControl
	if err := s.WriteMessage(ctl, 0, 0, &rtmpproto.WindowAcknowledgementSize{Size: s.cfg.RTMP.WindowAckSize}); err != nil {
		return err
	}
	if err := s.WriteMessage(ctl, 0, 0, &rtmpproto.SetPeerBandwidth{Size: s.cfg.RTMP.WindowAckSize, Limit: rtmpproto.LimitDynamic}); err != nil {
		return err
	}
	if err := s.WriteMessage(ctl, 0, 0, &rtmpproto.SetChunkSize{Size: s.cfg.RTMP.ChunkSize}); err != nil {
		return err
	}

	return s.WriteCommand(&rtmpproto.Amf0Command{
		Name:          "_result",
		TransactionID: cmd.TransactionID,
		CommandObject: amf0.Object{
			"fmsVer":       "FMS/3,0,1,123",
			"capabilities": float64(31),
		},
		AdditionalArgs: []amf0.Value{amf0.Object{
			"level":          "status",
			"code":           "NetConnection.Connect.Success",
			"description":    "Connection succeeded.",
			"objectEncoding": float64(0),
		}},
	})
}

// handleCreateStream allocates a message stream id and returns it.
func (s *ServiceSession) handleCreateStream(cmd *rtmpproto.Amf0Command) error {
	streamID := s.nextStreamID
	s.nextStreamID++

	return s.WriteCommand(&rtmpproto.Amf0Command{
		Name:           "_result",
		TransactionID:  cmd.TransactionID,
		CommandObject:  nil,
		AdditionalArgs: []amf0.Value{float64(streamID)},
	})
}

// handlePublish claims the stream for this session and starts forwarding
// media into the bus. A second publisher on the same key is refused and the
// connection ends.
func (s *ServiceSession) handlePublish(raw *rtmpproto.RawMessage, cmd *rtmpproto.Amf0Command) error {
	name := firstStringArg(cmd)
	if name == "" {
		return fmt.Errorf("publish without a stream name")
	}
	if s.app == "" {
		return fmt.Errorf("publish before connect")
	}

	key := bus.NewStreamKey(s.app, name)
	stream, _ := s.registry.GetOrCreate(key)

	publisher, ok := NewPublisher(stream)
	if !ok {
		if err := s.writeStatus(raw.StreamID, "error", "NetStream.Publish.BadName", "Stream already publishing"); err != nil {
			return err
		}
		return fmt.Errorf("stream %s already has a publisher", key)
	}
	s.publisher = publisher
	s.streamName = name
	s.log = s.log.WithField("stream", key.String())
	s.metrics.RecordPublishStart()

	if err := s.WriteMessage(rtmpproto.ChunkStreamProtocolControl, 0, 0, &rtmpproto.UserControl{
		Event:    rtmpproto.ControlStreamBegin,
		StreamID: raw.StreamID,
	}); err != nil {
		return err
	}

	s.log.Info("publish started")
	return s.writeStatus(raw.StreamID, "status", "NetStream.Publish.Start", "Start publishing")
}

// handlePlay attaches a subscriber and starts the writer loop. The stream
// is created if it does not exist yet, so players may wait for a publisher.
func (s *ServiceSession) handlePlay(raw *rtmpproto.RawMessage, cmd *rtmpproto.Amf0Command) error {
	name := firstStringArg(cmd)
	if name == "" {
		return fmt.Errorf("play without a stream name")
	}
	if s.app == "" {
		return fmt.Errorf("play before connect")
	}
	if s.player != nil {
		return s.writeStatus(raw.StreamID, "error", "NetStream.Play.Failed", "Already playing")
	}

	key := bus.NewStreamKey(s.app, name)
	stream, _ := s.registry.GetOrCreate(key)

	if err := s.WriteMessage(rtmpproto.ChunkStreamProtocolControl, 0, 0, &rtmpproto.UserControl{
		Event:    rtmpproto.ControlStreamBegin,
		StreamID: raw.StreamID,
	}); err != nil {
		return err
	}
	if err := s.writeStatus(raw.StreamID, "status", "NetStream.Play.Reset", "Playing and resetting stream"); err != nil {
		return err
	}
	if err := s.writeStatus(raw.StreamID, "status", "NetStream.Play.Start", "Started playing stream"); err != nil {
		return err
	}
	sampleAccess := &rtmpproto.Amf0Data{Values: []amf0.Value{"|RtmpSampleAccess", false, false}}
	if err := s.WriteMessage(rtmpproto.ChunkStreamStreamCommand, 0, raw.StreamID, sampleAccess); err != nil {
		return err
	}

	s.player = NewPlayer(s.Session, stream, raw.StreamID, s.cfg.Bus.SubscriberBuffer, s.log)
	s.streamName = name
	s.log = s.log.WithField("stream", key.String())
	s.metrics.RecordSubscriberStart()
	s.player.Start()

	s.log.Info("play started")
	return nil
}

// replyResult acknowledges a command nobody needs data back from.
func (s *ServiceSession) replyResult(cmd *rtmpproto.Amf0Command) error {
	return s.WriteCommand(&rtmpproto.Amf0Command{
		Name:          "_result",
		TransactionID: cmd.TransactionID,
	})
}

// writeStatus sends an onStatus notification scoped to a message stream.
func (s *ServiceSession) writeStatus(streamID uint32, level, code, description string) error {
	return s.WriteStreamCommand(&rtmpproto.Amf0Command{
		Name:          "onStatus",
		TransactionID: 0,
		AdditionalArgs: []amf0.Value{amf0.Object{
			"level":       level,
			"code":        code,
			"description": description,
		}},
	}, streamID)
}

// firstStringArg returns the first string in a command's trailing
// arguments. publish and play both carry the stream name there.
func firstStringArg(cmd *rtmpproto.Amf0Command) string {
	for _, arg := range cmd.AdditionalArgs {
		if name, ok := amf0.StringValue(arg); ok {
			return name
		}
	}
	return ""
}
