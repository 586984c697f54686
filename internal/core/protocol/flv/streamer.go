package flv

import (
	"context"

	"weir/internal/core/bus"
)

// FrameWriter receives the FLV byte stream piece by piece: the intro
// (file header plus the leading previous-tag-size), then one complete tag
// per call. HTTP egress appends pieces to the response body; WebSocket
// egress sends each piece as one binary frame.
type FrameWriter interface {
	WriteFrame(data []byte) error
}

// Streamer turns one live subscription into FLV output. Frames before the
// first video keyframe are dropped so players start on decodable data, and
// timestamps are rebased to zero so a late joiner does not buffer the gap
// between the cached configuration and the live position.
type Streamer struct {
	w FrameWriter

	awaitKeyframe bool
	tsOffset      uint32
	tsBaseSet     bool
}

// NewStreamer wraps a frame writer.
func NewStreamer(w FrameWriter) *Streamer {
	return &Streamer{w: w}
}

// Run writes the whole session: intro, the stream's cached configuration,
// then the subscription until ctx ends, the subscriber is detached, or a
// write fails. Keyframe gating only applies when the stream carries video;
// an audio-only stream would otherwise never start.
func (s *Streamer) Run(ctx context.Context, stream *bus.Stream, sub *bus.Subscriber) error {
	s.awaitKeyframe = stream.HasVideo()

	if err := s.writeIntro(stream.HasAudio(), stream.HasVideo()); err != nil {
		return err
	}
	for _, msg := range stream.InitMessages() {
		err := s.writeMessage(msg)
		bus.ReleaseMessage(msg)
		if err != nil {
			return err
		}
	}

	for {
		for {
			msg, ok := sub.Buffer().Read()
			if !ok {
				break
			}
			err := s.writeMessage(msg)
			bus.ReleaseMessage(msg)
			if err != nil {
				return err
			}
		}
		if !sub.Wait(ctx) {
			return nil
		}
	}
}

// writeIntro emits the file header and the zero previous-tag-size that
// precedes the first tag, as one piece.
func (s *Streamer) writeIntro(hasAudio, hasVideo bool) error {
	header := NewHeader(hasAudio, hasVideo).Bytes()
	intro := make([]byte, len(header)+4)
	copy(intro, header)
	return s.w.WriteFrame(intro)
}

// writeMessage muxes one message into a tag and emits it. Gated or
// uncarriable messages are skipped. The caller keeps ownership of msg.
func (s *Streamer) writeMessage(msg *bus.MediaMessage) error {
	if s.gated(msg) {
		return nil
	}
	tag := MuxMessage(msg)
	if tag == nil {
		return nil
	}
	tag.Timestamp = s.rebase(msg)
	return s.w.WriteFrame(tag.Bytes())
}

// gated reports whether the message falls before the first video keyframe.
// Decoder configuration and script data pass regardless, so the client
// still gets metadata and codec headers up front.
func (s *Streamer) gated(msg *bus.MediaMessage) bool {
	if !s.awaitKeyframe || msg.IsInit || msg.Type == bus.MessageTypeMetadata {
		return false
	}
	if msg.Type == bus.MessageTypeVideo && IsVideoKeyframe(msg.Payload) {
		s.awaitKeyframe = false
		return false
	}
	return true
}

// rebase maps a timestamp into the subscriber's own timeline. The first
// live audio or video frame sets the base; configuration and script data
// never do. Timestamps behind the base clamp to zero, a stream restart
// may legitimately jump backwards.
func (s *Streamer) rebase(msg *bus.MediaMessage) uint32 {
	if msg.IsInit {
		return 0
	}
	if msg.Type != bus.MessageTypeMetadata && !s.tsBaseSet {
		s.tsOffset = msg.Timestamp
		s.tsBaseSet = true
	}
	if !s.tsBaseSet || msg.Timestamp < s.tsOffset {
		return 0
	}
	return msg.Timestamp - s.tsOffset
}
