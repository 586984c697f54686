package flv

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"weir/internal/core/bus"
)

type frameRecorder struct {
	frames [][]byte
	err    error
}

func (r *frameRecorder) WriteFrame(data []byte) error {
	if r.err != nil {
		return r.err
	}
	r.frames = append(r.frames, append([]byte(nil), data...))
	return nil
}

func tagTimestamp(tag []byte) uint32 {
	return uint32(tag[4])<<16 | uint32(tag[5])<<8 | uint32(tag[6]) | uint32(tag[7])<<24
}

// runStreamer publishes msgs into a fresh subscription, then runs the
// streamer over the buffered backlog. Detaching first closes the
// subscriber, so Run drains and returns instead of blocking.
func runStreamer(t *testing.T, stream *bus.Stream, rec *frameRecorder, publish func()) error {
	t.Helper()
	sub, id := stream.AttachSubscriber(16, bus.BackpressureDropOldest)
	publish()
	stream.DetachSubscriber(id)
	return NewStreamer(rec).Run(context.Background(), stream, sub)
}

func publishFrame(stream *bus.Stream, msgType bus.MessageType, timestamp uint32, payload []byte) {
	msg := bus.AcquireMessage()
	msg.Type = msgType
	msg.Timestamp = timestamp
	msg.SetPayload(payload)
	stream.Publish(msg)
}

func TestStreamerGatesUntilKeyframe(t *testing.T) {
	stream := bus.NewStream(bus.NewStreamKey("live", "feed"))
	stream.SetVideoInit([]byte{0x17, 0x00, 0x00, 0x00, 0x00, 0x01})

	rec := &frameRecorder{}
	err := runStreamer(t, stream, rec, func() {
		publishFrame(stream, bus.MessageTypeAudio, 100, []byte{0xAF, 0x01, 0x11})
		publishFrame(stream, bus.MessageTypeVideo, 110, []byte{0x27, 0x01, 0x22})
		publishFrame(stream, bus.MessageTypeVideo, 120, []byte{0x17, 0x01, 0x33})
		publishFrame(stream, bus.MessageTypeAudio, 130, []byte{0xAF, 0x01, 0x44})
		publishFrame(stream, bus.MessageTypeVideo, 60, []byte{0x27, 0x01, 0x55})
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// Intro, cached video init, then only the frames past the gate.
	if len(rec.frames) != 5 {
		t.Fatalf("got %d frames, want 5", len(rec.frames))
	}

	intro := rec.frames[0]
	if len(intro) != FLVHeaderSize+4 {
		t.Fatalf("intro length %d", len(intro))
	}
	if intro[4] != 0x01 {
		t.Errorf("intro flags = 0x%02X, want video only", intro[4])
	}
	if !bytes.Equal(intro[FLVHeaderSize:], []byte{0, 0, 0, 0}) {
		t.Errorf("first previous tag size = % X", intro[FLVHeaderSize:])
	}

	init := rec.frames[1]
	if init[0] != TagTypeVideo || tagTimestamp(init) != 0 {
		t.Errorf("init tag type=%d ts=%d", init[0], tagTimestamp(init))
	}

	keyframe := rec.frames[2]
	if keyframe[0] != TagTypeVideo || !bytes.Equal(keyframe[11:14], []byte{0x17, 0x01, 0x33}) {
		t.Fatalf("frame after gate is % X, want the keyframe", keyframe)
	}
	if tagTimestamp(keyframe) != 0 {
		t.Errorf("keyframe ts = %d, want 0", tagTimestamp(keyframe))
	}

	audio := rec.frames[3]
	if audio[0] != TagTypeAudio || tagTimestamp(audio) != 10 {
		t.Errorf("audio tag type=%d ts=%d, want rebased 10", audio[0], tagTimestamp(audio))
	}

	// 60 is behind the base of 120 and clamps instead of wrapping.
	late := rec.frames[4]
	if tagTimestamp(late) != 0 {
		t.Errorf("pre-base ts = %d, want clamped 0", tagTimestamp(late))
	}
}

func TestStreamerAudioOnlyStartsImmediately(t *testing.T) {
	stream := bus.NewStream(bus.NewStreamKey("live", "radio"))
	stream.SetAudioInit([]byte{0xAF, 0x00, 0x12})

	rec := &frameRecorder{}
	err := runStreamer(t, stream, rec, func() {
		publishFrame(stream, bus.MessageTypeAudio, 500, []byte{0xAF, 0x01, 0x99})
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(rec.frames) != 3 {
		t.Fatalf("got %d frames, want intro, init, audio", len(rec.frames))
	}
	if rec.frames[0][4] != 0x04 {
		t.Errorf("intro flags = 0x%02X, want audio only", rec.frames[0][4])
	}
	live := rec.frames[2]
	if live[0] != TagTypeAudio || tagTimestamp(live) != 0 {
		t.Errorf("audio tag type=%d ts=%d", live[0], tagTimestamp(live))
	}
}

func TestStreamerMetadataPassesGate(t *testing.T) {
	stream := bus.NewStream(bus.NewStreamKey("live", "feed"))
	stream.SetMetadata([]byte{0x02, 0x00, 0x0A})
	stream.SetVideoInit([]byte{0x17, 0x00, 0x00, 0x00, 0x00, 0x01})

	rec := &frameRecorder{}
	err := runStreamer(t, stream, rec, func() {
		publishFrame(stream, bus.MessageTypeAudio, 880, []byte{0xAF, 0x01, 0x11})
		publishFrame(stream, bus.MessageTypeVideo, 900, []byte{0x17, 0x01, 0x33})
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(rec.frames) != 4 {
		t.Fatalf("got %d frames, want intro, metadata, init, keyframe", len(rec.frames))
	}
	meta := rec.frames[1]
	if meta[0] != TagTypeScript || tagTimestamp(meta) != 0 {
		t.Errorf("metadata tag type=%d ts=%d", meta[0], tagTimestamp(meta))
	}
	// Replayed metadata must not claim the timestamp base; the keyframe
	// still rebases to zero.
	keyframe := rec.frames[3]
	if keyframe[0] != TagTypeVideo || tagTimestamp(keyframe) != 0 {
		t.Errorf("keyframe tag type=%d ts=%d", keyframe[0], tagTimestamp(keyframe))
	}
}

func TestStreamerStopsOnWriteError(t *testing.T) {
	stream := bus.NewStream(bus.NewStreamKey("live", "feed"))

	rec := &frameRecorder{err: errors.New("sink closed")}
	err := runStreamer(t, stream, rec, func() {})
	if err == nil || !errors.Is(err, rec.err) {
		t.Fatalf("err = %v, want the sink error", err)
	}
	if len(rec.frames) != 0 {
		t.Errorf("wrote %d frames after failure", len(rec.frames))
	}
}
