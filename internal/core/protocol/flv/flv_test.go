package flv

import (
	"bytes"
	"testing"

	"weir/internal/core/bus"
)

func TestHeaderBytes(t *testing.T) {
	h := NewHeader(true, true).Bytes()
	want := []byte{'F', 'L', 'V', 0x01, 0x05, 0x00, 0x00, 0x00, 0x09}
	if !bytes.Equal(h, want) {
		t.Errorf("got % X, want % X", h, want)
	}

	h = NewHeader(false, true).Bytes()
	if h[4] != 0x01 {
		t.Errorf("video-only flags = 0x%02X", h[4])
	}
	h = NewHeader(true, false).Bytes()
	if h[4] != 0x04 {
		t.Errorf("audio-only flags = 0x%02X", h[4])
	}
}

func TestTagBytes(t *testing.T) {
	data := []byte{0xAA, 0xBB, 0xCC}
	tag := NewTag(TagTypeVideo, 0x01020304, data)
	b := tag.Bytes()

	if len(b) != 11+3+4 {
		t.Fatalf("length %d", len(b))
	}
	if b[0] != TagTypeVideo {
		t.Errorf("type %d", b[0])
	}
	if b[1] != 0 || b[2] != 0 || b[3] != 3 {
		t.Errorf("data size % X", b[1:4])
	}
	// Lower 24 bits then the extension byte.
	if b[4] != 0x02 || b[5] != 0x03 || b[6] != 0x04 || b[7] != 0x01 {
		t.Errorf("timestamp % X", b[4:8])
	}
	if b[8] != 0 || b[9] != 0 || b[10] != 0 {
		t.Errorf("stream id % X", b[8:11])
	}
	if !bytes.Equal(b[11:14], data) {
		t.Errorf("payload % X", b[11:14])
	}
	if b[14] != 0 || b[15] != 0 || b[16] != 0 || b[17] != 14 {
		t.Errorf("previous tag size % X", b[14:18])
	}
}

func TestMuxMessage(t *testing.T) {
	msg := bus.AcquireMessage()
	defer bus.ReleaseMessage(msg)
	msg.Type = bus.MessageTypeAudio
	msg.Timestamp = 40
	msg.SetPayload([]byte{0xAF, 0x01})

	tag := MuxMessage(msg)
	if tag == nil || tag.Type != TagTypeAudio || tag.Timestamp != 40 {
		t.Fatalf("tag %+v", tag)
	}

	msg.Type = bus.MessageTypeVideo
	if tag := MuxMessage(msg); tag == nil || tag.Type != TagTypeVideo {
		t.Fatalf("video tag %+v", tag)
	}

	msg.Type = bus.MessageTypeMetadata
	if tag := MuxMessage(msg); tag == nil || tag.Type != TagTypeScript {
		t.Fatalf("script tag %+v", tag)
	}

	if MuxAudio(msg) != nil {
		t.Error("MuxAudio accepted a metadata message")
	}
}

func TestPayloadClassifiers(t *testing.T) {
	avcSeq := []byte{0x17, 0x00, 0x00, 0x00, 0x00}
	avcFrame := []byte{0x17, 0x01, 0x00, 0x00, 0x00}
	interFrame := []byte{0x27, 0x01, 0x00, 0x00, 0x00}
	aacSeq := []byte{0xAF, 0x00, 0x12, 0x10}
	aacRaw := []byte{0xAF, 0x01, 0x21}

	if !IsVideoKeyframe(avcSeq) || !IsVideoKeyframe(avcFrame) {
		t.Error("keyframes not recognized")
	}
	if IsVideoKeyframe(interFrame) {
		t.Error("inter frame classified as keyframe")
	}

	if !IsVideoSequenceHeader(avcSeq) {
		t.Error("AVC sequence header not recognized")
	}
	if IsVideoSequenceHeader(avcFrame) || IsVideoSequenceHeader(interFrame) {
		t.Error("non-config video classified as sequence header")
	}

	if !IsAudioSequenceHeader(aacSeq) {
		t.Error("AAC sequence header not recognized")
	}
	if IsAudioSequenceHeader(aacRaw) {
		t.Error("raw AAC classified as sequence header")
	}

	if IsVideoSequenceHeader(nil) || IsAudioSequenceHeader([]byte{0xAF}) {
		t.Error("short payloads classified as sequence headers")
	}
}
