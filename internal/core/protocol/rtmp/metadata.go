package rtmp

import (
	"weir/internal/core/protocol/amf0"
)

// StreamMetadata is the structured form of the properties a publisher
// advertises in onMetaData. Every field is independently optional; nil
// means "not advertised", never zero.
type StreamMetadata struct {
	VideoWidth       *uint32
	VideoHeight      *uint32
	VideoCodecID     *float64
	VideoFrameRate   *float32
	VideoBitrateKbps *uint32
	AudioCodecID     *float64
	AudioBitrateKbps *uint32
	AudioSampleRate  *uint32
	AudioChannels    *uint32
	AudioIsStereo    *bool
	Encoder          *string
}

// metadataField binds one property key to its set-if-well-typed extraction
// and its emit-if-present reverse. Adding a field is one table row.
type metadataField struct {
	key   string
	apply func(*StreamMetadata, amf0.Value)
	emit  func(*StreamMetadata) (amf0.Value, bool)
}

var metadataFields = []metadataField{
	{
		key:   "width",
		apply: func(m *StreamMetadata, v amf0.Value) { setUint32(&m.VideoWidth, v) },
		emit:  func(m *StreamMetadata) (amf0.Value, bool) { return emitUint32(m.VideoWidth) },
	},
	{
		key:   "height",
		apply: func(m *StreamMetadata, v amf0.Value) { setUint32(&m.VideoHeight, v) },
		emit:  func(m *StreamMetadata) (amf0.Value, bool) { return emitUint32(m.VideoHeight) },
	},
	{
		key:   "videocodecid",
		apply: func(m *StreamMetadata, v amf0.Value) { setFloat64(&m.VideoCodecID, v) },
		emit:  func(m *StreamMetadata) (amf0.Value, bool) { return emitFloat64(m.VideoCodecID) },
	},
	{
		key:   "videodatarate",
		apply: func(m *StreamMetadata, v amf0.Value) { setUint32(&m.VideoBitrateKbps, v) },
		emit:  func(m *StreamMetadata) (amf0.Value, bool) { return emitUint32(m.VideoBitrateKbps) },
	},
	{
		key:   "framerate",
		apply: func(m *StreamMetadata, v amf0.Value) { setFloat32(&m.VideoFrameRate, v) },
		emit:  func(m *StreamMetadata) (amf0.Value, bool) { return emitFloat32(m.VideoFrameRate) },
	},
	{
		key:   "audiocodecid",
		apply: func(m *StreamMetadata, v amf0.Value) { setFloat64(&m.AudioCodecID, v) },
		emit:  func(m *StreamMetadata) (amf0.Value, bool) { return emitFloat64(m.AudioCodecID) },
	},
	{
		key:   "audiodatarate",
		apply: func(m *StreamMetadata, v amf0.Value) { setUint32(&m.AudioBitrateKbps, v) },
		emit:  func(m *StreamMetadata) (amf0.Value, bool) { return emitUint32(m.AudioBitrateKbps) },
	},
	{
		key:   "audiosamplerate",
		apply: func(m *StreamMetadata, v amf0.Value) { setUint32(&m.AudioSampleRate, v) },
		emit:  func(m *StreamMetadata) (amf0.Value, bool) { return emitUint32(m.AudioSampleRate) },
	},
	{
		key:   "audiochannels",
		apply: func(m *StreamMetadata, v amf0.Value) { setUint32(&m.AudioChannels, v) },
		emit:  func(m *StreamMetadata) (amf0.Value, bool) { return emitUint32(m.AudioChannels) },
	},
	{
		key:   "stereo",
		apply: func(m *StreamMetadata, v amf0.Value) { setBool(&m.AudioIsStereo, v) },
		emit:  func(m *StreamMetadata) (amf0.Value, bool) { return emitBool(m.AudioIsStereo) },
	},
	{
		key:   "encoder",
		apply: func(m *StreamMetadata, v amf0.Value) { setString(&m.Encoder, v) },
		emit:  func(m *StreamMetadata) (amf0.Value, bool) { return emitString(m.Encoder) },
	},
}

// MetadataFromObject builds a StreamMetadata from a generic property map.
// Unrecognized keys are ignored; a recognized key whose value has the wrong
// kind leaves the field absent. Never fails: advertised metadata is
// best-effort, vendor-varying data, so a malformed property must not abort
// parsing of the rest.
func MetadataFromObject(obj amf0.Object) StreamMetadata {
	var m StreamMetadata
	m.Apply(obj)
	return m
}

// Apply sets every recognized, correctly typed property of obj on m,
// leaving all other fields untouched.
func (m *StreamMetadata) Apply(obj amf0.Object) {
	for _, f := range metadataFields {
		if v, ok := obj[f.key]; ok {
			f.apply(m, v)
		}
	}
}

// ToObject emits one entry per present field, integral values widened back
// to the generic float64 number. Absent fields emit no entry; the wire
// representation of "unknown" is key absence, never a null placeholder.
func (m StreamMetadata) ToObject() amf0.Object {
	obj := make(amf0.Object)
	for _, f := range metadataFields {
		if v, ok := f.emit(&m); ok {
			obj[f.key] = v
		}
	}
	return obj
}

// NormalizeOnMetaData digs the property object out of an onMetaData or
// @setDataFrame value sequence, translates it, and re-encodes a canonical
// onMetaData payload: known keys only, numeric kinds settled, wrapper
// names dropped. Clients differ on how many values precede the object;
// the first one found wins. ok is false when there is none.
func NormalizeOnMetaData(m *Amf0Data) (meta StreamMetadata, payload []byte, ok bool) {
	var obj amf0.Object
	if len(m.Values) > 1 {
		for _, v := range m.Values[1:] {
			if o, found := amf0.ObjectValue(v); found {
				obj = o
				break
			}
		}
	}
	if obj == nil {
		return StreamMetadata{}, nil, false
	}

	meta = MetadataFromObject(obj)
	out := &Amf0Data{Values: []amf0.Value{"onMetaData", meta.ToObject()}}
	payload, err := out.MarshalBinary()
	if err != nil {
		return StreamMetadata{}, nil, false
	}
	return meta, payload, true
}

func setUint32(dst **uint32, v amf0.Value) {
	if n, ok := amf0.NumberValue(v); ok {
		u := uint32(n)
		*dst = &u
	}
}

func setFloat64(dst **float64, v amf0.Value) {
	if n, ok := amf0.NumberValue(v); ok {
		f := n
		*dst = &f
	}
}

func setFloat32(dst **float32, v amf0.Value) {
	if n, ok := amf0.NumberValue(v); ok {
		f := float32(n)
		*dst = &f
	}
}

func setBool(dst **bool, v amf0.Value) {
	if b, ok := amf0.BooleanValue(v); ok {
		val := b
		*dst = &val
	}
}

func setString(dst **string, v amf0.Value) {
	if s, ok := amf0.StringValue(v); ok {
		val := s
		*dst = &val
	}
}

func emitUint32(p *uint32) (amf0.Value, bool) {
	if p == nil {
		return nil, false
	}
	return float64(*p), true
}

func emitFloat64(p *float64) (amf0.Value, bool) {
	if p == nil {
		return nil, false
	}
	return *p, true
}

func emitFloat32(p *float32) (amf0.Value, bool) {
	if p == nil {
		return nil, false
	}
	return float64(*p), true
}

func emitBool(p *bool) (amf0.Value, bool) {
	if p == nil {
		return nil, false
	}
	return *p, true
}

func emitString(p *string) (amf0.Value, bool) {
	if p == nil {
		return nil, false
	}
	return *p, true
}
