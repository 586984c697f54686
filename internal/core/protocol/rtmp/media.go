package rtmp

// AudioData carries an opaque audio payload. The codec does not interpret
// it; payload slices alias the data handed in, in both directions.
type AudioData struct {
	Payload []byte
}

func (m *AudioData) TypeID() uint8 { return MessageTypeAudio }

func (m *AudioData) MarshalBinary() ([]byte, error) {
	return m.Payload, nil
}

func (m *AudioData) UnmarshalBinary(data []byte) error {
	m.Payload = data
	return nil
}

// VideoData carries an opaque video payload.
type VideoData struct {
	Payload []byte
}

func (m *VideoData) TypeID() uint8 { return MessageTypeVideo }

func (m *VideoData) MarshalBinary() ([]byte, error) {
	return m.Payload, nil
}

func (m *VideoData) UnmarshalBinary(data []byte) error {
	m.Payload = data
	return nil
}
