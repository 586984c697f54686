package bus

import (
	"fmt"
)

// StreamKey identifies a stream by application and stream name. It is
// comparable and used directly as a map key.
type StreamKey struct {
	App  string
	Name string
}

// String renders the key as "app/name".
func (k StreamKey) String() string {
	return fmt.Sprintf("%s/%s", k.App, k.Name)
}

// NewStreamKey builds a StreamKey from app and name.
func NewStreamKey(app, name string) StreamKey {
	return StreamKey{App: app, Name: name}
}
