package relay

import (
	"context"
	"fmt"

	"weir/internal/config"
	"weir/internal/core/bus"
	rtmpproto "weir/internal/core/protocol/rtmp"
	"weir/internal/metrics"
	ingest "weir/internal/svc/rtmp"
)

// PullTask plays a stream from a remote server and republishes it into
// the local bus, where it looks like any directly published stream.
type PullTask struct {
	baseTask
}

// NewPullTask builds a pull task from one relay entry. The remote URL is
// parsed up front so a malformed entry fails before anything runs.
func NewPullTask(cfg config.RelayConfig, registry *bus.Registry, m *metrics.Metrics, buffer uint32) (*PullTask, error) {
	remote, err := ParseRemote(cfg.RemoteURL)
	if err != nil {
		return nil, err
	}
	return &PullTask{baseTask: newBaseTask(cfg, remote, registry, m, buffer)}, nil
}

// Run drives connection attempts until the context ends.
func (t *PullTask) Run(ctx context.Context) error {
	return t.runLoop(ctx, t.attempt)
}

// Info snapshots the task for the API.
func (t *PullTask) Info() TaskInfo {
	return t.info()
}

// attempt runs one connection: dial, handshake, play, and feed the bus
// until the remote ends or the context cancels. The publisher slot is
// claimed only after the remote is reachable, so a dead remote never
// blocks a local publisher.
func (t *PullTask) attempt(ctx context.Context) error {
	conn, err := t.dialRemote(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	key := bus.NewStreamKey(t.cfg.App, t.cfg.Name)
	stream, _ := t.registry.GetOrCreate(key)
	pub, ok := ingest.NewPublisher(stream)
	if !ok {
		return fmt.Errorf("stream %s already has a publisher", key)
	}
	t.metrics.RecordPublishStart()
	defer func() {
		pub.Detach()
		t.metrics.RecordPublishStop()
		t.registry.RemoveIfEmpty(key)
	}()

	client := NewClientSession(conn, t.remote, rtmpproto.PlayRequest{StreamKey: t.remote.Name}, t.log)
	client.OnMedia(func(raw *rtmpproto.RawMessage, msg rtmpproto.Message) {
		deliver(pub, raw, msg)
	})
	if err := client.Begin(); err != nil {
		return err
	}

	t.log.WithField("remote", t.cfg.RemoteURL).Info("pulling")
	return client.Serve()
}

// deliver republishes one remote message into the local bus, translating
// metadata announcements the same way local ingest does.
func deliver(pub *ingest.Publisher, raw *rtmpproto.RawMessage, msg rtmpproto.Message) {
	switch m := msg.(type) {
	case *rtmpproto.AudioData:
		pub.Audio(raw.Timestamp, m.Payload)

	case *rtmpproto.VideoData:
		pub.Video(raw.Timestamp, m.Payload)

	case *rtmpproto.Amf0Data:
		switch m.DataName() {
		case "onMetaData", "@setDataFrame":
			if _, payload, ok := rtmpproto.NormalizeOnMetaData(m); ok {
				pub.Metadata(raw.Timestamp, payload)
			}
		default:
			pub.Data(raw.Timestamp, raw.Body)
		}
	}
}
