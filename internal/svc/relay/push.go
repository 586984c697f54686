package relay

import (
	"context"
	"fmt"
	"time"

	"weir/internal/config"
	"weir/internal/core/bus"
	rtmpproto "weir/internal/core/protocol/rtmp"
	"weir/internal/metrics"
	ingest "weir/internal/svc/rtmp"
)

// publishPollInterval paces the wait for the local stream to go live.
const publishPollInterval = 500 * time.Millisecond

// PushTask mirrors a locally published stream to a remote server. When
// the stream is not live yet it waits for a publisher before dialing.
type PushTask struct {
	baseTask
}

// NewPushTask builds a push task from one relay entry. The remote URL is
// parsed up front so a malformed entry fails before anything runs.
func NewPushTask(cfg config.RelayConfig, registry *bus.Registry, m *metrics.Metrics, buffer uint32) (*PushTask, error) {
	remote, err := ParseRemote(cfg.RemoteURL)
	if err != nil {
		return nil, err
	}
	return &PushTask{baseTask: newBaseTask(cfg, remote, registry, m, buffer)}, nil
}

// Run drives connection attempts until the context ends.
func (t *PushTask) Run(ctx context.Context) error {
	return t.runLoop(ctx, t.attempt)
}

// Info snapshots the task for the API.
func (t *PushTask) Info() TaskInfo {
	return t.info()
}

// attempt runs one connection: wait for the local stream, dial, publish,
// then forward until either side ends.
func (t *PushTask) attempt(ctx context.Context) error {
	key := bus.NewStreamKey(t.cfg.App, t.cfg.Name)
	stream, err := t.waitForStream(ctx, key)
	if err != nil {
		return err
	}

	conn, err := t.dialRemote(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	client := NewClientSession(conn, t.remote, rtmpproto.PublishRequest{
		StreamKey: t.remote.Name,
		Type:      rtmpproto.PublishTypeLive,
	}, t.log)
	if err := client.Begin(); err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- client.Serve() }()

	select {
	case <-client.Ready():
	case err := <-serveErr:
		return fmt.Errorf("publish not accepted: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}

	forwarder := ingest.NewPlayer(client.Session, stream, client.StreamID(), t.buffer, t.log)
	t.metrics.RecordSubscriberStart()
	forwarder.Start()
	t.log.WithField("remote", t.cfg.RemoteURL).Info("pushing")

	var runErr error
	select {
	case runErr = <-serveErr:
	case <-ctx.Done():
		runErr = ctx.Err()
	}

	// Kill the connection before stopping the forwarder so a blocked
	// write cannot stall the teardown.
	conn.Close()
	dropped := forwarder.Stop()
	t.metrics.RecordSubscriberStop(dropped)
	t.registry.RemoveIfEmpty(key)
	return runErr
}

// waitForStream blocks until the local stream has a publisher. Polling
// keeps the task decoupled from ingest internals.
func (t *PushTask) waitForStream(ctx context.Context, key bus.StreamKey) (*bus.Stream, error) {
	ticker := time.NewTicker(publishPollInterval)
	defer ticker.Stop()
	for {
		if stream := t.registry.Get(key); stream != nil && stream.HasPublisher() {
			return stream, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
