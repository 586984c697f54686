// Package relay mirrors streams between this engine and remote RTMP
// servers: pull tasks play a remote stream into the local bus, push tasks
// publish a local stream to a remote server.
package relay

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"weir/internal/config"
	"weir/internal/core/bus"
	rtmpproto "weir/internal/core/protocol/rtmp"
	"weir/internal/metrics"
)

// TaskInfo is a point-in-time snapshot of one relay task, as the HTTP API
// reports it.
type TaskInfo struct {
	App        string `json:"app"`
	Name       string `json:"name"`
	Mode       string `json:"mode"`
	RemoteURL  string `json:"remote_url"`
	Running    bool   `json:"running"`
	Reconnects uint64 `json:"reconnects"`
}

// Task is one configured relay. Run blocks until the context ends or the
// task gives up; Info may be called from any goroutine.
type Task interface {
	Run(ctx context.Context) error
	Info() TaskInfo
}

// Connection and reconnect pacing
const (
	dialTimeout    = 5 * time.Second
	initialBackoff = time.Second
	maxBackoff     = time.Minute
	steadyRunTime  = time.Minute // an attempt this long resets the backoff
)

// baseTask carries what pull and push share: identity, the reconnect
// loop, and the counters the API reports.
type baseTask struct {
	cfg      config.RelayConfig
	remote   Remote
	registry *bus.Registry
	metrics  *metrics.Metrics
	buffer   uint32
	log      *logrus.Entry

	running    atomic.Bool
	reconnects atomic.Uint64
}

func newBaseTask(cfg config.RelayConfig, remote Remote, registry *bus.Registry, m *metrics.Metrics, buffer uint32) baseTask {
	return baseTask{
		cfg:      cfg,
		remote:   remote,
		registry: registry,
		metrics:  m,
		buffer:   buffer,
		log: logrus.WithFields(logrus.Fields{
			"svc":    "relay",
			"mode":   cfg.Mode,
			"stream": cfg.App + "/" + cfg.Name,
		}),
	}
}

func (t *baseTask) info() TaskInfo {
	return TaskInfo{
		App:        t.cfg.App,
		Name:       t.cfg.Name,
		Mode:       t.cfg.Mode,
		RemoteURL:  t.cfg.RemoteURL,
		Running:    t.running.Load(),
		Reconnects: t.reconnects.Load(),
	}
}

func (t *baseTask) taskName() string {
	return t.cfg.Mode + ":" + t.cfg.App + "/" + t.cfg.Name
}

// runLoop drives attempt with exponential backoff between tries. Without
// reconnect a single attempt decides the task; with it the loop only ends
// when the context does. An attempt that ran steadily resets the backoff.
func (t *baseTask) runLoop(ctx context.Context, attempt func(context.Context) error) error {
	t.running.Store(true)
	defer t.running.Store(false)

	backoff := initialBackoff
	for {
		started := time.Now()
		err := attempt(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !t.cfg.Reconnect {
			return err
		}
		if err != nil {
			t.log.WithError(err).Warn("relay attempt ended")
		}
		if time.Since(started) >= steadyRunTime {
			backoff = initialBackoff
		}

		t.reconnects.Add(1)
		t.metrics.RecordRelayReconnect(t.taskName())
		t.log.WithField("backoff", backoff.String()).Info("reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// dialRemote opens and handshakes the remote connection. Callers own the
// returned connection.
func (t *baseTask) dialRemote(ctx context.Context) (net.Conn, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", t.remote.Addr)
	if err != nil {
		return nil, err
	}
	if err := rtmpproto.PerformClientHandshake(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
