// Package wsflv serves live streams as FLV over WebSocket: one binary
// frame for the file intro, then one frame per tag. Browser players
// without MSE fetch support consume this.
package wsflv

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"weir/internal/core/bus"
	"weir/internal/core/protocol/flv"
	"weir/internal/metrics"
)

// Handler answers GET /ws/:app/:name and upgrades it to a WebSocket.
type Handler struct {
	registry *bus.Registry
	metrics  *metrics.Metrics
	buffer   uint32
	upgrader websocket.Upgrader
	log      *logrus.Entry
}

// NewHandler builds a handler over the shared stream registry. Origin
// checks are disabled, players embed from anywhere.
func NewHandler(registry *bus.Registry, m *metrics.Metrics, buffer uint32) *Handler {
	return &Handler{
		registry: registry,
		metrics:  m,
		buffer:   buffer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: logrus.WithField("svc", "wsflv"),
	}
}

// Register mounts the playback route.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/ws/:app/:name", h.serve)
}

func (h *Handler) serve(c *gin.Context) {
	key := bus.NewStreamKey(c.Param("app"), c.Param("name"))

	// Reject before upgrading so absent streams cost a plain 404, not a
	// WebSocket handshake.
	stream := h.registry.Get(key)
	if stream == nil || !stream.HasPublisher() {
		c.Status(http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub, subID := stream.AttachSubscriber(h.buffer, bus.BackpressureDropOldest)
	h.metrics.RecordSubscriberStart()
	log := h.log.WithFields(logrus.Fields{"stream": key, "client": conn.RemoteAddr()})
	log.Info("viewer connected")

	// The viewer never sends data, but close frames only surface through
	// reads. Drain the connection until it dies and end the write loop
	// then.
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	err = flv.NewStreamer(frameConn{conn}).Run(ctx, stream, sub)

	stream.DetachSubscriber(subID)
	h.metrics.RecordSubscriberStop(sub.Dropped())
	if err != nil {
		log.WithError(err).Debug("viewer write failed")
	}
	log.WithField("dropped", sub.Dropped()).Info("viewer disconnected")
}

// frameConn maps FLV pieces onto binary WebSocket frames.
type frameConn struct {
	conn *websocket.Conn
}

func (fc frameConn) WriteFrame(data []byte) error {
	return fc.conn.WriteMessage(websocket.BinaryMessage, data)
}
