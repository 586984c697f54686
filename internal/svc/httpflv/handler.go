// Package httpflv serves live streams as progressive HTTP-FLV responses,
// the transport flash-era players and flv.js expect.
package httpflv

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"weir/internal/core/bus"
	"weir/internal/core/protocol/flv"
	"weir/internal/metrics"
)

// Handler answers GET /flv/:app/:name where name carries a .flv suffix.
type Handler struct {
	registry *bus.Registry
	metrics  *metrics.Metrics
	buffer   uint32
	log      *logrus.Entry
}

// NewHandler builds a handler over the shared stream registry. buffer is
// the per-viewer message buffer; slow viewers drop their oldest frames.
func NewHandler(registry *bus.Registry, m *metrics.Metrics, buffer uint32) *Handler {
	return &Handler{
		registry: registry,
		metrics:  m,
		buffer:   buffer,
		log:      logrus.WithField("svc", "httpflv"),
	}
}

// Register mounts the playback route.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/flv/:app/:name", h.serve)
}

func (h *Handler) serve(c *gin.Context) {
	name := c.Param("name")
	if !strings.HasSuffix(name, ".flv") {
		c.String(http.StatusBadRequest, "stream name must end in .flv")
		return
	}
	key := bus.NewStreamKey(c.Param("app"), strings.TrimSuffix(name, ".flv"))

	stream := h.registry.Get(key)
	if stream == nil || !stream.HasPublisher() {
		c.Status(http.StatusNotFound)
		return
	}

	sub, subID := stream.AttachSubscriber(h.buffer, bus.BackpressureDropOldest)
	h.metrics.RecordSubscriberStart()
	log := h.log.WithFields(logrus.Fields{"stream": key, "client": c.ClientIP()})
	log.Info("viewer connected")

	c.Header("Content-Type", "video/x-flv")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// Blocks until the viewer hangs up or the stream is torn down.
	err := flv.NewStreamer(flushWriter{c.Writer}).Run(c.Request.Context(), stream, sub)

	stream.DetachSubscriber(subID)
	h.metrics.RecordSubscriberStop(sub.Dropped())
	if err != nil {
		log.WithError(err).Debug("viewer write failed")
	}
	log.WithField("dropped", sub.Dropped()).Info("viewer disconnected")
}

// flushWriter pushes every piece to the client as soon as it is written,
// keeping startup latency at one tag instead of one response buffer.
type flushWriter struct {
	w gin.ResponseWriter
}

func (fw flushWriter) WriteFrame(data []byte) error {
	if _, err := fw.w.Write(data); err != nil {
		return err
	}
	fw.w.Flush()
	return nil
}
