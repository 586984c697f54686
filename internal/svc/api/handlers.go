package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	rtmpproto "weir/internal/core/protocol/rtmp"
	"weir/internal/svc/relay"
)

// ServerInfo is the GET /api/server response.
type ServerInfo struct {
	Version       string   `json:"version"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	GoVersion     string   `json:"go_version"`
	Services      []string `json:"services"`
}

// StreamInfo describes one registered stream.
type StreamInfo struct {
	App         string          `json:"app"`
	Name        string          `json:"name"`
	Publishing  bool            `json:"publishing"`
	Subscribers int             `json:"subscribers"`
	Metadata    *StreamMetadata `json:"metadata,omitempty"`
}

// StreamsResponse is the GET /api/streams response.
type StreamsResponse struct {
	Streams []StreamInfo `json:"streams"`
}

// RelayResponse is the GET /api/relay response.
type RelayResponse struct {
	Tasks []relay.TaskInfo `json:"tasks"`
}

// StreamMetadata mirrors the translated onMetaData properties. Properties
// the publisher never advertised are omitted, not zeroed.
type StreamMetadata struct {
	VideoWidth       *uint32  `json:"video_width,omitempty"`
	VideoHeight      *uint32  `json:"video_height,omitempty"`
	VideoCodecID     *float64 `json:"video_codec_id,omitempty"`
	VideoFrameRate   *float32 `json:"video_frame_rate,omitempty"`
	VideoBitrateKbps *uint32  `json:"video_bitrate_kbps,omitempty"`
	AudioCodecID     *float64 `json:"audio_codec_id,omitempty"`
	AudioBitrateKbps *uint32  `json:"audio_bitrate_kbps,omitempty"`
	AudioSampleRate  *uint32  `json:"audio_sample_rate,omitempty"`
	AudioChannels    *uint32  `json:"audio_channels,omitempty"`
	AudioIsStereo    *bool    `json:"audio_is_stereo,omitempty"`
	Encoder          *string  `json:"encoder,omitempty"`
}

func (s *Service) handleServer(c *gin.Context) {
	services := []string{"rtmp", "httpflv", "wsflv", "api", "health"}
	if len(s.cfg.Relays) > 0 {
		services = append(services, "relay")
	}
	c.JSON(http.StatusOK, ServerInfo{
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		GoVersion:     runtime.Version(),
		Services:      services,
	})
}

func (s *Service) handleStreams(c *gin.Context) {
	keys := s.registry.List()
	streams := make([]StreamInfo, 0, len(keys))
	for _, key := range keys {
		stream := s.registry.Get(key)
		if stream == nil {
			continue
		}
		info := StreamInfo{
			App:         key.App,
			Name:        key.Name,
			Publishing:  stream.HasPublisher(),
			Subscribers: stream.SubscriberCount(),
		}
		if payload := stream.Metadata(); payload != nil {
			info.Metadata = decodeMetadata(payload)
		}
		streams = append(streams, info)
	}
	c.JSON(http.StatusOK, StreamsResponse{Streams: streams})
}

func (s *Service) handleRelay(c *gin.Context) {
	tasks := s.relays.GetTasks()
	if tasks == nil {
		tasks = []relay.TaskInfo{}
	}
	c.JSON(http.StatusOK, RelayResponse{Tasks: tasks})
}

func (s *Service) handleRelayRestart(c *gin.Context) {
	if err := s.relays.Restart(s.cfg); err != nil {
		s.log.WithError(err).Warn("relay restart failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.log.Info("relay tasks restarted")
	c.JSON(http.StatusOK, gin.H{"status": "restarted"})
}

// decodeMetadata translates a cached onMetaData payload for the response.
// A payload that does not decode yields no metadata rather than an error.
func decodeMetadata(payload []byte) *StreamMetadata {
	var data rtmpproto.Amf0Data
	if err := data.UnmarshalBinary(payload); err != nil {
		return nil
	}
	meta, _, ok := rtmpproto.NormalizeOnMetaData(&data)
	if !ok {
		return nil
	}
	return &StreamMetadata{
		VideoWidth:       meta.VideoWidth,
		VideoHeight:      meta.VideoHeight,
		VideoCodecID:     meta.VideoCodecID,
		VideoFrameRate:   meta.VideoFrameRate,
		VideoBitrateKbps: meta.VideoBitrateKbps,
		AudioCodecID:     meta.AudioCodecID,
		AudioBitrateKbps: meta.AudioBitrateKbps,
		AudioSampleRate:  meta.AudioSampleRate,
		AudioChannels:    meta.AudioChannels,
		AudioIsStereo:    meta.AudioIsStereo,
		Encoder:          meta.Encoder,
	}
}
