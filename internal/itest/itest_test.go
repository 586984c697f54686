// Package itest boots complete engines on ephemeral ports and drives them
// through their public surfaces only: RTMP ingest, the JSON API, FLV
// playback over HTTP and WebSocket, and relays between two instances.
package itest

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"weir/internal/config"
	"weir/internal/core/protocol/amf0"
	rtmpproto "weir/internal/core/protocol/rtmp"
	"weir/internal/server"
	"weir/internal/svc/api"
	"weir/internal/svc/relay"
)

func init() {
	logrus.SetOutput(io.Discard)
}

// engineConfig binds every listener ephemerally so tests can run in
// parallel with whatever else holds the default ports.
func engineConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.RTMPPort = 0
	cfg.Server.HTTPPort = 0
	cfg.Server.HealthPort = 0
	return cfg
}

// startEngine runs a full engine and tears it down when the test ends.
func startEngine(t *testing.T, cfg *config.Config) *server.Server {
	t.Helper()

	srv := server.New(cfg, "itest")
	if err := srv.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("engine exited: %v", err)
			}
		case <-time.After(10 * time.Second):
			t.Error("engine did not stop")
		}
	})
	return srv
}

// loopback turns a bound address into a dialable host:port. Listeners
// bind the wildcard address, which cannot be dialed as-is.
func loopback(t *testing.T, addr net.Addr) string {
	t.Helper()
	_, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		t.Fatalf("split %v: %v", addr, err)
	}
	return net.JoinHostPort("127.0.0.1", port)
}

func httpBase(t *testing.T, srv *server.Server) string {
	t.Helper()
	return "http://" + loopback(t, srv.HTTPAddr())
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// getJSON decodes a 200 response into out. It reports failure instead of
// fataling so it can sit inside waitFor conditions.
func getJSON(url string, out interface{}) bool {
	resp, err := http.Get(url)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	return json.NewDecoder(resp.Body).Decode(out) == nil
}

// findStream returns the named stream from an engine's API, nil when the
// engine does not know it.
func findStream(base, name string) *api.StreamInfo {
	var resp api.StreamsResponse
	if !getJSON(base+"/api/streams", &resp) {
		return nil
	}
	for i := range resp.Streams {
		if resp.Streams[i].Name == name {
			return &resp.Streams[i]
		}
	}
	return nil
}

// startPublisher dials an engine's ingest port and publishes app/name,
// returning once the engine has accepted the publish.
func startPublisher(t *testing.T, srv *server.Server, app, name string) *relay.ClientSession {
	t.Helper()

	addr := loopback(t, srv.RTMPAddr())
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial ingest: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := rtmpproto.PerformClientHandshake(conn); err != nil {
		t.Fatalf("handshake: %v", err)
	}

	remote := relay.Remote{Addr: addr, App: app, Name: name}
	purpose := rtmpproto.PublishRequest{StreamKey: name, Type: rtmpproto.PublishTypeLive}
	client := relay.NewClientSession(conn, remote, purpose, logrus.WithField("svc", "itest"))
	if err := client.Begin(); err != nil {
		t.Fatalf("begin publish: %v", err)
	}
	go func() { _ = client.Serve() }()

	select {
	case <-client.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("publish was not accepted")
	}
	return client
}

// sendConfiguration pushes stream metadata and both sequence headers, the
// preamble every real encoder opens with.
func sendConfiguration(t *testing.T, client *relay.ClientSession, width uint32) {
	t.Helper()

	data := &rtmpproto.Amf0Data{Values: []amf0.Value{
		"onMetaData",
		amf0.Object{"width": float64(width), "encoder": "itest"},
	}}
	payload, err := data.MarshalBinary()
	if err != nil {
		t.Fatalf("encode metadata: %v", err)
	}

	msid := client.StreamID()
	if err := client.WriteRaw(rtmpproto.ChunkStreamStreamCommand, 0, rtmpproto.MessageTypeDataAMF0, msid, payload); err != nil {
		t.Fatalf("write metadata: %v", err)
	}
	if err := client.WriteRaw(rtmpproto.ChunkStreamVideo, 0, rtmpproto.MessageTypeVideo, msid, []byte{0x17, 0x00, 0x00, 0x00, 0x00, 0x01}); err != nil {
		t.Fatalf("write video header: %v", err)
	}
	if err := client.WriteRaw(rtmpproto.ChunkStreamAudio, 0, rtmpproto.MessageTypeAudio, msid, []byte{0xAF, 0x00, 0x12, 0x10}); err != nil {
		t.Fatalf("write audio header: %v", err)
	}
}

func sendKeyframe(t *testing.T, client *relay.ClientSession, ts uint32) {
	t.Helper()
	payload := []byte{0x17, 0x01, 0x00, 0x00, 0x00, 0x42}
	if err := client.WriteRaw(rtmpproto.ChunkStreamVideo, ts, rtmpproto.MessageTypeVideo, client.StreamID(), payload); err != nil {
		t.Fatalf("write keyframe: %v", err)
	}
}

// readTag reads one FLV tag and returns its type and timestamp.
func readTag(t *testing.T, r io.Reader) (tagType byte, timestamp uint32) {
	t.Helper()

	head := make([]byte, 11)
	if _, err := io.ReadFull(r, head); err != nil {
		t.Fatalf("read tag head: %v", err)
	}
	size := uint32(head[1])<<16 | uint32(head[2])<<8 | uint32(head[3])
	timestamp = uint32(head[4])<<16 | uint32(head[5])<<8 | uint32(head[6]) | uint32(head[7])<<24

	rest := make([]byte, size+4)
	if _, err := io.ReadFull(r, rest); err != nil {
		t.Fatalf("read tag body: %v", err)
	}
	return head[0], timestamp
}
