package websocketPkg

import (
	"SentinelAI/internal/entity"
	"SentinelAI/pkg/log"
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResponse = `[{"topLeft":[100,100],"bottomRight":[300,400],"probability":[0.97],
"landmarks":[[160,200],[240,200],[200,250],[200,300],[110,220],[290,220]]}]`

func TestParseFaces(t *testing.T) {
	faces, err := ParseFaces([]byte(sampleResponse))
	require.NoError(t, err)
	require.Len(t, faces, 1)

	f := faces[0]
	assert.Equal(t, entity.Point{X: 100, Y: 100}, f.TopLeft)
	assert.Equal(t, entity.Point{X: 300, Y: 400}, f.BottomRight)
	assert.Equal(t, 0.97, f.Probability)
	require.Len(t, f.Landmarks, 6)
	assert.Equal(t, entity.Point{X: 200, Y: 250}, f.Landmarks[entity.LandmarkNose])
	assert.Equal(t, entity.Point{X: 200, Y: 300}, f.Landmarks[entity.LandmarkMouth])
}

func TestParseFaces_Edges(t *testing.T) {
	faces, err := ParseFaces([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, faces)

	faces, err = ParseFaces([]byte(`[{"topLeft":[1,2],"bottomRight":[3,4],"probability":[],"landmarks":[[1,2],[3]]}]`))
	require.NoError(t, err)
	assert.Equal(t, 0.0, faces[0].Probability)
	assert.Nil(t, faces[0].Landmarks)

	_, err = ParseFaces([]byte(`[{"topLeft":[1],"bottomRight":[3,4]}]`))
	assert.Error(t, err)

	_, err = ParseFaces([]byte(`{"error":"model not loaded"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")

	_, err = ParseFaces([]byte(`garbage`))
	assert.Error(t, err)
}

func newDetectorServer(t *testing.T, handle func(conn *websocket.Conn)) (*httptest.Server, string) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}))
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testFrame() entity.Frame {
	return entity.Frame{Seq: 7, Image: image.NewRGBA(image.Rect(0, 0, 32, 24))}
}

func TestDetect(t *testing.T) {
	var gotJPEG atomic.Bool
	srv, url := newDetectorServer(t, func(conn *websocket.Conn) {
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt == websocket.BinaryMessage {
				if img, err := jpeg.Decode(bytes.NewReader(msg)); err == nil && img.Bounds().Dx() == 32 {
					gotJPEG.Store(true)
				}
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(sampleResponse)); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	client := NewAIWebSocketClient(log.Discard(), Options{URL: url})
	defer client.CloseConnections()

	for i := 0; i < 3; i++ {
		faces, err := client.Detect(context.Background(), testFrame())
		require.NoError(t, err)
		require.Len(t, faces, 1)
		assert.Equal(t, 0.97, faces[0].Probability)
	}
	assert.True(t, gotJPEG.Load())
	assert.True(t, client.IsConnected())
}

func TestDetect_ReconnectsAfterDrop(t *testing.T) {
	var connections atomic.Int32
	srv, url := newDetectorServer(t, func(conn *websocket.Conn) {
		n := connections.Add(1)
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		if n == 1 {
			// First connection dies without answering.
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`[]`))
		_, _, _ = conn.ReadMessage()
	})
	defer srv.Close()

	client := NewAIWebSocketClient(log.Discard(), Options{URL: url, ReadTimeout: time.Second})
	defer client.CloseConnections()

	var err error
	for attempt := 0; attempt < 3; attempt++ {
		_, err = client.Detect(context.Background(), testFrame())
		if err == nil {
			break
		}
	}
	require.NoError(t, err)
	assert.GreaterOrEqual(t, connections.Load(), int32(2))
}

func TestDetect_KeepsConnectionOnBadReply(t *testing.T) {
	var connections atomic.Int32
	srv, url := newDetectorServer(t, func(conn *websocket.Conn) {
		connections.Add(1)
		replies := []string{`{"error":"busy"}`, `[]`}
		for _, reply := range replies {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
				return
			}
		}
		_, _, _ = conn.ReadMessage()
	})
	defer srv.Close()

	client := NewAIWebSocketClient(log.Discard(), Options{URL: url, ReadTimeout: time.Second})
	defer client.CloseConnections()

	_, err := client.Detect(context.Background(), testFrame())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "detector error: busy")
	assert.True(t, client.IsConnected())

	faces, err := client.Detect(context.Background(), testFrame())
	require.NoError(t, err)
	assert.Empty(t, faces)
	assert.Equal(t, int32(1), connections.Load())
}

func TestDetect_Timeout(t *testing.T) {
	srv, url := newDetectorServer(t, func(conn *websocket.Conn) {
		_, _, _ = conn.ReadMessage()
		time.Sleep(500 * time.Millisecond)
	})
	defer srv.Close()

	client := NewAIWebSocketClient(log.Discard(), Options{URL: url})
	defer client.CloseConnections()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Detect(ctx, testFrame())
	assert.Error(t, err)
}

func TestDetect_Unconfigured(t *testing.T) {
	client := NewAIWebSocketClient(log.Discard(), Options{})

	_, err := client.Detect(context.Background(), testFrame())
	assert.Error(t, err)
	assert.False(t, client.IsConnected())
}
