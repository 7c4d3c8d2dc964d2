package websocketPkg

import (
	"SentinelAI/internal/entity"
	"SentinelAI/pkg/utils"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const defaultFrameQuality = 80

type IWebsocket interface {
	Detect(ctx context.Context, frame entity.Frame) ([]entity.FaceDetection, error)
	IsConnected() bool
	Reconnect() error
	CloseConnections()
}

type Options struct {
	URL          string
	PingInterval time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	FrameQuality int
}

// webSocketClient talks to the external face detector. Frames go out as
// binary JPEG messages and each is answered by one JSON array of faces.
type webSocketClient struct {
	log  *logrus.Logger
	opts Options

	mu       sync.Mutex
	faceConn *websocket.Conn

	// reqMu serialises request/response pairs on the connection.
	reqMu sync.Mutex
}

func NewAIWebSocketClient(log *logrus.Logger, opts Options) IWebsocket {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.FrameQuality <= 0 {
		opts.FrameQuality = defaultFrameQuality
	}

	client := &webSocketClient{
		log:  log,
		opts: opts,
	}

	go client.connectInBackground()

	return client
}

func (c *webSocketClient) connectInBackground() {
	if err := c.connect(false); err != nil {
		c.log.Warnf("Initial connection to face detector failed: %v. Will retry on demand.", err)
		return
	}
	c.log.Info("Successfully connected to face detector")
}

func (c *webSocketClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.faceConn != nil
}

func (c *webSocketClient) Reconnect() error {
	return c.connect(true)
}

// connect dials the detector. Without replace an existing live connection
// is kept as is.
func (c *webSocketClient) connect(replace bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.faceConn != nil {
		if !replace {
			return nil
		}
		c.faceConn.Close()
		c.faceConn = nil
	}

	if c.opts.URL == "" {
		return fmt.Errorf("face detector URL not configured")
	}

	c.log.Debugf("Connecting to face detector at %s", c.opts.URL)

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(c.opts.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.opts.URL, err)
	}

	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.opts.WriteTimeout))
		if err != nil {
			c.log.Warnf("Error sending pong: %v", err)
		}
		return nil
	})

	c.faceConn = conn

	go c.keepAlive(conn)

	return nil
}

func (c *webSocketClient) CloseConnections() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.faceConn != nil {
		c.faceConn.Close()
		c.faceConn = nil
	}
}

func (c *webSocketClient) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		if c.faceConn != conn {
			c.mu.Unlock()
			return
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.opts.WriteTimeout))
		if err != nil {
			c.log.Warnf("Ping failed for face detector, marking connection as dead: %v", err)
			c.faceConn = nil
			conn.Close()
			c.mu.Unlock()
			return
		}

		c.mu.Unlock()
	}
}

func (c *webSocketClient) getConnection() (*websocket.Conn, error) {
	c.mu.Lock()
	conn := c.faceConn
	c.mu.Unlock()

	if conn != nil {
		return conn, nil
	}

	if err := c.connect(false); err != nil {
		return nil, fmt.Errorf("cannot connect to face detection service: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.faceConn == nil {
		return nil, fmt.Errorf("not connected to face detection service")
	}
	return c.faceConn, nil
}

func (c *webSocketClient) drop(conn *websocket.Conn) {
	c.mu.Lock()
	if c.faceConn == conn {
		c.faceConn = nil
	}
	c.mu.Unlock()
	conn.Close()
}

// Detect sends one frame and waits for its faces. A transport failure drops
// the connection so the next call redials. An unreadable reply still ends the
// exchange, so the connection is kept.
func (c *webSocketClient) Detect(ctx context.Context, frame entity.Frame) ([]entity.FaceDetection, error) {
	if frame.Image == nil {
		return nil, fmt.Errorf("frame %d has no image", frame.Seq)
	}

	payload, err := utils.EncodeJPEG(frame.Image, c.opts.FrameQuality)
	if err != nil {
		return nil, fmt.Errorf("encode frame %d: %w", frame.Seq, err)
	}

	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	conn, err := c.getConnection()
	if err != nil {
		return nil, err
	}

	writeDeadline := time.Now().Add(c.opts.WriteTimeout)
	readDeadline := time.Now().Add(c.opts.ReadTimeout)
	if d, ok := ctx.Deadline(); ok {
		if d.Before(writeDeadline) {
			writeDeadline = d
		}
		if d.Before(readDeadline) {
			readDeadline = d
		}
	}

	conn.SetWriteDeadline(writeDeadline)
	if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		c.drop(conn)
		return nil, fmt.Errorf("error sending face frame: %w", err)
	}

	conn.SetReadDeadline(readDeadline)
	_, message, err := conn.ReadMessage()
	if err != nil {
		c.drop(conn)
		return nil, fmt.Errorf("error reading face message: %w", err)
	}

	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})

	faces, err := ParseFaces(message)
	if err != nil {
		return nil, fmt.Errorf("error unmarshaling face response: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"seq":   frame.Seq,
		"bytes": len(payload),
		"faces": len(faces),
	}).Debug("Face detector responded")

	return faces, nil
}

type blazeFace struct {
	TopLeft     []float64   `json:"topLeft"`
	BottomRight []float64   `json:"bottomRight"`
	Probability []float64   `json:"probability"`
	Landmarks   [][]float64 `json:"landmarks"`
}

// detectorError is sent by the detector instead of a face array when it
// cannot process a frame.
type detectorError struct {
	Error string `json:"error"`
}

// ParseFaces decodes the detector's BlazeFace-shaped response.
func ParseFaces(message []byte) ([]entity.FaceDetection, error) {
	var raw []blazeFace
	if err := json.Unmarshal(message, &raw); err != nil {
		var de detectorError
		if json.Unmarshal(message, &de) == nil && de.Error != "" {
			return nil, fmt.Errorf("detector error: %s", de.Error)
		}
		return nil, err
	}

	faces := make([]entity.FaceDetection, 0, len(raw))
	for i, f := range raw {
		if len(f.TopLeft) < 2 || len(f.BottomRight) < 2 {
			return nil, fmt.Errorf("face %d: box needs two coordinates", i)
		}

		face := entity.FaceDetection{
			TopLeft:     entity.Point{X: f.TopLeft[0], Y: f.TopLeft[1]},
			BottomRight: entity.Point{X: f.BottomRight[0], Y: f.BottomRight[1]},
		}
		if len(f.Probability) > 0 {
			face.Probability = f.Probability[0]
		}
		// A malformed landmark would shift the nose and mouth indexes, so
		// the face falls back to box geometry instead.
		for _, lm := range f.Landmarks {
			if len(lm) < 2 {
				face.Landmarks = nil
				break
			}
			face.Landmarks = append(face.Landmarks, entity.Point{X: lm[0], Y: lm[1]})
		}

		faces = append(faces, face)
	}

	return faces, nil
}
