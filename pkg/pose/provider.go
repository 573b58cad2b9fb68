package pose

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	// ErrNoDetection means the model found no usable skeleton in the image.
	// This is a hard detection failure, not a low-confidence result.
	ErrNoDetection = errors.New("no body detected in image")

	ErrNotConnected = errors.New("not connected to pose detection service")
)

// Provider is the narrow boundary to the pose-landmark detector. The model
// itself runs outside this module (an on-device sidecar); only its
// input/output contract is known here.
type Provider interface {
	Detect(ctx context.Context, image []byte, view View) (*LandmarkSet, error)
	IsConnected() bool
	Reconnect() error
	Close()
}

type wsProvider struct {
	conn         *websocket.Conn
	mu           sync.Mutex
	url          string
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewWebSocketProvider dials the pose model sidecar. A non-empty url wins
// over POSE_DETECTION_URL. The initial connection happens in the
// background; Detect will redial on demand if it is not up yet.
func NewWebSocketProvider(url string) Provider {
	if url == "" {
		url = os.Getenv("POSE_DETECTION_URL")
	}
	if url == "" {
		url = "ws://localhost:8100/api/v1/pose/ws"
	}

	client := &wsProvider{
		url:          url,
		pingInterval: 30 * time.Second,
		readTimeout:  15 * time.Second,
		writeTimeout: 5 * time.Second,
	}

	go func() {
		if err := client.Reconnect(); err != nil {
			log.Printf("Initial connection to pose service failed: %v. Will retry on demand.", err)
		} else {
			log.Printf("Successfully connected to pose service")
		}
	}()

	return client
}

func (c *wsProvider) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *wsProvider) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	log.Printf("Connecting to pose service at %s", c.url)

	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout))
		if err != nil {
			log.Printf("Error sending pong: %v", err)
		}
		return nil
	})

	c.conn = conn
	go c.keepAlive()

	return nil
}

func (c *wsProvider) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *wsProvider) keepAlive() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		conn := c.conn
		if conn == nil {
			c.mu.Unlock()
			return
		}

		err := conn.WriteControl(
			websocket.PingMessage,
			[]byte{},
			time.Now().Add(c.writeTimeout),
		)
		if err != nil {
			log.Printf("Ping failed for pose service, marking connection as dead: %v", err)
			c.conn = nil
			conn.Close()
			c.mu.Unlock()
			return
		}

		c.mu.Unlock()
	}
}

type detectRequest struct {
	View        View   `json:"view"`
	ImageBase64 string `json:"image_base64"`
}

type detectResponse struct {
	Message     string              `json:"message,omitempty"`
	ImageWidth  int                 `json:"image_width"`
	ImageHeight int                 `json:"image_height"`
	Landmarks   map[string]Landmark `json:"landmarks"`
}

func (c *wsProvider) Detect(ctx context.Context, image []byte, view View) (*LandmarkSet, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		if err := c.Reconnect(); err != nil {
			return nil, fmt.Errorf("cannot connect to pose detection service: %w", err)
		}
		c.mu.Lock()
		conn = c.conn
		c.mu.Unlock()
		if conn == nil {
			return nil, ErrNotConnected
		}
	}

	payload, err := json.Marshal(detectRequest{
		View:        view,
		ImageBase64: base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return nil, fmt.Errorf("error encoding detect request: %w", err)
	}

	c.mu.Lock()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
	} else {
		conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}

	log.Printf("Sending %s frame of size: %d bytes", view, len(image))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.conn = nil
		conn.Close()
		c.mu.Unlock()
		return nil, fmt.Errorf("error sending %s frame: %w", view, err)
	}

	conn.SetReadDeadline(time.Now().Add(c.readTimeout))

	c.mu.Unlock()

	_, message, err := conn.ReadMessage()
	if err != nil {
		c.mu.Lock()
		c.conn = nil
		conn.Close()
		c.mu.Unlock()
		return nil, fmt.Errorf("error reading pose response: %w", err)
	}

	c.mu.Lock()
	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})
	c.mu.Unlock()

	var result detectResponse
	if err := json.Unmarshal(message, &result); err != nil {
		return nil, fmt.Errorf("error unmarshaling pose response: %w", err)
	}

	if result.Message == "no_person_detected" || len(result.Landmarks) == 0 {
		return nil, ErrNoDetection
	}

	log.Printf("Pose detection result: view=%s, landmarks=%d", view, len(result.Landmarks))

	return &LandmarkSet{
		View:        view,
		ImageWidth:  result.ImageWidth,
		ImageHeight: result.ImageHeight,
		Points:      result.Landmarks,
	}, nil
}
