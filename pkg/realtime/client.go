package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClosed is returned from send helpers after Close.
var ErrClosed = errors.New("realtime: connection closed")

// Config carries the engine endpoint and credentials.
type Config struct {
	URL          string
	APIKey       string
	Model        string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       *slog.Logger
}

func (c *Config) withDefaults() {
	if c.DialTimeout == 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Client is one websocket leg to the speech engine. Reads are surfaced
// on Events; writes go through the send helpers and are serialized by
// an internal mutex.
type Client struct {
	conn   *websocket.Conn
	cfg    Config
	logger *slog.Logger

	writeMu sync.Mutex

	events chan Event
	done   chan struct{}
	once   sync.Once
}

// Dial connects to the engine and starts the read loop.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	cfg.withDefaults()
	url := cfg.URL
	if cfg.Model != "" {
		url = url + "?model=" + cfg.Model
	}
	header := http.Header{}
	if cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+cfg.APIKey)
	}
	dialer := websocket.Dialer{HandshakeTimeout: cfg.DialTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial engine: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial engine: %w", err)
	}
	c := &Client{
		conn:   conn,
		cfg:    cfg,
		logger: cfg.Logger,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer c.Close()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("engine read failed", "error", err)
			}
			return
		}
		ev, err := Decode(data)
		if err != nil {
			c.logger.Warn("bad engine event", "error", err)
			continue
		}
		if ev.Type == "" {
			continue
		}
		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

// Events is the inbound event stream. Closed connections stop
// delivering; callers should also select on Done.
func (c *Client) Events() <-chan Event { return c.events }

// Done closes when the connection is torn down.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close tears down the connection. Safe to call more than once.
func (c *Client) Close() error {
	c.once.Do(func() {
		close(c.done)
		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		_ = c.conn.Close()
	})
	return nil
}

func (c *Client) send(data []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("engine write: %w", err)
	}
	return nil
}

// UpdateSession sends the session configuration.
func (c *Client) UpdateSession(cfg SessionConfig) error {
	data, err := EncodeSessionUpdate(cfg)
	if err != nil {
		return err
	}
	return c.send(data)
}

// AppendAudio forwards one chunk of caller audio (base64 mulaw).
func (c *Client) AppendAudio(audioB64 string) error {
	data, err := EncodeAudioAppend(audioB64)
	if err != nil {
		return err
	}
	return c.send(data)
}

// CreateResponse asks for the next assistant response.
func (c *Client) CreateResponse(instructions string) error {
	data, err := EncodeResponseCreate(instructions)
	if err != nil {
		return err
	}
	return c.send(data)
}

// CancelResponse interrupts the in-flight response.
func (c *Client) CancelResponse() error {
	data, err := EncodeResponseCancel()
	if err != nil {
		return err
	}
	return c.send(data)
}

// SendFunctionResult feeds a tool outcome back to the engine.
func (c *Client) SendFunctionResult(callID string, output any) error {
	data, err := EncodeFunctionResult(callID, output)
	if err != nil {
		return err
	}
	return c.send(data)
}
