package telephony

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrConnClosed reports a write against a torn-down leg.
var ErrConnClosed = errors.New("telephony leg closed")

type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Config bounds the connection's write behavior.
type Config struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
	QueueSize    int
}

// Conn wraps the telephony leg: one writer pump owns the socket, audio
// is fire-and-forget, and Clear preempts queued audio so barge-in stops
// playback immediately.
type Conn struct {
	ws     wsConn
	logger *slog.Logger
	cfg    Config

	ctx    context.Context
	cancel context.CancelFunc

	priority chan []byte
	normal   chan []byte

	streamMu  sync.Mutex
	streamSID string

	closeOnce sync.Once
	done      chan struct{}
}

func NewConn(ctx context.Context, ws wsConn, logger *slog.Logger, cfg Config) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 20 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	cctx, cancel := context.WithCancel(ctx)
	c := &Conn{
		ws:       ws,
		logger:   logger,
		cfg:      cfg,
		ctx:      cctx,
		cancel:   cancel,
		priority: make(chan []byte, 8),
		normal:   make(chan []byte, cfg.QueueSize),
		done:     make(chan struct{}),
	}
	go c.writePump()
	return c
}

// SetStreamSID records the stream address once the start frame arrives.
func (c *Conn) SetStreamSID(sid string) {
	c.streamMu.Lock()
	c.streamSID = sid
	c.streamMu.Unlock()
}

func (c *Conn) StreamSID() string {
	c.streamMu.Lock()
	defer c.streamMu.Unlock()
	return c.streamSID
}

// ReadFrame blocks for the next decoded inbound frame.
func (c *Conn) ReadFrame() (Frame, error) {
	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			return Frame{}, err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		return DecodeFrame(data)
	}
}

// SendAudio queues one outbound audio frame. A full queue drops the
// frame rather than blocking the caller: late audio is worse than lost
// audio on a phone call.
func (c *Conn) SendAudio(audio []byte) error {
	if c.ctx.Err() != nil {
		return ErrConnClosed
	}
	sid := c.StreamSID()
	if sid == "" {
		return nil
	}
	payload, err := EncodeMedia(sid, audio)
	if err != nil {
		return err
	}
	select {
	case c.normal <- payload:
		return nil
	default:
		c.logger.Warn("telephony outbound queue full, dropping audio frame")
		return nil
	}
}

// Clear drains any queued audio and tells the provider to flush its
// playback buffer. Used on barge-in.
func (c *Conn) Clear() error {
	for {
		select {
		case <-c.normal:
			continue
		default:
		}
		break
	}
	if c.ctx.Err() != nil {
		return ErrConnClosed
	}
	sid := c.StreamSID()
	if sid == "" {
		return nil
	}
	payload, err := EncodeClear(sid)
	if err != nil {
		return err
	}
	select {
	case c.priority <- payload:
		return nil
	default:
		return ErrConnClosed
	}
}

// SendMark queues a playback mark.
func (c *Conn) SendMark(name string) error {
	if c.ctx.Err() != nil {
		return ErrConnClosed
	}
	sid := c.StreamSID()
	if sid == "" {
		return nil
	}
	payload, err := EncodeMark(sid, name)
	if err != nil {
		return err
	}
	select {
	case c.normal <- payload:
		return nil
	default:
		return nil
	}
}

// Close tears the leg down; safe to call more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
	})
}

// Done closes when the writer pump has exited.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) writePump() {
	defer close(c.done)
	defer c.ws.Close()

	ping := time.NewTicker(c.cfg.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.cfg.WriteTimeout))
			return
		case payload := <-c.priority:
			if err := c.write(payload); err != nil {
				c.logger.Warn("telephony write failed", "err", err)
				c.cancel()
				return
			}
		case payload := <-c.normal:
			// Anything queued on priority preempts normal frames.
			select {
			case pri := <-c.priority:
				if err := c.write(pri); err != nil {
					c.logger.Warn("telephony write failed", "err", err)
					c.cancel()
					return
				}
			default:
			}
			if err := c.write(payload); err != nil {
				c.logger.Warn("telephony write failed", "err", err)
				c.cancel()
				return
			}
		case <-ping.C:
			_ = c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteTimeout))
		}
	}
}

func (c *Conn) write(payload []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}
