package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

var (
	// ErrClosed is returned when sending on a closed connection.
	ErrClosed = errors.New("connection closed")
	// ErrBufferFull ends a connection whose peer does not keep up.
	ErrBufferFull = errors.New("send buffer full")
)

// Settings tune a connection.
type Settings struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	// PingTimeout is the idle time after which an empty keepalive message is
	// sent. It must be well below the peer's ReadTimeout.
	PingTimeout time.Duration
	BufferSize  int
}

// DefaultSettings returns the settings used when none are given.
func DefaultSettings() *Settings {
	return &Settings{
		HandshakeTimeout: 5 * time.Second,
		WriteTimeout:     5 * time.Second,
		ReadTimeout:      15 * time.Second,
		PingTimeout:      5 * time.Second,
		BufferSize:       64,
	}
}

// Conn runs the read and write loops of one websocket. Outgoing values are
// encoded as JSON text messages; incoming messages are decoded into In.
// Empty messages are keepalives in both directions.
type Conn[In any] struct {
	ws       *websocket.Conn
	settings *Settings
	name     string

	ctx     context.Context
	cancel  context.CancelFunc
	send    chan []byte
	receive chan In
	done    chan struct{}

	errMu sync.Mutex
	err   error
}

// NewConn starts the loops for ws. The connection ends when ctx is done,
// Close is called, or either loop fails. name only labels log lines.
func NewConn[In any](ctx context.Context, ws *websocket.Conn, settings *Settings, name string) *Conn[In] {
	if settings == nil {
		settings = DefaultSettings()
	}
	cctx, cancel := context.WithCancel(ctx)
	c := &Conn[In]{
		ws:       ws,
		settings: settings,
		name:     name,
		ctx:      cctx,
		cancel:   cancel,
		send:     make(chan []byte, settings.BufferSize),
		receive:  make(chan In, settings.BufferSize),
		done:     make(chan struct{}),
	}

	writerDone := make(chan struct{})
	readerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop()
	}()
	go func() {
		defer close(readerDone)
		c.readLoop()
	}()
	go func() {
		<-c.ctx.Done()
		<-writerDone
		ws.Close()
		<-readerDone
		close(c.receive)
		close(c.done)
		glog.V(1).Infof("[t]%s closed", c.name)
	}()
	return c
}

// Send queues v for writing. It blocks while the send buffer is full and
// fails with ErrClosed once the connection has ended.
func (c *Conn[In]) Send(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	select {
	case <-c.ctx.Done():
		return ErrClosed
	default:
	}
	select {
	case <-c.ctx.Done():
		return ErrClosed
	case c.send <- raw:
		return nil
	}
}

// TrySend queues v without blocking. If the send buffer is full the peer is
// too slow: the connection is ended and ErrBufferFull returned.
func (c *Conn[In]) TrySend(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	select {
	case <-c.ctx.Done():
		return ErrClosed
	default:
	}
	select {
	case c.send <- raw:
		return nil
	default:
		glog.Warningf("[t]%s send buffer full (%d), closing", c.name, cap(c.send))
		c.fail(ErrBufferFull)
		return ErrBufferFull
	}
}

// Receive returns the decoded incoming messages. The channel is closed when
// the connection ends.
func (c *Conn[In]) Receive() <-chan In { return c.receive }

// Done is closed once both loops have stopped.
func (c *Conn[In]) Done() <-chan struct{} { return c.done }

// Err returns the error that ended the connection, or nil for a normal
// close or a connection still running.
func (c *Conn[In]) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Close ends the connection with a normal close frame and waits for the
// loops to stop.
func (c *Conn[In]) Close() error {
	c.cancel()
	<-c.done
	return nil
}

func (c *Conn[In]) fail(err error) {
	c.errMu.Lock()
	if c.err == nil && c.ctx.Err() == nil {
		c.err = err
	}
	c.errMu.Unlock()
	c.cancel()
}

func (c *Conn[In]) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			deadline := time.Now().Add(c.settings.WriteTimeout)
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			if err := c.ws.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
				glog.V(2).Infof("[ts]%s close frame: %v", c.name, err)
			}
			return
		case raw := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.settings.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
				glog.Infof("[ts]%s-> error = %v", c.name, err)
				c.fail(fmt.Errorf("write: %w", err))
				return
			}
			glog.V(2).Infof("[ts]%s-> %s", c.name, raw)
		case <-time.After(c.settings.PingTimeout):
			c.ws.SetWriteDeadline(time.Now().Add(c.settings.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, nil); err != nil {
				c.fail(fmt.Errorf("keepalive: %w", err))
				return
			}
		}
	}
}

func (c *Conn[In]) readLoop() {
	for {
		c.ws.SetReadDeadline(time.Now().Add(c.settings.ReadTimeout))
		messageType, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				glog.V(1).Infof("[tr]%s<- closed by peer", c.name)
				c.cancel()
				return
			}
			if c.ctx.Err() == nil {
				glog.Infof("[tr]%s<- error = %v", c.name, err)
			}
			c.fail(fmt.Errorf("read: %w", err))
			return
		}
		if messageType != websocket.TextMessage {
			glog.V(2).Infof("[tr]other=%d %s<-", messageType, c.name)
			continue
		}
		if len(raw) == 0 {
			continue
		}

		var msg In
		if err := json.Unmarshal(raw, &msg); err != nil {
			glog.Warningf("[tr]%s<- undecodable message: %v", c.name, err)
			continue
		}
		glog.V(2).Infof("[tr]%s<- %s", c.name, raw)
		select {
		case <-c.ctx.Done():
			return
		case c.receive <- msg:
		}
	}
}
