package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Communicator sends one command batch and blocks for the matching response.
type Communicator interface {
	Communicate(ctx context.Context, cmds []Command) (*Response, error)
}

type CommunicatorFunc func(ctx context.Context, cmds []Command) (*Response, error)

func (f CommunicatorFunc) Communicate(ctx context.Context, cmds []Command) (*Response, error) {
	return f(ctx, cmds)
}

// Middleware wraps a Communicator, e.g. to capture images or log frames.
type Middleware func(Communicator) Communicator

// Chain applies mws so that the first middleware is the outermost.
func Chain(c Communicator, mws ...Middleware) Communicator {
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](c)
	}
	return c
}

const DefaultTimeout = 30 * time.Second

// WSClient talks to the engine over a websocket, one message per direction per
// frame.
type WSClient struct {
	mu        sync.Mutex
	conn      *websocket.Conn
	closed    bool
	timeout   time.Duration
	validator *Validator
	log       zerolog.Logger
}

type Option func(*WSClient)

func WithTimeout(d time.Duration) Option {
	return func(c *WSClient) { c.timeout = d }
}

// WithValidation checks every outgoing batch against the command schema.
func WithValidation(v *Validator) Option {
	return func(c *WSClient) { c.validator = v }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *WSClient) { c.log = l }
}

func Dial(ctx context.Context, url string, opts ...Option) (*WSClient, error) {
	c := &WSClient{timeout: DefaultTimeout, log: zerolog.Nop()}
	for _, o := range opts {
		o(c)
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.timeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial engine %s: %w", url, err)
	}
	c.conn = conn
	c.log.Debug().Str("url", url).Msg("engine connected")
	return c, nil
}

func (c *WSClient) Communicate(ctx context.Context, cmds []Command) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, err := MarshalBatch(cmds)
	if err != nil {
		return nil, err
	}
	if c.validator != nil {
		if err := c.validator.ValidateJSON(payload); err != nil {
			return nil, err
		}
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return nil, err
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return nil, fmt.Errorf("send batch: %w", err)
	}

	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(msg, &resp); err != nil {
		return nil, err
	}
	c.log.Trace().Int("frame", resp.Frame).Int("commands", len(cmds)).Strs("records", resp.Tags()).Msg("round trip")
	return &resp, nil
}

func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}
