// Package push keeps a best-effort websocket to the backend and applies
// the todo events it receives to the store.
package push

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/idilsaglam/tada/internal/api"
)

// State of the channel.
type State string

const (
	Disconnected       State = "disconnected"
	Connecting         State = "connecting"
	Connected          State = "connected"
	ReconnectScheduled State = "reconnect_scheduled"
	// Exhausted means every reconnect attempt failed. Only Connect leaves it.
	Exhausted State = "exhausted"
)

// MaxAttempts bounds consecutive reconnects. The delay before attempt n
// (counting from zero) is 2^n seconds.
const MaxAttempts = 5

var (
	ErrNotConnected = errors.New("push channel not connected")
	ErrNoToken      = errors.New("push channel needs an auth token")
)

// Options configures a Channel.
type Options struct {
	URL     string
	Tokens  api.TokenSource
	Applier Applier
	Dialer  Dialer // nil means WebsocketDialer{}
	Clock   clockwork.Clock
	Logger  *slog.Logger
}

// Channel is the push connection and its reconnect schedule.
//
// Every Connect and Disconnect starts a new generation. Read loops and
// timers from an older generation see the mismatch and stop without
// touching state, so a closed connection never reschedules after
// Disconnect.
type Channel struct {
	url     string
	tokens  api.TokenSource
	applier Applier
	dialer  Dialer
	clock   clockwork.Clock
	log     *slog.Logger

	mu       sync.Mutex
	state    State
	attempts int
	gen      uint64
	conn     Conn
	timer    clockwork.Timer
	life     context.Context
	stop     context.CancelFunc

	writeMu sync.Mutex
}

func New(opts Options) *Channel {
	dialer := opts.Dialer
	if dialer == nil {
		dialer = WebsocketDialer{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = api.StaticToken("")
	}
	return &Channel{
		url:     opts.URL,
		tokens:  tokens,
		applier: opts.Applier,
		dialer:  dialer,
		clock:   clock,
		log:     logger.With("component", "push"),
		state:   Disconnected,
	}
}

// State returns the current state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts is the number of reconnects made since the last open.
func (c *Channel) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Connect drops any current connection, resets the retry budget and dials.
// It returns once the first dial settles; a failed dial has already
// scheduled its retry. Without a token nothing is dialed or scheduled.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.tokens.Token() == "" {
		c.resetLocked()
		c.state = Disconnected
		c.mu.Unlock()
		c.log.Warn("no auth token, push channel stays disconnected")
		return ErrNoToken
	}
	c.resetLocked()
	c.attempts = 0
	c.life, c.stop = context.WithCancel(context.WithoutCancel(ctx))
	gen := c.gen
	c.mu.Unlock()

	return c.dial(ctx, gen)
}

// Disconnect cancels a pending reconnect and closes the connection.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.state = Disconnected
	c.log.Debug("push channel disconnected")
}

// Send writes v as JSON. It is only possible while connected; otherwise the
// message is dropped with a warning.
func (c *Channel) Send(v any) error {
	c.mu.Lock()
	conn, state := c.conn, c.state
	c.mu.Unlock()
	if state != Connected || conn == nil {
		c.log.Warn("push channel not connected, message dropped", "state", state)
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(v)
}

// resetLocked ends the current generation.
func (c *Channel) resetLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
}

func (c *Channel) dial(ctx context.Context, gen uint64) error {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return nil
	}
	token := c.tokens.Token()
	if token == "" {
		c.state = Disconnected
		c.mu.Unlock()
		c.log.Warn("auth token gone, push reconnect abandoned")
		return ErrNoToken
	}
	c.state = Connecting
	attempt := c.attempts
	c.mu.Unlock()

	u, err := withToken(c.url, token)
	var conn Conn
	if err == nil {
		conn, err = c.dialer.Dial(ctx, u)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		if conn != nil {
			conn.Close()
		}
		return nil
	}
	if err != nil {
		c.log.Warn("push connect failed", "attempt", attempt, "error", err)
		c.scheduleLocked(gen)
		return err
	}

	c.conn = conn
	c.state = Connected
	c.attempts = 0
	c.log.Info("push channel connected")
	go c.readLoop(conn, gen)
	return nil
}

// scheduleLocked arms the next reconnect, or gives up after MaxAttempts.
func (c *Channel) scheduleLocked(gen uint64) {
	if c.attempts >= MaxAttempts {
		c.state = Exhausted
		c.timer = nil
		c.log.Warn("push reconnect attempts exhausted", "attempts", c.attempts)
		return
	}
	delay := time.Duration(1<<c.attempts) * time.Second
	c.state = ReconnectScheduled
	c.timer = c.clock.AfterFunc(delay, func() {
		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}
		c.attempts++
		c.timer = nil
		life := c.life
		n := c.attempts
		c.mu.Unlock()

		c.log.Info("push reconnecting", "attempt", n)
		c.dial(life, gen)
	})
	c.log.Info("push reconnect scheduled", "in", delay)
}

func (c *Channel) readLoop(conn Conn, gen uint64) {
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if gen == c.gen && c.conn == conn {
				c.conn = nil
				c.log.Info("push connection closed", "error", err)
				c.scheduleLocked(gen)
			}
			c.mu.Unlock()
			return
		}
		c.handle(data)
	}
}

func (c *Channel) handle(data []byte) {
	ev, err := ParseEvent(data)
	if err != nil {
		c.log.Warn("push message dropped", "error", err)
		return
	}
	if c.applier == nil {
		return
	}
	if err := Dispatch(c.applier, ev); err != nil {
		if errors.Is(err, ErrUnknownEvent) {
			c.log.Info("push event ignored", "type", ev.Type)
			return
		}
		c.log.Warn("push event dropped", "type", ev.Type, "error", err)
		return
	}
	c.log.Debug("push event applied", "type", ev.Kind())
}
