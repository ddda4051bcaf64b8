package redis

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/KOMKZ/go-yogan-cache/logger"
	"github.com/KOMKZ/go-yogan-cache/retry"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// State of the remote connection.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateReady
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Option customizes a Connection.
type Option func(*Connection)

// WithClientFactory replaces the client builder, mainly for tests.
func WithClientFactory(f ClientFactory) Option {
	return func(c *Connection) {
		c.factory = f
	}
}

// Connection owns one logical connection (single node or cluster) to the
// remote tier. A lost connection is rebuilt in the background with
// exponential backoff until MaxReconnectAttempts is reached.
type Connection struct {
	cfg     Config
	logger  *logger.CtxZapLogger
	factory ClientFactory
	policy  retry.Policy

	state atomic.Int32

	// dialMu serializes Connect and reconnect attempts
	dialMu sync.Mutex

	mu             sync.RWMutex
	client         redis.UniversalClient
	generation     uint64
	hooks          []redis.Hook
	attempts       int
	reconnectTimer *time.Timer
	reconnectSeq   uint64
	stopKeepAlive  chan struct{}
	closed         bool
	lastErr        error
	reconnects     int64
}

// NewConnection validates cfg. It does not dial; call Connect.
func NewConnection(cfg Config, log *logger.CtxZapLogger, opts ...Option) (*Connection, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetLogger(ModuleName)
	}

	c := &Connection{
		cfg:     cfg,
		logger:  log,
		factory: NewUniversalClient,
		policy: retry.Policy{
			Strategy:    retry.ExponentialBackoff(cfg.ReconnectBaseDelay, retry.WithMaxDelay(cfg.ReconnectMaxDelay)),
			MaxAttempts: cfg.MaxReconnectAttempts,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the effective configuration.
func (c *Connection) Config() Config {
	return c.cfg
}

// State returns the current state.
func (c *Connection) State() State {
	return State(c.state.Load())
}

// IsReady is a lock-free check used on every cache operation.
func (c *Connection) IsReady() bool {
	return c.State() == StateReady
}

// Connect dials and performs the PING handshake. On failure the connection
// stays disconnected and no retry is scheduled.
func (c *Connection) Connect(ctx context.Context) error {
	c.dialMu.Lock()
	defer c.dialMu.Unlock()

	c.mu.Lock()
	if c.State() == StateReady {
		c.mu.Unlock()
		return nil
	}
	c.closed = false
	c.attempts = 0
	c.cancelReconnectLocked()
	gen := c.generation + 1
	c.state.Store(int32(StateConnecting))
	c.mu.Unlock()

	client, err := c.dial(ctx, gen)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.lastErr = err
		c.state.Store(int32(StateDisconnected))
		c.logger.ErrorCtx(ctx, "remote cache connect failed",
			zap.String("url", redactURL(c.cfg.URL)), zap.Error(err))
		return ErrConnect.Wrap(err)
	}
	c.installLocked(client, gen)
	c.logger.InfoCtx(ctx, "remote cache connected", zap.String("url", redactURL(c.cfg.URL)))
	return nil
}

// Disconnect closes the client and disables reconnection. Safe to call repeatedly.
func (c *Connection) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.cancelReconnectLocked()
	c.stopKeepAliveLocked()
	client := c.client
	c.client = nil
	c.generation++
	c.state.Store(int32(StateDisconnected))
	c.mu.Unlock()

	if client == nil {
		return nil
	}
	c.logger.InfoCtx(ctx, "remote cache disconnected")
	return client.Close()
}

// Shutdown is Disconnect under the name the stack uses for teardown.
func (c *Connection) Shutdown(ctx context.Context) error {
	return c.Disconnect(ctx)
}

// Client returns the live client or ErrNotConnected.
func (c *Connection) Client() (redis.UniversalClient, error) {
	if !c.IsReady() {
		return nil, ErrNotConnected
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.client == nil {
		return nil, ErrNotConnected
	}
	return c.client, nil
}

// Ping round-trips a PING within the command timeout.
func (c *Connection) Ping(ctx context.Context) error {
	client, err := c.Client()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return ErrPing.Wrap(err)
	}
	return nil
}

// AddHook registers h on the current client and on every rebuilt one.
func (c *Connection) AddHook(h redis.Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, h)
	if c.client != nil {
		c.client.AddHook(h)
	}
}

// Stats is a point-in-time view of the connection.
type Stats struct {
	State             State
	ReconnectAttempts int
	Reconnects        int64
	LastError         error
}

func (c *Connection) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		State:             c.State(),
		ReconnectAttempts: c.attempts,
		Reconnects:        c.reconnects,
		LastError:         c.lastErr,
	}
}

func (c *Connection) dial(ctx context.Context, gen uint64) (redis.UniversalClient, error) {
	client, err := c.factory(c.cfg)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	hooks := append([]redis.Hook(nil), c.hooks...)
	c.mu.RUnlock()
	for _, h := range hooks {
		client.AddHook(h)
	}
	client.AddHook(&lossHook{conn: c, gen: gen})

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (c *Connection) installLocked(client redis.UniversalClient, gen uint64) {
	old := c.client
	c.client = client
	c.generation = gen
	c.attempts = 0
	c.lastErr = nil
	c.stopKeepAliveLocked()
	stop := make(chan struct{})
	c.stopKeepAlive = stop
	c.state.Store(int32(StateReady))
	go c.keepAlive(gen, stop)

	if old != nil {
		go old.Close()
	}
}

// keepAlive pings on every tick; any failure counts as a lost connection.
func (c *Connection) keepAlive(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.RLock()
			client := c.client
			current := c.generation == gen
			c.mu.RUnlock()
			if !current || client == nil {
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), c.cfg.CommandTimeout)
			err := client.Ping(ctx).Err()
			cancel()
			if err != nil {
				c.handleConnectionLost(gen, err)
				return
			}
		}
	}
}

// handleConnectionLost moves a ready connection to disconnected and arms
// reconnection. Signals from superseded clients are ignored.
func (c *Connection) handleConnectionLost(gen uint64, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.generation || c.State() != StateReady {
		return
	}
	c.lastErr = cause
	c.state.Store(int32(StateDisconnected))
	c.stopKeepAliveLocked()
	c.logger.Warn("remote cache connection lost", zap.Error(cause))
	c.scheduleReconnectLocked()
}

// scheduleReconnectLocked arms at most one reconnect timer.
func (c *Connection) scheduleReconnectLocked() {
	if c.closed || c.reconnectTimer != nil {
		return
	}

	c.attempts++
	delay, ok := c.policy.Delay(c.attempts)
	if !ok {
		c.attempts = c.policy.MaxAttempts
		c.logger.Error("remote cache reconnect attempts exhausted",
			zap.Int("max_attempts", c.policy.MaxAttempts),
			zap.Error(ErrReconnectExhausted.Wrap(c.lastErr)))
		return
	}

	c.logger.Info("remote cache reconnect scheduled",
		zap.Int("attempt", c.attempts),
		zap.Duration("delay", delay))
	c.reconnectSeq++
	seq := c.reconnectSeq
	c.reconnectTimer = time.AfterFunc(delay, func() { c.reconnect(seq) })
}

func (c *Connection) reconnect(seq uint64) {
	c.dialMu.Lock()
	defer c.dialMu.Unlock()

	c.mu.Lock()
	if seq != c.reconnectSeq {
		// cancelled by Connect or Disconnect after the timer fired
		c.mu.Unlock()
		return
	}
	if c.closed || c.State() == StateReady {
		c.reconnectTimer = nil
		c.mu.Unlock()
		return
	}
	attempt := c.attempts
	gen := c.generation + 1
	c.state.Store(int32(StateConnecting))
	c.mu.Unlock()

	client, err := c.dial(context.Background(), gen)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconnectTimer = nil

	if c.closed {
		c.state.Store(int32(StateDisconnected))
		if client != nil {
			go client.Close()
		}
		return
	}
	if err != nil {
		c.lastErr = err
		c.state.Store(int32(StateDisconnected))
		c.logger.Warn("remote cache reconnect failed",
			zap.Int("attempt", attempt), zap.Error(err))
		c.scheduleReconnectLocked()
		return
	}

	c.reconnects++
	c.installLocked(client, gen)
	c.logger.Info("remote cache reconnected", zap.Int("attempt", attempt))
}

func (c *Connection) cancelReconnectLocked() {
	c.reconnectSeq++
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

func (c *Connection) stopKeepAliveLocked() {
	if c.stopKeepAlive != nil {
		close(c.stopKeepAlive)
		c.stopKeepAlive = nil
	}
}

// isConnectionError separates transport failures from server replies and
// per-call timeouts. Timeouts are misses, not losses.
func isConnectionError(err error) bool {
	if err == nil || errors.Is(err, redis.Nil) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, redis.ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return !netErr.Timeout()
	}
	return false
}

// lossHook reports transport failures seen by any command.
type lossHook struct {
	conn *Connection
	gen  uint64
}

func (h *lossHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *lossHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if isConnectionError(err) {
			h.conn.handleConnectionLost(h.gen, err)
		}
		return err
	}
}

func (h *lossHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if isConnectionError(err) {
			h.conn.handleConnectionLost(h.gen, err)
		}
		return err
	}
}
