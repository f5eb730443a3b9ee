package websocket

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"wellness-notify/pkg/config"
	apperrors "wellness-notify/pkg/errors"
)

var errFrameRateLimited = errors.New("превышен лимит частоты кадров")

// State - состояние соединения: Connected → Identified → Closed.
type State int32

const (
	StateConnected State = iota
	StateIdentified
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateIdentified:
		return "identified"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Transport - то, что соединению нужно от *websocket.Conn.
type Transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

type Options struct {
	SendBuffer     int
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	IdleTimeout    time.Duration
	MaxMessageSize int64
	FrameRate      float64
	FrameBurst     int
}

func OptionsFromConfig(cfg config.WebSocketConfig) Options {
	return Options{
		SendBuffer:     cfg.SendBuffer,
		WriteWait:      cfg.WriteWait,
		PongWait:       cfg.PongWait,
		PingPeriod:     cfg.PingPeriod(),
		IdleTimeout:    cfg.IdleTimeout,
		MaxMessageSize: cfg.MaxMessageSize,
		FrameRate:      cfg.FrameRate,
		FrameBurst:     cfg.FrameBurst,
	}
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = (o.PongWait * 9) / 10
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 512
	}
	return o
}

// Connection - одно живое соединение. Единственный писатель в транспорт - writePump.
type Connection struct {
	id        string
	transport Transport
	registry  ConnectionRegistry
	opts      Options
	logger    *zap.Logger
	limiter   *rate.Limiter

	send      chan []byte
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once

	mu             sync.Mutex
	state          State
	userID         uint64
	verifiedUserID uint64
	lastSeenAt     time.Time
}

func NewConnection(transport Transport, registry ConnectionRegistry, opts Options, logger *zap.Logger) *Connection {
	opts = opts.withDefaults()
	id := uuid.NewString()

	c := &Connection{
		id:         id,
		transport:  transport,
		registry:   registry,
		opts:       opts,
		logger:     logger.With(zap.String("connID", id)),
		send:       make(chan []byte, opts.SendBuffer),
		done:       make(chan struct{}),
		state:      StateConnected,
		lastSeenAt: time.Now(),
	}
	if opts.FrameRate > 0 {
		burst := opts.FrameBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.FrameRate), burst)
	}
	return c
}

// WithVerifiedUser привязывает соединение к владельцу токена: identify с другим userId отклоняется.
func (c *Connection) WithVerifiedUser(userID uint64) *Connection {
	c.mu.Lock()
	c.verifiedUserID = userID
	c.mu.Unlock()
	return c
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) IsClosed() bool { return c.closed.Load() }

func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) UserID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *Connection) LastSeenAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeenAt
}

// Done закрывается при переходе в Closed.
func (c *Connection) Done() <-chan struct{} { return c.done }

// Enqueue не блокирует: переполненная очередь - сбой доставки для этого соединения.
func (c *Connection) Enqueue(frame []byte) error {
	if c.IsClosed() {
		return apperrors.ErrConnectionClosed
	}
	select {
	case <-c.done:
		return apperrors.ErrConnectionClosed
	case c.send <- frame:
		return nil
	default:
		return apperrors.ErrSendQueueOverflow
	}
}

// Close переводит соединение в Closed и снимает его с реестра. Повторные вызовы ничего не делают.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		close(c.done)
		c.registry.Unregister(c)
	})
}

// Run обслуживает соединение до закрытия транспорта или отмены ctx.
func (c *Connection) Run(ctx context.Context) {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump()
	}()
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()

	c.readPump()
	c.Close()
	<-writerDone
}

func (c *Connection) readPump() {
	c.transport.SetReadLimit(c.opts.MaxMessageSize)
	_ = c.transport.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.transport.SetPongHandler(func(string) error {
		c.touch()
		return c.transport.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, data, err := c.transport.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) &&
				!c.IsClosed() {
				c.logger.Warn("WebSocket: ошибка чтения", zap.Error(err))
			}
			return
		}
		if c.IsClosed() {
			return
		}

		c.touch()
		_ = c.transport.SetReadDeadline(time.Now().Add(c.opts.PongWait))

		if err := c.handleFrame(data); err != nil {
			c.logger.Debug("WebSocket: кадр отброшен", zap.Error(err))
		}
	}
}

func (c *Connection) handleFrame(data []byte) error {
	frame, err := ParseClientFrame(data)
	if err != nil {
		return err
	}

	// identify лимитом не режется: без него соединение недостижимо для рассылки.
	if frame.Event != EventIdentify && c.limiter != nil && !c.limiter.Allow() {
		return errFrameRateLimited
	}

	switch frame.Event {
	case EventIdentify:
		return c.identify(*frame.UserID)
	case EventPing:
		if c.State() != StateIdentified {
			return nil
		}
		if err := c.Enqueue(pongFrame); err != nil && !errors.Is(err, apperrors.ErrConnectionClosed) {
			c.logger.Debug("WebSocket: pong не поставлен в очередь", zap.Error(err))
		}
	}
	return nil
}

func (c *Connection) identify(userID uint64) error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return apperrors.ErrConnectionClosed
	}
	if c.verifiedUserID != 0 && c.verifiedUserID != userID {
		c.mu.Unlock()
		return apperrors.ErrIdentityMismatch
	}
	previous := c.userID
	c.userID = userID
	c.state = StateIdentified
	c.mu.Unlock()

	c.registry.Register(userID, c)
	if previous != 0 && previous != userID {
		c.logger.Info("WebSocket: соединение перепривязано", zap.Uint64("from", previous), zap.Uint64("to", userID))
	}
	return nil
}

func (c *Connection) touch() {
	c.mu.Lock()
	c.lastSeenAt = time.Now()
	c.mu.Unlock()
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.transport.Close()
	}()

	var idle <-chan time.Time
	if c.opts.IdleTimeout > 0 {
		idleTicker := time.NewTicker(c.opts.IdleTimeout / 2)
		defer idleTicker.Stop()
		idle = idleTicker.C
	}

	for {
		select {
		case <-c.done:
			_ = c.transport.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			_ = c.transport.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case message := <-c.send:
			_ = c.transport.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.transport.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("WebSocket: ошибка записи, соединение снимается", zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.transport.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.transport.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-idle:
			if time.Since(c.LastSeenAt()) > c.opts.IdleTimeout {
				c.logger.Info("WebSocket: нет трафика, соединение закрывается", zap.Duration("idleTimeout", c.opts.IdleTimeout))
				c.Close()
			}
		}
	}
}
