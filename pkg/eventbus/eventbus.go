package eventbus

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event - любое доменное событие.
type Event interface {
	Name() string
}

// Listener - обработчик события.
type Listener func(ctx context.Context, event Event) error

// Bus - шина событий в памяти процесса. Обработчики выполняются асинхронно.
type Bus struct {
	listeners      map[string][]Listener
	mu             sync.RWMutex
	handlerTimeout time.Duration

	// idle закрыт, пока нет выполняющихся обработчиков.
	inflightMu sync.Mutex
	inflight   int
	idle       chan struct{}

	logger *zap.Logger
}

func New(logger *zap.Logger) *Bus {
	idle := make(chan struct{})
	close(idle)
	return &Bus{
		listeners:      make(map[string][]Listener),
		handlerTimeout: time.Minute,
		idle:           idle,
		logger:         logger,
	}
}

func (b *Bus) begin() {
	b.inflightMu.Lock()
	if b.inflight == 0 {
		b.idle = make(chan struct{})
	}
	b.inflight++
	b.inflightMu.Unlock()
}

func (b *Bus) end() {
	b.inflightMu.Lock()
	b.inflight--
	if b.inflight == 0 {
		close(b.idle)
	}
	b.inflightMu.Unlock()
}

// WithHandlerTimeout задает предельное время одного обработчика.
func (b *Bus) WithHandlerTimeout(timeout time.Duration) *Bus {
	if timeout > 0 {
		b.handlerTimeout = timeout
	}
	return b
}

func (b *Bus) Subscribe(eventName string, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventName] = append(b.listeners[eventName], listener)
}

// Publish вызывает всех подписчиков события. Отмена ctx издателя обработчики не прерывает.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	listeners := append([]Listener(nil), b.listeners[event.Name()]...)
	b.mu.RUnlock()

	if len(listeners) == 0 {
		b.logger.Debug("Нет подписчиков на событие", zap.String("event", event.Name()))
		return
	}

	base := context.WithoutCancel(ctx)
	for _, listener := range listeners {
		b.begin()
		go func(l Listener) {
			defer b.end()

			ctxWithTimeout, cancel := context.WithTimeout(base, b.handlerTimeout)
			defer cancel()

			if err := l(ctxWithTimeout, event); err != nil {
				b.logger.Error("Ошибка в обработчике события",
					zap.String("event", event.Name()),
					zap.Error(err),
				)
			}
		}(listener)
	}
}

// Wait ждет, пока не останется выполняющихся обработчиков, или отмены ctx.
func (b *Bus) Wait(ctx context.Context) error {
	b.inflightMu.Lock()
	idle := b.idle
	b.inflightMu.Unlock()

	select {
	case <-idle:
		return nil
	default:
	}

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
