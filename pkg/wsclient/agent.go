package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"wellness-notify/internal/dto"
	"wellness-notify/internal/entities"
	appwebsocket "wellness-notify/pkg/websocket"
)

// ErrRetriesExhausted - серия попыток переподключения закончилась по BackoffPolicy.MaxRetries.
var ErrRetriesExhausted = errors.New("wsclient: попытки переподключения исчерпаны")

type Config struct {
	// URL - адрес канала доставки, например ws://host:8080/ws.
	URL string `validate:"required,url"`
	// APIURL - база REST API для сверки и отметки прочтения. Пустое значение отключает сверку.
	APIURL string `validate:"omitempty,url"`
	Token  string
	UserID uint64 `validate:"required,gt=0"`

	PingInterval time.Duration
	// ReadTimeout - сколько ждать любого кадра сервера, включая транспортный ping, прежде чем разорвать соединение.
	ReadTimeout time.Duration
	// PollInterval - период резервного опроса REST API, 0 - без опроса.
	PollInterval time.Duration
	Backoff      BackoffPolicy

	OnNotification func(entities.Notification)

	Dialer     *websocket.Dialer `validate:"-"`
	HTTPClient *http.Client      `validate:"-"`
	Logger     *zap.Logger       `validate:"-"`
}

// Agent держит соединение открытым, переподключается с паузами и сверяет пропущенное через REST.
// Локальное состояние общее для push и опроса, поэтому уведомление передается в OnNotification один раз.
type Agent struct {
	cfg    Config
	logger *zap.Logger

	mu    sync.Mutex
	state map[string]entities.Notification

	connected atomic.Bool
}

func New(cfg Config) (*Agent, error) {
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("wsclient: неверная конфигурация: %w", err)
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 25 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 90 * time.Second
	}
	if cfg.Backoff == (BackoffPolicy{}) {
		cfg.Backoff = DefaultBackoff()
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Agent{
		cfg:    cfg,
		logger: cfg.Logger.With(zap.Uint64("userID", cfg.UserID)),
		state:  make(map[string]entities.Notification),
	}, nil
}

// Connected - открыто ли сейчас соединение.
func (a *Agent) Connected() bool { return a.connected.Load() }

// Run работает до отмены ctx или исчерпания попыток.
func (a *Agent) Run(ctx context.Context) error {
	if a.cfg.PollInterval > 0 && a.cfg.APIURL != "" {
		go a.pollLoop(ctx)
	}

	backoff := a.cfg.Backoff.New()
	for {
		established, err := a.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if established {
			backoff = a.cfg.Backoff.New()
		}

		delay, stop := backoff.Next()
		if stop {
			return fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
		}
		a.logger.Info("Соединение потеряно, переподключение", zap.Duration("delay", delay), zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (a *Agent) dialURL() string {
	if a.cfg.Token == "" {
		return a.cfg.URL
	}
	u, err := url.Parse(a.cfg.URL)
	if err != nil {
		return a.cfg.URL
	}
	q := u.Query()
	q.Set("token", a.cfg.Token)
	u.RawQuery = q.Encode()
	return u.String()
}

// session - одно соединение от dial до закрытия. established == true, если identify отправлен.
func (a *Agent) session(ctx context.Context) (established bool, err error) {
	conn, _, err := a.cfg.Dialer.DialContext(ctx, a.dialURL(), nil)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	var writeMu sync.Mutex
	writeFrame := func(frame appwebsocket.ClientFrame) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(frame)
	}

	userID := a.cfg.UserID
	if err := writeFrame(appwebsocket.ClientFrame{Event: appwebsocket.EventIdentify, UserID: &userID}); err != nil {
		return false, fmt.Errorf("identify: %w", err)
	}
	a.connected.Store(true)
	defer a.connected.Store(false)

	_ = conn.SetReadDeadline(time.Now().Add(a.cfg.ReadTimeout))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(a.cfg.ReadTimeout))
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})
	a.logger.Info("Соединение установлено", zap.String("url", a.cfg.URL))

	// Все, что создано, пока соединения не было, забирается через REST.
	if a.cfg.APIURL != "" {
		go func() {
			if _, err := a.Reconcile(ctx); err != nil && ctx.Err() == nil {
				a.logger.Warn("Сверка уведомлений не удалась", zap.Error(err))
			}
		}()
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(a.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				_ = conn.Close()
				return
			case <-ticker.C:
				if err := writeFrame(appwebsocket.ClientFrame{Event: appwebsocket.EventPing}); err != nil {
					_ = conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		_ = conn.SetReadDeadline(time.Now().Add(a.cfg.ReadTimeout))

		var frame appwebsocket.ServerFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			a.logger.Debug("Кадр сервера не разобран", zap.Error(err))
			continue
		}
		switch frame.Event {
		case appwebsocket.EventNotification:
			if frame.Notification != nil {
				a.merge([]entities.Notification{*frame.Notification})
			}
		case appwebsocket.EventPong:
		default:
			a.logger.Debug("Неизвестное событие сервера", zap.String("event", frame.Event))
		}
	}
}

func (a *Agent) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.Reconcile(ctx); err != nil && ctx.Err() == nil {
				a.logger.Warn("Резервный опрос не удался", zap.Error(err))
			}
		}
	}
}

// Reconcile забирает список через REST и возвращает уведомления, которых не было в локальном состоянии.
func (a *Agent) Reconcile(ctx context.Context) ([]entities.Notification, error) {
	var body dto.NotificationListResponse
	if err := a.doJSON(ctx, http.MethodGet, "/api/notifications", &body); err != nil {
		return nil, err
	}
	return a.merge(body.Notifications), nil
}

func (a *Agent) MarkRead(ctx context.Context, id string) (*entities.Notification, error) {
	var body dto.NotificationResponse
	if err := a.doJSON(ctx, http.MethodPut, "/api/notifications/"+url.PathEscape(id)+"/read", &body); err != nil {
		return nil, err
	}
	if body.Notification == nil {
		return nil, fmt.Errorf("wsclient: пустой ответ на отметку прочтения %s", id)
	}
	a.merge([]entities.Notification{*body.Notification})
	return body.Notification, nil
}

// Notifications - снимок локального состояния, новые первыми.
func (a *Agent) Notifications() []entities.Notification {
	a.mu.Lock()
	list := make([]entities.Notification, 0, len(a.state))
	for _, n := range a.state {
		list = append(list, n)
	}
	a.mu.Unlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list
}

// merge обновляет локальное состояние. Прочитанное на сервере не становится снова непрочитанным.
func (a *Agent) merge(incoming []entities.Notification) []entities.Notification {
	var fresh []entities.Notification

	a.mu.Lock()
	for _, n := range incoming {
		if n.ID == "" {
			continue
		}
		known, ok := a.state[n.ID]
		if ok {
			if known.IsRead {
				n.IsRead = true
			}
			a.state[n.ID] = n
			continue
		}
		a.state[n.ID] = n
		fresh = append(fresh, n)
	}
	a.mu.Unlock()

	if a.cfg.OnNotification != nil {
		for _, n := range fresh {
			a.cfg.OnNotification(n)
		}
	}
	return fresh
}

func (a *Agent) doJSON(ctx context.Context, method, path string, out interface{}) error {
	if a.cfg.APIURL == "" {
		return errors.New("wsclient: APIURL не задан")
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(a.cfg.APIURL, "/")+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if a.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.cfg.Token)
	}

	resp, err := a.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("wsclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var failure struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		return &StatusError{Code: resp.StatusCode, Message: failure.Message}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// StatusError - ответ REST API с кодом, отличным от 200.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("wsclient: сервер ответил %d: %s", e.Code, e.Message)
}
