package websocket

import (
	"go.uber.org/zap"

	"wellness-notify/internal/entities"
)

// Outcome - итог рассылки. Ни один вариант не является ошибкой для вызывающего.
type Outcome int

const (
	// OutcomeNoConnections - у пользователя нет живых соединений, уведомление ждет опроса.
	OutcomeNoConnections Outcome = iota
	// OutcomeDelivered - кадр поставлен хотя бы в одно соединение.
	OutcomeDelivered
	// OutcomeFailed - соединения были, но ни одно не приняло кадр.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoConnections:
		return "no_connections"
	case OutcomeDelivered:
		return "delivered"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type BroadcastResult struct {
	Outcome   Outcome
	Delivered int
	Failed    int
}

// Broadcaster - то, что нужно сервису уведомлений от канала доставки.
type Broadcaster interface {
	Broadcast(n *entities.Notification) BroadcastResult
}

type Dispatcher struct {
	registry ConnectionRegistry
	logger   *zap.Logger
}

func NewDispatcher(registry ConnectionRegistry, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, logger: logger}
}

// Broadcast ставит кадр в очередь каждого соединения владельца без ожидания записи.
// Соединение, не принявшее кадр, закрывается и снимается с реестра; повторов нет.
func (d *Dispatcher) Broadcast(n *entities.Notification) BroadcastResult {
	if n == nil {
		return BroadcastResult{Outcome: OutcomeNoConnections}
	}

	conns := d.registry.ConnectionsFor(n.UserID)
	if len(conns) == 0 {
		d.logger.Debug("Для userID не найдено активных соединений", zap.Uint64("userID", n.UserID), zap.String("notificationID", n.ID))
		return BroadcastResult{Outcome: OutcomeNoConnections}
	}

	frame, err := EncodeNotificationFrame(n)
	if err != nil {
		d.logger.Error("Ошибка сериализации сообщения для WebSocket", zap.String("notificationID", n.ID), zap.Error(err))
		return BroadcastResult{Outcome: OutcomeFailed, Failed: len(conns)}
	}

	result := BroadcastResult{}
	for _, conn := range conns {
		if err := conn.Enqueue(frame); err != nil {
			result.Failed++
			d.logger.Warn("WebSocket: доставка не удалась, соединение снимается",
				zap.Uint64("userID", n.UserID),
				zap.String("connID", conn.ID()),
				zap.Error(err),
			)
			conn.Close()
			continue
		}
		result.Delivered++
	}

	if result.Delivered > 0 {
		result.Outcome = OutcomeDelivered
	} else {
		result.Outcome = OutcomeFailed
	}

	d.logger.Info("Уведомление разослано",
		zap.Uint64("userID", n.UserID),
		zap.String("notificationID", n.ID),
		zap.Int("delivered", result.Delivered),
		zap.Int("failed", result.Failed),
	)
	return result
}
