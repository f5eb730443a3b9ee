package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"wellness-notify/internal/entities"
	apperrors "wellness-notify/pkg/errors"
)

const (
	EventIdentify     = "identify"
	EventPing         = "ping"
	EventPong         = "pong"
	EventNotification = "notification"
)

// ClientFrame - входящий кадр клиент → сервер.
type ClientFrame struct {
	Event  string  `json:"event" validate:"required,oneof=identify ping"`
	UserID *uint64 `json:"userId,omitempty"`
}

// ServerFrame - исходящий кадр сервер → клиент.
type ServerFrame struct {
	Event        string                 `json:"event"`
	Notification *entities.Notification `json:"notification,omitempty"`
}

var frameValidator = validator.New()

// ParseClientFrame разбирает и проверяет входящий кадр.
// Любая проблема оборачивается в ErrMalformedFrame.
func ParseClientFrame(data []byte) (*ClientFrame, error) {
	var frame ClientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedFrame, err)
	}
	if err := frameValidator.Struct(&frame); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedFrame, err)
	}
	if frame.Event == EventIdentify && (frame.UserID == nil || *frame.UserID == 0) {
		return nil, fmt.Errorf("%w: identify без userId", apperrors.ErrMalformedFrame)
	}
	if frame.UserID != nil && *frame.UserID > entities.MaxUserID {
		return nil, fmt.Errorf("%w: userId вне диапазона", apperrors.ErrMalformedFrame)
	}
	return &frame, nil
}

func EncodeNotificationFrame(n *entities.Notification) ([]byte, error) {
	return json.Marshal(ServerFrame{Event: EventNotification, Notification: n})
}

var pongFrame = []byte(`{"event":"pong"}`)
