package dto

import "wellness-notify/internal/entities"

// CreateNotificationDTO - внутренний вызов от бизнес-логики курсов, не публичный эндпоинт.
type CreateNotificationDTO struct {
	UserID   uint64            `json:"userId" validate:"required,gt=0,max=9223372036854775807"`
	Type     string            `json:"type" validate:"required,oneof=course_material homework session_reminder course_acceptance course_invite"`
	Title    string            `json:"title" validate:"required,max=255"`
	Message  string            `json:"message" validate:"required"`
	Metadata entities.Metadata `json:"metadata"`
}

// NotificationFilter - параметры выборки для listForUser.
type NotificationFilter struct {
	UnreadOnly bool
	Limit      uint64
	Offset     uint64
}

type NotificationListResponse struct {
	Notifications []entities.Notification `json:"notifications"`
}

type NotificationResponse struct {
	Notification *entities.Notification `json:"notification"`
}

type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
