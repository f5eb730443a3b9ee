package events

import (
	"errors"
	"fmt"
	"time"

	"wellness-notify/pkg/eventbus"
)

const (
	MaterialPublishedName  = "course.material.published"
	HomeworkAssignedName   = "course.homework.assigned"
	SessionReminderName    = "course.session.reminder"
	EnrollmentAcceptedName = "course.enrollment.accepted"
	InviteSentName         = "course.invite.sent"
)

// MaterialPublishedEvent - в курсе опубликован новый материал, получатели - записанные слушатели.
type MaterialPublishedEvent struct {
	CourseID      uint64   `json:"courseId" validate:"required"`
	CourseTitle   string   `json:"courseTitle" validate:"required"`
	MaterialID    uint64   `json:"materialId" validate:"required"`
	MaterialTitle string   `json:"materialTitle" validate:"required"`
	Recipients    []uint64 `json:"recipients" validate:"required,min=1"`
}

func (e MaterialPublishedEvent) Name() string { return MaterialPublishedName }

type HomeworkAssignedEvent struct {
	CourseID   uint64     `json:"courseId" validate:"required"`
	HomeworkID uint64     `json:"homeworkId" validate:"required"`
	Title      string     `json:"title" validate:"required"`
	DueAt      *time.Time `json:"dueAt,omitempty"`
	Recipients []uint64   `json:"recipients" validate:"required,min=1"`
}

func (e HomeworkAssignedEvent) Name() string { return HomeworkAssignedName }

type SessionReminderEvent struct {
	CourseID    uint64    `json:"courseId" validate:"required"`
	CourseTitle string    `json:"courseTitle" validate:"required"`
	SessionID   uint64    `json:"sessionId" validate:"required"`
	StartsAt    time.Time `json:"startsAt" validate:"required"`
	Recipients  []uint64  `json:"recipients" validate:"required,min=1"`
}

func (e SessionReminderEvent) Name() string { return SessionReminderName }

// EnrollmentAcceptedEvent - заявка пользователя на курс одобрена.
type EnrollmentAcceptedEvent struct {
	CourseID    uint64 `json:"courseId" validate:"required"`
	CourseTitle string `json:"courseTitle" validate:"required"`
	UserID      uint64 `json:"userId" validate:"required"`
}

func (e EnrollmentAcceptedEvent) Name() string { return EnrollmentAcceptedName }

type InviteSentEvent struct {
	CourseID    uint64 `json:"courseId" validate:"required"`
	CourseTitle string `json:"courseTitle" validate:"required"`
	UserID      uint64 `json:"userId" validate:"required"`
	InvitedBy   string `json:"invitedBy,omitempty"`
}

func (e InviteSentEvent) Name() string { return InviteSentName }

// ErrUnknownEvent - имя события не из набора событий курсов.
var ErrUnknownEvent = errors.New("неизвестное событие")

// Parse разбирает тело события по его имени; bind заполняет переданную структуру.
func Parse(name string, bind func(target interface{}) error) (eventbus.Event, error) {
	switch name {
	case MaterialPublishedName:
		return parseAs[MaterialPublishedEvent](bind)
	case HomeworkAssignedName:
		return parseAs[HomeworkAssignedEvent](bind)
	case SessionReminderName:
		return parseAs[SessionReminderEvent](bind)
	case EnrollmentAcceptedName:
		return parseAs[EnrollmentAcceptedEvent](bind)
	case InviteSentName:
		return parseAs[InviteSentEvent](bind)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
}

func parseAs[T eventbus.Event](bind func(target interface{}) error) (eventbus.Event, error) {
	var event T
	if err := bind(&event); err != nil {
		return nil, err
	}
	return event, nil
}
