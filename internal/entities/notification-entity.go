package entities

import (
	"math"
	"time"
)

// MaxUserID - верхняя граница userId: колонка user_id в Postgres - BIGINT.
const MaxUserID uint64 = math.MaxInt64

// NotificationType - закрытый набор видов уведомлений.
// От вида зависит, какие поля Metadata заполнены и куда ведет клик на клиенте.
type NotificationType string

const (
	NotificationCourseMaterial   NotificationType = "course_material"
	NotificationHomework         NotificationType = "homework"
	NotificationSessionReminder  NotificationType = "session_reminder"
	NotificationCourseAcceptance NotificationType = "course_acceptance"
	NotificationCourseInvite     NotificationType = "course_invite"
)

var notificationTypes = map[NotificationType]struct{}{
	NotificationCourseMaterial:   {},
	NotificationHomework:         {},
	NotificationSessionReminder:  {},
	NotificationCourseAcceptance: {},
	NotificationCourseInvite:     {},
}

func (t NotificationType) Valid() bool {
	_, ok := notificationTypes[t]
	return ok
}

func (t NotificationType) String() string {
	return string(t)
}

// Metadata переносится как есть, канал доставки ее не интерпретирует.
type Metadata struct {
	CourseID   *uint64 `json:"courseId,omitempty"`
	MaterialID *uint64 `json:"materialId,omitempty"`
	HomeworkID *uint64 `json:"homeworkId,omitempty"`
	SessionID  *uint64 `json:"sessionId,omitempty"`
}

type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	UserID    uint64           `json:"userId"`
	IsRead    bool             `json:"isRead"`
	Metadata  Metadata         `json:"metadata"`
	CreatedAt time.Time        `json:"createdAt"`
}
