package listeners

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"wellness-notify/internal/dto"
	"wellness-notify/internal/entities"
	"wellness-notify/internal/events"
	"wellness-notify/internal/services"
	"wellness-notify/pkg/eventbus"
)

// NotificationListener превращает события курсов в уведомления получателям.
type NotificationListener struct {
	notificationService services.NotificationServiceInterface
	logger              *zap.Logger
}

func NewNotificationListener(notificationService services.NotificationServiceInterface, logger *zap.Logger) *NotificationListener {
	return &NotificationListener{notificationService: notificationService, logger: logger}
}

func (l *NotificationListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.MaterialPublishedName, l.handle)
	bus.Subscribe(events.HomeworkAssignedName, l.handle)
	bus.Subscribe(events.SessionReminderName, l.handle)
	bus.Subscribe(events.EnrollmentAcceptedName, l.handle)
	bus.Subscribe(events.InviteSentName, l.handle)
	l.logger.Info("NotificationListener подписан на события курсов")
}

func (l *NotificationListener) handle(ctx context.Context, event eventbus.Event) error {
	payloads, err := buildNotifications(event)
	if err != nil {
		return err
	}

	var errs []error
	for _, payload := range payloads {
		if _, err := l.notificationService.Create(ctx, payload); err != nil {
			l.logger.Error("Не удалось создать уведомление по событию",
				zap.String("event", event.Name()),
				zap.Uint64("userID", payload.UserID),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func ptr(v uint64) *uint64 { return &v }

func buildNotifications(event eventbus.Event) ([]dto.CreateNotificationDTO, error) {
	switch e := event.(type) {
	case events.MaterialPublishedEvent:
		return fanOut(e.Recipients, dto.CreateNotificationDTO{
			Type:     string(entities.NotificationCourseMaterial),
			Title:    "New Course Material Available",
			Message:  fmt.Sprintf("%q has been added to %s.", e.MaterialTitle, e.CourseTitle),
			Metadata: entities.Metadata{CourseID: ptr(e.CourseID), MaterialID: ptr(e.MaterialID)},
		}), nil

	case events.HomeworkAssignedEvent:
		message := fmt.Sprintf("New homework: %s.", e.Title)
		if e.DueAt != nil {
			message = fmt.Sprintf("New homework: %s. Due %s.", e.Title, e.DueAt.Format("Jan 2, 15:04"))
		}
		return fanOut(e.Recipients, dto.CreateNotificationDTO{
			Type:     string(entities.NotificationHomework),
			Title:    "Homework Assigned",
			Message:  message,
			Metadata: entities.Metadata{CourseID: ptr(e.CourseID), HomeworkID: ptr(e.HomeworkID)},
		}), nil

	case events.SessionReminderEvent:
		return fanOut(e.Recipients, dto.CreateNotificationDTO{
			Type:     string(entities.NotificationSessionReminder),
			Title:    "Upcoming Session",
			Message:  fmt.Sprintf("%s starts at %s.", e.CourseTitle, e.StartsAt.Format("Jan 2, 15:04")),
			Metadata: entities.Metadata{CourseID: ptr(e.CourseID), SessionID: ptr(e.SessionID)},
		}), nil

	case events.EnrollmentAcceptedEvent:
		return fanOut([]uint64{e.UserID}, dto.CreateNotificationDTO{
			Type:     string(entities.NotificationCourseAcceptance),
			Title:    "Enrollment Accepted",
			Message:  fmt.Sprintf("You have been accepted into %s.", e.CourseTitle),
			Metadata: entities.Metadata{CourseID: ptr(e.CourseID)},
		}), nil

	case events.InviteSentEvent:
		message := fmt.Sprintf("You are invited to join %s.", e.CourseTitle)
		if e.InvitedBy != "" {
			message = fmt.Sprintf("%s invited you to join %s.", e.InvitedBy, e.CourseTitle)
		}
		return fanOut([]uint64{e.UserID}, dto.CreateNotificationDTO{
			Type:     string(entities.NotificationCourseInvite),
			Title:    "Course Invitation",
			Message:  message,
			Metadata: entities.Metadata{CourseID: ptr(e.CourseID)},
		}), nil
	}
	return nil, fmt.Errorf("NotificationListener: неизвестное событие %q", event.Name())
}

// fanOut копирует шаблон каждому получателю, повторы userID схлопываются.
func fanOut(recipients []uint64, template dto.CreateNotificationDTO) []dto.CreateNotificationDTO {
	seen := make(map[uint64]struct{}, len(recipients))
	payloads := make([]dto.CreateNotificationDTO, 0, len(recipients))
	for _, userID := range recipients {
		if userID == 0 {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		payload := template
		payload.UserID = userID
		payloads = append(payloads, payload)
	}
	return payloads
}
