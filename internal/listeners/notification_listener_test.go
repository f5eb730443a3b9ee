package listeners

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wellness-notify/internal/dto"
	"wellness-notify/internal/entities"
	"wellness-notify/internal/events"
	"wellness-notify/pkg/eventbus"
)

type recordingService struct {
	mu        sync.Mutex
	created   []dto.CreateNotificationDTO
	failUsers map[uint64]bool
}

func (s *recordingService) Create(_ context.Context, payload dto.CreateNotificationDTO) (*entities.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUsers[payload.UserID] {
		return nil, errors.New("db down")
	}
	s.created = append(s.created, payload)
	return &entities.Notification{UserID: payload.UserID}, nil
}

func (s *recordingService) ListForUser(context.Context, uint64, dto.NotificationFilter) ([]entities.Notification, error) {
	return nil, nil
}
func (s *recordingService) MarkRead(context.Context, uint64, string) (*entities.Notification, error) {
	return nil, nil
}
func (s *recordingService) MarkAllRead(context.Context, uint64) (int64, error)    { return 0, nil }
func (s *recordingService) UnreadCount(context.Context, uint64) (int64, error)    { return 0, nil }
func (s *recordingService) ExportForUser(context.Context, uint64) ([]byte, error) { return nil, nil }

func TestNotificationListener_MaterialPublishedFansOut(t *testing.T) {
	svc := &recordingService{}
	bus := eventbus.New(zap.NewNop())
	NewNotificationListener(svc, zap.NewNop()).Register(bus)

	bus.Publish(context.Background(), events.MaterialPublishedEvent{
		CourseID:      5,
		CourseTitle:   "Gentle Yoga",
		MaterialID:    9,
		MaterialTitle: "Reading Aloud",
		Recipients:    []uint64{42, 43, 42, 0},
	})
	require.NoError(t, bus.Wait(context.Background()))

	require.Len(t, svc.created, 2)
	for _, payload := range svc.created {
		assert.Equal(t, string(entities.NotificationCourseMaterial), payload.Type)
		assert.Equal(t, uint64(5), *payload.Metadata.CourseID)
		assert.Equal(t, uint64(9), *payload.Metadata.MaterialID)
		assert.Nil(t, payload.Metadata.SessionID)
	}
}

func TestNotificationListener_EventsMapToTypes(t *testing.T) {
	starts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		event    eventbus.Event
		wantType entities.NotificationType
	}{
		{events.HomeworkAssignedEvent{CourseID: 1, HomeworkID: 2, Title: "Breathing log", Recipients: []uint64{1}}, entities.NotificationHomework},
		{events.SessionReminderEvent{CourseID: 1, SessionID: 3, StartsAt: starts, Recipients: []uint64{1}}, entities.NotificationSessionReminder},
		{events.EnrollmentAcceptedEvent{CourseID: 1, UserID: 1}, entities.NotificationCourseAcceptance},
		{events.InviteSentEvent{CourseID: 1, UserID: 1, InvitedBy: "Anna"}, entities.NotificationCourseInvite},
	}

	for _, tc := range cases {
		t.Run(tc.event.Name(), func(t *testing.T) {
			payloads, err := buildNotifications(tc.event)
			require.NoError(t, err)
			require.Len(t, payloads, 1)
			assert.Equal(t, string(tc.wantType), payloads[0].Type)
			assert.Equal(t, uint64(1), payloads[0].UserID)
			assert.NotEmpty(t, payloads[0].Title)
			assert.NotEmpty(t, payloads[0].Message)
		})
	}
}

func TestNotificationListener_PartialFailureReported(t *testing.T) {
	svc := &recordingService{failUsers: map[uint64]bool{43: true}}
	listener := NewNotificationListener(svc, zap.NewNop())

	err := listener.handle(context.Background(), events.SessionReminderEvent{
		CourseID:   1,
		SessionID:  2,
		StartsAt:   time.Now(),
		Recipients: []uint64{42, 43},
	})
	assert.Error(t, err)
	require.Len(t, svc.created, 1)
	assert.Equal(t, uint64(42), svc.created[0].UserID)
}
