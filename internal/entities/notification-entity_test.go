package entities

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationType_Valid(t *testing.T) {
	for _, tp := range []NotificationType{
		NotificationCourseMaterial, NotificationHomework, NotificationSessionReminder,
		NotificationCourseAcceptance, NotificationCourseInvite,
	} {
		assert.True(t, tp.Valid(), tp)
	}
	assert.False(t, NotificationType("sms").Valid())
	assert.False(t, NotificationType("").Valid())
}

func TestNotification_JSONShape(t *testing.T) {
	courseID, materialID := uint64(3), uint64(11)
	n := Notification{
		ID:        "n-1",
		Type:      NotificationCourseMaterial,
		Title:     "New Reading Aloud Available",
		Message:   "Материал доступен",
		UserID:    42,
		Metadata:  Metadata{CourseID: &courseID, MaterialID: &materialID},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	raw, err := json.Marshal(n)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "course_material", decoded["type"])
	assert.Equal(t, float64(42), decoded["userId"])
	assert.Equal(t, false, decoded["isRead"])
	assert.Equal(t, map[string]interface{}{"courseId": float64(3), "materialId": float64(11)}, decoded["metadata"])
}
