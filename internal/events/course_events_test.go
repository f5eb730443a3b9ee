package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	body := []byte(`{"courseId":5,"courseTitle":"Gentle Yoga","materialId":9,"materialTitle":"Reading Aloud","recipients":[42,43]}`)

	event, err := Parse(MaterialPublishedName, func(target interface{}) error {
		return json.Unmarshal(body, target)
	})
	require.NoError(t, err)

	material, ok := event.(MaterialPublishedEvent)
	require.True(t, ok, "событие должно быть значением, а не указателем")
	assert.Equal(t, uint64(9), material.MaterialID)
	assert.Equal(t, []uint64{42, 43}, material.Recipients)
	assert.Equal(t, MaterialPublishedName, event.Name())
}

func TestParse_UnknownName(t *testing.T) {
	_, err := Parse("course.deleted", func(interface{}) error { return nil })
	assert.ErrorIs(t, err, ErrUnknownEvent)
}
