package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceUpdateApply(t *testing.T) {
	r := &Resource{
		Name:      "Room 101",
		Type:      ResourceTypeRoom,
		Capacity:  30,
		Features:  []string{"Whiteboard"},
		TimeSlots: []string{"09:00-10:00"},
	}

	capacity := 40
	update := &ResourceUpdate{
		Capacity:  &capacity,
		TimeSlots: []string{" 09:00-10:00 ", "", "10:00-11:00"},
	}
	assert.False(t, update.Empty())
	update.Apply(r)

	assert.Equal(t, "Room 101", r.Name)
	assert.Equal(t, ResourceTypeRoom, r.Type)
	assert.Equal(t, 40, r.Capacity)
	assert.Equal(t, []string{"Whiteboard"}, r.Features)
	assert.Equal(t, []string{"09:00-10:00", "10:00-11:00"}, r.TimeSlots)
	assert.True(t, r.OffersSlot("10:00-11:00"))
	assert.False(t, r.OffersSlot("11:00-12:00"))

	assert.True(t, (&ResourceUpdate{}).Empty())
}

func TestParseResourceType(t *testing.T) {
	for _, rt := range ResourceTypes {
		got, err := ParseResourceType(string(rt))
		assert.NoError(t, err)
		assert.Equal(t, rt, got)
	}

	_, err := ParseResourceType("lab")
	assert.ErrorIs(t, err, ErrInvalidResourceType)
}

func TestAirQualityLevel(t *testing.T) {
	want := []string{"Unknown", "Good", "Fair", "Moderate", "Poor", "Very Poor", "Unknown"}
	for i, level := range want {
		assert.Equal(t, level, AirQualityLevel(i))
	}
}
