package entity

import (
	"fmt"
	"strings"
	"time"
)

type ResourceType string

const (
	ResourceTypeLab       ResourceType = "Lab"
	ResourceTypeHall      ResourceType = "Hall"
	ResourceTypeRoom      ResourceType = "Room"
	ResourceTypeEquipment ResourceType = "Equipment"
)

var ResourceTypes = []ResourceType{
	ResourceTypeLab,
	ResourceTypeHall,
	ResourceTypeRoom,
	ResourceTypeEquipment,
}

func ParseResourceType(s string) (ResourceType, error) {
	for _, t := range ResourceTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidResourceType, s)
}

type Resource struct {
	ID          string       `json:"id" db:"id" bson:"_id"`
	Name        string       `json:"name" db:"name" bson:"name"`
	Type        ResourceType `json:"type" db:"type" bson:"type"`
	Capacity    int          `json:"capacity" db:"capacity" bson:"capacity"`
	Description string       `json:"description" db:"description" bson:"description"`
	Image       string       `json:"image" db:"image" bson:"image"`
	Features    []string     `json:"features" db:"features" bson:"features"`
	TimeSlots   []string     `json:"time_slots" db:"time_slots" bson:"time_slots"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at" bson:"updated_at"`
}

func (r *Resource) OffersSlot(slot string) bool {
	for _, s := range r.TimeSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// ResourceUpdate carries the fields of a partial update; nil fields are left untouched.
type ResourceUpdate struct {
	Name        *string       `json:"name,omitempty"`
	Type        *ResourceType `json:"type,omitempty"`
	Capacity    *int          `json:"capacity,omitempty"`
	Description *string       `json:"description,omitempty"`
	Image       *string       `json:"image,omitempty"`
	Features    []string      `json:"features,omitempty"`
	TimeSlots   []string      `json:"time_slots,omitempty"`
}

func (u *ResourceUpdate) Empty() bool {
	return u.Name == nil && u.Type == nil && u.Capacity == nil && u.Description == nil &&
		u.Image == nil && u.Features == nil && u.TimeSlots == nil
}

// Apply merges the update into r.
func (u *ResourceUpdate) Apply(r *Resource) {
	if u.Name != nil {
		r.Name = *u.Name
	}
	if u.Type != nil {
		r.Type = *u.Type
	}
	if u.Capacity != nil {
		r.Capacity = *u.Capacity
	}
	if u.Description != nil {
		r.Description = *u.Description
	}
	if u.Image != nil {
		r.Image = *u.Image
	}
	if u.Features != nil {
		r.Features = CleanLabels(u.Features)
	}
	if u.TimeSlots != nil {
		r.TimeSlots = CleanLabels(u.TimeSlots)
	}
}

type ResourceFilter struct {
	Type   ResourceType
	Search string
}

// Matches reports whether r has the filter type and contains the search text
// in its name or description, ignoring case.
func (f ResourceFilter) Matches(r *Resource) bool {
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(r.Name), q) ||
		strings.Contains(strings.ToLower(r.Description), q)
}

// CleanLabels trims each label and drops the empty ones.
func CleanLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

type SlotState string

const (
	SlotAvailable SlotState = "available"
	SlotBooked    SlotState = "booked"
	SlotMine      SlotState = "my_booking"
)

type SlotAvailability struct {
	TimeSlot  string        `json:"time_slot"`
	State     SlotState     `json:"state"`
	BookingID string        `json:"booking_id,omitempty"`
	Status    BookingStatus `json:"status,omitempty"`
}

// ResourceWithAvailability is a catalog entry with the slots still free on Date.
type ResourceWithAvailability struct {
	Resource
	Date           Date     `json:"date,omitempty"`
	AvailableSlots []string `json:"available_slots"`
}

type ResourceWithBookings struct {
	Resource
	Bookings []*Booking `json:"bookings"`
}
