package entity

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending  BookingStatus = "pending"
	BookingStatusApproved BookingStatus = "approved"
	BookingStatusRejected BookingStatus = "rejected"
)

// bookingTransitions lists the statuses a booking may move to from a given status.
// Approved and rejected are terminal.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending: {BookingStatusApproved, BookingStatusRejected},
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	switch BookingStatus(s) {
	case BookingStatusPending, BookingStatusApproved, BookingStatusRejected:
		return BookingStatus(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidBookingStatus, s)
	}
}

// Holds reports whether a booking in this status occupies its slot.
func (s BookingStatus) Holds() bool {
	return s != BookingStatusRejected
}

func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, next := range bookingTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// CheckTransition returns a *TransitionError when from -> to is not in the transition table.
func CheckTransition(from, to BookingStatus) error {
	if !from.CanTransitionTo(to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

type Booking struct {
	ID         string        `json:"id" db:"id" bson:"_id"`
	ResourceID string        `json:"resource_id" db:"resource_id" bson:"resource_id"`
	Date       Date          `json:"date" db:"date" bson:"date"`
	TimeSlot   string        `json:"time_slot" db:"time_slot" bson:"time_slot"`
	UserID     string        `json:"user_id" db:"user_id" bson:"user_id"`
	UserEmail  string        `json:"user_email" db:"user_email" bson:"user_email"`
	Status     BookingStatus `json:"status" db:"status" bson:"status"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at" db:"updated_at" bson:"updated_at"`
}

// SlotKey is the composite key on which at most one non-rejected booking may exist.
type SlotKey struct {
	ResourceID string
	Date       Date
	TimeSlot   string
}

func (b *Booking) SlotKey() SlotKey {
	return SlotKey{ResourceID: b.ResourceID, Date: b.Date, TimeSlot: b.TimeSlot}
}

func (k SlotKey) String() string {
	return k.ResourceID + "|" + string(k.Date) + "|" + k.TimeSlot
}

// BookingView is a booking enriched with the resource it references.
type BookingView struct {
	Booking
	ResourceName  string `json:"resource_name"`
	ResourceImage string `json:"resource_image,omitempty"`
	ResourceType  string `json:"resource_type"`
}

type BookingFilter struct {
	ResourceID string
	Date       Date
	UserID     string
	Status     BookingStatus
}

// Matches applies the non-empty fields of the filter.
func (f BookingFilter) Matches(b *Booking) bool {
	if f.ResourceID != "" && b.ResourceID != f.ResourceID {
		return false
	}
	if f.Date != "" && b.Date != f.Date {
		return false
	}
	if f.UserID != "" && b.UserID != f.UserID {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	return true
}

type BookingStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

func CountBookings(bookings []*Booking) BookingStats {
	stats := BookingStats{Total: len(bookings)}
	for _, b := range bookings {
		switch b.Status {
		case BookingStatusPending:
			stats.Pending++
		case BookingStatusApproved:
			stats.Approved++
		case BookingStatusRejected:
			stats.Rejected++
		}
	}
	return stats
}
