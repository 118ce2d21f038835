package entity

import (
	"errors"
	"fmt"
)

var (
	// Resource errors
	ErrResourceNotFound     = errors.New("resource not found")
	ErrInvalidResourceType  = errors.New("invalid resource type")
	ErrResourceHasNoSlot    = errors.New("time slot is not offered by this resource")
	ErrResourceImageMissing = errors.New("image is required")

	// Booking errors
	ErrBookingNotFound      = errors.New("booking not found")
	ErrSlotConflict         = errors.New("slot already booked")
	ErrInvalidBookingStatus = errors.New("invalid booking status")
	ErrInvalidTransition    = errors.New("invalid booking status transition")
	ErrInvalidDate          = errors.New("invalid booking date")
	ErrPassUnavailable      = errors.New("pass is only issued for approved bookings")
	ErrInvalidPass          = errors.New("pass is invalid")

	// Session errors
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTokenInvalid       = errors.New("session token is invalid or expired")
	ErrEmailExists        = errors.New("email is already registered")
	ErrWeakPassword       = errors.New("password should be at least 6 characters")

	// General errors
	ErrInvalidInput     = errors.New("invalid input")
	ErrExternalService  = errors.New("external service failure")
	ErrConcurrentUpdate = errors.New("concurrent update detected")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden operation")
)

// TransitionError is returned when a status change is not in the transition table.
type TransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change booking status from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
