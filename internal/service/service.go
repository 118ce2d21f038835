package service

import (
	"context"
	"io"

	"github.com/ds124wfegd/campusres/internal/entity"
)

type BookingService interface {
	CreateBooking(ctx context.Context, user entity.Identity, req *CreateBookingRequest) (*entity.Booking, error)
	GetBooking(ctx context.Context, id string) (*entity.Booking, error)
	GetUserBookings(ctx context.Context, userID string) ([]*entity.BookingView, error)
	GetBookingsForDate(ctx context.Context, resourceID string, date entity.Date) ([]*entity.Booking, error)
	GetSlotBoard(ctx context.Context, resourceID string, date entity.Date, userID string) ([]entity.SlotAvailability, error)
	ListBookings(ctx context.Context, filter entity.BookingFilter, limit, offset int) (*BookingPage, error)

	// Administrative operations
	UpdateBookingStatus(ctx context.Context, id string, status entity.BookingStatus) (*entity.Booking, error)
	GetStats(ctx context.Context) (*DashboardStats, error)

	// BookingPass returns the QR pass PNG of an approved booking to its owner or an admin.
	BookingPass(ctx context.Context, id string, requester *entity.Session) ([]byte, error)
	// CheckPass verifies a scanned pass and returns the approved booking it admits.
	CheckPass(ctx context.Context, token string) (*entity.Booking, error)
}

type ResourceService interface {
	CreateResource(ctx context.Context, req *CreateResourceRequest) (*entity.Resource, error)
	GetResource(ctx context.Context, id string) (*entity.Resource, error)
	ListResources(ctx context.Context, filter entity.ResourceFilter, date entity.Date) ([]*entity.ResourceWithAvailability, error)
	UpdateResource(ctx context.Context, id string, update *entity.ResourceUpdate) (*entity.Resource, error)
	DeleteResource(ctx context.Context, id string) error
	UploadImage(ctx context.Context, id string, src io.Reader) (*entity.Resource, error)
	GetResourcesWithBookings(ctx context.Context) ([]*entity.ResourceWithBookings, error)

	// Booking cleanup used by the cascade task and the orphan sweeper
	RemoveResourceBookings(ctx context.Context, resourceID string) (int64, error)
	SweepOrphanedBookings(ctx context.Context) (int64, error)
}

type AuthService interface {
	SignIn(ctx context.Context, req *SignInRequest) (*entity.Session, error)
	SignUp(ctx context.Context, req *SignUpRequest) (*entity.Session, error)
	SignInWithProvider(ctx context.Context, req *OAuthRequest) (*entity.Session, error)
	ParseToken(token string) (*entity.Session, error)
}

type AirQualityService interface {
	Current(ctx context.Context, lat, lon float64) (*entity.AirQuality, error)
	ForPlace(ctx context.Context, name string) (*entity.AirQuality, error)
	Places() []entity.Place
}

type CreateBookingRequest struct {
	ResourceID string `json:"resource_id" binding:"required"`
	Date       string `json:"date" binding:"required,booking_date"`
	TimeSlot   string `json:"time_slot" binding:"required"`
}

type CheckPassRequest struct {
	Token string `json:"token" binding:"required"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type CreateResourceRequest struct {
	Name        string   `json:"name" binding:"required"`
	Type        string   `json:"type" binding:"required,resource_type"`
	Capacity    int      `json:"capacity" binding:"required,min=1"`
	Description string   `json:"description"`
	Image       string   `json:"image" binding:"omitempty,url"`
	Features    []string `json:"features"`
	TimeSlots   []string `json:"time_slots" binding:"required,min=1"`
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// OAuthRequest carries an id token obtained from an OAuth provider such as google.com.
type OAuthRequest struct {
	ProviderID string `json:"provider_id" binding:"required"`
	IDToken    string `json:"id_token" binding:"required"`
}

type BookingPage struct {
	Bookings []*entity.BookingView `json:"bookings"`
	Total    int                   `json:"total"`
	Limit    int                   `json:"limit"`
	Offset   int                   `json:"offset"`
}

type DashboardStats struct {
	Resources int                 `json:"resources"`
	Bookings  entity.BookingStats `json:"bookings"`
}
