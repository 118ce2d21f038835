package transport

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/ds124wfegd/campusres/internal/service"
	"github.com/ds124wfegd/campusres/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	bookingService service.BookingService
}

func NewBookingHandler(bookingService service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

func (h *BookingHandler) CreateBooking(c *gin.Context) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		writeError(c, entity.ErrUnauthorized)
		return
	}

	var req service.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), session.Identity, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, "booking requested", booking)
}

func (h *BookingHandler) GetMyBookings(c *gin.Context) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		writeError(c, entity.ErrUnauthorized)
		return
	}

	bookings, err := h.bookingService.GetUserBookings(c.Request.Context(), session.UID)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "", bookings)
}

// GetSlots serves GET /resources/:id/slots?date=
func (h *BookingHandler) GetSlots(c *gin.Context) {
	date, err := entity.ParseDate(strings.TrimSpace(c.Query("date")))
	if err != nil {
		writeError(c, err)
		return
	}

	var uid string
	if session, ok := middleware.SessionFrom(c); ok {
		uid = session.UID
	}

	board, err := h.bookingService.GetSlotBoard(c.Request.Context(), c.Param("id"), date, uid)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "", board)
}

func (h *BookingHandler) GetPass(c *gin.Context) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		writeError(c, entity.ErrUnauthorized)
		return
	}

	png, err := h.bookingService.BookingPass(c.Request.Context(), c.Param("id"), session)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.bookingService.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "", booking)
}

// CheckPass serves POST /admin/passes/check with the scanned QR token.
func (h *BookingHandler) CheckPass(c *gin.Context) {
	var req service.CheckPassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	booking, err := h.bookingService.CheckPass(c.Request.Context(), req.Token)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "pass accepted", booking)
}

// ListBookings serves GET /admin/bookings?status=&resource_id=&date=&limit=&offset=
func (h *BookingHandler) ListBookings(c *gin.Context) {
	var filter entity.BookingFilter
	if s := c.Query("status"); s != "" {
		status, err := entity.ParseBookingStatus(s)
		if err != nil {
			writeError(c, err)
			return
		}
		filter.Status = status
	}
	if d := c.Query("date"); d != "" {
		date, err := entity.ParseDate(d)
		if err != nil {
			writeError(c, err)
			return
		}
		filter.Date = date
	}
	filter.ResourceID = c.Query("resource_id")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	page, err := h.bookingService.ListBookings(c.Request.Context(), filter, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    page.Bookings,
		Meta: gin.H{
			"total":  page.Total,
			"limit":  page.Limit,
			"offset": page.Offset,
		},
	})
}

func (h *BookingHandler) UpdateBookingStatus(c *gin.Context) {
	var req service.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	status, err := entity.ParseBookingStatus(strings.TrimSpace(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}

	booking, err := h.bookingService.UpdateBookingStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "booking "+string(booking.Status), booking)
}

func (h *BookingHandler) GetStats(c *gin.Context) {
	stats, err := h.bookingService.GetStats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "", stats)
}
