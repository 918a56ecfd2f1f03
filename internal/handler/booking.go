package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/resource-booking/internal/service"
	"github.com/iliyamo/resource-booking/internal/storage"
)

// BookingHandler serves the booking lifecycle endpoints.  All rules live
// in the service; this layer only binds, authenticates and shapes JSON.
type BookingHandler struct {
	svc      *service.BookingService
	uploader storage.Uploader
}

func NewBookingHandler(svc *service.BookingService, uploader storage.Uploader) *BookingHandler {
	return &BookingHandler{svc: svc, uploader: uploader}
}

type createBookingRequest struct {
	ResourceID  uint64   `json:"resource_id" validate:"required"`
	BookingDate string   `json:"booking_date" validate:"required"`
	StartTime   string   `json:"start_time" validate:"required"`
	EndTime     string   `json:"end_time" validate:"required"`
	Notes       *string  `json:"notes"`
	AttendeeIDs []uint64 `json:"attendee_ids"`
}

// Create books a resource for the caller.
func (h *BookingHandler) Create(c echo.Context) error {
	userID, ok := getUserID(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "missing user identity")
	}
	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	detail, err := h.svc.Create(c.Request().Context(), userID, service.CreateInput{
		ResourceID:  req.ResourceID,
		Date:        req.BookingDate,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Notes:       req.Notes,
		AttendeeIDs: req.AttendeeIDs,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, toBookingJSON(*detail))
}

// List returns the caller's bookings: owned plus invited, deduplicated.
func (h *BookingHandler) List(c echo.Context) error {
	userID, ok := getUserID(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "missing user identity")
	}
	details, err := h.svc.ListForUser(c.Request().Context(), userID)
	if err != nil {
		return serviceError(c, err)
	}
	out := make([]bookingJSON, 0, len(details))
	for _, d := range details {
		out = append(out, toBookingJSON(d))
	}
	return c.JSON(http.StatusOK, out)
}

// ListAll returns every booking in the system.  Mounted behind the admin
// role middleware.
func (h *BookingHandler) ListAll(c echo.Context) error {
	details, err := h.svc.ListAll(c.Request().Context())
	if err != nil {
		return serviceError(c, err)
	}
	out := make([]adminBookingJSON, 0, len(details))
	for _, d := range details {
		out = append(out, toAdminBookingJSON(d))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one booking visible to the caller.
func (h *BookingHandler) Get(c echo.Context) error {
	userID, ok := getUserID(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "missing user identity")
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid booking id")
	}
	detail, err := h.svc.Get(c.Request().Context(), id, userID, getRole(c))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingJSON(*detail))
}

type rescheduleRequest struct {
	ResourceID  uint64  `json:"resource_id" validate:"required"`
	BookingDate string  `json:"booking_date" validate:"required"`
	StartTime   string  `json:"start_time" validate:"required"`
	EndTime     string  `json:"end_time" validate:"required"`
	Notes       *string `json:"notes"`
}

// Update reschedules a booking.
func (h *BookingHandler) Update(c echo.Context) error {
	userID, ok := getUserID(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "missing user identity")
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid booking id")
	}
	var req rescheduleRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	detail, err := h.svc.Reschedule(c.Request().Context(), id, userID, getRole(c), service.RescheduleInput{
		ResourceID: req.ResourceID,
		Date:       req.BookingDate,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Notes:      req.Notes,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingJSON(*detail))
}

// Cancel marks a booking cancelled.  Repeating the call is harmless.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, ok := getUserID(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "missing user identity")
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid booking id")
	}
	if err := h.svc.Cancel(c.Request().Context(), id, userID, getRole(c)); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "booking cancelled"})
}

type rsvpRequest struct {
	Status string `json:"status" validate:"required,oneof=accepted declined"`
}

// RSVP records the caller's answer to an invitation.
func (h *BookingHandler) RSVP(c echo.Context) error {
	userID, ok := getUserID(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "missing user identity")
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid booking id")
	}
	var req rsvpRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, http.StatusBadRequest, "status must be accepted or declined")
	}
	if err := h.svc.RSVP(c.Request().Context(), id, userID, req.Status); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "rsvp recorded", "status": req.Status})
}

// UploadAttachment stores a file against a booking.  The handler pushes
// the blob to storage first, then lets the service run the ownership
// check and persist the URL.
func (h *BookingHandler) UploadAttachment(c echo.Context) error {
	userID, ok := getUserID(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "missing user identity")
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid booking id")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return fail(c, http.StatusBadRequest, "file field is required")
	}
	f, err := fh.Open()
	if err != nil {
		return fail(c, http.StatusBadRequest, "could not read uploaded file")
	}
	defer f.Close()

	ctx := c.Request().Context()
	url, err := h.uploader.Upload(ctx, f, "attachments")
	if err != nil {
		if errors.Is(err, storage.ErrUploadsDisabled) {
			return fail(c, http.StatusServiceUnavailable, "file uploads are not configured")
		}
		return serviceError(c, err)
	}
	if err := h.svc.SetAttachment(ctx, id, userID, getRole(c), url); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"attachment_url": url})
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
