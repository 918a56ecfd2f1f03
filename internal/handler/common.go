// Package handler contains the Echo HTTP handlers.  Handlers bind and
// validate requests, call the repositories or the booking service and
// translate errors into JSON responses; business rules live one layer
// down.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/resource-booking/internal/model"
	"github.com/iliyamo/resource-booking/internal/service"
)

// getUserID extracts the authenticated user's ID placed into the context
// by the JWT middleware.  JWT numeric claims decode as float64, so both
// shapes are accepted.
func getUserID(c echo.Context) (uint64, bool) {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v), true
	case uint64:
		return v, true
	case int64:
		return uint64(v), true
	default:
		return 0, false
	}
}

// getRole returns the role claim set by the JWT middleware.
func getRole(c echo.Context) string {
	if r, ok := c.Get("role").(string); ok {
		return r
	}
	return ""
}

// fail writes the uniform error envelope.
func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"message": msg})
}

// serviceError maps the service sentinels onto HTTP statuses.  Unknown
// errors become opaque 500s; their detail goes to the log, not the
// client.
func serviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrConflict):
		return fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return fail(c, http.StatusForbidden, err.Error())
	default:
		c.Logger().Error(err)
		return fail(c, http.StatusInternalServerError, "internal server error")
	}
}

// bookingJSON is the wire shape of a booking for user-facing endpoints.
type bookingJSON struct {
	ID            uint64           `json:"id"`
	UserID        uint64           `json:"user_id"`
	ResourceID    uint64           `json:"resource_id"`
	ResourceName  string           `json:"resource_name"`
	ResourceType  string           `json:"resource_type"`
	BookingDate   string           `json:"booking_date"`
	StartTime     string           `json:"start_time"`
	EndTime       string           `json:"end_time"`
	Status        string           `json:"status"`
	Notes         *string          `json:"notes"`
	AttachmentURL *string          `json:"attachment_url"`
	IsOwner       bool             `json:"is_owner"`
	MyRSVPStatus  *string          `json:"my_rsvp_status,omitempty"`
	Attendees     []model.Attendee `json:"attendees"`
	CreatedAt     time.Time        `json:"created_at"`
}

func toBookingJSON(d model.BookingDetail) bookingJSON {
	attendees := d.Attendees
	if attendees == nil {
		attendees = []model.Attendee{}
	}
	return bookingJSON{
		ID:            d.ID,
		UserID:        d.UserID,
		ResourceID:    d.ResourceID,
		ResourceName:  d.ResourceName,
		ResourceType:  d.ResourceType,
		BookingDate:   d.BookingDate,
		StartTime:     d.StartTime,
		EndTime:       d.EndTime,
		Status:        d.Status,
		Notes:         d.Notes,
		AttachmentURL: d.AttachmentURL,
		IsOwner:       d.IsOwner,
		MyRSVPStatus:  d.MyRSVPStatus,
		Attendees:     attendees,
		CreatedAt:     d.CreatedAt,
	}
}

// adminBookingJSON extends bookingJSON with the owner's identity.
type adminBookingJSON struct {
	bookingJSON
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

func toAdminBookingJSON(d model.AdminBookingDetail) adminBookingJSON {
	return adminBookingJSON{
		bookingJSON: toBookingJSON(d.BookingDetail),
		UserName:    d.UserName,
		UserEmail:   d.UserEmail,
	}
}

// resourceJSON is the wire shape of a catalog entry.
type resourceJSON struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Type        string    `json:"type"`
	Capacity    *uint32   `json:"capacity"`
	Location    *string   `json:"location"`
	ImageURL    *string   `json:"image_url"`
	IsActive    bool      `json:"is_active"`
	CategoryID  *uint64   `json:"category_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func toResourceJSON(r model.Resource) resourceJSON {
	return resourceJSON{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Type:        r.Type,
		Capacity:    r.Capacity,
		Location:    r.Location,
		ImageURL:    r.ImageURL,
		IsActive:    r.IsActive,
		CategoryID:  r.CategoryID,
		CreatedAt:   r.CreatedAt,
	}
}

// userJSON is the public projection of a user; the password hash never
// crosses this boundary.
type userJSON struct {
	ID             uint64    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	ProfilePicture *string   `json:"profile_picture"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

func toUserJSON(u model.User) userJSON {
	return userJSON{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           u.Role,
		ProfilePicture: u.ProfilePicture,
		IsActive:       u.IsActive,
		CreatedAt:      u.CreatedAt,
	}
}

// categoryJSON is the wire shape of a resource category.
type categoryJSON struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func toCategoryJSON(cat model.Category) categoryJSON {
	return categoryJSON{ID: cat.ID, Name: cat.Name, Description: cat.Description, CreatedAt: cat.CreatedAt}
}
