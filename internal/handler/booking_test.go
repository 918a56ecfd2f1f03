package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/resource-booking/internal/model"
	"github.com/iliyamo/resource-booking/internal/service"
	"github.com/iliyamo/resource-booking/internal/storage"
	"github.com/iliyamo/resource-booking/internal/validation"
)

// Stub stores giving the handler a real BookingService to talk to.  One
// booking (id 42, owned by user 1, resource 7) exists; the overlap count
// is configurable per test.

type stubTx struct{}

func (stubTx) RunTx(_ context.Context, fn func(tx *sql.Tx) error) error { return fn(nil) }

type stubStores struct{ overlaps int }

func (s *stubStores) GetByID(_ context.Context, id uint64) (model.Resource, error) {
	if id != 7 {
		return model.Resource{}, sql.ErrNoRows
	}
	return model.Resource{ID: 7, Name: "Room A", Type: "room", IsActive: true}, nil
}

func (s *stubStores) CountOverlappingTx(context.Context, *sql.Tx, uint64, string, string, string, uint64) (int, error) {
	return s.overlaps, nil
}
func (s *stubStores) CreateTx(_ context.Context, _ *sql.Tx, b *model.Booking) error {
	b.ID = 42
	return nil
}
func (s *stubStores) UpdateScheduleTx(context.Context, *sql.Tx, uint64, uint64, string, string, string, *string) error {
	return nil
}
func (s *stubStores) bookingOr404(id uint64) (model.Booking, error) {
	if id != 42 {
		return model.Booking{}, sql.ErrNoRows
	}
	return model.Booking{ID: 42, UserID: 1, ResourceID: 7, Status: model.BookingConfirmed}, nil
}
func (s *stubStores) GetByIDBooking(_ context.Context, id uint64) (model.Booking, error) {
	return s.bookingOr404(id)
}
func (s *stubStores) GetDetail(_ context.Context, id uint64) (model.BookingDetail, error) {
	b, err := s.bookingOr404(id)
	if err != nil {
		return model.BookingDetail{}, err
	}
	return model.BookingDetail{Booking: b, ResourceName: "Room A", ResourceType: "room"}, nil
}
func (s *stubStores) UpdateStatus(context.Context, uint64, string) error  { return nil }
func (s *stubStores) SetAttachment(context.Context, uint64, string) error { return nil }
func (s *stubStores) ListOwned(context.Context, uint64) ([]model.BookingDetail, error) {
	return nil, nil
}
func (s *stubStores) ListInvited(context.Context, uint64) ([]model.BookingDetail, error) {
	return nil, nil
}
func (s *stubStores) ListAll(context.Context) ([]model.AdminBookingDetail, error) { return nil, nil }

func (s *stubStores) AddBulkTx(context.Context, *sql.Tx, uint64, []uint64) error { return nil }
func (s *stubStores) ListByBooking(context.Context, uint64) ([]model.Attendee, error) {
	return nil, nil
}
func (s *stubStores) ListByBookings(context.Context, []uint64) (map[uint64][]model.Attendee, error) {
	return map[uint64][]model.Attendee{}, nil
}
func (s *stubStores) UpdateStatusAttendee(_ context.Context, _ uint64, userID uint64, _ string) error {
	if userID != 2 {
		return sql.ErrNoRows
	}
	return nil
}

// bookingStoreView and attendeeStoreView split the single stub across the
// two interfaces where method names collide.
type bookingStoreView struct{ *stubStores }

func (v bookingStoreView) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	return v.stubStores.GetByIDBooking(ctx, id)
}

type attendeeStoreView struct{ *stubStores }

func (v attendeeStoreView) UpdateStatus(ctx context.Context, bookingID, userID uint64, status string) error {
	return v.stubStores.UpdateStatusAttendee(ctx, bookingID, userID, status)
}

type stubUsers struct{}

func (stubUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	return model.User{ID: id, Name: "someone"}, nil
}

func newTestHandler(overlaps int) *BookingHandler {
	st := &stubStores{overlaps: overlaps}
	svc := service.NewBookingService(stubTx{}, bookingStoreView{st}, attendeeStoreView{st}, st, stubUsers{}, service.NopNotifier{})
	return NewBookingHandler(svc, storage.DisabledUploader{})
}

func doJSON(t *testing.T, h echo.HandlerFunc, method, path, body string, userID uint64, role string, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Validator = validation.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", float64(userID))
	c.Set("role", role)
	for i := 0; i+1 < len(params); i += 2 {
		c.SetParamNames(params[i])
		c.SetParamValues(params[i+1])
	}
	require.NoError(t, h(c))
	return rec
}

func TestBookingHandlerCreate(t *testing.T) {
	t.Run("returns 201 with the hydrated booking", func(t *testing.T) {
		h := newTestHandler(0)
		rec := doJSON(t, h.Create, http.MethodPost, "/v1/bookings",
			`{"resource_id":7,"booking_date":"2026-09-01","start_time":"09:00","end_time":"10:00"}`,
			1, model.RoleUser)

		require.Equal(t, http.StatusCreated, rec.Code)
		var got bookingJSON
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, uint64(42), got.ID)
		assert.Equal(t, "Room A", got.ResourceName)
		assert.True(t, got.IsOwner)
		assert.Equal(t, "09:00:00", got.StartTime)
	})

	t.Run("maps an availability conflict to 400", func(t *testing.T) {
		h := newTestHandler(1)
		rec := doJSON(t, h.Create, http.MethodPost, "/v1/bookings",
			`{"resource_id":7,"booking_date":"2026-09-01","start_time":"09:00","end_time":"10:00"}`,
			1, model.RoleUser)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "not available")
	})

	t.Run("maps a missing resource to 404", func(t *testing.T) {
		h := newTestHandler(0)
		rec := doJSON(t, h.Create, http.MethodPost, "/v1/bookings",
			`{"resource_id":9,"booking_date":"2026-09-01","start_time":"09:00","end_time":"10:00"}`,
			1, model.RoleUser)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("rejects a payload missing required fields", func(t *testing.T) {
		h := newTestHandler(0)
		rec := doJSON(t, h.Create, http.MethodPost, "/v1/bookings",
			`{"resource_id":7}`, 1, model.RoleUser)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBookingHandlerGet(t *testing.T) {
	t.Run("owner gets 200", func(t *testing.T) {
		h := newTestHandler(0)
		rec := doJSON(t, h.Get, http.MethodGet, "/v1/bookings/42", "", 1, model.RoleUser, "id", "42")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("stranger gets 403", func(t *testing.T) {
		h := newTestHandler(0)
		rec := doJSON(t, h.Get, http.MethodGet, "/v1/bookings/42", "", 9, model.RoleUser, "id", "42")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown id gets 404", func(t *testing.T) {
		h := newTestHandler(0)
		rec := doJSON(t, h.Get, http.MethodGet, "/v1/bookings/7777", "", 1, model.RoleUser, "id", "7777")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id gets 400", func(t *testing.T) {
		h := newTestHandler(0)
		rec := doJSON(t, h.Get, http.MethodGet, "/v1/bookings/abc", "", 1, model.RoleUser, "id", "abc")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBookingHandlerCancelAndRSVP(t *testing.T) {
	t.Run("cancel by owner returns 200", func(t *testing.T) {
		h := newTestHandler(0)
		rec := doJSON(t, h.Cancel, http.MethodDelete, "/v1/bookings/42", "", 1, model.RoleUser, "id", "42")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("cancel by admin returns 200", func(t *testing.T) {
		h := newTestHandler(0)
		rec := doJSON(t, h.Cancel, http.MethodDelete, "/v1/bookings/42", "", 9, model.RoleAdmin, "id", "42")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rsvp with a bad status returns 400", func(t *testing.T) {
		h := newTestHandler(0)
		rec := doJSON(t, h.RSVP, http.MethodPut, "/v1/bookings/42/rsvp",
			`{"status":"maybe"}`, 2, model.RoleUser, "id", "42")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rsvp from an uninvited user returns 404", func(t *testing.T) {
		h := newTestHandler(0)
		rec := doJSON(t, h.RSVP, http.MethodPut, "/v1/bookings/42/rsvp",
			`{"status":"accepted"}`, 9, model.RoleUser, "id", "42")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("rsvp from an invitee returns 200", func(t *testing.T) {
		h := newTestHandler(0)
		rec := doJSON(t, h.RSVP, http.MethodPut, "/v1/bookings/42/rsvp",
			`{"status":"declined"}`, 2, model.RoleUser, "id", "42")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
