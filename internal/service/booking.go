package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/resource-booking/internal/model"
	"github.com/iliyamo/resource-booking/internal/queue"
)

// TxRunner executes a function inside a database transaction.  Satisfied
// by database.TxRunner in production; tests substitute a runner that
// invokes the function directly.
type TxRunner interface {
	RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// ResourceStore is the catalog projection the booking engine needs.
type ResourceStore interface {
	GetByID(ctx context.Context, id uint64) (model.Resource, error)
}

// UserStore supplies user identity for notification payloads.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// BookingStore is the booking ledger as consumed by the lifecycle
// controller.  Tx-suffixed methods run inside the transaction supplied by
// TxRunner so the availability check and the writes commit atomically.
type BookingStore interface {
	CountOverlappingTx(ctx context.Context, tx *sql.Tx, resourceID uint64, date, start, end string, excludeID uint64) (int, error)
	CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error
	UpdateScheduleTx(ctx context.Context, tx *sql.Tx, id, resourceID uint64, date, start, end string, notes *string) error
	GetByID(ctx context.Context, id uint64) (model.Booking, error)
	GetDetail(ctx context.Context, id uint64) (model.BookingDetail, error)
	UpdateStatus(ctx context.Context, id uint64, status string) error
	SetAttachment(ctx context.Context, id uint64, url string) error
	ListOwned(ctx context.Context, userID uint64) ([]model.BookingDetail, error)
	ListInvited(ctx context.Context, userID uint64) ([]model.BookingDetail, error)
	ListAll(ctx context.Context) ([]model.AdminBookingDetail, error)
}

// AttendeeStore is the RSVP ledger.
type AttendeeStore interface {
	AddBulkTx(ctx context.Context, tx *sql.Tx, bookingID uint64, userIDs []uint64) error
	ListByBooking(ctx context.Context, bookingID uint64) ([]model.Attendee, error)
	ListByBookings(ctx context.Context, bookingIDs []uint64) (map[uint64][]model.Attendee, error)
	UpdateStatus(ctx context.Context, bookingID, userID uint64, status string) error
}

// BookingService is the booking lifecycle controller.  It validates input,
// enforces ownership and capacity, gates every create/reschedule on the
// availability check and keeps the booking and attendee ledgers in step.
type BookingService struct {
	tx        TxRunner
	bookings  BookingStore
	attendees AttendeeStore
	resources ResourceStore
	users     UserStore
	notifier  Notifier
}

// NewBookingService wires the controller.  A nil notifier is replaced
// with a no-op so callers never need to guard notifications.
func NewBookingService(tx TxRunner, bookings BookingStore, attendees AttendeeStore, resources ResourceStore, users UserStore, notifier Notifier) *BookingService {
	if tx == nil || bookings == nil || attendees == nil || resources == nil {
		panic("nil dependency passed to NewBookingService")
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &BookingService{
		tx:        tx,
		bookings:  bookings,
		attendees: attendees,
		resources: resources,
		users:     users,
		notifier:  notifier,
	}
}

// CreateInput carries a booking request.  Times are strings in "15:04" or
// "15:04:05" form; the date is "2006-01-02".
type CreateInput struct {
	ResourceID  uint64
	Date        string
	StartTime   string
	EndTime     string
	Notes       *string
	AttendeeIDs []uint64
}

// RescheduleInput carries the mutable fields of an existing booking.
type RescheduleInput struct {
	ResourceID uint64
	Date       string
	StartTime  string
	EndTime    string
	Notes      *string
}

// Create books a resource for the owner.  The resource must be active,
// the headcount (owner plus distinct invitees) must fit its capacity, and
// the requested interval must not overlap a live booking of the same
// resource on the same date.  The booking insert and the attendee batch
// insert share one transaction: either both land or neither does.
func (s *BookingService) Create(ctx context.Context, ownerID uint64, in CreateInput) (*model.BookingDetail, error) {
	date, start, end, err := normalizeSchedule(in.Date, in.StartTime, in.EndTime)
	if err != nil {
		return nil, err
	}
	invitees := dedupeIDs(in.AttendeeIDs, ownerID)

	res, err := s.resources.GetByID(ctx, in.ResourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: resource not found", ErrNotFound)
		}
		return nil, err
	}
	if !res.IsActive {
		return nil, fmt.Errorf("%w: resource is not available for booking", ErrValidation)
	}
	if err := checkCapacity(res, len(invitees)); err != nil {
		return nil, err
	}

	b := &model.Booking{
		UserID:      ownerID,
		ResourceID:  in.ResourceID,
		BookingDate: date,
		StartTime:   start,
		EndTime:     end,
		Status:      model.BookingConfirmed,
		Notes:       in.Notes,
	}
	err = s.tx.RunTx(ctx, func(tx *sql.Tx) error {
		n, err := s.bookings.CountOverlappingTx(ctx, tx, in.ResourceID, date, start, end, 0)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: resource is not available at this time", ErrConflict)
		}
		if err := s.bookings.CreateTx(ctx, tx, b); err != nil {
			return err
		}
		return s.attendees.AddBulkTx(ctx, tx, b.ID, invitees)
	})
	if err != nil {
		return nil, err
	}

	detail, err := s.hydrate(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	detail.IsOwner = true
	s.notifyAttendees(ctx, queue.KindBookingCreated, detail, "")
	return detail, nil
}

// Reschedule moves a booking to a new resource, date or time range.  Only
// the owner or an admin may do this.  The overlap check excludes the
// booking itself so an unchanged slot never conflicts.  Status and the
// attendee set are untouched.
func (s *BookingService) Reschedule(ctx context.Context, bookingID, callerID uint64, callerRole string, in RescheduleInput) (*model.BookingDetail, error) {
	date, start, end, err := normalizeSchedule(in.Date, in.StartTime, in.EndTime)
	if err != nil {
		return nil, err
	}
	b, err := s.getAuthorized(ctx, bookingID, callerID, callerRole)
	if err != nil {
		return nil, err
	}

	res, err := s.resources.GetByID(ctx, in.ResourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: resource not found", ErrNotFound)
		}
		return nil, err
	}
	if !res.IsActive {
		return nil, fmt.Errorf("%w: resource is not available for booking", ErrValidation)
	}
	attendees, err := s.attendees.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := checkCapacity(res, len(attendees)); err != nil {
		return nil, err
	}

	err = s.tx.RunTx(ctx, func(tx *sql.Tx) error {
		n, err := s.bookings.CountOverlappingTx(ctx, tx, in.ResourceID, date, start, end, bookingID)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: resource is not available at this time", ErrConflict)
		}
		return s.bookings.UpdateScheduleTx(ctx, tx, bookingID, in.ResourceID, date, start, end, in.Notes)
	})
	if err != nil {
		return nil, err
	}

	detail, err := s.hydrate(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	detail.IsOwner = callerID == b.UserID
	return detail, nil
}

// Cancel transitions a booking to cancelled.  Cancelling an already
// cancelled booking succeeds silently; there is no way back out of the
// state.  Attendees are told on a best-effort basis.
func (s *BookingService) Cancel(ctx context.Context, bookingID, callerID uint64, callerRole string) error {
	if _, err := s.getAuthorized(ctx, bookingID, callerID, callerRole); err != nil {
		return err
	}
	if err := s.bookings.UpdateStatus(ctx, bookingID, model.BookingCancelled); err != nil {
		return err
	}
	if detail, err := s.hydrate(ctx, bookingID); err == nil {
		s.notifyAttendees(ctx, queue.KindBookingCancelled, detail, "")
	}
	return nil
}

// RSVP records an invitee's answer.  Only accepted and declined are legal
// answers, the caller must actually hold an invitation, and the booking
// owner is informed best-effort.
func (s *BookingService) RSVP(ctx context.Context, bookingID, callerID uint64, status string) error {
	if status != model.RSVPAccepted && status != model.RSVPDeclined {
		return fmt.Errorf("%w: rsvp status must be accepted or declined", ErrValidation)
	}
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: booking not found", ErrNotFound)
		}
		return err
	}
	if err := s.attendees.UpdateStatus(ctx, bookingID, callerID, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: you are not invited to this booking", ErrNotFound)
		}
		return err
	}

	actor := ""
	if s.users != nil {
		if u, err := s.users.GetByID(ctx, callerID); err == nil {
			actor = u.Name
		}
	}
	if detail, err := s.bookings.GetDetail(ctx, bookingID); err == nil {
		s.notifier.Notify(ctx, queue.Notification{
			Kind:         queue.KindRSVPChanged,
			ToUserID:     b.UserID,
			BookingID:    bookingID,
			ResourceName: detail.ResourceName,
			BookingDate:  detail.BookingDate,
			StartTime:    detail.StartTime,
			EndTime:      detail.EndTime,
			ActorName:    actor,
			RSVPStatus:   status,
			OccurredAt:   time.Now().UTC().Format(time.RFC3339),
		})
	}
	return nil
}

// Get returns one hydrated booking.  Owners and admins always see it;
// invitees see it with their own RSVP status attached; everyone else is
// refused.
func (s *BookingService) Get(ctx context.Context, bookingID, callerID uint64, callerRole string) (*model.BookingDetail, error) {
	detail, err := s.hydrate(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	detail.IsOwner = detail.UserID == callerID
	if detail.IsOwner || callerRole == model.RoleAdmin {
		return detail, nil
	}
	for _, a := range detail.Attendees {
		if a.UserID == callerID {
			status := a.RSVPStatus
			detail.MyRSVPStatus = &status
			return detail, nil
		}
	}
	return nil, fmt.Errorf("%w: not your booking", ErrForbidden)
}

// ListForUser returns the union of bookings the user owns and bookings
// the user is invited to, deduplicated by booking ID with owned rows
// winning, each hydrated with its attendee list.
func (s *BookingService) ListForUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	owned, err := s.bookings.ListOwned(ctx, userID)
	if err != nil {
		return nil, err
	}
	invited, err := s.bookings.ListInvited(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]model.BookingDetail, 0, len(owned)+len(invited))
	seen := make(map[uint64]struct{}, len(owned))
	for _, d := range owned {
		d.IsOwner = true
		seen[d.ID] = struct{}{}
		out = append(out, d)
	}
	for _, d := range invited {
		if _, ok := seen[d.ID]; ok {
			continue
		}
		out = append(out, d)
	}

	ids := make([]uint64, len(out))
	for i, d := range out {
		ids[i] = d.ID
	}
	byBooking, err := s.attendees.ListByBookings(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Attendees = byBooking[out[i].ID]
	}
	return out, nil
}

// ListAll returns every booking with owner and resource names.  Admin only;
// the role check lives in middleware.
func (s *BookingService) ListAll(ctx context.Context) ([]model.AdminBookingDetail, error) {
	return s.bookings.ListAll(ctx)
}

// SetAttachment stores the blob reference of an uploaded file on the
// booking after the usual ownership check.  The file itself was already
// pushed to the blob store by the handler.
func (s *BookingService) SetAttachment(ctx context.Context, bookingID, callerID uint64, callerRole, url string) error {
	if _, err := s.getAuthorized(ctx, bookingID, callerID, callerRole); err != nil {
		return err
	}
	return s.bookings.SetAttachment(ctx, bookingID, url)
}

// getAuthorized loads a booking and enforces the owner-or-admin rule that
// guards every mutation.
func (s *BookingService) getAuthorized(ctx context.Context, bookingID, callerID uint64, callerRole string) (model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return b, fmt.Errorf("%w: booking not found", ErrNotFound)
		}
		return b, err
	}
	if b.UserID != callerID && callerRole != model.RoleAdmin {
		return b, fmt.Errorf("%w: not your booking", ErrForbidden)
	}
	return b, nil
}

// hydrate loads a booking joined with its resource and attendee list.
func (s *BookingService) hydrate(ctx context.Context, bookingID uint64) (*model.BookingDetail, error) {
	detail, err := s.bookings.GetDetail(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: booking not found", ErrNotFound)
		}
		return nil, err
	}
	attendees, err := s.attendees.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	detail.Attendees = attendees
	return &detail, nil
}

// notifyAttendees fans one event out to every invitee of the booking.
func (s *BookingService) notifyAttendees(ctx context.Context, kind string, d *model.BookingDetail, rsvp string) {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, a := range d.Attendees {
		s.notifier.Notify(ctx, queue.Notification{
			Kind:         kind,
			ToUserID:     a.UserID,
			BookingID:    d.ID,
			ResourceName: d.ResourceName,
			BookingDate:  d.BookingDate,
			StartTime:    d.StartTime,
			EndTime:      d.EndTime,
			RSVPStatus:   rsvp,
			OccurredAt:   now,
		})
	}
}

// normalizeSchedule validates a date and a half-open time range and
// returns them in canonical "2006-01-02" / "15:04:05" form.  Zero-length
// and inverted ranges are rejected here so the availability check never
// sees them.
func normalizeSchedule(date, start, end string) (string, string, string, error) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", "", "", fmt.Errorf("%w: booking_date must be YYYY-MM-DD", ErrValidation)
	}
	st, err := parseTimeOfDay(start)
	if err != nil {
		return "", "", "", fmt.Errorf("%w: start_time must be HH:MM or HH:MM:SS", ErrValidation)
	}
	en, err := parseTimeOfDay(end)
	if err != nil {
		return "", "", "", fmt.Errorf("%w: end_time must be HH:MM or HH:MM:SS", ErrValidation)
	}
	if !st.Before(en) {
		return "", "", "", fmt.Errorf("%w: start_time must be before end_time", ErrValidation)
	}
	return d.Format("2006-01-02"), st.Format("15:04:05"), en.Format("15:04:05"), nil
}

func parseTimeOfDay(s string) (time.Time, error) {
	if t, err := time.Parse("15:04:05", s); err == nil {
		return t, nil
	}
	return time.Parse("15:04", s)
}

// checkCapacity enforces headcount = owner + invitees against the
// resource capacity.  Zero or absent capacity means unconstrained.
func checkCapacity(res model.Resource, invitees int) error {
	if res.Capacity == nil || *res.Capacity == 0 {
		return nil
	}
	headcount := 1 + invitees
	if uint32(headcount) > *res.Capacity {
		return fmt.Errorf("%w: headcount %d exceeds resource capacity %d", ErrConflict, headcount, *res.Capacity)
	}
	return nil
}

// dedupeIDs removes duplicates, zeros and the owner from an attendee list
// while preserving order.
func dedupeIDs(ids []uint64, ownerID uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 || id == ownerID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
