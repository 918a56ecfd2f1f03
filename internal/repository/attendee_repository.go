package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/resource-booking/internal/model"
)

// AttendeeRepo manages the booking_attendees join table.  Each row is one
// invitation with its RSVP state; the composite primary key keeps a user
// from appearing twice on the same booking.
type AttendeeRepo struct{ DB *sql.DB }

func NewAttendeeRepo(db *sql.DB) *AttendeeRepo { return &AttendeeRepo{DB: db} }

// AddBulkTx inserts one pending invitation per user within the caller's
// transaction.  Callers deduplicate IDs first; an empty slice is a no-op.
func (r *AttendeeRepo) AddBulkTx(ctx context.Context, tx *sql.Tx, bookingID uint64, userIDs []uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	q := "INSERT INTO booking_attendees (booking_id, user_id, rsvp_status) VALUES "
	args := make([]any, 0, len(userIDs)*3)
	for i, uid := range userIDs {
		if i > 0 {
			q += ","
		}
		q += "(?,?,?)"
		args = append(args, bookingID, uid, model.RSVPPending)
	}
	_, err := tx.ExecContext(ctx, q, args...)
	return err
}

// ListByBooking returns the booking's attendees joined with user identity,
// ordered by name for stable output.
func (r *AttendeeRepo) ListByBooking(ctx context.Context, bookingID uint64) ([]model.Attendee, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT ba.booking_id, ba.user_id, ba.rsvp_status, u.name, u.email
		 FROM booking_attendees ba JOIN users u ON u.id = ba.user_id
		 WHERE ba.booking_id = ?
		 ORDER BY u.name`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Attendee, 0)
	for rows.Next() {
		var a model.Attendee
		if err := rows.Scan(&a.BookingID, &a.UserID, &a.RSVPStatus, &a.Name, &a.Email); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListByBookings loads attendees for many bookings in one query and groups
// them by booking ID.  Used to hydrate list responses without N+1 reads.
func (r *AttendeeRepo) ListByBookings(ctx context.Context, bookingIDs []uint64) (map[uint64][]model.Attendee, error) {
	out := make(map[uint64][]model.Attendee, len(bookingIDs))
	if len(bookingIDs) == 0 {
		return out, nil
	}
	placeholders := make([]string, len(bookingIDs))
	args := make([]any, len(bookingIDs))
	for i, id := range bookingIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT ba.booking_id, ba.user_id, ba.rsvp_status, u.name, u.email
		 FROM booking_attendees ba JOIN users u ON u.id = ba.user_id
		 WHERE ba.booking_id IN (`+strings.Join(placeholders, ",")+`)
		 ORDER BY ba.booking_id, u.name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a model.Attendee
		if err := rows.Scan(&a.BookingID, &a.UserID, &a.RSVPStatus, &a.Name, &a.Email); err != nil {
			return nil, err
		}
		out[a.BookingID] = append(out[a.BookingID], a)
	}
	return out, rows.Err()
}

// UpdateStatus records an attendee's RSVP answer.  sql.ErrNoRows is
// returned when the user holds no invitation for the booking, which the
// service reports as "not invited".
func (r *AttendeeRepo) UpdateStatus(ctx context.Context, bookingID, userID uint64, status string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE booking_attendees SET rsvp_status=? WHERE booking_id=? AND user_id=?",
		status, bookingID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish "no invitation" from "same status re-submitted".
		var cur string
		err := r.DB.QueryRowContext(ctx,
			"SELECT rsvp_status FROM booking_attendees WHERE booking_id=? AND user_id=?",
			bookingID, userID).Scan(&cur)
		if err != nil {
			return err // sql.ErrNoRows when not invited
		}
	}
	return nil
}
