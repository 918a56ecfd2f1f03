package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/resource-booking/internal/model"
)

// BookingRepo provides persistence for the booking ledger.  Dates and
// times are formatted in SQL (DATE_FORMAT/TIME_FORMAT) so the Go side
// always sees plain "2006-01-02" and "15:04:05" strings regardless of the
// driver's column mapping.
type BookingRepo struct{ DB *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{DB: db} }

const bookingCols = `b.id, b.user_id, b.resource_id,
       DATE_FORMAT(b.booking_date, '%Y-%m-%d'),
       TIME_FORMAT(b.start_time, '%H:%i:%s'),
       TIME_FORMAT(b.end_time, '%H:%i:%s'),
       b.status, b.notes, b.attachment_url, b.created_at`

func scanBooking(row interface{ Scan(...any) error }) (model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.UserID, &b.ResourceID, &b.BookingDate,
		&b.StartTime, &b.EndTime, &b.Status, &b.Notes, &b.AttachmentURL, &b.CreatedAt)
	return b, err
}

// CountOverlappingTx counts non-cancelled bookings of the resource on the
// given date whose [start_time, end_time) interval overlaps the candidate
// one.  Touching endpoints do not overlap, so back-to-back bookings pass.
// excludeID removes one booking from consideration (a reschedule must not
// conflict with itself); pass zero to exclude nothing.  The query runs FOR
// UPDATE inside the caller's transaction, so the matched index range stays
// locked until the caller's insert or update commits.  Two concurrent
// creates for the same slot therefore serialize instead of both passing
// the check.
func (r *BookingRepo) CountOverlappingTx(ctx context.Context, tx *sql.Tx, resourceID uint64, date, start, end string, excludeID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM bookings
	           WHERE resource_id = ?
	             AND booking_date = ?
	             AND status <> 'cancelled'
	             AND id <> ?
	             AND start_time < ? AND end_time > ?
	           FOR UPDATE`
	var n int
	err := tx.QueryRowContext(ctx, q, resourceID, date, excludeID, end, start).Scan(&n)
	return n, err
}

// CreateTx inserts a booking within the caller's transaction and
// populates the generated ID and created_at on the record.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (user_id, resource_id, booking_date, start_time, end_time, status, notes, attachment_url)
		 VALUES (?,?,?,?,?,?,?,?)`,
		b.UserID, b.ResourceID, b.BookingDate, b.StartTime, b.EndTime, b.Status, b.Notes, b.AttachmentURL)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return tx.QueryRowContext(ctx,
		"SELECT created_at FROM bookings WHERE id=?", b.ID).Scan(&b.CreatedAt)
}

// UpdateScheduleTx rewrites the mutable schedule fields of a booking
// inside the caller's transaction.  Status, owner and attendees are not
// touched by a reschedule.
func (r *BookingRepo) UpdateScheduleTx(ctx context.Context, tx *sql.Tx, id, resourceID uint64, date, start, end string, notes *string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bookings SET resource_id=?, booking_date=?, start_time=?, end_time=?, notes=?
		 WHERE id=?`,
		resourceID, date, start, end, notes, id)
	return err
}

// GetByID fetches a bare booking row.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	return scanBooking(r.DB.QueryRowContext(ctx,
		"SELECT "+bookingCols+" FROM bookings b WHERE b.id=?", id))
}

// GetDetail fetches a booking joined with its resource's name and type.
func (r *BookingRepo) GetDetail(ctx context.Context, id uint64) (model.BookingDetail, error) {
	var d model.BookingDetail
	err := r.DB.QueryRowContext(ctx,
		`SELECT `+bookingCols+`, r.name, r.type
		 FROM bookings b JOIN resources r ON r.id = b.resource_id
		 WHERE b.id=?`, id).
		Scan(&d.ID, &d.UserID, &d.ResourceID, &d.BookingDate, &d.StartTime, &d.EndTime,
			&d.Status, &d.Notes, &d.AttachmentURL, &d.CreatedAt, &d.ResourceName, &d.ResourceType)
	return d, err
}

// UpdateStatus transitions the booking's lifecycle state.  Setting an
// already-set status is treated as success so cancellation stays
// idempotent.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE bookings SET status=? WHERE id=?", status, id)
	return err
}

// SetAttachment stores the blob-store URL of an uploaded attachment.
func (r *BookingRepo) SetAttachment(ctx context.Context, id uint64, url string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE bookings SET attachment_url=? WHERE id=?", url, id)
	return err
}

func (r *BookingRepo) listDetails(ctx context.Context, q string, args ...any) ([]model.BookingDetail, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.BookingDetail, 0)
	for rows.Next() {
		var d model.BookingDetail
		if err := rows.Scan(&d.ID, &d.UserID, &d.ResourceID, &d.BookingDate, &d.StartTime,
			&d.EndTime, &d.Status, &d.Notes, &d.AttachmentURL, &d.CreatedAt,
			&d.ResourceName, &d.ResourceType); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListOwned returns the bookings the user created, newest date first.
func (r *BookingRepo) ListOwned(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	return r.listDetails(ctx,
		`SELECT `+bookingCols+`, r.name, r.type
		 FROM bookings b JOIN resources r ON r.id = b.resource_id
		 WHERE b.user_id = ?
		 ORDER BY b.booking_date DESC, b.start_time DESC`, userID)
}

// ListInvited returns bookings the user was invited to, along with the
// user's own RSVP status on each row.
func (r *BookingRepo) ListInvited(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+bookingCols+`, r.name, r.type, ba.rsvp_status
		 FROM bookings b
		 JOIN resources r ON r.id = b.resource_id
		 JOIN booking_attendees ba ON ba.booking_id = b.id
		 WHERE ba.user_id = ?
		 ORDER BY b.booking_date DESC, b.start_time DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.BookingDetail, 0)
	for rows.Next() {
		var d model.BookingDetail
		var rsvp string
		if err := rows.Scan(&d.ID, &d.UserID, &d.ResourceID, &d.BookingDate, &d.StartTime,
			&d.EndTime, &d.Status, &d.Notes, &d.AttachmentURL, &d.CreatedAt,
			&d.ResourceName, &d.ResourceType, &rsvp); err != nil {
			return nil, err
		}
		d.MyRSVPStatus = &rsvp
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListAll returns every booking joined with owner identity and resource
// name for the admin ledger view.
func (r *BookingRepo) ListAll(ctx context.Context) ([]model.AdminBookingDetail, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+bookingCols+`, r.name, r.type, u.name, u.email
		 FROM bookings b
		 JOIN resources r ON r.id = b.resource_id
		 JOIN users u ON u.id = b.user_id
		 ORDER BY b.booking_date DESC, b.start_time DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.AdminBookingDetail, 0)
	for rows.Next() {
		var d model.AdminBookingDetail
		if err := rows.Scan(&d.ID, &d.UserID, &d.ResourceID, &d.BookingDate, &d.StartTime,
			&d.EndTime, &d.Status, &d.Notes, &d.AttachmentURL, &d.CreatedAt,
			&d.ResourceName, &d.ResourceType, &d.UserName, &d.UserEmail); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
