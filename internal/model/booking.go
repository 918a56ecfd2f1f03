package model

import "time"

// Booking statuses stored in bookings.status.  The enum mirrors the full
// taxonomy of the schema; the current flows only ever drive a booking
// through "confirmed" and "cancelled".
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
)

// RSVP statuses stored in booking_attendees.rsvp_status.
const (
	RSVPPending  = "pending"
	RSVPAccepted = "accepted"
	RSVPDeclined = "declined"
)

// Booking records one reservation of a resource for a time interval on a
// single calendar date.  Dates travel as "2006-01-02" strings and times as
// "15:04:05" strings; the database columns are DATE and TIME and the
// half-open interval [StartTime, EndTime) never crosses midnight.
//
// Fields:
//  ID            - primary key identifier.
//  UserID        - owner of the booking, fixed at creation.
//  ResourceID    - the booked resource.
//  BookingDate   - calendar date ("2006-01-02").
//  StartTime     - inclusive start time of day ("15:04:05").
//  EndTime       - exclusive end time of day ("15:04:05").
//  Status        - lifecycle state (see constants above).
//  Notes         - free text notes (nullable).
//  AttachmentURL - blob-store URL of an optional attachment (nullable).
//  CreatedAt     - timestamp of creation.
type Booking struct {
	ID            uint64
	UserID        uint64
	ResourceID    uint64
	BookingDate   string
	StartTime     string
	EndTime       string
	Status        string
	Notes         *string
	AttachmentURL *string
	CreatedAt     time.Time
}

// Attendee links an invited user to a booking.  The composite key
// (BookingID, UserID) guarantees a user appears at most once per booking.
// Name and Email are hydrated from the users table for display.
type Attendee struct {
	BookingID  uint64  `json:"-"`
	UserID     uint64  `json:"user_id"`
	RSVPStatus string  `json:"rsvp_status"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
}

// BookingDetail is a booking joined with its resource's name and type, as
// returned by the user-facing list and detail endpoints.  MyRSVPStatus is
// set only on rows the caller reached through an invitation.
type BookingDetail struct {
	Booking
	ResourceName string
	ResourceType string
	IsOwner      bool
	MyRSVPStatus *string
	Attendees    []Attendee
}

// AdminBookingDetail extends BookingDetail with the owner's identity for
// the admin listing.
type AdminBookingDetail struct {
	BookingDetail
	UserName  string
	UserEmail string
}
