// Package queue defines message payloads exchanged over the message broker.
package queue

// Event kinds carried in Notification.Kind.
const (
	KindBookingCreated   = "booking.created"
	KindBookingCancelled = "booking.cancelled"
	KindRSVPChanged      = "booking.rsvp"
)

// Notification is published whenever the booking engine wants to inform a
// user about something.  Delivery is best-effort: the publisher logs and
// swallows failures so a broker outage never blocks a booking flow.  The
// payload carries enough context for downstream consumers to render a
// message without querying the primary database.
type Notification struct {
	Kind         string `json:"kind"`
	ToUserID     uint64 `json:"to_user_id"`
	BookingID    uint64 `json:"booking_id"`
	ResourceName string `json:"resource_name"`
	BookingDate  string `json:"booking_date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	ActorName    string `json:"actor_name,omitempty"`   // who triggered the event
	RSVPStatus   string `json:"rsvp_status,omitempty"`  // set for KindRSVPChanged
	OccurredAt   string `json:"occurred_at"`
}
