package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/resource-booking/internal/model"
	"github.com/iliyamo/resource-booking/internal/queue"
)

// The fakes below implement the store interfaces with function fields so
// each test overrides exactly the calls it cares about.  The transaction
// runner invokes the callback with a nil *sql.Tx; the fakes never touch it.

type fakeTxRunner struct{}

func (fakeTxRunner) RunTx(_ context.Context, fn func(tx *sql.Tx) error) error { return fn(nil) }

type fakeResources struct {
	getByID func(id uint64) (model.Resource, error)
}

func (f *fakeResources) GetByID(_ context.Context, id uint64) (model.Resource, error) {
	return f.getByID(id)
}

type fakeUsers struct {
	getByID func(id uint64) (model.User, error)
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	if f.getByID == nil {
		return model.User{ID: id, Name: "someone"}, nil
	}
	return f.getByID(id)
}

type fakeBookings struct {
	countOverlapping func(resourceID uint64, date, start, end string, excludeID uint64) (int, error)
	create           func(b *model.Booking) error
	updateSchedule   func(id, resourceID uint64, date, start, end string, notes *string) error
	getByID          func(id uint64) (model.Booking, error)
	getDetail        func(id uint64) (model.BookingDetail, error)
	updateStatus     func(id uint64, status string) error
	setAttachment    func(id uint64, url string) error
	listOwned        func(userID uint64) ([]model.BookingDetail, error)
	listInvited      func(userID uint64) ([]model.BookingDetail, error)
	listAll          func() ([]model.AdminBookingDetail, error)
}

func (f *fakeBookings) CountOverlappingTx(_ context.Context, _ *sql.Tx, resourceID uint64, date, start, end string, excludeID uint64) (int, error) {
	return f.countOverlapping(resourceID, date, start, end, excludeID)
}
func (f *fakeBookings) CreateTx(_ context.Context, _ *sql.Tx, b *model.Booking) error {
	return f.create(b)
}
func (f *fakeBookings) UpdateScheduleTx(_ context.Context, _ *sql.Tx, id, resourceID uint64, date, start, end string, notes *string) error {
	return f.updateSchedule(id, resourceID, date, start, end, notes)
}
func (f *fakeBookings) GetByID(_ context.Context, id uint64) (model.Booking, error) {
	return f.getByID(id)
}
func (f *fakeBookings) GetDetail(_ context.Context, id uint64) (model.BookingDetail, error) {
	return f.getDetail(id)
}
func (f *fakeBookings) UpdateStatus(_ context.Context, id uint64, status string) error {
	return f.updateStatus(id, status)
}
func (f *fakeBookings) SetAttachment(_ context.Context, id uint64, url string) error {
	return f.setAttachment(id, url)
}
func (f *fakeBookings) ListOwned(_ context.Context, userID uint64) ([]model.BookingDetail, error) {
	return f.listOwned(userID)
}
func (f *fakeBookings) ListInvited(_ context.Context, userID uint64) ([]model.BookingDetail, error) {
	return f.listInvited(userID)
}
func (f *fakeBookings) ListAll(_ context.Context) ([]model.AdminBookingDetail, error) {
	return f.listAll()
}

type fakeAttendees struct {
	addBulk        func(bookingID uint64, userIDs []uint64) error
	listByBooking  func(bookingID uint64) ([]model.Attendee, error)
	listByBookings func(ids []uint64) (map[uint64][]model.Attendee, error)
	updateStatus   func(bookingID, userID uint64, status string) error
}

func (f *fakeAttendees) AddBulkTx(_ context.Context, _ *sql.Tx, bookingID uint64, userIDs []uint64) error {
	return f.addBulk(bookingID, userIDs)
}
func (f *fakeAttendees) ListByBooking(_ context.Context, bookingID uint64) ([]model.Attendee, error) {
	if f.listByBooking == nil {
		return nil, nil
	}
	return f.listByBooking(bookingID)
}
func (f *fakeAttendees) ListByBookings(_ context.Context, ids []uint64) (map[uint64][]model.Attendee, error) {
	return f.listByBookings(ids)
}
func (f *fakeAttendees) UpdateStatus(_ context.Context, bookingID, userID uint64, status string) error {
	return f.updateStatus(bookingID, userID, status)
}

func capOf(n uint32) *uint32 { return &n }

func activeRoom(capacity *uint32) func(uint64) (model.Resource, error) {
	return func(id uint64) (model.Resource, error) {
		return model.Resource{ID: id, Name: "Room A", Type: "room", Capacity: capacity, IsActive: true}, nil
	}
}

func newTestService(b *fakeBookings, a *fakeAttendees, r *fakeResources) *BookingService {
	return NewBookingService(fakeTxRunner{}, b, a, r, &fakeUsers{}, NopNotifier{})
}

func okCreateStores(overlap int) (*fakeBookings, *fakeAttendees) {
	b := &fakeBookings{
		countOverlapping: func(uint64, string, string, string, uint64) (int, error) { return overlap, nil },
		create: func(bk *model.Booking) error {
			bk.ID = 42
			return nil
		},
		getDetail: func(id uint64) (model.BookingDetail, error) {
			return model.BookingDetail{
				Booking:      model.Booking{ID: id, UserID: 1, ResourceID: 7, Status: model.BookingConfirmed},
				ResourceName: "Room A",
				ResourceType: "room",
			}, nil
		},
	}
	a := &fakeAttendees{
		addBulk: func(uint64, []uint64) error { return nil },
	}
	return b, a
}

func TestCreateBooking(t *testing.T) {
	t.Run("succeeds and stores confirmed status", func(t *testing.T) {
		b, a := okCreateStores(0)
		var created model.Booking
		b.create = func(bk *model.Booking) error {
			bk.ID = 42
			created = *bk
			return nil
		}
		svc := newTestService(b, a, &fakeResources{getByID: activeRoom(nil)})

		detail, err := svc.Create(context.Background(), 1, CreateInput{
			ResourceID: 7, Date: "2026-09-01", StartTime: "09:00", EndTime: "10:00",
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(42), detail.ID)
		assert.True(t, detail.IsOwner)
		assert.Equal(t, model.BookingConfirmed, created.Status)
		assert.Equal(t, "09:00:00", created.StartTime)
		assert.Equal(t, "10:00:00", created.EndTime)
	})

	t.Run("rejects when interval overlaps a live booking", func(t *testing.T) {
		b, a := okCreateStores(1)
		svc := newTestService(b, a, &fakeResources{getByID: activeRoom(nil)})

		_, err := svc.Create(context.Background(), 1, CreateInput{
			ResourceID: 7, Date: "2026-09-01", StartTime: "09:30", EndTime: "10:30",
		})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("back to back bookings touch but do not overlap", func(t *testing.T) {
		// The repository query uses strict inequalities, so a shared
		// endpoint yields count zero; the service must pass it through.
		b, a := okCreateStores(0)
		var gotStart, gotEnd string
		b.countOverlapping = func(_ uint64, _, start, end string, _ uint64) (int, error) {
			gotStart, gotEnd = start, end
			return 0, nil
		}
		svc := newTestService(b, a, &fakeResources{getByID: activeRoom(nil)})

		_, err := svc.Create(context.Background(), 1, CreateInput{
			ResourceID: 7, Date: "2026-09-01", StartTime: "10:00", EndTime: "11:00",
		})
		require.NoError(t, err)
		assert.Equal(t, "10:00:00", gotStart)
		assert.Equal(t, "11:00:00", gotEnd)
	})

	t.Run("excludes nothing from the overlap check", func(t *testing.T) {
		b, a := okCreateStores(0)
		var gotExclude uint64 = 99
		b.countOverlapping = func(_ uint64, _, _, _ string, excludeID uint64) (int, error) {
			gotExclude = excludeID
			return 0, nil
		}
		svc := newTestService(b, a, &fakeResources{getByID: activeRoom(nil)})

		_, err := svc.Create(context.Background(), 1, CreateInput{
			ResourceID: 7, Date: "2026-09-01", StartTime: "09:00", EndTime: "10:00",
		})
		require.NoError(t, err)
		assert.Zero(t, gotExclude)
	})

	t.Run("rejects inverted and zero length ranges", func(t *testing.T) {
		svc := newTestService(&fakeBookings{}, &fakeAttendees{}, &fakeResources{})
		for _, in := range []CreateInput{
			{ResourceID: 7, Date: "2026-09-01", StartTime: "10:00", EndTime: "09:00"},
			{ResourceID: 7, Date: "2026-09-01", StartTime: "10:00", EndTime: "10:00"},
			{ResourceID: 7, Date: "not-a-date", StartTime: "09:00", EndTime: "10:00"},
			{ResourceID: 7, Date: "2026-09-01", StartTime: "9am", EndTime: "10:00"},
		} {
			_, err := svc.Create(context.Background(), 1, in)
			assert.ErrorIs(t, err, ErrValidation)
		}
	})

	t.Run("rejects inactive resource", func(t *testing.T) {
		res := &fakeResources{getByID: func(id uint64) (model.Resource, error) {
			return model.Resource{ID: id, IsActive: false}, nil
		}}
		svc := newTestService(&fakeBookings{}, &fakeAttendees{}, res)

		_, err := svc.Create(context.Background(), 1, CreateInput{
			ResourceID: 7, Date: "2026-09-01", StartTime: "09:00", EndTime: "10:00",
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("reports missing resource as not found", func(t *testing.T) {
		res := &fakeResources{getByID: func(uint64) (model.Resource, error) {
			return model.Resource{}, sql.ErrNoRows
		}}
		svc := newTestService(&fakeBookings{}, &fakeAttendees{}, res)

		_, err := svc.Create(context.Background(), 1, CreateInput{
			ResourceID: 7, Date: "2026-09-01", StartTime: "09:00", EndTime: "10:00",
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCreateBookingCapacity(t *testing.T) {
	t.Run("owner plus invitees must fit capacity", func(t *testing.T) {
		b, a := okCreateStores(0)
		svc := newTestService(b, a, &fakeResources{getByID: activeRoom(capOf(3))})

		// Headcount 4 (owner + 3) against capacity 3.
		_, err := svc.Create(context.Background(), 1, CreateInput{
			ResourceID: 7, Date: "2026-09-01", StartTime: "09:00", EndTime: "10:00",
			AttendeeIDs: []uint64{2, 3, 4},
		})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("duplicate and owner ids do not count against capacity", func(t *testing.T) {
		b, a := okCreateStores(0)
		var invited []uint64
		a.addBulk = func(_ uint64, ids []uint64) error {
			invited = ids
			return nil
		}
		svc := newTestService(b, a, &fakeResources{getByID: activeRoom(capOf(3))})

		// Raw list has five entries but only {2, 3} are real invitees.
		_, err := svc.Create(context.Background(), 1, CreateInput{
			ResourceID: 7, Date: "2026-09-01", StartTime: "09:00", EndTime: "10:00",
			AttendeeIDs: []uint64{2, 2, 1, 0, 3},
		})
		require.NoError(t, err)
		assert.Equal(t, []uint64{2, 3}, invited)
	})

	t.Run("zero capacity means unconstrained", func(t *testing.T) {
		b, a := okCreateStores(0)
		svc := newTestService(b, a, &fakeResources{getByID: activeRoom(capOf(0))})

		_, err := svc.Create(context.Background(), 1, CreateInput{
			ResourceID: 7, Date: "2026-09-01", StartTime: "09:00", EndTime: "10:00",
			AttendeeIDs: []uint64{2, 3, 4, 5, 6, 7, 8},
		})
		assert.NoError(t, err)
	})
}

func TestReschedule(t *testing.T) {
	owned := func(id uint64) (model.Booking, error) {
		return model.Booking{ID: id, UserID: 1, ResourceID: 7, Status: model.BookingConfirmed}, nil
	}
	baseStores := func() (*fakeBookings, *fakeAttendees) {
		b, a := okCreateStores(0)
		b.getByID = owned
		b.updateSchedule = func(uint64, uint64, string, string, string, *string) error { return nil }
		return b, a
	}

	t.Run("excludes the booking itself from the overlap check", func(t *testing.T) {
		b, a := baseStores()
		var gotExclude uint64
		b.countOverlapping = func(_ uint64, _, _, _ string, excludeID uint64) (int, error) {
			gotExclude = excludeID
			return 0, nil
		}
		svc := newTestService(b, a, &fakeResources{getByID: activeRoom(nil)})

		_, err := svc.Reschedule(context.Background(), 42, 1, model.RoleUser, RescheduleInput{
			ResourceID: 7, Date: "2026-09-01", StartTime: "09:00", EndTime: "10:00",
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(42), gotExclude)
	})

	t.Run("refuses callers who are neither owner nor admin", func(t *testing.T) {
		b, a := baseStores()
		svc := newTestService(b, a, &fakeResources{getByID: activeRoom(nil)})

		_, err := svc.Reschedule(context.Background(), 42, 999, model.RoleUser, RescheduleInput{
			ResourceID: 7, Date: "2026-09-01", StartTime: "09:00", EndTime: "10:00",
		})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("admin may reschedule someone else's booking", func(t *testing.T) {
		b, a := baseStores()
		svc := newTestService(b, a, &fakeResources{getByID: activeRoom(nil)})

		_, err := svc.Reschedule(context.Background(), 42, 999, model.RoleAdmin, RescheduleInput{
			ResourceID: 7, Date: "2026-09-01", StartTime: "09:00", EndTime: "10:00",
		})
		assert.NoError(t, err)
	})

	t.Run("rejects a conflicting target slot", func(t *testing.T) {
		b, a := baseStores()
		b.countOverlapping = func(uint64, string, string, string, uint64) (int, error) { return 1, nil }
		svc := newTestService(b, a, &fakeResources{getByID: activeRoom(nil)})

		_, err := svc.Reschedule(context.Background(), 42, 1, model.RoleUser, RescheduleInput{
			ResourceID: 7, Date: "2026-09-01", StartTime: "09:00", EndTime: "10:00",
		})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("rechecks capacity against the current attendee set", func(t *testing.T) {
		b, a := baseStores()
		a.listByBooking = func(uint64) ([]model.Attendee, error) {
			return []model.Attendee{{UserID: 2}, {UserID: 3}, {UserID: 4}}, nil
		}
		svc := newTestService(b, a, &fakeResources{getByID: activeRoom(capOf(3))})

		_, err := svc.Reschedule(context.Background(), 42, 1, model.RoleUser, RescheduleInput{
			ResourceID: 7, Date: "2026-09-01", StartTime: "09:00", EndTime: "10:00",
		})
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestCancel(t *testing.T) {
	t.Run("sets cancelled and is idempotent", func(t *testing.T) {
		var gotStatus string
		calls := 0
		b := &fakeBookings{
			getByID: func(id uint64) (model.Booking, error) {
				return model.Booking{ID: id, UserID: 1, Status: model.BookingCancelled}, nil
			},
			updateStatus: func(_ uint64, status string) error {
				gotStatus = status
				calls++
				return nil
			},
			getDetail: func(id uint64) (model.BookingDetail, error) {
				return model.BookingDetail{Booking: model.Booking{ID: id}}, nil
			},
		}
		svc := newTestService(b, &fakeAttendees{}, &fakeResources{})

		require.NoError(t, svc.Cancel(context.Background(), 42, 1, model.RoleUser))
		require.NoError(t, svc.Cancel(context.Background(), 42, 1, model.RoleUser))
		assert.Equal(t, model.BookingCancelled, gotStatus)
		assert.Equal(t, 2, calls)
	})

	t.Run("refuses strangers", func(t *testing.T) {
		b := &fakeBookings{
			getByID: func(id uint64) (model.Booking, error) {
				return model.Booking{ID: id, UserID: 1}, nil
			},
		}
		svc := newTestService(b, &fakeAttendees{}, &fakeResources{})
		err := svc.Cancel(context.Background(), 42, 2, model.RoleUser)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("missing booking is not found", func(t *testing.T) {
		b := &fakeBookings{
			getByID: func(uint64) (model.Booking, error) { return model.Booking{}, sql.ErrNoRows },
		}
		svc := newTestService(b, &fakeAttendees{}, &fakeResources{})
		err := svc.Cancel(context.Background(), 42, 1, model.RoleUser)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRSVP(t *testing.T) {
	booked := func(id uint64) (model.Booking, error) {
		return model.Booking{ID: id, UserID: 1}, nil
	}

	t.Run("accepts only accepted or declined", func(t *testing.T) {
		svc := newTestService(&fakeBookings{}, &fakeAttendees{}, &fakeResources{})
		for _, status := range []string{"pending", "maybe", "", "ACCEPTED"} {
			err := svc.RSVP(context.Background(), 42, 2, status)
			assert.ErrorIs(t, err, ErrValidation, "status %q", status)
		}
	})

	t.Run("records the answer and notifies the owner", func(t *testing.T) {
		var got queue.Notification
		notifier := notifierFunc(func(_ context.Context, n queue.Notification) { got = n })
		b := &fakeBookings{
			getByID: booked,
			getDetail: func(id uint64) (model.BookingDetail, error) {
				return model.BookingDetail{Booking: model.Booking{ID: id, UserID: 1}, ResourceName: "Room A"}, nil
			},
		}
		a := &fakeAttendees{
			updateStatus: func(bookingID, userID uint64, status string) error {
				assert.Equal(t, uint64(42), bookingID)
				assert.Equal(t, uint64(2), userID)
				assert.Equal(t, model.RSVPAccepted, status)
				return nil
			},
		}
		svc := NewBookingService(fakeTxRunner{}, b, a, &fakeResources{}, &fakeUsers{}, notifier)

		require.NoError(t, svc.RSVP(context.Background(), 42, 2, model.RSVPAccepted))
		assert.Equal(t, queue.KindRSVPChanged, got.Kind)
		assert.Equal(t, uint64(1), got.ToUserID)
		assert.Equal(t, model.RSVPAccepted, got.RSVPStatus)
	})

	t.Run("uninvited callers get not found", func(t *testing.T) {
		b := &fakeBookings{getByID: booked}
		a := &fakeAttendees{
			updateStatus: func(uint64, uint64, string) error { return sql.ErrNoRows },
		}
		svc := newTestService(b, a, &fakeResources{})
		err := svc.RSVP(context.Background(), 42, 9, model.RSVPDeclined)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

// notifierFunc adapts a function to the Notifier interface for tests.
type notifierFunc func(ctx context.Context, n queue.Notification)

func (f notifierFunc) Notify(ctx context.Context, n queue.Notification) { f(ctx, n) }

func TestGet(t *testing.T) {
	detail := func(id uint64) (model.BookingDetail, error) {
		return model.BookingDetail{
			Booking:      model.Booking{ID: id, UserID: 1},
			ResourceName: "Room A",
		}, nil
	}
	attendees := func(uint64) ([]model.Attendee, error) {
		return []model.Attendee{{UserID: 2, RSVPStatus: model.RSVPAccepted, Name: "Invitee"}}, nil
	}

	t.Run("owner sees the booking", func(t *testing.T) {
		b := &fakeBookings{getDetail: detail}
		a := &fakeAttendees{listByBooking: attendees}
		svc := newTestService(b, a, &fakeResources{})

		d, err := svc.Get(context.Background(), 42, 1, model.RoleUser)
		require.NoError(t, err)
		assert.True(t, d.IsOwner)
		assert.Nil(t, d.MyRSVPStatus)
	})

	t.Run("invitee sees it with their rsvp status", func(t *testing.T) {
		b := &fakeBookings{getDetail: detail}
		a := &fakeAttendees{listByBooking: attendees}
		svc := newTestService(b, a, &fakeResources{})

		d, err := svc.Get(context.Background(), 42, 2, model.RoleUser)
		require.NoError(t, err)
		assert.False(t, d.IsOwner)
		require.NotNil(t, d.MyRSVPStatus)
		assert.Equal(t, model.RSVPAccepted, *d.MyRSVPStatus)
	})

	t.Run("strangers are refused, admins are not", func(t *testing.T) {
		b := &fakeBookings{getDetail: detail}
		a := &fakeAttendees{listByBooking: attendees}
		svc := newTestService(b, a, &fakeResources{})

		_, err := svc.Get(context.Background(), 42, 9, model.RoleUser)
		assert.ErrorIs(t, err, ErrForbidden)

		d, err := svc.Get(context.Background(), 42, 9, model.RoleAdmin)
		require.NoError(t, err)
		assert.False(t, d.IsOwner)
	})
}

func TestListForUser(t *testing.T) {
	rsvp := model.RSVPPending
	b := &fakeBookings{
		listOwned: func(userID uint64) ([]model.BookingDetail, error) {
			return []model.BookingDetail{
				{Booking: model.Booking{ID: 1, UserID: userID}},
				{Booking: model.Booking{ID: 2, UserID: userID}},
			}, nil
		},
		listInvited: func(uint64) ([]model.BookingDetail, error) {
			return []model.BookingDetail{
				{Booking: model.Booking{ID: 2, UserID: 5}, MyRSVPStatus: &rsvp}, // also owned; must dedupe
				{Booking: model.Booking{ID: 3, UserID: 5}, MyRSVPStatus: &rsvp},
			}, nil
		},
	}
	a := &fakeAttendees{
		listByBookings: func(ids []uint64) (map[uint64][]model.Attendee, error) {
			assert.ElementsMatch(t, []uint64{1, 2, 3}, ids)
			return map[uint64][]model.Attendee{
				3: {{UserID: 4, Name: "Guest"}},
			}, nil
		},
	}
	svc := newTestService(b, a, &fakeResources{})

	out, err := svc.ListForUser(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, uint64(1), out[0].ID)
	assert.True(t, out[0].IsOwner)
	assert.Equal(t, uint64(2), out[1].ID)
	assert.True(t, out[1].IsOwner, "owned row wins over the invited duplicate")
	assert.Equal(t, uint64(3), out[2].ID)
	assert.False(t, out[2].IsOwner)
	require.NotNil(t, out[2].MyRSVPStatus)
	assert.Len(t, out[2].Attendees, 1)
}

func TestSetAttachment(t *testing.T) {
	b := &fakeBookings{
		getByID: func(id uint64) (model.Booking, error) {
			return model.Booking{ID: id, UserID: 1}, nil
		},
		setAttachment: func(_ uint64, url string) error {
			assert.Equal(t, "https://cdn.example/att.pdf", url)
			return nil
		},
	}
	svc := newTestService(b, &fakeAttendees{}, &fakeResources{})

	require.NoError(t, svc.SetAttachment(context.Background(), 42, 1, model.RoleUser, "https://cdn.example/att.pdf"))

	err := svc.SetAttachment(context.Background(), 42, 9, model.RoleUser, "x")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestNormalizeSchedule(t *testing.T) {
	date, start, end, err := normalizeSchedule("2026-09-01", "9:00", "17:30:15")
	require.NoError(t, err)
	assert.Equal(t, "2026-09-01", date)
	assert.Equal(t, "09:00:00", start)
	assert.Equal(t, "17:30:15", end)
}
