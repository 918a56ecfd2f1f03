package repository

import (
	"context"
	"database/sql"
	"time"
)

// AnalyticsRepo aggregates booking activity for the dashboards.  All
// queries are read-only and tolerate empty tables.
type AnalyticsRepo struct{ DB *sql.DB }

func NewAnalyticsRepo(db *sql.DB) *AnalyticsRepo { return &AnalyticsRepo{DB: db} }

// MonthCount is one point of a monthly booking trend series.
type MonthCount struct {
	Name     string `json:"name"` // short month name, e.g. "Jan"
	Bookings int    `json:"bookings"`
}

// ActivityRow is a recent-activity line for the dashboards.
type ActivityRow struct {
	BookingID    uint64    `json:"id"`
	UserName     string    `json:"user,omitempty"`
	ResourceName string    `json:"resource"`
	BookingDate  string    `json:"booking_date,omitempty"`
	Status       string    `json:"status,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TypeCount is resource utilization bucketed by resource type.
type TypeCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// AdminStats is the aggregate payload for the admin dashboard.
type AdminStats struct {
	TotalBookings   int           `json:"total_bookings"`
	ActiveResources int           `json:"active_resources"`
	TotalUsers      int           `json:"total_users"`
	RecentActivity  []ActivityRow `json:"recent_activity"`
	Trends          []MonthCount  `json:"trends"`
	Utilization     []TypeCount   `json:"utilization"`
}

// UserStats is the aggregate payload for a single user's dashboard.
type UserStats struct {
	TotalBookings  int           `json:"total_bookings"`
	Upcoming       int           `json:"upcoming"`
	Completed      int           `json:"completed"`
	RecentActivity []ActivityRow `json:"recent_activity"`
	MonthlyData    []MonthCount  `json:"monthly_data"`
}

func (r *AnalyticsRepo) count(ctx context.Context, q string, args ...any) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}

// GetAdminStats gathers system-wide totals, the five most recent bookings,
// a six-month booking trend and per-type utilization.
func (r *AnalyticsRepo) GetAdminStats(ctx context.Context) (AdminStats, error) {
	var s AdminStats
	var err error
	if s.TotalBookings, err = r.count(ctx, "SELECT COUNT(*) FROM bookings"); err != nil {
		return s, err
	}
	if s.ActiveResources, err = r.count(ctx, "SELECT COUNT(*) FROM resources WHERE is_active=1"); err != nil {
		return s, err
	}
	if s.TotalUsers, err = r.count(ctx, "SELECT COUNT(*) FROM users"); err != nil {
		return s, err
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT b.id, u.name, r.name, b.created_at
		 FROM bookings b
		 JOIN users u ON u.id = b.user_id
		 JOIN resources r ON r.id = b.resource_id
		 ORDER BY b.created_at DESC LIMIT 5`)
	if err != nil {
		return s, err
	}
	defer rows.Close()
	s.RecentActivity = make([]ActivityRow, 0, 5)
	for rows.Next() {
		var a ActivityRow
		if err := rows.Scan(&a.BookingID, &a.UserName, &a.ResourceName, &a.CreatedAt); err != nil {
			return s, err
		}
		s.RecentActivity = append(s.RecentActivity, a)
	}
	if err := rows.Err(); err != nil {
		return s, err
	}

	if s.Trends, err = r.monthlySeries(ctx,
		`SELECT DATE_FORMAT(booking_date, '%Y-%m'), DATE_FORMAT(booking_date, '%b'), COUNT(*)
		 FROM bookings
		 WHERE booking_date >= DATE_SUB(CURDATE(), INTERVAL 5 MONTH)
		 GROUP BY 1, 2 ORDER BY 1`); err != nil {
		return s, err
	}

	trows, err := r.DB.QueryContext(ctx,
		`SELECT r.type, COUNT(b.id)
		 FROM resources r LEFT JOIN bookings b ON b.resource_id = r.id
		 GROUP BY r.type`)
	if err != nil {
		return s, err
	}
	defer trows.Close()
	s.Utilization = make([]TypeCount, 0)
	for trows.Next() {
		var t TypeCount
		if err := trows.Scan(&t.Name, &t.Value); err != nil {
			return s, err
		}
		s.Utilization = append(s.Utilization, t)
	}
	return s, trows.Err()
}

// GetUserStats gathers one user's totals, recent bookings and a monthly
// series covering the last six months, padding missing months with zero.
func (r *AnalyticsRepo) GetUserStats(ctx context.Context, userID uint64) (UserStats, error) {
	var s UserStats
	var err error
	if s.TotalBookings, err = r.count(ctx,
		"SELECT COUNT(*) FROM bookings WHERE user_id=?", userID); err != nil {
		return s, err
	}
	if s.Upcoming, err = r.count(ctx,
		`SELECT COUNT(*) FROM bookings
		 WHERE user_id=? AND booking_date >= CURDATE() AND status <> 'cancelled'`, userID); err != nil {
		return s, err
	}
	if s.Completed, err = r.count(ctx,
		`SELECT COUNT(*) FROM bookings
		 WHERE user_id=? AND booking_date < CURDATE() AND status = 'completed'`, userID); err != nil {
		return s, err
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT b.id, r.name, DATE_FORMAT(b.booking_date, '%Y-%m-%d'), b.status, b.created_at
		 FROM bookings b JOIN resources r ON r.id = b.resource_id
		 WHERE b.user_id=?
		 ORDER BY b.booking_date DESC, b.start_time DESC LIMIT 5`, userID)
	if err != nil {
		return s, err
	}
	defer rows.Close()
	s.RecentActivity = make([]ActivityRow, 0, 5)
	for rows.Next() {
		var a ActivityRow
		if err := rows.Scan(&a.BookingID, &a.ResourceName, &a.BookingDate, &a.Status, &a.CreatedAt); err != nil {
			return s, err
		}
		s.RecentActivity = append(s.RecentActivity, a)
	}
	if err := rows.Err(); err != nil {
		return s, err
	}

	series, err := r.monthlySeries(ctx,
		`SELECT DATE_FORMAT(booking_date, '%Y-%m'), DATE_FORMAT(booking_date, '%b'), COUNT(*)
		 FROM bookings
		 WHERE user_id=? AND booking_date >= DATE_SUB(CURDATE(), INTERVAL 5 MONTH)
		 GROUP BY 1, 2 ORDER BY 1`, userID)
	if err != nil {
		return s, err
	}
	s.MonthlyData = padMonths(series, time.Now(), 6)
	return s, nil
}

// monthlySeries runs a GROUP BY month query shaped as (sortKey, label,
// count) and returns the labeled counts in sort order.
func (r *AnalyticsRepo) monthlySeries(ctx context.Context, q string, args ...any) ([]MonthCount, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]MonthCount, 0, 6)
	for rows.Next() {
		var sortKey string
		var m MonthCount
		if err := rows.Scan(&sortKey, &m.Name, &m.Bookings); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// padMonths expands a sparse monthly series to the trailing n months
// ending at now, filling absent months with zero counts.
func padMonths(series []MonthCount, now time.Time, n int) []MonthCount {
	byName := make(map[string]int, len(series))
	for _, m := range series {
		byName[m.Name] = m.Bookings
	}
	out := make([]MonthCount, 0, n)
	for i := n - 1; i >= 0; i-- {
		name := now.AddDate(0, -i, 0).Format("Jan")
		out = append(out, MonthCount{Name: name, Bookings: byName[name]})
	}
	return out
}
