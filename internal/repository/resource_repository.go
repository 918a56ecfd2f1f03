package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/resource-booking/internal/model"
)

// ResourceRepo provides persistence for the resource catalog.  Resources
// are never physically removed while bookings reference them; deletion
// flips is_active instead.
type ResourceRepo struct{ DB *sql.DB }

func NewResourceRepo(db *sql.DB) *ResourceRepo { return &ResourceRepo{DB: db} }

const resourceCols = "id, name, description, type, capacity, location, image_url, is_active, category_id, created_at"

func scanResource(row interface{ Scan(...any) error }) (model.Resource, error) {
	var res model.Resource
	err := row.Scan(&res.ID, &res.Name, &res.Description, &res.Type, &res.Capacity,
		&res.Location, &res.ImageURL, &res.IsActive, &res.CategoryID, &res.CreatedAt)
	return res, err
}

// List returns active resources, optionally filtered by category.  Pass
// zero to skip the category filter.
func (r *ResourceRepo) List(ctx context.Context, categoryID uint64) ([]model.Resource, error) {
	q := "SELECT " + resourceCols + " FROM resources WHERE is_active=1"
	args := []any{}
	if categoryID != 0 {
		q += " AND category_id=?"
		args = append(args, categoryID)
	}
	q += " ORDER BY name"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Resource, 0)
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// ListAll returns every resource, retired ones included, for the admin
// panel.
func (r *ResourceRepo) ListAll(ctx context.Context) ([]model.Resource, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+resourceCols+" FROM resources ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Resource, 0)
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// GetByID fetches a resource regardless of its active flag.  Callers that
// offer the resource for booking must check IsActive themselves.
func (r *ResourceRepo) GetByID(ctx context.Context, id uint64) (model.Resource, error) {
	return scanResource(r.DB.QueryRowContext(ctx,
		"SELECT "+resourceCols+" FROM resources WHERE id=?", id))
}

// Create inserts a resource and returns its ID.
func (r *ResourceRepo) Create(ctx context.Context, res model.Resource) (uint64, error) {
	out, err := r.DB.ExecContext(ctx,
		`INSERT INTO resources (name, description, type, capacity, location, image_url, category_id)
		 VALUES (?,?,?,?,?,?,?)`,
		res.Name, res.Description, res.Type, res.Capacity, res.Location, res.ImageURL, res.CategoryID)
	if err != nil {
		return 0, err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ResourceUpdate carries the optional fields of a resource edit.  Nil
// fields stay untouched; populated ones become a parameterized SET list,
// so no SQL is ever assembled from request values.
type ResourceUpdate struct {
	Name        *string
	Description *string
	Type        *string
	Capacity    *uint32
	Location    *string
	ImageURL    *string
	CategoryID  *uint64
	IsActive    *bool
}

// Update applies a partial update.  A no-op when every field is nil.
func (r *ResourceRepo) Update(ctx context.Context, id uint64, upd ResourceUpdate) error {
	sets := make([]string, 0, 8)
	args := make([]any, 0, 9)
	add := func(col string, v any) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.Type != nil {
		add("type", *upd.Type)
	}
	if upd.Capacity != nil {
		add("capacity", *upd.Capacity)
	}
	if upd.Location != nil {
		add("location", *upd.Location)
	}
	if upd.ImageURL != nil {
		add("image_url", *upd.ImageURL)
	}
	if upd.CategoryID != nil {
		add("category_id", *upd.CategoryID)
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := r.DB.ExecContext(ctx,
		"UPDATE resources SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	return err
}

// Deactivate soft-deletes a resource so existing bookings keep their
// foreign key while no new ones can be made.
func (r *ResourceRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE resources SET is_active=0 WHERE id=? AND is_active=1", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either missing or already retired; disambiguate for the handler.
		var exists int
		if err := r.DB.QueryRowContext(ctx,
			"SELECT 1 FROM resources WHERE id=?", id).Scan(&exists); err != nil {
			return err
		}
	}
	return nil
}
