package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/resource-booking/internal/model"
)

// CategoryRepo provides CRUD over resource_categories.  Categories are a
// small admin-managed vocabulary used to group resources.
type CategoryRepo struct{ DB *sql.DB }

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{DB: db} }

// List returns every category ordered by name.
func (r *CategoryRepo) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, name, description, created_at FROM resource_categories ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cats := make([]model.Category, 0)
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// GetByID fetches one category.
func (r *CategoryRepo) GetByID(ctx context.Context, id uint64) (model.Category, error) {
	var c model.Category
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, description, created_at FROM resource_categories WHERE id=?", id).
		Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt)
	return c, err
}

// Create inserts a category; duplicate names surface as ErrConflict.
func (r *CategoryRepo) Create(ctx context.Context, name string, description *string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO resource_categories (name, description) VALUES (?,?)", name, description)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update renames a category and/or replaces its description.
func (r *CategoryRepo) Update(ctx context.Context, id uint64, name string, description *string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE resource_categories SET name=?, description=? WHERE id=?", name, description, id)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrConflict
	}
	return err
}

// Delete removes a category.  Resources referencing it fail the foreign
// key and surface as ErrConflict.
func (r *CategoryRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM resource_categories WHERE id=?", id)
	if err != nil {
		// MySQL error 1451 = row is referenced by a foreign key.
		if strings.Contains(err.Error(), "1451") {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
