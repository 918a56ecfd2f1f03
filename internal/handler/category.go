package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/resource-booking/internal/repository"
)

// CategoryHandler serves the resource category vocabulary.  Reads are
// public; writes sit behind the admin role middleware.
type CategoryHandler struct {
	categories *repository.CategoryRepo
}

func NewCategoryHandler(categories *repository.CategoryRepo) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// List returns all categories.
func (h *CategoryHandler) List(c echo.Context) error {
	cats, err := h.categories.List(c.Request().Context())
	if err != nil {
		return serviceError(c, err)
	}
	out := make([]categoryJSON, 0, len(cats))
	for _, cat := range cats {
		out = append(out, toCategoryJSON(cat))
	}
	return c.JSON(http.StatusOK, out)
}

type categoryRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=100"`
	Description *string `json:"description"`
}

// Create adds a category.
func (h *CategoryHandler) Create(c echo.Context) error {
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	id, err := h.categories.Create(ctx, req.Name, req.Description)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fail(c, http.StatusConflict, "category name already exists")
		}
		return serviceError(c, err)
	}
	cat, err := h.categories.GetByID(ctx, id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, toCategoryJSON(cat))
}

// Update renames a category.
func (h *CategoryHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid category id")
	}
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if _, err := h.categories.GetByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusNotFound, "category not found")
		}
		return serviceError(c, err)
	}
	if err := h.categories.Update(ctx, id, req.Name, req.Description); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fail(c, http.StatusConflict, "category name already exists")
		}
		return serviceError(c, err)
	}
	cat, err := h.categories.GetByID(ctx, id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, toCategoryJSON(cat))
}

// Delete removes a category.  Categories still referenced by resources
// are refused.
func (h *CategoryHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid category id")
	}
	if err := h.categories.Delete(c.Request().Context(), id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return fail(c, http.StatusNotFound, "category not found")
		case errors.Is(err, repository.ErrConflict):
			return fail(c, http.StatusConflict, "category is still in use by resources")
		default:
			return serviceError(c, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "category deleted"})
}
