package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/resource-booking/internal/model"
	"github.com/iliyamo/resource-booking/internal/repository"
	"github.com/iliyamo/resource-booking/internal/storage"
)

// ResourceHandler serves the resource catalog: public browsing plus the
// admin CRUD surface.
type ResourceHandler struct {
	resources *repository.ResourceRepo
	uploader  storage.Uploader
}

func NewResourceHandler(resources *repository.ResourceRepo, uploader storage.Uploader) *ResourceHandler {
	return &ResourceHandler{resources: resources, uploader: uploader}
}

// List returns active resources, optionally filtered by ?category_id=.
func (h *ResourceHandler) List(c echo.Context) error {
	var categoryID uint64
	if s := c.QueryParam("category_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid category_id")
		}
		categoryID = id
	}
	resources, err := h.resources.List(c.Request().Context(), categoryID)
	if err != nil {
		return serviceError(c, err)
	}
	out := make([]resourceJSON, 0, len(resources))
	for _, r := range resources {
		out = append(out, toResourceJSON(r))
	}
	return c.JSON(http.StatusOK, out)
}

// ListAll returns every resource including retired ones.  Admin only.
func (h *ResourceHandler) ListAll(c echo.Context) error {
	resources, err := h.resources.ListAll(c.Request().Context())
	if err != nil {
		return serviceError(c, err)
	}
	out := make([]resourceJSON, 0, len(resources))
	for _, r := range resources {
		out = append(out, toResourceJSON(r))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one resource.  Retired resources stay visible here so old
// bookings can still render their target.
func (h *ResourceHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid resource id")
	}
	res, err := h.resources.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusNotFound, "resource not found")
		}
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, toResourceJSON(res))
}

// Create adds a resource to the catalog.  The request is multipart so an
// image can ride along in the "image" field.
func (h *ResourceHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	name := c.FormValue("name")
	rtype := c.FormValue("type")
	if name == "" || rtype == "" {
		return fail(c, http.StatusBadRequest, "name and type are required")
	}

	res := model.Resource{Name: name, Type: rtype}
	if v := c.FormValue("description"); v != "" {
		res.Description = &v
	}
	if v := c.FormValue("location"); v != "" {
		res.Location = &v
	}
	if v := c.FormValue("capacity"); v != "" {
		cap64, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fail(c, http.StatusBadRequest, "capacity must be a non-negative integer")
		}
		cap32 := uint32(cap64)
		res.Capacity = &cap32
	}
	if v := c.FormValue("category_id"); v != "" {
		catID, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid category_id")
		}
		res.CategoryID = &catID
	}
	if url, err := h.uploadImage(c); err != nil {
		return err
	} else if url != "" {
		res.ImageURL = &url
	}

	id, err := h.resources.Create(ctx, res)
	if err != nil {
		return serviceError(c, err)
	}
	created, err := h.resources.GetByID(ctx, id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, toResourceJSON(created))
}

// Update applies a partial edit to a resource.  Only the form fields that
// are present change; an attached "image" replaces the photo.
func (h *ResourceHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid resource id")
	}
	ctx := c.Request().Context()
	if _, err := h.resources.GetByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusNotFound, "resource not found")
		}
		return serviceError(c, err)
	}

	var upd repository.ResourceUpdate
	if v := c.FormValue("name"); v != "" {
		upd.Name = &v
	}
	if v := c.FormValue("description"); v != "" {
		upd.Description = &v
	}
	if v := c.FormValue("type"); v != "" {
		upd.Type = &v
	}
	if v := c.FormValue("location"); v != "" {
		upd.Location = &v
	}
	if v := c.FormValue("capacity"); v != "" {
		cap64, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fail(c, http.StatusBadRequest, "capacity must be a non-negative integer")
		}
		cap32 := uint32(cap64)
		upd.Capacity = &cap32
	}
	if v := c.FormValue("category_id"); v != "" {
		catID, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid category_id")
		}
		upd.CategoryID = &catID
	}
	if v := c.FormValue("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return fail(c, http.StatusBadRequest, "is_active must be a boolean")
		}
		upd.IsActive = &active
	}
	if url, err := h.uploadImage(c); err != nil {
		return err
	} else if url != "" {
		upd.ImageURL = &url
	}

	if err := h.resources.Update(ctx, id, upd); err != nil {
		return serviceError(c, err)
	}
	res, err := h.resources.GetByID(ctx, id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, toResourceJSON(res))
}

// Delete retires a resource.  Existing bookings keep pointing at it;
// it just stops being offered.
func (h *ResourceHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid resource id")
	}
	if err := h.resources.Deactivate(c.Request().Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusNotFound, "resource not found")
		}
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "resource deactivated"})
}

// uploadImage pushes an optional "image" form file to the blob store and
// returns its URL, or "" when the field is absent.
func (h *ResourceHandler) uploadImage(c echo.Context) (string, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		return "", nil
	}
	f, err := fh.Open()
	if err != nil {
		return "", fail(c, http.StatusBadRequest, "could not read uploaded file")
	}
	defer f.Close()
	url, err := h.uploader.Upload(c.Request().Context(), f, "resources")
	if err != nil {
		if errors.Is(err, storage.ErrUploadsDisabled) {
			return "", fail(c, http.StatusServiceUnavailable, "file uploads are not configured")
		}
		return "", serviceError(c, err)
	}
	return url, nil
}
