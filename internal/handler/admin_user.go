package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/resource-booking/internal/model"
	"github.com/iliyamo/resource-booking/internal/repository"
)

// AdminUserHandler serves the admin user table: listing accounts,
// changing roles and disabling logins.
type AdminUserHandler struct {
	users  *repository.UserRepo
	tokens *repository.TokenRepo
	cost   int // bcrypt cost for admin-provisioned accounts
}

func NewAdminUserHandler(users *repository.UserRepo, tokens *repository.TokenRepo, bcryptCost int) *AdminUserHandler {
	return &AdminUserHandler{users: users, tokens: tokens, cost: bcryptCost}
}

// List returns every active user.  It also backs the attendee picker on
// the booking form, so it is mounted for regular users too.
func (h *AdminUserHandler) List(c echo.Context) error {
	users, err := h.users.List(c.Request().Context())
	if err != nil {
		return serviceError(c, err)
	}
	out := make([]userJSON, 0, len(users))
	for _, u := range users {
		out = append(out, toUserJSON(u))
	}
	return c.JSON(http.StatusOK, out)
}

type adminCreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=user admin"`
}

// Create provisions an account with an explicit role.  This is how new
// admins are minted; self-registration always yields plain users.
func (h *AdminUserHandler) Create(c echo.Context) error {
	var req adminCreateUserRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	id, err := h.users.Create(ctx, req.Name, req.Email, req.Password, req.Role, h.cost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return fail(c, http.StatusConflict, "email is already registered")
		}
		return serviceError(c, err)
	}
	u, err := h.users.GetByID(ctx, id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, toUserJSON(u))
}

type adminUserUpdateRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=100"`
	Role     *string `json:"role" validate:"omitempty,oneof=user admin"`
	IsActive *bool   `json:"is_active"`
}

// Update edits a user's name, role or active flag.  Deactivating an
// account also revokes its refresh tokens so open sessions cannot
// outlive the ban.
func (h *AdminUserHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid user id")
	}
	var req adminUserUpdateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	if _, err := h.users.GetByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusNotFound, "user not found")
		}
		return serviceError(c, err)
	}

	// Admins cannot demote or disable themselves; that path locks the
	// last admin out of the panel.
	if callerID, ok := getUserID(c); ok && callerID == id {
		if (req.Role != nil && *req.Role != model.RoleAdmin) || (req.IsActive != nil && !*req.IsActive) {
			return fail(c, http.StatusBadRequest, "cannot demote or disable your own account")
		}
	}

	upd := repository.UserUpdate{Name: req.Name, Role: req.Role, IsActive: req.IsActive}
	if err := h.users.Update(ctx, id, upd); err != nil {
		return serviceError(c, err)
	}
	if req.IsActive != nil && !*req.IsActive {
		if err := h.tokens.RevokeAllForUser(ctx, id); err != nil {
			return serviceError(c, err)
		}
	}
	u, err := h.users.GetByID(ctx, id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, toUserJSON(u))
}
