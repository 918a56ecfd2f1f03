package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/resource-booking/internal/config"
	"github.com/iliyamo/resource-booking/internal/model"
	"github.com/iliyamo/resource-booking/internal/repository"
	"github.com/iliyamo/resource-booking/internal/storage"
	"github.com/iliyamo/resource-booking/internal/utils"
)

// AuthHandler serves registration, login, token refresh and profile
// management.  It talks to the repositories directly; session rules are
// thin enough that no service layer sits in between.
type AuthHandler struct {
	cfg      config.Config
	users    *repository.UserRepo
	tokens   *repository.TokenRepo
	uploader storage.Uploader
}

func NewAuthHandler(cfg config.Config, users *repository.UserRepo, tokens *repository.TokenRepo, uploader storage.Uploader) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: users, tokens: tokens, uploader: uploader}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Register creates a user account.  Every self-registered account gets
// the "user" role; admins are promoted through the admin panel.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	id, err := h.users.Create(c.Request().Context(), req.Name, req.Email, req.Password, model.RoleUser, h.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return fail(c, http.StatusConflict, "email is already registered")
		}
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id, "message": "registered"})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login verifies credentials and issues an access/refresh token pair.
// Unknown email and wrong password return the same message so the
// endpoint cannot be used to probe for accounts.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	u, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusUnauthorized, "invalid email or password")
		}
		return serviceError(c, err)
	}
	if !u.IsActive {
		return fail(c, http.StatusForbidden, "account is disabled")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, "invalid email or password")
	}
	return h.issueTokens(c, u)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Refresh rotates a refresh token: the presented token is revoked and a
// fresh pair is issued, so each refresh token works exactly once.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	hash := utils.HashRefreshRaw(req.RefreshToken)
	userID, err := h.tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusUnauthorized, "invalid or expired refresh token")
		}
		return serviceError(c, err)
	}
	u, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return serviceError(c, err)
	}
	if !u.IsActive {
		return fail(c, http.StatusForbidden, "account is disabled")
	}
	if err := h.tokens.RevokeByHash(ctx, hash); err != nil {
		return serviceError(c, err)
	}
	return h.issueTokens(c, u)
}

// Logout revokes the presented refresh token.  Access tokens are left to
// expire on their own.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.RefreshToken != "" {
		if err := h.tokens.RevokeByHash(c.Request().Context(), utils.HashRefreshRaw(req.RefreshToken)); err != nil {
			return serviceError(c, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, ok := getUserID(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "missing user identity")
	}
	u, err := h.users.GetByID(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusNotFound, "user not found")
		}
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, toUserJSON(u))
}

// UpdateDetails changes the caller's display name and, when a file field
// named "profile_picture" is attached, uploads a new avatar.  The request
// is multipart so the two can travel together.
func (h *AuthHandler) UpdateDetails(c echo.Context) error {
	userID, ok := getUserID(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "missing user identity")
	}
	ctx := c.Request().Context()

	var upd repository.UserUpdate
	if name := c.FormValue("name"); name != "" {
		upd.Name = &name
	}
	if fh, err := c.FormFile("profile_picture"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return fail(c, http.StatusBadRequest, "could not read uploaded file")
		}
		defer f.Close()
		url, err := h.uploader.Upload(ctx, f, "profiles")
		if err != nil {
			if errors.Is(err, storage.ErrUploadsDisabled) {
				return fail(c, http.StatusServiceUnavailable, "file uploads are not configured")
			}
			return serviceError(c, err)
		}
		upd.ProfilePicture = &url
	}

	if err := h.users.Update(ctx, userID, upd); err != nil {
		return serviceError(c, err)
	}
	u, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, toUserJSON(u))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// ChangePassword verifies the current password, stores the new hash and
// revokes every live refresh token so stolen sessions die with the old
// password.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	userID, ok := getUserID(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "missing user identity")
	}
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	u, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return serviceError(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.CurrentPassword) {
		return fail(c, http.StatusUnauthorized, "current password is incorrect")
	}
	if err := h.users.UpdatePassword(ctx, userID, req.NewPassword, h.cfg.BcryptCost); err != nil {
		return serviceError(c, err)
	}
	if err := h.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password changed"})
}

// issueTokens mints an access/refresh pair, persists the refresh hash and
// writes the login payload.
func (h *AuthHandler) issueTokens(c echo.Context, u model.User) error {
	access, err := utils.NewAccessToken(h.cfg.JWTSecret, u.ID, u.Role, h.cfg.AccessTTLMin)
	if err != nil {
		return serviceError(c, err)
	}
	refresh, err := utils.NewRefreshToken(h.cfg.RefreshTTLDays)
	if err != nil {
		return serviceError(c, err)
	}
	if err := h.tokens.StoreRefresh(c.Request().Context(), u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  access.Token,
		"expires_at":    access.Exp,
		"refresh_token": refresh.Raw,
		"user":          toUserJSON(u),
	})
}
