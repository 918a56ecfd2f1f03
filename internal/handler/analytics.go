package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/resource-booking/internal/repository"
)

// AnalyticsHandler serves the dashboard aggregates.
type AnalyticsHandler struct {
	analytics *repository.AnalyticsRepo
}

func NewAnalyticsHandler(analytics *repository.AnalyticsRepo) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// AdminStats returns system-wide totals, trends and utilization.  Admin
// only.
func (h *AnalyticsHandler) AdminStats(c echo.Context) error {
	stats, err := h.analytics.GetAdminStats(c.Request().Context())
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// UserStats returns the caller's personal dashboard numbers.
func (h *AnalyticsHandler) UserStats(c echo.Context) error {
	userID, ok := getUserID(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "missing user identity")
	}
	stats, err := h.analytics.GetUserStats(c.Request().Context(), userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
