package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// HealthHandler serves liveness/readiness probes
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler creates the health handler
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Hello is a plain liveness endpoint
func (h *HealthHandler) Hello(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Hello from saas-platform",
		"service": "saas-platform",
	})
}

// Check reports service and database health
func (h *HealthHandler) Check(c echo.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.Ping() != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status":   "degraded",
			"database": "down",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":   "ok",
		"database": "up",
	})
}
