package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/varun-krishnamurthy/saas-platform/internal/migrate"
	"github.com/varun-krishnamurthy/saas-platform/pkg/logger"
	"go.uber.org/zap"
)

// AdminHandler serves operator-only maintenance endpoints
type AdminHandler struct {
	migrator *migrate.TenantColumns
}

// NewAdminHandler creates the admin handler
func NewAdminHandler(migrator *migrate.TenantColumns) *AdminHandler {
	return &AdminHandler{migrator: migrator}
}

// MigrateTenantColumns runs the tenant column retrofit across all tables
// and returns the batch report. Safe to invoke repeatedly.
func (h *AdminHandler) MigrateTenantColumns(c echo.Context) error {
	log := logger.FromEcho(c)

	report, err := h.migrator.Run()
	if err != nil {
		log.Error("Tenant column migration failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Tenant column migration finished",
		"report":  report,
	})
}
