package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/varun-krishnamurthy/saas-platform/internal/isolation"
	"github.com/varun-krishnamurthy/saas-platform/internal/middleware"
	"github.com/varun-krishnamurthy/saas-platform/internal/model"
	"github.com/varun-krishnamurthy/saas-platform/pkg/logger"
	"github.com/varun-krishnamurthy/saas-platform/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CompanyHandler serves the tenant-scoped workspace records. Reads go
// through the isolation guard's visibility scope; writes are stamped by
// the guard's create hook.
type CompanyHandler struct {
	db    *gorm.DB
	guard *isolation.Guard
}

// NewCompanyHandler creates the company handler
func NewCompanyHandler(db *gorm.DB, guard *isolation.Guard) *CompanyHandler {
	return &CompanyHandler{db: db, guard: guard}
}

// ListCompanies lists workspaces visible to the caller: its own tenant's,
// SYSTEM-shared ones, and legacy rows with no scope
func (h *CompanyHandler) ListCompanies(c echo.Context) error {
	log := logger.FromEcho(c)

	rc, ok := middleware.RequestContextFromEcho(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var companies []model.Company
	result := h.db.Scopes(h.guard.Scope(rc, model.Company{}.TableName())).
		Order("id").Find(&companies)
	if result.Error != nil {
		log.Error("Failed to list companies", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list companies"})
	}

	return c.JSON(http.StatusOK, companies)
}

// CreateCompany creates an additional workspace for the caller's tenant.
// The tenant scope is stamped by the isolation guard, not the caller.
func (h *CompanyHandler) CreateCompany(c echo.Context) error {
	log := logger.FromEcho(c)

	if _, ok := middleware.RequestContextFromEcho(c); !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		Name string `json:"name"`
		Abbr string `json:"abbr"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse company creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	company := model.Company{
		Name: req.Name,
		Abbr: req.Abbr,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := h.db.WithContext(c.Request().Context()).Create(&company); result.Error != nil {
		log.Error("Failed to create company", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "company creation failed"})
	}

	log.Info("Company created",
		zap.String("name", company.Name),
		zap.String("tenant_id", company.TenantID))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Company created successfully",
		"company": company,
	})
}
