package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/varun-krishnamurthy/saas-platform/internal/middleware"
	"github.com/varun-krishnamurthy/saas-platform/internal/model"
	"github.com/varun-krishnamurthy/saas-platform/internal/provision"
	"github.com/varun-krishnamurthy/saas-platform/pkg/logger"
	"github.com/varun-krishnamurthy/saas-platform/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TenantHandler serves tenant creation and lookup
type TenantHandler struct {
	db          *gorm.DB
	provisioner *provision.Provisioner
}

// NewTenantHandler creates the tenant handler
func NewTenantHandler(db *gorm.DB, provisioner *provision.Provisioner) *TenantHandler {
	return &TenantHandler{db: db, provisioner: provisioner}
}

// CreateTenant validates, persists and provisions a new tenant
func (h *TenantHandler) CreateTenant(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("create")

	var req struct {
		Name       string `json:"name"`
		Subdomain  string `json:"subdomain"`
		AdminEmail string `json:"admin_email"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse tenant creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Name == "" || req.Subdomain == "" || req.AdminEmail == "" {
		log.Error("Invalid tenant data", zap.String("name", req.Name))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, subdomain and admin_email are required"})
	}

	tenant := model.Tenant{
		Name:              req.Name,
		Subdomain:         req.Subdomain,
		AdminEmail:        req.AdminEmail,
		Status:            model.TenantStatusTrial,
		ProvisioningState: model.ProvisionPending,
	}

	if err := h.provisioner.Validate(&tenant); err != nil {
		switch {
		case errors.Is(err, provision.ErrDuplicateSubdomain), errors.Is(err, provision.ErrDuplicateEmail):
			log.Warn("Tenant validation rejected", zap.String("subdomain", req.Subdomain), zap.Error(err))
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		case errors.Is(err, provision.ErrInvalidEmail):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		default:
			log.Error("Tenant validation failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "validation failed"})
		}
	}

	// Assigned exactly once, before first persistence
	if tenant.TenantID == "" {
		tenant.TenantID = provision.GenerateTenantID(tenant.Name)
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := h.db.Create(&tenant); result.Error != nil {
		log.Error("Failed to create tenant", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant creation failed"})
	}

	if err := h.provisioner.Provision(c.Request().Context(), &tenant); err != nil {
		// The tenant row is persisted but incomplete; surface the error
		// for operator intervention.
		log.Error("Tenant provisioning failed",
			zap.String("tenant_id", tenant.TenantID),
			zap.String("state", tenant.ProvisioningState),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":  "tenant provisioning failed: " + err.Error(),
			"tenant": tenant,
		})
	}

	log.Info("Tenant created",
		zap.String("tenant_id", tenant.TenantID),
		zap.String("subdomain", tenant.Subdomain))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Tenant created successfully",
		"tenant":  tenant,
	})
}

// GetTenant retrieves tenant details
func (h *TenantHandler) GetTenant(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("access")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid tenant ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var tenant model.Tenant
	if result := h.db.First(&tenant, id); result.Error != nil {
		log.Error("Tenant not found", zap.Uint64("id", id), zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
	}

	return c.JSON(http.StatusOK, tenant)
}

// ListTenants retrieves all tenants (operator view)
func (h *TenantHandler) ListTenants(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("list")

	defer prometheus.TrackDBOperation("query")(time.Now())
	var tenants []model.Tenant
	if result := h.db.Order("id").Find(&tenants); result.Error != nil {
		log.Error("Failed to list tenants", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list tenants"})
	}

	active := 0
	for _, t := range tenants {
		if t.Status == model.TenantStatusActive || t.Status == model.TenantStatusTrial {
			active++
		}
	}
	prometheus.UpdateActiveTenants(active)

	return c.JSON(http.StatusOK, tenants)
}

// ReprovisionTenant re-runs the provisioning sequence for a partially
// provisioned tenant, resuming from the recorded step outcomes
func (h *TenantHandler) ReprovisionTenant(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("reprovision")

	rc, _ := middleware.RequestContextFromEcho(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant ID"})
	}

	var tenant model.Tenant
	if result := h.db.First(&tenant, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
	}

	if err := h.provisioner.Provision(c.Request().Context(), &tenant); err != nil {
		log.Error("Tenant reprovisioning failed",
			zap.String("tenant_id", tenant.TenantID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	log.Info("Tenant reprovisioned",
		zap.String("tenant_id", tenant.TenantID),
		zap.String("state", tenant.ProvisioningState),
		zap.String("operator", rc.Principal.Email))

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Tenant reprovisioned",
		"tenant":  tenant,
	})
}
