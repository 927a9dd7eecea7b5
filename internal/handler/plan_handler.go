package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/varun-krishnamurthy/saas-platform/internal/model"
	"github.com/varun-krishnamurthy/saas-platform/pkg/logger"
	"github.com/varun-krishnamurthy/saas-platform/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PlanHandler manages the shared plan catalog
type PlanHandler struct {
	db *gorm.DB
}

// NewPlanHandler creates the plan handler
func NewPlanHandler(db *gorm.DB) *PlanHandler {
	return &PlanHandler{db: db}
}

// CreatePlan adds a plan to the shared catalog
func (h *PlanHandler) CreatePlan(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		Name            string `json:"name"`
		PlanType        string `json:"plan_type"`
		Price           string `json:"price,omitempty"`
		BillingInterval string `json:"billing_interval,omitempty"`
		Currency        string `json:"currency,omitempty"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse plan creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Name == "" || req.PlanType == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and plan_type are required"})
	}

	plan := model.Plan{
		Name:     req.Name,
		PlanType: req.PlanType,
	}
	if req.BillingInterval != "" {
		plan.BillingInterval = req.BillingInterval
	}
	if req.Currency != "" {
		plan.Currency = req.Currency
	}
	if req.Price != "" {
		price, err := decimal.NewFromString(req.Price)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid price"})
		}
		plan.Price = decimal.NewNullDecimal(price)
	}

	if err := plan.Validate(); err != nil {
		log.Warn("Plan validation rejected", zap.String("plan", req.Name), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := h.db.Create(&plan); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) ||
			strings.Contains(result.Error.Error(), "UNIQUE") {
			return c.JSON(http.StatusConflict, echo.Map{"error": "plan already exists"})
		}
		log.Error("Failed to create plan", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "plan creation failed"})
	}

	log.Info("Plan created", zap.String("name", plan.Name), zap.String("type", plan.PlanType))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Plan created successfully",
		"plan":    plan,
	})
}

// ListPlans lists the shared plan catalog
func (h *PlanHandler) ListPlans(c echo.Context) error {
	log := logger.FromEcho(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var plans []model.Plan
	if result := h.db.Order("id").Find(&plans); result.Error != nil {
		log.Error("Failed to list plans", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list plans"})
	}

	return c.JSON(http.StatusOK, plans)
}
