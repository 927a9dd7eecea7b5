package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Plan types in the shared catalog
const (
	PlanTypeFree          = "Free"
	PlanTypeBusinessBasic = "Business Basic"
	PlanTypeBusinessPro   = "Business Pro"
)

// ErrFreePlanPriced is returned when a free plan carries a positive price
var ErrFreePlanPriced = errors.New("free plan must have price = 0")

// Plan is a shared catalog entry the platform sells subscriptions against.
// Plans are platform-owned (tenant_id = SYSTEM).
type Plan struct {
	ID              uint                `json:"id" gorm:"primaryKey"`
	Name            string              `json:"name" gorm:"type:varchar(100);uniqueIndex"`
	PlanType        string              `json:"plan_type" gorm:"type:varchar(30);not null"`
	Price           decimal.NullDecimal `json:"price" gorm:"type:numeric(12,2)"`
	BillingInterval string              `json:"billing_interval" gorm:"type:varchar(20);default:'Month'"`
	Currency        string              `json:"currency" gorm:"type:varchar(10);default:'USD'"`
	ItemID          *uint               `json:"item_id,omitempty" gorm:"index"`
	Scoped
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name
func (Plan) TableName() string {
	return "plans"
}

// Validate enforces the pricing invariants: a free plan is priced 0 and a
// paid plan carries a positive price.
func (p *Plan) Validate() error {
	switch p.PlanType {
	case PlanTypeFree:
		if p.Price.Valid && p.Price.Decimal.IsPositive() {
			return ErrFreePlanPriced
		}
	case PlanTypeBusinessBasic, PlanTypeBusinessPro:
		if !p.Price.Valid || !p.Price.Decimal.IsPositive() {
			return fmt.Errorf("%s must have a price", p.PlanType)
		}
	}
	return nil
}

// BeforeSave runs the pricing validation at the storage layer
func (p *Plan) BeforeSave(tx *gorm.DB) error {
	return p.Validate()
}

// BeforeCreate tags shared catalog plans with the SYSTEM scope
func (p *Plan) BeforeCreate(tx *gorm.DB) error {
	if p.TenantID == "" {
		p.TenantID = "SYSTEM"
	}
	return nil
}
