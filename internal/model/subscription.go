package model

import (
	"time"

	"github.com/varun-krishnamurthy/saas-platform/internal/isolation"
	"gorm.io/gorm"
)

// Subscription links a billing account to one or more plans for a billing
// period. Platform-owned (tenant_id = SYSTEM).
type Subscription struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	BillingAccountID uint       `json:"billing_account_id" gorm:"index;not null"`
	Status           string     `json:"status" gorm:"type:varchar(20);default:'Trialing'"`
	StartDate        time.Time  `json:"start_date"`
	TrialStart       *time.Time `json:"trial_start,omitempty"`
	TrialEnd         *time.Time `json:"trial_end,omitempty"`
	Scoped
	Lines     []SubscriptionLine `json:"lines,omitempty" gorm:"foreignKey:SubscriptionID"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	DeletedAt gorm.DeletedAt     `json:"-" gorm:"index"`
}

// TableName specifies the table name
func (Subscription) TableName() string {
	return "subscriptions"
}

// ScopedChildren exposes the embedded line rows so the isolation guard can
// keep their scope consistent with the parent's.
func (s *Subscription) ScopedChildren() []isolation.TenantScoped {
	children := make([]isolation.TenantScoped, 0, len(s.Lines))
	for i := range s.Lines {
		children = append(children, &s.Lines[i])
	}
	return children
}

// SubscriptionLine is a child row naming a subscribed plan and quantity
type SubscriptionLine struct {
	ID             uint `json:"id" gorm:"primaryKey"`
	SubscriptionID uint `json:"subscription_id" gorm:"index"`
	PlanID         uint `json:"plan_id" gorm:"index;not null"`
	Qty            int  `json:"qty" gorm:"default:1"`
	Scoped
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (SubscriptionLine) TableName() string {
	return "subscription_lines"
}
