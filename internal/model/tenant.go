package model

import (
	"time"

	"gorm.io/gorm"
)

// Tenant lifecycle statuses
const (
	TenantStatusTrial     = "Trial"
	TenantStatusActive    = "Active"
	TenantStatusSuspended = "Suspended"
	TenantStatusCancelled = "Cancelled"
)

// Provisioning saga states recorded on the tenant row after each step, so
// partially-provisioned tenants are queryable and resumable.
const (
	ProvisionPending             = "pending"
	ProvisionBillingOK           = "billing_ok"
	ProvisionWorkspaceOK         = "workspace_ok"
	ProvisionAdminOK             = "admin_ok"
	ProvisionAdminSkipped        = "admin_skipped"
	ProvisionSubscriptionOK      = "subscription_ok"
	ProvisionSubscriptionSkipped = "subscription_skipped"
	ProvisionComplete            = "complete"
)

// Tenant is the identity record of a customer organization on the platform
type Tenant struct {
	ID                uint           `json:"id" gorm:"primaryKey"`
	TenantID          string         `json:"tenant_id" gorm:"type:varchar(140);uniqueIndex"` // immutable once assigned
	Name              string         `json:"name" gorm:"type:varchar(100);not null"`
	Subdomain         string         `json:"subdomain" gorm:"type:varchar(100);uniqueIndex"`
	AdminEmail        string         `json:"admin_email" gorm:"type:varchar(100);uniqueIndex"`
	Status            string         `json:"status" gorm:"type:varchar(20);default:'Trial'"`
	BillingAccountID  *uint          `json:"billing_account_id,omitempty" gorm:"index"`
	CompanyID         *uint          `json:"company_id,omitempty" gorm:"index"`
	SubscriptionID    *uint          `json:"subscription_id,omitempty" gorm:"index"`
	TrialExpiry       *time.Time     `json:"trial_expiry,omitempty"`
	ProvisioningState string         `json:"provisioning_state" gorm:"type:varchar(30);default:'pending'"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name
func (Tenant) TableName() string {
	return "tenants"
}
