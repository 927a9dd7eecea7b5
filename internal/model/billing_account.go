package model

import (
	"time"

	"gorm.io/gorm"
)

// BillingAccount is the platform's accounts-receivable record for a tenant.
// It is tagged SYSTEM, not with the tenant's own scope: it represents the
// platform's relationship with the tenant as a customer.
type BillingAccount struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"type:varchar(100);uniqueIndex"`
	AccountType string `json:"account_type" gorm:"type:varchar(30);default:'Company'"`
	Group       string `json:"group" gorm:"type:varchar(50);default:'Commercial'"`
	Territory   string `json:"territory" gorm:"type:varchar(50);default:'All Territories'"`
	Currency    string `json:"currency" gorm:"type:varchar(10);default:'USD'"`
	Scoped
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name
func (BillingAccount) TableName() string {
	return "billing_accounts"
}
