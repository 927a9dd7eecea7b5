package model

import (
	"time"

	"gorm.io/gorm"
)

// AdminBaselineRoles is the fixed role set granted to a tenant's
// administrator principal at provisioning time.
const AdminBaselineRoles = "accounts,sales,purchasing,stock"

// User represents a principal. TenantID is the principal's stored tenant
// assignment: a concrete tenant id, or "SYSTEM" for platform operators.
type User struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Email     string         `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Password  string         `json:"-" gorm:"type:varchar(255)"`
	FirstName string         `json:"first_name" gorm:"type:varchar(100)"`
	Enabled   bool           `json:"enabled" gorm:"default:true"`
	Superuser bool           `json:"superuser" gorm:"default:false"`
	Roles     string         `json:"roles" gorm:"type:varchar(255)"`
	TenantID  string         `json:"tenant_id" gorm:"type:varchar(140);index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}
