package model

import (
	"time"

	"gorm.io/gorm"
)

// Company is the tenant's own operational workspace, tagged with the
// tenant's scope rather than SYSTEM.
type Company struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Name     string `json:"name" gorm:"type:varchar(100);uniqueIndex"`
	Abbr     string `json:"abbr" gorm:"type:varchar(10);uniqueIndex"`
	Country  string `json:"country" gorm:"type:varchar(50);default:'United States'"`
	Currency string `json:"currency" gorm:"type:varchar(10);default:'USD'"`
	Scoped
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name
func (Company) TableName() string {
	return "companies"
}
