package model

import (
	"time"

	"gorm.io/gorm"
)

// Item is a billable catalog item underlying a plan (tenant_id = SYSTEM)
type Item struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Code        string `json:"code" gorm:"type:varchar(100);uniqueIndex"`
	Name        string `json:"name" gorm:"type:varchar(100)"`
	Group       string `json:"group" gorm:"type:varchar(50);default:'Services'"`
	IsStockItem bool   `json:"is_stock_item" gorm:"default:false"`
	IsSalesItem bool   `json:"is_sales_item" gorm:"default:true"`
	Scoped
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name
func (Item) TableName() string {
	return "items"
}
