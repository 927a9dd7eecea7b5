package model

import (
	"errors"

	"gorm.io/gorm"
)

// UserDirectory exposes principal tenant assignments to the scope
// resolver. A missing principal is not an error: it resolves to no
// assignment, which the resolver maps to the SYSTEM scope.
type UserDirectory struct {
	db *gorm.DB
}

// NewUserDirectory creates a directory over the users table
func NewUserDirectory(db *gorm.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

// TenantIDByEmail returns the stored tenant assignment for a principal
func (d *UserDirectory) TenantIDByEmail(email string) (string, error) {
	var user User
	err := d.db.Select("tenant_id").Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return user.TenantID, nil
}
