package model

// Scoped is embedded by every tenant-scoped entity. The tenant_id is
// assigned exactly once, at creation time, by the isolation guard and is
// immutable afterwards; only administrative tooling may change it.
type Scoped struct {
	TenantID string `json:"tenant_id" gorm:"type:varchar(140);index"`
}

// GetTenantID returns the owning tenant's id, or "SYSTEM" for shared rows.
func (s *Scoped) GetTenantID() string {
	return s.TenantID
}

// SetTenantID assigns the owning tenant's id.
func (s *Scoped) SetTenantID(id string) {
	s.TenantID = id
}
