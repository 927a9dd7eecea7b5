package migrate

import (
	"fmt"

	"github.com/varun-krishnamurthy/saas-platform/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Report summarizes one run of the tenant column batch
type Report struct {
	Total   int      `json:"total"`
	Added   int      `json:"added"`
	Skipped int      `json:"skipped"`
	Errors  int      `json:"errors"`
	Failed  []string `json:"failed,omitempty"`
}

// TenantColumns is the one-time retrofit that adds a tenant_id column and
// index to every existing table. Safe to re-run: tables that already carry
// the column are skipped, and a per-table failure is counted without
// aborting the batch.
type TenantColumns struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewTenantColumns creates the batch migrator
func NewTenantColumns(db *gorm.DB, log *zap.Logger) *TenantColumns {
	if log == nil {
		log = zap.NewNop()
	}
	return &TenantColumns{db: db, log: log}
}

// Run processes every table in the schema and returns the batch report
func (m *TenantColumns) Run() (Report, error) {
	var report Report

	tables, err := m.db.Migrator().GetTables()
	if err != nil {
		return report, fmt.Errorf("failed to list tables: %w", err)
	}
	report.Total = len(tables)

	m.log.Info("Tenant column migration started", zap.Int("tables", len(tables)))

	for _, table := range tables {
		if m.db.Migrator().HasColumn(table, "tenant_id") {
			report.Skipped++
			prometheus.RecordMigrationTable("skipped")
			continue
		}

		if err := m.addColumn(table); err != nil {
			report.Errors++
			report.Failed = append(report.Failed, table)
			prometheus.RecordMigrationTable("error")
			m.log.Error("Failed to add tenant_id column",
				zap.String("table", table),
				zap.Error(err))
			continue
		}

		report.Added++
		prometheus.RecordMigrationTable("added")
		m.log.Info("Added tenant_id column", zap.String("table", table))
	}

	m.log.Info("Tenant column migration finished",
		zap.Int("added", report.Added),
		zap.Int("skipped", report.Skipped),
		zap.Int("errors", report.Errors))

	return report, nil
}

// addColumn adds the column with the shared-data default plus an equality
// index. Table names come from the schema catalog, never from callers.
func (m *TenantColumns) addColumn(table string) error {
	alter := fmt.Sprintf("ALTER TABLE %q ADD COLUMN tenant_id varchar(140) DEFAULT 'SYSTEM'", table)
	if err := m.db.Exec(alter).Error; err != nil {
		return err
	}

	index := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %q ON %q (tenant_id)",
		"idx_"+table+"_tenant_id", table)
	return m.db.Exec(index).Error
}
