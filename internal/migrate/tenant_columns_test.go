package migrate_test

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varun-krishnamurthy/saas-platform/internal/migrate"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestRunAddsMissingColumns(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Exec("CREATE TABLE invoices (id integer primary key, total numeric)").Error)
	require.NoError(t, db.Exec("CREATE TABLE payments (id integer primary key, amount numeric)").Error)

	report, err := migrate.NewTenantColumns(db, nil).Run()
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Added)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 0, report.Errors)
	assert.True(t, db.Migrator().HasColumn("invoices", "tenant_id"))
	assert.True(t, db.Migrator().HasColumn("payments", "tenant_id"))
}

func TestRunSkipsTablesAlreadyMigrated(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Exec("CREATE TABLE invoices (id integer primary key, tenant_id varchar(140))").Error)
	require.NoError(t, db.Exec("CREATE TABLE payments (id integer primary key)").Error)

	report, err := migrate.NewTenantColumns(db, nil).Run()
	require.NoError(t, err)

	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 1, report.Skipped)
}

func TestRunIsRepeatable(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Exec("CREATE TABLE invoices (id integer primary key)").Error)

	migrator := migrate.NewTenantColumns(db, nil)
	_, err := migrator.Run()
	require.NoError(t, err)

	report, err := migrator.Run()
	require.NoError(t, err)
	assert.Equal(t, 0, report.Added)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Errors)
}

func TestRunBackfillsSharedDefault(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Exec("CREATE TABLE invoices (id integer primary key)").Error)
	require.NoError(t, db.Exec("INSERT INTO invoices (id) VALUES (1)").Error)

	_, err := migrate.NewTenantColumns(db, nil).Run()
	require.NoError(t, err)

	var scope string
	require.NoError(t, db.Raw("SELECT tenant_id FROM invoices WHERE id = 1").Scan(&scope).Error)
	assert.Equal(t, "SYSTEM", scope)
}
