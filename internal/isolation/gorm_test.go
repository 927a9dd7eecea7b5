package isolation_test

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varun-krishnamurthy/saas-platform/internal/model"
	"github.com/varun-krishnamurthy/saas-platform/internal/tenantctx"
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

	require.NoError(t, db.AutoMigrate(&model.Company{}))
	return db
}

func TestCreateCallbackStampsTenantScope(t *testing.T) {
	db := newTestDB(t)
	g := newGuard(nil)
	require.NoError(t, g.RegisterCallbacks(db))

	ctx := tenantctx.NewContext(context.Background(), tenantRC("acme-1234"))
	company := model.Company{Name: "Acme Ops", Abbr: "AO"}
	require.NoError(t, db.WithContext(ctx).Create(&company).Error)

	var got model.Company
	require.NoError(t, db.First(&got, company.ID).Error)
	assert.Equal(t, "acme-1234", got.TenantID)
}

func TestCreateCallbackLeavesSuperuserWritesAlone(t *testing.T) {
	db := newTestDB(t)
	g := newGuard(nil)
	require.NoError(t, g.RegisterCallbacks(db))

	ctx := tenantctx.NewContext(context.Background(), superuserRC())
	company := model.Company{Name: "Shared HQ", Abbr: "HQ", Scoped: model.Scoped{TenantID: tenantctx.SystemScope}}
	require.NoError(t, db.WithContext(ctx).Create(&company).Error)

	var got model.Company
	require.NoError(t, db.First(&got, company.ID).Error)
	assert.Equal(t, tenantctx.SystemScope, got.TenantID)
}

func TestCreateWithoutRequestContextIsUntouched(t *testing.T) {
	db := newTestDB(t)
	g := newGuard(nil)
	require.NoError(t, g.RegisterCallbacks(db))

	company := model.Company{Name: "Bootstrap", Abbr: "BS"}
	require.NoError(t, db.Create(&company).Error)

	var got model.Company
	require.NoError(t, db.First(&got, company.ID).Error)
	assert.Empty(t, got.TenantID)
}

func TestQueryScopeFiltersForeignTenants(t *testing.T) {
	db := newTestDB(t)
	g := newGuard(nil)

	seed := []model.Company{
		{Name: "Mine", Abbr: "MN", Scoped: model.Scoped{TenantID: "acme-1234"}},
		{Name: "Theirs", Abbr: "TH", Scoped: model.Scoped{TenantID: "beta-9999"}},
		{Name: "Shared", Abbr: "SH", Scoped: model.Scoped{TenantID: tenantctx.SystemScope}},
	}
	for i := range seed {
		require.NoError(t, db.Create(&seed[i]).Error)
	}
	// Legacy row written before the tenant_id column existed
	require.NoError(t, db.Exec(
		"INSERT INTO companies (name, abbr, tenant_id) VALUES (?, ?, NULL)",
		"Legacy", "LG").Error)

	var visible []model.Company
	require.NoError(t, db.Scopes(g.Scope(tenantRC("acme-1234"), "companies")).Find(&visible).Error)

	names := make([]string, 0, len(visible))
	for _, c := range visible {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"Mine", "Shared", "Legacy"}, names)
}

func TestQueryScopeUnrestrictedForSuperuser(t *testing.T) {
	db := newTestDB(t)
	g := newGuard(nil)

	seed := []model.Company{
		{Name: "Mine", Abbr: "MN", Scoped: model.Scoped{TenantID: "acme-1234"}},
		{Name: "Theirs", Abbr: "TH", Scoped: model.Scoped{TenantID: "beta-9999"}},
	}
	for i := range seed {
		require.NoError(t, db.Create(&seed[i]).Error)
	}

	var visible []model.Company
	require.NoError(t, db.Scopes(g.Scope(superuserRC(), "companies")).Find(&visible).Error)
	assert.Len(t, visible, 2)
}

func TestQueryScopeInjectionSafe(t *testing.T) {
	db := newTestDB(t)
	g := newGuard(nil)

	victim := model.Company{Name: "Victim", Abbr: "VC", Scoped: model.Scoped{TenantID: "beta-9999"}}
	require.NoError(t, db.Create(&victim).Error)

	// A hostile scope value must be bound as a parameter, never spliced
	// into the query text.
	rc := tenantRC("x' OR '1'='1")
	var visible []model.Company
	require.NoError(t, db.Scopes(g.Scope(rc, "companies")).Find(&visible).Error)
	assert.Empty(t, visible)
}
