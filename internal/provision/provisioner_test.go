package provision_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varun-krishnamurthy/saas-platform/internal/model"
	"github.com/varun-krishnamurthy/saas-platform/internal/provision"
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

	require.NoError(t, db.AutoMigrate(
		&model.Tenant{},
		&model.User{},
		&model.BillingAccount{},
		&model.Company{},
		&model.Item{},
		&model.Plan{},
		&model.Subscription{},
		&model.SubscriptionLine{},
	))
	return db
}

func newProvisioner(db *gorm.DB) *provision.Provisioner {
	return provision.NewProvisioner(db, nil, provision.Config{}, nil)
}

func newTenant(t *testing.T, db *gorm.DB, name, subdomain, email string) *model.Tenant {
	t.Helper()
	tenant := &model.Tenant{
		Name:       name,
		Subdomain:  subdomain,
		AdminEmail: email,
		TenantID:   provision.GenerateTenantID(name),
	}
	require.NoError(t, db.Create(tenant).Error)
	return tenant
}

func TestProvisionCreatesFullTenant(t *testing.T) {
	db := newTestDB(t)
	p := newProvisioner(db)
	tenant := newTenant(t, db, "Acme Corp", "acme", "admin@acme.com")

	require.NoError(t, p.Provision(context.Background(), tenant))

	assert.Equal(t, model.ProvisionComplete, tenant.ProvisioningState)
	assert.Equal(t, model.TenantStatusTrial, tenant.Status)
	require.NotNil(t, tenant.BillingAccountID)
	require.NotNil(t, tenant.CompanyID)
	require.NotNil(t, tenant.SubscriptionID)
	require.NotNil(t, tenant.TrialExpiry)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 14), *tenant.TrialExpiry, time.Minute)

	var account model.BillingAccount
	require.NoError(t, db.First(&account, *tenant.BillingAccountID).Error)
	assert.Equal(t, "Acme Corp", account.Name)
	assert.Equal(t, tenantctx.SystemScope, account.TenantID)

	var company model.Company
	require.NoError(t, db.First(&company, *tenant.CompanyID).Error)
	assert.Equal(t, "Acme Corp", company.Name)
	assert.Equal(t, "AC", company.Abbr)
	assert.Equal(t, tenant.TenantID, company.TenantID)

	var admin model.User
	require.NoError(t, db.Where("email = ?", "admin@acme.com").First(&admin).Error)
	assert.True(t, admin.Enabled)
	assert.Equal(t, tenant.TenantID, admin.TenantID)
	assert.Equal(t, model.AdminBaselineRoles, admin.Roles)
	assert.NotEmpty(t, admin.Password)

	var subscription model.Subscription
	require.NoError(t, db.Preload("Lines").First(&subscription, *tenant.SubscriptionID).Error)
	assert.Equal(t, *tenant.BillingAccountID, subscription.BillingAccountID)
	assert.Equal(t, "Trialing", subscription.Status)
	require.Len(t, subscription.Lines, 1)

	var plan model.Plan
	require.NoError(t, db.First(&plan, subscription.Lines[0].PlanID).Error)
	assert.Equal(t, "Free Plan", plan.Name)
	assert.Equal(t, model.PlanTypeFree, plan.PlanType)

	// The recorded state survives in the database, not just in memory
	var stored model.Tenant
	require.NoError(t, db.First(&stored, tenant.ID).Error)
	assert.Equal(t, model.ProvisionComplete, stored.ProvisioningState)
}

func TestProvisionResumeDoesNotDuplicate(t *testing.T) {
	db := newTestDB(t)
	p := newProvisioner(db)
	tenant := newTenant(t, db, "Acme Corp", "acme", "admin@acme.com")

	require.NoError(t, p.Provision(context.Background(), tenant))
	require.NoError(t, p.Provision(context.Background(), tenant))

	var accounts, companies, users, subscriptions int64
	require.NoError(t, db.Model(&model.BillingAccount{}).Count(&accounts).Error)
	require.NoError(t, db.Model(&model.Company{}).Count(&companies).Error)
	require.NoError(t, db.Model(&model.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&model.Subscription{}).Count(&subscriptions).Error)
	assert.EqualValues(t, 1, accounts)
	assert.EqualValues(t, 1, companies)
	assert.EqualValues(t, 1, users)
	assert.EqualValues(t, 1, subscriptions)
}

func TestProvisionResumesFromRecordedRefs(t *testing.T) {
	db := newTestDB(t)
	p := newProvisioner(db)
	tenant := newTenant(t, db, "Acme Corp", "acme", "admin@acme.com")

	require.NoError(t, p.Provision(context.Background(), tenant))

	// Reload from storage as a reprovision request would
	var reloaded model.Tenant
	require.NoError(t, db.First(&reloaded, tenant.ID).Error)
	require.NoError(t, p.Provision(context.Background(), &reloaded))

	assert.Equal(t, *tenant.BillingAccountID, *reloaded.BillingAccountID)
	assert.Equal(t, *tenant.SubscriptionID, *reloaded.SubscriptionID)

	var subscriptions int64
	require.NoError(t, db.Model(&model.Subscription{}).Count(&subscriptions).Error)
	assert.EqualValues(t, 1, subscriptions)
}

func TestProvisionTagsExistingUser(t *testing.T) {
	db := newTestDB(t)
	p := newProvisioner(db)

	existing := model.User{
		Email:    "admin@acme.com",
		Password: "keep-me",
		Enabled:  true,
	}
	require.NoError(t, db.Create(&existing).Error)

	tenant := newTenant(t, db, "Acme Corp", "acme", "admin@acme.com")
	require.NoError(t, p.Provision(context.Background(), tenant))

	var users int64
	require.NoError(t, db.Model(&model.User{}).Count(&users).Error)
	assert.EqualValues(t, 1, users)

	var got model.User
	require.NoError(t, db.Where("email = ?", "admin@acme.com").First(&got).Error)
	assert.Equal(t, tenant.TenantID, got.TenantID)
	assert.Equal(t, "keep-me", got.Password)
}

func TestProvisionSharesDefaultPlan(t *testing.T) {
	db := newTestDB(t)
	p := newProvisioner(db)

	first := newTenant(t, db, "Acme Corp", "acme", "admin@acme.com")
	second := newTenant(t, db, "Beta LLC", "beta", "admin@beta.com")
	require.NoError(t, p.Provision(context.Background(), first))
	require.NoError(t, p.Provision(context.Background(), second))

	var plans, items, subscriptions int64
	require.NoError(t, db.Model(&model.Plan{}).Count(&plans).Error)
	require.NoError(t, db.Model(&model.Item{}).Count(&items).Error)
	require.NoError(t, db.Model(&model.Subscription{}).Count(&subscriptions).Error)
	assert.EqualValues(t, 1, plans)
	assert.EqualValues(t, 1, items)
	assert.EqualValues(t, 2, subscriptions)
}

func TestProvisionSuffixesCollidingNames(t *testing.T) {
	db := newTestDB(t)
	p := newProvisioner(db)

	taken := model.Company{Name: "Acme Corp", Abbr: "AC"}
	require.NoError(t, db.Create(&taken).Error)

	tenant := newTenant(t, db, "Acme Corp", "acme", "admin@acme.com")
	require.NoError(t, p.Provision(context.Background(), tenant))

	var company model.Company
	require.NoError(t, db.First(&company, *tenant.CompanyID).Error)
	assert.Equal(t, "Acme Corp 1", company.Name)
	assert.Equal(t, "AC1", company.Abbr)
}

func TestValidateRejectsDuplicateSubdomain(t *testing.T) {
	db := newTestDB(t)
	p := newProvisioner(db)
	newTenant(t, db, "Acme Corp", "acme", "admin@acme.com")

	err := p.Validate(&model.Tenant{Name: "Other", Subdomain: "acme", AdminEmail: "other@x.com"})
	assert.ErrorIs(t, err, provision.ErrDuplicateSubdomain)
}

func TestValidateRejectsDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	p := newProvisioner(db)
	newTenant(t, db, "Acme Corp", "acme", "admin@acme.com")

	err := p.Validate(&model.Tenant{Name: "Other", Subdomain: "other", AdminEmail: "admin@acme.com"})
	assert.ErrorIs(t, err, provision.ErrDuplicateEmail)
}

func TestValidateAllowsSelfOnUpdate(t *testing.T) {
	db := newTestDB(t)
	p := newProvisioner(db)
	tenant := newTenant(t, db, "Acme Corp", "acme", "admin@acme.com")

	assert.NoError(t, p.Validate(tenant))
}

func TestValidateRejectsMalformedEmail(t *testing.T) {
	db := newTestDB(t)
	p := newProvisioner(db)

	for _, email := range []string{"no-at-sign", "two@@signs", "a@b@c"} {
		err := p.Validate(&model.Tenant{Name: "X", Subdomain: "x", AdminEmail: email})
		assert.ErrorIs(t, err, provision.ErrInvalidEmail, email)
	}
}

func TestGenerateTenantIDShape(t *testing.T) {
	id := provision.GenerateTenantID("Acme Corp")
	assert.Regexp(t, regexp.MustCompile(`^acme-corp-[0-9a-f]{8}$`), id)

	long := provision.GenerateTenantID("A Very Long Company Name Indeed LLC")
	assert.Regexp(t, regexp.MustCompile(`^[a-z-]{20}-[0-9a-f]{8}$`), long)

	assert.NotEqual(t, provision.GenerateTenantID("Acme"), provision.GenerateTenantID("Acme"))
}
