package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/varun-krishnamurthy/saas-platform/internal/model"
	"github.com/varun-krishnamurthy/saas-platform/internal/tenantctx"
	"github.com/varun-krishnamurthy/saas-platform/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Validation errors surfaced to the caller before any record is created
var (
	ErrDuplicateSubdomain = errors.New("subdomain is already taken")
	ErrDuplicateEmail     = errors.New("email is already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
)

const tenantSlugMaxLen = 20

// Config holds provisioning settings
type Config struct {
	TrialDays       int
	DefaultPlanName string
	DefaultCurrency string
}

// Provisioner turns a validated tenant record into a fully usable tenant:
// billing account, workspace company, administrator principal and an
// active trial subscription. The sequence is not transactional: each step
// commits independently and its outcome is recorded on the tenant row, so
// a partially-provisioned tenant is queryable and resumable.
type Provisioner struct {
	db       *gorm.DB
	resolver *tenantctx.Resolver
	cfg      Config
	log      *zap.Logger
}

// NewProvisioner creates a provisioner
func NewProvisioner(db *gorm.DB, resolver *tenantctx.Resolver, cfg Config, log *zap.Logger) *Provisioner {
	if cfg.TrialDays <= 0 {
		cfg.TrialDays = 14
	}
	if cfg.DefaultPlanName == "" {
		cfg.DefaultPlanName = "Free Plan"
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "USD"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Provisioner{db: db, resolver: resolver, cfg: cfg, log: log}
}

// Validate checks subdomain and admin email uniqueness (excluding the
// tenant itself on update) and the email shape.
func (p *Provisioner) Validate(t *model.Tenant) error {
	if strings.Count(t.AdminEmail, "@") != 1 {
		return ErrInvalidEmail
	}

	var count int64
	if err := p.db.Model(&model.Tenant{}).
		Where("subdomain = ? AND id <> ?", t.Subdomain, t.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateSubdomain
	}

	if err := p.db.Model(&model.Tenant{}).
		Where("admin_email = ? AND id <> ?", t.AdminEmail, t.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateEmail
	}

	return nil
}

// GenerateTenantID derives a short, effectively-unique tenant id from the
// display name: lowercased slug prefix plus a random suffix. Assigned
// exactly once; never regenerated.
func GenerateTenantID(name string) string {
	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "-"))
	if len(slug) > tenantSlugMaxLen {
		slug = slug[:tenantSlugMaxLen]
	}
	suffix := uuid.New().String()[:8]
	return fmt.Sprintf("%s-%s", slug, suffix)
}

// Provision runs the provisioning sequence for a persisted tenant record.
// Each step is gated on its recorded outcome, so re-invoking the sequence
// on a partially-provisioned tenant resumes where it left off instead of
// duplicating records. Billing account and workspace failures are fatal;
// administrator and subscription failures are logged and skipped so the
// tenant can be reconciled later.
func (p *Provisioner) Provision(ctx context.Context, t *model.Tenant) error {
	log := p.log.With(zap.String("tenant_id", t.TenantID), zap.String("tenant", t.Name))
	db := p.db.WithContext(ctx)

	if t.BillingAccountID == nil {
		if err := p.createBillingAccount(db, t); err != nil {
			prometheus.RecordProvisioningStep("billing_account", "error")
			log.Error("Failed to create billing account", zap.Error(err))
			return fmt.Errorf("failed to create billing account: %w", err)
		}
		prometheus.RecordProvisioningStep("billing_account", "ok")
		p.advance(db, t, model.ProvisionBillingOK)
	}

	if t.CompanyID == nil {
		if err := p.createCompany(db, t); err != nil {
			prometheus.RecordProvisioningStep("workspace", "error")
			log.Error("Failed to create company", zap.Error(err))
			return fmt.Errorf("failed to create company: %w", err)
		}
		prometheus.RecordProvisioningStep("workspace", "ok")
		p.advance(db, t, model.ProvisionWorkspaceOK)
	}

	adminOK := true
	if err := p.setupAdminUser(db, t); err != nil {
		// Non-fatal: an operator can provision the administrator later
		adminOK = false
		prometheus.RecordProvisioningStep("admin_user", "error")
		log.Error("Failed to set up admin user", zap.Error(err))
		p.advance(db, t, model.ProvisionAdminSkipped)
	} else {
		prometheus.RecordProvisioningStep("admin_user", "ok")
		p.advance(db, t, model.ProvisionAdminOK)
	}

	subscriptionOK := true
	if err := p.createSubscription(db, t); err != nil {
		// Non-fatal: the subscription can be created later
		subscriptionOK = false
		prometheus.RecordProvisioningStep("subscription", "error")
		log.Error("Failed to create subscription", zap.Error(err))
		p.advance(db, t, model.ProvisionSubscriptionSkipped)
	} else {
		prometheus.RecordProvisioningStep("subscription", "ok")
		p.advance(db, t, model.ProvisionSubscriptionOK)
	}

	if adminOK && subscriptionOK {
		t.ProvisioningState = model.ProvisionComplete
	}
	if err := db.Save(t).Error; err != nil {
		return fmt.Errorf("failed to persist tenant: %w", err)
	}

	log.Info("Tenant provisioned",
		zap.String("state", t.ProvisioningState),
		zap.String("status", t.Status))
	return nil
}

// advance records a completed step and the record references it produced
// on the tenant row, so the saga survives a crash between steps
func (p *Provisioner) advance(db *gorm.DB, t *model.Tenant, state string) {
	t.ProvisioningState = state
	if err := db.Model(&model.Tenant{}).Where("id = ?", t.ID).
		Updates(map[string]interface{}{
			"provisioning_state": state,
			"billing_account_id": t.BillingAccountID,
			"company_id":         t.CompanyID,
			"subscription_id":    t.SubscriptionID,
		}).Error; err != nil {
		p.log.Warn("Failed to record provisioning state",
			zap.String("tenant_id", t.TenantID),
			zap.String("state", state),
			zap.Error(err))
	}
}

// createBillingAccount creates the platform's billing record for the
// tenant, tagged SYSTEM: it belongs to the platform's accounts-receivable
// view, not to the tenant's own data.
func (p *Provisioner) createBillingAccount(db *gorm.DB, t *model.Tenant) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())

	name, err := p.uniqueName(db, &model.BillingAccount{}, t.Name)
	if err != nil {
		return err
	}

	account := model.BillingAccount{
		Name:     name,
		Currency: p.cfg.DefaultCurrency,
		Scoped:   model.Scoped{TenantID: tenantctx.SystemScope},
	}
	if err := db.Create(&account).Error; err != nil {
		return err
	}

	t.BillingAccountID = &account.ID
	p.log.Info("Created billing account",
		zap.String("name", account.Name),
		zap.String("tenant_id", t.TenantID))
	return nil
}

// createCompany creates the tenant's own workspace, tagged with the
// tenant's scope
func (p *Provisioner) createCompany(db *gorm.DB, t *model.Tenant) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())

	name, err := p.uniqueName(db, &model.Company{}, t.Name)
	if err != nil {
		return err
	}
	abbr, err := p.uniqueAbbr(db, t.Name)
	if err != nil {
		return err
	}

	company := model.Company{
		Name:     name,
		Abbr:     abbr,
		Currency: p.cfg.DefaultCurrency,
		Scoped:   model.Scoped{TenantID: t.TenantID},
	}
	if err := db.Create(&company).Error; err != nil {
		return err
	}

	t.CompanyID = &company.ID
	p.log.Info("Created company",
		zap.String("name", company.Name),
		zap.String("abbr", company.Abbr),
		zap.String("tenant_id", t.TenantID))
	return nil
}

// setupAdminUser tags an existing principal with the tenant's scope, or
// creates a new enabled principal with the baseline role set
func (p *Provisioner) setupAdminUser(db *gorm.DB, t *model.Tenant) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())

	var existing model.User
	err := db.Where("email = ?", t.AdminEmail).First(&existing).Error
	if err == nil {
		if err := db.Model(&existing).Update("tenant_id", t.TenantID).Error; err != nil {
			return err
		}
		if p.resolver != nil {
			p.resolver.Invalidate(existing.Email)
		}
		p.log.Info("Tagged existing user with tenant scope",
			zap.String("email", t.AdminEmail),
			zap.String("tenant_id", t.TenantID))
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	// New principals get a random credential; the admin resets it through
	// the usual password flow.
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.New().String()), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := model.User{
		Email:     t.AdminEmail,
		Password:  string(hash),
		FirstName: t.Name,
		Enabled:   true,
		Roles:     model.AdminBaselineRoles,
		TenantID:  t.TenantID,
	}
	if err := db.Create(&user).Error; err != nil {
		return err
	}

	p.log.Info("Created admin user",
		zap.String("email", user.Email),
		zap.String("tenant_id", t.TenantID))
	return nil
}

// createSubscription ensures the default plan exists, then links the
// tenant's billing account to it with a trial window. A tenant that
// already has a subscription reference is a no-op.
func (p *Provisioner) createSubscription(db *gorm.DB, t *model.Tenant) error {
	if t.SubscriptionID != nil {
		return nil
	}
	if t.BillingAccountID == nil {
		return errors.New("tenant has no billing account")
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	plan, err := p.ensureDefaultPlan(db)
	if err != nil {
		return err
	}

	now := time.Now()
	trialEnd := now.AddDate(0, 0, p.cfg.TrialDays)
	subscription := model.Subscription{
		BillingAccountID: *t.BillingAccountID,
		Status:           "Trialing",
		StartDate:        now,
		TrialStart:       &now,
		TrialEnd:         &trialEnd,
		Scoped:           model.Scoped{TenantID: tenantctx.SystemScope},
		Lines: []model.SubscriptionLine{
			{PlanID: plan.ID, Qty: 1, Scoped: model.Scoped{TenantID: tenantctx.SystemScope}},
		},
	}
	if err := db.Create(&subscription).Error; err != nil {
		return err
	}

	t.SubscriptionID = &subscription.ID
	t.TrialExpiry = &trialEnd
	t.Status = model.TenantStatusTrial

	p.log.Info("Created subscription",
		zap.Uint("subscription_id", subscription.ID),
		zap.String("plan", plan.Name),
		zap.Time("trial_expiry", trialEnd),
		zap.String("tenant_id", t.TenantID))
	return nil
}

// ensureDefaultPlan creates the zero-cost plan and its billable item in
// the shared catalog if they are absent
func (p *Provisioner) ensureDefaultPlan(db *gorm.DB) (*model.Plan, error) {
	var plan model.Plan
	err := db.Where("name = ?", p.cfg.DefaultPlanName).First(&plan).Error
	if err == nil {
		return &plan, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	itemCode := p.cfg.DefaultPlanName + " Service"
	var item model.Item
	err = db.Where("code = ?", itemCode).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		item = model.Item{
			Code:   itemCode,
			Name:   itemCode,
			Scoped: model.Scoped{TenantID: tenantctx.SystemScope},
		}
		if err := db.Create(&item).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	plan = model.Plan{
		Name:     p.cfg.DefaultPlanName,
		PlanType: model.PlanTypeFree,
		Currency: p.cfg.DefaultCurrency,
		ItemID:   &item.ID,
		Scoped:   model.Scoped{TenantID: tenantctx.SystemScope},
	}
	if err := db.Create(&plan).Error; err != nil {
		return nil, err
	}

	p.log.Info("Created default plan", zap.String("plan", plan.Name))
	return &plan, nil
}

// uniqueName resolves name collisions by appending an incrementing numeric
// suffix until the name is unused
func (p *Provisioner) uniqueName(db *gorm.DB, mdl interface{}, base string) (string, error) {
	name := base
	counter := 1
	for {
		var count int64
		if err := db.Model(mdl).Where("name = ?", name).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return name, nil
		}
		name = fmt.Sprintf("%s %d", base, counter)
		counter++
	}
}

// uniqueAbbr derives a workspace short code from the initials of the
// tenant name, re-suffixed on collision
func (p *Provisioner) uniqueAbbr(db *gorm.DB, name string) (string, error) {
	var initials strings.Builder
	for _, word := range strings.Fields(name) {
		initials.WriteString(strings.ToUpper(string([]rune(word)[0])))
	}
	base := initials.String()
	if len(base) > 5 {
		base = base[:5]
	}
	if base == "" {
		base = "CO"
	}

	abbr := base
	counter := 1
	for {
		var count int64
		if err := db.Model(&model.Company{}).Where("abbr = ?", abbr).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return abbr, nil
		}
		abbr = fmt.Sprintf("%s%d", base, counter)
		counter++
	}
}
