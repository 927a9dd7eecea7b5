package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/varun-krishnamurthy/saas-platform/internal/handler"
	"github.com/varun-krishnamurthy/saas-platform/internal/isolation"
	appmiddleware "github.com/varun-krishnamurthy/saas-platform/internal/middleware"
	"github.com/varun-krishnamurthy/saas-platform/internal/migrate"
	"github.com/varun-krishnamurthy/saas-platform/internal/model"
	"github.com/varun-krishnamurthy/saas-platform/internal/provision"
	"github.com/varun-krishnamurthy/saas-platform/internal/tenantctx"
	"github.com/varun-krishnamurthy/saas-platform/pkg/config"
	"github.com/varun-krishnamurthy/saas-platform/pkg/database"
	"github.com/varun-krishnamurthy/saas-platform/pkg/jwtutil"
	"github.com/varun-krishnamurthy/saas-platform/pkg/logger"
	"github.com/varun-krishnamurthy/saas-platform/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found or error loading: %v\n", err)
	}

	// Load configuration
	conf, err := config.Load("saas-platform")
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	err = logger.InitLogger(&logger.LogConfig{
		Level:       conf.Log.Level,
		Environment: conf.Server.Env,
		ServiceName: conf.ServiceName,
	})
	if err != nil {
		fmt.Printf("Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.GetLogger()
	log.Info("Configuration loaded", conf.LogConfig()...)

	// Initialize database connection
	db, err := database.InitDB(&conf.DB)
	if err != nil {
		log.Fatal("Failed to initialize database")
	}

	// Run migrations for platform models
	if err := database.MigrateModels(
		&model.Tenant{},
		&model.User{},
		&model.Plan{},
		&model.Item{},
		&model.BillingAccount{},
		&model.Subscription{},
		&model.SubscriptionLine{},
		&model.Company{},
	); err != nil {
		log.Fatal("Failed to migrate database models", zap.Error(err))
	}

	// Wire the tenant isolation core
	resolver := tenantctx.NewResolver(model.NewUserDirectory(db))
	guard := isolation.NewGuard(resolver, conf.Tenant.ExcludedEntities, log)
	if err := guard.RegisterCallbacks(db); err != nil {
		log.Fatal("Failed to register isolation callbacks", zap.Error(err))
	}

	// Ensure the platform operator principal exists
	if err := bootstrapSuperuser(db, conf.Tenant.SuperuserEmail, log); err != nil {
		log.Fatal("Failed to bootstrap superuser", zap.Error(err))
	}

	// Initialize JWT utility
	jwt := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      conf.JWT.SigningKey,
		ExpirationHours: conf.JWT.ExpirationHours,
	})

	provisioner := provision.NewProvisioner(db, resolver, provision.Config{
		TrialDays:       conf.Tenant.TrialDays,
		DefaultPlanName: conf.Tenant.DefaultPlanName,
		DefaultCurrency: conf.Tenant.DefaultCurrency,
	}, log)

	migrator := migrate.NewTenantColumns(db, log)

	authHandler := handler.NewAuthHandler(db, jwt, resolver)
	tenantHandler := handler.NewTenantHandler(db, provisioner)
	companyHandler := handler.NewCompanyHandler(db, guard)
	planHandler := handler.NewPlanHandler(db)
	adminHandler := handler.NewAdminHandler(migrator)
	healthHandler := handler.NewHealthHandler(db)

	// Initialize Echo framework
	e := echo.New()

	// Apply middleware
	e.Use(appmiddleware.RequestIDMiddleware())
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Public routes
	e.GET("/metrics", echo.WrapHandler(prometheus.GetPrometheusHandler()))
	e.GET("/healthz", healthHandler.Check)
	e.GET("/tenant/hello", healthHandler.Hello)
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// Secured routes - require authentication
	api := e.Group("")
	api.Use(appmiddleware.JWTAuthMiddleware(jwt))

	api.GET("/tenants/:id", tenantHandler.GetTenant)
	api.GET("/plans", planHandler.ListPlans)
	api.GET("/companies", companyHandler.ListCompanies)
	api.POST("/companies", companyHandler.CreateCompany)

	// Operator routes
	ops := api.Group("")
	ops.Use(appmiddleware.SuperuserOnly())

	ops.POST("/tenants", tenantHandler.CreateTenant)
	ops.GET("/tenants", tenantHandler.ListTenants)
	ops.POST("/tenants/:id/reprovision", tenantHandler.ReprovisionTenant)
	ops.POST("/plans", planHandler.CreatePlan)
	ops.POST("/admin/migrate/tenant-columns", adminHandler.MigrateTenantColumns)

	// Start server
	log.Info("Starting saas-platform on port " + conf.Server.Port)
	e.Logger.Fatal(e.Start(":" + conf.Server.Port))
}

// bootstrapSuperuser ensures the configured platform operator exists with
// the SYSTEM scope. A freshly created operator gets a random credential
// that must be rotated through the password flow.
func bootstrapSuperuser(db *gorm.DB, email string, log *zap.Logger) error {
	var user model.User
	err := db.Where("email = ?", email).First(&user).Error
	if err == nil {
		if user.Superuser && user.TenantID == tenantctx.SystemScope {
			return nil
		}
		return db.Model(&user).Updates(map[string]interface{}{
			"superuser": true,
			"tenant_id": tenantctx.SystemScope,
		}).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.New().String()), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user = model.User{
		Email:     email,
		Password:  string(hash),
		FirstName: "Platform Operator",
		Enabled:   true,
		Superuser: true,
		TenantID:  tenantctx.SystemScope,
	}
	if err := db.Create(&user).Error; err != nil {
		return err
	}

	log.Warn("Created superuser with a random credential, reset it before use",
		zap.String("email", email))
	return nil
}
