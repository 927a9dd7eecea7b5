package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/varun-krishnamurthy/saas-platform/internal/model"
	"github.com/varun-krishnamurthy/saas-platform/internal/tenantctx"
	"github.com/varun-krishnamurthy/saas-platform/pkg/jwtutil"
	"github.com/varun-krishnamurthy/saas-platform/pkg/logger"
	"github.com/varun-krishnamurthy/saas-platform/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler serves registration and login. Login doubles as the session
// lifecycle hook: the principal's tenant scope is resolved once here and
// embedded in the issued token.
type AuthHandler struct {
	db       *gorm.DB
	jwt      *jwtutil.JWTUtil
	resolver *tenantctx.Resolver
}

// NewAuthHandler creates the auth handler
func NewAuthHandler(db *gorm.DB, jwt *jwtutil.JWTUtil, resolver *tenantctx.Resolver) *AuthHandler {
	return &AuthHandler{db: db, jwt: jwt, resolver: resolver}
}

// Register handles user registration
func (h *AuthHandler) Register(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RegisterCounter.Inc()

	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Email == "" || req.Password == "" {
		prometheus.RecordAuthError("incomplete_registration")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	user := model.User{
		Email:     req.Email,
		Password:  string(hash),
		FirstName: req.FirstName,
		Enabled:   true,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := h.db.Create(&user); result.Error != nil {
		log.Error("Failed to create user", zap.Error(result.Error))
		prometheus.RecordAuthError("registration_failed")
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	}

	log.Info("User registered", zap.String("email", user.Email), zap.Uint("id", user.ID))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

// Login authenticates a principal, resolves its tenant scope for the
// session, and issues a token carrying that scope
func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	result := h.db.Where("email = ?", req.Email).First(&user)
	if result.Error != nil {
		log.Error("User not found", zap.String("email", req.Email))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Error("Invalid password", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if !user.Enabled {
		log.Warn("Disabled user attempted login", zap.String("email", req.Email))
		prometheus.RecordAuthError("user_disabled")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
	}

	principal := tenantctx.Principal{
		UserID:    user.ID,
		Email:     user.Email,
		Superuser: user.Superuser,
	}

	// Session-start hook: resolve the tenant scope once and cache it in
	// the token for the session's lifetime.
	scope, err := h.resolver.Resolve(principal)
	if err != nil {
		log.Error("Failed to resolve tenant scope", zap.String("email", user.Email), zap.Error(err))
		prometheus.RecordAuthError("scope_resolution_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session setup failed"})
	}

	role := ""
	if user.Superuser {
		role = "superuser"
	} else if user.Roles != "" {
		role = strings.Split(user.Roles, ",")[0]
	}

	token, err := h.jwt.GenerateToken(user.Email, user.ID, scope, user.Superuser, role)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	prometheus.IncreaseActiveTokens()

	log.Info("User logged in",
		zap.String("email", user.Email),
		zap.Uint("user_id", user.ID),
		zap.String("scope", scope))

	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"user": echo.Map{
			"id":           user.ID,
			"email":        user.Email,
			"tenant_scope": scope,
			"superuser":    user.Superuser,
		},
	})
}
