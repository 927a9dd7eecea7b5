package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/varun-krishnamurthy/saas-platform/internal/tenantctx"
	"github.com/varun-krishnamurthy/saas-platform/pkg/jwtutil"
	"github.com/varun-krishnamurthy/saas-platform/pkg/logger"
	"go.uber.org/zap"
)

const requestContextKey = "request_context"

// JWTAuthMiddleware validates the bearer token and builds the request
// context from its claims. The tenant scope was resolved once at login and
// travels in the token, so no directory lookup happens here. The request
// context is threaded into the request's context.Context so storage-layer
// hooks can stamp new records.
func JWTAuthMiddleware(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				log.Warn("Missing authorization header")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization header"})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				log.Warn("Invalid authorization header format")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization header format"})
			}

			claims, err := jwtUtil.ValidateToken(parts[1])
			if err != nil {
				log.Warn("Invalid or expired token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			rc := tenantctx.RequestContext{
				Principal: tenantctx.Principal{
					UserID:    claims.UserID,
					Email:     claims.Email,
					Superuser: claims.Superuser,
				},
				Scope: claims.Scope,
			}

			c.Set("user", claims)
			c.Set(requestContextKey, rc)

			req := c.Request()
			c.SetRequest(req.WithContext(tenantctx.NewContext(req.Context(), rc)))

			log.Debug("JWT token validated successfully",
				zap.Uint("user_id", claims.UserID),
				zap.String("email", claims.Email),
				zap.String("scope", claims.Scope))

			return next(c)
		}
	}
}

// RequestContextFromEcho returns the request context set by the auth middleware
func RequestContextFromEcho(c echo.Context) (tenantctx.RequestContext, bool) {
	rc, ok := c.Get(requestContextKey).(tenantctx.RequestContext)
	return rc, ok
}

// SuperuserOnly rejects requests from principals other than the platform operator
func SuperuserOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rc, ok := RequestContextFromEcho(c)
			if !ok || !rc.Principal.Superuser {
				logger.FromEcho(c).Warn("Superuser-only endpoint denied",
					zap.String("principal", rc.Principal.Email))
				return c.JSON(http.StatusForbidden, echo.Map{"error": "superuser access required"})
			}
			return next(c)
		}
	}
}
