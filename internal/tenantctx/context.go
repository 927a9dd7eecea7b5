package tenantctx

import "context"

// SystemScope is the sentinel tenant value for platform-owned records.
// Records tagged with it are shared across all tenants.
const SystemScope = "SYSTEM"

// Principal identifies the authenticated caller.
type Principal struct {
	UserID    uint
	Email     string
	Superuser bool
}

// RequestContext carries a principal and its resolved tenant scope through
// every call into the isolation guard and the provisioner. It is built once
// per request from the session token and passed by parameter, never read
// from global state.
type RequestContext struct {
	Principal Principal
	Scope     string
}

// System returns a request context for the platform operator.
func System(p Principal) RequestContext {
	p.Superuser = true
	return RequestContext{Principal: p, Scope: SystemScope}
}

type contextKey struct{}

// NewContext attaches the request context to ctx so that storage-layer
// hooks can recover it.
func NewContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, contextKey{}, rc)
}

// FromContext retrieves the request context from ctx.
func FromContext(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(contextKey{}).(RequestContext)
	return rc, ok
}
