package tenantctx

import "sync"

// Directory looks up a principal's stored tenant assignment. An empty
// tenant id with a nil error means the principal has no assignment.
type Directory interface {
	TenantIDByEmail(email string) (string, error)
}

// Resolver resolves a principal's tenant scope, caching the result per
// principal so the underlying lookup happens once per session, not once
// per record.
type Resolver struct {
	dir Directory

	mu    sync.RWMutex
	cache map[string]string
}

// NewResolver creates a resolver backed by the given principal directory.
func NewResolver(dir Directory) *Resolver {
	return &Resolver{
		dir:   dir,
		cache: make(map[string]string),
	}
}

// Resolve returns the tenant scope for a principal.
//
// The superuser always resolves to SYSTEM. A principal with no stored
// tenant assignment also resolves to SYSTEM, which only grants access to
// shared data, so the default fails closed. A failed lookup is returned
// as an error for the caller to fail closed on.
func (r *Resolver) Resolve(p Principal) (string, error) {
	if p.Superuser {
		return SystemScope, nil
	}

	r.mu.RLock()
	scope, ok := r.cache[p.Email]
	r.mu.RUnlock()
	if ok {
		return scope, nil
	}

	tenantID, err := r.dir.TenantIDByEmail(p.Email)
	if err != nil {
		return "", err
	}
	if tenantID == "" {
		tenantID = SystemScope
	}

	r.mu.Lock()
	r.cache[p.Email] = tenantID
	r.mu.Unlock()

	return tenantID, nil
}

// Invalidate drops the cached scope for a principal. Called when a tenant
// assignment changes, e.g. when provisioning tags an existing user.
func (r *Resolver) Invalidate(email string) {
	r.mu.Lock()
	delete(r.cache, email)
	r.mu.Unlock()
}
