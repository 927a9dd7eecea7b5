package isolation

import (
	"github.com/varun-krishnamurthy/saas-platform/internal/tenantctx"
	"github.com/varun-krishnamurthy/saas-platform/prometheus"
	"go.uber.org/zap"
)

// TenantScoped is implemented by every entity that participates in tenant
// isolation. Entity types without the capability are never touched.
type TenantScoped interface {
	GetTenantID() string
	SetTenantID(id string)
}

// ChildScoped is implemented by records that embed child rows which must
// carry the same tenant scope as their parent.
type ChildScoped interface {
	ScopedChildren() []TenantScoped
}

// DefaultExcludedEntities are the platform/meta tables exempt from tenant
// isolation: identity, role, shared catalog and billing-chain tables. The
// list is configuration, overridable via TENANT_EXCLUDED_ENTITIES.
var DefaultExcludedEntities = []string{
	"users",
	"roles",
	"tenants",
	"plans",
	"items",
	"subscriptions",
	"subscription_lines",
	"billing_accounts",
	"sessions",
	"schema_migrations",
}

// Guard enforces tenant isolation on the storage read/write paths: it
// stamps new records with the acting principal's tenant scope and builds
// the visibility predicate ANDed into every list query.
type Guard struct {
	resolver *tenantctx.Resolver
	excluded map[string]struct{}
	log      *zap.Logger
}

// NewGuard creates a guard. A nil or empty excluded list selects
// DefaultExcludedEntities.
func NewGuard(resolver *tenantctx.Resolver, excluded []string, log *zap.Logger) *Guard {
	if len(excluded) == 0 {
		excluded = DefaultExcludedEntities
	}
	set := make(map[string]struct{}, len(excluded))
	for _, e := range excluded {
		set[e] = struct{}{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{resolver: resolver, excluded: set, log: log}
}

// Excluded reports whether an entity type is exempt from isolation.
func (g *Guard) Excluded(entity string) bool {
	_, ok := g.excluded[entity]
	return ok
}

// Stamp assigns the acting principal's tenant scope to a record before it
// is persisted. Superuser writes are never auto-stamped, excluded entities
// are left alone, and an explicitly set scope wins (SYSTEM counts as a
// placeholder, not an explicit choice). Child rows always end up with the
// parent's scope.
func (g *Guard) Stamp(rc tenantctx.RequestContext, entity string, rec TenantScoped) {
	if rc.Principal.Superuser {
		return
	}
	if g.Excluded(entity) {
		return
	}

	current := rec.GetTenantID()
	if current == "" || current == tenantctx.SystemScope {
		scope := rc.Scope
		if scope == "" {
			g.log.Warn("stamp skipped, request context has no resolved scope",
				zap.String("entity", entity),
				zap.String("principal", rc.Principal.Email))
			return
		}
		rec.SetTenantID(scope)
	}

	// Child rows inherit the parent's scope even when the parent carried an
	// explicit value, so a record can never be persisted with mixed scopes.
	if parent, ok := rec.(ChildScoped); ok {
		owner := rec.GetTenantID()
		for _, child := range parent.ScopedChildren() {
			child.SetTenantID(owner)
		}
	}
}

// Predicate is a parameterized row-visibility condition. The scope value is
// always a bound argument, never interpolated into the expression.
type Predicate struct {
	Expr string
	Args []interface{}
}

// Restricted reports whether the predicate restricts visibility at all.
func (p Predicate) Restricted() bool {
	return p.Expr != ""
}

// Visibility builds the row-visibility predicate for a principal querying
// an entity type. The superuser and excluded entities get unrestricted
// visibility. Everyone else sees their own tenant's rows, SYSTEM shared
// rows, and NULL-tenant legacy rows written before the column existed. If
// scope resolution fails the predicate matches nothing: access control
// fails closed, never open.
func (g *Guard) Visibility(rc tenantctx.RequestContext, entity string) Predicate {
	if rc.Principal.Superuser {
		return Predicate{}
	}
	if g.Excluded(entity) {
		return Predicate{}
	}

	scope := rc.Scope
	if scope == "" {
		resolved, err := g.resolver.Resolve(rc.Principal)
		if err != nil {
			g.log.Error("scope resolution failed, denying all rows",
				zap.String("entity", entity),
				zap.String("principal", rc.Principal.Email),
				zap.Error(err))
			prometheus.RecordIsolationError("scope_resolution")
			return Predicate{Expr: "tenant_id = ?", Args: []interface{}{""}}
		}
		scope = resolved
	}

	return Predicate{
		Expr: "(tenant_id IN (?,?) OR tenant_id IS NULL)",
		Args: []interface{}{scope, tenantctx.SystemScope},
	}
}
