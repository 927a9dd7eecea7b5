package isolation

import (
	"github.com/varun-krishnamurthy/saas-platform/internal/tenantctx"
	"gorm.io/gorm"
)

const stampCallbackName = "tenant:stamp_on_create"

// RegisterCallbacks hooks the guard into the ORM lifecycle so every insert
// of a tenant-scoped record is stamped before it reaches the database. The
// request context is recovered from the statement's context; inserts done
// outside a request (bootstrap, migrations) are left untouched.
func (g *Guard) RegisterCallbacks(db *gorm.DB) error {
	return db.Callback().Create().Before("gorm:create").Register(stampCallbackName, g.stampOnCreate)
}

func (g *Guard) stampOnCreate(db *gorm.DB) {
	rc, ok := tenantctx.FromContext(db.Statement.Context)
	if !ok {
		return
	}

	rec, ok := db.Statement.Dest.(TenantScoped)
	if !ok {
		return
	}

	g.Stamp(rc, db.Statement.Table, rec)
}

// Scope returns a query scope that ANDs the caller's visibility predicate
// into a list/search against the given entity type.
func (g *Guard) Scope(rc tenantctx.RequestContext, entity string) func(*gorm.DB) *gorm.DB {
	p := g.Visibility(rc, entity)
	return func(db *gorm.DB) *gorm.DB {
		if !p.Restricted() {
			return db
		}
		return db.Where(p.Expr, p.Args...)
	}
}
