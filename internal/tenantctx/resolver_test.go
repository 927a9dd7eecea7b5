package tenantctx_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varun-krishnamurthy/saas-platform/internal/tenantctx"
)

type fakeDirectory struct {
	assignments map[string]string
	err         error
	lookups     int
}

func (d *fakeDirectory) TenantIDByEmail(email string) (string, error) {
	d.lookups++
	if d.err != nil {
		return "", d.err
	}
	return d.assignments[email], nil
}

func TestResolveSuperuserIsSystemWithoutLookup(t *testing.T) {
	dir := &fakeDirectory{assignments: map[string]string{"root@system.local": "acme-1234"}}
	r := tenantctx.NewResolver(dir)

	scope, err := r.Resolve(tenantctx.Principal{Email: "root@system.local", Superuser: true})
	require.NoError(t, err)
	assert.Equal(t, tenantctx.SystemScope, scope)
	assert.Zero(t, dir.lookups, "superuser resolution must not hit the directory")
}

func TestResolveCachesPerPrincipal(t *testing.T) {
	dir := &fakeDirectory{assignments: map[string]string{"user@acme.com": "acme-1234"}}
	r := tenantctx.NewResolver(dir)
	p := tenantctx.Principal{Email: "user@acme.com"}

	scope, err := r.Resolve(p)
	require.NoError(t, err)
	assert.Equal(t, "acme-1234", scope)

	scope, err = r.Resolve(p)
	require.NoError(t, err)
	assert.Equal(t, "acme-1234", scope)
	assert.Equal(t, 1, dir.lookups, "second resolve must come from the cache")
}

func TestResolveUnassignedDefaultsToSystem(t *testing.T) {
	dir := &fakeDirectory{}
	r := tenantctx.NewResolver(dir)

	scope, err := r.Resolve(tenantctx.Principal{Email: "ghost@nowhere.com"})
	require.NoError(t, err)
	assert.Equal(t, tenantctx.SystemScope, scope)
}

func TestResolvePropagatesLookupError(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("directory down")}
	r := tenantctx.NewResolver(dir)

	_, err := r.Resolve(tenantctx.Principal{Email: "user@acme.com"})
	assert.Error(t, err)
}

func TestInvalidateForcesRelookup(t *testing.T) {
	dir := &fakeDirectory{assignments: map[string]string{"user@acme.com": ""}}
	r := tenantctx.NewResolver(dir)
	p := tenantctx.Principal{Email: "user@acme.com"}

	scope, err := r.Resolve(p)
	require.NoError(t, err)
	assert.Equal(t, tenantctx.SystemScope, scope)

	// Assignment changes, e.g. provisioning tagged the user
	dir.assignments["user@acme.com"] = "acme-1234"
	r.Invalidate("user@acme.com")

	scope, err = r.Resolve(p)
	require.NoError(t, err)
	assert.Equal(t, "acme-1234", scope)
	assert.Equal(t, 2, dir.lookups)
}

func TestContextRoundTrip(t *testing.T) {
	rc := tenantctx.RequestContext{
		Principal: tenantctx.Principal{UserID: 7, Email: "user@acme.com"},
		Scope:     "acme-1234",
	}

	ctx := tenantctx.NewContext(context.Background(), rc)
	got, ok := tenantctx.FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, rc, got)

	_, ok = tenantctx.FromContext(context.Background())
	assert.False(t, ok)
}
