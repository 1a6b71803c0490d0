// Package tenant carries the requesting tenant through a context so pricing
// can decide markup exemption without threading identifiers everywhere.
package tenant

import (
	"context"
	"strings"
)

type tenantKey struct{}

// WithTenant returns ctx tagged with the trimmed tenant id. A blank id leaves
// ctx untouched, so an outer tenant is never masked by an empty one.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return ctx
	}
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// FromContext returns the tenant stored by WithTenant.
func FromContext(ctx context.Context) (string, bool) {
	tenantID, ok := ctx.Value(tenantKey{}).(string)
	return tenantID, ok
}

// Resolve prefers an explicit tenant id and falls back to the one on ctx.
// It returns "" when neither is set.
func Resolve(ctx context.Context, explicit string) string {
	if id := strings.TrimSpace(explicit); id != "" {
		return id
	}
	id, _ := FromContext(ctx)
	return id
}
