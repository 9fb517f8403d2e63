package auth

import (
	"context"
)

// Context keys for authentication data
type contextKey string

const (
	// ContextKeyUID is the context key for the authenticated account uid
	ContextKeyUID contextKey = "uid"
	// ContextKeyRole is the context key for the caller's role claim
	ContextKeyRole contextKey = "role"
	// ContextKeyPhone is the context key for the verified phone identifier
	ContextKeyPhone contextKey = "phone"
)

// RoleAdmin is the role claim value required for admin endpoints
const RoleAdmin = "admin"

// WithUID adds the account uid to the context
func WithUID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, ContextKeyUID, uid)
}

// UIDFromContext retrieves the account uid from the context
func UIDFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(ContextKeyUID).(string)
	return uid, ok
}

// WithRole adds the role claim to the context
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ContextKeyRole, role)
}

// RoleFromContext retrieves the role claim from the context
func RoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(ContextKeyRole).(string)
	return role, ok
}

// WithPhone adds the verified phone identifier to the context
func WithPhone(ctx context.Context, phone string) context.Context {
	return context.WithValue(ctx, ContextKeyPhone, phone)
}

// PhoneFromContext retrieves the verified phone identifier from the context
func PhoneFromContext(ctx context.Context) (string, bool) {
	phone, ok := ctx.Value(ContextKeyPhone).(string)
	return phone, ok
}
