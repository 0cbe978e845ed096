package wazero

import (
	"context"

	"github.com/tetratelabs/wazero/api"
)

// contextKey is a private type for context keys.
type contextKey struct {
	name string
}

var realmIDKey = &contextKey{name: "realm_id"}

// WithRealmID tags ctx with the realm a module runs in, for diagnostics.
func WithRealmID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, realmIDKey, id)
}

// RealmIDFromContext retrieves the realm id from the context.
func RealmIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(realmIDKey).(string)
	return id, ok
}

// RealmID extracts the realm id from context, falling back to the module name.
func RealmID(ctx context.Context, mod api.Module) string {
	if id, ok := RealmIDFromContext(ctx); ok {
		return id
	}
	if mod == nil {
		return ""
	}
	return mod.Name()
}
