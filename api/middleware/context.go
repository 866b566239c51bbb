package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

type identityKey struct{}

// identity is the authenticated caller stored on the request context.
type identity struct {
	userID string
	email  string
	role   string
}

func identityFrom(ctx context.Context) identity {
	if ctx == nil {
		return identity{}
	}
	id, _ := ctx.Value(identityKey{}).(identity)
	return id
}

func withIdentity(ctx context.Context, id identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityKey{}, id)
}

func UserIDFromContext(ctx context.Context) string { return identityFrom(ctx).userID }

func EmailFromContext(ctx context.Context) string { return identityFrom(ctx).email }

func RoleFromContext(ctx context.Context) string { return identityFrom(ctx).role }

// UserUUIDFromContext parses the authenticated user id; uuid.Nil when absent.
func UserUUIDFromContext(ctx context.Context) uuid.UUID {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return uuid.Nil
	}
	return id
}

// WithUserID sets the caller id, keeping any role already present.
func WithUserID(ctx context.Context, userID string) context.Context {
	id := identityFrom(ctx)
	id.userID = userID
	return withIdentity(ctx, id)
}

// WithRole sets the caller role, keeping any id already present.
func WithRole(ctx context.Context, role enums.UserRole) context.Context {
	id := identityFrom(ctx)
	id.role = string(role)
	return withIdentity(ctx, id)
}
