package auth

import (
	"context"

	"google.golang.org/grpc/metadata"
)

type UserContext struct {
	MerchantID string
	UserID     string
	Role       string
}

type contextKey struct{}

// WithUser stores the authenticated caller in ctx.
func WithUser(ctx context.Context, user UserContext) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

func UserFromContext(ctx context.Context) (UserContext, bool) {
	user, ok := ctx.Value(contextKey{}).(UserContext)
	return user, ok
}

// GetMerchantID returns the merchant set by the auth interceptor, falling
// back to the x-merchant-id metadata header.
func GetMerchantID(ctx context.Context) string {
	if user, ok := UserFromContext(ctx); ok && user.MerchantID != "" {
		return user.MerchantID
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if val := md.Get("x-merchant-id"); len(val) > 0 {
			return val[0]
		}
	}
	return ""
}
