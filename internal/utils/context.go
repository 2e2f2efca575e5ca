package utils

import (
	"context"
)

type contextKey string

const (
	ContextUserIDKey contextKey = "userID"
	ContextTokenKey  contextKey = "tokenKey"
)

// TokenData is what the token middleware needs to know about a presented key.
type TokenData struct {
	Key    string
	UserID uint
}

// WithIdentity stores the resolved caller on the request context.
func WithIdentity(ctx context.Context, token TokenData) context.Context {
	ctx = context.WithValue(ctx, ContextUserIDKey, token.UserID)
	return context.WithValue(ctx, ContextTokenKey, token.Key)
}

func GetUserIDFromContext(ctx context.Context) (uint, bool) {
	userID, ok := ctx.Value(ContextUserIDKey).(uint)
	return userID, ok
}

func GetTokenFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(ContextTokenKey).(string)
	return key, ok
}
