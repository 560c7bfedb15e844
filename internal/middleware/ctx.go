package middleware

import "context"

type ctxKey string

const (
	ContextUserEmail ctxKey = "user_email"
	ContextRole      ctxKey = "role"
	ContextAuthority ctxKey = "authority"
	ContextRequestID ctxKey = "request_id"
)

func UserEmailFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextUserEmail).(string)
	return v, ok
}

func RoleFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextRole).(string)
	return v, ok
}

func AuthorityFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextAuthority).(string)
	return v, ok
}
