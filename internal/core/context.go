package core

import "context"

type contextKey string

const ctxKeyClient contextKey = "client_info"

// ClientInfo identifies who started an import. It is stored with the import.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// WithClientInfo adds client details to ctx.
func WithClientInfo(ctx context.Context, ci ClientInfo) context.Context {
	return context.WithValue(ctx, ctxKeyClient, ci)
}

// ClientInfoFrom returns the client details stored in ctx, if any.
func ClientInfoFrom(ctx context.Context) ClientInfo {
	ci, _ := ctx.Value(ctxKeyClient).(ClientInfo)
	return ci
}
