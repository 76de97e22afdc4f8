package middleware

import "context"

type contextKey string

const requestInfoKey contextKey = "request_info"

// requestInfo carries values discovered by inner handlers back out to the
// logging and tracing middleware.
type requestInfo struct {
	sessionID string
}

func withRequestInfo(ctx context.Context) (context.Context, *requestInfo) {
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		return ctx, info
	}
	info := &requestInfo{}
	return context.WithValue(ctx, requestInfoKey, info), info
}

// SetSessionID records the browser session serving the request so the access
// log and Sentry can tag it. It is a no-op outside AccessLog or SentryMiddleware.
func SetSessionID(ctx context.Context, sessionID string) {
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		info.sessionID = sessionID
	}
}

// GetSessionID returns the session recorded with SetSessionID.
func GetSessionID(ctx context.Context) string {
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		return info.sessionID
	}
	return ""
}
