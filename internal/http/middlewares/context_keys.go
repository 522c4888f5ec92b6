package middlewares

const (
	// gin context keys
	CtxRequestID = "request_id"
	ctxUserIDKey = "auth.userID"
)
