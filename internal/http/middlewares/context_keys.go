package middlewares

// gin context keys
const (
	CtxRequestID = "request_id"
	CtxUserID    = "auth.userID"
	CtxName      = "auth.name"
	CtxEmail     = "auth.email"
	CtxRole      = "auth.role"
)
