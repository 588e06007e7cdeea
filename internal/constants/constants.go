package constants

// Context keys
const (
	ContextKeyUserID = "user_id"
	ContextKeyUser   = "user"
)

// Session
const (
	SessionCookieName      = "taskflow_session"
	SessionKeyRefreshToken = "refresh_token"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Validation limits
const (
	MinPasswordLength  = 6
	MaxPasswordLength  = 128
	MaxTitleLength     = 255
	MaxCommentLength   = 5000
	MaxBulkCreateTasks = 50

	// AI drafts are meant to be posted to the bulk endpoint, so they share its cap.
	MaxAIGeneratedTasks = MaxBulkCreateTasks
)

// Analytics
const (
	DefaultTrendDays = 30
	MinTrendDays     = 7
	MaxTrendDays     = 365
)

// Rate limits (requests per minute per client IP)
const (
	RegisterRateLimit = 5
	LoginRateLimit    = 10
)
