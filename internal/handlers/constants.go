package handlers

// Common error message constants shared across handlers
const (
	ErrMsgInvalidRequestBody   = "Invalid request body"
	ErrMsgBodyTooLarge         = "Request body too large"
	ErrMsgInvalidApplicationID = "Invalid application ID"
	ErrMsgUnauthorized         = "Unauthorized"
	ErrMsgForbidden            = "Staff access required"
	ErrMsgNotFound             = "Application not found"
	ErrMsgInternal             = "Internal server error"
	ErrMsgUnavailable          = "Service temporarily unavailable, please retry"
)

// Error codes returned in the "code" field
const (
	CodeValidation      = "VALIDATION"
	CodeBodyTooLarge    = "BODY_TOO_LARGE"
	CodeLimitReached    = "LIMIT_REACHED"
	CodeCooldownActive  = "COOLDOWN_ACTIVE"
	CodeAlreadyPending  = "ALREADY_PENDING"
	CodeAlreadyApproved = "ALREADY_APPROVED"
	CodeNotGuildMember  = "NOT_GUILD_MEMBER"
	CodeNotFound        = "NOT_FOUND"
	CodeAlreadyReviewed = "ALREADY_REVIEWED"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeUnavailable     = "UNAVAILABLE"
	CodeInternal        = "INTERNAL"
)

// maxBodyBytes bounds request bodies; a full questionnaire is well below it
const maxBodyBytes = 256 << 10
