package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeInvalidToken = "invalid_token"
	ErrCodeTokenExpired = "token_expired"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"

	// Resource errors
	ErrCodeNotFound      = "not_found"
	ErrCodeAlreadyExists = "already_exists"
	ErrCodeConflict      = "conflict"

	// Game publishing errors
	ErrCodeGameNotFound      = "game_not_found"
	ErrCodeGamePublishFailed = "game_publish_failed"
	ErrCodeInvalidGame       = "invalid_game"

	// Team/session errors
	ErrCodeTeamCreationFailed = "team_creation_failed"
	ErrCodeSessionNotFound    = "session_not_found"
	ErrCodeInvalidTeamID      = "invalid_team_id"
	ErrCodePointLocked        = "point_locked"
	ErrCodePointNotOpen       = "point_not_open"
	ErrCodeRoundFinalized     = "round_already_finalized"
	ErrCodeNotCaptain         = "not_captain"
	ErrCodeForceNotAllowed    = "force_not_allowed"
	ErrCodeHintsExhausted     = "hints_exhausted"
	ErrCodeUnknownMember      = "unknown_member"
	ErrCodeSubmitFailed       = "submit_failed"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"
	ErrCodeConnectionError    = "connection_error"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"
)
