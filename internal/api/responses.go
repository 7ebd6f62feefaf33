package api

// ErrorResponse carries a stable machine-readable code alongside the
// human-readable message.
type ErrorResponse struct {
	Code  string `json:"code,omitempty" example:"INSUFFICIENT_FUNDS"`
	Error string `json:"error" example:"something went wrong"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// Stable error codes surfaced to clients.
const (
	CodeInvalidAmount      = "INVALID_AMOUNT"
	CodeInsufficientFunds  = "INSUFFICIENT_FUNDS"
	CodeCampaignNotActive  = "CAMPAIGN_NOT_ACTIVE"
	CodeAlreadyReleased    = "ALREADY_RELEASED"
	CodeTxConflict         = "TX_CONFLICT"
	CodeStoreUnavailable   = "STORE_UNAVAILABLE"
	CodeInvariantViolation = "INVARIANT_VIOLATION"
)
