package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound      ErrCode = "NOT_FOUND"
	ErrRouteNotFound ErrCode = "ROUTE_NOT_FOUND"

	// ─── Dependencies ──────────────────────────────────────────────────
	ErrStoreUnavailable  ErrCode = "STORE_UNAVAILABLE"
	ErrSearchUnavailable ErrCode = "SEARCH_UNAVAILABLE"
	ErrPartialDelete     ErrCode = "PARTIAL_DELETE"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Degree not found."
	case ErrRouteNotFound:
		return "Route not found."

	// ─── Dependencies ──────────────────────────────────────────────────
	case ErrStoreUnavailable:
		return "The record store is unavailable. Please try again later."
	case ErrSearchUnavailable:
		return "Search is temporarily unavailable. Please try again later."
	case ErrPartialDelete:
		return "The degree was deleted but may still appear in search results for a short time."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
