package errors

import "net/http"

// Code is the stable machine-readable error identifier returned to clients.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	// Checkout outcomes.
	CodeEmptyCart         Code = "EMPTY_CART"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodePaymentIncomplete Code = "PAYMENT_INCOMPLETE"
)

// Metadata is how a code is rendered on the wire.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	opaque   = false
	detailed = true
	final    = false
	retry    = true
)

var metadataByCode = map[Code]Metadata{
	CodeValidation:        {http.StatusBadRequest, final, "validation failed", detailed},
	CodeUnauthorized:      {http.StatusUnauthorized, final, "authentication required", opaque},
	CodeForbidden:         {http.StatusForbidden, final, "access denied", opaque},
	CodeNotFound:          {http.StatusNotFound, final, "resource not found", opaque},
	CodeConflict:          {http.StatusConflict, final, "conflict detected", opaque},
	CodeStateConflict:     {http.StatusUnprocessableEntity, final, "state transition disallowed", detailed},
	CodeIdempotency:       {http.StatusConflict, final, "idempotency key reused", detailed},
	CodeRateLimit:         {http.StatusTooManyRequests, final, "rate limit exceeded", opaque},
	CodeInternal:          {http.StatusInternalServerError, retry, "internal server error", opaque},
	CodeDependency:        {http.StatusServiceUnavailable, retry, "dependency unavailable", detailed},
	CodeEmptyCart:         {http.StatusBadRequest, final, "cart is empty", opaque},
	CodeInsufficientStock: {http.StatusConflict, final, "insufficient stock", detailed},
	CodePaymentIncomplete: {http.StatusPaymentRequired, final, "payment not successful", opaque},
}

// MetadataFor returns the metadata of code; unknown codes render as internal.
func MetadataFor(code Code) Metadata {
	meta, ok := metadataByCode[code]
	if !ok {
		return metadataByCode[CodeInternal]
	}
	return meta
}
