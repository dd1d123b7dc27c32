// Package gatewayerr carries the admission pipeline's terminal
// rejection reasons: an HTTP status plus a stable machine-readable
// code (§7 of the gateway's error taxonomy), modeled on the teacher's
// api/utils.httpError.
package gatewayerr

import "net/http"

// Code is a stable, machine-readable rejection reason.
type Code string

const (
	CodeMalformed           Code = "Malformed"
	CodeUnsupportedAlgo     Code = "UnsupportedAlgorithm"
	CodeUnknownKid          Code = "UnknownKid"
	CodeInvalidSignature    Code = "InvalidSignature"
	CodeExpired             Code = "Expired"
	CodeExpiredBeyondGrace  Code = "ExpiredBeyondGrace"
	CodeScopeMismatch       Code = "ScopeMismatch"
	CodeRouteNotInScope     Code = "RouteNotInScope"
	CodeRouteRequiresLicense Code = "RouteRequiresLicense"
	CodeDomainNotAuthorized Code = "DomainNotAuthorized"
	CodeRevoked             Code = "Revoked"
	CodeTooManyRequests     Code = "TooManyRequests"
	CodePaymentRequired     Code = "PaymentRequired"
)

// Error is a pipeline-stage rejection: an HTTP status, a stable code,
// and an optional human message. The pipeline's stages set fixed
// messages; the administrative handlers put the underlying store or
// request-parsing error text in Message.
type Error struct {
	Status  int
	Code    Code
	Message string
	// RetryAfterSeconds is set on 429 responses.
	RetryAfterSeconds int
}

func (e *Error) Error() string {
	return string(e.Code)
}

// New builds a gatewayerr.Error with the given status/code/message.
func New(status int, code Code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// Unauthorized is shorthand for the 401 family (§6.4).
func Unauthorized(code Code, message string) *Error {
	return New(http.StatusUnauthorized, code, message)
}

// Forbidden is shorthand for the 403 family.
func Forbidden(code Code, message string) *Error {
	return New(http.StatusForbidden, code, message)
}

// TooManyRequests is shorthand for the 429 family, carrying Retry-After.
func TooManyRequests(code Code, message string, retryAfterSeconds int) *Error {
	return &Error{
		Status:            http.StatusTooManyRequests,
		Code:              code,
		Message:           message,
		RetryAfterSeconds: retryAfterSeconds,
	}
}

// PaymentRequired is shorthand for the 402 family (metered "block" policy).
func PaymentRequired(code Code, message string) *Error {
	return New(http.StatusPaymentRequired, code, message)
}
