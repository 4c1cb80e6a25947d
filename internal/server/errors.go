package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	aidomain "github.com/hostwise/nightly/internal/ai/domain"
	"github.com/hostwise/nightly/internal/authorization"
	billingdomain "github.com/hostwise/nightly/internal/billing/domain"
	groupdomain "github.com/hostwise/nightly/internal/group/domain"
	grouprecdomain "github.com/hostwise/nightly/internal/grouprec/domain"
	integrationdomain "github.com/hostwise/nightly/internal/integration/domain"
	signaldomain "github.com/hostwise/nightly/internal/marketsignal/domain"
	overridedomain "github.com/hostwise/nightly/internal/override/domain"
	ownerdomain "github.com/hostwise/nightly/internal/owner/domain"
	pmsdomain "github.com/hostwise/nightly/internal/pms/domain"
	"github.com/hostwise/nightly/internal/pricing/engine"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
	reservationdomain "github.com/hostwise/nightly/internal/reservation/domain"
	syncdomain "github.com/hostwise/nightly/internal/sync/domain"
)

const (
	CodeInvalidInput      = "INVALID_INPUT"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeAccessRevoked     = "ACCESS_REVOKED"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeQuotaExceeded     = "QUOTA_EXCEEDED"
	CodeProviderMalformed = "PROVIDER_MALFORMED_RESPONSE"
	CodeProviderDown      = "PROVIDER_UNAVAILABLE"
	CodeInternal          = "INTERNAL"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var invalidInputErrs = []error{
	ownerdomain.ErrInvalidOwner,
	ownerdomain.ErrInvalidCurrency,
	ownerdomain.ErrInvalidLanguage,
	ownerdomain.ErrInvalidTimezone,
	propertydomain.ErrInvalidID,
	propertydomain.ErrInvalidName,
	propertydomain.ErrInvalidStatus,
	propertydomain.ErrInvalidStrategy,
	propertydomain.ErrInvalidRules,
	propertydomain.ErrInvalidTimezone,
	groupdomain.ErrInvalidID,
	groupdomain.ErrInvalidName,
	groupdomain.ErrNotMember,
	reservationdomain.ErrInvalidID,
	reservationdomain.ErrInvalidDates,
	reservationdomain.ErrInvalidStatus,
	reservationdomain.ErrStayLength,
	overridedomain.ErrInvalidID,
	overridedomain.ErrInvalidDates,
	overridedomain.ErrInvalidPrice,
	integrationdomain.ErrInvalidID,
	integrationdomain.ErrDisabled,
	pmsdomain.ErrUnknownProvider,
	pmsdomain.ErrInvalidCredentials,
	signaldomain.ErrInvalidLanguage,
	aidomain.ErrInvalidInput,
	engine.ErrInvalidRange,
	engine.ErrPropertyInactive,
	grouprecdomain.ErrTooFewMembers,
	billingdomain.ErrInvalidSignature,
}

var notFoundErrs = []error{
	ownerdomain.ErrNotFound,
	propertydomain.ErrNotFound,
	groupdomain.ErrNotFound,
	reservationdomain.ErrNotFound,
	overridedomain.ErrNotFound,
	integrationdomain.ErrNotFound,
	billingdomain.ErrNoSubscription,
	signaldomain.ErrNotReady,
}

var conflictErrs = []error{
	integrationdomain.ErrAlreadyConnected,
	groupdomain.ErrPropertyGrouped,
	reservationdomain.ErrOverlap,
	syncdomain.ErrSyncInProgress,
}

func errorIsAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func mapError(err error) (int, errorResponse) {
	switch {
	case errorIsAny(err, invalidInputErrs):
		return http.StatusBadRequest, errorResponse{Error: err.Error(), Code: CodeInvalidInput}
	case errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: err.Error(), Code: CodeForbidden}
	case errorIsAny(err, notFoundErrs):
		return http.StatusNotFound, errorResponse{Error: err.Error(), Code: CodeNotFound}
	case errorIsAny(err, conflictErrs):
		return http.StatusConflict, errorResponse{Error: err.Error(), Code: CodeConflict}
	case errors.Is(err, aidomain.ErrQuotaExceeded):
		return http.StatusTooManyRequests, errorResponse{Error: err.Error(), Code: CodeQuotaExceeded}
	case errors.Is(err, aidomain.ErrProviderMalformed), errors.Is(err, pmsdomain.ErrMalformedResponse):
		return http.StatusBadGateway, errorResponse{Error: err.Error(), Code: CodeProviderMalformed}
	case errors.Is(err, aidomain.ErrProviderUnavailable),
		errors.Is(err, pmsdomain.ErrUnavailable),
		errors.Is(err, pmsdomain.ErrRateLimited),
		errors.Is(err, billingdomain.ErrProvider):
		return http.StatusBadGateway, errorResponse{Error: err.Error(), Code: CodeProviderDown}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal_error", Code: CodeInternal}
	}
}

// classifyErrorForLog feeds the request logger a stable (type, code) pair
// without leaking internals into access logs.
func classifyErrorForLog(err error) (string, string) {
	status, resp := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error", resp.Code
	case status >= http.StatusBadRequest:
		return "client_error", resp.Code
	default:
		return "none", resp.Code
	}
}

// ErrorHandlingMiddleware turns errors attached via c.Error into the JSON
// error envelope. Handlers that already wrote a body are left alone.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		last := c.Errors.Last()
		if last == nil {
			return
		}

		status, resp := mapError(last.Err)
		c.JSON(status, resp)
	}
}
