package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	categorydomain "github.com/kiranalabs/kirana/internal/category/domain"
	gatewaydomain "github.com/kiranalabs/kirana/internal/gateway/domain"
	intentdomain "github.com/kiranalabs/kirana/internal/intent/domain"
	orderdomain "github.com/kiranalabs/kirana/internal/order/domain"
	paymentdomain "github.com/kiranalabs/kirana/internal/payment/domain"
	productdomain "github.com/kiranalabs/kirana/internal/product/domain"
	reviewdomain "github.com/kiranalabs/kirana/internal/review/domain"
	userdomain "github.com/kiranalabs/kirana/internal/user/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, gatewaydomain.ErrGatewayUnavailable):
		return http.StatusBadGateway, errorPayload{
			Type:    "gateway_unavailable",
			Message: "payment gateway unavailable",
		}
	case errors.Is(err, ErrInternal):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isUserValidationError(err),
		isCategoryValidationError(err),
		isProductValidationError(err),
		isReviewValidationError(err),
		isOrderValidationError(err),
		isGatewayValidationError(err),
		isIntentValidationError(err),
		isPaymentValidationError(err):
		return true
	default:
		return false
	}
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, userdomain.ErrInvalidToken),
		errors.Is(err, userdomain.ErrSessionExpired):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, userdomain.ErrUnauthorized),
		errors.Is(err, reviewdomain.ErrUnauthorized),
		errors.Is(err, orderdomain.ErrUnauthorized),
		errors.Is(err, intentdomain.ErrUnauthorized),
		errors.Is(err, intentdomain.ErrNotOwner),
		errors.Is(err, paymentdomain.ErrUnauthorized):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, userdomain.ErrEmailTaken),
		errors.Is(err, categorydomain.ErrSlugTaken),
		errors.Is(err, categorydomain.ErrInUse),
		errors.Is(err, productdomain.ErrSlugTaken),
		errors.Is(err, productdomain.ErrOutOfStock),
		errors.Is(err, reviewdomain.ErrAlreadyReviewed),
		errors.Is(err, orderdomain.ErrOutOfStock),
		errors.Is(err, orderdomain.ErrInvalidTransition),
		errors.Is(err, orderdomain.ErrNotPaid),
		errors.Is(err, gatewaydomain.ErrNameTaken),
		errors.Is(err, gatewaydomain.ErrInUse),
		errors.Is(err, gatewaydomain.ErrNoActiveGateway),
		errors.Is(err, intentdomain.ErrOrderNotPayable),
		errors.Is(err, intentdomain.ErrGatewayInactive),
		errors.Is(err, intentdomain.ErrGatewayUnsupported),
		errors.Is(err, paymentdomain.ErrNotRefundable),
		errors.Is(err, paymentdomain.ErrRefundExceeded):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, categorydomain.ErrNotFound),
		errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, reviewdomain.ErrNotFound),
		errors.Is(err, reviewdomain.ErrProductNotFound),
		errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, gatewaydomain.ErrNotFound),
		errors.Is(err, intentdomain.ErrNotFound),
		errors.Is(err, intentdomain.ErrOrderNotFound),
		errors.Is(err, intentdomain.ErrGatewayNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrIntentNotFound),
		errors.Is(err, paymentdomain.ErrOrderNotFound),
		errors.Is(err, paymentdomain.ErrGatewayNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}

// classifyErrorForLog buckets request errors for the access log so that
// expected client errors do not page anyone.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	if vErr := asValidationErrors(err); vErr != nil {
		return "validation", "validation_error"
	}
	switch {
	case isValidationError(err):
		return "validation", validationErrorCode(err)
	case isUnauthorizedError(err):
		return "auth", "unauthorized"
	case isForbiddenError(err):
		return "auth", "forbidden"
	case isConflictError(err):
		return "conflict", err.Error()
	case isNotFoundError(err):
		return "not_found", "not_found"
	case errors.Is(err, ErrRateLimited):
		return "rate_limit", "rate_limited"
	case errors.Is(err, gatewaydomain.ErrGatewayUnavailable):
		return "upstream", "gateway_unavailable"
	default:
		return "internal", "internal_error"
	}
}
