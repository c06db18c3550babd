package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vmarkevych/storefront/internal/apperr"
	"github.com/vmarkevych/storefront/internal/http/middlewares"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get(middlewares.CtxRequestID)

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondUnAuthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:      http.StatusBadRequest,
	apperr.KindUnauthenticated: http.StatusUnauthorized,
	apperr.KindForbidden:       http.StatusForbidden,
	apperr.KindNotFound:        http.StatusNotFound,
	apperr.KindConflict:        http.StatusConflict,
}

// RespondErr maps a typed error to its status. Anything untyped is a 500
// with a generic message; the cause is only logged.
func RespondErr(ctx *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		RespondError(ctx, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body is too large", nil)
		return
	}

	typed, ok := apperr.As(err)
	if !ok || typed.Kind == apperr.KindInternal {
		_ = ctx.Error(err)
		middlewares.LoggerFromContext(ctx).ErrorContext(ctx.Request.Context(), "request failed",
			"err", err,
			"route", ctx.FullPath(),
			"request_id", requestIDFrom(ctx),
		)
		RespondInternal(ctx, "Something went wrong")
		return
	}

	status, ok := kindStatus[typed.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	RespondError(ctx, status, typed.Code, typed.Message, nil)
}
