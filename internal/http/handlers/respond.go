package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/medtranslate/internal/access"
	"github.com/geocoder89/medtranslate/internal/domain"
	"github.com/geocoder89/medtranslate/internal/domain/conversation"
	"github.com/geocoder89/medtranslate/internal/domain/user"
	"github.com/geocoder89/medtranslate/internal/gateway"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

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

func RespondUnauthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondForbidden(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusForbidden, "forbidden", message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

// RespondServiceError maps a service-layer error onto the API envelope.
// Anything unrecognised is logged and reported as a generic 500.
func RespondServiceError(ctx *gin.Context, err error, fallback string) {
	var (
		ve   *domain.ValidationError
		gerr *gateway.Error
	)

	switch {
	case errors.As(err, &ve):
		RespondBadRequest(ctx, ve.Error(), gin.H{"fields": []FieldError{{
			Field:   ve.Field,
			Rule:    "invalid",
			Message: ve.Message,
		}}})
	case errors.Is(err, user.ErrDuplicateEmail):
		RespondError(ctx, http.StatusBadRequest, "email_taken", "Email is already registered.", nil)
	case errors.Is(err, user.ErrInvalidCredentials):
		RespondUnauthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
	case errors.Is(err, access.ErrAnonymous):
		RespondUnauthorized(ctx, "unauthorized", "Authentication required")
	case errors.Is(err, conversation.ErrForbidden):
		RespondForbidden(ctx, "You are not a participant of this conversation")
	case errors.Is(err, conversation.ErrNotFound):
		RespondNotFound(ctx, "Conversation not found")
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "User not found")
	case errors.Is(err, gateway.ErrEmptyConversation):
		RespondError(ctx, http.StatusBadRequest, "empty_conversation", "Conversation has no messages to summarize", nil)
	case errors.As(err, &gerr):
		slog.Default().WarnContext(ctx.Request.Context(), "gateway call failed",
			"op", gerr.Op, "retryable", gerr.Retryable, "err", gerr.Err)
		RespondError(ctx, http.StatusBadGateway, "gateway_error", "Translation service is unavailable, please try again", nil)
	default:
		_ = ctx.Error(err)
		slog.Default().ErrorContext(ctx.Request.Context(), fallback, "err", err, "request_id", requestIDFrom(ctx))
		RespondInternal(ctx, fallback)
	}
}
