package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/medtranslate/internal/actorctx"
	"github.com/geocoder89/medtranslate/internal/config"
	"github.com/geocoder89/medtranslate/internal/conversations"
	"github.com/geocoder89/medtranslate/internal/domain/conversation"
	"github.com/geocoder89/medtranslate/internal/domain/message"
	"github.com/geocoder89/medtranslate/internal/domain/user"
	"github.com/geocoder89/medtranslate/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type ConversationService interface {
	FindOrCreate(ctx context.Context, id actorctx.Identity, counterpartID int64) (conversation.Conversation, bool, error)
	Get(ctx context.Context, id actorctx.Identity, conversationID int64) (conversation.Details, error)
	ListForUser(ctx context.Context, id actorctx.Identity) ([]conversation.Summary, error)
	Send(ctx context.Context, id actorctx.Identity, in conversations.SendInput) (message.Message, error)
	Messages(ctx context.Context, id actorctx.Identity, conversationID int64) ([]message.Message, error)
	Summary(ctx context.Context, id actorctx.Identity, conversationID int64) (string, error)
}

type ConversationsHandler struct {
	svc ConversationService
	// budget for requests that reach the language model
	modelTimeout time.Duration
}

func NewConversationsHandler(svc ConversationService, modelTimeout time.Duration) *ConversationsHandler {
	if modelTimeout <= 0 {
		modelTimeout = 45 * time.Second
	}
	return &ConversationsHandler{svc: svc, modelTimeout: modelTimeout}
}

func (h *ConversationsHandler) Create(ctx *gin.Context) {
	id, ok := identity(ctx)
	if !ok {
		return
	}

	var req conversation.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	counterpart := req.PatientID
	if id.Role == user.RolePatient {
		counterpart = req.DoctorID
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	conv, created, err := h.svc.FindOrCreate(cctx, id, counterpart)
	if err != nil {
		RespondServiceError(ctx, err, "Could not create conversation")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}

	ctx.JSON(status, gin.H{
		"conversation_id": conv.ID,
		"existing":        !created,
	})
}

func (h *ConversationsHandler) List(ctx *gin.Context) {
	id, ok := identity(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	items, err := h.svc.ListForUser(cctx, id)
	if err != nil {
		RespondServiceError(ctx, err, "Could not list conversations")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"conversations": items})
}

func (h *ConversationsHandler) Get(ctx *gin.Context) {
	id, ok := identity(ctx)
	if !ok {
		return
	}
	convID, ok := conversationIDParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	d, err := h.svc.Get(cctx, id, convID)
	if err != nil {
		RespondServiceError(ctx, err, "Could not fetch conversation")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"conversation": d})
}

func (h *ConversationsHandler) Messages(ctx *gin.Context) {
	id, ok := identity(ctx)
	if !ok {
		return
	}
	convID, ok := conversationIDParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	msgs, err := h.svc.Messages(cctx, id, convID)
	if err != nil {
		RespondServiceError(ctx, err, "Could not list messages")
		return
	}

	// clients poll this endpoint; unchanged ledgers come back as 304
	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"messages": msgs})
}

func (h *ConversationsHandler) Summary(ctx *gin.Context) {
	id, ok := identity(ctx)
	if !ok {
		return
	}
	convID, ok := conversationIDParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.modelTimeout)
	defer cancel()

	summary, err := h.svc.Summary(cctx, id, convID)
	if err != nil {
		RespondServiceError(ctx, err, "Could not summarize conversation")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (h *ConversationsHandler) SendMessage(ctx *gin.Context) {
	id, ok := identity(ctx)
	if !ok {
		return
	}

	var req message.SendRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.modelTimeout)
	defer cancel()

	m, err := h.svc.Send(cctx, id, conversations.SendInput{
		ConversationID: req.ConversationID,
		Text:           req.Text,
		TargetLanguage: req.TargetLanguage,
	})
	if err != nil {
		RespondServiceError(ctx, err, "Could not send message")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message_id":      m.ID,
		"conversation_id": m.ConversationID,
		"original_text":   m.OriginalText,
		"translated_text": m.TranslatedText,
		"language":        m.Language,
		"created_at":      m.CreatedAt,
	})
}

func identity(ctx *gin.Context) (actorctx.Identity, bool) {
	id, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Authentication required")
		return actorctx.Identity{}, false
	}
	return id, true
}

func conversationIDParam(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondBadRequest(ctx, "Invalid conversation id", gin.H{"fields": []FieldError{{
			Field:   "id",
			Rule:    "min",
			Param:   "1",
			Message: "must be a positive integer",
		}}})
		return 0, false
	}
	return id, true
}
