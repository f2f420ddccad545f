package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/medtranslate/internal/accounts"
	"github.com/geocoder89/medtranslate/internal/config"
	"github.com/geocoder89/medtranslate/internal/domain/user"
	"github.com/geocoder89/medtranslate/internal/session"
	"github.com/gin-gonic/gin"
)

type AccountService interface {
	Register(ctx context.Context, in accounts.RegisterInput) (user.User, error)
	Authenticate(ctx context.Context, email, password string) (user.User, error)
}

type TokenIssuer interface {
	GenerateAccessToken(userID int64, name, email, role string) (string, error)
}

type AuthHandler struct {
	accounts AccountService
	sessions session.Store
	tokens   TokenIssuer
	cookie   SessionCookie
}

func NewAuthHandler(accounts AccountService, sessions session.Store, tokens TokenIssuer, cookie SessionCookie) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		sessions: sessions,
		tokens:   tokens,
		cookie:   cookie,
	}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// bcrypt dominates this request
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	u, err := h.accounts.Register(cctx, accounts.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		RespondServiceError(ctx, err, "Could not create user")
		return
	}

	if !h.startSession(ctx, cctx, u) {
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"user_id": u.ID,
		"role":    u.Role,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	u, err := h.accounts.Authenticate(cctx, req.Email, req.Password)
	if err != nil {
		RespondServiceError(ctx, err, "Could not log in")
		return
	}

	accessToken, err := h.tokens.GenerateAccessToken(u.ID, u.Name, u.Email, u.Role)
	if err != nil {
		RespondServiceError(ctx, err, "Could not generate access token")
		return
	}

	if !h.startSession(ctx, cctx, u) {
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user_id":      u.ID,
		"name":         u.Name,
		"role":         u.Role,
		"access_token": accessToken,
	})
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	if raw := h.cookie.read(ctx); raw != "" {
		cctx, cancel := config.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()

		// deleting an unknown session is fine
		_ = h.sessions.Delete(cctx, raw)
	}

	h.cookie.clear(ctx)
	ctx.Status(http.StatusNoContent)
}

func (h *AuthHandler) startSession(ctx *gin.Context, cctx context.Context, u user.User) bool {
	id, err := h.sessions.Create(cctx, session.Session{
		UserID:    u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		RespondServiceError(ctx, err, "Could not create session")
		return false
	}

	h.cookie.set(ctx, id)
	return true
}
