package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/medtranslate/internal/config"
	"github.com/geocoder89/medtranslate/internal/domain/user"
	"github.com/geocoder89/medtranslate/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (user.User, error)
	ListDoctors(ctx context.Context) ([]user.User, error)
}

type UsersHandler struct {
	users UserDirectory
}

func NewUsersHandler(users UserDirectory) *UsersHandler {
	return &UsersHandler{users: users}
}

func (h *UsersHandler) Me(ctx *gin.Context) {
	id, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Authentication required")
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, id.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// the session outlived the account
			RespondUnauthorized(ctx, "unauthorized", "Authentication required")
			return
		}
		RespondServiceError(ctx, err, "Could not load user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":    u.ID,
			"name":  u.Name,
			"email": u.Email,
			"role":  u.Role,
		},
	})
}

func (h *UsersHandler) ListDoctors(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	doctors, err := h.users.ListDoctors(cctx)
	if err != nil {
		RespondServiceError(ctx, err, "Could not list doctors")
		return
	}

	out := make([]gin.H, 0, len(doctors))
	for _, d := range doctors {
		out = append(out, gin.H{
			"id":         d.ID,
			"name":       d.Name,
			"email":      d.Email,
			"created_at": d.CreatedAt,
		})
	}

	ctx.JSON(http.StatusOK, gin.H{"doctors": out})
}
