package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/medtranslate/internal/actorctx"
	"github.com/geocoder89/medtranslate/internal/config"
	"github.com/geocoder89/medtranslate/internal/demo"
	"github.com/geocoder89/medtranslate/internal/domain/user"
	"github.com/geocoder89/medtranslate/internal/session"
	"github.com/gin-gonic/gin"
)

type DemoLauncher interface {
	Launch(ctx context.Context) (demo.Launch, error)
	Redeem(ctx context.Context, token, role string) (actorctx.Identity, int64, error)
}

type DemoHandler struct {
	demo     DemoLauncher
	sessions session.Store
	cookie   SessionCookie
}

func NewDemoHandler(launcher DemoLauncher, sessions session.Store, cookie SessionCookie) *DemoHandler {
	return &DemoHandler{demo: launcher, sessions: sessions, cookie: cookie}
}

func (h *DemoHandler) Launch(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	l, err := h.demo.Launch(cctx)
	if err != nil {
		RespondServiceError(ctx, err, "Could not start demo")
		return
	}

	ctx.JSON(http.StatusOK, l)
}

func (h *DemoHandler) DoctorLogin(ctx *gin.Context) {
	h.redeem(ctx, user.RoleDoctor)
}

func (h *DemoHandler) PatientLogin(ctx *gin.Context) {
	h.redeem(ctx, user.RolePatient)
}

func (h *DemoHandler) redeem(ctx *gin.Context, role string) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	id, convID, err := h.demo.Redeem(cctx, ctx.Query("token"), role)
	if err != nil {
		if errors.Is(err, demo.ErrInvalidToken) {
			RespondUnauthorized(ctx, "invalid_token", "Demo link is invalid or has expired.")
			return
		}
		RespondServiceError(ctx, err, "Could not redeem demo link")
		return
	}

	sid, err := h.sessions.Create(cctx, session.FromIdentity(id))
	if err != nil {
		RespondServiceError(ctx, err, "Could not create session")
		return
	}
	h.cookie.set(ctx, sid)

	ctx.JSON(http.StatusOK, gin.H{
		"conversation_id": convID,
		"user": gin.H{
			"id":    id.UserID,
			"name":  id.Name,
			"email": id.Email,
			"role":  id.Role,
		},
	})
}
