package http

import (
	"time"

	"github.com/geocoder89/medtranslate/internal/auth"
	"github.com/geocoder89/medtranslate/internal/config"
	"github.com/geocoder89/medtranslate/internal/domain/user"
	"github.com/geocoder89/medtranslate/internal/http/handlers"
	"github.com/geocoder89/medtranslate/internal/http/middlewares"
	"github.com/geocoder89/medtranslate/internal/observability"
	"github.com/geocoder89/medtranslate/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "medtranslate"

type Accounts interface {
	handlers.AccountService
	handlers.UserDirectory
}

type Deps struct {
	Config        config.Config
	Prom          *observability.Prom
	Gatherer      prometheus.Gatherer
	Accounts      Accounts
	Conversations handlers.ConversationService
	Sessions      session.Store
	Tokens        *auth.Manager
	// nil when the demo flow is disabled
	Demo        handlers.DemoLauncher
	Checks      map[string]handlers.Pinger
	AuthLimiter *middlewares.RateLimiter
	// every message costs a model call
	MessageLimiter *middlewares.RateLimiter
}

func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config

	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.RequestLogger())
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	if cfg.MaxBodyBytes > 0 {
		r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	}

	h := handlers.NewHealthHandler(d.Checks)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	cookie := handlers.SessionCookie{
		Name:   cfg.SessionCookieName,
		TTL:    cfg.SessionTTL(),
		Secure: cfg.IsProd(),
	}

	authMw := middlewares.NewAuthMiddleware(d.Tokens, d.Sessions, cfg.SessionCookieName)
	jsonOnly := middlewares.RequireJSON()

	limiter := d.AuthLimiter
	if limiter == nil {
		limiter = middlewares.NewRateLimiter(max(cfg.AuthRateLimit, 1), time.Minute)
	}
	limitByIP := limiter.RateLimiterMiddleware(middlewares.KeyByIP)

	msgLimiter := d.MessageLimiter
	if msgLimiter == nil {
		msgLimiter = middlewares.NewRateLimiter(max(cfg.MessageRateLimit, 1), time.Minute)
	}
	limitBySender := msgLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP)

	authHandler := handlers.NewAuthHandler(d.Accounts, d.Sessions, d.Tokens, cookie)
	usersHandler := handlers.NewUsersHandler(d.Accounts)
	convHandler := handlers.NewConversationsHandler(d.Conversations, cfg.RequestTimeout())

	api := r.Group("/api")
	api.POST("/register", limitByIP, jsonOnly, authHandler.Register)
	api.POST("/login", limitByIP, jsonOnly, authHandler.Login)
	api.POST("/logout", authHandler.Logout)

	authed := api.Group("", authMw.RequireAuth())
	authed.GET("/user", usersHandler.Me)
	authed.GET("/doctors", usersHandler.ListDoctors)

	convs := authed.Group("", authMw.RequireRole(user.RoleDoctor, user.RolePatient))
	convs.POST("/conversations", jsonOnly, convHandler.Create)
	convs.GET("/conversations", convHandler.List)
	convs.GET("/conversations/:id", convHandler.Get)
	convs.GET("/conversations/:id/messages", convHandler.Messages)
	convs.GET("/conversations/:id/summary", convHandler.Summary)
	convs.POST("/messages", limitBySender, jsonOnly, convHandler.SendMessage)

	if d.Demo != nil {
		demoHandler := handlers.NewDemoHandler(d.Demo, d.Sessions, cookie)

		api.POST("/demo", limitByIP, demoHandler.Launch)
		r.GET("/demo/doctor", limitByIP, demoHandler.DoctorLogin)
		r.GET("/demo/patient", limitByIP, demoHandler.PatientLogin)
	}

	return r
}
