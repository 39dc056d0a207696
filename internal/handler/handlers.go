package handlers

import (
	"SafeHaven/internal/auth"
	"SafeHaven/internal/dispatch"
	"SafeHaven/internal/store"
	"SafeHaven/pkg/errors"
	"SafeHaven/pkg/middleware"
	"SafeHaven/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handlers struct {
	db       *gorm.DB
	engine   *dispatch.Engine
	alerts   *store.AlertStore
	profiles *store.ProfileStore
	verifier auth.Verifier

	idempotency gin.HandlerFunc
}

func NewHandlers(db *gorm.DB, engine *dispatch.Engine, alerts *store.AlertStore, profiles *store.ProfileStore, verifier auth.Verifier, idemCfg middleware.IdempotencyConfig) *Handlers {
	return &Handlers{
		db:          db,
		engine:      engine,
		alerts:      alerts,
		profiles:    profiles,
		verifier:    verifier,
		idempotency: middleware.IdempotencyMiddleware(idemCfg),
	}
}

func (h *Handlers) Register(r *gin.RouterGroup) {
	h.registerSystemRoutes(r)
	h.registerAlertRoutes(r)
	h.registerUserRoutes(r)
	h.registerResponderRoutes(r)
}

func (h *Handlers) registerAlertRoutes(r *gin.RouterGroup) {
	alerts := r.Group("/alerts")
	alerts.Use(auth.Middleware(h.verifier))
	{
		alerts.POST("", auth.Require(auth.RoleUser), h.idempotency, h.CreateAlert)

		alerts.GET("/user/history", auth.Require(auth.RoleUser), h.UserAlertHistory)

		alerts.GET("/:id", h.GetAlert)

		alerts.PATCH("/:id/status", auth.Require(auth.RoleResponder), h.UpdateAlertStatus)
	}
}

func (h *Handlers) registerUserRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	users.Use(auth.Middleware(h.verifier), auth.Require(auth.RoleUser))
	{
		users.GET("/profile", h.GetUserProfile)

		users.PUT("/profile", h.UpdateUserProfile)
	}
}

func (h *Handlers) registerResponderRoutes(r *gin.RouterGroup) {
	responders := r.Group("/responders")
	responders.Use(auth.Middleware(h.verifier), auth.Require(auth.RoleResponder))
	{
		responders.GET("/alerts", h.ResponderAlerts)

		responders.GET("/profile", h.GetResponderProfile)

		responders.PUT("/profile", h.UpdateResponderProfile)

		responders.PATCH("/availability", h.SetAvailability)
	}
}

func (h *Handlers) registerSystemRoutes(r *gin.RouterGroup) {
	system := r.Group("/system")
	{
		system.GET("/health", h.HealthCheck)
	}
}

// fail translates a coded service error into the HTTP response.
func fail(c *gin.Context, err error) {
	response.Fail(c, errors.HTTPStatus(err), err.Error())
}
