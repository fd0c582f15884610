package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	adminHandler "github.com/dreamtumulus/andun/internal/handler/admin"
	authHandler "github.com/dreamtumulus/andun/internal/handler/auth"
	chatHandler "github.com/dreamtumulus/andun/internal/handler/chat"
	reportHandler "github.com/dreamtumulus/andun/internal/handler/report"
	middlewarePkg "github.com/dreamtumulus/andun/internal/middleware"
	authService "github.com/dreamtumulus/andun/internal/service/auth"
	"github.com/dreamtumulus/andun/internal/service/session"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(authSvc *authService.Service, controller *session.Controller) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api", func(api chi.Router) {
		// 登录不需要令牌。
		authHandler.New(authSvc).RegisterRoutes(api)

		api.Group(func(authenticated chi.Router) {
			authenticated.Use(middlewarePkg.Authenticate(authSvc))
			chatHandler.New(controller).RegisterRoutes(authenticated)
			reportHandler.New(controller).RegisterRoutes(authenticated)
			adminHandler.New(controller, authSvc).RegisterRoutes(authenticated)
		})
	})

	return r
}
