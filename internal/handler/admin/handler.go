package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dreamtumulus/andun/internal/middleware"
	"github.com/dreamtumulus/andun/internal/service/auth"
	"github.com/dreamtumulus/andun/internal/service/session"
	"github.com/dreamtumulus/andun/pkg/utils"
)

// Handler 管理端看板与审查入口。所有路由要求 admin 角色。
type Handler struct {
	controller *session.Controller
	authSvc    *auth.Service
}

// New 创建管理端处理器。
func New(controller *session.Controller, authSvc *auth.Service) *Handler {
	return &Handler{controller: controller, authSvc: authSvc}
}

// RegisterRoutes 注册管理端路由。
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Get("/admin/subjects", h.handleDashboard)
		r.Get("/admin/subjects/{subjectID}", h.handleViewSubject)
	})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.controller.Dashboard(r.Context(), h.authSvc.Officers())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleViewSubject(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	subjectID := chi.URLParam(r, "subjectID")
	if _, known := h.authSvc.FindUser(subjectID); !known {
		utils.RespondError(w, http.StatusNotFound, "subject not found")
		return
	}

	sc := session.Context{Identity: user, SubjectID: subjectID}
	snapshot, err := h.controller.ViewSubject(r.Context(), sc)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, snapshot)
}
