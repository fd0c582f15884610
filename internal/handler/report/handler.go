package report

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dreamtumulus/andun/internal/middleware"
	"github.com/dreamtumulus/andun/internal/model/subject"
	"github.com/dreamtumulus/andun/internal/service/session"
	"github.com/dreamtumulus/andun/internal/service/synthesis"
	"github.com/dreamtumulus/andun/pkg/utils"
)

// Handler 评估报告的HTTP处理器。
type Handler struct {
	controller *session.Controller
}

// New 创建报告处理器。
func New(controller *session.Controller) *Handler {
	return &Handler{controller: controller}
}

// RegisterRoutes 注册报告相关的路由。
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/report", h.handleGetReport)
	r.Post("/report/generate", h.handleGenerate)
	r.Post("/report/refresh", h.handleRefresh)
}

func (h *Handler) handleGetReport(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestContext(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	snapshot, err := h.controller.State(r.Context(), sc)
	if err != nil {
		respondError(w, err)
		return
	}
	if snapshot.Record.Report == nil {
		utils.RespondError(w, http.StatusNotFound, "no report generated yet")
		return
	}
	utils.RespondJSON(w, http.StatusOK, snapshot.Record.Report)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestContext(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	rep, err := h.controller.GenerateReport(r.Context(), sc)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, rep)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestContext(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	rep, err := h.controller.RefreshReport(r.Context(), sc)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, rep)
}

func requestContext(r *http.Request) (session.Context, bool) {
	user, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		return session.Context{}, false
	}

	subjectID := user.ID
	if user.Role == subject.RoleAdmin {
		if sid := r.URL.Query().Get("subjectId"); sid != "" {
			subjectID = sid
		}
	}
	return session.Context{Identity: user, SubjectID: subjectID}, true
}

// respondError 区分门槛未满足、生成失败与其他错误。生成失败返回明确的
// 可重试提示，绝不静默退回旧报告。
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrGuardNotMet), errors.Is(err, session.ErrNoReport), errors.Is(err, session.ErrPipelineBusy):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrForbidden):
		utils.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, synthesis.ErrGenerationFailed), errors.Is(err, synthesis.ErrNotEnoughTurns):
		utils.RespondError(w, http.StatusBadGateway, "生成报告失败，请检查网络或 API 设置后重试")
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
