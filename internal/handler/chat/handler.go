package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dreamtumulus/andun/internal/middleware"
	"github.com/dreamtumulus/andun/internal/model/subject"
	"github.com/dreamtumulus/andun/internal/service/dialogue"
	"github.com/dreamtumulus/andun/internal/service/session"
	"github.com/dreamtumulus/andun/internal/store"
	"github.com/dreamtumulus/andun/pkg/utils"
)

// Handler 对话与会话状态的HTTP处理器。
type Handler struct {
	controller *session.Controller
}

// New 创建对话处理器。
func New(controller *session.Controller) *Handler {
	return &Handler{controller: controller}
}

// RegisterRoutes 注册对话相关的路由。
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session/state", h.handleState)
	r.Post("/session/end", h.handleEndSession)
	r.Post("/assessment/messages", h.handleAssessmentSend)
	r.Post("/counseling/messages", h.handleCounselingSend)
	r.Post("/counseling/enter", h.handleEnterCounseling)
	r.Post("/documents", h.handleUploadDocument)
	r.Post("/messages/{messageID}/feedback", h.handleFeedback)
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestContext(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	snapshot, err := h.controller.State(r.Context(), sc)
	if err != nil {
		respondControllerError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestContext(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	mode := h.controller.EndSession(sc)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"mode": string(mode)})
}

func (h *Handler) handleAssessmentSend(w http.ResponseWriter, r *http.Request) {
	h.handleSend(w, r, h.controller.SendAssessment)
}

func (h *Handler) handleCounselingSend(w http.ResponseWriter, r *http.Request) {
	h.handleSend(w, r, h.controller.SendCounseling)
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request, send func(ctx context.Context, sc session.Context, text string) (session.Snapshot, error)) {
	sc, ok := requestContext(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snapshot, err := send(r.Context(), sc, payload.Text)
	if err != nil {
		respondControllerError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleEnterCounseling(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestContext(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	snapshot, err := h.controller.EnterCounseling(r.Context(), sc)
	if err != nil {
		respondControllerError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestContext(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var payload struct {
		Name    string `json:"name"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Name == "" {
		utils.RespondError(w, http.StatusBadRequest, "name is required")
		return
	}

	snapshot, err := h.controller.UploadDocument(r.Context(), sc, payload.Name, payload.Content)
	if err != nil {
		respondControllerError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, snapshot)
}

func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestContext(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	messageID := chi.URLParam(r, "messageID")

	var payload struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.controller.SetFeedback(r.Context(), sc, messageID, payload.Value); err != nil {
		respondControllerError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestContext builds the explicit session context: the authenticated
// identity plus the viewed subject. Only admins may address another
// subject's record via the subjectId query parameter.
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

func respondControllerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dialogue.ErrEmptyMessage), errors.Is(err, store.ErrEmptySubjectID), errors.Is(err, session.ErrInvalidFeedback):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrForbidden):
		utils.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, session.ErrMessageNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrPipelineBusy), errors.Is(err, session.ErrGuardNotMet), errors.Is(err, session.ErrNoReport):
		utils.RespondError(w, http.StatusConflict, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
