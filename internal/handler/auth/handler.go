package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dreamtumulus/andun/internal/model/subject"
	authService "github.com/dreamtumulus/andun/internal/service/auth"
	"github.com/dreamtumulus/andun/pkg/utils"
)

// Handler 登录接口。
type Handler struct {
	authSvc *authService.Service
}

// New 创建登录处理器。
func New(authSvc *authService.Service) *Handler {
	return &Handler{authSvc: authSvc}
}

// RegisterRoutes 注册认证路由。
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Username == "" {
		utils.RespondError(w, http.StatusBadRequest, "username is required")
		return
	}

	user, token, err := h.authSvc.Login(payload.Username)
	if err != nil {
		if errors.Is(err, authService.ErrUnknownUser) {
			utils.RespondError(w, http.StatusUnauthorized, "user not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, struct {
		Token string       `json:"token"`
		User  subject.User `json:"user"`
	}{Token: token, User: user})
}
