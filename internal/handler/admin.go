package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/auth-service/internal/repository"
	"github.com/sakif/auth-service/internal/service"
)

// AdminHandler serves the admin-only endpoints. Routing wraps these with
// RequireAuth + RequireRole(admin); the handler itself trusts the gate.
type AdminHandler struct {
	authService *service.AuthService
	logger      *slog.Logger
}

func NewAdminHandler(authService *service.AuthService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{authService: authService, logger: logger}
}

// HandleListUsers returns a page of accounts.
//
// GET /users?limit=50&offset=0
// Password hashes and reset tokens never appear in the response — the
// model's JSON tags exclude them.
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	opts := repository.ListOptions{}
	if v := r.URL.Query().Get("limit"); v != "" {
		opts.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		opts.Offset, _ = strconv.Atoi(v)
	}

	users, err := h.authService.ListUsers(r.Context(), opts)
	if err != nil {
		h.logger.Error("admin: listing users failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}
