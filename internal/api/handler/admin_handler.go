package handler

import (
	"net/http"
	"strconv"

	"notekeeper/internal/app/service"
	"notekeeper/internal/common"

	"github.com/go-chi/chi/v5"
)

type AdminHandler struct {
	authService *service.AuthService
	noteService *service.NoteService
}

func NewAdminHandler(authService *service.AuthService, noteService *service.NoteService) *AdminHandler {
	return &AdminHandler{authService: authService, noteService: noteService}
}

// RegisterRoutes mounts the dashboard under /admin/dashboard. The caller is
// responsible for the admin role gate.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/users", h.listUsers)
	r.Get("/notes", h.listNotes)
}

func (h *AdminHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.authService.ListUsers(r.Context())
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) listNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := optionalInt(q.Get("limit"))
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	page, err := optionalInt(q.Get("page"))
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "page must be an integer")
		return
	}

	result, err := h.noteService.ListNotes(r.Context(), service.ListNotesQuery{
		Search:       q.Get("search"),
		SortField:    q.Get("sort_field"),
		SortOrder:    q.Get("sort_order"),
		ActiveStatus: q.Get("active_status"),
		Limit:        limit,
		Page:         page,
	})
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}

func optionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
