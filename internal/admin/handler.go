package admin

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	userDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/user"
	"github.com/frahmantamala/rahat-dashboard/internal/transport"
)

type ServiceAPI interface {
	CreateUser(ctx context.Context, req userDatamodel.CreateUserRequest) (*userDatamodel.User, error)
	UpdateUser(ctx context.Context, req userDatamodel.UpdateUserRequest) (*userDatamodel.User, error)
	BanUser(ctx context.Context, req userDatamodel.BanUserRequest) (*userDatamodel.User, error)
	SetUserPassword(ctx context.Context, req userDatamodel.SetPasswordRequest) error
	ListUsers(ctx context.Context, q userDatamodel.ListUsersQuery) (*userDatamodel.ListUsersResponse, error)
	ListUserSessions(ctx context.Context, userID string) (*userDatamodel.ListSessionsResponse, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req userDatamodel.CreateUserRequest
	if appErr := h.DecodeJSON(r, &req); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}
	u, err := h.Service.CreateUser(r.Context(), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, map[string]interface{}{"user": u})
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var data userDatamodel.UpdateUserData
	if appErr := h.DecodeJSON(r, &data); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}
	u, err := h.Service.UpdateUser(r.Context(), userDatamodel.UpdateUserRequest{UserID: chi.URLParam(r, "id"), Data: data})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"user": u})
}

func (h *Handler) BanUser(w http.ResponseWriter, r *http.Request) {
	var req userDatamodel.BanUserRequest
	if appErr := h.DecodeJSON(r, &req); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}
	req.UserID = chi.URLParam(r, "id")
	u, err := h.Service.BanUser(r.Context(), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"user": u})
}

func (h *Handler) SetUserPassword(w http.ResponseWriter, r *http.Request) {
	var req userDatamodel.SetPasswordRequest
	if appErr := h.DecodeJSON(r, &req); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}
	req.UserID = chi.URLParam(r, "id")
	if err := h.Service.SetUserPassword(r.Context(), req); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]bool{"status": true})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.Service.ListUsers(r.Context(), userDatamodel.ListUsersQuery{
		SearchValue:    q.Get("searchValue"),
		SearchField:    q.Get("searchField"),
		SearchOperator: q.Get("searchOperator"),
		Limit:          transport.QueryInt(r, "limit", 20, 100),
		Offset:         transport.QueryInt(r, "offset", 0, 0),
		SortBy:         q.Get("sortBy"),
		SortDirection:  q.Get("sortDirection"),
		FilterField:    q.Get("filterField"),
		FilterValue:    q.Get("filterValue"),
		FilterOperator: q.Get("filterOperator"),
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListUserSessions(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Service.ListUserSessions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}
