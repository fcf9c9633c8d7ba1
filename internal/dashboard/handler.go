// Package dashboard renders the view model behind each guarded dashboard page.
package dashboard

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/rahat-dashboard/internal/backend"
	caseDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/cases"
	userDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/user"
	"github.com/frahmantamala/rahat-dashboard/internal/session"
	"github.com/frahmantamala/rahat-dashboard/internal/transport"
)

const MessageAlreadyClosed = "This case is already closed"

type CasesAPI interface {
	GetCase(ctx context.Context, caseID string) (*caseDatamodel.Case, error)
	GetWorkflowStatus(ctx context.Context, caseID string) (*caseDatamodel.WorkflowStatus, error)
	ListCases(ctx context.Context, q backend.ListCasesQuery) (*backend.Page[caseDatamodel.Case], error)
	PendingCases(ctx context.Context, q backend.PageQuery) (*backend.Page[caseDatamodel.Case], error)
	ReadyToClose(ctx context.Context, q backend.PageQuery) (*backend.DocsPage[caseDatamodel.Case], error)
	Stats(ctx context.Context) (*caseDatamodel.Stats, error)
	DocumentTypes(ctx context.Context) ([]caseDatamodel.DocumentTypeInfo, error)
}

type UsersAPI interface {
	ListUsers(ctx context.Context, q userDatamodel.ListUsersQuery) (*userDatamodel.ListUsersResponse, error)
}

type Viewer struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	RahatRole    string `json:"rahatRole,omitempty"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
}

// Page is what every dashboard route returns: who is looking, where they may
// go next, any pending notice and the page's own data.
type Page struct {
	Path         string      `json:"path"`
	Title        string      `json:"title"`
	Viewer       *Viewer     `json:"viewer,omitempty"`
	AllowedPages []string    `json:"allowedPages"`
	Notice       string      `json:"notice,omitempty"`
	Data         interface{} `json:"data,omitempty"`
}

type Handler struct {
	*transport.BaseHandler
	Cases       CasesAPI
	Users       UsersAPI
	FlashCookie string
}

func NewHandler(baseHandler *transport.BaseHandler, cases CasesAPI, users UsersAPI, flashCookie string) *Handler {
	return &Handler{BaseHandler: baseHandler, Cases: cases, Users: users, FlashCookie: flashCookie}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, title string, data interface{}) {
	page := Page{
		Path:         r.URL.Path,
		Title:        title,
		AllowedPages: []string{},
		Notice:       transport.PopFlash(w, r, h.FlashCookie),
		Data:         data,
	}
	if p := session.ProviderFromContext(r.Context()); p != nil {
		if st := p.State(); st.User != nil {
			page.Viewer = &Viewer{
				ID:           st.User.ID,
				Name:         st.User.Name,
				Email:        st.User.Email,
				RahatRole:    st.User.RahatRole,
				Jurisdiction: st.User.Jurisdiction,
			}
		}
		page.AllowedPages = p.AllowedPages()
	}
	h.WriteJSON(w, http.StatusOK, page)
}

func pageQuery(r *http.Request) backend.PageQuery {
	return backend.PageQuery{
		Page:  transport.QueryInt(r, "page", 1, 0),
		Limit: transport.QueryInt(r, "limit", 10, 100),
	}
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	pending, err := h.Cases.PendingCases(r.Context(), pageQuery(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.render(w, r, "Dashboard", map[string]interface{}{"pending": pending})
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Cases.Stats(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.render(w, r, "Overview", map[string]interface{}{"stats": stats})
}

func (h *Handler) CaseList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cases, err := h.Cases.ListCases(r.Context(), backend.ListCasesQuery{
		PageQuery: pageQuery(r),
		Stage:     q.Get("stage"),
		Status:    q.Get("status"),
		CreatedBy: q.Get("createdBy"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.render(w, r, "All Cases", map[string]interface{}{"cases": cases})
}

func (h *Handler) ReadyToClose(w http.ResponseWriter, r *http.Request) {
	cases, err := h.Cases.ReadyToClose(r.Context(), pageQuery(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.render(w, r, "Ready to Close", map[string]interface{}{"cases": cases})
}

func (h *Handler) Admin(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.ListUsers(r.Context(), userDatamodel.ListUsersQuery{
		SearchValue: r.URL.Query().Get("searchValue"),
		SearchField: r.URL.Query().Get("searchField"),
		Limit:       transport.QueryInt(r, "limit", 20, 100),
		Offset:      transport.QueryInt(r, "offset", 0, 0),
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.render(w, r, "User Management", map[string]interface{}{"users": users})
}

func (h *Handler) CaseDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	c, err := h.Cases.GetCase(ctx, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	status, err := h.Cases.GetWorkflowStatus(ctx, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	docTypes, err := h.Cases.DocumentTypes(ctx)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.render(w, r, "Case "+c.CaseID, map[string]interface{}{
		"case":          c,
		"workflow":      status,
		"documentTypes": docTypes,
	})
}

// CloseCase backs the close form. A closed case still renders, flagged, so the
// form can show the closed state instead of accepting another payment.
func (h *Handler) CloseCase(w http.ResponseWriter, r *http.Request) {
	c, err := h.Cases.GetCase(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	data := map[string]interface{}{
		"case":          c,
		"alreadyClosed": c.Status == caseDatamodel.StatusClosed,
		"paymentMethods": []caseDatamodel.PaymentMethod{
			caseDatamodel.PaymentBankTransfer,
			caseDatamodel.PaymentCash,
			caseDatamodel.PaymentCheque,
			caseDatamodel.PaymentOnline,
		},
	}
	if c.Status == caseDatamodel.StatusClosed {
		data["message"] = MessageAlreadyClosed
	}
	h.render(w, r, "Close Case "+c.CaseID, data)
}
