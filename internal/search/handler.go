package search

import (
	"context"
	"net/http"

	"github.com/frahmantamala/rahat-dashboard/internal/backend"
	userDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/user"
	"github.com/frahmantamala/rahat-dashboard/internal/transport"
)

type ServiceAPI interface {
	Search(ctx context.Context, q string) (*backend.DocsPage[userDatamodel.ThanaIncharge], error)
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

// SearchThanaIncharge serves GET /api/thana-incharge?q=. Debouncing happens in
// the browser; this endpoint answers every request it gets.
func (h *Handler) SearchThanaIncharge(w http.ResponseWriter, r *http.Request) {
	page, err := h.Service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, page)
}
