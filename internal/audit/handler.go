package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	errors "github.com/frahmantamala/rahat-dashboard/internal"
	auditDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/audit"
	"github.com/frahmantamala/rahat-dashboard/internal/transport"
)

type ServiceAPI interface {
	CaseTrail(ctx context.Context, caseID string, limit int) ([]auditDatamodel.Entry, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{BaseHandler: baseHandler, Service: service}
}

type entryView struct {
	ID         string `json:"id"`
	EventType  string `json:"eventType"`
	CaseID     string `json:"caseId,omitempty"`
	ActorID    string `json:"actorId,omitempty"`
	ActorRole  string `json:"actorRole,omitempty"`
	Action     string `json:"action,omitempty"`
	Outcome    string `json:"outcome"`
	Message    string `json:"message,omitempty"`
	OccurredAt string `json:"occurredAt"`
}

func (h *Handler) CaseTrail(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.CaseTrail(r.Context(), chi.URLParam(r, "id"), transport.QueryInt(r, "limit", DefaultListLimit, DefaultListLimit))
	if err != nil {
		h.HandleServiceError(w, errors.NewInternalError("Failed to load the audit trail", err))
		return
	}

	views := make([]entryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, entryView{
			ID:         e.ID,
			EventType:  e.EventType,
			CaseID:     e.CaseID,
			ActorID:    e.ActorID,
			ActorRole:  e.ActorRole,
			Action:     e.Action,
			Outcome:    e.Outcome,
			Message:    e.Message,
			OccurredAt: e.OccurredAt.UTC().Format(time.RFC3339),
		})
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"entries": views})
}
