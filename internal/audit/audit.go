// Package audit keeps a local trail of what viewers did through the dashboard.
// The relief backend stays the owner of case state; entries are informational.
package audit

import (
	"context"
	"fmt"
	"log/slog"

	auditDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/audit"
	"github.com/frahmantamala/rahat-dashboard/internal/core/events"
	"github.com/frahmantamala/rahat-dashboard/internal/ids"
)

const (
	OutcomeSucceeded     = "succeeded"
	OutcomeFailed        = "failed"
	OutcomeAlreadyClosed = "already_closed"

	DefaultListLimit = 100
)

type RepositoryAPI interface {
	Create(ctx context.Context, entry *auditDatamodel.Entry) error
	ListByCase(ctx context.Context, caseID string, limit int) ([]auditDatamodel.Entry, error)
}

type Subscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

type Recorder struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewRecorder(repo RepositoryAPI, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{repo: repo, logger: logger}
}

// Register subscribes the recorder to every case and admin event.
func (r *Recorder) Register(bus Subscriber) {
	for _, t := range events.CaseTypes() {
		bus.Subscribe(t, r.Handle)
	}
}

func outcomeOf(eventType string) string {
	switch eventType {
	case events.EventTypeWorkflowFailed, events.EventTypeCaseCloseFailed:
		return OutcomeFailed
	case events.EventTypeCaseAlreadyClosed:
		return OutcomeAlreadyClosed
	default:
		return OutcomeSucceeded
	}
}

func (r *Recorder) Handle(ctx context.Context, event events.Event) error {
	ce, ok := event.(*events.CaseEvent)
	if !ok {
		return fmt.Errorf("audit: unexpected event %T", event)
	}

	entry := &auditDatamodel.Entry{
		ID:         ids.New(ce.OccurredAt()),
		EventID:    ce.EventID(),
		EventType:  ce.EventType(),
		CaseID:     ce.CaseID,
		ActorID:    ce.Actor.UserID,
		ActorRole:  ce.Actor.RahatRole,
		Action:     ce.Action,
		Outcome:    outcomeOf(ce.EventType()),
		Message:    ce.Message,
		OccurredAt: ce.OccurredAt(),
	}
	if err := r.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("audit: record %s: %w", ce.EventType(), err)
	}
	r.logger.Debug("audit entry recorded", "event_type", entry.EventType, "case_id", entry.CaseID, "outcome", entry.Outcome)
	return nil
}

type Service struct {
	repo RepositoryAPI
}

func NewService(repo RepositoryAPI) *Service {
	return &Service{repo: repo}
}

func (s *Service) CaseTrail(ctx context.Context, caseID string, limit int) ([]auditDatamodel.Entry, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	return s.repo.ListByCase(ctx, caseID, limit)
}
