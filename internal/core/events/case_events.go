package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeCaseCreated       = "case.created"
	EventTypeWorkflowSubmitted = "case.workflow_submitted"
	EventTypeWorkflowFailed    = "case.workflow_failed"
	EventTypeDocumentsLinked   = "case.documents_linked"
	EventTypeCaseClosed        = "case.closed"
	EventTypeCaseAlreadyClosed = "case.already_closed"
	EventTypeCaseCloseFailed   = "case.close_failed"
	EventTypeUserAdministered  = "admin.user_changed"
)

// CaseTypes lists every case event type, for subscribers that record them all.
func CaseTypes() []string {
	return []string{
		EventTypeCaseCreated,
		EventTypeWorkflowSubmitted,
		EventTypeWorkflowFailed,
		EventTypeDocumentsLinked,
		EventTypeCaseClosed,
		EventTypeCaseAlreadyClosed,
		EventTypeCaseCloseFailed,
		EventTypeUserAdministered,
	}
}

// Actor is whoever triggered the change, as the session saw them.
type Actor struct {
	UserID    string `json:"user_id"`
	RahatRole string `json:"rahat_role"`
}

type CaseEvent struct {
	BaseEvent
	CaseID  string `json:"case_id"`
	Actor   Actor  `json:"actor"`
	Action  string `json:"action"`
	Message string `json:"message"`
}

func (e *CaseEvent) CaseRef() string {
	return e.CaseID
}

func NewCaseEvent(eventType, caseID string, actor Actor, action, message string) *CaseEvent {
	return &CaseEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"case_id":    caseID,
				"user_id":    actor.UserID,
				"rahat_role": actor.RahatRole,
				"action":     action,
				"message":    message,
			},
		},
		CaseID:  caseID,
		Actor:   actor,
		Action:  action,
		Message: message,
	}
}
