package cases

import (
	"bytes"
	"context"
	"log/slog"

	errors "github.com/frahmantamala/rahat-dashboard/internal"
	"github.com/frahmantamala/rahat-dashboard/internal/backend"
	"github.com/frahmantamala/rahat-dashboard/internal/cache"
	caseDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/cases"
	"github.com/frahmantamala/rahat-dashboard/internal/core/events"
)

// Backend is the part of the relief backend the case screens use.
type Backend interface {
	CreateCase(ctx context.Context, req caseDatamodel.CreateCaseRequest) (*caseDatamodel.CaseSummary, error)
	ListCases(ctx context.Context, q backend.ListCasesQuery) (*backend.Page[caseDatamodel.Case], error)
	MyPendingCases(ctx context.Context, q backend.PageQuery) (*backend.Page[caseDatamodel.Case], error)
	ReadyToCloseCases(ctx context.Context, q backend.PageQuery) (*backend.DocsPage[caseDatamodel.Case], error)
	GetCase(ctx context.Context, caseID string) (*caseDatamodel.Case, error)
	WorkflowStatus(ctx context.Context, caseID string) (*caseDatamodel.WorkflowStatus, error)
	UpdateWorkflow(ctx context.Context, caseID string, update caseDatamodel.WorkflowUpdate) (*caseDatamodel.CaseSummary, error)
	LinkDocuments(ctx context.Context, caseID string, links []caseDatamodel.DocumentLink) (*caseDatamodel.CaseSummary, error)
	CloseCase(ctx context.Context, caseID string, req caseDatamodel.CloseCaseRequest) (*caseDatamodel.CaseSummary, error)
	Stats(ctx context.Context) (*caseDatamodel.Stats, error)
	WorkflowStages(ctx context.Context) ([]caseDatamodel.WorkflowStage, error)
	DocumentTypes(ctx context.Context) ([]caseDatamodel.DocumentTypeInfo, error)
	UploadFile(ctx context.Context, f backend.FileUpload) (*caseDatamodel.UploadedFile, error)
	CasePDF(ctx context.Context, caseID string, final bool) (*caseDatamodel.PDF, error)
}

// Publisher receives case events after the backend accepted or refused a change.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	backend   Backend
	cache     *cache.Cache
	publisher Publisher
	logger    *slog.Logger
}

func NewService(b Backend, c *cache.Cache, publisher Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = cache.New(cache.WithLogger(logger))
	}
	return &Service{
		backend:   b,
		cache:     c,
		publisher: publisher,
		logger:    logger,
	}
}

func scopeOf(ctx context.Context) string {
	return cache.ScopeFor(errors.CredentialsFromContext(ctx).Cookie)
}

func actorOf(ctx context.Context) events.Actor {
	return events.Actor{
		UserID:    errors.UserIDFromContext(ctx),
		RahatRole: errors.RahatRoleFromContext(ctx),
	}
}

func (s *Service) publish(ctx context.Context, eventType, caseID, action, message string) {
	if s.publisher == nil {
		return
	}
	ev := events.NewCaseEvent(eventType, caseID, actorOf(ctx), action, message)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish case event", "event_type", eventType, "case_id", caseID, "error", err)
	}
}

// upstream turns a backend failure into an AppError carrying the backend's words.
func upstream(err error, fallbackTitle string) *errors.AppError {
	if appErr, ok := errors.IsAppError(err); ok {
		return appErr
	}
	apiErr, ok := backend.AsAPIError(err)
	if !ok {
		return errors.NewUpstreamError(0, fallbackTitle, "The relief service could not be reached. Please try again.", err)
	}
	title := apiErr.Title
	if title == "" {
		title = fallbackTitle
	}
	message := apiErr.Message
	if message == "" {
		message = title
	}
	return errors.NewUpstreamError(apiErr.Status, title, message, err)
}

func (s *Service) GetCase(ctx context.Context, caseID string) (*caseDatamodel.Case, error) {
	c, err := cache.Fetch(ctx, s.cache, scopeOf(ctx), KeyCase(caseID), TTLCase, func(ctx context.Context) (*caseDatamodel.Case, error) {
		return s.backend.GetCase(ctx, caseID)
	})
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, errors.NewNotFoundError("Case not found", errors.ErrCodeCaseNotFound).WithCause(err)
		}
		s.logger.Error("failed to get case", "case_id", caseID, "error", err)
		return nil, upstream(err, "Failed to load case")
	}
	if verr := c.Validate(); verr != nil {
		s.logger.Warn("case from backend breaks an invariant", "case_id", caseID, "error", verr)
	}
	return c, nil
}

// GetWorkflowStatus returns the backend's view of the case, including the
// actions the viewer may take. The action list is never derived locally.
func (s *Service) GetWorkflowStatus(ctx context.Context, caseID string) (*caseDatamodel.WorkflowStatus, error) {
	st, err := cache.Fetch(ctx, s.cache, scopeOf(ctx), KeyWorkflowStatus(caseID), TTLWorkflowStatus, func(ctx context.Context) (*caseDatamodel.WorkflowStatus, error) {
		return s.backend.WorkflowStatus(ctx, caseID)
	})
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, errors.NewNotFoundError("Case not found", errors.ErrCodeCaseNotFound).WithCause(err)
		}
		s.logger.Error("failed to get workflow status", "case_id", caseID, "error", err)
		return nil, upstream(err, "Failed to load workflow status")
	}
	return st, nil
}

// SubmitWorkflowAction sends one transition. It is attempted exactly once.
func (s *Service) SubmitWorkflowAction(ctx context.Context, caseID string, update caseDatamodel.WorkflowUpdate) (*caseDatamodel.CaseSummary, error) {
	if err := ValidateWorkflowUpdate(update); err != nil {
		return nil, err
	}

	summary, err := s.backend.UpdateWorkflow(ctx, caseID, update)
	if err != nil {
		appErr := upstream(err, DefaultWorkflowErrorTitle)
		s.logger.Warn("workflow action rejected",
			"case_id", caseID,
			"action", update.Action,
			"status", appErr.StatusCode,
			"message", appErr.Message)
		s.publish(ctx, events.EventTypeWorkflowFailed, caseID, string(update.Action), appErr.Message)
		return nil, appErr
	}

	n := s.cache.Invalidate(workflowInvalidations(caseID)...)
	s.logger.Info("workflow action submitted",
		"case_id", caseID,
		"action", update.Action,
		"stage", summary.Stage,
		"status", summary.Status,
		"invalidated", n)
	s.publish(ctx, events.EventTypeWorkflowSubmitted, caseID, string(update.Action), update.Remark)
	return summary, nil
}

// CloseCase closes the case unless it is already closed, in which case it
// reports OutcomeAlreadyClosed without calling the backend again.
func (s *Service) CloseCase(ctx context.Context, caseID string, req caseDatamodel.CloseCaseRequest) (*CloseResult, error) {
	if err := ValidateCloseRequest(req); err != nil {
		return nil, err
	}
	if req.PaymentMethod != caseDatamodel.PaymentBankTransfer {
		req.BeneficiaryDetails = caseDatamodel.BeneficiaryDetails{Name: req.BeneficiaryDetails.Name}
	}

	current, err := s.backend.GetCase(ctx, caseID)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, errors.NewNotFoundError("Case not found", errors.ErrCodeCaseNotFound).WithCause(err)
		}
		return nil, upstream(err, "Failed to close case")
	}
	if current.Status == caseDatamodel.StatusClosed {
		s.logger.Info("close requested for a closed case", "case_id", caseID)
		s.publish(ctx, events.EventTypeCaseAlreadyClosed, caseID, "close", "case already closed")
		return &CloseResult{
			Outcome: OutcomeAlreadyClosed,
			Case:    summaryOf(current),
			Message: "This case is already closed.",
		}, nil
	}

	summary, err := s.backend.CloseCase(ctx, caseID, req)
	if err != nil {
		appErr := upstream(err, "Failed to close case")
		s.logger.Warn("close case rejected", "case_id", caseID, "status", appErr.StatusCode, "message", appErr.Message)
		s.publish(ctx, events.EventTypeCaseCloseFailed, caseID, "close", appErr.Message)
		return nil, appErr
	}

	s.cache.Invalidate(KeyCases)
	s.logger.Info("case closed", "case_id", caseID, "payment_method", req.PaymentMethod)
	s.publish(ctx, events.EventTypeCaseClosed, caseID, "close", req.Remark)
	return &CloseResult{
		Outcome: OutcomeClosed,
		Case:    summary,
		Message: "Case closed successfully.",
	}, nil
}

func summaryOf(c *caseDatamodel.Case) *caseDatamodel.CaseSummary {
	sum := &caseDatamodel.CaseSummary{
		CaseID:       c.CaseID,
		Stage:        c.Stage,
		Status:       c.Status,
		CurrentRoles: c.CurrentRoles,
		Documents:    c.Documents,
		Remarks:      c.Remarks,
	}
	if c.Payment != nil {
		sum.PaymentID = c.Payment.ID
	}
	return sum
}

func (s *Service) CreateCase(ctx context.Context, req caseDatamodel.CreateCaseRequest) (*caseDatamodel.CaseSummary, error) {
	if err := ValidateCreateCase(req); err != nil {
		return nil, err
	}
	summary, err := s.backend.CreateCase(ctx, req)
	if err != nil {
		s.logger.Error("failed to create case", "error", err)
		return nil, upstream(err, "Failed to create case")
	}
	s.cache.Invalidate(KeyCases)
	s.logger.Info("case created", "case_id", summary.CaseID, "case_type", req.CaseType)
	s.publish(ctx, events.EventTypeCaseCreated, summary.CaseID, "create", string(req.CaseType))
	return summary, nil
}

// UploadDocuments uploads each file and then links the uploaded ids to the case in one call.
func (s *Service) UploadDocuments(ctx context.Context, caseID string, uploads []DocumentUpload) (*caseDatamodel.CaseSummary, error) {
	if err := ValidateDocumentUploads(uploads); err != nil {
		return nil, err
	}

	links := make([]caseDatamodel.DocumentLink, 0, len(uploads))
	for _, u := range uploads {
		file, err := s.backend.UploadFile(ctx, backend.FileUpload{
			Filename:    u.Filename,
			Content:     bytes.NewReader(u.Content),
			UploadedFor: caseID,
			EntityType:  "case",
			Description: u.Description,
			Tags:        string(u.DocumentType),
		})
		if err != nil {
			s.logger.Error("failed to upload document", "case_id", caseID, "filename", u.Filename, "error", err)
			return nil, upstream(err, "Failed to upload document")
		}
		links = append(links, caseDatamodel.DocumentLink{FileID: file.ID, DocumentType: u.DocumentType})
	}

	summary, err := s.backend.LinkDocuments(ctx, caseID, links)
	if err != nil {
		s.logger.Error("failed to link documents", "case_id", caseID, "error", err)
		return nil, upstream(err, "Failed to upload documents")
	}
	s.cache.Invalidate(KeyCases)
	s.publish(ctx, events.EventTypeDocumentsLinked, caseID, "upload", "")
	return summary, nil
}

func (s *Service) ListCases(ctx context.Context, q backend.ListCasesQuery) (*backend.Page[caseDatamodel.Case], error) {
	page, err := cache.Fetch(ctx, s.cache, scopeOf(ctx), withParams(KeyAllCases, q.Values()), TTLAllCases, func(ctx context.Context) (*backend.Page[caseDatamodel.Case], error) {
		return s.backend.ListCases(ctx, q)
	})
	if err != nil {
		return nil, upstream(err, "Failed to load cases")
	}
	return page, nil
}

func (s *Service) PendingCases(ctx context.Context, q backend.PageQuery) (*backend.Page[caseDatamodel.Case], error) {
	page, err := cache.Fetch(ctx, s.cache, scopeOf(ctx), withParams(KeyPending, q.Values()), TTLPending, func(ctx context.Context) (*backend.Page[caseDatamodel.Case], error) {
		return s.backend.MyPendingCases(ctx, q)
	})
	if err != nil {
		return nil, upstream(err, "Failed to load pending cases")
	}
	return page, nil
}

func (s *Service) ReadyToClose(ctx context.Context, q backend.PageQuery) (*backend.DocsPage[caseDatamodel.Case], error) {
	page, err := cache.Fetch(ctx, s.cache, scopeOf(ctx), withParams(KeyReadyToClose, q.Values()), TTLReadyToClose, func(ctx context.Context) (*backend.DocsPage[caseDatamodel.Case], error) {
		return s.backend.ReadyToCloseCases(ctx, q)
	})
	if err != nil {
		return nil, upstream(err, "Failed to load cases ready to close")
	}
	return page, nil
}

func (s *Service) Stats(ctx context.Context) (*caseDatamodel.Stats, error) {
	stats, err := cache.Fetch(ctx, s.cache, scopeOf(ctx), KeyStats, TTLStats, s.backend.Stats)
	if err != nil {
		return nil, upstream(err, "Failed to load statistics")
	}
	return stats, nil
}

func (s *Service) WorkflowStages(ctx context.Context) ([]caseDatamodel.WorkflowStage, error) {
	stages, err := cache.Fetch(ctx, s.cache, scopeOf(ctx), KeyWorkflowStage, TTLWorkflowStages, s.backend.WorkflowStages)
	if err != nil {
		return nil, upstream(err, "Failed to load workflow stages")
	}
	return stages, nil
}

func (s *Service) DocumentTypes(ctx context.Context) ([]caseDatamodel.DocumentTypeInfo, error) {
	types, err := cache.Fetch(ctx, s.cache, scopeOf(ctx), KeyDocumentTypes, TTLDocumentTypes, s.backend.DocumentTypes)
	if err != nil {
		return nil, upstream(err, "Failed to load document types")
	}
	return types, nil
}

// CasePDF is not cached; the backend renders it on demand.
func (s *Service) CasePDF(ctx context.Context, caseID string, final bool) (*caseDatamodel.PDF, error) {
	pdf, err := s.backend.CasePDF(ctx, caseID, final)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, errors.NewNotFoundError("Case not found", errors.ErrCodeCaseNotFound).WithCause(err)
		}
		return nil, upstream(err, "Failed to download PDF")
	}
	return pdf, nil
}
