package cases

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi"

	errors "github.com/frahmantamala/rahat-dashboard/internal"
	"github.com/frahmantamala/rahat-dashboard/internal/backend"
	caseDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/cases"
	"github.com/frahmantamala/rahat-dashboard/internal/transport"
)

const (
	maxUploadBytes = 20 << 20
	defaultLimit   = 10
	maxLimit       = 100
)

type ServiceAPI interface {
	CreateCase(ctx context.Context, req caseDatamodel.CreateCaseRequest) (*caseDatamodel.CaseSummary, error)
	GetCase(ctx context.Context, caseID string) (*caseDatamodel.Case, error)
	GetWorkflowStatus(ctx context.Context, caseID string) (*caseDatamodel.WorkflowStatus, error)
	SubmitWorkflowAction(ctx context.Context, caseID string, update caseDatamodel.WorkflowUpdate) (*caseDatamodel.CaseSummary, error)
	CloseCase(ctx context.Context, caseID string, req caseDatamodel.CloseCaseRequest) (*CloseResult, error)
	UploadDocuments(ctx context.Context, caseID string, uploads []DocumentUpload) (*caseDatamodel.CaseSummary, error)
	ListCases(ctx context.Context, q backend.ListCasesQuery) (*backend.Page[caseDatamodel.Case], error)
	PendingCases(ctx context.Context, q backend.PageQuery) (*backend.Page[caseDatamodel.Case], error)
	ReadyToClose(ctx context.Context, q backend.PageQuery) (*backend.DocsPage[caseDatamodel.Case], error)
	Stats(ctx context.Context) (*caseDatamodel.Stats, error)
	WorkflowStages(ctx context.Context) ([]caseDatamodel.WorkflowStage, error)
	DocumentTypes(ctx context.Context) ([]caseDatamodel.DocumentTypeInfo, error)
	CasePDF(ctx context.Context, caseID string, final bool) (*caseDatamodel.PDF, error)
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

func pageQuery(r *http.Request) backend.PageQuery {
	return backend.PageQuery{
		Page:  transport.QueryInt(r, "page", 1, 0),
		Limit: transport.QueryInt(r, "limit", defaultLimit, maxLimit),
	}
}

func (h *Handler) CreateCase(w http.ResponseWriter, r *http.Request) {
	var req caseDatamodel.CreateCaseRequest
	if appErr := h.DecodeJSON(r, &req); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	summary, err := h.Service.CreateCase(r.Context(), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, summary)
}

func (h *Handler) GetCase(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.GetCase(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) GetWorkflowStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.Service.GetWorkflowStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, st)
}

func (h *Handler) SubmitWorkflowAction(w http.ResponseWriter, r *http.Request) {
	var update caseDatamodel.WorkflowUpdate
	if appErr := h.DecodeJSON(r, &update); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	summary, err := h.Service.SubmitWorkflowAction(r.Context(), chi.URLParam(r, "id"), update)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) CloseCase(w http.ResponseWriter, r *http.Request) {
	var req caseDatamodel.CloseCaseRequest
	if appErr := h.DecodeJSON(r, &req); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	result, err := h.Service.CloseCase(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

// UploadDocuments takes a multipart form with one or more "files" parts and a
// matching "documentTypes" value per file.
func (h *Handler) UploadDocuments(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.WriteAppError(w, errors.NewValidationError("invalid multipart form", errors.ErrCodeValidationFailed).WithCause(err))
		return
	}

	headers := r.MultipartForm.File["files"]
	types := r.MultipartForm.Value["documentTypes"]
	if len(headers) != len(types) {
		h.WriteAppError(w, errors.NewValidationFieldError("documentTypes", "each file needs a document type", errors.ErrCodeInvalidDocumentType))
		return
	}

	uploads := make([]DocumentUpload, 0, len(headers))
	for i, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			h.WriteAppError(w, errors.NewValidationError("unreadable file", errors.ErrCodeValidationFailed).WithCause(err))
			return
		}
		content, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			h.WriteAppError(w, errors.NewValidationError("unreadable file", errors.ErrCodeValidationFailed).WithCause(err))
			return
		}
		uploads = append(uploads, DocumentUpload{
			Filename:     fh.Filename,
			Content:      content,
			DocumentType: caseDatamodel.DocumentType(strings.TrimSpace(types[i])),
			Description:  r.FormValue("description"),
		})
	}

	summary, err := h.Service.UploadDocuments(r.Context(), chi.URLParam(r, "id"), uploads)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) ListCases(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.Service.ListCases(r.Context(), backend.ListCasesQuery{
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
	h.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) PendingCases(w http.ResponseWriter, r *http.Request) {
	page, err := h.Service.PendingCases(r.Context(), pageQuery(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) ReadyToClose(w http.ResponseWriter, r *http.Request) {
	page, err := h.Service.ReadyToClose(r.Context(), pageQuery(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) WorkflowStages(w http.ResponseWriter, r *http.Request) {
	stages, err := h.Service.WorkflowStages(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, stages)
}

func (h *Handler) DocumentTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Service.DocumentTypes(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, types)
}

func (h *Handler) CasePDF(w http.ResponseWriter, r *http.Request) {
	h.writePDF(w, r, false)
}

func (h *Handler) FinalPDF(w http.ResponseWriter, r *http.Request) {
	h.writePDF(w, r, true)
}

func (h *Handler) writePDF(w http.ResponseWriter, r *http.Request, final bool) {
	pdf, err := h.Service.CasePDF(r.Context(), chi.URLParam(r, "id"), final)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", pdf.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+pdf.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf.Body); err != nil {
		h.Logger.Error("CasePDF: failed to write body", "error", err)
	}
}
