package cases_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/frahmantamala/rahat-dashboard/internal"
	"github.com/frahmantamala/rahat-dashboard/internal/backend"
	"github.com/frahmantamala/rahat-dashboard/internal/cache"
	"github.com/frahmantamala/rahat-dashboard/internal/cases"
	caseDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/cases"
	"github.com/frahmantamala/rahat-dashboard/internal/core/events"
	"github.com/frahmantamala/rahat-dashboard/pkg/logger"
)

func TestCases(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Cases Suite")
}

// fakeBackend keeps one case in memory and counts calls per operation.
type fakeBackend struct {
	mu          sync.Mutex
	calls       map[string]int
	current     caseDatamodel.Case
	workflowErr error
	closeErr    error
	uploaded    []backend.FileUpload
	linked      []caseDatamodel.DocumentLink
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		calls: make(map[string]int),
		current: caseDatamodel.Case{
			ID:     "c-1",
			CaseID: "c-1",
			Stage:  "sdm_review",
			Status: caseDatamodel.StatusPending,
		},
	}
}

func (f *fakeBackend) hit(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
}

func (f *fakeBackend) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeBackend) snapshot() caseDatamodel.Case {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeBackend) summary() *caseDatamodel.CaseSummary {
	c := f.snapshot()
	return &caseDatamodel.CaseSummary{CaseID: c.CaseID, Stage: c.Stage, Status: c.Status}
}

func (f *fakeBackend) CreateCase(ctx context.Context, req caseDatamodel.CreateCaseRequest) (*caseDatamodel.CaseSummary, error) {
	f.hit("create")
	return &caseDatamodel.CaseSummary{CaseID: "c-new", Stage: "thana_incharge_review", Status: caseDatamodel.StatusPending}, nil
}

func (f *fakeBackend) ListCases(ctx context.Context, q backend.ListCasesQuery) (*backend.Page[caseDatamodel.Case], error) {
	f.hit("list")
	return &backend.Page[caseDatamodel.Case]{Docs: []caseDatamodel.Case{f.snapshot()}, Total: 1, Page: 1, Limit: 10, TotalPages: 1}, nil
}

func (f *fakeBackend) MyPendingCases(ctx context.Context, q backend.PageQuery) (*backend.Page[caseDatamodel.Case], error) {
	f.hit("pending")
	return &backend.Page[caseDatamodel.Case]{Docs: []caseDatamodel.Case{f.snapshot()}, Total: 1}, nil
}

func (f *fakeBackend) ReadyToCloseCases(ctx context.Context, q backend.PageQuery) (*backend.DocsPage[caseDatamodel.Case], error) {
	f.hit("ready")
	return &backend.DocsPage[caseDatamodel.Case]{Docs: []caseDatamodel.Case{f.snapshot()}, TotalDocs: 1}, nil
}

func (f *fakeBackend) GetCase(ctx context.Context, caseID string) (*caseDatamodel.Case, error) {
	f.hit("get")
	if caseID != "c-1" {
		return nil, &backend.APIError{Status: http.StatusNotFound, Message: "Case not found"}
	}
	c := f.snapshot()
	return &c, nil
}

func (f *fakeBackend) WorkflowStatus(ctx context.Context, caseID string) (*caseDatamodel.WorkflowStatus, error) {
	f.hit("status")
	c := f.snapshot()
	return &caseDatamodel.WorkflowStatus{
		CaseID:           c.CaseID,
		Stage:            c.Stage,
		Status:           c.Status,
		AvailableActions: []caseDatamodel.Action{caseDatamodel.ActionForward},
		CanProceed:       true,
	}, nil
}

func (f *fakeBackend) UpdateWorkflow(ctx context.Context, caseID string, update caseDatamodel.WorkflowUpdate) (*caseDatamodel.CaseSummary, error) {
	f.hit("workflow")
	if f.workflowErr != nil {
		return nil, f.workflowErr
	}
	f.mu.Lock()
	f.current.Stage = "rahat_shakha_review"
	f.mu.Unlock()
	return f.summary(), nil
}

func (f *fakeBackend) LinkDocuments(ctx context.Context, caseID string, links []caseDatamodel.DocumentLink) (*caseDatamodel.CaseSummary, error) {
	f.hit("link")
	f.mu.Lock()
	f.linked = append(f.linked, links...)
	f.mu.Unlock()
	return f.summary(), nil
}

func (f *fakeBackend) CloseCase(ctx context.Context, caseID string, req caseDatamodel.CloseCaseRequest) (*caseDatamodel.CaseSummary, error) {
	f.hit("close")
	if f.closeErr != nil {
		return nil, f.closeErr
	}
	f.mu.Lock()
	f.current.Status = caseDatamodel.StatusClosed
	f.current.Stage = caseDatamodel.StageClosed
	f.mu.Unlock()
	return f.summary(), nil
}

func (f *fakeBackend) Stats(ctx context.Context) (*caseDatamodel.Stats, error) {
	f.hit("stats")
	return &caseDatamodel.Stats{Total: 1, Pending: 1}, nil
}

func (f *fakeBackend) WorkflowStages(ctx context.Context) ([]caseDatamodel.WorkflowStage, error) {
	f.hit("stages")
	return []caseDatamodel.WorkflowStage{{Stage: 1, Name: "tehsildar_review"}}, nil
}

func (f *fakeBackend) DocumentTypes(ctx context.Context) ([]caseDatamodel.DocumentTypeInfo, error) {
	f.hit("doctypes")
	return []caseDatamodel.DocumentTypeInfo{{Type: caseDatamodel.DocumentPostmortemReport, Required: true}}, nil
}

func (f *fakeBackend) UploadFile(ctx context.Context, up backend.FileUpload) (*caseDatamodel.UploadedFile, error) {
	f.hit("upload")
	if _, err := io.ReadAll(up.Content); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.uploaded = append(f.uploaded, up)
	id := "file-" + up.Filename
	f.mu.Unlock()
	return &caseDatamodel.UploadedFile{ID: id, OriginalName: up.Filename}, nil
}

func (f *fakeBackend) CasePDF(ctx context.Context, caseID string, final bool) (*caseDatamodel.PDF, error) {
	f.hit("pdf")
	return &caseDatamodel.PDF{ContentType: "application/pdf", Filename: "case-" + caseID + ".pdf", Body: []byte("%PDF-1.4")}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.EventType()
	}
	return out
}

func validClose() caseDatamodel.CloseCaseRequest {
	return caseDatamodel.CloseCaseRequest{
		Amount:        json.Number("400000"),
		PaymentMethod: caseDatamodel.PaymentCash,
		BeneficiaryDetails: caseDatamodel.BeneficiaryDetails{
			Name: "Sita Devi",
		},
	}
}

func fieldsOf(err error) []string {
	appErr, ok := errors.IsAppError(err)
	Expect(ok).To(BeTrue())
	return appErr.Fields()
}

var _ = Describe("Case service", func() {
	var (
		ctx       context.Context
		fake      *fakeBackend
		publisher *recordingPublisher
		c         *cache.Cache
		service   *cases.Service
	)

	BeforeEach(func() {
		ctx = errors.ContextWithCredentials(context.Background(), errors.Credentials{Cookie: "session_token=t1"})
		ctx = errors.ContextWithUserID(ctx, "u-1")
		ctx = errors.ContextWithRahatRole(ctx, "sdm")
		fake = newFakeBackend()
		publisher = &recordingPublisher{}
		c = cache.New(cache.WithLogger(logger.Discard()))
		service = cases.NewService(fake, c, publisher, logger.Discard())
	})

	Describe("SubmitWorkflowAction", func() {
		It("should reject an action outside the vocabulary before calling the backend", func() {
			_, err := service.SubmitWorkflowAction(ctx, "c-1", caseDatamodel.WorkflowUpdate{Action: "escalate", Remark: "x"})
			Expect(err).To(HaveOccurred())
			Expect(fieldsOf(err)).To(ConsistOf("action"))
			Expect(fake.Calls("workflow")).To(Equal(0))
		})

		It("should require a remark for every action", func() {
			for _, action := range []caseDatamodel.Action{
				caseDatamodel.ActionForward,
				caseDatamodel.ActionApprove,
				caseDatamodel.ActionReject,
				caseDatamodel.ActionTerminate,
				caseDatamodel.ActionReleaseNotice,
			} {
				_, err := service.SubmitWorkflowAction(ctx, "c-1", caseDatamodel.WorkflowUpdate{Action: action, Remark: "   "})
				Expect(err).To(HaveOccurred())
				Expect(fieldsOf(err)).To(ConsistOf("remark"))
			}
			Expect(fake.Calls("workflow")).To(Equal(0))
		})

		It("should refetch the case and both lists after a successful action", func() {
			first, err := service.GetCase(ctx, "c-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Stage).To(Equal(caseDatamodel.Stage("sdm_review")))
			_, err = service.ListCases(ctx, backend.ListCasesQuery{PageQuery: backend.PageQuery{Page: 1, Limit: 10}})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.PendingCases(ctx, backend.PageQuery{Page: 1, Limit: 10})
			Expect(err).NotTo(HaveOccurred())

			_, _ = service.GetCase(ctx, "c-1")
			Expect(fake.Calls("get")).To(Equal(1))

			summary, err := service.SubmitWorkflowAction(ctx, "c-1", caseDatamodel.WorkflowUpdate{Action: caseDatamodel.ActionForward, Remark: "verified"})
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Stage).To(Equal(caseDatamodel.Stage("rahat_shakha_review")))

			after, err := service.GetCase(ctx, "c-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(after.Stage).To(Equal(caseDatamodel.Stage("rahat_shakha_review")))

			list, err := service.ListCases(ctx, backend.ListCasesQuery{PageQuery: backend.PageQuery{Page: 1, Limit: 10}})
			Expect(err).NotTo(HaveOccurred())
			Expect(list.Docs[0].Stage).To(Equal(caseDatamodel.Stage("rahat_shakha_review")))

			pending, err := service.PendingCases(ctx, backend.PageQuery{Page: 1, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(pending.Docs[0].Stage).To(Equal(caseDatamodel.Stage("rahat_shakha_review")))

			Expect(fake.Calls("get")).To(Equal(2))
			Expect(fake.Calls("list")).To(Equal(2))
			Expect(fake.Calls("pending")).To(Equal(2))
			Expect(publisher.Types()).To(ContainElement(events.EventTypeWorkflowSubmitted))
		})

		It("should invalidate the case for other viewers too", func() {
			other := errors.ContextWithCredentials(context.Background(), errors.Credentials{Cookie: "session_token=t2"})
			_, _ = service.GetCase(other, "c-1")

			_, err := service.SubmitWorkflowAction(ctx, "c-1", caseDatamodel.WorkflowUpdate{Action: caseDatamodel.ActionForward, Remark: "ok"})
			Expect(err).NotTo(HaveOccurred())

			after, _ := service.GetCase(other, "c-1")
			Expect(after.Stage).To(Equal(caseDatamodel.Stage("rahat_shakha_review")))
		})

		It("should surface a business-rule rejection verbatim and never retry it", func() {
			fake.workflowErr = &backend.APIError{
				Status:  http.StatusBadRequest,
				Code:    "INVALID_TRANSITION",
				Message: "Action approve is not available at stage sdm_review",
			}

			_, err := service.SubmitWorkflowAction(ctx, "c-1", caseDatamodel.WorkflowUpdate{Action: caseDatamodel.ActionApprove, Remark: "please"})
			Expect(err).To(HaveOccurred())

			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Title).To(Equal(cases.DefaultWorkflowErrorTitle))
			Expect(appErr.Message).To(Equal("Action approve is not available at stage sdm_review"))
			Expect(appErr.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(appErr.Code).To(Equal(errors.ErrCodeUpstreamRejected))
			Expect(fake.Calls("workflow")).To(Equal(1))
			Expect(publisher.Types()).To(ConsistOf(events.EventTypeWorkflowFailed))
		})

		It("should keep the server title when one is sent", func() {
			fake.workflowErr = &backend.APIError{Status: http.StatusConflict, Title: "Stage locked", Message: "Another officer is reviewing"}

			_, err := service.SubmitWorkflowAction(ctx, "c-1", caseDatamodel.WorkflowUpdate{Action: caseDatamodel.ActionForward, Remark: "x"})
			appErr, _ := errors.IsAppError(err)
			Expect(appErr.Title).To(Equal("Stage locked"))
			Expect(appErr.Message).To(Equal("Another officer is reviewing"))
		})

		It("should not cache anything after a failed action", func() {
			_, _ = service.GetCase(ctx, "c-1")
			fake.workflowErr = &backend.APIError{Status: http.StatusBadRequest, Message: "no"}

			_, _ = service.SubmitWorkflowAction(ctx, "c-1", caseDatamodel.WorkflowUpdate{Action: caseDatamodel.ActionForward, Remark: "x"})
			_, _ = service.GetCase(ctx, "c-1")
			Expect(fake.Calls("get")).To(Equal(1))
		})
	})

	Describe("GetWorkflowStatus", func() {
		It("should pass the backend's available actions through untouched", func() {
			st, err := service.GetWorkflowStatus(ctx, "c-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(st.AvailableActions).To(Equal([]caseDatamodel.Action{caseDatamodel.ActionForward}))
			Expect(st.Offers(caseDatamodel.ActionForward)).To(BeTrue())
			Expect(st.Offers(caseDatamodel.ActionApprove)).To(BeFalse())
		})

		It("should be cached between polls", func() {
			_, _ = service.GetWorkflowStatus(ctx, "c-1")
			_, _ = service.GetWorkflowStatus(ctx, "c-1")
			Expect(fake.Calls("status")).To(Equal(1))
		})
	})

	Describe("CloseCase", func() {
		It("should reject a zero amount before any network call", func() {
			req := validClose()
			req.Amount = json.Number("0")

			_, err := service.CloseCase(ctx, "c-1", req)
			Expect(err).To(HaveOccurred())
			Expect(fieldsOf(err)).To(ConsistOf("amount"))
			Expect(fake.Calls("get")).To(Equal(0))
			Expect(fake.Calls("close")).To(Equal(0))
		})

		It("should reject negative and non-numeric amounts", func() {
			for _, amount := range []string{"-10", "abc", ""} {
				req := validClose()
				req.Amount = json.Number(amount)
				_, err := service.CloseCase(ctx, "c-1", req)
				Expect(err).To(HaveOccurred())
			}
			Expect(fake.Calls("close")).To(Equal(0))
		})

		It("should reject an unknown payment method", func() {
			req := validClose()
			req.PaymentMethod = "crypto"
			_, err := service.CloseCase(ctx, "c-1", req)
			Expect(fieldsOf(err)).To(ConsistOf("paymentMethod"))
		})

		It("should require bank details only for bank transfers", func() {
			req := validClose()
			req.PaymentMethod = caseDatamodel.PaymentBankTransfer
			_, err := service.CloseCase(ctx, "c-1", req)
			Expect(fieldsOf(err)).To(ConsistOf(
				"beneficiaryDetails.accountNumber",
				"beneficiaryDetails.bankName",
				"beneficiaryDetails.ifscCode",
			))

			req.BeneficiaryDetails.AccountNumber = "1234567890"
			req.BeneficiaryDetails.BankName = "SBI"
			req.BeneficiaryDetails.IFSCCode = "SBIN0000001"
			result, err := service.CloseCase(ctx, "c-1", req)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Outcome).To(Equal(cases.OutcomeClosed))
		})

		It("should require a beneficiary name", func() {
			req := validClose()
			req.BeneficiaryDetails.Name = ""
			_, err := service.CloseCase(ctx, "c-1", req)
			Expect(fieldsOf(err)).To(ConsistOf("beneficiaryDetails.name"))
		})

		It("should close an open case and invalidate the case views", func() {
			_, _ = service.GetCase(ctx, "c-1")
			_, _ = service.Stats(ctx)

			result, err := service.CloseCase(ctx, "c-1", validClose())
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Outcome).To(Equal(cases.OutcomeClosed))
			Expect(result.Case.Status).To(Equal(caseDatamodel.StatusClosed))

			after, _ := service.GetCase(ctx, "c-1")
			Expect(after.Status).To(Equal(caseDatamodel.StatusClosed))
			_, _ = service.Stats(ctx)
			Expect(fake.Calls("stats")).To(Equal(2))
		})

		It("should report already closed on every repeat without a second transition", func() {
			_, err := service.CloseCase(ctx, "c-1", validClose())
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.Calls("close")).To(Equal(1))

			for i := 0; i < 2; i++ {
				result, err := service.CloseCase(ctx, "c-1", validClose())
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Outcome).To(Equal(cases.OutcomeAlreadyClosed))
				Expect(result.Case.Status).To(Equal(caseDatamodel.StatusClosed))
			}
			Expect(fake.Calls("close")).To(Equal(1))
			Expect(publisher.Types()).To(Equal([]string{
				events.EventTypeCaseClosed,
				events.EventTypeCaseAlreadyClosed,
				events.EventTypeCaseAlreadyClosed,
			}))
		})

		It("should map a missing case to not found", func() {
			_, err := service.CloseCase(ctx, "missing", validClose())
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(errors.ErrCodeCaseNotFound))
		})
	})

	Describe("CreateCase", func() {
		valid := func() caseDatamodel.CreateCaseRequest {
			return caseDatamodel.CreateCaseRequest{
				CaseType: caseDatamodel.CaseTypeHitAndRun,
				Victim: caseDatamodel.Victim{
					Name:        "Ram Kumar",
					DOB:         "1980-04-02",
					DOD:         "2024-11-20",
					Address:     "Ward 4, Rampur",
					Description: "Road accident on NH-24",
					Relative: caseDatamodel.Relative{
						Name:     "Sita Devi",
						Contact:  "9876543210",
						Relation: "spouse",
					},
				},
				ThanaInchargeID: "ti-1",
			}
		}

		It("should create a valid case and invalidate the lists", func() {
			_, _ = service.ListCases(ctx, backend.ListCasesQuery{})
			summary, err := service.CreateCase(ctx, valid())
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.CaseID).To(Equal("c-new"))

			_, _ = service.ListCases(ctx, backend.ListCasesQuery{})
			Expect(fake.Calls("list")).To(Equal(2))
		})

		It("should report every invalid field", func() {
			req := valid()
			req.CaseType = "fire"
			req.Victim.Relative.Contact = "12345"
			req.ThanaInchargeID = ""
			req.Victim.DOD = "not-a-date"

			_, err := service.CreateCase(ctx, req)
			Expect(fieldsOf(err)).To(ConsistOf("caseType", "victim.relative.contact", "thanaInchargeId", "victim.dod"))
			Expect(fake.Calls("create")).To(Equal(0))
		})
	})

	Describe("UploadDocuments", func() {
		It("should upload every file and link them in one call", func() {
			summary, err := service.UploadDocuments(ctx, "c-1", []cases.DocumentUpload{
				{Filename: "pm.pdf", Content: []byte("a"), DocumentType: caseDatamodel.DocumentPostmortemReport},
				{Filename: "site.jpg", Content: []byte("b"), DocumentType: caseDatamodel.DocumentPatwariInspection},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.CaseID).To(Equal("c-1"))

			Expect(fake.Calls("upload")).To(Equal(2))
			Expect(fake.Calls("link")).To(Equal(1))
			Expect(fake.linked).To(Equal([]caseDatamodel.DocumentLink{
				{FileID: "file-pm.pdf", DocumentType: caseDatamodel.DocumentPostmortemReport},
				{FileID: "file-site.jpg", DocumentType: caseDatamodel.DocumentPatwariInspection},
			}))
			Expect(fake.uploaded[0].UploadedFor).To(Equal("c-1"))
			Expect(fake.uploaded[0].EntityType).To(Equal("case"))
		})

		It("should refuse an unknown document type", func() {
			_, err := service.UploadDocuments(ctx, "c-1", []cases.DocumentUpload{
				{Filename: "x.pdf", Content: []byte("a"), DocumentType: "selfie"},
			})
			Expect(fieldsOf(err)).To(ConsistOf("documentType"))
			Expect(fake.Calls("upload")).To(Equal(0))
		})

		It("should refuse an empty upload", func() {
			_, err := service.UploadDocuments(ctx, "c-1", nil)
			Expect(err).To(HaveOccurred())
		})
	})

	It("should cache reference data", func() {
		_, _ = service.WorkflowStages(ctx)
		_, _ = service.WorkflowStages(ctx)
		_, _ = service.DocumentTypes(ctx)
		_, _ = service.DocumentTypes(ctx)
		Expect(fake.Calls("stages")).To(Equal(1))
		Expect(fake.Calls("doctypes")).To(Equal(1))
	})

	It("should stream PDFs without caching", func() {
		_, _ = service.CasePDF(ctx, "c-1", false)
		pdf, err := service.CasePDF(ctx, "c-1", false)
		Expect(err).NotTo(HaveOccurred())
		Expect(pdf.ContentType).To(Equal("application/pdf"))
		Expect(fake.Calls("pdf")).To(Equal(2))
	})
})
