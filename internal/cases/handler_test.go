package cases_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/frahmantamala/rahat-dashboard/internal"
	"github.com/frahmantamala/rahat-dashboard/internal/backend"
	"github.com/frahmantamala/rahat-dashboard/internal/cache"
	"github.com/frahmantamala/rahat-dashboard/internal/cases"
	"github.com/frahmantamala/rahat-dashboard/internal/transport"
	"github.com/frahmantamala/rahat-dashboard/pkg/logger"
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Title   string `json:"title"`
		Message string `json:"message"`
	} `json:"error"`
}

var _ = Describe("Case handler", func() {
	var (
		fake   *fakeBackend
		router *chi.Mux
	)

	BeforeEach(func() {
		fake = newFakeBackend()
		service := cases.NewService(fake, cache.New(cache.WithLogger(logger.Discard())), nil, logger.Discard())
		handler := cases.NewHandler(transport.NewBaseHandler(logger.Discard()), service)

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := errors.ContextWithCredentials(r.Context(), errors.Credentials{Cookie: "session_token=t1"})
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		})
		router.Get("/cases/{id}", handler.GetCase)
		router.Put("/cases/{id}/workflow", handler.SubmitWorkflowAction)
		router.Post("/cases/{id}/close", handler.CloseCase)
		router.Post("/cases/{id}/documents", handler.UploadDocuments)
		router.Get("/cases/{id}/pdf", handler.CasePDF)
	})

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("should return the case", func() {
		w := serve(httptest.NewRequest(http.MethodGet, "/cases/c-1", nil))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"caseId":"c-1"`))
	})

	It("should map a missing case to 404", func() {
		w := serve(httptest.NewRequest(http.MethodGet, "/cases/nope", nil))
		Expect(w.Code).To(Equal(http.StatusNotFound))

		var body errorBody
		Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Error.Code).To(Equal(string(errors.ErrCodeCaseNotFound)))
	})

	It("should answer 400 for a missing remark without touching the backend", func() {
		w := serve(httptest.NewRequest(http.MethodPut, "/cases/c-1/workflow", strings.NewReader(`{"action":"forward","remark":""}`)))
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(fake.Calls("workflow")).To(Equal(0))
	})

	It("should relay the backend's rejection with its status", func() {
		fake.workflowErr = &backend.APIError{Status: http.StatusUnprocessableEntity, Message: "Not your stage"}

		w := serve(httptest.NewRequest(http.MethodPut, "/cases/c-1/workflow", strings.NewReader(`{"action":"approve","remark":"ok"}`)))
		Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))

		var body errorBody
		Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Error.Title).To(Equal(cases.DefaultWorkflowErrorTitle))
		Expect(body.Error.Message).To(Equal("Not your stage"))
	})

	It("should report already closed as a normal 200 outcome", func() {
		payload := `{"amount":500000,"paymentMethod":"cash","beneficiaryDetails":{"name":"Sita Devi"}}`

		w := serve(httptest.NewRequest(http.MethodPost, "/cases/c-1/close", strings.NewReader(payload)))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"outcome":"closed"`))

		w = serve(httptest.NewRequest(http.MethodPost, "/cases/c-1/close", strings.NewReader(payload)))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"outcome":"already_closed"`))
		Expect(fake.Calls("close")).To(Equal(1))
	})

	It("should reject malformed JSON", func() {
		w := serve(httptest.NewRequest(http.MethodPost, "/cases/c-1/close", strings.NewReader(`{"amount":`)))
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should accept a multipart document upload", func() {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("files", "pm.pdf")
		Expect(err).NotTo(HaveOccurred())
		_, _ = part.Write([]byte("%PDF"))
		Expect(mw.WriteField("documentTypes", "postmortem-report")).To(Succeed())
		Expect(mw.Close()).To(Succeed())

		req := httptest.NewRequest(http.MethodPost, "/cases/c-1/documents", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		w := serve(req)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(fake.Calls("upload")).To(Equal(1))
		Expect(fake.Calls("link")).To(Equal(1))
	})

	It("should stream the PDF as an attachment", func() {
		w := serve(httptest.NewRequest(http.MethodGet, "/cases/c-1/pdf", nil))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(Equal("application/pdf"))
		Expect(w.Header().Get("Content-Disposition")).To(ContainSubstring("case-c-1.pdf"))
		Expect(w.Body.String()).To(HavePrefix("%PDF"))
	})
})
