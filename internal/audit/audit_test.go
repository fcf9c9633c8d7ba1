package audit_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/rahat-dashboard/internal/audit"
	auditDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/audit"
	"github.com/frahmantamala/rahat-dashboard/internal/core/events"
	"github.com/frahmantamala/rahat-dashboard/internal/transport"
	"github.com/frahmantamala/rahat-dashboard/pkg/logger"
)

func TestAudit(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Audit Suite")
}

type memRepo struct {
	mu      sync.Mutex
	entries []auditDatamodel.Entry
}

func (m *memRepo) Create(ctx context.Context, e *auditDatamodel.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memRepo) ListByCase(ctx context.Context, caseID string, limit int) ([]auditDatamodel.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []auditDatamodel.Entry
	for _, e := range m.entries {
		if e.CaseID == caseID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

var _ = Describe("Recorder", func() {
	var (
		repo *memRepo
		bus  *events.EventBus
	)

	actor := events.Actor{UserID: "u-7", RahatRole: "sdm"}

	BeforeEach(func() {
		repo = &memRepo{}
		bus = events.NewEventBus(logger.Discard())
		audit.NewRecorder(repo, logger.Discard()).Register(bus)
	})

	DescribeTable("records the outcome of each event",
		func(eventType, outcome string) {
			Expect(bus.Publish(context.Background(), events.NewCaseEvent(eventType, "c-1", actor, "forward", "ok"))).To(Succeed())
			bus.Wait()

			Expect(repo.entries).To(HaveLen(1))
			e := repo.entries[0]
			Expect(e.Outcome).To(Equal(outcome))
			Expect(e.CaseID).To(Equal("c-1"))
			Expect(e.ActorID).To(Equal("u-7"))
			Expect(e.ActorRole).To(Equal("sdm"))
			Expect(e.ID).To(HaveLen(26))
		},
		Entry("workflow submitted", events.EventTypeWorkflowSubmitted, audit.OutcomeSucceeded),
		Entry("workflow failed", events.EventTypeWorkflowFailed, audit.OutcomeFailed),
		Entry("closed", events.EventTypeCaseClosed, audit.OutcomeSucceeded),
		Entry("already closed", events.EventTypeCaseAlreadyClosed, audit.OutcomeAlreadyClosed),
		Entry("close failed", events.EventTypeCaseCloseFailed, audit.OutcomeFailed),
		Entry("admin change", events.EventTypeUserAdministered, audit.OutcomeSucceeded),
	)

	It("should refuse events it does not understand", func() {
		err := audit.NewRecorder(repo, logger.Discard()).Handle(context.Background(), events.BaseEvent{ID: "x", Type: events.EventTypeCaseClosed})
		Expect(err).To(HaveOccurred())
	})

	It("should serve a case's trail", func() {
		Expect(bus.Publish(context.Background(), events.NewCaseEvent(events.EventTypeCaseClosed, "c-9", actor, "close", "Case closed"))).To(Succeed())
		bus.Wait()

		h := audit.NewHandler(transport.NewBaseHandler(logger.Discard()), audit.NewService(repo))
		router := chi.NewRouter()
		router.Get("/api/audit/cases/{id}", h.CaseTrail)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/audit/cases/c-9", nil))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"outcome":"succeeded"`))
		Expect(w.Body.String()).To(ContainSubstring(`"message":"Case closed"`))
	})
})
