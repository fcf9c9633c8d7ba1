package search_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/rahat-dashboard/internal/backend"
	"github.com/frahmantamala/rahat-dashboard/internal/cache"
	userDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/user"
	"github.com/frahmantamala/rahat-dashboard/internal/search"
	"github.com/frahmantamala/rahat-dashboard/internal/transport"
	"github.com/frahmantamala/rahat-dashboard/pkg/logger"
)

func TestSearch(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Search Suite")
}

type collector struct {
	mu      sync.Mutex
	results []search.Result[string]
}

func (c *collector) deliver(r search.Result[string]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func (c *collector) Inputs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.results))
	for i, r := range c.results {
		out[i] = r.Input
	}
	return out
}

var _ = Describe("Debouncer", func() {
	var (
		col     *collector
		mu      sync.Mutex
		queried []string
	)

	echo := func(ctx context.Context, input string) (string, error) {
		mu.Lock()
		queried = append(queried, input)
		mu.Unlock()
		return "result:" + input, nil
	}

	queriedInputs := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), queried...)
	}

	BeforeEach(func() {
		col = &collector{}
		mu.Lock()
		queried = nil
		mu.Unlock()
	})

	It("should run only the last input of a burst", func() {
		d := search.NewDebouncer(context.Background(), 30*time.Millisecond, echo, col.deliver)

		d.Input("r")
		d.Input("ra")
		d.Input("ram")

		Eventually(col.Inputs).Should(Equal([]string{"ram"}))
		Consistently(queriedInputs, 60*time.Millisecond).Should(Equal([]string{"ram"}))
	})

	It("should drop a slow result superseded by a newer input", func() {
		release := make(chan struct{})
		started := make(chan struct{}, 2)
		slow := func(ctx context.Context, input string) (string, error) {
			started <- struct{}{}
			if input == "ra" {
				<-release
			}
			return input, nil
		}
		d := search.NewDebouncer(context.Background(), 10*time.Millisecond, slow, col.deliver)

		d.Input("ra")
		Eventually(started).Should(Receive())

		d.Input("ram")
		Eventually(col.Inputs).Should(Equal([]string{"ram"}))

		close(release)
		Consistently(col.Inputs, 50*time.Millisecond).Should(Equal([]string{"ram"}))
	})

	It("should deliver nothing after Stop", func() {
		d := search.NewDebouncer(context.Background(), 20*time.Millisecond, echo, col.deliver)
		d.Input("x")
		d.Stop()
		Consistently(col.Inputs, 60*time.Millisecond).Should(BeEmpty())
	})

	It("should run immediately on Flush", func() {
		d := search.NewDebouncer(context.Background(), time.Hour, echo, col.deliver)
		d.Input("sit")
		gen := d.Flush("sita")
		Expect(col.Inputs()).To(Equal([]string{"sita"}))
		Expect(d.Latest()).To(Equal(gen))
	})
})

type fakeThanaBackend struct {
	mu      sync.Mutex
	queries []backend.SearchQuery
}

func (f *fakeThanaBackend) SearchThanaIncharge(ctx context.Context, q backend.SearchQuery) (*backend.DocsPage[userDatamodel.ThanaIncharge], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return &backend.DocsPage[userDatamodel.ThanaIncharge]{
		Docs:      []userDatamodel.ThanaIncharge{{ID: "ti-1", Name: "Inspector " + q.Q}},
		TotalDocs: 1,
		Page:      1,
		Limit:     q.Limit,
	}, nil
}

var _ = Describe("Thana search", func() {
	var (
		fake    *fakeThanaBackend
		service *search.ThanaService
	)

	BeforeEach(func() {
		fake = &fakeThanaBackend{}
		service = search.NewThanaService(fake, cache.New(cache.WithLogger(logger.Discard())), 0, logger.Discard())
	})

	It("should ask for the first page of fifty", func() {
		page, err := service.Search(context.Background(), "  Rampur ")
		Expect(err).NotTo(HaveOccurred())
		Expect(page.Docs).To(HaveLen(1))
		Expect(fake.queries).To(HaveLen(1))
		Expect(fake.queries[0].Q).To(Equal("Rampur"))
		Expect(fake.queries[0].Page).To(Equal(1))
		Expect(fake.queries[0].Limit).To(Equal(search.DefaultLimit))
	})

	It("should cache repeated searches", func() {
		_, _ = service.Search(context.Background(), "Rampur")
		_, _ = service.Search(context.Background(), "Rampur")
		_, _ = service.Search(context.Background(), "Sitapur")
		Expect(fake.queries).To(HaveLen(2))
	})

	It("should serve results over HTTP", func() {
		h := search.NewHandler(transport.NewBaseHandler(logger.Discard()), service)
		w := httptest.NewRecorder()
		h.SearchThanaIncharge(w, httptest.NewRequest(http.MethodGet, "/api/thana-incharge?q=Rampur", nil))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring("Inspector Rampur"))
	})
})
