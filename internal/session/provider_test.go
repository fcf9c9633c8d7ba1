package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/rahat-dashboard/internal/access"
	"github.com/frahmantamala/rahat-dashboard/internal/cache"
	userDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/user"
	"github.com/frahmantamala/rahat-dashboard/internal/session"
	"github.com/frahmantamala/rahat-dashboard/pkg/logger"
)

func TestSession(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Session Suite")
}

type stubFetcher struct {
	mu    sync.Mutex
	snap  *userDatamodel.SessionSnapshot
	err   error
	calls int
	gate  chan struct{}
}

func (f *stubFetcher) GetSession(ctx context.Context) (*userDatamodel.SessionSnapshot, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	snap, err := f.snap, f.err
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return snap, err
}

func (f *stubFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recorder struct {
	mu          sync.Mutex
	navigations []string
	notices     []string
}

func (r *recorder) Navigate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.navigations = append(r.navigations, path)
}

func (r *recorder) Notify(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, message)
}

func (r *recorder) Navigations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.navigations...)
}

func (r *recorder) Notices() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.notices...)
}

func snapshotFor(role access.RahatRole, sessionID string) *userDatamodel.SessionSnapshot {
	return &userDatamodel.SessionSnapshot{
		Session: &userDatamodel.Session{ID: sessionID, UserID: "u-1", ExpiresAt: time.Now().Add(time.Hour)},
		User:    &userDatamodel.User{ID: "u-1", Name: "Test", RahatRole: string(role)},
	}
}

var _ = Describe("Provider", func() {
	var (
		ctx      context.Context
		fetcher  *stubFetcher
		rec      *recorder
		provider *session.Provider
	)

	BeforeEach(func() {
		ctx = context.Background()
		fetcher = &stubFetcher{}
		rec = &recorder{}
		provider = session.NewProvider(fetcher,
			session.WithNavigator(rec),
			session.WithNotifier(rec),
			session.WithLogger(logger.Discard()),
		)
	})

	Context("before the session settles", func() {
		It("should report pending and never redirect", func() {
			Expect(provider.Evaluate("/cases")).To(Equal(session.DecisionPending))
			Expect(rec.Navigations()).To(BeEmpty())
		})

		It("should report pending while the fetch is in flight", func() {
			fetcher.gate = make(chan struct{})
			fetcher.snap = snapshotFor(access.RoleCollector, "s-1")

			done := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				provider.Init(ctx)
				close(done)
			}()

			Eventually(fetcher.Calls).Should(Equal(1))
			Expect(provider.State().IsLoading).To(BeTrue())
			Expect(provider.Evaluate("/cases")).To(Equal(session.DecisionPending))
			Expect(rec.Navigations()).To(BeEmpty())

			close(fetcher.gate)
			Eventually(done).Should(BeClosed())
			Expect(provider.Evaluate("/cases")).To(Equal(session.DecisionAllow))
		})
	})

	Context("without a session", func() {
		BeforeEach(func() {
			provider.Init(ctx)
		})

		It("should settle unauthenticated", func() {
			st := provider.State()
			Expect(st.IsLoading).To(BeFalse())
			Expect(st.IsAuthenticated).To(BeFalse())
			Expect(st.User).To(BeNil())
		})

		It("should send the viewer to sign in exactly once per fetch", func() {
			Expect(provider.Evaluate("/cases")).To(Equal(session.DecisionRedirectSignIn))
			Expect(provider.Evaluate("/cases")).To(Equal(session.DecisionRedirectSignIn))
			Expect(provider.Evaluate("/overview")).To(Equal(session.DecisionRedirectSignIn))

			Expect(rec.Navigations()).To(Equal([]string{"/signin"}))
			Expect(rec.Notices()).To(Equal([]string{session.MessageNotAuthenticated}))
		})

		It("should redirect again after a new failed fetch", func() {
			provider.Evaluate("/cases")
			provider.Refresh(ctx)
			provider.Evaluate("/cases")
			Expect(rec.Navigations()).To(HaveLen(2))
		})

		It("should deny every page", func() {
			Expect(provider.CanAccessPage("/")).To(BeFalse())
			Expect(provider.AllowedPages()).To(BeEmpty())
		})
	})

	It("should treat a fetch error as no session", func() {
		fetcher.err = errors.New("connection refused")
		st := provider.Init(ctx)
		Expect(st.IsAuthenticated).To(BeFalse())
		Expect(st.Err).To(HaveOccurred())
		Expect(provider.Evaluate("/")).To(Equal(session.DecisionRedirectSignIn))
	})

	It("should treat an expired session as no session", func() {
		snap := snapshotFor(access.RoleCollector, "s-1")
		snap.Session.ExpiresAt = time.Now().Add(-time.Minute)
		fetcher.snap = snap

		Expect(provider.Init(ctx).IsAuthenticated).To(BeFalse())
	})

	Context("as a tehsildar", func() {
		BeforeEach(func() {
			fetcher.snap = snapshotFor(access.RoleTehsildar, "s-1")
			provider.Init(ctx)
		})

		It("should allow the pages the table grants", func() {
			Expect(provider.CanAccessPage("/ready-to-close")).To(BeTrue())
			Expect(provider.CanAccessPage("/cases/abc")).To(BeTrue())
			Expect(provider.CanAccessPage("/cases")).To(BeFalse())
			Expect(provider.Evaluate("/ready-to-close")).To(Equal(session.DecisionAllow))
			Expect(rec.Navigations()).To(BeEmpty())
		})

		It("should send the viewer home from a forbidden page with one notice", func() {
			Expect(provider.Evaluate("/cases")).To(Equal(session.DecisionRedirectHome))
			Expect(provider.Evaluate("/cases")).To(Equal(session.DecisionRedirectHome))

			Expect(rec.Navigations()).To(Equal([]string{"/"}))
			Expect(rec.Notices()).To(Equal([]string{session.MessagePermissionDenied}))
		})

		It("should notify separately for each forbidden page", func() {
			provider.Evaluate("/cases")
			provider.Evaluate("/admin")
			Expect(rec.Navigations()).To(Equal([]string{"/", "/"}))
		})

		It("should apply gates by rahat role", func() {
			Expect(provider.Allows(access.TehsildarOnly)).To(BeTrue())
			Expect(provider.Allows(access.AdminOnly)).To(BeFalse())
		})
	})

	It("should deny pages to a signed-in user without a rahat role", func() {
		snap := snapshotFor("", "s-1")
		fetcher.snap = snap
		provider.Init(ctx)

		Expect(provider.IsAuthenticated()).To(BeTrue())
		Expect(provider.CanAccessPage("/")).To(BeFalse())
		Expect(provider.Evaluate("/")).To(Equal(session.DecisionRedirectHome))
	})

	Describe("cache", func() {
		var c *cache.Cache

		BeforeEach(func() {
			c = cache.New(cache.WithLogger(logger.Discard()))
			fetcher.snap = snapshotFor(access.RoleCollector, "s-1")
			provider = session.NewProvider(fetcher,
				session.WithCache(c, "viewer", time.Minute),
				session.WithLogger(logger.Discard()),
			)
		})

		It("should reuse a fresh snapshot across providers", func() {
			provider.Init(ctx)
			other := session.NewProvider(fetcher, session.WithCache(c, "viewer", time.Minute))
			Expect(other.Init(ctx).IsAuthenticated).To(BeTrue())
			Expect(fetcher.Calls()).To(Equal(1))
		})

		It("should refetch on Refresh", func() {
			provider.Init(ctx)
			provider.Refresh(ctx)
			Expect(fetcher.Calls()).To(Equal(2))
		})

		It("should forget the viewer on Clear", func() {
			provider.Init(ctx)
			c.Set("viewer", cache.NewKey("cases", "abc"), "detail", time.Hour)

			provider.Clear()

			st := provider.State()
			Expect(st.IsAuthenticated).To(BeFalse())
			Expect(st.IsLoading).To(BeFalse())
			Expect(c.Len()).To(Equal(0))
		})
	})
})
