package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/rahat-dashboard/internal/access"
	"github.com/frahmantamala/rahat-dashboard/internal/admin"
	"github.com/frahmantamala/rahat-dashboard/internal/audit"
	"github.com/frahmantamala/rahat-dashboard/internal/auth"
	"github.com/frahmantamala/rahat-dashboard/internal/cases"
	"github.com/frahmantamala/rahat-dashboard/internal/dashboard"
	"github.com/frahmantamala/rahat-dashboard/internal/search"
	"github.com/frahmantamala/rahat-dashboard/internal/transport/middleware"
	"github.com/frahmantamala/rahat-dashboard/internal/transport/swagger"
)

// Routes is everything the router mounts. Handlers left nil are not mounted.
type Routes struct {
	Logger         *slog.Logger
	AllowedOrigins []string

	Health         *HealthHandler
	Spec           *swagger.Spec
	Metrics        *middleware.HTTPMetrics
	MetricsPath    string
	MetricsHandler http.Handler
	SignInLimiter  *middleware.RateLimiter

	Guard  *auth.Middleware
	Auth   *auth.Handler
	Pages  *dashboard.Handler
	Cases  *cases.Handler
	Search *search.Handler
	Admin  *admin.Handler
	Audit  *audit.Handler
}

func RegisterAllRoutes(router *chi.Mux, rt Routes) {
	// Apply global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(rt.Logger))
	router.Use(middleware.CORS(rt.AllowedOrigins))
	if rt.Logger != nil {
		router.Use(middleware.LoggingMiddleware(rt.Logger))
	}
	if rt.Metrics != nil {
		router.Use(rt.Metrics.Instrument)
	}

	if rt.Spec != nil {
		router.Get(swagger.SpecPath, rt.Spec.ServeHTTP)
		router.Handle("/swagger/*", swagger.Handler())
	}
	if rt.MetricsHandler != nil && rt.MetricsPath != "" {
		router.Handle(rt.MetricsPath, rt.MetricsHandler)
	}

	router.Route("/api/v1", func(r chi.Router) {
		health := rt.Health
		if health == nil {
			health = NewHealthHandler()
		}
		r.Get("/health", health.healthCheckHandler)
		r.Get("/ping", health.pingHandler)
	})

	if rt.Guard == nil {
		return
	}
	guard := rt.Guard

	router.Group(func(r chi.Router) {
		r.Use(guard.Credentials, guard.LoadSession)

		if rt.Pages != nil {
			r.Group(func(pr chi.Router) {
				pr.Use(guard.PageGuard)
				pr.Get("/", rt.Pages.Home)
				pr.Get("/overview", rt.Pages.Overview)
				pr.With(guard.RequireGate(access.CollectorOnly)).Get("/cases", rt.Pages.CaseList)
				pr.With(guard.RequireGate(access.AdminOnly)).Get("/admin", rt.Pages.Admin)
				pr.Get("/ready-to-close", rt.Pages.ReadyToClose)
				pr.Get("/cases/{id}", rt.Pages.CaseDetail)
				pr.Get("/cases/{id}/close", rt.Pages.CloseCase)
			})
		}

		r.Route("/api", func(ar chi.Router) {
			if rt.Auth != nil {
				signIn := http.Handler(http.HandlerFunc(rt.Auth.SignIn))
				if rt.SignInLimiter != nil {
					signIn = rt.SignInLimiter.Middleware(signIn)
				}
				ar.Method(http.MethodPost, "/auth/sign-in", signIn)
				ar.Get("/session", rt.Auth.Session)
			}

			ar.Group(func(sr chi.Router) {
				sr.Use(guard.RequireSession)

				if rt.Auth != nil {
					sr.Post("/auth/sign-out", rt.Auth.SignOut)
				}

				if rt.Cases != nil {
					sr.Route("/cases", func(cr chi.Router) {
						cr.With(guard.RequireGate(access.CollectorOnly)).Get("/", rt.Cases.ListCases)
						cr.With(guard.RequireGate(access.TehsildarOnly)).Post("/", rt.Cases.CreateCase)
						cr.Get("/pending", rt.Cases.PendingCases)
						cr.Get("/ready-to-close", rt.Cases.ReadyToClose)
						cr.Get("/stats", rt.Cases.Stats)

						cr.Route("/{id}", func(ir chi.Router) {
							ir.Get("/", rt.Cases.GetCase)
							ir.Get("/workflow/status", rt.Cases.GetWorkflowStatus)
							ir.Put("/workflow", rt.Cases.SubmitWorkflowAction)
							ir.Post("/documents", rt.Cases.UploadDocuments)
							ir.Post("/close", rt.Cases.CloseCase)
							ir.Get("/pdf", rt.Cases.CasePDF)
							ir.Get("/final-pdf", rt.Cases.FinalPDF)
						})
					})
					sr.Get("/workflow/stages", rt.Cases.WorkflowStages)
					sr.Get("/documents/types", rt.Cases.DocumentTypes)
				}

				if rt.Search != nil {
					sr.Get("/thana-incharge", rt.Search.SearchThanaIncharge)
				}

				sr.Group(func(adm chi.Router) {
					adm.Use(guard.RequireGate(access.AdminOnly))

					if rt.Admin != nil {
						adm.Route("/admin/users", func(ur chi.Router) {
							ur.Get("/", rt.Admin.ListUsers)
							ur.Post("/", rt.Admin.CreateUser)
							ur.Put("/{id}", rt.Admin.UpdateUser)
							ur.Post("/{id}/ban", rt.Admin.BanUser)
							ur.Post("/{id}/password", rt.Admin.SetUserPassword)
							ur.Get("/{id}/sessions", rt.Admin.ListUserSessions)
						})
					}
					if rt.Audit != nil {
						adm.Get("/audit/cases/{id}", rt.Audit.CaseTrail)
					}
				})
			})
		})
	})
}
