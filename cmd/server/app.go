package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/diewo77/go-bloodbank/auth"
	"github.com/diewo77/go-bloodbank/gate"
	"github.com/diewo77/go-bloodbank/httpx"
	"github.com/diewo77/go-bloodbank/internal/handlers"
	"github.com/diewo77/go-bloodbank/internal/live"
	"github.com/diewo77/go-bloodbank/internal/models"
	"github.com/diewo77/go-bloodbank/internal/policy"
	"github.com/diewo77/go-bloodbank/internal/workflow"
	"github.com/diewo77/go-bloodbank/view"
)

// RouterConfig carries the handlers and the gate the routes are built from.
type RouterConfig struct {
	AuthGate       *policy.AuthGate
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Dashboard      *handlers.DashboardHandler
	Requests       *handlers.RequestHandler
	Inventory      *handlers.InventoryHandler
	Admin          *handlers.AdminHandler
	Live           *live.Hub
	AllowedOrigins []string
}

// App is the main application handler that sets up all routes.
type App struct {
	mux       *chi.Mux
	routerCfg *RouterConfig
}

// NewApp creates a new application with all routes configured.
func NewApp(routerCfg *RouterConfig) *App {
	app := &App{mux: chi.NewRouter(), routerCfg: routerCfg}
	// Expose minimal permission resolvers to the view layer so templates can show/hide UI based on permissions
	view.SetCanProfileResolver(routerCfg.AuthGate.CanRequest)
	view.SetIsAdminResolver(func(r *http.Request) bool {
		p, ok := auth.PrincipalFromContext(r.Context())
		return ok && p.Role == models.RoleAdmin
	})
	app.setupRoutes()
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

func (a *App) setupRoutes() {
	rc := a.routerCfg
	m := a.mux

	m.Use(middleware.RequestID)
	m.Use(middleware.RealIP)
	m.Use(middleware.Logger)
	m.Use(recoverer)
	m.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rc.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	m.Use(auth.Middleware)

	// ─────────────────────────────────────────────────────────────────────────
	// Public routes (no auth required)
	// ─────────────────────────────────────────────────────────────────────────
	ah := rc.Auth
	m.Get("/health", rc.Health.Health)
	m.Get("/healthz", rc.Health.Ready)
	m.Get("/", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.PrincipalFromContext(r.Context()); ok {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
	m.Get("/login", ah.Login)
	m.Post("/login", ah.Login)
	m.Post("/register", ah.Register)
	m.Get("/verify-email/{token}", ah.VerifyEmail)
	m.Post("/forgot-password", ah.ForgotPassword)
	m.Post("/reset-password", ah.ResetPassword)

	// ─────────────────────────────────────────────────────────────────────────
	// Authenticated routes. Ownership and workflow rules are checked by the
	// services; the middleware only filters on role permissions.
	// ─────────────────────────────────────────────────────────────────────────
	m.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		ag := rc.AuthGate
		need := func(resource string, action gate.Action) func(http.Handler) http.Handler {
			return ag.RequirePermission(resource, action)
		}

		r.Post("/logout", ah.Logout)
		r.Get("/logout", ah.Logout)
		r.Get("/me", ah.Me)
		r.With(need(policy.ResDashboard, gate.ActionView)).Get("/dashboard", rc.Dashboard.Show)
		r.With(need(policy.ResDashboard, gate.ActionView)).Handle("/live", rc.Live)

		ih := rc.Inventory
		r.With(need(policy.ResInventory, gate.ActionList)).Get("/inventory/stock", ih.Stock)
		r.With(need(policy.ResInventory, gate.ActionCreate)).Post("/inventory", ih.Record)
		r.With(need(policy.ResThreshold, gate.ActionView)).Get("/thresholds", ih.GetThresholds)
		r.With(need(policy.ResThreshold, gate.ActionUpdate)).Put("/thresholds", ih.UpdateThresholds)

		rh := rc.Requests
		r.With(need(policy.ResBloodRequest, gate.ActionCreate)).Post("/requests", rh.CreateBloodRequest)
		r.Post("/requests/{id}/{action}", rh.Transition(workflow.BloodRequest))

		r.With(need(policy.ResDonationRequest, gate.ActionCreate)).Post("/donation-requests", rh.CreateDonationRequest)
		r.Post("/donation-requests/{id}/{action}", rh.Transition(workflow.DonationRequest))

		r.With(need(policy.ResEmergencyRequest, gate.ActionCreate)).Post("/emergencies", rh.CreateEmergency)
		r.Post("/emergencies/{id}/{action}", rh.Transition(workflow.EmergencyRequest))
		r.Delete("/emergencies/{id}", rh.Delete(workflow.EmergencyRequest))

		r.With(need(policy.ResCamp, gate.ActionCreate)).Post("/camps", rh.CreateCamp)
		r.Put("/camps/{id}", rh.UpdateCamp)
		r.Post("/camps/{id}/{action}", rh.Transition(workflow.Camp))
		r.Delete("/camps/{id}", rh.Delete(workflow.Camp))

		adh := rc.Admin
		r.With(need(policy.ResAudit, gate.ActionList)).Get("/audit", adh.AuditLog)

		// ─────────────────────────────────────────────────────────────────────
		// Admin routes
		// ─────────────────────────────────────────────────────────────────────
		r.Route("/admin", func(r chi.Router) {
			r.Use(ag.RequireAdmin())
			r.Get("/accounts", adh.Accounts)
			r.Post("/accounts/{id}/block-toggle", adh.ToggleBlocked)
			r.Delete("/{kind}/{id}", adh.Delete)
		})
	})

	m.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	})
	m.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})
}

// recoverer turns a panic into a JSON 500 and logs it with the request id.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				middleware.PrintPrettyStack(rec)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
