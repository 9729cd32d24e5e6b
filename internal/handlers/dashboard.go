package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"

	"gorm.io/gorm"

	"github.com/diewo77/go-bloodbank/auth"
	"github.com/diewo77/go-bloodbank/httpx"
	"github.com/diewo77/go-bloodbank/internal/dashboard"
	"github.com/diewo77/go-bloodbank/view"
)

type DashboardHandler struct {
	*Base
	Builder *dashboard.Builder
}

func NewDashboardHandler(b *Base, builder *dashboard.Builder) *DashboardHandler {
	return &DashboardHandler{Base: b, Builder: builder}
}

// Show builds the signed-in account's dashboard. Browsers get the page,
// API clients the JSON the live stream also pushes.
func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	a, ok := h.actor(w, r)
	if !ok {
		return
	}
	acct, err := a.API.CurrentUser(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := h.Builder.Build(r.Context(), a.API, acct)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if auth.WantsJSON(r) {
		httpx.OK(w, http.StatusOK, "", map[string]any{"dashboard": d})
		return
	}
	p, _ := auth.PrincipalFromContext(r.Context())
	if err := view.Render(w, r, "dashboard.html", map[string]any{
		"Dashboard": d,
		"Principal": p,
	}); err != nil {
		slog.ErrorContext(r.Context(), "render dashboard failed", "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

type HealthHandler struct {
	DB *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{DB: db}
}

// Health is a liveness probe.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready also pings the console database.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	var sqlDB *sql.DB
	var err error
	if h.DB != nil {
		sqlDB, err = h.DB.DB()
	}
	if err == nil && sqlDB != nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil || sqlDB == nil {
		slog.WarnContext(r.Context(), "readiness check failed", "err", err)
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok", "db": "ok"})
}
