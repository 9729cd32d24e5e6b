package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/diewo77/go-bloodbank/httpx"
	"github.com/diewo77/go-bloodbank/internal/backend"
	"github.com/diewo77/go-bloodbank/internal/services"
)

// AdminHandler moderates accounts and exposes the audit trail.
type AdminHandler struct {
	*Base
	Admin *services.AdminService
	Audit *services.AuditService
}

func NewAdminHandler(b *Base, admin *services.AdminService, audit *services.AuditService) *AdminHandler {
	return &AdminHandler{Base: b, Admin: admin, Audit: audit}
}

func listParam(w http.ResponseWriter, raw string) (backend.AccountList, bool) {
	list, ok := backend.ParseAccountList(raw)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "unknown_account_kind", "Unknown account kind "+raw+".")
	}
	return list, ok
}

// Accounts lists donors, hospitals or organisations (?kind=).
func (h *AdminHandler) Accounts(w http.ResponseWriter, r *http.Request) {
	a, ok := h.actor(w, r)
	if !ok {
		return
	}
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = string(backend.DonorList)
	}
	list, ok := listParam(w, kind)
	if !ok {
		return
	}
	entries, err := h.Admin.Accounts(r.Context(), a, list)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", map[string]any{"kind": list, "accounts": entries})
}

// ToggleBlocked flips an account between blocked and active.
func (h *AdminHandler) ToggleBlocked(w http.ResponseWriter, r *http.Request) {
	a, ok := h.actor(w, r)
	if !ok {
		return
	}
	blocked, msg, err := h.Admin.ToggleBlocked(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.touched(r)
	httpx.OK(w, http.StatusOK, msg, map[string]any{"blocked": blocked})
}

// Delete removes a donor, hospital or organisation account.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a, ok := h.actor(w, r)
	if !ok {
		return
	}
	list, ok := listParam(w, chi.URLParam(r, "kind"))
	if !ok {
		return
	}
	msg, err := h.Admin.Delete(r.Context(), a, list, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.touched(r)
	httpx.OK(w, http.StatusOK, msg, nil)
}

// AuditLog lists relayed actions, newest first (?entityId=&limit=).
func (h *AdminHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	a, ok := h.actor(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.Audit.List(r.Context(), a, r.URL.Query().Get("entityId"), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", map[string]any{"entries": entries})
}
