package handlers

import (
	"net/http"
	"strconv"

	"github.com/diewo77/go-bloodbank/httpx"
	"github.com/diewo77/go-bloodbank/internal/services"
)

type InventoryHandler struct {
	*Base
	Inventory  *services.InventoryService
	Thresholds *services.ThresholdService
}

func NewInventoryHandler(b *Base, inv *services.InventoryService, th *services.ThresholdService) *InventoryHandler {
	return &InventoryHandler{Base: b, Inventory: inv, Thresholds: th}
}

// Stock returns stock per blood group; ?lowOnly=true keeps the groups
// under their threshold.
func (h *InventoryHandler) Stock(w http.ResponseWriter, r *http.Request) {
	a, ok := h.actor(w, r)
	if !ok {
		return
	}
	lowOnly, _ := strconv.ParseBool(r.URL.Query().Get("lowOnly"))
	levels, err := h.Inventory.Stock(r.Context(), a, lowOnly)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", map[string]any{"stock": levels})
}

// Record appends a ledger entry.
func (h *InventoryHandler) Record(w http.ResponseWriter, r *http.Request) {
	a, ok := h.actor(w, r)
	if !ok {
		return
	}
	var f services.InventoryForm
	if !decode(w, r, &f) {
		return
	}
	msg, err := h.Inventory.Record(r.Context(), a, f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.touched(r)
	httpx.OK(w, http.StatusCreated, msg, nil)
}

func (h *InventoryHandler) GetThresholds(w http.ResponseWriter, r *http.Request) {
	a, ok := h.actor(w, r)
	if !ok {
		return
	}
	th, err := h.Thresholds.Get(r.Context(), a)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", map[string]any{"thresholds": th})
}

func (h *InventoryHandler) UpdateThresholds(w http.ResponseWriter, r *http.Request) {
	a, ok := h.actor(w, r)
	if !ok {
		return
	}
	var in struct {
		Thresholds map[string]int `json:"thresholds"`
	}
	if !decode(w, r, &in) {
		return
	}
	th, err := h.Thresholds.Update(r.Context(), a, in.Thresholds)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.touched(r)
	httpx.OK(w, http.StatusOK, "Thresholds updated.", map[string]any{"thresholds": th})
}
