package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/diewo77/go-bloodbank/httpx"
	"github.com/diewo77/go-bloodbank/internal/services"
	"github.com/diewo77/go-bloodbank/internal/workflow"
)

// RequestHandler covers blood requests, donation requests, emergencies and
// camps: creation, workflow actions and deletion.
type RequestHandler struct {
	*Base
	Requests *services.RequestService
	Now      func() time.Time
}

func NewRequestHandler(b *Base, svc *services.RequestService) *RequestHandler {
	return &RequestHandler{Base: b, Requests: svc, Now: time.Now}
}

func (h *RequestHandler) CreateBloodRequest(w http.ResponseWriter, r *http.Request) {
	a, ok := h.actor(w, r)
	if !ok {
		return
	}
	var f services.BloodRequestForm
	if !decode(w, r, &f) {
		return
	}
	out, err := h.Requests.CreateBloodRequest(r.Context(), a, f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.touched(r)
	httpx.OK(w, http.StatusCreated, out.Message, map[string]any{
		"request":      out.Item,
		"status":       out.Status,
		"autoRejected": out.AutoRejected,
	})
}

func (h *RequestHandler) CreateDonationRequest(w http.ResponseWriter, r *http.Request) {
	a, ok := h.actor(w, r)
	if !ok {
		return
	}
	var f services.DonationRequestForm
	if !decode(w, r, &f) {
		return
	}
	out, err := h.Requests.CreateDonationRequest(r.Context(), a, f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.touched(r)
	httpx.OK(w, http.StatusCreated, out.Message, map[string]any{
		"donationRequest": out.Item,
		"status":          out.Status,
		"autoRejected":    out.AutoRejected,
	})
}

func (h *RequestHandler) CreateEmergency(w http.ResponseWriter, r *http.Request) {
	a, ok := h.actor(w, r)
	if !ok {
		return
	}
	var f services.EmergencyForm
	if !decode(w, r, &f) {
		return
	}
	out, err := h.Requests.CreateEmergency(r.Context(), a, f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.touched(r)
	httpx.OK(w, http.StatusCreated, out.Message, map[string]any{
		"emergencyRequest": out.Item,
		"broadcast":        out.Broadcast,
	})
}

func (h *RequestHandler) CreateCamp(w http.ResponseWriter, r *http.Request) {
	a, ok := h.actor(w, r)
	if !ok {
		return
	}
	var f services.CampForm
	if !decode(w, r, &f) {
		return
	}
	msg, err := h.Requests.CreateCamp(r.Context(), a, f, h.Now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.touched(r)
	httpx.OK(w, http.StatusCreated, msg, nil)
}

func (h *RequestHandler) UpdateCamp(w http.ResponseWriter, r *http.Request) {
	a, ok := h.actor(w, r)
	if !ok {
		return
	}
	var f services.CampForm
	if !decode(w, r, &f) {
		return
	}
	msg, err := h.Requests.UpdateCamp(r.Context(), a, chi.URLParam(r, "id"), f, h.Now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.touched(r)
	httpx.OK(w, http.StatusOK, msg, nil)
}

// Transition returns the handler of POST /<kind>/{id}/{action}.
func (h *RequestHandler) Transition(k workflow.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := h.actor(w, r)
		if !ok {
			return
		}
		action, ok := workflow.ParseAction(chi.URLParam(r, "action"))
		if !ok {
			httpx.JSONError(w, http.StatusNotFound, "unknown_action", "Unknown action "+chi.URLParam(r, "action")+".")
			return
		}
		var in struct {
			Notes  string `json:"notes"`
			Reason string `json:"reason"`
		}
		if !decode(w, r, &in) {
			return
		}
		notes := in.Notes
		if notes == "" {
			notes = in.Reason
		}
		res, err := h.Requests.Transition(r.Context(), a, k, chi.URLParam(r, "id"), action, notes)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.touched(r)
		httpx.OK(w, http.StatusOK, res.Message, map[string]any{"transition": res})
	}
}

// Delete returns the handler of DELETE /<kind>/{id}.
func (h *RequestHandler) Delete(k workflow.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := h.actor(w, r)
		if !ok {
			return
		}
		msg, err := h.Requests.Delete(r.Context(), a, k, chi.URLParam(r, "id"))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.touched(r)
		httpx.OK(w, http.StatusOK, msg, nil)
	}
}
