package backend

import (
	"context"
	"encoding/json"

	"github.com/diewo77/go-bloodbank/internal/models"
)

// EmergencyInput is the body of POST /emergency/create.
type EmergencyInput struct {
	BloodGroup    models.BloodGroup `json:"bloodGroup"`
	Quantity      int               `json:"quantity"`
	Urgency       models.Urgency    `json:"urgency"`
	Reason        string            `json:"reason"`
	Location      string            `json:"location"`
	City          string            `json:"city"`
	ContactPerson string            `json:"contactPerson"`
	ContactPhone  string            `json:"contactPhone"`
}

type emergencyListResponse struct {
	Envelope
	EmergencyRequests []models.EmergencyRequest `json:"emergencyRequests"`
}

type emergencyCreatedResponse struct {
	Envelope
	EmergencyRequest json.RawMessage `json:"emergencyRequest"`
	Request          json.RawMessage `json:"request"`
}

type statsResponse struct {
	Envelope
	Stats models.Counts `json:"stats"`
}

// CreateEmergency issues an emergency request; the backend broadcasts it to
// eligible donors.
func (c *Client) CreateEmergency(ctx context.Context, in EmergencyInput) (*Created[models.EmergencyRequest], error) {
	var resp emergencyCreatedResponse
	if err := c.post(ctx, "create-emergency", "/emergency/create", in, &resp); err != nil {
		return nil, err
	}
	return &Created[models.EmergencyRequest]{
		Item:    decodeItem[models.EmergencyRequest](resp.EmergencyRequest, resp.Request),
		Message: resp.Message,
	}, nil
}

// OrganisationEmergencies lists the signed-in organisation's emergencies.
func (c *Client) OrganisationEmergencies(ctx context.Context) ([]models.EmergencyRequest, error) {
	return c.emergencies(ctx, "organisation-emergencies", "/emergency/organisation")
}

// AllEmergencies lists every emergency request (admin).
func (c *Client) AllEmergencies(ctx context.Context) ([]models.EmergencyRequest, error) {
	return c.emergencies(ctx, "all-emergencies", "/emergency/all")
}

// DonorEmergencies lists active emergencies the signed-in donor can answer.
func (c *Client) DonorEmergencies(ctx context.Context) ([]models.EmergencyRequest, error) {
	return c.emergencies(ctx, "donor-emergencies", "/emergency/donor")
}

func (c *Client) emergencies(ctx context.Context, op, path string) ([]models.EmergencyRequest, error) {
	var resp emergencyListResponse
	if err := c.get(ctx, op, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.EmergencyRequests, nil
}

// EmergencyStats returns emergency counts by status.
func (c *Client) EmergencyStats(ctx context.Context) (models.Counts, error) {
	var resp statsResponse
	if err := c.get(ctx, "emergency-stats", "/emergency/stats", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Stats, nil
}

// FulfilEmergency marks an emergency as met.
func (c *Client) FulfilEmergency(ctx context.Context, id, notes string) (string, error) {
	var resp Message
	if err := c.put(ctx, "fulfil-emergency", "/emergency/"+escape(id)+"/fulfill", map[string]string{"notes": notes}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// UpdateEmergencyStatus cancels or blocks an emergency.
func (c *Client) UpdateEmergencyStatus(ctx context.Context, id string, status models.Status, notes string) (string, error) {
	var resp Message
	body := map[string]string{"status": string(status), "notes": notes}
	if err := c.put(ctx, "emergency-status", "/emergency/"+escape(id)+"/status", body, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// DeleteEmergency removes an emergency request.
func (c *Client) DeleteEmergency(ctx context.Context, id string) (string, error) {
	var resp Message
	if err := c.del(ctx, "delete-emergency", "/emergency/"+escape(id), &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
