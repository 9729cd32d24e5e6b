package backend

import (
	"context"
	"encoding/json"

	"github.com/diewo77/go-bloodbank/internal/models"
)

// BloodRequestInput is the body of POST /requests.
type BloodRequestInput struct {
	OrganisationID string            `json:"organisationId"`
	BloodGroup     models.BloodGroup `json:"bloodGroup"`
	Quantity       int               `json:"quantity"`
	Reason         string            `json:"reason,omitempty"`
}

// DonationRequestInput is the body of POST /donation-requests/create.
type DonationRequestInput struct {
	OrganisationID string            `json:"organisationId"`
	BloodGroup     models.BloodGroup `json:"bloodGroup"`
	Quantity       int               `json:"quantity,omitempty"`
	Message        string            `json:"message,omitempty"`
}

// Created is the answer to a request creation. AutoRejected is set when the
// backend refused the request for lack of stock.
type Created[T any] struct {
	Item         T
	AutoRejected bool
	Message      string
}

type createdResponse struct {
	Envelope
	AutoRejected    bool            `json:"autoRejected"`
	Request         json.RawMessage `json:"request"`
	DonationRequest json.RawMessage `json:"donationRequest"`
}

type requestsResponse struct {
	Envelope
	Requests []models.BloodRequest `json:"requests"`
	Summary  *models.RequestSummary `json:"summary"`
}

type donationRequestsResponse struct {
	Envelope
	DonationRequests []models.DonationRequest `json:"donationRequests"`
}

type recentOrganisationsResponse struct {
	Envelope
	RecentOrganisations []models.Organisation `json:"recentOrganisations"`
}

func decodeItem[T any](raws ...json.RawMessage) T {
	var v T
	for _, raw := range raws {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		if err := json.Unmarshal(raw, &v); err == nil {
			return v
		}
	}
	return v
}

// CreateBloodRequest sends a hospital's request to an organisation.
func (c *Client) CreateBloodRequest(ctx context.Context, in BloodRequestInput) (*Created[models.BloodRequest], error) {
	var resp createdResponse
	if err := c.post(ctx, "create-request", "/requests", in, &resp); err != nil {
		return nil, err
	}
	item := decodeItem[models.BloodRequest](resp.Request)
	return &Created[models.BloodRequest]{
		Item:         item,
		AutoRejected: resp.AutoRejected || item.AutoRejected,
		Message:      resp.Message,
	}, nil
}

// HospitalRequests lists the signed-in hospital's requests with the
// backend's response-time summary.
func (c *Client) HospitalRequests(ctx context.Context) ([]models.BloodRequest, *models.RequestSummary, error) {
	var resp requestsResponse
	if err := c.get(ctx, "hospital-requests", "/requests/hospital", nil, &resp); err != nil {
		return nil, nil, err
	}
	return resp.Requests, resp.Summary, nil
}

// OrganisationRequests lists blood requests addressed to the signed-in organisation.
func (c *Client) OrganisationRequests(ctx context.Context) ([]models.BloodRequest, error) {
	var resp requestsResponse
	if err := c.get(ctx, "organisation-requests", "/requests/organisation", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Requests, nil
}

// ApproveBloodRequest approves a pending blood request.
func (c *Client) ApproveBloodRequest(ctx context.Context, id string) (string, error) {
	var resp Message
	if err := c.post(ctx, "approve-request", "/requests/"+escape(id)+"/approve", nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// RejectBloodRequest rejects a pending blood request with a reason.
func (c *Client) RejectBloodRequest(ctx context.Context, id, reason string) (string, error) {
	var resp Message
	if err := c.post(ctx, "reject-request", "/requests/"+escape(id)+"/reject", map[string]string{"reason": reason}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// FulfilBloodRequest marks an approved request as received by the hospital.
func (c *Client) FulfilBloodRequest(ctx context.Context, id string) (string, error) {
	var resp Message
	if err := c.post(ctx, "fulfil-request", "/requests/"+escape(id)+"/fulfilled", nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// CreateDonationRequest sends a donor's offer to an organisation.
func (c *Client) CreateDonationRequest(ctx context.Context, in DonationRequestInput) (*Created[models.DonationRequest], error) {
	var resp createdResponse
	if err := c.post(ctx, "create-donation-request", "/donation-requests/create", in, &resp); err != nil {
		return nil, err
	}
	item := decodeItem[models.DonationRequest](resp.DonationRequest, resp.Request)
	return &Created[models.DonationRequest]{
		Item:         item,
		AutoRejected: resp.AutoRejected || item.AutoRejected,
		Message:      resp.Message,
	}, nil
}

// DonorDonationRequests lists the signed-in donor's requests, newest first.
func (c *Client) DonorDonationRequests(ctx context.Context) ([]models.DonationRequest, error) {
	var resp donationRequestsResponse
	if err := c.get(ctx, "donor-donation-requests", "/donation-requests/donor", nil, &resp); err != nil {
		return nil, err
	}
	return resp.DonationRequests, nil
}

// OrganisationDonationRequests lists donation requests addressed to the signed-in organisation.
func (c *Client) OrganisationDonationRequests(ctx context.Context) ([]models.DonationRequest, error) {
	var resp donationRequestsResponse
	if err := c.get(ctx, "organisation-donation-requests", "/donation-requests/organisation", nil, &resp); err != nil {
		return nil, err
	}
	return resp.DonationRequests, nil
}

// UpdateDonationRequestStatus moves a donation request to status.
func (c *Client) UpdateDonationRequestStatus(ctx context.Context, id string, status models.Status, notes string) (string, error) {
	var resp Message
	body := map[string]string{"status": string(status), "responseNotes": notes}
	if err := c.put(ctx, "donation-request-status", "/donation-requests/"+escape(id)+"/status", body, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// DonationOrganisations lists organisations accepting donations.
func (c *Client) DonationOrganisations(ctx context.Context) ([]models.Organisation, error) {
	var resp organisationsResponse
	if err := c.get(ctx, "donation-organisations", "/donation-requests/organisations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Organisations, nil
}

// RecentOrganisations lists organisations the signed-in donor gave to lately.
func (c *Client) RecentOrganisations(ctx context.Context) ([]models.Organisation, error) {
	var resp recentOrganisationsResponse
	if err := c.get(ctx, "recent-organisations", "/donation-requests/recent-organisations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.RecentOrganisations, nil
}
