package backend

import (
	"context"
	"net/url"
	"strconv"

	"github.com/diewo77/go-bloodbank/internal/models"
)

// CampInput is the body of camp creation and update.
type CampInput struct {
	Name           string              `json:"name"`
	Description    string              `json:"description,omitempty"`
	Date           string              `json:"date"`
	StartTime      string              `json:"startTime"`
	EndTime        string              `json:"endTime"`
	Location       string              `json:"location"`
	City           string              `json:"city"`
	BloodGroups    []models.BloodGroup `json:"bloodGroups"`
	ExpectedDonors int                 `json:"expectedDonors,omitempty"`
	ContactPerson  string              `json:"contactPerson,omitempty"`
	ContactPhone   string              `json:"contactPhone,omitempty"`
	ContactEmail   string              `json:"contactEmail,omitempty"`
	Facilities     []string            `json:"facilities,omitempty"`
	Requirements   []string            `json:"requirements,omitempty"`
}

// CampPage is one page of the admin camp history.
type CampPage struct {
	Camps      []models.Camp     `json:"camps"`
	Pagination models.Pagination `json:"pagination"`
}

type campsResponse struct {
	Envelope
	Camps      []models.Camp     `json:"camps"`
	Pagination models.Pagination `json:"pagination"`
}

// CreateCamp proposes a camp; it starts pending admin approval.
func (c *Client) CreateCamp(ctx context.Context, in CampInput) (string, error) {
	var resp Message
	if err := c.post(ctx, "create-camp", "/camps/create", in, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// UpdateCamp edits a camp's details.
func (c *Client) UpdateCamp(ctx context.Context, id string, in CampInput) (string, error) {
	var resp Message
	if err := c.put(ctx, "update-camp", "/camps/"+escape(id), in, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// DeleteCamp removes a camp.
func (c *Client) DeleteCamp(ctx context.Context, id string) (string, error) {
	var resp Message
	if err := c.del(ctx, "delete-camp", "/camps/"+escape(id), &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// UpdateCampStatus approves, rejects, completes or cancels a camp.
func (c *Client) UpdateCampStatus(ctx context.Context, id string, status models.Status, adminNotes string) (string, error) {
	var resp Message
	body := map[string]string{"status": string(status)}
	if adminNotes != "" {
		body["adminNotes"] = adminNotes
	}
	if err := c.put(ctx, "camp-status", "/camps/"+escape(id)+"/status", body, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// OrganisationCamps lists the signed-in organisation's camps.
func (c *Client) OrganisationCamps(ctx context.Context) ([]models.Camp, error) {
	var resp campsResponse
	if err := c.get(ctx, "organisation-camps", "/camps/organisation", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Camps, nil
}

// PendingCamps lists camps awaiting admin approval.
func (c *Client) PendingCamps(ctx context.Context) ([]models.Camp, error) {
	var resp campsResponse
	if err := c.get(ctx, "pending-camps", "/camps/pending", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Camps, nil
}

// CampStats returns camp counts (total, pending, approved, upcoming).
func (c *Client) CampStats(ctx context.Context) (models.Counts, error) {
	var resp statsResponse
	if err := c.get(ctx, "camp-stats", "/camps/stats", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Stats, nil
}

// AllCamps pages through every camp, optionally filtered by status.
func (c *Client) AllCamps(ctx context.Context, page int, status models.Status) (*CampPage, error) {
	if page < 1 {
		page = 1
	}
	q := url.Values{"page": {strconv.Itoa(page)}, "status": {string(status)}}
	var resp campsResponse
	if err := c.get(ctx, "all-camps", "/camps/admin/all", q, &resp); err != nil {
		return nil, err
	}
	return &CampPage{Camps: resp.Camps, Pagination: resp.Pagination}, nil
}
