package backend

import (
	"context"
	"net/url"
	"strconv"

	"github.com/diewo77/go-bloodbank/internal/models"
)

// InventoryFilter narrows /inventory/get-inventory-hospital.
type InventoryFilter struct {
	InventoryType models.InventoryType `json:"inventoryType,omitempty"`
	Donor         string               `json:"donor,omitempty"`
	Hospital      string               `json:"hospital,omitempty"`
	Organisation  string               `json:"organisation,omitempty"`
}

// DonorDetails accompanies a donor's own "in" record.
type DonorDetails struct {
	FullName    string            `json:"fullName,omitempty"`
	Age         int               `json:"age,omitempty"`
	Gender      string            `json:"gender,omitempty"`
	BloodGroup  models.BloodGroup `json:"bloodGroup,omitempty"`
	Contact     string            `json:"contact,omitempty"`
	City        string            `json:"city,omitempty"`
	Eligibility string            `json:"eligibility,omitempty"`
}

// InventoryInput is the body of /inventory/create-inventory.
type InventoryInput struct {
	Email         string               `json:"email"`
	InventoryType models.InventoryType `json:"inventoryType"`
	BloodGroup    models.BloodGroup    `json:"bloodGroup"`
	Quantity      int                  `json:"quantity,omitempty"`
	Organisation  string               `json:"organisation,omitempty"`
	HospitalID    string               `json:"hospitalId,omitempty"`
	DonorDetails  *DonorDetails        `json:"donorDetails,omitempty"`
}

// HospitalStat is a row of /inventory/hospital-stats: what one connected
// hospital requested and received.
type HospitalStat struct {
	HospitalID        string            `json:"hospitalId"`
	Name              string            `json:"name"`
	Email             string            `json:"email,omitempty"`
	Address           string            `json:"address,omitempty"`
	Contact           string            `json:"contact,omitempty"`
	Website           string            `json:"website,omitempty"`
	TotalRequested    int               `json:"totalRequested"`
	TotalDonated      int               `json:"totalDonated"`
	LastRequestDate   models.Timestamp  `json:"lastRequestDate"`
	LastDonationDate  models.Timestamp  `json:"lastDonationDate"`
	LastDonationGroup models.BloodGroup `json:"lastDonationGroup,omitempty"`
}

type inventoryResponse struct {
	Envelope
	Inventory []models.InventoryRecord `json:"inventory"`
}

type stockSummaryResponse struct {
	Envelope
	Rows []models.StockRow `json:"rows"`
}

type organisationsResponse struct {
	Envelope
	Organisations []models.Organisation `json:"organisations"`
}

type hospitalsResponse struct {
	Envelope
	Hospitals []models.Hospital `json:"hospitals"`
}

type donorsResponse struct {
	Envelope
	Donors []models.Donor `json:"donors"`
}

type hospitalStatsResponse struct {
	Envelope
	Rows []HospitalStat `json:"rows"`
}

type historyResponse struct {
	Envelope
	Records []models.InventoryRecord `json:"records"`
}

// Inventory lists the ledger of the signed-in organisation.
func (c *Client) Inventory(ctx context.Context) ([]models.InventoryRecord, error) {
	var resp inventoryResponse
	if err := c.get(ctx, "get-inventory", "/inventory/get-inventory", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Inventory, nil
}

// FilterInventory lists ledger entries matching f, for instance a donor's
// donations or a hospital's receipts.
func (c *Client) FilterInventory(ctx context.Context, f InventoryFilter) ([]models.InventoryRecord, error) {
	var resp inventoryResponse
	body := map[string]any{"filters": f}
	if err := c.post(ctx, "get-inventory-hospital", "/inventory/get-inventory-hospital", body, &resp); err != nil {
		return nil, err
	}
	return resp.Inventory, nil
}

// CreateInventory appends a ledger entry.
func (c *Client) CreateInventory(ctx context.Context, in InventoryInput) (string, error) {
	var resp Message
	if err := c.post(ctx, "create-inventory", "/inventory/create-inventory", in, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// StockSummary returns the backend's netted stock per group.
func (c *Client) StockSummary(ctx context.Context, lowOnly bool) ([]models.StockRow, error) {
	var resp stockSummaryResponse
	q := url.Values{"lowOnly": {strconv.FormatBool(lowOnly)}}
	if err := c.get(ctx, "stock-summary", "/inventory/stock-summary", q, &resp); err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

// Organisations lists every organisation.
func (c *Client) Organisations(ctx context.Context) ([]models.Organisation, error) {
	var resp organisationsResponse
	if err := c.get(ctx, "all-organisations", "/inventory/all-organisations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Organisations, nil
}

// HospitalOrganisations lists the organisations connected to the signed-in hospital.
func (c *Client) HospitalOrganisations(ctx context.Context) ([]models.Organisation, error) {
	var resp organisationsResponse
	if err := c.get(ctx, "organisation-for-hospital", "/inventory/get-organisation-for-hospital", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Organisations, nil
}

// Hospitals lists every hospital.
func (c *Client) Hospitals(ctx context.Context) ([]models.Hospital, error) {
	var resp hospitalsResponse
	if err := c.get(ctx, "all-hospitals", "/inventory/all-hospitals", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Hospitals, nil
}

// Donors lists the donors who gave to the signed-in organisation.
func (c *Client) Donors(ctx context.Context) ([]models.Donor, error) {
	var resp donorsResponse
	if err := c.get(ctx, "get-donors", "/inventory/get-donors", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Donors, nil
}

// HospitalStats returns per-hospital request and supply totals for the
// signed-in organisation.
func (c *Client) HospitalStats(ctx context.Context) ([]HospitalStat, error) {
	var resp hospitalStatsResponse
	if err := c.get(ctx, "hospital-stats", "/inventory/hospital-stats", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

// HospitalHistory lists what the signed-in organisation supplied to one hospital.
func (c *Client) HospitalHistory(ctx context.Context, hospitalID string) ([]models.InventoryRecord, error) {
	var resp historyResponse
	q := url.Values{"hospitalId": {hospitalID}}
	if err := c.get(ctx, "hospital-donation-history", "/inventory/hospital-donation-history", q, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// ConnectHospital links a hospital to the signed-in organisation.
func (c *Client) ConnectHospital(ctx context.Context, hospitalID string) (string, error) {
	var resp Message
	if err := c.post(ctx, "connect-hospital", "/inventory/connect-hospital", map[string]string{"hospitalId": hospitalID}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
