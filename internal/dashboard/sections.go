package dashboard

import (
	"context"
	"log/slog"

	"github.com/diewo77/go-bloodbank/internal/backend"
	"github.com/diewo77/go-bloodbank/internal/models"
	"github.com/diewo77/go-bloodbank/internal/stats"
	"github.com/diewo77/go-bloodbank/internal/workflow"
)

// Backend is the subset of *backend.Client the dashboards read from.
type Backend interface {
	FilterInventory(ctx context.Context, f backend.InventoryFilter) ([]models.InventoryRecord, error)
	Inventory(ctx context.Context) ([]models.InventoryRecord, error)
	Organisations(ctx context.Context) ([]models.Organisation, error)
	HospitalOrganisations(ctx context.Context) ([]models.Organisation, error)
	HospitalStats(ctx context.Context) ([]backend.HospitalStat, error)
	HospitalRequests(ctx context.Context) ([]models.BloodRequest, *models.RequestSummary, error)
	OrganisationRequests(ctx context.Context) ([]models.BloodRequest, error)
	DonorDonationRequests(ctx context.Context) ([]models.DonationRequest, error)
	OrganisationDonationRequests(ctx context.Context) ([]models.DonationRequest, error)
	DonationOrganisations(ctx context.Context) ([]models.Organisation, error)
	RecentOrganisations(ctx context.Context) ([]models.Organisation, error)
	OrganisationEmergencies(ctx context.Context) ([]models.EmergencyRequest, error)
	AllEmergencies(ctx context.Context) ([]models.EmergencyRequest, error)
	DonorEmergencies(ctx context.Context) ([]models.EmergencyRequest, error)
	EmergencyStats(ctx context.Context) (models.Counts, error)
	OrganisationCamps(ctx context.Context) ([]models.Camp, error)
	PendingCamps(ctx context.Context) ([]models.Camp, error)
	CampStats(ctx context.Context) (models.Counts, error)
	AdminAccounts(ctx context.Context, list backend.AccountList) ([]models.AdminListEntry, error)
}

var _ Backend = (*backend.Client)(nil)

// DonorDashboard is what a donor sees.
type DonorDashboard struct {
	Stats                   *stats.DonorStats                  `json:"stats,omitempty"`
	Badges                  []stats.Badge                      `json:"badges"`
	History                 Section[[]models.InventoryRecord]  `json:"history"`
	Requests                Section[[]models.DonationRequest]  `json:"requests"`
	PendingRequests         int                                `json:"pendingRequests"`
	Organisations           Section[[]models.Organisation]     `json:"organisations"`
	RecentOrganisations     Section[[]models.Organisation]     `json:"recentOrganisations"`
	Emergencies             Section[[]models.EmergencyRequest] `json:"emergencies"`
	RequestingOrganisations []models.Organisation              `json:"requestingOrganisations"`
}

func (b *Builder) donor(r *runner, api Backend, a *models.Donor, d *Dashboard) func() {
	dd := &DonorDashboard{Badges: []stats.Badge{}, RequestingOrganisations: []models.Organisation{}}
	d.Donor = dd
	fetch(r, &dd.History, func(ctx context.Context) ([]models.InventoryRecord, error) {
		return api.FilterInventory(ctx, backend.InventoryFilter{InventoryType: models.InventoryIn, Donor: a.ID})
	})
	fetch(r, &dd.Requests, api.DonorDonationRequests)
	fetch(r, &dd.Organisations, api.DonationOrganisations)
	fetch(r, &dd.RecentOrganisations, api.RecentOrganisations)
	fetch(r, &dd.Emergencies, api.DonorEmergencies)

	return func() {
		if dd.History.OK() {
			st := stats.ComputeDonorStats(dd.History.Data, d.GeneratedAt)
			dd.Stats = &st
			dd.Badges = stats.Badges(st)
			dd.RequestingOrganisations = append(dd.RequestingOrganisations, stats.RequestingOrganisations(dd.Organisations.Data, st.BloodGroups)...)
			newestFirst(dd.History.Data, func(rec models.InventoryRecord) models.Timestamp { return rec.CreatedAt })
		}
		reqs := dd.Requests.Data
		dd.PendingRequests = stats.CountByStatus(stats.Statuses(reqs, donationStatus)...)[models.StatusPending]
		newestFirst(reqs, func(dr models.DonationRequest) models.Timestamp {
			if dr.CreatedAt.Valid {
				return dr.CreatedAt
			}
			return dr.RequestDate
		})
		if len(reqs) > RecentDonationRequests {
			dd.Requests.Data = reqs[:RecentDonationRequests]
		}
	}
}

// HospitalDashboard is what a hospital sees.
type HospitalDashboard struct {
	Organisations    Section[[]models.Organisation]    `json:"organisations"`
	Received         Section[[]models.InventoryRecord] `json:"received"`
	ReceivedMl       int                               `json:"receivedMl"`
	Requests         Section[[]models.BloodRequest]    `json:"requests"`
	PendingRequests  int                               `json:"pendingRequests"`
	Response         stats.ResponseSummary             `json:"response"`
	BackendSummary   *models.RequestSummary            `json:"backendSummary,omitempty"`
	AllOrganisations Section[[]models.Organisation]    `json:"allOrganisations"`
}

func (b *Builder) hospital(r *runner, api Backend, a *models.Hospital, d *Dashboard) func() {
	hd := &HospitalDashboard{}
	d.Hospital = hd
	var summary *models.RequestSummary
	fetch(r, &hd.Organisations, api.HospitalOrganisations)
	fetch(r, &hd.Received, func(ctx context.Context) ([]models.InventoryRecord, error) {
		return api.FilterInventory(ctx, backend.InventoryFilter{InventoryType: models.InventoryOut, Hospital: a.ID})
	})
	fetch(r, &hd.Requests, func(ctx context.Context) ([]models.BloodRequest, error) {
		reqs, s, err := api.HospitalRequests(ctx)
		summary = s
		return reqs, err
	})
	fetch(r, &hd.AllOrganisations, api.Organisations)

	return func() {
		for _, rec := range hd.Received.Data {
			if rec.Quantity > 0 {
				hd.ReceivedMl += rec.Quantity
			}
		}
		newestFirst(hd.Received.Data, func(rec models.InventoryRecord) models.Timestamp { return rec.CreatedAt })
		newestFirst(hd.Requests.Data, func(br models.BloodRequest) models.Timestamp { return br.CreatedAt })
		hd.PendingRequests = stats.CountByStatus(stats.Statuses(hd.Requests.Data, bloodStatus)...)[models.StatusPending]
		hd.Response = stats.SummarizeBloodRequests(hd.Requests.Data)
		hd.BackendSummary = summary
	}
}

// OrganisationDashboard is what an organisation sees.
type OrganisationDashboard struct {
	Stock            Section[[]stats.StockLevel]        `json:"stock"`
	LowStock         []stats.StockLevel                 `json:"lowStock"`
	BloodRequests    Section[[]models.BloodRequest]     `json:"bloodRequests"`
	DonationRequests Section[[]models.DonationRequest]  `json:"donationRequests"`
	Emergencies      Section[[]models.EmergencyRequest] `json:"emergencies"`
	Camps            Section[[]models.Camp]             `json:"camps"`
	Hospitals        Section[[]backend.HospitalStat]    `json:"hospitals"`
	Pending          map[workflow.Kind]int              `json:"pending"`
	Response         stats.ResponseSummary              `json:"response"`
	DonationResponse stats.ResponseSummary              `json:"donationResponse"`
}

func (b *Builder) organisation(r *runner, api Backend, a *models.Organisation, d *Dashboard) func() {
	od := &OrganisationDashboard{LowStock: []stats.StockLevel{}}
	d.Organisation = od
	fetch(r, &od.Stock, func(ctx context.Context) ([]stats.StockLevel, error) {
		records, err := api.Inventory(ctx)
		if err != nil {
			return nil, err
		}
		return stats.StockLevels(records, b.thresholds(ctx, a.ID)), nil
	})
	fetch(r, &od.BloodRequests, api.OrganisationRequests)
	fetch(r, &od.DonationRequests, api.OrganisationDonationRequests)
	fetch(r, &od.Emergencies, api.OrganisationEmergencies)
	fetch(r, &od.Camps, api.OrganisationCamps)
	fetch(r, &od.Hospitals, api.HospitalStats)

	return func() {
		od.LowStock = append(od.LowStock, stats.LowOnly(od.Stock.Data)...)
		if b.Broadcasts != nil {
			b.Broadcasts.Seed(od.Emergencies.Data)
		}
		newestFirst(od.BloodRequests.Data, func(br models.BloodRequest) models.Timestamp { return br.CreatedAt })
		newestFirst(od.DonationRequests.Data, func(dr models.DonationRequest) models.Timestamp { return dr.CreatedAt })
		od.Pending = map[workflow.Kind]int{
			workflow.BloodRequest:     stats.CountByStatus(stats.Statuses(od.BloodRequests.Data, bloodStatus)...)[models.StatusPending],
			workflow.DonationRequest:  stats.CountByStatus(stats.Statuses(od.DonationRequests.Data, donationStatus)...)[models.StatusPending],
			workflow.EmergencyRequest: stats.CountByStatus(stats.Statuses(od.Emergencies.Data, emergencyStatus)...)[models.StatusActive],
			workflow.Camp:             stats.CountByStatus(stats.Statuses(od.Camps.Data, campStatus)...)[models.StatusPending],
		}
		od.Response = stats.SummarizeBloodRequests(od.BloodRequests.Data)
		od.DonationResponse = stats.SummarizeDonationRequests(od.DonationRequests.Data)
	}
}

// thresholds falls back to "no minimum" when the local store is unavailable.
func (b *Builder) thresholds(ctx context.Context, orgID string) stats.Thresholds {
	if b.Thresholds == nil {
		return nil
	}
	th, err := b.Thresholds.For(ctx, orgID)
	if err != nil {
		slog.WarnContext(ctx, "thresholds unavailable, low-stock flags disabled", "organisation", orgID, "err", err)
		return nil
	}
	return th
}

// AdminDashboard is what an admin sees.
type AdminDashboard struct {
	Donors         Section[[]models.AdminListEntry]   `json:"donors"`
	Hospitals      Section[[]models.AdminListEntry]   `json:"hospitals"`
	Organisations  Section[[]models.AdminListEntry]   `json:"organisations"`
	BlockedCount   int                                `json:"blockedCount"`
	PendingCamps   Section[[]models.Camp]             `json:"pendingCamps"`
	CampStats      Section[models.Counts]             `json:"campStats"`
	Emergencies    Section[[]models.EmergencyRequest] `json:"emergencies"`
	EmergencyStats Section[models.Counts]             `json:"emergencyStats"`
}

func (b *Builder) admin(r *runner, api Backend, d *Dashboard) func() {
	ad := &AdminDashboard{}
	d.Admin = ad
	lists := []struct {
		list backend.AccountList
		sec  *Section[[]models.AdminListEntry]
	}{
		{backend.DonorList, &ad.Donors},
		{backend.HospitalList, &ad.Hospitals},
		{backend.OrganisationList, &ad.Organisations},
	}
	for _, l := range lists {
		fetch(r, l.sec, func(ctx context.Context) ([]models.AdminListEntry, error) {
			return api.AdminAccounts(ctx, l.list)
		})
	}
	fetch(r, &ad.PendingCamps, api.PendingCamps)
	fetch(r, &ad.CampStats, api.CampStats)
	fetch(r, &ad.Emergencies, api.AllEmergencies)
	fetch(r, &ad.EmergencyStats, api.EmergencyStats)

	return func() {
		for _, l := range lists {
			for _, e := range l.sec.Data {
				if e.Blocked() {
					ad.BlockedCount++
				}
			}
		}
		newestFirst(ad.Emergencies.Data, func(e models.EmergencyRequest) models.Timestamp { return e.CreatedAt })
	}
}

func bloodStatus(r models.BloodRequest) models.Status       { return r.Status }
func donationStatus(r models.DonationRequest) models.Status { return r.Status }
func emergencyStatus(r models.EmergencyRequest) models.Status {
	return r.Status
}
func campStatus(c models.Camp) models.Status { return c.Status }
