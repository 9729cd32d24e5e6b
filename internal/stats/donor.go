package stats

import (
	"time"

	"github.com/diewo77/go-bloodbank/internal/models"
)

// EligibilityMonths is the wait between two donations.
const EligibilityMonths = 3

// DonorStats summarises a donor's donation history.
type DonorStats struct {
	TotalDonations   int                 `json:"totalDonations"`
	TotalQuantity    int                 `json:"totalQuantity"`
	LastDonationDate *time.Time          `json:"lastDonationDate"`
	NextEligibleDate *time.Time          `json:"nextEligibleDate"`
	IsEligible       bool                `json:"isEligible"`
	BloodGroups      []models.BloodGroup `json:"bloodGroups"`
}

// ComputeDonorStats derives totals, eligibility and groups from a donor's
// history. Records typed "out" are not donations and are skipped; untyped
// records come from donor-scoped endpoints and count. A record with a
// malformed timestamp still counts toward totals but never becomes the last
// donation.
func ComputeDonorStats(history []models.InventoryRecord, now time.Time) DonorStats {
	st := DonorStats{BloodGroups: []models.BloodGroup{}}
	seen := map[models.BloodGroup]bool{}
	for _, r := range history {
		if r.InventoryType == models.InventoryOut {
			continue
		}
		st.TotalDonations++
		if r.Quantity > 0 {
			st.TotalQuantity += r.Quantity
		}
		if r.CreatedAt.Valid && (st.LastDonationDate == nil || r.CreatedAt.After(*st.LastDonationDate)) {
			st.LastDonationDate = r.CreatedAt.Ptr()
		}
		if g, ok := models.NormalizeBloodGroup(string(r.BloodGroup)); ok && !seen[g] {
			seen[g] = true
			st.BloodGroups = append(st.BloodGroups, g)
		}
	}
	if st.LastDonationDate != nil {
		next := AddMonths(*st.LastDonationDate, EligibilityMonths)
		st.NextEligibleDate = &next
	}
	st.IsEligible = st.NextEligibleDate == nil || !now.Before(*st.NextEligibleDate)
	return st
}

// AddMonths adds calendar months, clamping to the last day of the target
// month (Nov 30 + 3 months is Feb 28 or 29, not Mar 2).
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	target := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(target.Year(), target.Month(), t.Location()); d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(y int, m time.Month, loc *time.Location) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, loc).Day()
}

// RequestingOrganisations keeps the organisations whose needed groups share
// at least one group with the donor's. Order is preserved.
func RequestingOrganisations(orgs []models.Organisation, donorGroups []models.BloodGroup) []models.Organisation {
	out := []models.Organisation{}
	if len(donorGroups) == 0 {
		return out
	}
	has := make(map[models.BloodGroup]bool, len(donorGroups))
	for _, g := range donorGroups {
		has[g] = true
	}
	for _, o := range orgs {
		for _, need := range o.NeededBloodGroups {
			if g, ok := models.NormalizeBloodGroup(string(need)); ok && has[g] {
				out = append(out, o)
				break
			}
		}
	}
	return out
}
