package stats

import (
	"testing"
	"time"

	"github.com/diewo77/go-bloodbank/internal/models"
)

func ts(s string) models.Timestamp {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return models.NewTimestamp(t)
}

func rec(g models.BloodGroup, typ models.InventoryType, qty int, at models.Timestamp) models.InventoryRecord {
	return models.InventoryRecord{BloodGroup: g, InventoryType: typ, Quantity: qty, CreatedAt: at}
}

func level(t *testing.T, levels []StockLevel, g models.BloodGroup) StockLevel {
	t.Helper()
	for _, l := range levels {
		if l.BloodGroup == g {
			return l
		}
	}
	t.Fatalf("group %s missing from levels", g)
	return StockLevel{}
}

func TestStockLevels_NetsInAgainstOut(t *testing.T) {
	records := []models.InventoryRecord{
		rec(models.APos, models.InventoryIn, 200, ts("2024-01-01T00:00:00Z")),
		rec(models.APos, models.InventoryOut, 50, ts("2024-01-02T00:00:00Z")),
	}
	levels := StockLevels(records, nil)
	if len(levels) != 8 {
		t.Fatalf("expected 8 groups, got %d", len(levels))
	}
	a := level(t, levels, models.APos)
	if a.NetMl != 150 || a.InMl != 200 || a.OutMl != 50 {
		t.Errorf("A+ = %+v, want net 150", a)
	}
	if a.LastUpdated == nil || !a.LastUpdated.Equal(ts("2024-01-02T00:00:00Z").Time) {
		t.Errorf("A+ last updated = %v", a.LastUpdated)
	}
	o := level(t, levels, models.ONeg)
	if o.NetMl != 0 || o.LastUpdated != nil {
		t.Errorf("group without records must be zero, got %+v", o)
	}
}

func TestStockLevels_IgnoresUnusableRecords(t *testing.T) {
	records := []models.InventoryRecord{
		rec("C+", models.InventoryIn, 500, models.Timestamp{}),
		rec(models.BPos, "transfer", 500, models.Timestamp{}),
		rec(models.BPos, models.InventoryIn, -20, models.Timestamp{}),
		rec("b−", models.InventoryIn, 100, models.Timestamp{}),
	}
	levels := StockLevels(records, nil)
	if got := level(t, levels, models.BPos).NetMl; got != 0 {
		t.Errorf("B+ = %d, want 0", got)
	}
	if got := level(t, levels, models.BNeg).NetMl; got != 100 {
		t.Errorf("B- = %d, want 100 (unicode minus normalized)", got)
	}
}

func TestStockLevels_LowFlag(t *testing.T) {
	records := []models.InventoryRecord{
		rec(models.OPos, models.InventoryIn, 400, models.Timestamp{}),
		rec(models.ABPos, models.InventoryIn, 900, models.Timestamp{}),
	}
	levels := StockLevels(records, Thresholds{models.OPos: 500, models.ABPos: 500})
	if !level(t, levels, models.OPos).Low {
		t.Error("O+ at 400 with min 500 should be low")
	}
	if l := level(t, levels, models.ABPos); l.Low || l.Status != StockOK {
		t.Errorf("AB+ should be ok, got %+v", l)
	}
	if level(t, levels, models.ANeg).Low {
		t.Error("group without threshold is never low")
	}
	if low := LowOnly(levels); len(low) != 1 || low[0].BloodGroup != models.OPos {
		t.Errorf("LowOnly = %+v", low)
	}
}

func TestStockFromSummary(t *testing.T) {
	rows := []models.StockRow{
		{BloodGroup: models.APos, Available: 100, Min: 300},
		{BloodGroup: models.APos, Available: 50},
		{BloodGroup: models.ONeg, Available: 700, Min: 200},
	}
	levels := StockFromSummary(rows, Thresholds{models.ONeg: 1000})
	a := level(t, levels, models.APos)
	if a.NetMl != 150 || !a.Low || a.MinMl != 300 {
		t.Errorf("A+ = %+v", a)
	}
	o := level(t, levels, models.ONeg)
	if !o.Low || o.MinMl != 1000 {
		t.Errorf("local threshold must win, got %+v", o)
	}
	if Available(levels, models.BPos) != 0 {
		t.Error("absent group must be zero")
	}
}

func TestComputeDonorStats_Empty(t *testing.T) {
	now := time.Now()
	st := ComputeDonorStats(nil, now)
	if st.TotalDonations != 0 || st.TotalQuantity != 0 {
		t.Errorf("empty history = %+v", st)
	}
	if !st.IsEligible || st.NextEligibleDate != nil || st.LastDonationDate != nil {
		t.Errorf("donor without donations must be eligible with no next date, got %+v", st)
	}
	if len(Badges(st)) != 0 {
		t.Error("no badges expected for empty history")
	}
}

func TestComputeDonorStats_Totals(t *testing.T) {
	history := []models.InventoryRecord{
		rec(models.OPos, models.InventoryIn, 450, ts("2024-01-10T09:00:00Z")),
		rec(models.OPos, "", 350, ts("2024-04-20T09:00:00Z")),
		rec(models.ONeg, models.InventoryIn, 300, models.Timestamp{}),
		rec(models.OPos, models.InventoryOut, 999, ts("2024-06-01T09:00:00Z")),
	}
	now := ts("2024-05-01T00:00:00Z").Time
	st := ComputeDonorStats(history, now)
	if st.TotalDonations != 3 {
		t.Errorf("TotalDonations = %d, want 3", st.TotalDonations)
	}
	if st.TotalQuantity != 1100 {
		t.Errorf("TotalQuantity = %d, want 1100", st.TotalQuantity)
	}
	if st.LastDonationDate == nil || !st.LastDonationDate.Equal(ts("2024-04-20T09:00:00Z").Time) {
		t.Errorf("LastDonationDate = %v", st.LastDonationDate)
	}
	wantNext := ts("2024-07-20T09:00:00Z").Time
	if st.NextEligibleDate == nil || !st.NextEligibleDate.Equal(wantNext) {
		t.Errorf("NextEligibleDate = %v, want %v", st.NextEligibleDate, wantNext)
	}
	if st.IsEligible {
		t.Error("donor inside the window must not be eligible")
	}
	if len(st.BloodGroups) != 2 || st.BloodGroups[0] != models.OPos || st.BloodGroups[1] != models.ONeg {
		t.Errorf("BloodGroups = %v", st.BloodGroups)
	}
}

func TestComputeDonorStats_EligibleAtBoundary(t *testing.T) {
	history := []models.InventoryRecord{rec(models.APos, models.InventoryIn, 450, ts("2024-01-15T12:00:00Z"))}
	next := ts("2024-04-15T12:00:00Z").Time
	if ComputeDonorStats(history, next.Add(-time.Nanosecond)).IsEligible {
		t.Error("must not be eligible just before the next date")
	}
	if !ComputeDonorStats(history, next).IsEligible {
		t.Error("must be eligible exactly at the next date")
	}
}

func TestAddMonths_CalendarClamp(t *testing.T) {
	tests := []struct {
		from, want string
	}{
		{"2023-11-30T08:00:00Z", "2024-02-29T08:00:00Z"},
		{"2024-01-31T08:00:00Z", "2024-04-30T08:00:00Z"},
		{"2024-10-15T08:00:00Z", "2025-01-15T08:00:00Z"},
	}
	for _, tt := range tests {
		got := AddMonths(ts(tt.from).Time, 3)
		if !got.Equal(ts(tt.want).Time) {
			t.Errorf("AddMonths(%s, 3) = %s, want %s", tt.from, got, tt.want)
		}
	}
}

func badgeNames(bs []Badge) map[string]bool {
	out := map[string]bool{}
	for _, b := range bs {
		out[b.Name] = true
	}
	return out
}

func TestBadges_Thresholds(t *testing.T) {
	tests := []struct {
		name      string
		donations int
		qty       int
		want      []string
	}{
		{"first", 1, 450, []string{"First Donor"}},
		{"regular with a litre", 5, 1000, []string{"First Donor", "Regular Donor", "1L Club"}},
		{"hero", 10, 4999, []string{"First Donor", "Regular Donor", "Lifetime Hero", "1L Club"}},
		{"legend", 25, 10000, []string{"First Donor", "Regular Donor", "Lifetime Hero", "Legendary Donor", "1L Club", "5L Club", "10L Club"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Badges(DonorStats{TotalDonations: tt.donations, TotalQuantity: tt.qty})
			if len(got) != len(tt.want) {
				t.Fatalf("got %d badges %v, want %v", len(got), got, tt.want)
			}
			for i, name := range tt.want {
				if got[i].Name != name {
					t.Errorf("badge %d = %q, want %q", i, got[i].Name, name)
				}
			}
		})
	}
}

func TestBadges_Monotonic(t *testing.T) {
	prev := map[string]bool{}
	for n := 0; n <= 30; n++ {
		cur := badgeNames(Badges(DonorStats{TotalDonations: n, TotalQuantity: n * 450}))
		for name := range prev {
			if !cur[name] {
				t.Fatalf("badge %q lost when donations went from %d to %d", name, n-1, n)
			}
		}
		prev = cur
	}
}

func TestSummarizeBloodRequests(t *testing.T) {
	reqs := []models.BloodRequest{
		{Status: models.StatusPending, CreatedAt: ts("2024-01-01T10:00:00Z"), UpdatedAt: ts("2024-01-01T18:00:00Z")},
		{Status: models.StatusApproved, CreatedAt: ts("2024-01-01T10:00:00Z"), UpdatedAt: ts("2024-01-01T10:30:00Z")},
		{Status: models.StatusFulfilled, CreatedAt: ts("2024-01-01T10:00:00Z"), UpdatedAt: ts("2024-01-01T11:30:00Z")},
		{Status: models.StatusRejected, CreatedAt: models.Timestamp{}, UpdatedAt: ts("2024-01-01T11:30:00Z")},
	}
	sum := SummarizeBloodRequests(reqs)
	if sum.Responded != 2 {
		t.Errorf("Responded = %d, want 2", sum.Responded)
	}
	if sum.TotalFulfilled != 1 {
		t.Errorf("TotalFulfilled = %d, want 1", sum.TotalFulfilled)
	}
	if sum.AvgResponseMs != float64(time.Hour.Milliseconds()) {
		t.Errorf("AvgResponseMs = %v, want one hour", sum.AvgResponseMs)
	}
	if sum.Display != "1 hr" {
		t.Errorf("Display = %q", sum.Display)
	}
}

func TestFormatResponseTime(t *testing.T) {
	tests := []struct {
		ms   float64
		want string
	}{
		{0, "-"},
		{-5, "-"},
		{29_000, "0 min"},
		{45 * 60_000, "45 min"},
		{59*60_000 + 29_000, "59 min"},
		{59*60_000 + 31_000, "1 hr"},
		{90 * 60_000, "2 hr"},
		{5 * 3600_000, "5 hr"},
	}
	for _, tt := range tests {
		if got := FormatResponseTime(tt.ms); got != tt.want {
			t.Errorf("FormatResponseTime(%v) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestCountByStatus(t *testing.T) {
	reqs := []models.DonationRequest{{Status: models.StatusPending}, {Status: models.StatusPending}, {Status: models.StatusApproved}}
	counts := CountByStatus(Statuses(reqs, func(r models.DonationRequest) models.Status { return r.Status })...)
	if counts[models.StatusPending] != 2 || counts[models.StatusApproved] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestRequestingOrganisations(t *testing.T) {
	orgs := []models.Organisation{
		{Profile: models.Profile{ID: "o1"}, NeededBloodGroups: []models.BloodGroup{models.ONeg}},
		{Profile: models.Profile{ID: "o2"}, NeededBloodGroups: []models.BloodGroup{models.BPos, "a+"}},
		{Profile: models.Profile{ID: "o3"}},
		{Profile: models.Profile{ID: "o4"}, NeededBloodGroups: []models.BloodGroup{models.ABNeg}},
	}
	got := RequestingOrganisations(orgs, []models.BloodGroup{models.APos, models.ONeg})
	if len(got) != 2 || got[0].ID != "o1" || got[1].ID != "o2" {
		t.Errorf("requesting = %+v", got)
	}
	if got := RequestingOrganisations(orgs, nil); got == nil || len(got) != 0 {
		t.Errorf("no donor groups should yield an empty list, got %v", got)
	}
}
