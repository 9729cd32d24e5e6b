package stats

import (
	"fmt"
	"math"

	"github.com/diewo77/go-bloodbank/internal/models"
)

// ResponseSummary is the mean time an organisation took to answer requests.
type ResponseSummary struct {
	Responded      int     `json:"responded"`
	TotalFulfilled int     `json:"totalFulfilled"`
	AvgResponseMs  float64 `json:"avgResponseMs"`
	Display        string  `json:"display"`
}

type responseSample struct {
	status             models.Status
	created, responded models.Timestamp
}

// SummarizeBloodRequests averages updatedAt - createdAt over the non-pending
// requests with usable timestamps.
func SummarizeBloodRequests(reqs []models.BloodRequest) ResponseSummary {
	samples := make([]responseSample, len(reqs))
	for i, r := range reqs {
		samples[i] = responseSample{r.Status, r.CreatedAt, r.UpdatedAt}
	}
	return summarize(samples)
}

// SummarizeDonationRequests does the same for donation requests.
func SummarizeDonationRequests(reqs []models.DonationRequest) ResponseSummary {
	samples := make([]responseSample, len(reqs))
	for i, r := range reqs {
		created := r.CreatedAt
		if !created.Valid {
			created = r.RequestDate
		}
		samples[i] = responseSample{r.Status, created, r.UpdatedAt}
	}
	return summarize(samples)
}

func summarize(samples []responseSample) ResponseSummary {
	var sum ResponseSummary
	var totalMs float64
	for _, s := range samples {
		if s.status == models.StatusFulfilled || s.status == models.StatusCompleted {
			sum.TotalFulfilled++
		}
		if s.status == "" || s.status == models.StatusPending {
			continue
		}
		if !s.created.Valid || !s.responded.Valid {
			continue
		}
		d := s.responded.Sub(s.created.Time)
		if d < 0 {
			continue
		}
		sum.Responded++
		totalMs += float64(d.Milliseconds())
	}
	if sum.Responded > 0 {
		sum.AvgResponseMs = totalMs / float64(sum.Responded)
	}
	sum.Display = FormatResponseTime(sum.AvgResponseMs)
	return sum
}

// FormatResponseTime renders a duration in ms as "N min" below an hour and
// "N hr" above, rounding to whole units. Zero or negative renders as "-".
func FormatResponseTime(ms float64) string {
	if ms <= 0 || math.IsNaN(ms) {
		return "-"
	}
	minutes := math.Round(ms / 60000)
	if minutes < 60 {
		return fmt.Sprintf("%d min", int(minutes))
	}
	return fmt.Sprintf("%d hr", int(math.Round(minutes/60)))
}

// CountByStatus tallies statuses; useful for pending badges on dashboards.
func CountByStatus(statuses ...models.Status) map[models.Status]int {
	out := make(map[models.Status]int, len(statuses))
	for _, s := range statuses {
		out[s]++
	}
	return out
}

// Statuses projects a list to its statuses.
func Statuses[T any](items []T, get func(T) models.Status) []models.Status {
	out := make([]models.Status, len(items))
	for i, it := range items {
		out[i] = get(it)
	}
	return out
}
