package stats

// Badge is an achievement earned from donation totals.
type Badge struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon,omitempty"`
}

type badgeRule struct {
	badge Badge
	match func(DonorStats) bool
}

func minDonations(n int) func(DonorStats) bool {
	return func(s DonorStats) bool { return s.TotalDonations >= n }
}

func minQuantity(ml int) func(DonorStats) bool {
	return func(s DonorStats) bool { return s.TotalQuantity >= ml }
}

var badgeRules = []badgeRule{
	{Badge{"First Donor", "Made your first donation", "fa-heart"}, minDonations(1)},
	{Badge{"Regular Donor", "5 donations", "fa-star"}, minDonations(5)},
	{Badge{"Lifetime Hero", "10 donations", "fa-trophy"}, minDonations(10)},
	{Badge{"Legendary Donor", "25 donations", "fa-crown"}, minDonations(25)},
	{Badge{"1L Club", "Donated 1 litre", "fa-tint"}, minQuantity(1000)},
	{Badge{"5L Club", "Donated 5 litres", "fa-medal"}, minQuantity(5000)},
	{Badge{"10L Club", "Donated 10 litres", "fa-gem"}, minQuantity(10000)},
}

// Badges returns every badge whose rule matches, in rule order.
func Badges(s DonorStats) []Badge {
	out := []Badge{}
	for _, r := range badgeRules {
		if r.match(s) {
			out = append(out, r.badge)
		}
	}
	return out
}
