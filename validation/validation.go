package validation

import (
	"regexp"
	"strings"

	"github.com/diewo77/go-bloodbank/internal/models"
)

// Violations maps a field to a violation code. Codes are stable identifiers
// the browser turns into messages.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Error lets Violations travel as an error value.
func (v Violations) Error() string {
	parts := make([]string, 0, len(v))
	for f, c := range v {
		parts = append(parts, f+": "+c)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Add records a violation unless field already has one.
func (v Violations) Add(field, code string) { set(v, field, code) }

// Err returns v as an error, or nil when there are no violations.
func (v Violations) Err() error {
	if v.Empty() {
		return nil
	}
	return v
}

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// MinPasswordLen is the shortest password the backend accepts.
const MinPasswordLen = 6

// MinDonorAge is the youngest age allowed to register as a donor.
const MinDonorAge = 18

// Basic validators. Each records at most one violation for its field and
// leaves earlier violations of the same field in place.

func set(v Violations, field, code string) {
	if _, exists := v[field]; !exists {
		v[field] = code
	}
}

func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		set(v, field, "required")
	}
}

func Email(field, value string, v Violations) {
	value = strings.TrimSpace(value)
	if value == "" {
		set(v, field, "required")
		return
	}
	if !emailRe.MatchString(value) {
		set(v, field, "invalid_email")
	}
}

func MinLen(field, value string, n int, v Violations) {
	if len(value) < n {
		set(v, field, "too_short")
	}
}

// Matches flags a confirmation field that differs from the original.
func Matches(field, value, other string, v Violations) {
	if value != other {
		set(v, field, "mismatch")
	}
}

func PositiveInt(field string, val int, v Violations) {
	if val <= 0 {
		set(v, field, "must_be_positive")
	}
}

func MinInt(field string, val, minVal int, v Violations) {
	if val < minVal {
		set(v, field, "too_small")
	}
}

func PositiveFloat(field string, val float64, v Violations) {
	if val <= 0 {
		set(v, field, "must_be_positive")
	}
}

func RangeFloat(field string, val, minVal, maxVal float64, v Violations) {
	if val < minVal || val > maxVal {
		set(v, field, "out_of_range")
	}
}

// BloodGroup checks value is one of the eight groups and returns it
// normalized.
func BloodGroup(field, value string, v Violations) models.BloodGroup {
	if strings.TrimSpace(value) == "" {
		set(v, field, "required")
		return ""
	}
	g, ok := models.NormalizeBloodGroup(value)
	if !ok {
		set(v, field, "invalid_blood_group")
		return ""
	}
	return g
}

// Role checks value is one of the console roles.
func Role(field, value string, v Violations) models.Role {
	if strings.TrimSpace(value) == "" {
		set(v, field, "required")
		return ""
	}
	r, err := models.ParseRole(value)
	if err != nil {
		set(v, field, "invalid_role")
		return ""
	}
	return r
}

// OneOf checks value against a closed set.
func OneOf(field, value string, allowed []string, v Violations) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	set(v, field, "invalid_choice")
}
