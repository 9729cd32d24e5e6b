package models

import (
	"encoding/json"
	"strings"
)

// BloodGroup is an ABO/Rh blood group as sent on the wire ("A+", "O-", ...).
type BloodGroup string

const (
	APos  BloodGroup = "A+"
	ANeg  BloodGroup = "A-"
	BPos  BloodGroup = "B+"
	BNeg  BloodGroup = "B-"
	ABPos BloodGroup = "AB+"
	ABNeg BloodGroup = "AB-"
	OPos  BloodGroup = "O+"
	ONeg  BloodGroup = "O-"
)

// AllBloodGroups lists the eight standard groups in display order.
var AllBloodGroups = []BloodGroup{APos, ANeg, BPos, BNeg, ABPos, ABNeg, OPos, ONeg}

// NormalizeBloodGroup trims, upper-cases and maps the Unicode minus sign to
// ASCII. It returns false when the result is not a standard group.
func NormalizeBloodGroup(s string) (BloodGroup, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "−", "-")
	g := BloodGroup(s)
	return g, g.Valid()
}

// Valid reports whether g is one of the eight standard groups.
func (g BloodGroup) Valid() bool {
	for _, v := range AllBloodGroups {
		if v == g {
			return true
		}
	}
	return false
}

// InventoryType marks a ledger entry as blood received or issued.
type InventoryType string

const (
	InventoryIn  InventoryType = "in"
	InventoryOut InventoryType = "out"
)

// Ref points at another backend entity. The backend sends either a bare id
// or a populated object, both decode into Ref.
type Ref struct {
	ID               string `json:"_id,omitempty"`
	Name             string `json:"name,omitempty"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	OrganisationName string `json:"organisationName,omitempty"`
	HospitalName     string `json:"hospitalName,omitempty"`
	City             string `json:"city,omitempty"`
}

func (r *Ref) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var id string
		if err := json.Unmarshal(b, &id); err != nil {
			return err
		}
		*r = Ref{ID: id}
		return nil
	}
	if string(b) == "null" {
		*r = Ref{}
		return nil
	}
	type plain Ref
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = Ref(p)
	return nil
}

// Label is the best human-readable name for the referenced entity.
func (r Ref) Label() string {
	return firstNonEmpty(r.OrganisationName, r.HospitalName, r.Name, r.Email, r.ID)
}

// InventoryRecord is one append-only ledger entry.
type InventoryRecord struct {
	ID            string        `json:"_id,omitempty"`
	BloodGroup    BloodGroup    `json:"bloodGroup"`
	InventoryType InventoryType `json:"inventoryType"`
	Quantity      int           `json:"quantity"`
	Email         string        `json:"email,omitempty"`
	Organisation  Ref           `json:"organisation"`
	Donor         *Ref          `json:"donor,omitempty"`
	Hospital      *Ref          `json:"hospital,omitempty"`
	CreatedAt     Timestamp     `json:"createdAt"`
}
