package models

// Status is the lifecycle state of a request-like entity.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusFulfilled Status = "fulfilled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusActive    Status = "active"
	StatusBlocked   Status = "blocked"
)

// Urgency grades an emergency request.
type Urgency string

const (
	UrgencyHigh      Urgency = "high"
	UrgencyCritical  Urgency = "critical"
	UrgencyEmergency Urgency = "emergency"
)

// Valid reports whether u is a known urgency level.
func (u Urgency) Valid() bool {
	return u == UrgencyHigh || u == UrgencyCritical || u == UrgencyEmergency
}

// BloodRequest is a hospital asking an organisation for blood.
type BloodRequest struct {
	ID           string     `json:"_id"`
	Organisation Ref        `json:"organisation"`
	Hospital     Ref        `json:"hospital"`
	BloodGroup   BloodGroup `json:"bloodGroup"`
	Quantity     int        `json:"quantity"`
	Status       Status     `json:"status"`
	Reason       string     `json:"reason,omitempty"`
	AutoRejected bool       `json:"autoRejected,omitempty"`
	CreatedAt    Timestamp  `json:"createdAt"`
	UpdatedAt    Timestamp  `json:"updatedAt"`
}

// DonationRequest is a donor offering to donate at an organisation.
type DonationRequest struct {
	ID            string     `json:"_id"`
	Donor         Ref        `json:"donor"`
	Organisation  Ref        `json:"organisation"`
	BloodGroup    BloodGroup `json:"bloodGroup"`
	Quantity      int        `json:"quantity,omitempty"`
	Status        Status     `json:"status"`
	AutoRejected  bool       `json:"autoRejected,omitempty"`
	RequestDate   Timestamp  `json:"requestDate"`
	CompletedDate Timestamp  `json:"completedDate"`
	ResponseNotes string     `json:"responseNotes,omitempty"`
	CreatedAt     Timestamp  `json:"createdAt"`
	UpdatedAt     Timestamp  `json:"updatedAt"`
}

// EmergencyRequest is an organisation-issued broadcast to eligible donors.
type EmergencyRequest struct {
	ID             string     `json:"_id"`
	Organisation   Ref        `json:"organisation"`
	BloodGroup     BloodGroup `json:"bloodGroup"`
	Quantity       int        `json:"quantity"`
	Urgency        Urgency    `json:"urgency"`
	Status         Status     `json:"status"`
	EligibleDonors []Ref      `json:"eligibleDonors,omitempty"`
	BroadcastSent  bool       `json:"broadcastSent"`
	Location       string     `json:"location,omitempty"`
	City           string     `json:"city,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	ContactPerson  string     `json:"contactPerson,omitempty"`
	ContactPhone   string     `json:"contactPhone,omitempty"`
	CreatedAt      Timestamp  `json:"createdAt"`
	UpdatedAt      Timestamp  `json:"updatedAt"`
}

// Camp is an organisation-run donation drive.
type Camp struct {
	ID             string       `json:"_id"`
	Organisation   Ref          `json:"organisation"`
	Name           string       `json:"name"`
	Description    string       `json:"description,omitempty"`
	Date           Timestamp    `json:"date"`
	StartTime      string       `json:"startTime"`
	EndTime        string       `json:"endTime"`
	Location       string       `json:"location"`
	City           string       `json:"city"`
	BloodGroups    []BloodGroup `json:"bloodGroups"`
	ExpectedDonors int          `json:"expectedDonors,omitempty"`
	ContactPerson  string       `json:"contactPerson,omitempty"`
	ContactPhone   string       `json:"contactPhone,omitempty"`
	ContactEmail   string       `json:"contactEmail,omitempty"`
	Status         Status       `json:"status"`
	AdminNotes     string       `json:"adminNotes,omitempty"`
	Facilities     []string     `json:"facilities,omitempty"`
	Requirements   []string     `json:"requirements,omitempty"`
	CreatedAt      Timestamp    `json:"createdAt"`
	UpdatedAt      Timestamp    `json:"updatedAt"`
}

// StockRow is one line of the backend's precomputed stock summary.
type StockRow struct {
	BloodGroup  BloodGroup `json:"bloodGroup"`
	Available   int        `json:"available"`
	Min         int        `json:"min"`
	Status      string     `json:"status,omitempty"`
	LastUpdated Timestamp  `json:"lastUpdated"`
}

// RequestSummary is the backend's own aggregate over a hospital's requests.
type RequestSummary struct {
	TotalFulfilled int     `json:"totalFulfilled"`
	AvgResponseMs  float64 `json:"avgResponseMs"`
}

// Counts is a status -> count map as returned by the stats endpoints.
type Counts map[string]int

// Pagination mirrors the backend's paging block.
type Pagination struct {
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Total int `json:"total"`
	Limit int `json:"limit,omitempty"`
}

// AdminListEntry is an account row of the admin lists, with the stock
// snapshot the backend attaches to hospitals and organisations.
type AdminListEntry struct {
	Profile
	OrganisationName string             `json:"organisationName,omitempty"`
	HospitalName     string             `json:"hospitalName,omitempty"`
	BloodGroup       BloodGroup         `json:"bloodGroup,omitempty"`
	BloodStock       map[BloodGroup]int `json:"bloodStock,omitempty"`
	CreatedAt        Timestamp          `json:"createdAt"`
}

// OwnerID is the organisation that issued the emergency request.
func (e EmergencyRequest) OwnerID() string { return e.Organisation.ID }

// OwnerID is the organisation running the camp.
func (c Camp) OwnerID() string { return c.Organisation.ID }
