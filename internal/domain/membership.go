package domain

import "time"

// Membership status constants.
const (
	MembershipStatusActive    = "active"
	MembershipStatusCancelled = "cancelled"
	MembershipStatusExpired   = "expired"
)

// ValidMembershipStatuses returns the set of valid membership statuses.
func ValidMembershipStatuses() []string {
	return []string{MembershipStatusActive, MembershipStatusCancelled, MembershipStatusExpired}
}

// IsValidMembershipStatus checks whether status is a valid membership status.
func IsValidMembershipStatus(status string) bool {
	for _, s := range ValidMembershipStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// Membership is a reading service subscription a user tracks (Audible,
// Kindle Unlimited, a public library card).
type Membership struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Service        string     `json:"service"`
	MembershipType string     `json:"membership_type"`
	Price          *float64   `json:"price,omitempty"`
	Status         string     `json:"status"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ValidDates reports whether the end date, when set, does not precede the
// start date.
func (m *Membership) ValidDates() bool {
	if m.StartDate == nil || m.EndDate == nil {
		return true
	}
	return !m.EndDate.Before(*m.StartDate)
}

// MembershipPatch is a partial update of a membership.
type MembershipPatch struct {
	Service        *string
	MembershipType *string
	Price          *float64
	Status         *string
	StartDate      *time.Time
	EndDate        *time.Time
	Notes          *string
}

// Apply copies the set fields of p onto m.
func (p MembershipPatch) Apply(m *Membership) {
	if p.Service != nil {
		m.Service = *p.Service
	}
	if p.MembershipType != nil {
		m.MembershipType = *p.MembershipType
	}
	if p.Price != nil {
		m.Price = p.Price
	}
	if p.Status != nil {
		m.Status = *p.Status
	}
	if p.StartDate != nil {
		m.StartDate = p.StartDate
	}
	if p.EndDate != nil {
		m.EndDate = p.EndDate
	}
	if p.Notes != nil {
		m.Notes = p.Notes
	}
}
