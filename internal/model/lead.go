package model

import "time"

// MaxEmploymentHistory caps the number of historical employer entries kept
// on a lead.
const MaxEmploymentHistory = 5

// Employment is one historical employer entry on a lead, recomputed wholesale
// from the freshest enrichment payload.
type Employment struct {
	EmployerName   string `json:"employer_name"`
	EmployerID     string `json:"employer_id,omitempty"`
	Title          string `json:"title,omitempty"`
	StartDate      string `json:"start_date,omitempty"`
	EndDate        string `json:"end_date,omitempty"`
	IsCurrent      bool   `json:"is_current"`
	DurationMonths int    `json:"duration_months,omitempty"`
}

// Lead is the canonical deduplicated record for one person, keyed by their
// profile identifier. Many items may map to one lead; at most one lead exists
// per profile identifier.
type Lead struct {
	ID        string `json:"id"`
	ProfileID string `json:"profile_id"`
	Name      string `json:"name,omitempty"`
	Headline  string `json:"headline,omitempty"`

	// Latest-post fields: always overwritten by the newest item.
	LastPostURL   string     `json:"last_post_url,omitempty"`
	LastPostURN   string     `json:"last_post_urn,omitempty"`
	LastPostedAt  *time.Time `json:"last_posted_at,omitempty"`
	LastPostText  string     `json:"last_post_text,omitempty"`
	LastPostTitle string     `json:"last_post_title,omitempty"`

	// Latest classification and enrichment. Overwritten only by non-null
	// values from newer items.
	Category     string       `json:"category,omitempty"`
	RoleTitles   []string     `json:"role_titles,omitempty"`
	EmployerName string       `json:"employer_name,omitempty"`
	Position     string       `json:"position,omitempty"`
	EmployerID   string       `json:"employer_id,omitempty"`
	Employments  []Employment `json:"employments,omitempty"`

	Message string `json:"message,omitempty"`

	ClientMatch   bool   `json:"client_match,omitempty"`
	ClientMatchID string `json:"client_match_id,omitempty"`
	VendorMatch   bool   `json:"vendor_match,omitempty"`
	VendorMatchID string `json:"vendor_match_id,omitempty"`

	// Contact history is written only by the outreach sender, never by the
	// pipeline core.
	LastContactedAt *time.Time `json:"last_contacted_at,omitempty"`
	LastContactedBy string     `json:"last_contacted_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LeadOutcome reports the result of reconciling an item against the lead
// registry.
type LeadOutcome struct {
	LeadID  string `json:"lead_id"`
	Created bool   `json:"created"`
}

// LeadCounts summarizes the lead registry for monitoring.
type LeadCounts struct {
	Total     int `json:"total"`
	Vendor    int `json:"vendor"`
	Client    int `json:"client"`
	Contacted int `json:"contacted"`
}
