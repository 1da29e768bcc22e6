// Package model defines the core domain types shared across the pipeline:
// ingested items, canonical leads, and the client/vendor directory.
package model

import "time"

// ProcessingStatus tracks an item's position in the pipeline state machine.
type ProcessingStatus string

const (
	// StatusPending is the initial status assigned at ingestion and the
	// status items return to when requeued by the retry policy.
	StatusPending ProcessingStatus = "pending"

	// StatusInFlight marks an item claimed by a batch runner chunk but not
	// yet entered into a stage. Prevents double-claims under re-entrant
	// batch triggers.
	StatusInFlight ProcessingStatus = "in_flight"

	StatusStage1Running     ProcessingStatus = "stage1_running"
	StatusStage1Rejected    ProcessingStatus = "stage1_rejected"
	StatusStage2Running     ProcessingStatus = "stage2_running"
	StatusStage2Rejected    ProcessingStatus = "stage2_rejected"
	StatusStage3Running     ProcessingStatus = "stage3_running"
	StatusEnrichmentRunning ProcessingStatus = "enrichment_running"
	StatusMatchingRunning   ProcessingStatus = "matching_running"
	StatusMessagingRunning  ProcessingStatus = "messaging_running"
	StatusDedupRunning      ProcessingStatus = "dedup_running"

	// StatusCompleted means the item produced a newly created lead.
	StatusCompleted ProcessingStatus = "completed"
	// StatusDuplicate means the item merged into an existing lead.
	StatusDuplicate ProcessingStatus = "duplicate"
	// StatusCompletedVendor means the item finished reconciliation but its
	// author works for a staffing vendor; it is excluded from outreach views.
	StatusCompletedVendor ProcessingStatus = "completed_vendor"

	// StatusRetryScheduled means a transient failure occurred and the item
	// will be requeued once next_retry_at passes.
	StatusRetryScheduled ProcessingStatus = "retry_scheduled"
	// StatusError is terminal: validation or parse failure, never retried.
	StatusError ProcessingStatus = "error"
	// StatusFailed is terminal: the retry ceiling was exhausted.
	StatusFailed ProcessingStatus = "failed"
)

// Terminal reports whether the status ends the pipeline for an item.
func (s ProcessingStatus) Terminal() bool {
	switch s {
	case StatusStage1Rejected, StatusStage2Rejected,
		StatusCompleted, StatusDuplicate, StatusCompletedVendor,
		StatusError, StatusFailed:
		return true
	}
	return false
}

// AllStatuses enumerates every valid processing status.
func AllStatuses() []ProcessingStatus {
	return []ProcessingStatus{
		StatusPending, StatusInFlight,
		StatusStage1Running, StatusStage1Rejected,
		StatusStage2Running, StatusStage2Rejected,
		StatusStage3Running, StatusEnrichmentRunning,
		StatusMatchingRunning, StatusMessagingRunning, StatusDedupRunning,
		StatusCompleted, StatusDuplicate, StatusCompletedVendor,
		StatusRetryScheduled, StatusError, StatusFailed,
	}
}

// Item is one ingested social post moving through the pipeline. Identity is
// the source URN, which is globally unique and immutable.
type Item struct {
	ID               string     `json:"id"`
	URN              string     `json:"urn"`
	Text             string     `json:"text"`
	Title            string     `json:"title,omitempty"`
	AuthorName       string     `json:"author_name,omitempty"`
	AuthorProfileID  string     `json:"author_profile_id,omitempty"`
	AuthorProfileURL string     `json:"author_profile_url,omitempty"`
	PostedAt         *time.Time `json:"posted_at,omitempty"`
	BatchID          string     `json:"batch_id,omitempty"`

	Status ProcessingStatus `json:"status"`

	// Stage 1: relevance verdict and extracted role strings (capped at 3).
	Stage1Relevant *bool    `json:"stage1_relevant,omitempty"`
	Stage1Roles    []string `json:"stage1_roles,omitempty"`

	// Stage 2: locale filter verdict.
	Stage2Accepted *bool  `json:"stage2_accepted,omitempty"`
	Stage2Language string `json:"stage2_language,omitempty"`
	Stage2Location string `json:"stage2_location,omitempty"`
	Stage2Reason   string `json:"stage2_reason,omitempty"`

	// Stage 3: category and up to 2 normalized role titles.
	Stage3Category string   `json:"stage3_category,omitempty"`
	Stage3Roles    []string `json:"stage3_roles,omitempty"`

	// Enrichment results.
	EmployerName      string `json:"employer_name,omitempty"`
	EmployerID        string `json:"employer_id,omitempty"`
	Position          string `json:"position,omitempty"`
	Phone             string `json:"phone,omitempty"`
	EnrichmentRaw     []byte `json:"enrichment_raw,omitempty"`
	EnrichmentSkipped bool   `json:"enrichment_skipped,omitempty"`

	// Directory matching.
	ClientMatch   bool   `json:"client_match,omitempty"`
	ClientMatchID string `json:"client_match_id,omitempty"`
	VendorMatch   bool   `json:"vendor_match,omitempty"`
	VendorMatchID string `json:"vendor_match_id,omitempty"`

	// Outreach.
	Message         string `json:"message,omitempty"`
	MessageFallback bool   `json:"message_fallback,omitempty"`
	MessageError    string `json:"message_error,omitempty"`

	// Retry bookkeeping.
	RetryCount  int        `json:"retry_count"`
	LastRetryAt *time.Time `json:"last_retry_at,omitempty"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`

	LeadID    *string   `json:"lead_id,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Enriched reports whether the enrichment stage produced employer data for
// this item (as opposed to being skipped or never reached).
func (it *Item) Enriched() bool {
	return !it.EnrichmentSkipped && len(it.EnrichmentRaw) > 0
}

// ProcessingResult summarizes one pipeline invocation for a single item.
type ProcessingResult struct {
	ItemID       string           `json:"item_id"`
	URN          string           `json:"urn"`
	Status       ProcessingStatus `json:"status"`
	LeadID       string           `json:"lead_id,omitempty"`
	LeadCreated  bool             `json:"lead_created,omitempty"`
	StagesRun    []string         `json:"stages_run,omitempty"`
	TokenUsage   TokenUsage       `json:"token_usage"`
	EstimatedUSD float64          `json:"estimated_usd,omitempty"`
	Err          string           `json:"error,omitempty"`
	DurationMS   int64            `json:"duration_ms"`
}

// TokenUsage accumulates LLM token consumption across pipeline steps.
type TokenUsage struct {
	InputTokens         int `json:"input_tokens"`
	OutputTokens        int `json:"output_tokens"`
	CacheCreationTokens int `json:"cache_creation_tokens,omitempty"`
	CacheReadTokens     int `json:"cache_read_tokens,omitempty"`
}

// Add accumulates another usage into this one.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationTokens += other.CacheCreationTokens
	u.CacheReadTokens += other.CacheReadTokens
}
