// Package store persists pipeline state: ingested items, the deduplicated
// lead registry, and the client/vendor directory. Two backends implement the
// same interface, pgx-backed Postgres for production and SQLite for local
// single-writer runs.
package store

import (
	"context"
	"time"

	"github.com/talentsignal/signal-cli/internal/model"
)

// ItemFilter specifies criteria for listing items.
type ItemFilter struct {
	Status  model.ProcessingStatus `json:"status,omitempty"`
	BatchID string                 `json:"batch_id,omitempty"`
	Limit   int                    `json:"limit,omitempty"`
	Offset  int                    `json:"offset,omitempty"`
}

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	Category string `json:"category,omitempty"`
	// ExcludeVendors drops vendor-flagged leads, matching the outreach view.
	ExcludeVendors bool `json:"exclude_vendors,omitempty"`
	Limit          int  `json:"limit,omitempty"`
	Offset         int  `json:"offset,omitempty"`
}

// Store defines the persistence interface for the signal pipeline.
type Store interface {
	// Items
	InsertItems(ctx context.Context, items []model.Item) (int, error)
	GetItem(ctx context.Context, id string) (*model.Item, error)
	GetItemByURN(ctx context.Context, urn string) (*model.Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]model.Item, error)
	UpdateItem(ctx context.Context, item *model.Item) error

	// Queue operations. Claiming flips status to in_flight in the same
	// statement that selects the rows, so concurrent batch triggers never
	// hand the same item to two workers.
	ClaimPending(ctx context.Context, batchID string, limit int) ([]model.Item, error)
	ClaimDueRetries(ctx context.Context, limit int) ([]model.Item, error)
	// RearmFailed is the operator repair action: items stuck in a terminal
	// failure status for at least olderThan go back to pending with their
	// retry count preserved.
	RearmFailed(ctx context.Context, olderThan time.Duration) (int, error)
	CountItemsByStatus(ctx context.Context) (map[model.ProcessingStatus]int, error)

	// Leads
	UpsertLead(ctx context.Context, lead *model.Lead) (*model.LeadOutcome, error)
	GetLead(ctx context.Context, id string) (*model.Lead, error)
	GetLeadByProfileID(ctx context.Context, profileID string) (*model.Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)
	CountLeads(ctx context.Context) (*model.LeadCounts, error)

	// Directory
	UpsertDirectoryOrgs(ctx context.Context, orgs []model.DirectoryOrg) (int, error)
	MatchDirectory(ctx context.Context, employerID, employerName string) (*model.DirectoryMatch, error)
	ListDirectoryOrgs(ctx context.Context, kind model.OrgKind) ([]model.DirectoryOrg, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
