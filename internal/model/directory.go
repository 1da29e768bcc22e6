package model

import "time"

// OrgKind distinguishes the two directory partitions that change downstream
// handling: clients are never cold-outreached, vendor-sourced leads are not
// contacted at all.
type OrgKind string

const (
	OrgKindClient OrgKind = "client"
	OrgKindVendor OrgKind = "vendor"
)

// DirectoryOrg is one organization in the client/vendor directory, keyed by
// the external employer identifier the enrichment service reports.
type DirectoryOrg struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	EmployerID string    `json:"employer_id"`
	Kind       OrgKind   `json:"kind"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DirectoryMatch is the outcome of looking up an employer identifier against
// the directory. Both flags may be set when the same employer appears in both
// partitions; the vendor flag wins for messaging decisions.
type DirectoryMatch struct {
	Client *DirectoryOrg
	Vendor *DirectoryOrg
}
