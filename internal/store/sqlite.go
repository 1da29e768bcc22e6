package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/talentsignal/signal-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Intended for local
// single-writer runs; the claim statements rely on SQLite's database-level
// write lock rather than row locking.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS items (
	id                 TEXT PRIMARY KEY,
	urn                TEXT NOT NULL UNIQUE,
	text               TEXT NOT NULL,
	title              TEXT NOT NULL DEFAULT '',
	author_name        TEXT NOT NULL DEFAULT '',
	author_profile_id  TEXT NOT NULL DEFAULT '',
	author_profile_url TEXT NOT NULL DEFAULT '',
	posted_at          DATETIME,
	batch_id           TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL DEFAULT 'pending',
	stage1_relevant    BOOLEAN,
	stage1_roles       TEXT,
	stage2_accepted    BOOLEAN,
	stage2_language    TEXT NOT NULL DEFAULT '',
	stage2_location    TEXT NOT NULL DEFAULT '',
	stage2_reason      TEXT NOT NULL DEFAULT '',
	stage3_category    TEXT NOT NULL DEFAULT '',
	stage3_roles       TEXT,
	employer_name      TEXT NOT NULL DEFAULT '',
	employer_id        TEXT NOT NULL DEFAULT '',
	position           TEXT NOT NULL DEFAULT '',
	phone              TEXT NOT NULL DEFAULT '',
	enrichment_raw     TEXT,
	enrichment_skipped BOOLEAN NOT NULL DEFAULT 0,
	client_match       BOOLEAN NOT NULL DEFAULT 0,
	client_match_id    TEXT NOT NULL DEFAULT '',
	vendor_match       BOOLEAN NOT NULL DEFAULT 0,
	vendor_match_id    TEXT NOT NULL DEFAULT '',
	message            TEXT NOT NULL DEFAULT '',
	message_fallback   BOOLEAN NOT NULL DEFAULT 0,
	message_error      TEXT NOT NULL DEFAULT '',
	retry_count        INTEGER NOT NULL DEFAULT 0,
	last_retry_at      DATETIME,
	next_retry_at      DATETIME,
	lead_id            TEXT,
	last_error         TEXT NOT NULL DEFAULT '',
	created_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_items_status ON items(status);
CREATE INDEX IF NOT EXISTS idx_items_batch_id ON items(batch_id);
CREATE INDEX IF NOT EXISTS idx_items_next_retry ON items(next_retry_at);

CREATE TABLE IF NOT EXISTS leads (
	id                TEXT PRIMARY KEY,
	profile_id        TEXT NOT NULL UNIQUE,
	name              TEXT NOT NULL DEFAULT '',
	headline          TEXT NOT NULL DEFAULT '',
	last_post_url     TEXT NOT NULL DEFAULT '',
	last_post_urn     TEXT NOT NULL DEFAULT '',
	last_posted_at    DATETIME,
	last_post_text    TEXT NOT NULL DEFAULT '',
	last_post_title   TEXT NOT NULL DEFAULT '',
	category          TEXT NOT NULL DEFAULT '',
	role_titles       TEXT,
	employer_name     TEXT NOT NULL DEFAULT '',
	position          TEXT NOT NULL DEFAULT '',
	employer_id       TEXT NOT NULL DEFAULT '',
	employments       TEXT,
	message           TEXT NOT NULL DEFAULT '',
	client_match      BOOLEAN NOT NULL DEFAULT 0,
	client_match_id   TEXT NOT NULL DEFAULT '',
	vendor_match      BOOLEAN NOT NULL DEFAULT 0,
	vendor_match_id   TEXT NOT NULL DEFAULT '',
	last_contacted_at DATETIME,
	last_contacted_by TEXT NOT NULL DEFAULT '',
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_leads_category ON leads(category);
CREATE INDEX IF NOT EXISTS idx_leads_employer_id ON leads(employer_id);

CREATE TABLE IF NOT EXISTS directory_orgs (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	employer_id TEXT NOT NULL DEFAULT '',
	kind        TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (employer_id, kind, name)
);

CREATE INDEX IF NOT EXISTS idx_directory_orgs_employer ON directory_orgs(employer_id);
CREATE INDEX IF NOT EXISTS idx_directory_orgs_kind ON directory_orgs(kind);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertItems(ctx context.Context, items []model.Item) (int, error) {
	inserted := 0
	now := time.Now().UTC()

	for i := range items {
		it := &items[i]
		if it.ID == "" {
			it.ID = uuid.New().String()
		}
		if it.Status == "" {
			it.Status = model.StatusPending
		}

		res, err := s.db.ExecContext(ctx,
			`INSERT INTO items (id, urn, text, title, author_name, author_profile_id, author_profile_url, posted_at, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (urn) DO NOTHING`,
			it.ID, it.URN, it.Text, it.Title, it.AuthorName, it.AuthorProfileID, it.AuthorProfileURL,
			it.PostedAt, string(it.Status), now, now,
		)
		if err != nil {
			return inserted, eris.Wrapf(err, "sqlite: insert item %s", it.URN)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, eris.Wrap(err, "sqlite: rows affected")
		}
		inserted += int(n)
	}
	return inserted, nil
}

func (s *SQLiteStore) GetItem(ctx context.Context, id string) (*model.Item, error) {
	it, err := scanItem(s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get item %s", id)
	}
	return it, nil
}

func (s *SQLiteStore) GetItemByURN(ctx context.Context, urn string) (*model.Item, error) {
	it, err := scanItem(s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE urn = ?`, urn))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get item by urn %s", urn)
	}
	return it, nil
}

func (s *SQLiteStore) ListItems(ctx context.Context, filter ItemFilter) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.BatchID != "" {
		query += ` AND batch_id = ?`
		args = append(args, filter.BatchID)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list items")
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan item")
		}
		items = append(items, *it)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: list items iterate")
}

func (s *SQLiteStore) UpdateItem(ctx context.Context, item *model.Item) error {
	stage1Roles, err := rolesJSON(item.Stage1Roles)
	if err != nil {
		return err
	}
	stage3Roles, err := rolesJSON(item.Stage3Roles)
	if err != nil {
		return err
	}
	var enrichmentRaw any
	if len(item.EnrichmentRaw) > 0 {
		enrichmentRaw = string(item.EnrichmentRaw)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET
			batch_id = ?, status = ?,
			stage1_relevant = ?, stage1_roles = ?,
			stage2_accepted = ?, stage2_language = ?, stage2_location = ?, stage2_reason = ?,
			stage3_category = ?, stage3_roles = ?,
			employer_name = ?, employer_id = ?, position = ?, phone = ?,
			enrichment_raw = ?, enrichment_skipped = ?,
			client_match = ?, client_match_id = ?, vendor_match = ?, vendor_match_id = ?,
			message = ?, message_fallback = ?, message_error = ?,
			retry_count = ?, last_retry_at = ?, next_retry_at = ?,
			lead_id = ?, last_error = ?, updated_at = ?
		 WHERE id = ?`,
		item.BatchID, string(item.Status),
		item.Stage1Relevant, stage1Roles,
		item.Stage2Accepted, item.Stage2Language, item.Stage2Location, item.Stage2Reason,
		item.Stage3Category, stage3Roles,
		item.EmployerName, item.EmployerID, item.Position, item.Phone,
		enrichmentRaw, item.EnrichmentSkipped,
		item.ClientMatch, item.ClientMatchID, item.VendorMatch, item.VendorMatchID,
		item.Message, item.MessageFallback, item.MessageError,
		item.RetryCount, item.LastRetryAt, item.NextRetryAt,
		item.LeadID, item.LastError, time.Now().UTC(),
		item.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update item %s", item.ID)
	}
	return checkRowsAffected(res, "item", item.ID)
}

func (s *SQLiteStore) ClaimPending(ctx context.Context, batchID string, limit int) ([]model.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`UPDATE items SET status = ?, batch_id = ?, updated_at = ?
		 WHERE id IN (
			SELECT id FROM items WHERE status = ?
			ORDER BY created_at
			LIMIT ?
		 )
		 RETURNING `+itemColumns,
		string(model.StatusInFlight), batchID, time.Now().UTC(), string(model.StatusPending), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: claim pending")
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan claimed item")
		}
		items = append(items, *it)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: claim pending iterate")
}

func (s *SQLiteStore) ClaimDueRetries(ctx context.Context, limit int) ([]model.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`UPDATE items SET status = ?, updated_at = ?
		 WHERE id IN (
			SELECT id FROM items
			WHERE status = ? AND next_retry_at <= ?
			ORDER BY next_retry_at
			LIMIT ?
		 )
		 RETURNING `+itemColumns,
		string(model.StatusInFlight), time.Now().UTC(), string(model.StatusRetryScheduled), time.Now().UTC(), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: claim due retries")
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan retry item")
		}
		items = append(items, *it)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: claim due retries iterate")
}

func (s *SQLiteStore) RearmFailed(ctx context.Context, olderThan time.Duration) (int, error) {
	// updated_at is always written as a bound Go time, so the cutoff must be
	// one too; datetime('now') text sorts differently and never matches.
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET status = ?, next_retry_at = NULL, updated_at = ?
		 WHERE status IN (?, ?) AND updated_at <= ?`,
		string(model.StatusPending), now,
		string(model.StatusFailed), string(model.StatusError),
		now.Add(-olderThan),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rearm failed")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}

func (s *SQLiteStore) CountItemsByStatus(ctx context.Context) (map[model.ProcessingStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, count(*) FROM items GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count items by status")
	}
	defer rows.Close()

	counts := make(map[model.ProcessingStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan status count")
		}
		counts[model.ProcessingStatus(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: count items iterate")
}

// UpsertLead looks up the existing lead, then inserts or merges inside one
// transaction. The Postgres backend does this in a single ON CONFLICT
// statement; here the database-level write lock makes the two-step safe.
func (s *SQLiteStore) UpsertLead(ctx context.Context, lead *model.Lead) (*model.LeadOutcome, error) {
	if lead.ProfileID == "" {
		return nil, eris.New("sqlite: upsert lead: profile_id is required")
	}

	roleTitles, err := rolesJSON(lead.RoleTitles)
	if err != nil {
		return nil, err
	}
	var employments any
	if len(lead.Employments) > 0 {
		b, err := json.Marshal(lead.Employments)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal employments")
		}
		employments = string(b)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: upsert lead: begin tx")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var existingID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM leads WHERE profile_id = ?`, lead.ProfileID,
	).Scan(&existingID)

	switch {
	case err == sql.ErrNoRows:
		id := lead.ID
		if id == "" {
			id = uuid.New().String()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO leads (id, profile_id, name, headline,
				last_post_url, last_post_urn, last_posted_at, last_post_text, last_post_title,
				category, role_titles, employer_name, position, employer_id, employments,
				message, client_match, client_match_id, vendor_match, vendor_match_id,
				created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, lead.ProfileID, lead.Name, lead.Headline,
			lead.LastPostURL, lead.LastPostURN, lead.LastPostedAt, lead.LastPostText, lead.LastPostTitle,
			lead.Category, roleTitles, lead.EmployerName, lead.Position, lead.EmployerID, employments,
			lead.Message, lead.ClientMatch, lead.ClientMatchID, lead.VendorMatch, lead.VendorMatchID,
			now, now,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert lead %s", lead.ProfileID)
		}
		if err := tx.Commit(); err != nil {
			return nil, eris.Wrap(err, "sqlite: upsert lead: commit")
		}
		return &model.LeadOutcome{LeadID: id, Created: true}, nil

	case err != nil:
		return nil, eris.Wrapf(err, "sqlite: lookup lead %s", lead.ProfileID)
	}

	hasEmployer := lead.EmployerName != ""
	_, err = tx.ExecContext(ctx,
		`UPDATE leads SET
			name            = COALESCE(NULLIF(?, ''), name),
			headline        = COALESCE(NULLIF(?, ''), headline),
			last_post_url   = ?,
			last_post_urn   = ?,
			last_posted_at  = ?,
			last_post_text  = ?,
			last_post_title = ?,
			category        = COALESCE(NULLIF(?, ''), category),
			role_titles     = COALESCE(?, role_titles),
			employer_name   = COALESCE(NULLIF(?, ''), employer_name),
			position        = COALESCE(NULLIF(?, ''), position),
			employer_id     = COALESCE(NULLIF(?, ''), employer_id),
			employments     = COALESCE(?, employments),
			message         = COALESCE(NULLIF(?, ''), message),
			client_match    = CASE WHEN ? THEN ? ELSE client_match END,
			client_match_id = CASE WHEN ? THEN ? ELSE client_match_id END,
			vendor_match    = CASE WHEN ? THEN ? ELSE vendor_match END,
			vendor_match_id = CASE WHEN ? THEN ? ELSE vendor_match_id END,
			updated_at      = ?
		 WHERE id = ?`,
		lead.Name, lead.Headline,
		lead.LastPostURL, lead.LastPostURN, lead.LastPostedAt, lead.LastPostText, lead.LastPostTitle,
		lead.Category, roleTitles, lead.EmployerName, lead.Position, lead.EmployerID, employments,
		lead.Message,
		hasEmployer, lead.ClientMatch,
		hasEmployer, lead.ClientMatchID,
		hasEmployer, lead.VendorMatch,
		hasEmployer, lead.VendorMatchID,
		now, existingID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: merge lead %s", lead.ProfileID)
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: upsert lead: commit")
	}
	return &model.LeadOutcome{LeadID: existingID, Created: false}, nil
}

func (s *SQLiteStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	l, err := scanLead(s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get lead %s", id)
	}
	return l, nil
}

func (s *SQLiteStore) GetLeadByProfileID(ctx context.Context, profileID string) (*model.Lead, error) {
	l, err := scanLead(s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE profile_id = ?`, profileID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get lead by profile %s", profileID)
	}
	return l, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	var args []any

	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.ExcludeVendors {
		query += ` AND vendor_match = 0`
	}
	query += ` ORDER BY updated_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) CountLeads(ctx context.Context) (*model.LeadCounts, error) {
	var c model.LeadCounts
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*),
		        coalesce(sum(CASE WHEN vendor_match THEN 1 ELSE 0 END), 0),
		        coalesce(sum(CASE WHEN client_match THEN 1 ELSE 0 END), 0),
		        coalesce(sum(CASE WHEN last_contacted_at IS NOT NULL THEN 1 ELSE 0 END), 0)
		 FROM leads`,
	).Scan(&c.Total, &c.Vendor, &c.Client, &c.Contacted)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count leads")
	}
	return &c, nil
}

func (s *SQLiteStore) UpsertDirectoryOrgs(ctx context.Context, orgs []model.DirectoryOrg) (int, error) {
	if len(orgs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert directory: begin tx")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	count := 0
	for _, org := range orgs {
		id := org.ID
		if id == "" {
			id = uuid.New().String()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO directory_orgs (id, name, employer_id, kind, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (employer_id, kind, name) DO UPDATE SET
				name = excluded.name, updated_at = excluded.updated_at`,
			id, org.Name, org.EmployerID, string(org.Kind), now, now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert directory org %s", org.Name)
		}
		count++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert directory: commit")
	}
	return count, nil
}

func (s *SQLiteStore) MatchDirectory(ctx context.Context, employerID, employerName string) (*model.DirectoryMatch, error) {
	if employerID == "" && employerName == "" {
		return &model.DirectoryMatch{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, employer_id, kind, created_at, updated_at FROM directory_orgs
		 WHERE (employer_id = ?1 AND ?1 <> '') OR (lower(name) = lower(?2) AND ?2 <> '')
		 ORDER BY (employer_id = ?1 AND ?1 <> '') DESC, updated_at DESC`,
		employerID, employerName,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: match directory")
	}
	defer rows.Close()

	match := &model.DirectoryMatch{}
	for rows.Next() {
		var org model.DirectoryOrg
		var kind string
		if err := rows.Scan(&org.ID, &org.Name, &org.EmployerID, &kind, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan directory org")
		}
		org.Kind = model.OrgKind(kind)

		switch org.Kind {
		case model.OrgKindClient:
			if match.Client == nil {
				match.Client = &org
			}
		case model.OrgKindVendor:
			if match.Vendor == nil {
				match.Vendor = &org
			}
		}
	}
	return match, eris.Wrap(rows.Err(), "sqlite: match directory iterate")
}

func (s *SQLiteStore) ListDirectoryOrgs(ctx context.Context, kind model.OrgKind) ([]model.DirectoryOrg, error) {
	query := `SELECT id, name, employer_id, kind, created_at, updated_at FROM directory_orgs`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list directory orgs")
	}
	defer rows.Close()

	var orgs []model.DirectoryOrg
	for rows.Next() {
		var org model.DirectoryOrg
		var k string
		if err := rows.Scan(&org.ID, &org.Name, &org.EmployerID, &k, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan directory org")
		}
		org.Kind = model.OrgKind(k)
		orgs = append(orgs, org)
	}
	return orgs, eris.Wrap(rows.Err(), "sqlite: list directory orgs iterate")
}

// checkRowsAffected converts a zero-row update into a not-found error.
func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
