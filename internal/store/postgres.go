package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/talentsignal/signal-cli/internal/db"
	"github.com/talentsignal/signal-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest store operations.
var preparedStatements = map[string]string{
	"get_item":           `SELECT ` + itemColumns + ` FROM items WHERE id = $1`,
	"get_item_by_urn":    `SELECT ` + itemColumns + ` FROM items WHERE urn = $1`,
	"get_lead_by_pid":    `SELECT ` + leadColumns + ` FROM leads WHERE profile_id = $1`,
	"count_items_status": `SELECT status, count(*) FROM items GROUP BY status`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests and by callers
// that manage pool lifetime themselves.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for use by subsystems that need
// direct query access (e.g., bulk directory import).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS items (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	urn                TEXT NOT NULL UNIQUE,
	text               TEXT NOT NULL,
	title              TEXT NOT NULL DEFAULT '',
	author_name        TEXT NOT NULL DEFAULT '',
	author_profile_id  TEXT NOT NULL DEFAULT '',
	author_profile_url TEXT NOT NULL DEFAULT '',
	posted_at          TIMESTAMPTZ,
	batch_id           TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL DEFAULT 'pending',
	stage1_relevant    BOOLEAN,
	stage1_roles       JSONB,
	stage2_accepted    BOOLEAN,
	stage2_language    TEXT NOT NULL DEFAULT '',
	stage2_location    TEXT NOT NULL DEFAULT '',
	stage2_reason      TEXT NOT NULL DEFAULT '',
	stage3_category    TEXT NOT NULL DEFAULT '',
	stage3_roles       JSONB,
	employer_name      TEXT NOT NULL DEFAULT '',
	employer_id        TEXT NOT NULL DEFAULT '',
	position           TEXT NOT NULL DEFAULT '',
	phone              TEXT NOT NULL DEFAULT '',
	enrichment_raw     JSONB,
	enrichment_skipped BOOLEAN NOT NULL DEFAULT false,
	client_match       BOOLEAN NOT NULL DEFAULT false,
	client_match_id    TEXT NOT NULL DEFAULT '',
	vendor_match       BOOLEAN NOT NULL DEFAULT false,
	vendor_match_id    TEXT NOT NULL DEFAULT '',
	message            TEXT NOT NULL DEFAULT '',
	message_fallback   BOOLEAN NOT NULL DEFAULT false,
	message_error      TEXT NOT NULL DEFAULT '',
	retry_count        INTEGER NOT NULL DEFAULT 0,
	last_retry_at      TIMESTAMPTZ,
	next_retry_at      TIMESTAMPTZ,
	lead_id            TEXT,
	last_error         TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_items_status ON items(status);
CREATE INDEX IF NOT EXISTS idx_items_batch_id ON items(batch_id);
CREATE INDEX IF NOT EXISTS idx_items_status_created ON items(status, created_at);
CREATE INDEX IF NOT EXISTS idx_items_next_retry ON items(next_retry_at) WHERE status = 'retry_scheduled';

CREATE TABLE IF NOT EXISTS leads (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	profile_id        TEXT NOT NULL UNIQUE,
	name              TEXT NOT NULL DEFAULT '',
	headline          TEXT NOT NULL DEFAULT '',
	last_post_url     TEXT NOT NULL DEFAULT '',
	last_post_urn     TEXT NOT NULL DEFAULT '',
	last_posted_at    TIMESTAMPTZ,
	last_post_text    TEXT NOT NULL DEFAULT '',
	last_post_title   TEXT NOT NULL DEFAULT '',
	category          TEXT NOT NULL DEFAULT '',
	role_titles       JSONB,
	employer_name     TEXT NOT NULL DEFAULT '',
	position          TEXT NOT NULL DEFAULT '',
	employer_id       TEXT NOT NULL DEFAULT '',
	employments       JSONB,
	message           TEXT NOT NULL DEFAULT '',
	client_match      BOOLEAN NOT NULL DEFAULT false,
	client_match_id   TEXT NOT NULL DEFAULT '',
	vendor_match      BOOLEAN NOT NULL DEFAULT false,
	vendor_match_id   TEXT NOT NULL DEFAULT '',
	last_contacted_at TIMESTAMPTZ,
	last_contacted_by TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_category ON leads(category);
CREATE INDEX IF NOT EXISTS idx_leads_employer_id ON leads(employer_id);
CREATE INDEX IF NOT EXISTS idx_leads_vendor_match ON leads(vendor_match);

CREATE TABLE IF NOT EXISTS directory_orgs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name        TEXT NOT NULL,
	employer_id TEXT NOT NULL DEFAULT '',
	kind        TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (employer_id, kind, name)
);

CREATE INDEX IF NOT EXISTS idx_directory_orgs_employer ON directory_orgs(employer_id);
CREATE INDEX IF NOT EXISTS idx_directory_orgs_name ON directory_orgs(lower(name));
CREATE INDEX IF NOT EXISTS idx_directory_orgs_kind ON directory_orgs(kind);
`

const itemColumns = `id, urn, text, title, author_name, author_profile_id, author_profile_url,
	posted_at, batch_id, status,
	stage1_relevant, stage1_roles, stage2_accepted, stage2_language, stage2_location, stage2_reason,
	stage3_category, stage3_roles,
	employer_name, employer_id, position, phone, enrichment_raw, enrichment_skipped,
	client_match, client_match_id, vendor_match, vendor_match_id,
	message, message_fallback, message_error,
	retry_count, last_retry_at, next_retry_at, lead_id, last_error, created_at, updated_at`

const leadColumns = `id, profile_id, name, headline,
	last_post_url, last_post_urn, last_posted_at, last_post_text, last_post_title,
	category, role_titles, employer_name, position, employer_id, employments,
	message, client_match, client_match_id, vendor_match, vendor_match_id,
	last_contacted_at, last_contacted_by, created_at, updated_at`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// rolesJSON marshals a role slice for a JSONB column, mapping empty to NULL.
func rolesJSON(roles []string) (any, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(roles)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal roles")
	}
	return b, nil
}

// scanner covers pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*model.Item, error) {
	var it model.Item
	var stage1Roles, stage3Roles, enrichmentRaw []byte

	err := row.Scan(
		&it.ID, &it.URN, &it.Text, &it.Title, &it.AuthorName, &it.AuthorProfileID, &it.AuthorProfileURL,
		&it.PostedAt, &it.BatchID, &it.Status,
		&it.Stage1Relevant, &stage1Roles, &it.Stage2Accepted, &it.Stage2Language, &it.Stage2Location, &it.Stage2Reason,
		&it.Stage3Category, &stage3Roles,
		&it.EmployerName, &it.EmployerID, &it.Position, &it.Phone, &enrichmentRaw, &it.EnrichmentSkipped,
		&it.ClientMatch, &it.ClientMatchID, &it.VendorMatch, &it.VendorMatchID,
		&it.Message, &it.MessageFallback, &it.MessageError,
		&it.RetryCount, &it.LastRetryAt, &it.NextRetryAt, &it.LeadID, &it.LastError, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(stage1Roles) > 0 {
		if err := json.Unmarshal(stage1Roles, &it.Stage1Roles); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal stage1 roles")
		}
	}
	if len(stage3Roles) > 0 {
		if err := json.Unmarshal(stage3Roles, &it.Stage3Roles); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal stage3 roles")
		}
	}
	it.EnrichmentRaw = enrichmentRaw
	return &it, nil
}

func scanLead(row scanner) (*model.Lead, error) {
	var l model.Lead
	var roleTitles, employments []byte

	err := row.Scan(
		&l.ID, &l.ProfileID, &l.Name, &l.Headline,
		&l.LastPostURL, &l.LastPostURN, &l.LastPostedAt, &l.LastPostText, &l.LastPostTitle,
		&l.Category, &roleTitles, &l.EmployerName, &l.Position, &l.EmployerID, &employments,
		&l.Message, &l.ClientMatch, &l.ClientMatchID, &l.VendorMatch, &l.VendorMatchID,
		&l.LastContactedAt, &l.LastContactedBy, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(roleTitles) > 0 {
		if err := json.Unmarshal(roleTitles, &l.RoleTitles); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal role titles")
		}
	}
	if len(employments) > 0 {
		if err := json.Unmarshal(employments, &l.Employments); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal employments")
		}
	}
	return &l, nil
}

// InsertItems inserts new items, skipping any whose URN already exists.
// Returns the number actually inserted.
func (s *PostgresStore) InsertItems(ctx context.Context, items []model.Item) (int, error) {
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

		tag, err := s.pool.Exec(ctx,
			`INSERT INTO items (id, urn, text, title, author_name, author_profile_id, author_profile_url, posted_at, status, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
			 ON CONFLICT (urn) DO NOTHING`,
			it.ID, it.URN, it.Text, it.Title, it.AuthorName, it.AuthorProfileID, it.AuthorProfileURL,
			it.PostedAt, string(it.Status), now,
		)
		if err != nil {
			return inserted, eris.Wrapf(err, "postgres: insert item %s", it.URN)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (s *PostgresStore) GetItem(ctx context.Context, id string) (*model.Item, error) {
	it, err := scanItem(s.pool.QueryRow(ctx, "get_item", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get item %s", id)
	}
	return it, nil
}

func (s *PostgresStore) GetItemByURN(ctx context.Context, urn string) (*model.Item, error) {
	it, err := scanItem(s.pool.QueryRow(ctx, "get_item_by_urn", urn))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get item by urn %s", urn)
	}
	return it, nil
}

func (s *PostgresStore) ListItems(ctx context.Context, filter ItemFilter) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.BatchID != "" {
		query += fmt.Sprintf(` AND batch_id = $%d`, argIdx)
		args = append(args, filter.BatchID)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list items")
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan item")
		}
		items = append(items, *it)
	}
	return items, eris.Wrap(rows.Err(), "postgres: list items iterate")
}

func (s *PostgresStore) UpdateItem(ctx context.Context, item *model.Item) error {
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
		enrichmentRaw = item.EnrichmentRaw
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE items SET
			batch_id = $1, status = $2,
			stage1_relevant = $3, stage1_roles = $4,
			stage2_accepted = $5, stage2_language = $6, stage2_location = $7, stage2_reason = $8,
			stage3_category = $9, stage3_roles = $10,
			employer_name = $11, employer_id = $12, position = $13, phone = $14,
			enrichment_raw = $15, enrichment_skipped = $16,
			client_match = $17, client_match_id = $18, vendor_match = $19, vendor_match_id = $20,
			message = $21, message_fallback = $22, message_error = $23,
			retry_count = $24, last_retry_at = $25, next_retry_at = $26,
			lead_id = $27, last_error = $28, updated_at = $29
		 WHERE id = $30`,
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
		return eris.Wrapf(err, "postgres: update item %s", item.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("item not found: %s", item.ID)
	}
	return nil
}

// ClaimPending atomically flips up to limit pending items to in_flight and
// stamps them with the batch ID. SKIP LOCKED keeps concurrent batch triggers
// from claiming the same rows.
func (s *PostgresStore) ClaimPending(ctx context.Context, batchID string, limit int) ([]model.Item, error) {
	rows, err := s.pool.Query(ctx,
		`UPDATE items SET status = $1, batch_id = $2, updated_at = now()
		 WHERE id IN (
			SELECT id FROM items WHERE status = $3
			ORDER BY created_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+itemColumns,
		string(model.StatusInFlight), batchID, string(model.StatusPending), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: claim pending")
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan claimed item")
		}
		items = append(items, *it)
	}
	return items, eris.Wrap(rows.Err(), "postgres: claim pending iterate")
}

// ClaimDueRetries atomically claims retry-scheduled items whose backoff
// window has passed.
func (s *PostgresStore) ClaimDueRetries(ctx context.Context, limit int) ([]model.Item, error) {
	rows, err := s.pool.Query(ctx,
		`UPDATE items SET status = $1, updated_at = now()
		 WHERE id IN (
			SELECT id FROM items
			WHERE status = $2 AND next_retry_at <= now()
			ORDER BY next_retry_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+itemColumns,
		string(model.StatusInFlight), string(model.StatusRetryScheduled), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: claim due retries")
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan retry item")
		}
		items = append(items, *it)
	}
	return items, eris.Wrap(rows.Err(), "postgres: claim due retries iterate")
}

// RearmFailed is the operator repair action: failed and error items that have
// sat terminal for at least olderThan go back to pending. The retry count is
// preserved so the repair history stays visible. Returns the number rearmed.
func (s *PostgresStore) RearmFailed(ctx context.Context, olderThan time.Duration) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE items SET status = $1, next_retry_at = NULL, updated_at = now()
		 WHERE status = ANY($2) AND updated_at <= now() - ($3 * interval '1 second')`,
		string(model.StatusPending),
		[]string{string(model.StatusFailed), string(model.StatusError)},
		int64(olderThan.Seconds()),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: rearm failed")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) CountItemsByStatus(ctx context.Context) (map[model.ProcessingStatus]int, error) {
	rows, err := s.pool.Query(ctx, "count_items_status")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count items by status")
	}
	defer rows.Close()

	counts := make(map[model.ProcessingStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan status count")
		}
		counts[model.ProcessingStatus(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "postgres: count items iterate")
}

// UpsertLead reconciles an item's extracted lead against the registry in one
// atomic statement. Latest-post fields always take the new value; sticky
// fields keep the existing value unless the new one is non-empty; contact
// history is never touched. The xmax trick distinguishes insert from update.
func (s *PostgresStore) UpsertLead(ctx context.Context, lead *model.Lead) (*model.LeadOutcome, error) {
	if lead.ProfileID == "" {
		return nil, eris.New("postgres: upsert lead: profile_id is required")
	}

	roleTitles, err := rolesJSON(lead.RoleTitles)
	if err != nil {
		return nil, err
	}
	var employments any
	if len(lead.Employments) > 0 {
		b, err := json.Marshal(lead.Employments)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal employments")
		}
		employments = b
	}

	id := lead.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()

	var outcome model.LeadOutcome
	err = s.pool.QueryRow(ctx,
		`INSERT INTO leads (id, profile_id, name, headline,
			last_post_url, last_post_urn, last_posted_at, last_post_text, last_post_title,
			category, role_titles, employer_name, position, employer_id, employments,
			message, client_match, client_match_id, vendor_match, vendor_match_id,
			created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $21)
		 ON CONFLICT (profile_id) DO UPDATE SET
			name            = COALESCE(NULLIF(EXCLUDED.name, ''), leads.name),
			headline        = COALESCE(NULLIF(EXCLUDED.headline, ''), leads.headline),
			last_post_url   = EXCLUDED.last_post_url,
			last_post_urn   = EXCLUDED.last_post_urn,
			last_posted_at  = EXCLUDED.last_posted_at,
			last_post_text  = EXCLUDED.last_post_text,
			last_post_title = EXCLUDED.last_post_title,
			category        = COALESCE(NULLIF(EXCLUDED.category, ''), leads.category),
			role_titles     = COALESCE(EXCLUDED.role_titles, leads.role_titles),
			employer_name   = COALESCE(NULLIF(EXCLUDED.employer_name, ''), leads.employer_name),
			position        = COALESCE(NULLIF(EXCLUDED.position, ''), leads.position),
			employer_id     = COALESCE(NULLIF(EXCLUDED.employer_id, ''), leads.employer_id),
			employments     = COALESCE(EXCLUDED.employments, leads.employments),
			message         = COALESCE(NULLIF(EXCLUDED.message, ''), leads.message),
			client_match    = CASE WHEN NULLIF(EXCLUDED.employer_name, '') IS NULL THEN leads.client_match ELSE EXCLUDED.client_match END,
			client_match_id = CASE WHEN NULLIF(EXCLUDED.employer_name, '') IS NULL THEN leads.client_match_id ELSE EXCLUDED.client_match_id END,
			vendor_match    = CASE WHEN NULLIF(EXCLUDED.employer_name, '') IS NULL THEN leads.vendor_match ELSE EXCLUDED.vendor_match END,
			vendor_match_id = CASE WHEN NULLIF(EXCLUDED.employer_name, '') IS NULL THEN leads.vendor_match_id ELSE EXCLUDED.vendor_match_id END,
			updated_at      = EXCLUDED.updated_at
		 RETURNING id, (xmax = 0) AS inserted`,
		id, lead.ProfileID, lead.Name, lead.Headline,
		lead.LastPostURL, lead.LastPostURN, lead.LastPostedAt, lead.LastPostText, lead.LastPostTitle,
		lead.Category, roleTitles, lead.EmployerName, lead.Position, lead.EmployerID, employments,
		lead.Message, lead.ClientMatch, lead.ClientMatchID, lead.VendorMatch, lead.VendorMatchID,
		now,
	).Scan(&outcome.LeadID, &outcome.Created)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert lead %s", lead.ProfileID)
	}
	return &outcome, nil
}

func (s *PostgresStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	l, err := scanLead(s.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get lead %s", id)
	}
	return l, nil
}

func (s *PostgresStore) GetLeadByProfileID(ctx context.Context, profileID string) (*model.Lead, error) {
	l, err := scanLead(s.pool.QueryRow(ctx, "get_lead_by_pid", profileID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get lead by profile %s", profileID)
	}
	return l, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Category != "" {
		query += fmt.Sprintf(` AND category = $%d`, argIdx)
		args = append(args, filter.Category)
		argIdx++
	}
	if filter.ExcludeVendors {
		query += ` AND vendor_match = false`
	}
	query += ` ORDER BY updated_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) CountLeads(ctx context.Context) (*model.LeadCounts, error) {
	var c model.LeadCounts
	err := s.pool.QueryRow(ctx,
		`SELECT count(*),
		        count(*) FILTER (WHERE vendor_match),
		        count(*) FILTER (WHERE client_match),
		        count(*) FILTER (WHERE last_contacted_at IS NOT NULL)
		 FROM leads`,
	).Scan(&c.Total, &c.Vendor, &c.Client, &c.Contacted)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count leads")
	}
	return &c, nil
}

// UpsertDirectoryOrgs bulk-loads directory rows via a temp table and
// INSERT ... ON CONFLICT. Used by both the file import and the CRM sync.
func (s *PostgresStore) UpsertDirectoryOrgs(ctx context.Context, orgs []model.DirectoryOrg) (int, error) {
	if len(orgs) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(orgs))
	for _, org := range orgs {
		id := org.ID
		if id == "" {
			id = uuid.New().String()
		}
		rows = append(rows, []any{id, org.Name, org.EmployerID, string(org.Kind), now, now})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "directory_orgs",
		Columns:      []string{"id", "name", "employer_id", "kind", "created_at", "updated_at"},
		ConflictKeys: []string{"employer_id", "kind", "name"},
		UpdateCols:   []string{"name", "updated_at"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert directory orgs")
	}
	return int(n), nil
}

// MatchDirectory looks up an employer against both directory partitions.
// Identifier matches rank above name matches.
func (s *PostgresStore) MatchDirectory(ctx context.Context, employerID, employerName string) (*model.DirectoryMatch, error) {
	if employerID == "" && employerName == "" {
		return &model.DirectoryMatch{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, name, employer_id, kind, created_at, updated_at FROM directory_orgs
		 WHERE (employer_id = $1 AND $1 <> '') OR (lower(name) = lower($2) AND $2 <> '')
		 ORDER BY (employer_id = $1 AND $1 <> '') DESC, updated_at DESC`,
		employerID, employerName,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: match directory")
	}
	defer rows.Close()

	match := &model.DirectoryMatch{}
	for rows.Next() {
		var org model.DirectoryOrg
		var kind string
		if err := rows.Scan(&org.ID, &org.Name, &org.EmployerID, &kind, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan directory org")
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
	return match, eris.Wrap(rows.Err(), "postgres: match directory iterate")
}

func (s *PostgresStore) ListDirectoryOrgs(ctx context.Context, kind model.OrgKind) ([]model.DirectoryOrg, error) {
	query := `SELECT id, name, employer_id, kind, created_at, updated_at FROM directory_orgs`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = $1`
		args = append(args, string(kind))
	}
	query += ` ORDER BY name`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list directory orgs")
	}
	defer rows.Close()

	var orgs []model.DirectoryOrg
	for rows.Next() {
		var org model.DirectoryOrg
		var k string
		if err := rows.Scan(&org.ID, &org.Name, &org.EmployerID, &k, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan directory org")
		}
		org.Kind = model.OrgKind(k)
		orgs = append(orgs, org)
	}
	return orgs, eris.Wrap(rows.Err(), "postgres: list directory orgs iterate")
}
