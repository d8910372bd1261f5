// Package pg implements the store contracts on PostgreSQL via pgxpool.
package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/reviewflow/internal/provider"
	"github.com/dropDatabas3/reviewflow/internal/security/secretbox"
	"github.com/dropDatabas3/reviewflow/internal/store"
)

// Store implements store.CredentialStore, store.ReportStore and
// store.MemberDirectory on a pgx pool. When Box is non-nil, provider
// tokens are sealed before hitting the database.
type Store struct {
	pool *pgxpool.Pool
	box  *secretbox.Box
}

// New wraps an existing pool. box may be nil (plaintext tokens, dev only).
func New(pool *pgxpool.Pool, box *secretbox.Box) *Store {
	return &Store{pool: pool, box: box}
}

// Connect opens a pool and pings it.
func Connect(ctx context.Context, dsn string, box *secretbox.Box) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}
	return New(pool, box), nil
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// Pool exposes the underlying pool (readiness checks, migrations).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) sealToken(t string) (string, error) {
	if s.box == nil || t == "" {
		return t, nil
	}
	return s.box.Seal(t)
}

func (s *Store) openToken(t string) (string, error) {
	if s.box == nil || t == "" {
		return t, nil
	}
	return s.box.Open(t)
}

func (s *Store) UpsertCredential(ctx context.Context, c store.Credential) error {
	access, err := s.sealToken(c.AccessToken)
	if err != nil {
		return fmt.Errorf("seal access token: %w", err)
	}
	refresh, err := s.sealToken(c.RefreshToken)
	if err != nil {
		return fmt.Errorf("seal refresh token: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO social_connection
			(tenant_id, provider, access_token, refresh_token, expires_at,
			 external_account_id, display_name, avatar_url, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (tenant_id, provider) DO UPDATE SET
			access_token        = EXCLUDED.access_token,
			refresh_token       = EXCLUDED.refresh_token,
			expires_at          = EXCLUDED.expires_at,
			external_account_id = EXCLUDED.external_account_id,
			display_name        = EXCLUDED.display_name,
			avatar_url          = EXCLUDED.avatar_url,
			updated_at          = NOW()
	`, c.TenantID, string(c.Provider), access, nullIfEmpty(refresh), c.ExpiresAt,
		c.ExternalAccountID, c.DisplayName, c.AvatarURL)
	if err != nil {
		return fmt.Errorf("upsert social_connection: %w", err)
	}
	return nil
}

func (s *Store) GetCredential(ctx context.Context, tenantID string, p provider.Name) (*store.Credential, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT tenant_id, provider, access_token, COALESCE(refresh_token, ''),
		       expires_at, external_account_id, display_name, avatar_url, updated_at
		FROM social_connection
		WHERE tenant_id = $1 AND provider = $2
	`, tenantID, string(p))

	c, err := s.scanCredential(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("get social_connection: %w", err)
	}
	return c, nil
}

func (s *Store) ListCredentials(ctx context.Context, tenantID string) ([]store.Credential, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tenant_id, provider, access_token, COALESCE(refresh_token, ''),
		       expires_at, external_account_id, display_name, avatar_url, updated_at
		FROM social_connection
		WHERE tenant_id = $1
		ORDER BY provider
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list social_connection: %w", err)
	}
	defer rows.Close()

	var out []store.Credential
	for rows.Next() {
		c, err := s.scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan social_connection: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanCredential(row rowScanner) (*store.Credential, error) {
	var (
		c    store.Credential
		prov string
	)
	if err := row.Scan(&c.TenantID, &prov, &c.AccessToken, &c.RefreshToken,
		&c.ExpiresAt, &c.ExternalAccountID, &c.DisplayName, &c.AvatarURL, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Provider = provider.Name(prov)

	var err error
	if c.AccessToken, err = s.openToken(c.AccessToken); err != nil {
		return nil, fmt.Errorf("open access token: %w", err)
	}
	if c.RefreshToken, err = s.openToken(c.RefreshToken); err != nil {
		return nil, fmt.Errorf("open refresh token: %w", err)
	}
	return &c, nil
}

func (s *Store) UpsertSchedule(ctx context.Context, sch store.ReportSchedule) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO report_schedule
			(id, tenant_id, name, frequency, custom_days, next_run_at, enabled,
			 emails, roles, user_ids, last_sent, last_run_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name            = EXCLUDED.name,
			frequency       = EXCLUDED.frequency,
			custom_days     = EXCLUDED.custom_days,
			next_run_at     = EXCLUDED.next_run_at,
			enabled         = EXCLUDED.enabled,
			emails          = EXCLUDED.emails,
			roles           = EXCLUDED.roles,
			user_ids        = EXCLUDED.user_ids,
			last_sent       = EXCLUDED.last_sent,
			last_run_status = EXCLUDED.last_run_status
	`, sch.ID, sch.TenantID, sch.Name, string(sch.Frequency), sch.CustomDays,
		sch.NextRunAt, sch.Enabled, sch.Emails, sch.Roles, sch.UserIDs,
		sch.LastSent, string(sch.LastRunStatus))
	if err != nil {
		return fmt.Errorf("upsert report_schedule: %w", err)
	}
	return nil
}

func (s *Store) DueSchedules(ctx context.Context, now time.Time) ([]store.ReportSchedule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, name, frequency, custom_days, next_run_at, enabled,
		       emails, roles, user_ids, last_sent, last_run_status
		FROM report_schedule
		WHERE enabled AND (next_run_at IS NULL OR next_run_at <= $1)
		ORDER BY tenant_id, id
	`, now)
	if err != nil {
		return nil, fmt.Errorf("due report_schedule: %w", err)
	}
	defer rows.Close()

	var out []store.ReportSchedule
	for rows.Next() {
		var (
			sch        store.ReportSchedule
			freq, last string
		)
		if err := rows.Scan(&sch.ID, &sch.TenantID, &sch.Name, &freq, &sch.CustomDays,
			&sch.NextRunAt, &sch.Enabled, &sch.Emails, &sch.Roles, &sch.UserIDs,
			&sch.LastSent, &last); err != nil {
			return nil, fmt.Errorf("scan report_schedule: %w", err)
		}
		sch.Frequency = store.Frequency(freq)
		sch.LastRunStatus = store.RunStatus(last)
		out = append(out, sch)
	}
	return out, rows.Err()
}

func (s *Store) RecordOutcome(ctx context.Context, id string, status store.RunStatus, sentAt, nextRun time.Time) error {
	var lastSent *time.Time
	if status == store.RunSuccess {
		lastSent = &sentAt
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE report_schedule
		SET last_run_status = $2,
		    last_sent       = COALESCE($3, last_sent),
		    next_run_at     = $4
		WHERE id = $1
	`, id, string(status), lastSent, nextRun)
	if err != nil {
		return fmt.Errorf("record report outcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrScheduleNotFound
	}
	return nil
}

func (s *Store) MembersByRoles(ctx context.Context, tenantID string, roles []string) ([]store.Member, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, email, role FROM org_member
		WHERE tenant_id = $1 AND LOWER(role) = ANY($2)
	`, tenantID, lowerAll(roles))
	if err != nil {
		return nil, fmt.Errorf("members by roles: %w", err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

func (s *Store) MembersByIDs(ctx context.Context, tenantID string, ids []string) ([]store.Member, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, email, role FROM org_member
		WHERE tenant_id = $1 AND user_id = ANY($2)
	`, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("members by ids: %w", err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

func scanMembers(rows pgx.Rows) ([]store.Member, error) {
	var out []store.Member
	for rows.Next() {
		var m store.Member
		if err := rows.Scan(&m.UserID, &m.Email, &m.Role); err != nil {
			return nil, fmt.Errorf("scan org_member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// nullIfEmpty returns nil for empty strings so optional columns store NULL.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
