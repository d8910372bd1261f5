// Package store defines the persistence contracts for Reviewflow's OAuth
// credentials and report schedules, plus the adapters implementing them
// (pg for production, memory for tests and single-node dev).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/reviewflow/internal/provider"
)

var (
	// ErrCredentialNotFound: no credential row for (tenant, provider).
	// Callers must prompt reconnection.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrScheduleNotFound: no report schedule with that id.
	ErrScheduleNotFound = errors.New("report schedule not found")
)

// Credential is one tenant's connection to one provider. Exactly one row
// per (TenantID, Provider) pair, enforced by upsert-on-conflict.
type Credential struct {
	TenantID          string
	Provider          provider.Name
	AccessToken       string
	RefreshToken      string     // empty when the provider issues none
	ExpiresAt         *time.Time // nil = treat as non-expiring
	ExternalAccountID string
	DisplayName       string
	AvatarURL         string
	UpdatedAt         time.Time
}

// Expired reports whether the access token must not be handed out without
// a refresh attempt first.
func (c *Credential) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// CredentialStore persists per-tenant provider credentials.
type CredentialStore interface {
	// UpsertCredential atomically inserts or replaces the row keyed by
	// (TenantID, Provider). Single transactional write: never a partial row.
	UpsertCredential(ctx context.Context, c Credential) error

	// GetCredential returns ErrCredentialNotFound when absent.
	GetCredential(ctx context.Context, tenantID string, p provider.Name) (*Credential, error)

	// ListCredentials returns all of a tenant's connections.
	ListCredentials(ctx context.Context, tenantID string) ([]Credential, error)
}

// Frequency of a scheduled report.
type Frequency string

const (
	Daily     Frequency = "daily"
	Weekly    Frequency = "weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Custom    Frequency = "custom"
)

// RunStatus records the outcome of one dispatch attempt.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunFailure RunStatus = "failure"
	// RunSkipped: the cycle found nothing to deliver (zero recipients).
	// Advances NextRunAt like the others but never touches LastSent.
	RunSkipped RunStatus = "skipped"
)

// ReportSchedule is one configured report owned by a tenant.
type ReportSchedule struct {
	ID         string
	TenantID   string
	Name       string
	Frequency  Frequency
	CustomDays int        // interval in days when Frequency == Custom
	NextRunAt  *time.Time // nil or past = due
	Enabled    bool

	// Distribution: explicit emails, role names and user ids, resolved to
	// a deduplicated recipient list at dispatch time.
	Emails  []string
	Roles   []string
	UserIDs []string

	LastSent      *time.Time
	LastRunStatus RunStatus
}

// ReportStore persists report schedules with row-level updates (never a
// serialize-whole-array-back write).
type ReportStore interface {
	UpsertSchedule(ctx context.Context, s ReportSchedule) error

	// DueSchedules returns enabled schedules with NextRunAt unset or <= now.
	DueSchedules(ctx context.Context, now time.Time) ([]ReportSchedule, error)

	// RecordOutcome writes the attempt outcome and advances NextRunAt for a
	// single schedule. Called after every attempt, success or failure.
	RecordOutcome(ctx context.Context, id string, status RunStatus, sentAt, nextRun time.Time) error
}

// Member is an organization member, read here only to resolve report
// recipients. Membership management is owned elsewhere.
type Member struct {
	UserID string
	Email  string
	Role   string
}

// MemberDirectory resolves tenant members by role or id.
type MemberDirectory interface {
	MembersByRoles(ctx context.Context, tenantID string, roles []string) ([]Member, error)
	MembersByIDs(ctx context.Context, tenantID string, ids []string) ([]Member, error)
}
