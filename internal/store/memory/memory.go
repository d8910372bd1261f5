// Package memory implements the store contracts in process memory.
// Used by tests and single-node dev setups without Postgres.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dropDatabas3/reviewflow/internal/provider"
	"github.com/dropDatabas3/reviewflow/internal/store"
)

// Store implements store.CredentialStore, store.ReportStore and
// store.MemberDirectory. Last write wins, like the pg upserts.
type Store struct {
	mu        sync.RWMutex
	creds     map[credKey]store.Credential
	schedules map[string]store.ReportSchedule
	members   map[string][]store.Member // tenantID -> members
}

type credKey struct {
	tenantID string
	provider provider.Name
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		creds:     make(map[credKey]store.Credential),
		schedules: make(map[string]store.ReportSchedule),
		members:   make(map[string][]store.Member),
	}
}

func (s *Store) UpsertCredential(ctx context.Context, c store.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.UpdatedAt = time.Now().UTC()
	s.creds[credKey{c.TenantID, c.Provider}] = c
	return nil
}

func (s *Store) GetCredential(ctx context.Context, tenantID string, p provider.Name) (*store.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.creds[credKey{tenantID, p}]
	if !ok {
		return nil, store.ErrCredentialNotFound
	}
	out := c
	return &out, nil
}

func (s *Store) ListCredentials(ctx context.Context, tenantID string) ([]store.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.Credential
	for k, c := range s.creds {
		if k.tenantID == tenantID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out, nil
}

func (s *Store) UpsertSchedule(ctx context.Context, sch store.ReportSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[sch.ID] = sch
	return nil
}

func (s *Store) DueSchedules(ctx context.Context, now time.Time) ([]store.ReportSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.ReportSchedule
	for _, sch := range s.schedules {
		if !sch.Enabled {
			continue
		}
		if sch.NextRunAt == nil || !sch.NextRunAt.After(now) {
			out = append(out, sch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) RecordOutcome(ctx context.Context, id string, status store.RunStatus, sentAt, nextRun time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sch, ok := s.schedules[id]
	if !ok {
		return store.ErrScheduleNotFound
	}
	sch.LastRunStatus = status
	if status == store.RunSuccess {
		t := sentAt
		sch.LastSent = &t
	}
	n := nextRun
	sch.NextRunAt = &n
	s.schedules[id] = sch
	return nil
}

// Schedule returns a schedule by id. Test helper.
func (s *Store) Schedule(id string) (store.ReportSchedule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sch, ok := s.schedules[id]
	return sch, ok
}

// AddMember registers an org member for recipient resolution.
func (s *Store) AddMember(tenantID string, m store.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[tenantID] = append(s.members[tenantID], m)
}

func (s *Store) MembersByRoles(ctx context.Context, tenantID string, roles []string) ([]store.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[string]bool, len(roles))
	for _, r := range roles {
		want[strings.ToLower(r)] = true
	}
	var out []store.Member
	for _, m := range s.members[tenantID] {
		if want[strings.ToLower(m.Role)] {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) MembersByIDs(ctx context.Context, tenantID string, ids []string) ([]store.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []store.Member
	for _, m := range s.members[tenantID] {
		if want[m.UserID] {
			out = append(out, m)
		}
	}
	return out, nil
}
