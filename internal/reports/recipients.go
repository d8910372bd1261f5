package reports

import (
	"context"
	"sort"
	"strings"

	"github.com/dropDatabas3/reviewflow/internal/store"
)

// resolveRecipients expands a schedule's distribution (explicit emails,
// role-matched members, id-matched members) into a deduplicated address
// list. Zero recipients is not an error; the caller skips delivery.
func resolveRecipients(ctx context.Context, dir store.MemberDirectory, sch store.ReportSchedule) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(email string) {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" || seen[email] {
			return
		}
		seen[email] = true
		out = append(out, email)
	}

	for _, e := range sch.Emails {
		add(e)
	}

	if len(sch.Roles) > 0 {
		members, err := dir.MembersByRoles(ctx, sch.TenantID, sch.Roles)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			add(m.Email)
		}
	}

	if len(sch.UserIDs) > 0 {
		members, err := dir.MembersByIDs(ctx, sch.TenantID, sch.UserIDs)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			add(m.Email)
		}
	}

	sort.Strings(out)
	return out, nil
}
