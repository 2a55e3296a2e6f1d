package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/timesapp/times-bot/internal/platform"
)

// fixedNow pins the clock so century-window tests are stable.
var fixedNow = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

func rolesByID(roles ...*platform.Role) map[string]*platform.Role {
	out := make(map[string]*platform.Role, len(roles))
	for _, r := range roles {
		out[r.ID] = r
	}
	return out
}

func memberWithRoles(roleIDs ...string) *platform.Member {
	return &platform.Member{
		UserID:   "u1",
		Username: "alice",
		RoleIDs:  roleIDs,
	}
}

func TestResolveCategory_DefaultWhenNothingMatches(t *testing.T) {
	roles := rolesByID(
		&platform.Role{ID: "r1", Name: "members"},
		&platform.Role{ID: "r2", Name: "engineering"},
	)

	got := ResolveCategory(memberWithRoles("r1", "r2"), roles, nil, "times", fixedNow)
	assert.Equal(t, "times", got)
}

func TestResolveCategory_ExplicitMappingWins(t *testing.T) {
	roles := rolesByID(
		&platform.Role{ID: "r1", Name: "27卒"}, // would also match the cohort pattern
		&platform.Role{ID: "r2", Name: "staff"},
	)
	mappings := map[string]string{"r1": "veterans"}

	got := ResolveCategory(memberWithRoles("r2", "r1"), roles, mappings, "times", fixedNow)
	assert.Equal(t, "veterans", got)
}

func TestResolveCategory_FirstMappedRoleInOrderWins(t *testing.T) {
	roles := rolesByID(
		&platform.Role{ID: "r1", Name: "a"},
		&platform.Role{ID: "r2", Name: "b"},
	)
	mappings := map[string]string{"r1": "cat-one", "r2": "cat-two"}

	// Tie-break is the member's role order, not the mapping.
	assert.Equal(t, "cat-one",
		ResolveCategory(memberWithRoles("r1", "r2"), roles, mappings, "times", fixedNow))
	assert.Equal(t, "cat-two",
		ResolveCategory(memberWithRoles("r2", "r1"), roles, mappings, "times", fixedNow))
}

func TestResolveCategory_CohortPattern(t *testing.T) {
	tests := []struct {
		roleName string
		want     string
	}{
		{"27卒", "27-times"},
		{"99卒", "99-times"},
		{"2027年", "27-times"},
		{"1999年", "99-times"},
		{"新卒27卒", "27-times"},
		// Two digits at the upper edge of the century window (current year
		// 2026, tolerance 10): both sides of the boundary keep their
		// trailing digits.
		{"36卒", "36-times"},
		{"37卒", "37-times"},
	}

	for _, tt := range tests {
		t.Run(tt.roleName, func(t *testing.T) {
			roles := rolesByID(&platform.Role{ID: "r1", Name: tt.roleName})
			got := ResolveCategory(memberWithRoles("r1"), roles, nil, "times", fixedNow)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveCategory_CohortIgnoresNonMatchingRoles(t *testing.T) {
	roles := rolesByID(
		&platform.Role{ID: "r1", Name: "mentor"},
		&platform.Role{ID: "r2", Name: "28卒"},
		&platform.Role{ID: "r3", Name: "29卒"},
	)

	// Only the first matching role is used.
	got := ResolveCategory(memberWithRoles("r1", "r2", "r3"), roles, nil, "times", fixedNow)
	assert.Equal(t, "28-times", got)
}

func TestResolveCategory_UnmappedRolesDoNotShadowMapping(t *testing.T) {
	roles := rolesByID(
		&platform.Role{ID: "r1", Name: "random"},
		&platform.Role{ID: "r2", Name: "alpha"},
	)
	mappings := map[string]string{"r2": "27-times"}

	got := ResolveCategory(memberWithRoles("r1", "r2"), roles, mappings, "times", fixedNow)
	assert.Equal(t, "27-times", got)
}

func TestResolveCategory_MissingRoleRecordSkipped(t *testing.T) {
	// The member references a role the guild no longer reports.
	roles := rolesByID(&platform.Role{ID: "r2", Name: "27卒"})

	got := ResolveCategory(memberWithRoles("r-gone", "r2"), roles, nil, "times", fixedNow)
	assert.Equal(t, "27-times", got)
}

func TestCohortCategory_SuffixFollowsDefault(t *testing.T) {
	roles := rolesByID(&platform.Role{ID: "r1", Name: "27卒"})

	got := ResolveCategory(memberWithRoles("r1"), roles, nil, "daily", fixedNow)
	assert.Equal(t, "27-daily", got)
}
