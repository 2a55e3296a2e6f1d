package service

import (
	"regexp"
	"strconv"
	"time"

	"github.com/timesapp/times-bot/internal/platform"
)

// cohortPattern matches role names carrying a graduation/cohort year: a short
// run of digits followed by a cohort marker (卒 "graduating" or 年 "year").
// Role names like "27卒" or "2027年" both match.
var cohortPattern = regexp.MustCompile(`(\d{2,4})[卒年]`)

// centuryTolerance is the forward window used to disambiguate two-digit years.
// With the current year 2026: input 36 is read as 2036, input 37 as 1937.
const centuryTolerance = 10

// ResolveCategory maps a member's current role state to a target category
// name, in strict priority order:
//
//  1. The first role (platform-reported order) with an explicit mapping wins.
//     A member holding two mapped roles resolves by role order; the tie-break
//     is arbitrary but deterministic for a given input.
//  2. Otherwise the first role whose name matches the cohort pattern yields
//     "<YY>-<defaultCategory>", where YY is the trailing two digits of the
//     disambiguated year.
//  3. Otherwise defaultCategory.
//
// Pure: all inputs, including the clock, are parameters.
func ResolveCategory(member *platform.Member, roles map[string]*platform.Role, mappings map[string]string, defaultCategory string, now time.Time) string {
	for _, roleID := range member.RoleIDs {
		if category, ok := mappings[roleID]; ok {
			return category
		}
	}

	for _, roleID := range member.RoleIDs {
		role, ok := roles[roleID]
		if !ok {
			continue
		}
		if m := cohortPattern.FindStringSubmatch(role.Name); m != nil {
			return cohortCategory(m[1], defaultCategory, now)
		}
	}

	return defaultCategory
}

// cohortCategory normalizes a 2-4 digit year to "<YY>-<suffix>".
//
// Two-digit input is expanded with the century window: values up to the
// current short year plus centuryTolerance read as 20xx, anything beyond as
// 19xx. The return value re-truncates to the trailing two digits, so the
// expansion only decides which century a borderline value belongs to, never
// the produced string.
func cohortCategory(year, suffix string, now time.Time) string {
	if len(year) == 2 {
		currentShort := now.Year() % 100
		input, _ := strconv.Atoi(year)
		if input <= currentShort+centuryTolerance {
			year = "20" + year
		} else {
			year = "19" + year
		}
	}
	return year[len(year)-2:] + "-" + suffix
}
