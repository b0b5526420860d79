// Package season parses the seasonal grouping grammar (SEAS) that
// assigns calendar months to processing groups for the u* threshold
// engine, and resolves I4's "boundary belongs to previous month" rule.
package season

import (
	"strconv"
	"strings"

	"github.com/fluxnet/oneflux-sub002/internal/errs"
)

// Group is an ordered, zero-based set of months (0=Jan .. 11=Dec).
type Group []int

// Seasons is an ordered list of Groups; its index is the season index
// UST and BOOT key their per-season containers on.
type Seasons []Group

// Default is the canonical four-group seasonal split (Dec-Feb,
// Mar-May, Jun-Aug, Sep-Nov), equivalent to "12,1,2;3,4,5;6,7,8;9,10,11".
func Default() Seasons {
	s, err := Parse("12,1,2;3,4,5;6,7,8;9,10,11", false)
	if err != nil {
		panic("season: default grouping failed to parse: " + err.Error())
	}
	return s
}

// Parse converts a grammar string "group(;group)*", "group :=
// uint(,uint)*", uint in [1,12], into zero-based Seasons. Duplicate
// months across (or within) groups are rejected unless
// allowDuplicates is set. An empty string fails with ConfigInvalid
// (NoStringToParse).
func Parse(s string, allowDuplicates bool) (Seasons, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errs.Wrap(errs.ConfigInvalid, "NoStringToParse: empty season grouping")
	}

	groupTokens := strings.Split(s, ";")
	seasons := make(Seasons, 0, len(groupTokens))
	seen := make(map[int]bool)

	for gi, gt := range groupTokens {
		gt = strings.TrimSpace(gt)
		if gt == "" {
			return nil, errs.Wrap(errs.ConfigInvalid, "group %d is empty", gi)
		}
		monthTokens := strings.Split(gt, ",")
		group := make(Group, 0, len(monthTokens))
		for _, mt := range monthTokens {
			mt = strings.TrimSpace(mt)
			m, err := strconv.Atoi(mt)
			if err != nil {
				return nil, errs.Wrap(errs.ConfigInvalid, "month token %q is not an integer", mt)
			}
			if m < 1 || m > 12 {
				return nil, errs.Wrap(errs.ConfigInvalid, "month %d out of range [1,12]", m)
			}
			zero := m - 1
			if seen[zero] && !allowDuplicates {
				return nil, errs.Wrap(errs.ConfigInvalid, "month %d assigned to more than one group", m)
			}
			seen[zero] = true
			group = append(group, zero)
		}
		seasons = append(seasons, group)
	}
	return seasons, nil
}

// GroupForMonth returns the index of the first group containing the
// zero-based month, per I4 ("assigned to the group whose first
// included month precedes any reassignment"). ok is false if month
// appears in no group.
func GroupForMonth(seasons Seasons, month0 int) (group int, ok bool) {
	for gi, g := range seasons {
		for _, m := range g {
			if m == month0 {
				return gi, true
			}
		}
	}
	return 0, false
}

// AttributeRow resolves I4's boundary rule for a single row: a row
// timestamped 00:00 on day 1 of month0 is attributed to the group
// containing month0-1 (mod 12) instead of month0 itself, so the
// seasonal partition aligns with closed-open calendar months. All
// other rows attribute to month0 directly.
func AttributeRow(seasons Seasons, month0, day int, hour, minute int) (group int, ok bool) {
	if day == 1 && hour == 0 && minute == 0 {
		prev := (month0 - 1 + 12) % 12
		return GroupForMonth(seasons, prev)
	}
	return GroupForMonth(seasons, month0)
}
