// Package classify determines which products govern a settlement period: the
// single primary pricing plan and any addon products active at the period
// start. The addon membership set is configuration, not a constant.
package classify

import (
	"github.com/gridscope/settleaudit/internal/index"
)

// PrimaryAt returns the name of the primary (non-addon) product active at the
// instant, or "" when none is attached. Active means start <= instant < end.
//
// The data occasionally carries overlapping primary periods; that looks like
// a quality artifact in the source system rather than intended policy. The
// resolution here is deterministic: the active primary with the latest start
// wins. The returned count is the number of simultaneously active primaries
// so callers can surface how often the overlap occurs.
func PrimaryAt(periods []index.Period, addons map[string]bool, instant string) (string, int) {
	name := ""
	latest := ""
	active := 0
	for _, pp := range periods {
		if addons[pp.ProductName] {
			continue
		}
		if pp.Start <= instant && instant < pp.End {
			active++
			if name == "" || pp.Start >= latest {
				name = pp.ProductName
				latest = pp.Start
			}
		}
	}
	return name, active
}

// AddonsAt returns the addon product names active at the instant, in schedule
// order with duplicates collapsed.
func AddonsAt(periods []index.Period, addons map[string]bool, instant string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, pp := range periods {
		if !addons[pp.ProductName] || seen[pp.ProductName] {
			continue
		}
		if pp.Start <= instant && instant < pp.End {
			names = append(names, pp.ProductName)
			seen[pp.ProductName] = true
		}
	}
	return names
}
