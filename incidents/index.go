package incidents

import (
	"sort"
	"strings"
)

// EventKey returns the deterministic string identifying a group: the sorted,
// pipe-joined member report ids, regardless of the order members were merged
// in. A group with no members falls back to its own report id.
func EventKey(g Group) string {
	if len(g.MemberReportIDs) == 0 {
		return g.ID
	}
	ids := make([]string, len(g.MemberReportIDs))
	copy(ids, g.MemberReportIDs)
	sort.Strings(ids)
	return strings.Join(ids, "|")
}

// BuildIndex converts groups into a forward index (report id -> event key)
// and a reverse lookup (event key -> group) for O(1) resolution when
// reconciling notifications. Rebuilding from the same groups yields identical
// indices.
func BuildIndex(groups []Group) (map[string]string, map[string]Group) {
	forward := make(map[string]string, len(groups))
	reverse := make(map[string]Group, len(groups))
	for _, g := range groups {
		key := EventKey(g)
		reverse[key] = g
		for _, id := range g.MemberReportIDs {
			forward[id] = key
		}
	}
	return forward, reverse
}
