package incidents

import (
	"fmt"
	"sort"

	"response-dashboard/models"
)

// DisplayNotification is the deduplicated, group-level view of one or more
// raw notifications: one entry per group key, read only when every member is
// read, with display metadata from the newest member.
type DisplayNotification struct {
	models.Notification

	// GroupKey is the key the member notifications were collapsed under.
	GroupKey string `json:"group_key"`

	// CanonicalReportID is the first member report id that resolved to a
	// known incident group, if any.
	CanonicalReportID string `json:"canonical_report_id,omitempty"`

	// MemberIDs holds the raw notification ids folded into this entry.
	MemberIDs []string `json:"member_ids"`

	// Group is the matched incident group, if the key resolved to one.
	Group *Group `json:"group,omitempty"`
}

// groupKeyOf maps a raw notification to its grouping key: the event key of
// its report's group when resolvable, else a coarse title|kind|second
// fingerprint for notifications not yet tied to a known report, else the
// notification's own id (no merging).
func groupKeyOf(n models.Notification, forward map[string]string) string {
	if n.ReportID != "" {
		if key, ok := forward[n.ReportID]; ok {
			return key
		}
	}
	if n.Title != "" || n.CreatedAt != 0 {
		return fmt.Sprintf("%s|%s|%d", n.Title, n.Kind, int64(n.CreatedAt)/1000)
	}
	return n.ID
}

// Dedupe collapses raw notifications into one display entry per group key.
// The first notification under a key seeds the entry; later ones AND into its
// read state and, when strictly newer, take over the title, kind and
// createdAt. Output is ordered newest first.
func Dedupe(notifications []models.Notification, forward map[string]string, reverse map[string]Group) []DisplayNotification {
	byKey := make(map[string]int, len(notifications))
	var out []DisplayNotification

	for _, n := range notifications {
		key := groupKeyOf(n, forward)

		if i, ok := byKey[key]; ok {
			d := &out[i]
			d.Read = d.Read && n.Read
			d.MemberIDs = append(d.MemberIDs, n.ID)
			if n.CreatedAt > d.CreatedAt {
				d.Title = n.Title
				d.Kind = n.Kind
				d.CreatedAt = n.CreatedAt
			}
			if d.CanonicalReportID == "" && n.ReportID != "" {
				if _, resolved := forward[n.ReportID]; resolved {
					d.CanonicalReportID = n.ReportID
				}
			}
			continue
		}

		d := DisplayNotification{
			Notification: n,
			GroupKey:     key,
			MemberIDs:    []string{n.ID},
		}
		if n.ReportID != "" {
			if _, resolved := forward[n.ReportID]; resolved {
				d.CanonicalReportID = n.ReportID
			}
		}
		if g, ok := reverse[key]; ok {
			group := g
			d.Group = &group
		}
		byKey[key] = len(out)
		out = append(out, d)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out
}

// UnseenCount returns the number of display notifications still unread. This
// is the count the dashboard badge shows, not the raw notification count.
func UnseenCount(notifications []DisplayNotification) int {
	count := 0
	for _, d := range notifications {
		if !d.Read {
			count++
		}
	}
	return count
}
