package incidents

import (
	"sort"
	"strings"
	"time"

	"response-dashboard/models"
)

// DefaultWindow is the merge window for folding repeat submissions of the
// same incident into one group.
const DefaultWindow = 10 * time.Minute

// Group is a derived cluster of one or more raw reports believed to describe
// the same real-world incident. It inherits the fields of its seed report,
// with CreatedAt kept at the earliest member and UpdatedAt at the latest.
// Groups are rebuilt wholesale on every refresh and never persisted.
type Group struct {
	models.Report

	// Responders holds every responder id observed among the members, in
	// first-seen order.
	Responders []string `json:"responders"`

	// MemberReportIDs holds the ids of all reports folded into this group.
	MemberReportIDs []string `json:"member_report_ids"`
}

// keyOf computes the content fingerprint used to bucket candidate-duplicate
// reports. Reports with a photo are keyed on the photo URL; the rest on the
// (type, description) pair. Two reports with both fields empty collide on
// "text:|", a known limitation of the heuristic.
func keyOf(r models.Report) string {
	if photo := strings.ToLower(strings.TrimSpace(r.PhotoURL)); photo != "" {
		return "photo:" + photo
	}
	return "text:" + strings.ToLower(strings.TrimSpace(r.Type)) + "|" + strings.ToLower(strings.TrimSpace(r.Description))
}

// GroupReports buckets reports by content fingerprint and merges, within each
// bucket, reports whose createdAt falls within the window of a group's
// earliest createdAt. The window check is inclusive and always compares
// against the group's earliest member, so a group never spans more than the
// window end to end. Input order does not matter; every input report lands in
// exactly one group.
func GroupReports(reports []models.Report, window time.Duration) []Group {
	windowMillis := models.EpochMillis(window.Milliseconds())

	buckets := make(map[string][]models.Report)
	var bucketOrder []string
	for _, r := range reports {
		k := keyOf(r)
		if _, seen := buckets[k]; !seen {
			bucketOrder = append(bucketOrder, k)
		}
		buckets[k] = append(buckets[k], r)
	}

	var groups []Group
	for _, k := range bucketOrder {
		members := buckets[k]
		// Stable keeps input order for identical timestamps, which keeps
		// the representative choice deterministic for a given input order.
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].CreatedAt < members[j].CreatedAt
		})

		var bucketGroups []int // indices into groups created from this bucket
		for _, r := range members {
			merged := false
			for _, gi := range bucketGroups {
				g := &groups[gi]
				if delta := r.CreatedAt - g.CreatedAt; delta >= -windowMillis && delta <= windowMillis {
					fold(g, r)
					merged = true
					break
				}
			}
			if !merged {
				groups = append(groups, seed(r))
				bucketGroups = append(bucketGroups, len(groups)-1)
			}
		}
	}
	return groups
}

// seed starts a new group from a single report.
func seed(r models.Report) Group {
	g := Group{
		Report:          r,
		MemberReportIDs: []string{r.ID},
	}
	if r.ResponderID != "" {
		g.Responders = []string{r.ResponderID}
	}
	return g
}

// fold merges a report into an existing group: member and responder sets are
// unioned, CreatedAt keeps the earliest, UpdatedAt keeps the latest. The
// remaining representative fields stay with the seed report.
func fold(g *Group, r models.Report) {
	g.MemberReportIDs = append(g.MemberReportIDs, r.ID)
	if r.ResponderID != "" && !contains(g.Responders, r.ResponderID) {
		g.Responders = append(g.Responders, r.ResponderID)
	}
	if r.CreatedAt < g.CreatedAt {
		g.CreatedAt = r.CreatedAt
	}
	if r.UpdatedAt > g.UpdatedAt {
		g.UpdatedAt = r.UpdatedAt
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// PendingCount returns the number of groups whose representative status is
// Pending.
func PendingCount(groups []Group) int {
	count := 0
	for _, g := range groups {
		if g.Status == models.StatusPending {
			count++
		}
	}
	return count
}
