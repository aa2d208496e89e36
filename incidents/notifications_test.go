package incidents

import (
	"testing"

	"response-dashboard/models"
)

func notification(id, title, kind, reportID string, read bool, createdAt int64) models.Notification {
	return models.Notification{
		ID:        id,
		Title:     title,
		Kind:      kind,
		ReportID:  reportID,
		Read:      read,
		CreatedAt: models.EpochMillis(createdAt),
	}
}

func indexFor(t *testing.T, reports []models.Report) (map[string]string, map[string]Group) {
	t.Helper()
	return BuildIndex(GroupReports(reports, DefaultWindow))
}

func TestDedupe_CollapsesByGroup(t *testing.T) {
	forward, reverse := indexFor(t, []models.Report{
		report("r1", "Fire", "x", 0),
		report("r2", "Fire", "x", 1000),
		report("r3", "Fire", "x", 2000),
	})

	raw := []models.Notification{
		notification("n1", "New report", "new", "r1", true, 100),
		notification("n2", "New report", "new", "r2", true, 200),
		notification("n3", "Report updated", "update", "r3", true, 300),
	}

	out := Dedupe(raw, forward, reverse)
	if len(out) != 1 {
		t.Fatalf("Dedupe() returned %d entries, want 1", len(out))
	}
	d := out[0]
	if !d.Read {
		t.Errorf("all members read, display entry should be read")
	}
	if len(d.MemberIDs) != 3 {
		t.Errorf("display entry folds %d members, want 3", len(d.MemberIDs))
	}
	if d.Group == nil {
		t.Errorf("display entry should carry the matched incident group")
	}
	// Latest-wins display metadata.
	if d.Title != "Report updated" || d.Kind != "update" || d.CreatedAt != 300 {
		t.Errorf("display metadata = (%q, %q, %d), want newest member's", d.Title, d.Kind, d.CreatedAt)
	}
}

func TestDedupe_ReadIsANDOverMembers(t *testing.T) {
	forward, reverse := indexFor(t, []models.Report{
		report("r1", "Fire", "x", 0),
		report("r2", "Fire", "x", 1000),
	})

	raw := []models.Notification{
		notification("n1", "t", "new", "r1", true, 100),
		notification("n2", "t", "new", "r2", false, 200),
	}

	out := Dedupe(raw, forward, reverse)
	if len(out) != 1 {
		t.Fatalf("got %d entries, want 1", len(out))
	}
	if out[0].Read {
		t.Errorf("one member unread, display entry must be unread")
	}
	if got := UnseenCount(out); got != 1 {
		t.Errorf("UnseenCount() = %d, want 1", got)
	}
}

func TestDedupe_FallbackKeyFloorsToSecond(t *testing.T) {
	forward := map[string]string{}
	reverse := map[string]Group{}

	tests := []struct {
		name string
		a, b models.Notification
		want int
	}{
		{
			name: "same floored second collapses",
			a:    notification("n1", "Siren", "new", "", false, 10200),
			b:    notification("n2", "Siren", "new", "", false, 10700),
			want: 1,
		},
		{
			name: "different floored seconds stay apart",
			a:    notification("n1", "Siren", "new", "", false, 10900),
			b:    notification("n2", "Siren", "new", "", false, 11100),
			want: 2,
		},
		{
			name: "different kind stays apart",
			a:    notification("n1", "Siren", "new", "", false, 10200),
			b:    notification("n2", "Siren", "update", "", false, 10200),
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Dedupe([]models.Notification{tt.a, tt.b}, forward, reverse)
			if len(out) != tt.want {
				t.Errorf("Dedupe() returned %d entries, want %d", len(out), tt.want)
			}
		})
	}
}

func TestDedupe_NoKeyMaterialFallsBackToOwnID(t *testing.T) {
	out := Dedupe([]models.Notification{
		{ID: "n1"},
		{ID: "n2"},
	}, map[string]string{}, map[string]Group{})
	if len(out) != 2 {
		t.Fatalf("notifications with no key material must not merge, got %d entries", len(out))
	}
}

func TestDedupe_UnresolvableReportIDUsesFallbackKey(t *testing.T) {
	// The report list refresh may not have caught up with a notification yet;
	// its reportId is unknown, so the temporal fallback key applies.
	out := Dedupe([]models.Notification{
		notification("n1", "New report", "new", "r-unknown", false, 5000),
		notification("n2", "New report", "new", "", false, 5400),
	}, map[string]string{}, map[string]Group{})
	if len(out) != 1 {
		t.Fatalf("got %d entries, want 1 (fallback keys should match)", len(out))
	}
}

func TestDedupe_ReclassifiesOnceReportResolves(t *testing.T) {
	raw := []models.Notification{
		notification("n1", "New report", "new", "r1", false, 100),
	}

	// Before the report list includes r1: fallback key.
	before := Dedupe(raw, map[string]string{}, map[string]Group{})
	if before[0].Group != nil {
		t.Errorf("unresolved notification should not carry a group")
	}

	// After a refresh resolves r1 the same notification maps to its group.
	forward, reverse := indexFor(t, []models.Report{report("r1", "Fire", "x", 0)})
	after := Dedupe(raw, forward, reverse)
	if after[0].Group == nil {
		t.Fatalf("resolved notification should carry its group")
	}
	if after[0].GroupKey != "r1" {
		t.Errorf("GroupKey = %q, want r1", after[0].GroupKey)
	}
	if after[0].CanonicalReportID != "r1" {
		t.Errorf("CanonicalReportID = %q, want r1", after[0].CanonicalReportID)
	}
}

func TestDedupe_OrdersNewestFirst(t *testing.T) {
	out := Dedupe([]models.Notification{
		notification("n1", "a", "new", "", false, 1000),
		notification("n2", "b", "new", "", false, 9000),
		notification("n3", "c", "new", "", false, 5000),
	}, map[string]string{}, map[string]Group{})

	if len(out) != 3 {
		t.Fatalf("got %d entries, want 3", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i-1].CreatedAt < out[i].CreatedAt {
			t.Errorf("entries not in descending createdAt order: %d before %d",
				out[i-1].CreatedAt, out[i].CreatedAt)
		}
	}
}

func TestUnseenCount_CountsDisplayEntriesNotRaw(t *testing.T) {
	forward, reverse := indexFor(t, []models.Report{
		report("r1", "Fire", "x", 0),
		report("r2", "Fire", "x", 1000),
	})

	// Three unread raw notifications, one display entry: the badge shows 1.
	raw := []models.Notification{
		notification("n1", "t", "new", "r1", false, 100),
		notification("n2", "t", "new", "r2", false, 200),
		notification("n3", "t", "new", "r1", false, 300),
	}
	out := Dedupe(raw, forward, reverse)
	if len(out) != 1 {
		t.Fatalf("got %d entries, want 1", len(out))
	}
	if got := UnseenCount(out); got != 1 {
		t.Errorf("UnseenCount() = %d, want 1 (not the raw count of 3)", got)
	}
}
