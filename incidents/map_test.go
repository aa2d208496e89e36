package incidents

import (
	"math"
	"testing"

	"response-dashboard/models"
)

func locatedGroup(id string, lat, lon float64, status string) Group {
	return Group{
		Report: models.Report{
			ID:        id,
			Status:    status,
			Latitude:  &lat,
			Longitude: &lon,
		},
		MemberReportIDs: []string{id},
	}
}

func TestAggregateMap_FiltersViewportAndUnlocated(t *testing.T) {
	vp := ViewPort{LatMin: 14.0, LonMin: 120.0, LatMax: 15.0, LonMax: 121.0}

	groups := []Group{
		locatedGroup("in", 14.5, 120.5, models.StatusPending),
		locatedGroup("out", 16.0, 120.5, models.StatusPending),
		{Report: models.Report{ID: "nowhere"}, MemberReportIDs: []string{"nowhere"}},
	}

	markers := AggregateMap(groups, vp)
	if len(markers) != 1 {
		t.Fatalf("got %d markers, want 1", len(markers))
	}
	if markers[0].Count != 1 || markers[0].Pending != 1 {
		t.Errorf("marker = %+v, want count 1 pending 1", markers[0])
	}
}

func TestAggregateMap_SingleIncidentKeepsExactCoordinates(t *testing.T) {
	vp := ViewPort{LatMin: 14.0, LonMin: 120.0, LatMax: 15.0, LonMax: 121.0}
	markers := AggregateMap([]Group{
		locatedGroup("a", 14.25, 120.75, models.StatusResolved),
	}, vp)

	if len(markers) != 1 {
		t.Fatalf("got %d markers, want 1", len(markers))
	}
	if math.Abs(markers[0].Latitude-14.25) > 1e-6 || math.Abs(markers[0].Longitude-120.75) > 1e-6 {
		t.Errorf("single incident should keep exact coordinates, got (%f, %f)",
			markers[0].Latitude, markers[0].Longitude)
	}
}

func TestAggregateMap_CoincidentIncidentsShareCell(t *testing.T) {
	vp := ViewPort{LatMin: 0, LonMin: 0, LatMax: 60, LonMax: 60}

	markers := AggregateMap([]Group{
		locatedGroup("a", 30.0, 30.0, models.StatusPending),
		locatedGroup("b", 30.0, 30.0, models.StatusResolved),
	}, vp)

	if len(markers) != 1 {
		t.Fatalf("got %d markers, want 1 shared cell", len(markers))
	}
	if markers[0].Count != 2 {
		t.Errorf("marker count = %d, want 2", markers[0].Count)
	}
	if markers[0].Pending != 1 {
		t.Errorf("marker pending = %d, want 1", markers[0].Pending)
	}
}
