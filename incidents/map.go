package incidents

import (
	"github.com/golang/geo/r1"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"response-dashboard/models"
)

// ViewPort is the lat/lng box a map panel is currently showing.
type ViewPort struct {
	LatMin float64 `json:"latmin"`
	LonMin float64 `json:"lonmin"`
	LatMax float64 `json:"latmax"`
	LonMax float64 `json:"lonmax"`
}

// MapMarker is one aggregated point on the incident map.
type MapMarker struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Count     int64   `json:"count"`
	Pending   int64   `json:"pending"`
}

const (
	expectedCells = 160
	minCellLevel  = 6
	maxCellLevel  = 16
)

type markerUnit struct {
	cnt      int64
	pending  int64
	origCell s2.CellID
}

// cellLevel picks the S2 cell level so the viewport resolves to roughly
// expectedCells cells.
func cellLevel(vp ViewPort) int {
	minLL := s2.LatLngFromDegrees(vp.LatMin, vp.LonMin)
	maxLL := s2.LatLngFromDegrees(vp.LatMax, vp.LonMax)

	rect := s2.Rect{
		Lat: r1.Interval{Lo: minLL.Lat.Radians(), Hi: maxLL.Lat.Radians()},
		Lng: s1.Interval{Lo: minLL.Lng.Radians(), Hi: maxLL.Lng.Radians()},
	}
	vpArea := rect.Area()

	centerLat := (vp.LatMin + vp.LatMax) / 2
	centerLon := (vp.LonMin + vp.LonMax) / 2
	centerCell := s2.CellIDFromLatLng(s2.LatLngFromDegrees(centerLat, centerLon))

	for lv := maxCellLevel; lv >= minCellLevel; lv-- {
		cc := s2.CellFromCellID(centerCell.Parent(lv))
		if vpArea/cc.ApproxArea() < expectedCells {
			return lv
		}
	}
	return minCellLevel
}

// AggregateMap buckets located incident groups inside the viewport into S2
// cells for the map panel. Cells holding a single incident keep the exact
// coordinates; denser cells report the cell center.
func AggregateMap(groups []Group, vp ViewPort) []MapMarker {
	level := cellLevel(vp)
	units := make(map[s2.CellID]*markerUnit)

	for _, g := range groups {
		if g.Latitude == nil || g.Longitude == nil {
			continue
		}
		lat, lon := *g.Latitude, *g.Longitude
		if lat < vp.LatMin || lat > vp.LatMax || lon < vp.LonMin || lon > vp.LonMax {
			continue
		}
		pc := s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lon))
		parent := pc.Parent(level)
		unit, ok := units[parent]
		if !ok {
			unit = &markerUnit{}
			units[parent] = unit
		}
		unit.cnt++
		unit.origCell = pc
		if g.Status == models.StatusPending {
			unit.pending++
		}
	}

	markers := make([]MapMarker, 0, len(units))
	for c, unit := range units {
		ll := c.LatLng()
		if unit.cnt == 1 {
			ll = unit.origCell.LatLng()
		}
		markers = append(markers, MapMarker{
			Latitude:  ll.Lat.Degrees(),
			Longitude: ll.Lng.Degrees(),
			Count:     unit.cnt,
			Pending:   unit.pending,
		})
	}
	return markers
}
