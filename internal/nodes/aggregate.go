package nodes

import (
	"math"
	"time"
)

// DefaultMarkerCap bounds how many individual peers the marker layer gets.
const DefaultMarkerCap = 10000

// intensityDamping scales the brightest cell down so it does not wash out
// the heatmap gradient.
const intensityDamping = 0.8

// DensityCell is one aggregation bucket: coordinates rounded to one decimal
// place plus the number of peers that rounded into it.
type DensityCell struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Count int     `json:"count"`
}

// Aggregation is the full output of one pass over a decoded snapshot.
type Aggregation struct {
	Cells   []DensityCell `json:"cells"`
	Ceiling int           `json:"ceiling"`
	Peers   []Peer        `json:"peers"`
	Stats   Stats         `json:"stats"`
}

type cellKey struct {
	lat, lon float64
}

func roundCoord(v float64) float64 {
	return math.Round(v*10) / 10
}

// Aggregate converts a decoded peer list into density cells, a capped marker
// list and summary statistics. It is a pure function of its inputs: the same
// peer list and clock always produce the same output, cells in
// first-encounter order. Statistics and cells always cover the full list;
// only the marker slice is truncated at markerCap.
func Aggregate(peers []Peer, now time.Time, markerCap int) Aggregation {
	if markerCap <= 0 {
		markerCap = DefaultMarkerCap
	}

	cells := make([]DensityCell, 0, len(peers))
	index := make(map[cellKey]int)
	for _, p := range peers {
		key := cellKey{lat: roundCoord(p.Lat), lon: roundCoord(p.Lon)}
		if i, ok := index[key]; ok {
			cells[i].Count++
			continue
		}
		index[key] = len(cells)
		cells = append(cells, DensityCell{Lat: key.lat, Lon: key.lon, Count: 1})
	}

	agg := Aggregation{
		Cells: cells,
		Peers: peers,
		Stats: computeStats(peers, now),
	}
	if len(agg.Peers) > markerCap {
		agg.Peers = agg.Peers[:markerCap]
	}

	if len(agg.Cells) == 0 {
		agg.Cells = MockCells()
	}
	if len(agg.Peers) == 0 {
		agg.Peers = MockPeers()
	}

	// Ceiling comes from whatever cells are actually rendered, so the mock
	// substitution and a real snapshot go through the same formula.
	maxCount := 0
	for _, c := range agg.Cells {
		if c.Count > maxCount {
			maxCount = c.Count
		}
	}
	agg.Ceiling = intensityCeiling(maxCount)
	return agg
}

// intensityCeiling undershoots the true peak cell count so the most crowded
// cell stays inside the colour gradient instead of saturating it.
func intensityCeiling(maxCount int) int {
	c := int(math.Ceil(float64(maxCount) * intensityDamping))
	if c < 1 {
		c = 1
	}
	return c
}

// HeatPoints flattens cells into the [lat, lon, intensity] triples the
// heatmap layer consumes.
func (a Aggregation) HeatPoints() [][3]float64 {
	pts := make([][3]float64, 0, len(a.Cells))
	for _, c := range a.Cells {
		pts = append(pts, [3]float64{c.Lat, c.Lon, float64(c.Count)})
	}
	return pts
}
