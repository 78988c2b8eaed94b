package nodes

import (
	"sort"
	"strconv"
	"time"
)

const secondsPerDay = 86400

// ValueCount is one row of a frequency table.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Stats is the summary block shown in the analytics panel.
type Stats struct {
	TotalNodes     int          `json:"total_nodes"`
	Countries      int          `json:"countries"`
	TopAgents      []ValueCount `json:"top_agents"`
	TopOrgs        []ValueCount `json:"top_orgs"`
	Versions       []ValueCount `json:"versions"`
	MeanUptimeDays float64      `json:"mean_uptime_days"`
	Concentration  float64      `json:"concentration"`
}

// ZeroStats is the reset state used when a load fails.
func ZeroStats() Stats {
	return Stats{}
}

// freqTable counts occurrences while remembering first-encounter order, so
// equal counts keep a stable ranking.
type freqTable struct {
	counts map[string]int
	order  []string
}

func newFreqTable() *freqTable {
	return &freqTable{counts: make(map[string]int)}
}

func (t *freqTable) add(v string) {
	if v == "" {
		return
	}
	if _, seen := t.counts[v]; !seen {
		t.order = append(t.order, v)
	}
	t.counts[v]++
}

func (t *freqTable) len() int {
	return len(t.counts)
}

// ranked returns all entries sorted by descending count. SliceStable keeps
// first-encounter order between equal counts.
func (t *freqTable) ranked() []ValueCount {
	var out []ValueCount
	for _, v := range t.order {
		out = append(out, ValueCount{Value: v, Count: t.counts[v]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

func (t *freqTable) top(n int) []ValueCount {
	ranked := t.ranked()
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// herfindahl is the sum of squared per-country shares: 1.0 when every peer
// sits in a single country, approaching 0 as peers spread out.
func herfindahl(t *freqTable, total int) float64 {
	if total == 0 {
		return 0
	}
	score := 0.0
	for _, c := range t.counts {
		share := float64(c) / float64(total)
		score += share * share
	}
	return score
}

// computeStats builds the summary block from the full (uncapped) peer list.
func computeStats(peers []Peer, now time.Time) Stats {
	agents := newFreqTable()
	orgs := newFreqTable()
	versions := newFreqTable()
	countries := newFreqTable()

	uptimeDays := 0.0
	uptimeKnown := 0
	nowSec := now.Unix()

	for _, p := range peers {
		agents.add(p.UserAgent)
		orgs.add(p.Org)
		if p.ProtocolVersion != 0 {
			versions.add(strconv.Itoa(p.ProtocolVersion))
		}
		countries.add(p.Country)
		if p.ConnectedSince != 0 {
			uptimeDays += float64(nowSec-p.ConnectedSince) / secondsPerDay
			uptimeKnown++
		}
	}

	meanUptime := 0.0
	if uptimeKnown > 0 {
		meanUptime = uptimeDays / float64(uptimeKnown)
	}

	return Stats{
		TotalNodes:     len(peers),
		Countries:      countries.len(),
		TopAgents:      agents.top(3),
		TopOrgs:        orgs.top(3),
		Versions:       versions.ranked(),
		MeanUptimeDays: meanUptime,
		Concentration:  herfindahl(countries, len(peers)),
	}
}
