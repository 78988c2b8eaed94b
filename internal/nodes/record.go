package nodes

import (
	"encoding/json"
	"math"
	"sort"
)

// Bitnodes snapshot records are fixed-position arrays. Field meanings by
// index, per the API: 0 protocol version, 1 user agent, 2 connected since
// (unix seconds), 7 country code, 8 latitude, 9 longitude, 12 organization.
const (
	fieldProtocolVersion = 0
	fieldUserAgent       = 1
	fieldConnectedSince  = 2
	fieldCountry         = 7
	fieldLatitude        = 8
	fieldLongitude       = 9
	fieldOrganization    = 12

	// minRecordLen is the minimum array length for a usable record.
	minRecordLen = 14
)

// Peer is one reachable node with its geolocation and metadata.
// Optional fields use zero values when the snapshot carries null.
type Peer struct {
	Lat             float64 `json:"lat"`
	Lon             float64 `json:"lon"`
	UserAgent       string  `json:"user_agent,omitempty"`
	Country         string  `json:"country,omitempty"`
	ProtocolVersion int     `json:"protocol_version,omitempty"`
	Org             string  `json:"org,omitempty"`
	ConnectedSince  int64   `json:"connected_since,omitempty"`
}

// DecodeRecord converts one raw positional record into a Peer. It returns
// false when the record is unusable: too few fields, or latitude/longitude
// missing, non-numeric or NaN. All positional indexing happens here so the
// aggregation code only ever sees named fields.
func DecodeRecord(rec []json.RawMessage) (Peer, bool) {
	if len(rec) < minRecordLen {
		return Peer{}, false
	}

	lat, ok := decodeFloat(rec[fieldLatitude])
	if !ok {
		return Peer{}, false
	}
	lon, ok := decodeFloat(rec[fieldLongitude])
	if !ok {
		return Peer{}, false
	}

	p := Peer{Lat: lat, Lon: lon}

	if v, ok := decodeFloat(rec[fieldProtocolVersion]); ok {
		p.ProtocolVersion = int(v)
	}
	p.UserAgent, _ = decodeString(rec[fieldUserAgent])
	if v, ok := decodeFloat(rec[fieldConnectedSince]); ok {
		p.ConnectedSince = int64(v)
	}
	p.Country, _ = decodeString(rec[fieldCountry])
	p.Org, _ = decodeString(rec[fieldOrganization])

	return p, true
}

// DecodeSnapshot turns the raw peer map into the Peer list. Identifiers are
// host:port strings and are discarded; invalid records are dropped silently.
// Keys are walked in sorted order so the same snapshot always yields the
// same peer list, which keeps frequency tie-breaking stable.
func DecodeSnapshot(raw map[string][]json.RawMessage) []Peer {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	peers := make([]Peer, 0, len(raw))
	for _, k := range keys {
		if p, ok := DecodeRecord(raw[k]); ok {
			peers = append(peers, p)
		}
	}
	return peers
}

// decodeFloat decodes through a pointer because unmarshaling JSON null into
// a plain float64 is a silent no-op: null must read as absent, not as 0.
func decodeFloat(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var v *float64
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return 0, false
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}

func decodeString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
