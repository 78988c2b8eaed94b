package nodes

// Fallback data shown when a snapshot cannot be loaded or comes back empty,
// so the map never renders blank.

// MockCells returns the four fixed fallback grid points.
func MockCells() []DensityCell {
	return []DensityCell{
		{Lat: 40.7, Lon: -74.0, Count: 3},
		{Lat: 51.5, Lon: -0.1, Count: 2},
		{Lat: 35.7, Lon: 139.7, Count: 2},
		{Lat: -33.9, Lon: 151.2, Count: 1},
	}
}

// MockPeers returns the two fixed fallback peers.
func MockPeers() []Peer {
	return []Peer{
		{Lat: 40.7128, Lon: -74.0060, Country: "US", UserAgent: "/Satoshi:27.0.0/"},
		{Lat: 51.5074, Lon: -0.1278, Country: "GB", UserAgent: "/Satoshi:26.0.0/"},
	}
}
