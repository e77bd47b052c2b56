// Package geo provides the great-circle math used to rank donors by
// proximity. Functions are pure and total over valid coordinates.
package geo

import "math"

// earthRadiusKm is the mean sphere radius used by the haversine formula.
const earthRadiusKm = 6371.0

// DistanceKm returns the haversine great-circle distance in kilometres
// between two latitude/longitude pairs expressed in degrees.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// ProximityScore maps a distance to a 0-100 score: 100 at zero distance,
// dropping linearly by 2 points per kilometre, zero beyond 50 km.
func ProximityScore(distanceKm float64) float64 {
	return math.Max(0, 100-2*distanceKm)
}
