// Package geo holds the coarse proximity helpers used by nearby lookups.
package geo

import (
	"fmt"
	"math"
)

const earthRadiusKm = 6371.0

// BucketKey rounds coordinates to two decimal places (roughly a 1km cell)
// and renders the bucket stored alongside located requests.
func BucketKey(lat, lng float64) string {
	return fmt.Sprintf("lat:%.2f|lng:%.2f", lat, lng)
}

// HaversineKm returns the great-circle distance between two points in
// kilometers.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := lat1 * math.Pi / 180
	p2 := lat2 * math.Pi / 180
	dphi := (lat2 - lat1) * math.Pi / 180
	dl := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dphi/2)*math.Sin(dphi/2) +
		math.Cos(p1)*math.Cos(p2)*math.Sin(dl/2)*math.Sin(dl/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
