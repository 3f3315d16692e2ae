package geo

import (
	"errors"
	"math"
)

// EarthRadiusKm is Earth's radius in kilometers for the Haversine calculation.
const EarthRadiusKm = 6371.0

var ErrOutOfRange = errors.New("latitude or longitude out of range")

// ValidateLatLon checks that lat is in [-90,90] and lon in [-180,180].
func ValidateLatLon(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return ErrOutOfRange
	}
	if lon < -180 || lon > 180 {
		return ErrOutOfRange
	}
	return nil
}

// DistanceKm calculates the great-circle distance between two points
// on Earth in kilometers using the Haversine formula.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLon := degreesToRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degreesToRadians(lat1))*math.Cos(degreesToRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// WithinRadiusKm reports whether the two points are within radiusKm of each other.
func WithinRadiusKm(lat1, lon1, lat2, lon2, radiusKm float64) bool {
	return DistanceKm(lat1, lon1, lat2, lon2) <= radiusKm
}

func degreesToRadians(d float64) float64 {
	return d * math.Pi / 180
}
