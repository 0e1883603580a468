package geospatial

import "math"

// EarthRadiusMeters is the mean Earth radius of the spherical model.
const EarthRadiusMeters = 6_371_000.0

// boxPadDegrees absorbs rounding when the box is used as a SQL prefilter.
const boxPadDegrees = 1e-9

// Haversine calculates the great-circle distance in meters between two points.
// The result is never NaN: a is clamped to 1 because rounding pushes it just
// above 1 for near-antipodal points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Asin(math.Min(1, math.Sqrt(a)))
	return EarthRadiusMeters * c
}

// BoundingBox returns a box that contains every point within radiusMeters of
// (lat, lon). When the circle reaches a pole or crosses the antimeridian the
// longitude range widens to [-180, 180].
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	angular := radiusMeters / EarthRadiusMeters
	latRad := toRad(lat)

	minLatRad := latRad - angular
	maxLatRad := latRad + angular

	if minLatRad <= -math.Pi/2 || maxLatRad >= math.Pi/2 {
		return math.Max(-90, toDeg(minLatRad)-boxPadDegrees), -180,
			math.Min(90, toDeg(maxLatRad)+boxPadDegrees), 180
	}

	dLon := toDeg(math.Asin(math.Sin(angular) / math.Cos(latRad)))
	minLon, maxLon = lon-dLon, lon+dLon
	if minLon < -180 || maxLon > 180 {
		minLon, maxLon = -180, 180
	}

	return toDeg(minLatRad) - boxPadDegrees, minLon - boxPadDegrees,
		toDeg(maxLatRad) + boxPadDegrees, maxLon + boxPadDegrees
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
