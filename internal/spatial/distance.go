package spatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// Earth radii
const (
	EarthRadiusMeters = 6371000.0
	EarthRadiusKm     = 6371.0
)

// HaversineDistance calculates the great-circle distance between two
// points in meters
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Bearing calculates the initial bearing from point 1 to point 2 in
// degrees (0 is North, 90 is East)
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lonDiff := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(lonDiff) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) - math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(lonDiff)
	bearing := math.Atan2(y, x)

	bearingDeg := bearing * 180 / math.Pi
	return math.Mod(bearingDeg+360, 360)
}

// Centroid returns the spherical centroid of a set of lat/lon pairs
func Centroid(points [][2]float64) (float64, float64) {
	if len(points) == 0 {
		return 0, 0
	}

	var sum s2.Point
	for _, p := range points {
		pt := s2.PointFromLatLng(s2.LatLngFromDegrees(p[0], p[1]))
		sum = s2.Point{Vector: sum.Add(pt.Vector)}
	}

	center := s2.LatLngFromPoint(s2.Point{Vector: sum.Normalize()})
	return center.Lat.Degrees(), center.Lng.Degrees()
}

// BoundingRadius derives the smallest centered radius in meters that
// covers all points: the distance from the centroid to the farthest
// point. Used to size a circular zone around a cluster of fixes.
func BoundingRadius(points [][2]float64) float64 {
	if len(points) < 2 {
		return 0
	}

	lat, lon := Centroid(points)

	var radius float64
	for _, p := range points {
		if d := HaversineDistance(lat, lon, p[0], p[1]); d > radius {
			radius = d
		}
	}
	return radius
}
