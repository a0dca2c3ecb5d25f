package geo

import (
	"math"
)

// Unit is the unit a distance is reported in
type Unit int

const (
	Miles Unit = iota
	Kilometers
)

const (
	earthRadiusMiles      = 3956.0
	earthRadiusKilometers = 6371.0
)

// Point is a coordinate pair in decimal degrees
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewPoint builds a Point from optional coordinates. Both values must be present,
// otherwise nil is returned.
func NewPoint(lat, lon *float64) *Point {
	if lat == nil || lon == nil {
		return nil
	}
	return &Point{Latitude: *lat, Longitude: *lon}
}

// Valid reports whether the point holds finite coordinates inside the legal ranges
func (p *Point) Valid() bool {
	if p == nil {
		return false
	}
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) ||
		math.IsInf(p.Latitude, 0) || math.IsInf(p.Longitude, 0) {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// Distance returns the haversine great-circle distance between a and b.
// The second return value is false when either point is missing or invalid; the
// distance is undefined in that case and must not be read as zero.
func Distance(a, b *Point, unit Unit) (float64, bool) {
	if !a.Valid() || !b.Valid() {
		return 0, false
	}

	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := lat2 - lat1
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push h a hair outside [0, 1] for antipodal points
	h = math.Min(1, math.Max(0, h))
	c := 2 * math.Asin(math.Sqrt(h))

	return c * radius(unit), true
}

// Within reports whether a and b are at most limit apart. Undefined distances and
// invalid limits are never within range.
func Within(a, b *Point, limit float64, unit Unit) bool {
	if math.IsNaN(limit) || limit < 0 {
		return false
	}
	d, ok := Distance(a, b, unit)
	if !ok {
		return false
	}
	return d <= limit
}

func radius(unit Unit) float64 {
	if unit == Kilometers {
		return earthRadiusKilometers
	}
	return earthRadiusMiles
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
