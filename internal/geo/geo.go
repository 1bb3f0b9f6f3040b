// Package geo holds the geometry used by observation searches: bounding boxes
// around a center point and great-circle distances.
package geo

import (
	"fmt"
	"math"
)

const (
	// EarthRadiusMeters is the mean Earth radius used by Distance.
	EarthRadiusMeters = 6371000.0

	// MetersPerDegree approximates one degree of latitude.
	MetersPerDegree = 111111.0
)

// Coordinate is a WGS84 point in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Validate reports coordinates outside [-90,90] x [-180,180] or not finite.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", c.Latitude)
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", c.Longitude)
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// BoundingBox is an axis-aligned rectangle in degrees.
// Boxes near the antimeridian are not wrapped and may extend past ±180.
type BoundingBox struct {
	SWLat float64 `json:"swlat"`
	SWLng float64 `json:"swlng"`
	NELat float64 `json:"nelat"`
	NELng float64 `json:"nelng"`
}

// NewBoundingBox returns the box of half-width radiusMeters around center.
// Longitude span grows with 1/cos(latitude) and becomes infinite at the poles.
func NewBoundingBox(center Coordinate, radiusMeters float64) BoundingBox {
	latDelta := radiusMeters / MetersPerDegree
	lngDelta := radiusMeters / (MetersPerDegree * math.Cos(toRadians(center.Latitude)))

	return BoundingBox{
		SWLat: center.Latitude - latDelta,
		SWLng: center.Longitude - lngDelta,
		NELat: center.Latitude + latDelta,
		NELng: center.Longitude + lngDelta,
	}
}

// Contains reports whether c lies inside the box, edges included.
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Latitude >= b.SWLat && c.Latitude <= b.NELat &&
		c.Longitude >= b.SWLng && c.Longitude <= b.NELng
}

// Distance returns the haversine great-circle distance in meters.
func Distance(a, b Coordinate) float64 {
	dLat := toRadians(b.Latitude - a.Latitude)
	dLng := toRadians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(toRadians(a.Latitude))*math.Cos(toRadians(b.Latitude))*sinLng*sinLng
	// rounding can push h just past 1 for near-antipodal points
	h = math.Min(1, math.Max(0, h))

	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// FormatDistance renders meters as "850m" below one kilometer and "1.2km" above.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%dm", int(math.Round(meters)))
	}
	return fmt.Sprintf("%.1fkm", meters/1000)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
