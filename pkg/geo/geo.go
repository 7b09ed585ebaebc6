// Package geo holds the distance math used to match donors and blood requests.
package geo

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// EarthRadiusKm is the mean Earth radius used by the Haversine formula.
const EarthRadiusKm = 6371.0

// ErrInvalidCoordinate is returned for points outside lat [-90,90] / lng [-180,180].
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate reports whether p lies within the valid coordinate range.
func (p Point) Validate() error {
	if math.IsNaN(p.Latitude) || p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90,90]", ErrInvalidCoordinate, p.Latitude)
	}
	if math.IsNaN(p.Longitude) || p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180,180]", ErrInvalidCoordinate, p.Longitude)
	}
	return nil
}

// DistanceKm returns the great-circle distance between a and b rounded to 0.1 km.
func DistanceKm(a, b Point) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}
	return round1(haversineKm(a, b)), nil
}

// IsWithinRadius reports whether point is at most radiusKm from center. The boundary is inclusive.
func IsWithinRadius(point, center Point, radiusKm float64) (bool, error) {
	d, err := DistanceKm(point, center)
	if err != nil {
		return false, err
	}
	return d <= radiusKm, nil
}

// Box is a lat/lng bounding rectangle.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// Contains reports whether p falls inside the box.
func (b Box) Contains(p Point) bool {
	return p.Latitude >= b.MinLat && p.Latitude <= b.MaxLat &&
		p.Longitude >= b.MinLng && p.Longitude <= b.MaxLng
}

// BoundingBox returns a rectangle enclosing every point within radiusKm of center.
// It is a prefilter for store queries; callers still apply IsWithinRadius.
func BoundingBox(center Point, radiusKm float64) (Box, error) {
	if err := center.Validate(); err != nil {
		return Box{}, err
	}
	if radiusKm < 0 {
		radiusKm = 0
	}
	// pad by the rounding step so inclusive boundary points are not cut off
	angular := (radiusKm + 0.05) / EarthRadiusKm
	latDelta := toDegrees(angular)

	box := Box{
		MinLat: math.Max(center.Latitude-latDelta, -90),
		MaxLat: math.Min(center.Latitude+latDelta, 90),
		MinLng: -180,
		MaxLng: 180,
	}

	// near the poles every longitude can be in range
	if box.MinLat > -90 && box.MaxLat < 90 {
		lngDelta := toDegrees(math.Asin(math.Min(math.Sin(angular)/math.Cos(toRadians(center.Latitude)), 1)))
		minLng := center.Longitude - lngDelta
		maxLng := center.Longitude + lngDelta
		if minLng >= -180 && maxLng <= 180 {
			box.MinLng, box.MaxLng = minLng, maxLng
		}
	}
	return box, nil
}

// Locatable is anything that has a position.
type Locatable interface {
	GeoPoint() Point
}

// Ranked pairs an item with its distance from a search center.
type Ranked[T any] struct {
	Item       T
	DistanceKm float64
}

// SortByDistance returns items ordered by ascending distance from center.
// The sort is stable: items at equal distance keep their input order.
func SortByDistance[T Locatable](items []T, center Point) ([]Ranked[T], error) {
	if err := center.Validate(); err != nil {
		return nil, err
	}
	ranked := make([]Ranked[T], 0, len(items))
	for _, item := range items {
		d, err := DistanceKm(center, item.GeoPoint())
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, Ranked[T]{Item: item, DistanceKm: d})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})
	return ranked, nil
}

func haversineKm(a, b Point) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := toRadians(b.Latitude - a.Latitude)
	dLng := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func toRadians(degrees float64) float64 {
	return degrees * (math.Pi / 180)
}

func toDegrees(radians float64) float64 {
	return radians * (180 / math.Pi)
}
