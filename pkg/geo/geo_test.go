package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type site struct {
	name string
	at   Point
}

func (s site) GeoPoint() Point { return s.at }

func TestDistanceKm_SamePointIsZero(t *testing.T) {
	points := []Point{
		{0, 0},
		{-33.8688, 151.2093},
		{90, 180},
		{-90, -180},
	}
	for _, p := range points {
		d, err := DistanceKm(p, p)
		require.NoError(t, err)
		assert.Equal(t, 0.0, d)
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	a := Point{Latitude: 40.7128, Longitude: -74.0060}
	b := Point{Latitude: 51.5074, Longitude: -0.1278}

	ab, err := DistanceKm(a, b)
	require.NoError(t, err)
	ba, err := DistanceKm(b, a)
	require.NoError(t, err)

	assert.Equal(t, ab, ba)
	assert.InDelta(t, 5570.2, ab, 1.0)
}

func TestDistanceKm_OneDegreeOfLongitudeAtEquator(t *testing.T) {
	d, err := DistanceKm(Point{0, 0}, Point{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 111.2, d, 0.5)
}

func TestDistanceKm_RoundsToOneDecimal(t *testing.T) {
	d, err := DistanceKm(Point{0, 0}, Point{0, 1})
	require.NoError(t, err)
	assert.Equal(t, 111.2, d)
}

func TestDistanceKm_InvalidCoordinate(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
	}{
		{"latitude too high", Point{90.1, 0}, Point{0, 0}},
		{"latitude too low", Point{0, 0}, Point{-91, 0}},
		{"longitude too high", Point{0, 180.5}, Point{0, 0}},
		{"longitude too low", Point{0, 0}, Point{0, -181}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DistanceKm(tt.a, tt.b)
			assert.ErrorIs(t, err, ErrInvalidCoordinate)
		})
	}
}

func TestIsWithinRadius_InclusiveBoundary(t *testing.T) {
	center := Point{0, 0}
	point := Point{0, 1} // 111.2 km

	in, err := IsWithinRadius(point, center, 111.2)
	require.NoError(t, err)
	assert.True(t, in, "point exactly at the radius is included")

	in, err = IsWithinRadius(point, center, 111.1)
	require.NoError(t, err)
	assert.False(t, in, "point 0.1 km beyond the radius is excluded")
}

func TestIsWithinRadius_InvalidCenter(t *testing.T) {
	_, err := IsWithinRadius(Point{0, 0}, Point{100, 0}, 10)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}

func TestSortByDistance_AscendingAndStable(t *testing.T) {
	center := Point{0, 0}
	items := []site{
		{"far", Point{0, 2}},
		{"tie-a", Point{0, 1}},
		{"near", Point{0, 0.5}},
		{"tie-b", Point{1, 0}},
		{"here", Point{0, 0}},
	}

	ranked, err := SortByDistance(items, center)
	require.NoError(t, err)
	require.Len(t, ranked, len(items))

	var names []string
	for _, r := range ranked {
		names = append(names, r.Item.name)
	}
	assert.Equal(t, []string{"here", "near", "tie-a", "tie-b", "far"}, names)
	assert.Equal(t, 0.0, ranked[0].DistanceKm)
	assert.Equal(t, ranked[2].DistanceKm, ranked[3].DistanceKm)
}

func TestSortByDistance_InvalidItem(t *testing.T) {
	_, err := SortByDistance([]site{{"bad", Point{95, 0}}}, Point{0, 0})
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}

func TestBoundingBox_ContainsPointsInRadius(t *testing.T) {
	center := Point{Latitude: 12.97, Longitude: 77.59}
	box, err := BoundingBox(center, 25)
	require.NoError(t, err)

	inside := Point{Latitude: 13.10, Longitude: 77.70}
	d, err := DistanceKm(center, inside)
	require.NoError(t, err)
	require.LessOrEqual(t, d, 25.0)
	assert.True(t, box.Contains(inside))

	assert.False(t, box.Contains(Point{Latitude: 14.0, Longitude: 77.59}))
}

func TestBoundingBox_NearPoleSpansAllLongitudes(t *testing.T) {
	box, err := BoundingBox(Point{Latitude: 89.9, Longitude: 10}, 50)
	require.NoError(t, err)
	assert.Equal(t, -180.0, box.MinLng)
	assert.Equal(t, 180.0, box.MaxLng)
	assert.Equal(t, 90.0, box.MaxLat)
}
