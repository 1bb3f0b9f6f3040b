package inaturalist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gingerhendrix/my-nat/internal/observation"
)

func TestDecodeObservations_TopLevelArray(t *testing.T) {
	t.Parallel()

	obs, err := decodeObservations([]byte(twoObservations), testBaseURL)
	require.NoError(t, err)
	require.Len(t, obs, 2)

	first := obs[0]
	assert.Equal(t, "Western Fence Lizard", first.SpeciesGuess)
	assert.Equal(t, observation.GradeResearch, first.QualityGrade)
	require.NotNil(t, first.Coordinate)
	assert.InDelta(t, 37.775, first.Coordinate.Latitude, 1e-9)
	assert.InDelta(t, -122.419, first.Coordinate.Longitude, 1e-9)
	assert.Nil(t, first.DistanceMeters, "decoding never annotates distance")

	second := obs[1]
	assert.Nil(t, second.Coordinate, "null coordinates mean no coordinate")
	assert.Equal(t, observation.GradeNeedsID, second.QualityGrade)
	assert.Empty(t, second.Photos)
}

func TestDecodeObservations_ResultsObject(t *testing.T) {
	t.Parallel()

	body := `{"total_results": 1, "page": 1, "results": [
	  {"id": 7, "species_guess": "Anna's Hummingbird", "latitude": 51.5, "longitude": -0.12,
	   "uri": "https://www.inaturalist.org/observations/7", "quality_grade": "casual"}
	]}`

	obs, err := decodeObservations([]byte(body), testBaseURL)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, int64(7), obs[0].ID)
	assert.Equal(t, "https://www.inaturalist.org/observations/7", obs[0].URI)
	require.NotNil(t, obs[0].Coordinate)
	assert.InDelta(t, 51.5, obs[0].Coordinate.Latitude, 1e-9)
	assert.Equal(t, observation.GradeCasual, obs[0].QualityGrade)
}

func TestDecodeObservations_Coordinates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		record  string
		wantNil bool
		lat     float64
		lng     float64
	}{
		{"numbers", `{"id":1,"latitude":10.5,"longitude":20.25}`, false, 10.5, 20.25},
		{"strings", `{"id":1,"latitude":"10.5","longitude":"20.25"}`, false, 10.5, 20.25},
		{"empty strings", `{"id":1,"latitude":"","longitude":""}`, true, 0, 0},
		{"missing", `{"id":1}`, true, 0, 0},
		{"location field", `{"id":1,"location":"-33.86,151.21"}`, false, -33.86, 151.21},
		{"out of range", `{"id":1,"latitude":123,"longitude":0}`, true, 0, 0},
		{"only latitude", `{"id":1,"latitude":5}`, true, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			obs, err := decodeObservations([]byte("["+tt.record+"]"), testBaseURL)
			require.NoError(t, err)
			require.Len(t, obs, 1)
			if tt.wantNil {
				assert.Nil(t, obs[0].Coordinate)
				return
			}
			require.NotNil(t, obs[0].Coordinate)
			assert.InDelta(t, tt.lat, obs[0].Coordinate.Latitude, 1e-9)
			assert.InDelta(t, tt.lng, obs[0].Coordinate.Longitude, 1e-9)
		})
	}
}

func TestDecodeObservations_PhotoFallbacks(t *testing.T) {
	t.Parallel()

	body := `[{"id": 1, "photos": [
	  {"id": 11, "square_url": "sq.jpg", "attribution": "(c) a", "license_code": "cc-by"},
	  {"id": 12, "thumb_url": "t.jpg", "small_url": "s.jpg", "medium_url": "m.jpg", "large_url": "l.jpg"},
	  {"id": 13, "thumb_url": "t.jpg", "small_url": "s.jpg"}
	]}]`

	obs, err := decodeObservations([]byte(body), testBaseURL)
	require.NoError(t, err)
	require.Len(t, obs[0].Photos, 3)

	squareOnly := obs[0].Photos[0]
	assert.Equal(t, int64(11), squareOnly.ID)
	assert.Equal(t, "sq.jpg", squareOnly.ThumbnailURL)
	assert.Equal(t, "sq.jpg", squareOnly.SmallURL)
	assert.Equal(t, "sq.jpg", squareOnly.MediumURL)
	assert.Equal(t, "sq.jpg", squareOnly.LargeURL)
	assert.Equal(t, "cc-by", squareOnly.License)
	assert.Equal(t, "(c) a", squareOnly.Attribution)

	full := obs[0].Photos[1]
	assert.Equal(t, "t.jpg", full.ThumbnailURL)
	assert.Equal(t, "s.jpg", full.SmallURL)
	assert.Equal(t, "m.jpg", full.MediumURL)
	assert.Equal(t, "l.jpg", full.LargeURL)

	partial := obs[0].Photos[2]
	assert.Equal(t, "s.jpg", partial.MediumURL)
	assert.Equal(t, "s.jpg", partial.LargeURL)

	primary, ok := obs[0].PrimaryPhoto()
	require.True(t, ok)
	assert.Equal(t, int64(11), primary.ID, "photo order is preserved")
}

func TestDecodeObservations_DefaultURI(t *testing.T) {
	t.Parallel()

	obs, err := decodeObservations([]byte(`[{"id": 42}]`), testBaseURL)
	require.NoError(t, err)
	assert.Equal(t, testBaseURL+"/observations/42", obs[0].URI)
	assert.Equal(t, observation.GradeUnknown, obs[0].QualityGrade)
}

func TestDecodeObservations_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html></html>`},
		{"truncated", `[{"id": 1,`},
		{"scalar", `"hello"`},
		{"object without results", `{"error": "x"}`},
		{"results not array", `{"results": 5}`},
		{"record not object", `[1, 2]`},
		{"record without id", `[{"species_guess": "x"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := decodeObservations([]byte(tt.body), testBaseURL)
			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
		})
	}
}
