package inaturalist

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/antonholmquist/jason"

	"github.com/gingerhendrix/my-nat/internal/geo"
	"github.com/gingerhendrix/my-nat/internal/observation"
)

// decodeObservations parses a page body. The legacy endpoints return a bare
// array; the v1 style wraps records in {"results": [...]}.
func decodeObservations(body []byte, siteURL string) ([]observation.Observation, error) {
	root, err := jason.NewValueFromBytes(body)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	records, err := recordsOf(root)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	out := make([]observation.Observation, 0, len(records))
	for i, rec := range records {
		obj, err := rec.Object()
		if err != nil {
			return nil, &ParseError{Err: fmt.Errorf("record %d is not an object: %w", i, err)}
		}
		o, err := decodeObservation(obj, siteURL)
		if err != nil {
			return nil, &ParseError{Err: fmt.Errorf("record %d: %w", i, err)}
		}
		out = append(out, o)
	}
	return out, nil
}

func recordsOf(root *jason.Value) ([]*jason.Value, error) {
	if arr, err := root.Array(); err == nil {
		return arr, nil
	}

	obj, err := root.Object()
	if err != nil {
		return nil, fmt.Errorf("expected an array or object at top level")
	}
	results, err := obj.GetValue("results")
	if err != nil {
		return nil, fmt.Errorf("missing results: %w", err)
	}
	arr, err := results.Array()
	if err != nil {
		return nil, fmt.Errorf("results is not an array: %w", err)
	}
	return arr, nil
}

func decodeObservation(obj *jason.Object, siteURL string) (observation.Observation, error) {
	id, err := obj.GetInt64("id")
	if err != nil {
		return observation.Observation{}, fmt.Errorf("missing or invalid id: %w", err)
	}

	o := observation.Observation{
		ID:           id,
		SpeciesGuess: optString(obj, "species_guess"),
		ObservedOn:   firstString(obj, "observed_on", "observed_on_string"),
		Description:  optString(obj, "description"),
		URI:          optString(obj, "uri"),
		PlaceGuess:   optString(obj, "place_guess"),
		QualityGrade: observation.ParseQualityGrade(optString(obj, "quality_grade")),
		Coordinate:   decodeCoordinate(obj),
	}
	if o.URI == "" {
		o.URI = siteURL + "/observations/" + strconv.FormatInt(id, 10)
	}

	photos, err := obj.GetObjectArray("photos")
	if err == nil {
		o.Photos = make([]observation.Photo, 0, len(photos))
		for _, p := range photos {
			o.Photos = append(o.Photos, decodePhoto(p))
		}
	}
	return o, nil
}

// decodeCoordinate accepts latitude/longitude as numbers or decimal strings,
// then the v1 "location" field ("lat,lng"). Anything else, including
// out-of-range values, yields no coordinate.
func decodeCoordinate(obj *jason.Object) *geo.Coordinate {
	lat, latOK := degrees(obj, "latitude")
	lng, lngOK := degrees(obj, "longitude")
	if !latOK || !lngOK {
		lat, lng, latOK = parseLocation(optString(obj, "location"))
		if !latOK {
			return nil
		}
	}

	c := geo.Coordinate{Latitude: lat, Longitude: lng}
	if c.Validate() != nil {
		return nil
	}
	return &c
}

func degrees(obj *jason.Object, key string) (float64, bool) {
	v, err := obj.GetValue(key)
	if err != nil {
		return 0, false
	}
	if f, err := v.Float64(); err == nil {
		return f, true
	}
	s, err := v.String()
	if err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseLocation(s string) (lat, lng float64, ok bool) {
	latStr, lngStr, found := strings.Cut(s, ",")
	if !found {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

// decodePhoto fills missing sizes from the next smaller one so every
// non-empty photo has all four URLs.
func decodePhoto(obj *jason.Object) observation.Photo {
	p := observation.Photo{
		Attribution: optString(obj, "attribution"),
		License:     firstString(obj, "license_code", "license"),
	}
	if id, err := obj.GetInt64("id"); err == nil {
		p.ID = id
	}

	p.ThumbnailURL = firstString(obj, "thumb_url", "thumbnail_url", "square_url", "url")
	p.SmallURL = firstString(obj, "small_url")
	if p.SmallURL == "" {
		p.SmallURL = p.ThumbnailURL
	}
	p.MediumURL = firstString(obj, "medium_url")
	if p.MediumURL == "" {
		p.MediumURL = p.SmallURL
	}
	p.LargeURL = firstString(obj, "large_url", "original_url")
	if p.LargeURL == "" {
		p.LargeURL = p.MediumURL
	}
	return p
}

// optString returns the string at key, or "" when missing, null or not a string.
func optString(obj *jason.Object, key string) string {
	s, err := obj.GetString(key)
	if err != nil {
		return ""
	}
	return s
}

func firstString(obj *jason.Object, keys ...string) string {
	for _, key := range keys {
		if s := optString(obj, key); s != "" {
			return s
		}
	}
	return ""
}
