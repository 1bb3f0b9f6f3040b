// Package observation defines the observation data model returned by searches
// and the distance ranking applied to each result page.
package observation

import (
	"strings"

	"github.com/k3a/html2text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gingerhendrix/my-nat/internal/geo"
)

// QualityGrade is the community verification level of an observation.
type QualityGrade string

const (
	GradeResearch QualityGrade = "research"
	GradeNeedsID  QualityGrade = "needs_id"
	GradeCasual   QualityGrade = "casual"
	GradeUnknown  QualityGrade = "unknown"
)

var titleCaser = cases.Title(language.English)

// ParseQualityGrade maps an API value onto a known grade, GradeUnknown otherwise.
func ParseQualityGrade(s string) QualityGrade {
	switch g := QualityGrade(strings.ToLower(strings.TrimSpace(s))); g {
	case GradeResearch, GradeNeedsID, GradeCasual:
		return g
	default:
		return GradeUnknown
	}
}

// Label returns the display form, e.g. "Needs Id" for needs_id.
func (g QualityGrade) Label() string {
	if g == "" {
		g = GradeUnknown
	}
	return titleCaser.String(strings.ReplaceAll(string(g), "_", " "))
}

// Photo is one image attached to an observation.
type Photo struct {
	ID           int64  `json:"id"`
	Attribution  string `json:"attribution,omitempty"`
	License      string `json:"license,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	SmallURL     string `json:"small_url,omitempty"`
	MediumURL    string `json:"medium_url,omitempty"`
	LargeURL     string `json:"large_url,omitempty"`
}

// Observation is a read-only projection of one remote record.
type Observation struct {
	ID             int64           `json:"id"`
	SpeciesGuess   string          `json:"species_guess"`
	ObservedOn     string          `json:"observed_on,omitempty"`
	Description    string          `json:"description,omitempty"`
	URI            string          `json:"uri,omitempty"`
	PlaceGuess     string          `json:"place_guess,omitempty"`
	Coordinate     *geo.Coordinate `json:"coordinate,omitempty"`
	QualityGrade   QualityGrade    `json:"quality_grade"`
	Photos         []Photo         `json:"photos"`
	DistanceMeters *float64        `json:"distance_meters,omitempty"`
}

// PrimaryPhoto returns the first photo, the one shown with the result.
func (o *Observation) PrimaryPhoto() (Photo, bool) {
	if len(o.Photos) == 0 {
		return Photo{}, false
	}
	return o.Photos[0], true
}

// PlainDescription converts the HTML description to plain text.
func (o *Observation) PlainDescription() string {
	if o.Description == "" {
		return ""
	}
	return strings.TrimSpace(html2text.HTML2Text(o.Description))
}

// FormattedDistance returns the human distance, or "" when none was computed.
func (o *Observation) FormattedDistance() string {
	if o.DistanceMeters == nil {
		return ""
	}
	return geo.FormatDistance(*o.DistanceMeters)
}

// Clone returns a copy that shares no mutable state with o.
func (o *Observation) Clone() Observation {
	c := *o
	if o.Coordinate != nil {
		coord := *o.Coordinate
		c.Coordinate = &coord
	}
	if o.DistanceMeters != nil {
		d := *o.DistanceMeters
		c.DistanceMeters = &d
	}
	if o.Photos != nil {
		c.Photos = append([]Photo(nil), o.Photos...)
	}
	return c
}
