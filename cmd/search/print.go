package search

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/gingerhendrix/my-nat/internal/search"
)

// Output formats
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func validFormat(f string) bool {
	switch f {
	case formatTable, formatJSON, formatYAML:
		return true
	}
	return false
}

// report is the machine-readable form of a result page.
type report struct {
	TotalMatchCount int          `json:"total_match_count" yaml:"total_match_count"`
	CurrentPage     int          `json:"current_page" yaml:"current_page"`
	TotalPages      int          `json:"total_pages" yaml:"total_pages"`
	Observations    []reportItem `json:"observations" yaml:"observations"`
}

type reportItem struct {
	ID          int64   `json:"id" yaml:"id"`
	Species     string  `json:"species" yaml:"species"`
	ObservedOn  string  `json:"observed_on,omitempty" yaml:"observed_on,omitempty"`
	Place       string  `json:"place,omitempty" yaml:"place,omitempty"`
	Quality     string  `json:"quality" yaml:"quality"`
	Latitude    float64 `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty" yaml:"longitude,omitempty"`
	Distance    string  `json:"distance,omitempty" yaml:"distance,omitempty"`
	PhotoURL    string  `json:"photo_url,omitempty" yaml:"photo_url,omitempty"`
	URI         string  `json:"uri,omitempty" yaml:"uri,omitempty"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
}

func newReport(r *search.Result) report {
	rep := report{
		TotalMatchCount: r.TotalMatchCount,
		CurrentPage:     r.CurrentPage,
		TotalPages:      r.TotalPages,
		Observations:    make([]reportItem, 0, len(r.Observations)),
	}
	for i := range r.Observations {
		o := &r.Observations[i]
		item := reportItem{
			ID:          o.ID,
			Species:     o.SpeciesGuess,
			ObservedOn:  o.ObservedOn,
			Place:       o.PlaceGuess,
			Quality:     o.QualityGrade.Label(),
			Distance:    o.FormattedDistance(),
			URI:         o.URI,
			Description: o.PlainDescription(),
		}
		if o.Coordinate != nil {
			item.Latitude = o.Coordinate.Latitude
			item.Longitude = o.Coordinate.Longitude
		}
		if p, ok := o.PrimaryPhoto(); ok {
			item.PhotoURL = p.MediumURL
		}
		rep.Observations = append(rep.Observations, item)
	}
	return rep
}

// render writes r to w in the given format.
func render(w io.Writer, format string, r *search.Result) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(newReport(r))
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newReport(r)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return renderTable(w, r)
	}
}

func renderTable(w io.Writer, r *search.Result) error {
	p := message.NewPrinter(language.English)

	if len(r.Observations) == 0 {
		_, err := fmt.Fprintln(w, "No observations found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSPECIES\tOBSERVED\tQUALITY\tDISTANCE\tPLACE")
	for i := range r.Observations {
		o := &r.Observations[i]
		species := o.SpeciesGuess
		if species == "" {
			species = "Unknown"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			o.ID, species, dash(o.ObservedOn), o.QualityGrade.Label(),
			dash(o.FormattedDistance()), dash(o.PlaceGuess))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := p.Fprintf(w, "\nPage %d of %d (%d observations)\n",
		r.CurrentPage, r.TotalPages, r.TotalMatchCount)
	return err
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
