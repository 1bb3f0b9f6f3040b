package observation

import (
	"slices"

	"github.com/gingerhendrix/my-nat/internal/geo"
)

// Rank returns a new slice ordered by ascending distance from origin.
//
// Observations without a coordinate get no distance and follow all ranked
// ones; ties and unranked entries keep their input order. With a nil origin
// the copy keeps input order and carries no distances. The input is never
// modified.
func Rank(observations []Observation, origin *geo.Coordinate) []Observation {
	ranked := make([]Observation, len(observations))
	for i := range observations {
		ranked[i] = observations[i].Clone()
	}

	for i := range ranked {
		ranked[i].DistanceMeters = nil
		if origin == nil || ranked[i].Coordinate == nil {
			continue
		}
		d := geo.Distance(*origin, *ranked[i].Coordinate)
		ranked[i].DistanceMeters = &d
	}

	if origin != nil {
		slices.SortStableFunc(ranked, compareDistance)
	}
	return ranked
}

func compareDistance(a, b Observation) int {
	switch {
	case a.DistanceMeters == nil && b.DistanceMeters == nil:
		return 0
	case a.DistanceMeters == nil:
		return 1
	case b.DistanceMeters == nil:
		return -1
	case *a.DistanceMeters < *b.DistanceMeters:
		return -1
	case *a.DistanceMeters > *b.DistanceMeters:
		return 1
	default:
		return 0
	}
}
