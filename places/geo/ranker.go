package geo

import (
	"math"
	"sort"

	"github.com/dfryer1193/goplaces/places/domain"
)

const (
	DefaultNearbyLimit = 4
	DefaultMaxRadiusKm = 50.0
)

// NearbyOptions bounds a proximity query. Zero values select the defaults.
type NearbyOptions struct {
	Limit       int
	MaxRadiusKm float64
}

func (o NearbyOptions) withDefaults() NearbyOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultNearbyLimit
	}
	if o.MaxRadiusKm <= 0 {
		o.MaxRadiusKm = DefaultMaxRadiusKm
	}
	return o
}

// DistanceResult pairs a candidate with its distance from the reference place.
// It is computed per query and never stored.
type DistanceResult struct {
	Place      *domain.Place
	DistanceKm float64
}

// Nearby ranks candidates by ascending distance from ref and returns at most
// opts.Limit of them. The reference place (by id), candidates without coordinates and
// candidates farther than opts.MaxRadiusKm are dropped. Equal distances keep input order.
// A reference place without coordinates yields an empty result.
func Nearby(ref *domain.Place, candidates []*domain.Place, opts NearbyOptions) []DistanceResult {
	opts = opts.withDefaults()
	results := make([]DistanceResult, 0)

	origin, ok := ref.Location()
	if !ok {
		return results
	}

	for _, c := range candidates {
		if c == nil || c.ID == ref.ID {
			continue
		}
		loc, ok := c.Location()
		if !ok {
			continue
		}
		d := Distance(origin, loc)
		if math.IsNaN(d) || d > opts.MaxRadiusKm {
			continue
		}
		results = append(results, DistanceResult{Place: c, DistanceKm: d})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanceKm < results[j].DistanceKm
	})

	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results
}
