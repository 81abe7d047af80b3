package domain

import (
	"context"
	"time"
)

// Coordinates is a WGS84 latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Place represents a catalog entry in the travel directory.
// Images is ordered by display order. Latitude and Longitude are optional; a place
// missing either one is never ranked by proximity.
type Place struct {
	ID            string
	NameEN        string
	NameKM        string
	ProvinceEN    string
	ProvinceKM    string
	DescriptionEN string
	DescriptionKM string
	Keywords      []string
	MapLink       string
	Images        []ImageReference
	Latitude      *float64
	Longitude     *float64
	CreatedAt     time.Time
}

// Location returns the place's coordinates, or false when either component is absent.
func (p *Place) Location() (Coordinates, bool) {
	if p == nil || p.Latitude == nil || p.Longitude == nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: *p.Latitude, Lon: *p.Longitude}, true
}

// PlaceFilter narrows a catalog listing. Empty fields match everything.
type PlaceFilter struct {
	Province string
	Query    string
}

type PlaceRepository interface {
	// ListPlaces returns every place, newest first.
	ListPlaces(ctx context.Context) ([]*Place, error)

	GetPlace(ctx context.Context, id string) (*Place, error)

	CreatePlace(ctx context.Context, p *Place) error

	// UpdateImages replaces the image list of a single place atomically.
	UpdateImages(ctx context.Context, id string, images []ImageReference) error

	// DeletePlace removes a place and returns it as it was at deletion. The read and the
	// delete happen in one transaction, so the returned images are exactly those removed.
	DeletePlace(ctx context.Context, id string) (*Place, error)
}
