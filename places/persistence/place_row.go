package persistence

import (
	"database/sql"

	"github.com/dfryer1193/goplaces/places/domain"
)

const placeColumns = `id, name_en, name_km, province_en, province_km, description_en, description_km,
	keywords, map_link, images, latitude, longitude, created_at`

// placeRow is the driver-neutral part of a scanned places row. Keywords and images are
// decoded by each repository since their column types differ per driver.
type placeRow struct {
	ID            string
	NameEN        string
	NameKM        string
	ProvinceEN    string
	ProvinceKM    string
	DescriptionEN string
	DescriptionKM string
	MapLink       string
	Latitude      sql.NullFloat64
	Longitude     sql.NullFloat64
	CreatedAt     sql.NullTime
}

func (r *placeRow) toDomain(keywords []string, images []string) *domain.Place {
	p := &domain.Place{
		ID:            r.ID,
		NameEN:        r.NameEN,
		NameKM:        r.NameKM,
		ProvinceEN:    r.ProvinceEN,
		ProvinceKM:    r.ProvinceKM,
		DescriptionEN: r.DescriptionEN,
		DescriptionKM: r.DescriptionKM,
		MapLink:       r.MapLink,
		Keywords:      keywords,
		Images:        toReferences(images),
	}
	if p.Keywords == nil {
		p.Keywords = []string{}
	}
	if r.Latitude.Valid && r.Longitude.Valid {
		lat, lon := r.Latitude.Float64, r.Longitude.Float64
		p.Latitude = &lat
		p.Longitude = &lon
	}
	if r.CreatedAt.Valid {
		p.CreatedAt = r.CreatedAt.Time
	}
	return p
}

func toReferences(images []string) []domain.ImageReference {
	refs := make([]domain.ImageReference, len(images))
	for i, s := range images {
		refs[i] = domain.ImageReference(s)
	}
	return refs
}

func fromReferences(refs []domain.ImageReference) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = string(r)
	}
	return out
}

// nullableCoordinates stores a coordinate only when both halves of the pair are set.
func nullableCoordinates(p *domain.Place) (any, any) {
	if p.Latitude == nil || p.Longitude == nil {
		return nil, nil
	}
	return *p.Latitude, *p.Longitude
}

func validatePlace(p *domain.Place) error {
	if p == nil {
		return errNilPlace
	}
	if p.ID == "" {
		return errEmptyID
	}
	return nil
}
