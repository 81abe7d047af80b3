package rest

import (
	"github.com/dfryer1193/goplaces/api"
	"github.com/dfryer1193/goplaces/places/application"
	"github.com/dfryer1193/goplaces/places/assets"
	"github.com/dfryer1193/goplaces/places/domain"
	"github.com/dfryer1193/goplaces/places/geo"
)

func toPlace(p *domain.Place, codec *assets.Codec) api.Place {
	images := make([]api.Image, len(p.Images))
	for i, ref := range p.Images {
		images[i] = api.Image{
			URL:  string(ref),
			Card: string(codec.WithTransform(ref, assets.CardTransform)),
			Hero: string(codec.WithTransform(ref, assets.HeroTransform)),
		}
	}

	keywords := p.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	return api.Place{
		ID:            p.ID,
		NameEN:        p.NameEN,
		NameKM:        p.NameKM,
		ProvinceEN:    p.ProvinceEN,
		ProvinceKM:    p.ProvinceKM,
		DescriptionEN: p.DescriptionEN,
		DescriptionKM: p.DescriptionKM,
		Keywords:      keywords,
		MapLink:       p.MapLink,
		Images:        images,
		Latitude:      p.Latitude,
		Longitude:     p.Longitude,
		CreatedAt:     p.CreatedAt,
	}
}

func toPlaces(places []*domain.Place, codec *assets.Codec) []api.Place {
	out := make([]api.Place, len(places))
	for i, p := range places {
		out[i] = toPlace(p, codec)
	}
	return out
}

func toNearby(results []geo.DistanceResult, codec *assets.Codec) []api.NearbyPlace {
	out := make([]api.NearbyPlace, len(results))
	for i, r := range results {
		out[i] = api.NearbyPlace{Place: toPlace(r.Place, codec), DistanceKm: r.DistanceKm}
	}
	return out
}

func fromProto(p *api.PlaceProto) *domain.Place {
	images := make([]domain.ImageReference, len(p.Images))
	for i, s := range p.Images {
		images[i] = domain.ImageReference(s)
	}
	return &domain.Place{
		NameEN:        p.NameEN,
		NameKM:        p.NameKM,
		ProvinceEN:    p.ProvinceEN,
		ProvinceKM:    p.ProvinceKM,
		DescriptionEN: p.DescriptionEN,
		DescriptionKM: p.DescriptionKM,
		Keywords:      p.Keywords,
		MapLink:       p.MapLink,
		Images:        images,
		Latitude:      p.Latitude,
		Longitude:     p.Longitude,
	}
}

func toSession(s *application.EditSession) api.Session {
	return api.Session{
		ID:       s.ID,
		PlaceID:  s.PlaceID,
		OpenedAt: s.OpenedAt,
		Original: refStrings(s.Original()),
		Working:  refStrings(s.Working()),
		Tasks:    api.NewTasks(s.Tasks()),
	}
}

func refStrings(refs []domain.ImageReference) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = string(r)
	}
	return out
}

func outcomeStrings(results map[string]domain.DeleteOutcome) map[string]string {
	out := make(map[string]string, len(results))
	for id, o := range results {
		out[id] = string(o)
	}
	return out
}
