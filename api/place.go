package api

import "time"

type Place struct {
	ID            string    `json:"id"`
	NameEN        string    `json:"name_en"`
	NameKM        string    `json:"name_km"`
	ProvinceEN    string    `json:"province_en"`
	ProvinceKM    string    `json:"province_km"`
	DescriptionEN string    `json:"description_en"`
	DescriptionKM string    `json:"description_km"`
	Keywords      []string  `json:"keywords"`
	MapLink       string    `json:"map_link"`
	Images        []Image   `json:"images"`
	Latitude      *float64  `json:"latitude,omitempty"`
	Longitude     *float64  `json:"longitude,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Image pairs a stored reference with display variants. Only URL is persisted.
type Image struct {
	URL  string `json:"url"`
	Card string `json:"card"`
	Hero string `json:"hero"`
}

// PlaceProto is the body accepted when creating a place.
type PlaceProto struct {
	NameEN        string   `json:"name_en"`
	NameKM        string   `json:"name_km"`
	ProvinceEN    string   `json:"province_en"`
	ProvinceKM    string   `json:"province_km"`
	DescriptionEN string   `json:"description_en"`
	DescriptionKM string   `json:"description_km"`
	Keywords      []string `json:"keywords"`
	MapLink       string   `json:"map_link"`
	Images        []string `json:"images"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
}

type NearbyPlace struct {
	Place      Place   `json:"place"`
	DistanceKm float64 `json:"distance_km"`
}

type DeleteResults struct {
	Results map[string]string `json:"results"`
}
