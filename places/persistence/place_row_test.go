package persistence

import (
	"database/sql"
	"testing"
	"time"

	"github.com/lib/pq"
)

func TestPlaceRow_ToDomain(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name         string
		row          placeRow
		keywords     []string
		images       []string
		wantLocation bool
	}{
		{
			name: "full row",
			row: placeRow{
				ID:        "p1",
				Latitude:  sql.NullFloat64{Float64: 11.55, Valid: true},
				Longitude: sql.NullFloat64{Float64: 104.92, Valid: true},
				CreatedAt: sql.NullTime{Time: created, Valid: true},
			},
			keywords:     pq.StringArray{"palace"},
			images:       pq.StringArray{"https://res.cloudinary.com/demo/image/upload/v1/cambodia-travel/a.jpg"},
			wantLocation: true,
		},
		{
			name: "half a coordinate",
			row: placeRow{
				ID:       "p2",
				Latitude: sql.NullFloat64{Float64: 11.55, Valid: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.row.toDomain(tt.keywords, tt.images)

			if _, ok := p.Location(); ok != tt.wantLocation {
				t.Errorf("Location() ok = %v, want %v", ok, tt.wantLocation)
			}
			if p.Keywords == nil {
				t.Error("Keywords should never be nil")
			}
			if len(p.Images) != len(tt.images) {
				t.Errorf("Images = %v, want %d entries", p.Images, len(tt.images))
			}
			if tt.row.CreatedAt.Valid && !p.CreatedAt.Equal(created) {
				t.Errorf("CreatedAt = %v, want %v", p.CreatedAt, created)
			}
		})
	}
}
