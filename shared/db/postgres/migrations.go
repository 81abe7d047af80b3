package postgres

import "github.com/dfryer1193/goplaces/shared/db"

var migrations = []db.Migration{
	{
		Version: 1,
		Name:    "create_places_table",
		Up: `
			CREATE TABLE IF NOT EXISTS places (
				id TEXT PRIMARY KEY,
				name_en TEXT NOT NULL DEFAULT '',
				name_km TEXT NOT NULL DEFAULT '',
				province_en TEXT NOT NULL DEFAULT '',
				province_km TEXT NOT NULL DEFAULT '',
				description_en TEXT NOT NULL DEFAULT '',
				description_km TEXT NOT NULL DEFAULT '',
				keywords TEXT[] NOT NULL DEFAULT '{}',
				map_link TEXT NOT NULL DEFAULT '',
				images TEXT[] NOT NULL DEFAULT '{}',
				latitude DOUBLE PRECISION,
				longitude DOUBLE PRECISION,
				created_at TIMESTAMPTZ NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_places_created_at
			ON places(created_at DESC);
		`,
	},
	{
		Version: 2,
		Name:    "index_places_province",
		Up: `
			CREATE INDEX IF NOT EXISTS idx_places_province_en
			ON places(lower(province_en));
		`,
	},
}
