package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dfryer1193/goplaces/places/domain"
	"github.com/dfryer1193/goplaces/shared/db"
	"github.com/lib/pq"
)

var _ domain.PlaceRepository = (*PostgresPlaceRepository)(nil)

// PostgresPlaceRepository implements domain.PlaceRepository on Postgres, storing keywords
// and image references as text[] columns.
type PostgresPlaceRepository struct {
	db *sql.DB
}

func NewPostgresPlaceRepository(db *sql.DB) *PostgresPlaceRepository {
	return &PostgresPlaceRepository{db: db}
}

func (r *PostgresPlaceRepository) ListPlaces(ctx context.Context) ([]*domain.Place, error) {
	rows, err := db.GetExecutor(ctx, r.db).QueryContext(ctx, listPlacesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}
	defer rows.Close()

	places := make([]*domain.Place, 0)
	for rows.Next() {
		p, err := scanPostgresPlace(rows)
		if err != nil {
			return nil, err
		}
		places = append(places, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating place rows: %w", err)
	}

	return places, nil
}

func (r *PostgresPlaceRepository) GetPlace(ctx context.Context, id string) (*domain.Place, error) {
	if id == "" {
		return nil, errEmptyID
	}

	row := db.GetExecutor(ctx, r.db).QueryRowContext(ctx, db.Postgres.Rebind(getPlaceQuery), id)
	p, err := scanPostgresPlace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("place %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresPlaceRepository) CreatePlace(ctx context.Context, p *domain.Place) error {
	if err := validatePlace(p); err != nil {
		return err
	}

	keywords := p.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	lat, lon := nullableCoordinates(p)

	_, err := db.GetExecutor(ctx, r.db).ExecContext(ctx, db.Postgres.Rebind(insertPlaceQuery),
		p.ID,
		p.NameEN,
		p.NameKM,
		p.ProvinceEN,
		p.ProvinceKM,
		p.DescriptionEN,
		p.DescriptionKM,
		pq.Array(keywords),
		p.MapLink,
		pq.Array(fromReferences(p.Images)),
		lat,
		lon,
		p.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert place: %w", err)
	}
	return nil
}

func (r *PostgresPlaceRepository) UpdateImages(ctx context.Context, id string, images []domain.ImageReference) error {
	if id == "" {
		return errEmptyID
	}

	res, err := db.GetExecutor(ctx, r.db).ExecContext(ctx, db.Postgres.Rebind(updateImagesQuery), pq.Array(fromReferences(images)), id)
	if err != nil {
		return fmt.Errorf("failed to update images: %w", err)
	}
	return requireAffected(res, id)
}

// lockPlaceQuery holds the row until the delete commits so a concurrent image update
// waits and then finds nothing to update.
const lockPlaceQuery = getPlaceQuery + ` FOR UPDATE`

func (r *PostgresPlaceRepository) DeletePlace(ctx context.Context, id string) (*domain.Place, error) {
	if id == "" {
		return nil, errEmptyID
	}

	var deleted *domain.Place
	err := db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		exec := db.GetExecutor(txCtx, r.db)

		p, err := scanPostgresPlace(exec.QueryRowContext(txCtx, db.Postgres.Rebind(lockPlaceQuery), id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("place %s: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return err
		}

		res, err := exec.ExecContext(txCtx, db.Postgres.Rebind(deletePlaceQuery), id)
		if err != nil {
			return fmt.Errorf("failed to delete place: %w", err)
		}
		if err := requireAffected(res, id); err != nil {
			return err
		}
		deleted = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func scanPostgresPlace(s rowScanner) (*domain.Place, error) {
	var row placeRow
	var keywords, images pq.StringArray
	err := s.Scan(
		&row.ID,
		&row.NameEN,
		&row.NameKM,
		&row.ProvinceEN,
		&row.ProvinceKM,
		&row.DescriptionEN,
		&row.DescriptionKM,
		&keywords,
		&row.MapLink,
		&images,
		&row.Latitude,
		&row.Longitude,
		&row.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan place row: %w", err)
	}

	return row.toDomain(keywords, images), nil
}
