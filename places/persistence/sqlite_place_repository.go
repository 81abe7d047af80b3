package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dfryer1193/goplaces/places/domain"
	"github.com/dfryer1193/goplaces/shared/db"
)

var _ domain.PlaceRepository = (*SQLitePlaceRepository)(nil)

var (
	errNilPlace = errors.New("place cannot be nil")
	errEmptyID  = errors.New("place ID cannot be empty")
)

// SQLitePlaceRepository implements domain.PlaceRepository on SQLite. Keywords and image
// references are stored as JSON arrays.
type SQLitePlaceRepository struct {
	db *sql.DB
}

func NewSQLitePlaceRepository(db *sql.DB) *SQLitePlaceRepository {
	return &SQLitePlaceRepository{
		db: db,
	}
}

const listPlacesQuery = `SELECT ` + placeColumns + ` FROM places ORDER BY created_at DESC, id`

func (r *SQLitePlaceRepository) ListPlaces(ctx context.Context) ([]*domain.Place, error) {
	rows, err := db.GetExecutor(ctx, r.db).QueryContext(ctx, listPlacesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}
	defer rows.Close()

	places := make([]*domain.Place, 0)
	for rows.Next() {
		p, err := scanSQLitePlace(rows)
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

const getPlaceQuery = `SELECT ` + placeColumns + ` FROM places WHERE id = ?`

func (r *SQLitePlaceRepository) GetPlace(ctx context.Context, id string) (*domain.Place, error) {
	if id == "" {
		return nil, errEmptyID
	}

	p, err := scanSQLitePlace(db.GetExecutor(ctx, r.db).QueryRowContext(ctx, getPlaceQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("place %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

const insertPlaceQuery = `
	INSERT INTO places (` + placeColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (r *SQLitePlaceRepository) CreatePlace(ctx context.Context, p *domain.Place) error {
	if err := validatePlace(p); err != nil {
		return err
	}

	keywords, err := encodeStrings(p.Keywords)
	if err != nil {
		return err
	}
	images, err := encodeStrings(fromReferences(p.Images))
	if err != nil {
		return err
	}
	lat, lon := nullableCoordinates(p)

	_, err = db.GetExecutor(ctx, r.db).ExecContext(ctx, insertPlaceQuery,
		p.ID,
		p.NameEN,
		p.NameKM,
		p.ProvinceEN,
		p.ProvinceKM,
		p.DescriptionEN,
		p.DescriptionKM,
		keywords,
		p.MapLink,
		images,
		lat,
		lon,
		p.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert place: %w", err)
	}
	return nil
}

const updateImagesQuery = `UPDATE places SET images = ? WHERE id = ?`

// UpdateImages replaces the image list of a place in a single statement.
func (r *SQLitePlaceRepository) UpdateImages(ctx context.Context, id string, images []domain.ImageReference) error {
	if id == "" {
		return errEmptyID
	}

	encoded, err := encodeStrings(fromReferences(images))
	if err != nil {
		return err
	}

	res, err := db.GetExecutor(ctx, r.db).ExecContext(ctx, updateImagesQuery, encoded, id)
	if err != nil {
		return fmt.Errorf("failed to update images: %w", err)
	}
	return requireAffected(res, id)
}

const deletePlaceQuery = `DELETE FROM places WHERE id = ?`

func (r *SQLitePlaceRepository) DeletePlace(ctx context.Context, id string) (*domain.Place, error) {
	if id == "" {
		return nil, errEmptyID
	}

	var deleted *domain.Place
	err := db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		p, err := r.GetPlace(txCtx, id)
		if err != nil {
			return err
		}

		res, err := db.GetExecutor(txCtx, r.db).ExecContext(txCtx, deletePlaceQuery, id)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLitePlace(s rowScanner) (*domain.Place, error) {
	var row placeRow
	var keywords, images string
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

	kw, err := decodeStrings(keywords)
	if err != nil {
		return nil, fmt.Errorf("place %s keywords: %w", row.ID, err)
	}
	imgs, err := decodeStrings(images)
	if err != nil {
		return nil, fmt.Errorf("place %s images: %w", row.ID, err)
	}

	return row.toDomain(kw, imgs), nil
}

func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(b), nil
}

func decodeStrings(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("place %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
