package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"conexus/internal/accommodation/models"
	"conexus/pkg/platform/sentinel"
)

// PostgresStore persists places and rooms in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreatePlace(ctx context.Context, p *models.Place) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO places (id, name, type, created_at) VALUES ($1, $2, $3, $4)
	`, p.ID, p.Name, p.Type, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create place: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPlaces(ctx context.Context) ([]*models.Place, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, type, created_at FROM places ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list places: %w", err)
	}
	defer rows.Close()

	var out []*models.Place
	for rows.Next() {
		var p models.Place
		if err := rows.Scan(&p.ID, &p.Name, &p.Type, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindPlace(ctx context.Context, id uuid.UUID) (*models.Place, error) {
	var p models.Place
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, type, created_at FROM places WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Type, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find place: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) DeletePlace(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `DELETE FROM rooms WHERE place_id = $1 RETURNING id`, id)
	if err != nil {
		return nil, fmt.Errorf("delete rooms of place: %w", err)
	}
	var removed []uuid.UUID
	for rows.Next() {
		var roomID uuid.UUID
		if err := rows.Scan(&roomID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan room id: %w", err)
		}
		removed = append(removed, roomID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM places WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("delete place: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, sentinel.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return removed, nil
}

func (s *PostgresStore) CreateRoom(ctx context.Context, r *models.Room) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (id, place_id, name, beds, created_at) VALUES ($1, $2, $3, $4, $5)
	`, r.ID, r.PlaceID, r.Name, r.Beds, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRooms(ctx context.Context) ([]*models.Room, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, place_id, name, beds, created_at FROM rooms ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var out []*models.Room
	for rows.Next() {
		var r models.Room
		if err := rows.Scan(&r.ID, &r.PlaceID, &r.Name, &r.Beds, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var r models.Room
	err := s.db.QueryRowContext(ctx,
		`SELECT id, place_id, name, beds, created_at FROM rooms WHERE id = $1`, id).
		Scan(&r.ID, &r.PlaceID, &r.Name, &r.Beds, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find room: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
