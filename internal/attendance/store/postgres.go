package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"conexus/internal/attendance/models"
	"conexus/pkg/platform/sentinel"
)

// PostgresStore persists portals and the attendance log in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreatePortal(ctx context.Context, p *models.Portal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO portals (id, name, room_id, created_at) VALUES ($1, $2, $3, $4)
	`, p.ID, p.Name, p.RoomID, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create portal: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPortals(ctx context.Context) ([]*models.Portal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, room_id, created_at FROM portals ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list portals: %w", err)
	}
	defer rows.Close()

	var out []*models.Portal
	for rows.Next() {
		var p models.Portal
		if err := rows.Scan(&p.ID, &p.Name, &p.RoomID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan portal: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindPortal(ctx context.Context, id uuid.UUID) (*models.Portal, error) {
	var p models.Portal
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, room_id, created_at FROM portals WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.RoomID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find portal: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) DeletePortal(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM portals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete portal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete portal: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// AppendIfQuiet performs the duplicate check and the insert inside one
// transaction holding a per-registration advisory lock, so two scans
// arriving in the same instant cannot both pass the recency check.
func (s *PostgresStore) AppendIfQuiet(ctx context.Context, rec *models.Record, window time.Duration) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("append attendance record: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, rec.RegistrationID); err != nil {
		return false, fmt.Errorf("lock registration: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO attendance_logs (id, registration_id, portal_label, display_name, device, scanned_at)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE NOT EXISTS (
			SELECT 1 FROM attendance_logs
			WHERE registration_id = $2 AND scanned_at > $7
		)
	`, rec.ID, rec.RegistrationID, rec.PortalLabel, rec.DisplayName, rec.Device,
		rec.ScannedAt, rec.ScannedAt.Add(-window))
	if err != nil {
		return false, fmt.Errorf("append attendance record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("append attendance record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("append attendance record: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) LastForRegistration(ctx context.Context, registrationID uuid.UUID) (*models.Record, error) {
	var rec models.Record
	err := s.db.QueryRowContext(ctx, `
		SELECT id, registration_id, portal_label, display_name, device, scanned_at
		FROM attendance_logs WHERE registration_id = $1
		ORDER BY scanned_at DESC LIMIT 1
	`, registrationID).
		Scan(&rec.ID, &rec.RegistrationID, &rec.PortalLabel, &rec.DisplayName, &rec.Device, &rec.ScannedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last attendance record: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, registration_id, portal_label, display_name, device, scanned_at
		FROM attendance_logs ORDER BY scanned_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		var rec models.Record
		if err := rows.Scan(&rec.ID, &rec.RegistrationID, &rec.PortalLabel, &rec.DisplayName, &rec.Device, &rec.ScannedAt); err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
