package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"conexus/internal/registration/models"
	"conexus/pkg/platform/sentinel"
)

// PostgresStore persists registrations in PostgreSQL. Transition rules live
// in the service; what belongs here is keeping the capacity and card-binding
// guards atomic at the SQL level.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const registrationColumns = `id, event_id, owner_name, owner_email, university, companions, status, room_id, nfc_card, admin_note, created_at`

func (s *PostgresStore) Create(ctx context.Context, r *models.Registration) error {
	companions, err := json.Marshal(r.Companions)
	if err != nil {
		return fmt.Errorf("marshal companions: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO registrations (id, event_id, owner_name, owner_email, university, companions, status, room_id, nfc_card, admin_note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11)
	`, r.ID, r.EventID, r.OwnerName, r.OwnerEmail, r.University, companions, r.Status, r.RoomID, r.BoundCard, r.AdminNote, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id)
	return scanRegistration(row)
}

func (s *PostgresStore) FindByCard(ctx context.Context, card string) (*models.Registration, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE nfc_card = $1`, card)
	return scanRegistration(row)
}

func (s *PostgresStore) FindByOwnerEmail(ctx context.Context, email string) (*models.Registration, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE owner_email = $1 ORDER BY created_at DESC LIMIT 1`, email)
	return scanRegistration(row)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Registration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()
	return collectRegistrations(rows)
}

func (s *PostgresStore) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Registration, error) {
	// database/sql cannot pass a uuid slice through the driver; send text.
	textIDs := make([]string, len(ids))
	for i, id := range ids {
		textIDs[i] = id.String()
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = ANY($1::uuid[])`, textIDs)
	if err != nil {
		return nil, fmt.Errorf("list registrations by ids: %w", err)
	}
	defer rows.Close()
	return collectRegistrations(rows)
}

func (s *PostgresStore) Execute(ctx context.Context, id uuid.UUID,
	validate func(*models.Registration) error,
	mutate func(*models.Registration)) (*models.Registration, error) {
	return s.executeLocked(ctx, id, uuid.Nil, 0, validate, mutate)
}

func (s *PostgresStore) ExecuteWithCapacity(ctx context.Context, id uuid.UUID, roomID uuid.UUID, beds int,
	validate func(*models.Registration) error,
	mutate func(*models.Registration)) (*models.Registration, error) {
	return s.executeLocked(ctx, id, roomID, beds, validate, mutate)
}

// executeLocked runs validate-then-mutate inside one transaction, holding a
// row lock on the registration. When a capacity guard is requested, an
// advisory lock on the room serializes concurrent assignments so two writers
// cannot both observe a free bed.
func (s *PostgresStore) executeLocked(ctx context.Context, id uuid.UUID, roomID uuid.UUID, beds int,
	validate func(*models.Registration) error,
	mutate func(*models.Registration)) (*models.Registration, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1 FOR UPDATE`, id)
	r, err := scanRegistration(row)
	if err != nil {
		return nil, err
	}
	if err := validate(r); err != nil {
		return nil, err
	}

	if roomID != uuid.Nil {
		if _, err := tx.ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, roomID); err != nil {
			return nil, fmt.Errorf("lock room: %w", err)
		}
		var occupancy int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM registrations
			WHERE room_id = $1 AND status = $2 AND id <> $3
		`, roomID, models.StatusApproved, id).Scan(&occupancy)
		if err != nil {
			return nil, fmt.Errorf("derive occupancy: %w", err)
		}
		if occupancy >= beds {
			return nil, sentinel.ErrCapacityFull
		}
	}

	mutate(r)

	companions, err := json.Marshal(r.Companions)
	if err != nil {
		return nil, fmt.Errorf("marshal companions: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE registrations
		SET status = $2, room_id = $3, nfc_card = NULLIF($4, ''), admin_note = $5, companions = $6
		WHERE id = $1
	`, r.ID, r.Status, r.RoomID, r.BoundCard, r.AdminNote, companions)
	if err != nil {
		return nil, fmt.Errorf("update registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return r, nil
}

// BindCard is a single conditional UPDATE so the uniqueness check and the
// write cannot interleave with a concurrent bind of the same card.
func (s *PostgresStore) BindCard(ctx context.Context, id uuid.UUID, card string) (*models.Registration, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE registrations SET nfc_card = $2
		WHERE id = $1
		  AND NOT EXISTS (SELECT 1 FROM registrations o WHERE o.nfc_card = $2 AND o.id <> $1)
		RETURNING `+registrationColumns,
		id, card)
	r, err := scanRegistration(row)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	// No row updated: either the registration is missing or the card is
	// held elsewhere. Distinguish to fill the conflict contract.
	var holder uuid.UUID
	holderErr := s.db.QueryRowContext(ctx,
		`SELECT id FROM registrations WHERE nfc_card = $1 AND id <> $2`, card, id).Scan(&holder)
	if holderErr == nil {
		return nil, &CardConflictError{Card: card, HeldBy: holder}
	}
	if !errors.Is(holderErr, sql.ErrNoRows) {
		return nil, fmt.Errorf("find card holder: %w", holderErr)
	}
	return nil, sentinel.ErrNotFound
}

func (s *PostgresStore) UnbindCard(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `UPDATE registrations SET nfc_card = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("unbind card: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) DeleteByEvent(ctx context.Context, eventID uuid.UUID) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM registrations WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, fmt.Errorf("delete registrations by event: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *PostgresStore) Occupancy(ctx context.Context, roomID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE room_id = $1 AND status = $2`,
		roomID, models.StatusApproved).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("derive occupancy: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) ReleaseRoom(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `UPDATE registrations SET room_id = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("release room: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) ClearRoomAssignments(ctx context.Context, roomIDs []uuid.UUID) error {
	textIDs := make([]string, len(roomIDs))
	for i, id := range roomIDs {
		textIDs[i] = id.String()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE registrations SET room_id = NULL WHERE room_id = ANY($1::uuid[])`, textIDs)
	if err != nil {
		return fmt.Errorf("clear room assignments: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var (
		r          models.Registration
		companions []byte
		card       sql.NullString
	)
	err := row.Scan(&r.ID, &r.EventID, &r.OwnerName, &r.OwnerEmail, &r.University,
		&companions, &r.Status, &r.RoomID, &card, &r.AdminNote, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	if card.Valid {
		r.BoundCard = card.String
	}
	if len(companions) > 0 {
		if err := json.Unmarshal(companions, &r.Companions); err != nil {
			return nil, fmt.Errorf("unmarshal companions: %w", err)
		}
	}
	return &r, nil
}

func collectRegistrations(rows *sql.Rows) ([]*models.Registration, error) {
	var out []*models.Registration
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
