package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/medtrack/internal/apperror"
	"github.com/sakif/medtrack/internal/model"
	"github.com/sakif/medtrack/internal/repository"
)

var _ repository.MedicineRepository = (*MedicineDB)(nil)

// MedicineDB is the medicines table repository.
//
// OWNERSHIP SCOPE:
// Every statement except Create has "user_id = ?" in its WHERE clause. A
// medicine owned by somebody else is simply invisible, so callers get the
// same NotFound as for a missing ID.
type MedicineDB struct {
	conn *sql.DB
}

// Medicines returns the medicine repository backed by this database.
func (db *DB) Medicines() *MedicineDB {
	return &MedicineDB{conn: db.conn}
}

const medicineColumns = `id, user_id, name, dose, time, notes, created_at`

// Create inserts a medicine for medicine.UserID, filling in ID and CreatedAt.
func (m *MedicineDB) Create(ctx context.Context, medicine *model.Medicine) error {
	medicine.ID = xid.New().String()
	medicine.CreatedAt = time.Now().UTC()

	_, err := m.conn.ExecContext(ctx,
		`INSERT INTO medicines (`+medicineColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		medicine.ID,
		medicine.UserID,
		medicine.Name,
		medicine.Dose,
		medicine.Time,
		medicine.Notes,
		medicine.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating medicine: %w", err)
	}
	return nil
}

// GetForUser returns the medicine if it exists and belongs to userID.
func (m *MedicineDB) GetForUser(ctx context.Context, userID, id string) (*model.Medicine, error) {
	var med model.Medicine
	err := m.conn.QueryRowContext(ctx,
		`SELECT `+medicineColumns+`
		 FROM medicines
		 WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(&med.ID, &med.UserID, &med.Name, &med.Dose, &med.Time, &med.Notes, &med.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("medicine", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting medicine %s: %w", id, err)
	}
	return &med, nil
}

// ListForUser returns all of the user's medicines, newest first.
func (m *MedicineDB) ListForUser(ctx context.Context, userID string) ([]model.Medicine, error) {
	rows, err := m.conn.QueryContext(ctx,
		`SELECT `+medicineColumns+`
		 FROM medicines
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing medicines: %w", err)
	}
	// CRITICAL: always close rows, or the connection never returns to the pool.
	defer rows.Close()

	medicines := make([]model.Medicine, 0)
	for rows.Next() {
		var med model.Medicine
		if err := rows.Scan(&med.ID, &med.UserID, &med.Name, &med.Dose, &med.Time, &med.Notes, &med.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning medicine row: %w", err)
		}
		medicines = append(medicines, med)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating medicines: %w", err)
	}
	return medicines, nil
}

// UpdateForUser applies a partial update to an owned medicine and returns
// the stored result. Only the fields present in the patch are written.
func (m *MedicineDB) UpdateForUser(ctx context.Context, userID, id string, patch model.MedicinePatch) (*model.Medicine, error) {
	var (
		sets []string
		args []any
	)
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Time != nil {
		sets = append(sets, "time = ?")
		args = append(args, *patch.Time)
	}
	if patch.ClearDose {
		sets = append(sets, "dose = NULL")
	} else if patch.Dose != nil {
		sets = append(sets, "dose = ?")
		args = append(args, *patch.Dose)
	}
	if patch.ClearNotes {
		sets = append(sets, "notes = NULL")
	} else if patch.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *patch.Notes)
	}
	if len(sets) == 0 {
		return m.GetForUser(ctx, userID, id)
	}

	// The column names above are fixed strings, never user input, so building
	// the SET list with strings.Join is safe. Values still go through "?".
	args = append(args, id, userID)
	result, err := m.conn.ExecContext(ctx,
		`UPDATE medicines SET `+strings.Join(sets, ", ")+`
		 WHERE id = ? AND user_id = ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating medicine %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, apperror.NotFound("medicine", id)
	}

	return m.GetForUser(ctx, userID, id)
}

// DeleteForUser removes an owned medicine. Its reminder statuses go with it
// (ON DELETE CASCADE).
func (m *MedicineDB) DeleteForUser(ctx context.Context, userID, id string) error {
	result, err := m.conn.ExecContext(ctx,
		`DELETE FROM medicines WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting medicine %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("medicine", id)
	}
	return nil
}
