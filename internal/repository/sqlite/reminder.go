package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/medtrack/internal/apperror"
	"github.com/sakif/medtrack/internal/model"
	"github.com/sakif/medtrack/internal/repository"
)

var _ repository.ReminderRepository = (*ReminderDB)(nil)

// ReminderDB is the reminder_statuses table repository.
//
// Reminders have no user_id column; ownership is reached through the
// medicine. Every read and update joins medicines and filters on
// medicines.user_id.
type ReminderDB struct {
	conn *sql.DB
}

// Reminders returns the reminder repository backed by this database.
func (db *DB) Reminders() *ReminderDB {
	return &ReminderDB{conn: db.conn}
}

// reminderSelect returns reminders joined with the medicine display fields.
const reminderSelect = `
	SELECT r.id, r.medicine_id, r.date, r.status, r.created_at,
	       m.id, m.name, m.dose, m.time, m.notes
	FROM reminder_statuses r
	JOIN medicines m ON m.id = r.medicine_id`

// EnsureForDay inserts a reminder for (medicineID, day) unless one exists.
//
// ATOMIC CREATE-OR-NO-OP:
// "INSERT ... ON CONFLICT DO NOTHING" is a single statement checked against
// the UNIQUE(medicine_id, date) constraint. Two concurrent callers cannot
// both insert, and an existing row (for example one already marked Taken)
// is never touched. A SELECT-then-INSERT pair would race.
func (r *ReminderDB) EnsureForDay(ctx context.Context, medicineID string, day time.Time, status model.ReminderState) (bool, error) {
	result, err := r.conn.ExecContext(ctx,
		`INSERT INTO reminder_statuses (id, medicine_id, date, status, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (medicine_id, date) DO NOTHING`,
		xid.New().String(),
		medicineID,
		model.DayKey(day),
		string(status),
		time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: ensuring reminder for medicine %s: %w", medicineID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// GetForDay returns the reminder for (medicineID, day) if the medicine
// belongs to userID.
func (r *ReminderDB) GetForDay(ctx context.Context, userID, medicineID string, day time.Time) (*model.ReminderStatus, error) {
	row := r.conn.QueryRowContext(ctx,
		reminderSelect+`
		 WHERE r.medicine_id = ? AND r.date = ? AND m.user_id = ?`,
		medicineID, model.DayKey(day), userID,
	)
	reminder, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("reminder", medicineID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting reminder for medicine %s: %w", medicineID, err)
	}
	return reminder, nil
}

// ListForUserBetween returns the user's reminders with from <= date < to.
//
// Day keys are YYYY-MM-DD, so string comparison orders them chronologically.
// The id tie-break keeps the order stable when two rows share a created_at.
func (r *ReminderDB) ListForUserBetween(ctx context.Context, userID string, from, to time.Time) ([]model.ReminderStatus, error) {
	rows, err := r.conn.QueryContext(ctx,
		reminderSelect+`
		 WHERE m.user_id = ? AND r.date >= ? AND r.date < ?
		 ORDER BY r.date ASC, r.created_at ASC, r.id ASC`,
		userID, model.DayKey(from), model.DayKey(to),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing reminders: %w", err)
	}
	defer rows.Close()

	reminders := make([]model.ReminderStatus, 0)
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning reminder row: %w", err)
		}
		reminders = append(reminders, *reminder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating reminders: %w", err)
	}
	return reminders, nil
}

// SetStatusForUser overwrites the status of a reminder whose medicine is
// owned by userID.
func (r *ReminderDB) SetStatusForUser(ctx context.Context, userID, id string, status model.ReminderState) (*model.ReminderStatus, error) {
	result, err := r.conn.ExecContext(ctx,
		`UPDATE reminder_statuses
		 SET status = ?
		 WHERE id = ?
		   AND medicine_id IN (SELECT id FROM medicines WHERE user_id = ?)`,
		string(status), id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating reminder %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, apperror.NotFound("reminder", id)
	}

	row := r.conn.QueryRowContext(ctx,
		reminderSelect+`
		 WHERE r.id = ? AND m.user_id = ?`,
		id, userID,
	)
	reminder, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Deleted between the UPDATE and this read.
		return nil, apperror.NotFound("reminder", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading reminder %s: %w", id, err)
	}
	return reminder, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(s rowScanner) (*model.ReminderStatus, error) {
	var (
		reminder model.ReminderStatus
		med      model.MedicineSummary
		day      string
		status   string
	)
	if err := s.Scan(
		&reminder.ID, &reminder.MedicineID, &day, &status, &reminder.CreatedAt,
		&med.ID, &med.Name, &med.Dose, &med.Time, &med.Notes,
	); err != nil {
		return nil, err
	}

	date, err := time.Parse(time.DateOnly, day)
	if err != nil {
		return nil, fmt.Errorf("parsing reminder date %q: %w", day, err)
	}
	reminder.Date = date
	reminder.Status = model.ReminderState(status)
	reminder.Medicine = &med
	return &reminder, nil
}
