// Package repository declares the storage interfaces the services depend on.
//
// Every medicine and reminder method takes the owning user's ID and scopes
// the query by it. A row that exists but belongs to someone else is reported
// exactly like a row that does not exist (apperror.ErrNotFound).
package repository

import (
	"context"
	"time"

	"github.com/sakif/medtrack/internal/model"
)

type UserRepository interface {
	// Create inserts a user. Returns apperror.ErrConflict if the email is taken.
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

type MedicineRepository interface {
	Create(ctx context.Context, medicine *model.Medicine) error
	GetForUser(ctx context.Context, userID, id string) (*model.Medicine, error)
	ListForUser(ctx context.Context, userID string) ([]model.Medicine, error)
	UpdateForUser(ctx context.Context, userID, id string, patch model.MedicinePatch) (*model.Medicine, error)
	DeleteForUser(ctx context.Context, userID, id string) error
}

type ReminderRepository interface {
	// EnsureForDay atomically inserts a reminder for (medicineID, day) with
	// the given status unless one already exists. It reports whether a row
	// was inserted. An existing row is never modified.
	EnsureForDay(ctx context.Context, medicineID string, day time.Time, status model.ReminderState) (bool, error)

	// GetForDay returns the reminder for (medicineID, day), scoped to userID.
	GetForDay(ctx context.Context, userID, medicineID string, day time.Time) (*model.ReminderStatus, error)

	// ListForUserBetween returns the user's reminders with from <= date < to,
	// ordered by date then creation time.
	ListForUserBetween(ctx context.Context, userID string, from, to time.Time) ([]model.ReminderStatus, error)

	// SetStatusForUser overwrites the status of a reminder owned by userID.
	SetStatusForUser(ctx context.Context, userID, id string, status model.ReminderState) (*model.ReminderStatus, error)
}
