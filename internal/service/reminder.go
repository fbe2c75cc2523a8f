package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/medtrack/internal/apperror"
	"github.com/sakif/medtrack/internal/model"
	"github.com/sakif/medtrack/internal/repository"
)

// ReminderService reconciles and updates the daily reminder log.
//
// DAYS ARE UTC:
// "Today" is the UTC calendar day containing now(). A user in UTC-5 who
// checks in at 20:00 local time is already on the next day's list.
type ReminderService struct {
	medicines repository.MedicineRepository
	reminders repository.ReminderRepository
	logger    *slog.Logger
	now       func() time.Time
}

// ReminderOption configures a ReminderService.
type ReminderOption func(*ReminderService)

// WithReminderClock overrides the clock used to decide "today".
func WithReminderClock(now func() time.Time) ReminderOption {
	return func(s *ReminderService) { s.now = now }
}

// NewReminderService creates a ReminderService.
func NewReminderService(
	medicines repository.MedicineRepository,
	reminders repository.ReminderRepository,
	logger *slog.Logger,
	opts ...ReminderOption,
) *ReminderService {
	s := &ReminderService{
		medicines: medicines,
		reminders: reminders,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TodayResult is the reconciled reminder list for one UTC day.
type TodayResult struct {
	Date      string                 `json:"date"`
	Reminders []model.ReminderStatus `json:"reminders"`
}

// Today makes sure every medicine of the user has a reminder for the current
// UTC day, then returns that day's reminders.
//
// RECONCILIATION:
//  1. start = midnight UTC of now(), end = start + 24h
//  2. for every medicine: insert a Pending row for start unless one exists
//  3. list the user's rows with start <= date < end
//
// Step 2 never changes an existing row, so a reminder already marked Taken
// stays Taken, and calling Today any number of times leaves exactly one row
// per medicine. Concurrent calls are safe because each insert is a single
// statement guarded by UNIQUE(medicine_id, date).
//
// A medicine's time of day does not matter here: every medicine is due
// every day.
func (s *ReminderService) Today(ctx context.Context, userID string) (*TodayResult, error) {
	start := model.DayStart(s.now())
	end := start.Add(24 * time.Hour)

	medicines, err := s.medicines.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/reminder: listing medicines: %w", err)
	}

	created := 0
	for _, med := range medicines {
		inserted, err := s.reminders.EnsureForDay(ctx, med.ID, start, model.ReminderPending)
		if err != nil {
			return nil, fmt.Errorf("service/reminder: ensuring reminder for %s: %w", med.ID, err)
		}
		if inserted {
			created++
		}
	}
	if created > 0 {
		s.logger.Debug("reminders reconciled",
			slog.String("userID", userID),
			slog.String("date", model.DayKey(start)),
			slog.Int("created", created),
		)
	}

	reminders, err := s.reminders.ListForUserBetween(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("service/reminder: listing reminders: %w", err)
	}

	return &TodayResult{Date: model.DayKey(start), Reminders: reminders}, nil
}

// CreateForMedicine creates today's reminder for one medicine if it does not
// exist yet. It reports whether a new row was created.
//
// An existing row is returned unchanged, even if status asks for something
// else; use SetStatus to change it. An empty status means Pending.
func (s *ReminderService) CreateForMedicine(ctx context.Context, userID, medicineID, status string) (*model.ReminderStatus, bool, error) {
	medicineID = strings.TrimSpace(medicineID)
	if medicineID == "" {
		return nil, false, apperror.ValidationFailed("medicineId", "medicine ID is required")
	}

	state := model.ReminderPending
	if status != "" {
		state = model.ReminderState(status)
		if !state.Valid() {
			return nil, false, invalidStatus()
		}
	}

	// Ownership first: a foreign medicine must look exactly like a missing one.
	if _, err := s.medicines.GetForUser(ctx, userID, medicineID); err != nil {
		return nil, false, err
	}

	day := model.DayStart(s.now())
	created, err := s.reminders.EnsureForDay(ctx, medicineID, day, state)
	if err != nil {
		return nil, false, fmt.Errorf("service/reminder: creating reminder: %w", err)
	}

	reminder, err := s.reminders.GetForDay(ctx, userID, medicineID, day)
	if err != nil {
		return nil, false, fmt.Errorf("service/reminder: reading reminder: %w", err)
	}

	if created {
		s.logger.Info("reminder created",
			slog.String("id", reminder.ID),
			slog.String("medicineID", medicineID),
			slog.String("status", string(reminder.Status)),
		)
	}
	return reminder, created, nil
}

// SetStatus overwrites the status of one of the user's reminders.
func (s *ReminderService) SetStatus(ctx context.Context, userID, reminderID, status string) (*model.ReminderStatus, error) {
	reminderID = strings.TrimSpace(reminderID)
	if reminderID == "" {
		return nil, apperror.ValidationFailed("id", "reminder ID is required")
	}
	if status == "" {
		return nil, apperror.ValidationFailed("status", "status is required")
	}
	state := model.ReminderState(status)
	if !state.Valid() {
		return nil, invalidStatus()
	}

	reminder, err := s.reminders.SetStatusForUser(ctx, userID, reminderID, state)
	if err != nil {
		return nil, err
	}

	s.logger.Info("reminder status updated",
		slog.String("id", reminderID),
		slog.String("status", status),
	)
	return reminder, nil
}

func invalidStatus() error {
	return apperror.ValidationFailed("status",
		fmt.Sprintf("status must be %s or %s", model.ReminderPending, model.ReminderTaken))
}
