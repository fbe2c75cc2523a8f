package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/medtrack/internal/apperror"
	"github.com/sakif/medtrack/internal/model"
	"github.com/sakif/medtrack/internal/repository"
)

// MedicineInput is the data needed to create a medicine.
// Dose and Notes are optional; blank values are stored as null.
type MedicineInput struct {
	Name  string  `validate:"required,max=100"`
	Time  string  `validate:"required,hhmm"`
	Dose  *string `validate:"omitempty,max=100"`
	Notes *string `validate:"omitempty,max=1000"`
}

// MedicineService handles CRUD for a user's medicines.
//
// Every method takes the caller's user ID. The repository scopes each query
// by it, so a foreign medicine is reported as not found.
type MedicineService struct {
	repo     repository.MedicineRepository
	validate *validator.Validate
	logger   *slog.Logger
}

// NewMedicineService creates a MedicineService.
func NewMedicineService(repo repository.MedicineRepository, logger *slog.Logger) *MedicineService {
	return &MedicineService{
		repo:     repo,
		validate: newValidator(),
		logger:   logger,
	}
}

// Create validates and stores a new medicine for userID.
func (s *MedicineService) Create(ctx context.Context, userID string, in MedicineInput) (*model.Medicine, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Time = strings.TrimSpace(in.Time)
	in.Dose = trimmedOrNil(in.Dose)
	in.Notes = trimmedOrNil(in.Notes)

	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	med := &model.Medicine{
		UserID: userID,
		Name:   in.Name,
		Dose:   in.Dose,
		Time:   in.Time,
		Notes:  in.Notes,
	}
	if err := s.repo.Create(ctx, med); err != nil {
		return nil, fmt.Errorf("service/medicine: creating medicine: %w", err)
	}

	s.logger.Info("medicine created",
		slog.String("id", med.ID),
		slog.String("userID", userID),
	)
	return med, nil
}

// List returns the user's medicines, newest first.
func (s *MedicineService) List(ctx context.Context, userID string) ([]model.Medicine, error) {
	medicines, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/medicine: listing medicines: %w", err)
	}
	return medicines, nil
}

// Get returns one of the user's medicines.
func (s *MedicineService) Get(ctx context.Context, userID, id string) (*model.Medicine, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "medicine ID is required")
	}
	return s.repo.GetForUser(ctx, userID, id)
}

// Update applies a partial update.
//
// Provided name and time must be non-blank (and time a valid HH:MM).
// Provided dose and notes are trimmed; blank clears them. A patch that
// changes nothing is rejected.
func (s *MedicineService) Update(ctx context.Context, userID, id string, patch model.MedicinePatch) (*model.Medicine, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "medicine ID is required")
	}
	if patch.Empty() {
		return nil, apperror.ValidationFailed("", "no fields provided to update")
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if err := s.validate.Var(name, "required,max=100"); err != nil {
			return nil, fieldError("name", err)
		}
		patch.Name = &name
	}
	if patch.Time != nil {
		at := strings.TrimSpace(*patch.Time)
		if err := s.validate.Var(at, "required,hhmm"); err != nil {
			return nil, fieldError("time", err)
		}
		patch.Time = &at
	}
	if patch.Dose != nil {
		patch.Dose = trimmedOrNil(patch.Dose)
		if patch.Dose == nil {
			patch.ClearDose = true
		} else if err := s.validate.Var(*patch.Dose, "max=100"); err != nil {
			return nil, fieldError("dose", err)
		}
	}
	if patch.Notes != nil {
		patch.Notes = trimmedOrNil(patch.Notes)
		if patch.Notes == nil {
			patch.ClearNotes = true
		} else if err := s.validate.Var(*patch.Notes, "max=1000"); err != nil {
			return nil, fieldError("notes", err)
		}
	}

	med, err := s.repo.UpdateForUser(ctx, userID, id, patch)
	if err != nil {
		return nil, err
	}

	s.logger.Info("medicine updated", slog.String("id", id))
	return med, nil
}

// Delete removes one of the user's medicines and, through the foreign key
// cascade, its reminder history.
func (s *MedicineService) Delete(ctx context.Context, userID, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "medicine ID is required")
	}
	if err := s.repo.DeleteForUser(ctx, userID, id); err != nil {
		return err
	}

	s.logger.Info("medicine deleted", slog.String("id", id))
	return nil
}

// fieldError is validationError for validate.Var, which has no struct field
// name to report.
func fieldError(field string, err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		switch fieldErrs[0].Tag() {
		case "required":
			return apperror.ValidationFailed(field, field+" must not be empty")
		case "hhmm":
			return apperror.ValidationFailed(field, field+" must be in HH:MM 24-hour format")
		case "max":
			return apperror.ValidationFailed(field,
				fmt.Sprintf("%s must be %s characters or less", field, fieldErrs[0].Param()))
		}
	}
	return apperror.ValidationFailed(field, field+" is invalid")
}
