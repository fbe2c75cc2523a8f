package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sakif/medtrack/internal/apperror"
	"github.com/sakif/medtrack/internal/model"
	"github.com/sakif/medtrack/internal/repository"
)

// =========================================================================
// FAKES
// =========================================================================
//
// In-memory implementations of the repository interfaces. They follow the
// same contract as the SQLite repositories (ownership scoping, NotFound for
// foreign rows, insert-if-absent for reminders) so the services can be
// tested without a database.

var (
	_ repository.UserRepository     = (*fakeUserRepo)(nil)
	_ repository.MedicineRepository = (*fakeMedicineRepo)(nil)
	_ repository.ReminderRepository = (*fakeReminderRepo)(nil)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	mu      sync.Mutex
	byEmail map[string]*model.User
	nextID  int

	// set to simulate a database failure
	getErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[user.Email]; ok {
		return apperror.Conflict("User already exists")
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now().UTC()
	stored := *user
	f.byEmail[user.Email] = &stored
	return nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	user, ok := f.byEmail[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	out := *user
	return &out, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.byEmail {
		if user.ID == id {
			out := *user
			return &out, nil
		}
	}
	return nil, apperror.NotFound("user", id)
}

type fakeMedicineRepo struct {
	mu        sync.Mutex
	medicines map[string]*model.Medicine
	nextID    int
}

func newFakeMedicineRepo() *fakeMedicineRepo {
	return &fakeMedicineRepo{medicines: make(map[string]*model.Medicine)}
}

func (f *fakeMedicineRepo) Create(_ context.Context, med *model.Medicine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	med.ID = fmt.Sprintf("med-%03d", f.nextID)
	// Strictly increasing timestamps keep "newest first" deterministic.
	med.CreatedAt = time.Date(2024, 1, 1, 0, 0, f.nextID, 0, time.UTC)
	stored := *med
	f.medicines[med.ID] = &stored
	return nil
}

func (f *fakeMedicineRepo) owned(userID, id string) (*model.Medicine, error) {
	med, ok := f.medicines[id]
	if !ok || med.UserID != userID {
		return nil, apperror.NotFound("medicine", id)
	}
	return med, nil
}

func (f *fakeMedicineRepo) GetForUser(_ context.Context, userID, id string) (*model.Medicine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	med, err := f.owned(userID, id)
	if err != nil {
		return nil, err
	}
	out := *med
	return &out, nil
}

func (f *fakeMedicineRepo) ListForUser(_ context.Context, userID string) ([]model.Medicine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Medicine, 0)
	for _, med := range f.medicines {
		if med.UserID == userID {
			out = append(out, *med)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeMedicineRepo) UpdateForUser(_ context.Context, userID, id string, patch model.MedicinePatch) (*model.Medicine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	med, err := f.owned(userID, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		med.Name = *patch.Name
	}
	if patch.Time != nil {
		med.Time = *patch.Time
	}
	switch {
	case patch.ClearDose:
		med.Dose = nil
	case patch.Dose != nil:
		v := *patch.Dose
		med.Dose = &v
	}
	switch {
	case patch.ClearNotes:
		med.Notes = nil
	case patch.Notes != nil:
		v := *patch.Notes
		med.Notes = &v
	}
	out := *med
	return &out, nil
}

func (f *fakeMedicineRepo) DeleteForUser(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.owned(userID, id); err != nil {
		return err
	}
	delete(f.medicines, id)
	return nil
}

// fakeReminderRepo shares the medicine fake so it can resolve ownership the
// way the SQL join does.
type fakeReminderRepo struct {
	mu        sync.Mutex
	medicines *fakeMedicineRepo
	rows      map[string]*model.ReminderStatus // keyed by medicineID|day
	nextID    int
	ensures   int
}

func newFakeReminderRepo(medicines *fakeMedicineRepo) *fakeReminderRepo {
	return &fakeReminderRepo{
		medicines: medicines,
		rows:      make(map[string]*model.ReminderStatus),
	}
}

func reminderKey(medicineID string, day time.Time) string {
	return medicineID + "|" + model.DayKey(day)
}

func (f *fakeReminderRepo) EnsureForDay(_ context.Context, medicineID string, day time.Time, status model.ReminderState) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensures++
	key := reminderKey(medicineID, day)
	if _, ok := f.rows[key]; ok {
		return false, nil
	}
	f.nextID++
	f.rows[key] = &model.ReminderStatus{
		ID:         fmt.Sprintf("rem-%03d", f.nextID),
		MedicineID: medicineID,
		Date:       model.DayStart(day),
		Status:     status,
		CreatedAt:  time.Date(2024, 1, 1, 0, 0, f.nextID, 0, time.UTC),
	}
	return true, nil
}

func (f *fakeReminderRepo) withMedicine(userID string, r *model.ReminderStatus) (*model.ReminderStatus, bool) {
	f.medicines.mu.Lock()
	defer f.medicines.mu.Unlock()
	med, err := f.medicines.owned(userID, r.MedicineID)
	if err != nil {
		return nil, false
	}
	out := *r
	out.Medicine = &model.MedicineSummary{ID: med.ID, Name: med.Name, Dose: med.Dose, Time: med.Time, Notes: med.Notes}
	return &out, true
}

func (f *fakeReminderRepo) GetForDay(_ context.Context, userID, medicineID string, day time.Time) (*model.ReminderStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[reminderKey(medicineID, day)]
	if !ok {
		return nil, apperror.NotFound("reminder", medicineID)
	}
	out, ok := f.withMedicine(userID, row)
	if !ok {
		return nil, apperror.NotFound("reminder", medicineID)
	}
	return out, nil
}

func (f *fakeReminderRepo) ListForUserBetween(_ context.Context, userID string, from, to time.Time) ([]model.ReminderStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lo, hi := model.DayKey(from), model.DayKey(to)
	out := make([]model.ReminderStatus, 0)
	for _, row := range f.rows {
		key := model.DayKey(row.Date)
		if key < lo || key >= hi {
			continue
		}
		if r, ok := f.withMedicine(userID, row); ok {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return strings.Compare(out[i].ID, out[j].ID) < 0
	})
	return out, nil
}

func (f *fakeReminderRepo) SetStatusForUser(_ context.Context, userID, id string, status model.ReminderState) (*model.ReminderStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ID != id {
			continue
		}
		if _, ok := f.withMedicine(userID, row); !ok {
			break
		}
		row.Status = status
		out, _ := f.withMedicine(userID, row)
		return out, nil
	}
	return nil, apperror.NotFound("reminder", id)
}
