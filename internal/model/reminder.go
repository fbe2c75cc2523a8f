package model

import "time"

// ReminderState is the status of one day's dose.
type ReminderState string

const (
	ReminderPending ReminderState = "Pending"
	ReminderTaken   ReminderState = "Taken"
)

// Valid reports whether s is one of the known states.
func (s ReminderState) Valid() bool {
	return s == ReminderPending || s == ReminderTaken
}

// ReminderStatus records whether a medicine was taken on a given UTC day.
//
// There is at most one row per (MedicineID, Date); Date is always midnight UTC.
type ReminderStatus struct {
	ID         string           `json:"id"         db:"id"`
	MedicineID string           `json:"medicineId" db:"medicine_id"`
	Date       time.Time        `json:"date"       db:"date"`
	Status     ReminderState    `json:"status"     db:"status"`
	CreatedAt  time.Time        `json:"createdAt"  db:"created_at"`
	Medicine   *MedicineSummary `json:"medicine,omitempty"`
}

// DayStart truncates t to midnight UTC of its calendar day.
// time.Truncate(24*time.Hour) would also work for UTC, but building the date
// explicitly makes the timezone independence obvious.
func DayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DayKey formats a day as YYYY-MM-DD, the form used in storage and in the
// "today" response.
func DayKey(t time.Time) string {
	return DayStart(t).Format(time.DateOnly)
}
