package model

import "time"

// Medicine is a medicine the owning user takes every day.
//
// Time is an "HH:MM" string used for display and sorting only. It does NOT
// decide which day a reminder is due: every medicine is due every day.
//
// Dose and Notes are optional. A nil pointer serializes as JSON null, which
// is how the API distinguishes "not set" from an empty string.
type Medicine struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Name      string    `json:"name"      db:"name"`
	Dose      *string   `json:"dose"      db:"dose"`
	Time      string    `json:"time"      db:"time"`
	Notes     *string   `json:"notes"     db:"notes"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// MedicineSummary is the subset of a Medicine embedded in reminder responses.
type MedicineSummary struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Dose  *string `json:"dose"`
	Time  string  `json:"time"`
	Notes *string `json:"notes"`
}

// MedicinePatch carries a partial update. A nil field means "leave as is".
// For Dose and Notes a non-nil pointer to "" clears the value.
type MedicinePatch struct {
	Name  *string
	Dose  *string
	Time  *string
	Notes *string

	// ClearDose / ClearNotes are set when the client sent an explicit null.
	ClearDose  bool
	ClearNotes bool
}

// Empty reports whether the patch changes nothing.
func (p MedicinePatch) Empty() bool {
	return p.Name == nil && p.Dose == nil && p.Time == nil && p.Notes == nil &&
		!p.ClearDose && !p.ClearNotes
}
