package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayStart(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)

	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"midday UTC", time.Date(2024, 1, 2, 12, 30, 0, 0, time.UTC), "2024-01-02"},
		{"last nanosecond", time.Date(2024, 1, 2, 23, 59, 59, 999999999, time.UTC), "2024-01-02"},
		{"midnight", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), "2024-01-03"},
		// 08:00 in Tokyo is still the previous day in UTC.
		{"other zone", time.Date(2024, 1, 3, 8, 0, 0, 0, tokyo), "2024-01-02"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := DayStart(tt.in)
			assert.Equal(t, time.UTC, start.Location())
			assert.Zero(t, start.Hour()+start.Minute()+start.Second()+start.Nanosecond())
			assert.Equal(t, tt.want, DayKey(tt.in))
		})
	}
}

func TestReminderState_Valid(t *testing.T) {
	assert.True(t, ReminderPending.Valid())
	assert.True(t, ReminderTaken.Valid())
	assert.False(t, ReminderState("taken").Valid())
	assert.False(t, ReminderState("").Valid())
}
