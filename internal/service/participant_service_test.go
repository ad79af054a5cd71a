package service

import (
	"testing"
	"time"

	"habitloop/habit-app/internal/domain"
)

func TestCurrentDayNumber(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cohort := &domain.Cohort{StartDate: start}

	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{"start date is day 1", start, 1},
		{"later the same day", start.Add(23 * time.Hour), 1},
		{"next day", start.AddDate(0, 0, 1), 2},
		{"two weeks in", start.AddDate(0, 0, 14), 15},
		{"before start", start.AddDate(0, 0, -1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CurrentDayNumber(cohort, tt.at); got != tt.want {
				t.Errorf("CurrentDayNumber(%s) = %d, want %d", tt.at, got, tt.want)
			}
		})
	}
}

func TestCurrentDayNumber_TimezoneIndependent(t *testing.T) {
	// A cohort started at 23:00 UTC still counts day 2 from the next UTC
	// midnight, regardless of the caller's wall clock zone.
	start := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	cohort := &domain.Cohort{StartDate: start}

	kyiv := time.FixedZone("EET", 2*3600)
	at := time.Date(2026, 3, 2, 1, 30, 0, 0, kyiv) // 23:30 UTC on March 1

	if got := CurrentDayNumber(cohort, at); got != 1 {
		t.Errorf("CurrentDayNumber = %d, want 1", got)
	}
}
