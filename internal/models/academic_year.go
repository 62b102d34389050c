package models

import (
	"fmt"
	"time"
)

// AcademicYear spans YearStart to YearStart+1. At most one year is active.
type AcademicYear struct {
	ID        string    `db:"id" json:"id"`
	YearStart int       `db:"year_start" json:"year_start"`
	YearEnd   int       `db:"year_end" json:"year_end"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	IsLocked  bool      `db:"is_locked" json:"is_locked"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Label renders the year as "2024/2025".
func (y AcademicYear) Label() string {
	return fmt.Sprintf("%d/%d", y.YearStart, y.YearEnd)
}

// ExpiresAt is midnight on 1 January following YearEnd in loc.
func (y AcademicYear) ExpiresAt(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(y.YearEnd+1, time.January, 1, 0, 0, 0, 0, loc)
}
