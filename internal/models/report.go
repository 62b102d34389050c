package models

import "time"

// StatusRow is one recorded attendance status with the student's gender.
type StatusRow struct {
	Status AttendanceStatus `db:"status"`
	Gender *string          `db:"gender"`
}

// StatusBreakdown counts statuses over recorded rows. Percentages use Recorded as denominator.
type StatusBreakdown struct {
	Recorded       int     `json:"recorded"`
	Present        int     `json:"present"`
	Absent         int     `json:"absent"`
	Sick           int     `json:"sick"`
	PresentPercent float64 `json:"present_percent"`
	AbsentPercent  float64 `json:"absent_percent"`
	SickPercent    float64 `json:"sick_percent"`
}

// AttendanceSummary is the overall and per-gender breakdown.
type AttendanceSummary struct {
	RosterSize int             `json:"roster_size"`
	Overall    StatusBreakdown `json:"overall"`
	Male       StatusBreakdown `json:"male"`
	Female     StatusBreakdown `json:"female"`
}

// DailyReport summarises one classroom (and optional stream) on a date.
type DailyReport struct {
	ClassroomID string    `json:"classroom_id"`
	StreamID    *string   `json:"stream_id,omitempty"`
	Date        time.Time `json:"date"`
	AttendanceSummary
	GeneratedAt time.Time `json:"generated_at"`
}

// ClassroomTotals are all-time status counts of a classroom.
type ClassroomTotals struct {
	ClassroomID string `db:"classroom_id"`
	Name        string `db:"name"`
	Present     int    `db:"present"`
	Absent      int    `db:"absent"`
	Sick        int    `db:"sick"`
}

// ClassroomSummary is one classroom line of the year summary.
type ClassroomSummary struct {
	ClassroomID string          `json:"classroom_id"`
	Name        string          `json:"name"`
	Teachers    []string        `json:"teachers"`
	Attendance  StatusBreakdown `json:"attendance"`
}

// YearSummary aggregates attendance per classroom for an academic year.
type YearSummary struct {
	Year       AcademicYear       `json:"year"`
	Classrooms []ClassroomSummary `json:"classrooms"`
}
