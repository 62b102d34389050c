package models

import "time"

// StudentStatusActive marks students included in attendance rosters.
const StudentStatusActive = "Active"

// StudentProfile is a learner with their person fields joined in.
type StudentProfile struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	ClassroomID     *string   `db:"classroom_id" json:"classroom_id,omitempty"`
	StreamID        *string   `db:"stream_id" json:"stream_id,omitempty"`
	AdmissionNumber string    `db:"admission_number" json:"admission_number"`
	AcademicYearID  string    `db:"academic_year_id" json:"academic_year_id"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`

	FirstName string  `db:"first_name" json:"first_name"`
	LastName  string  `db:"last_name" json:"last_name"`
	Gender    *string `db:"gender" json:"gender,omitempty"`
}

// FullName joins first and last name.
func (s StudentProfile) FullName() string {
	return fullName(s.FirstName, s.LastName)
}

// RosterFilter selects the active students of a classroom, optionally one stream.
type RosterFilter struct {
	ClassroomID string
	StreamID    *string
	Page        int
	PageSize    int
}

// ParentProfile is a guardian contact for a student.
type ParentProfile struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	FirstName   string  `db:"first_name" json:"first_name"`
	LastName    string  `db:"last_name" json:"last_name"`
	PhoneNumber *string `db:"phone_number" json:"phone_number,omitempty"`
}

// StudentDetail is a student with every registered parent.
type StudentDetail struct {
	StudentProfile
	Parents []ParentProfile `json:"parents"`
}
