package models

import "time"

// Classroom belongs to an academic year.
type Classroom struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	YearID    string    `db:"year_id" json:"year_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ClassroomDetail adds membership counts for listings.
type ClassroomDetail struct {
	Classroom
	StudentCount int `db:"student_count" json:"student_count"`
	TeacherCount int `db:"teacher_count" json:"teacher_count"`
	StreamCount  int `db:"stream_count" json:"stream_count"`
}

// Stream is a subdivision of a classroom.
type Stream struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	ClassroomID string    `db:"classroom_id" json:"classroom_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
