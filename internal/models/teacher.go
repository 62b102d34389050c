package models

import "time"

// TeacherProfile links a teacher user to an optional classroom and stream.
type TeacherProfile struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	ClassroomID *string   `db:"classroom_id" json:"classroom_id,omitempty"`
	StreamID    *string   `db:"stream_id" json:"stream_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`

	FirstName   string  `db:"first_name" json:"first_name"`
	LastName    string  `db:"last_name" json:"last_name"`
	PhoneNumber *string `db:"phone_number" json:"phone_number,omitempty"`
}

// FullName joins first and last name.
func (t TeacherProfile) FullName() string {
	return fullName(t.FirstName, t.LastName)
}
