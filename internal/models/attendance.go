package models

import "time"

// AttendanceStatus is the daily status of a student.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceSick    AttendanceStatus = "sick"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceSick:
		return true
	default:
		return false
	}
}

// Attendance is one row per student per day.
type Attendance struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	MarkedBy  *string          `db:"marked_by" json:"marked_by,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceRecord extends an attendance row with student metadata.
type AttendanceRecord struct {
	Attendance
	AdmissionNumber string  `db:"admission_number" json:"admission_number"`
	FirstName       string  `db:"first_name" json:"first_name"`
	LastName        string  `db:"last_name" json:"last_name"`
	ClassroomID     *string `db:"classroom_id" json:"classroom_id,omitempty"`
	StreamID        *string `db:"stream_id" json:"stream_id,omitempty"`
}

// AttendanceFilter scopes day listings.
type AttendanceFilter struct {
	ClassroomID string
	StreamID    *string
	Date        time.Time
	Status      *AttendanceStatus
	Page        int
	PageSize    int
}

// AttendanceDetail is a single row with the SMS logs sent that day.
type AttendanceDetail struct {
	Record  AttendanceRecord `json:"record"`
	SMSLogs []SMSLog         `json:"sms_logs"`
	CanEdit bool             `json:"can_edit"`
}
