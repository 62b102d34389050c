package models

import "time"

// SMSStatus reflects the latest delivery attempt of a log row.
type SMSStatus string

const (
	SMSStatusSent   SMSStatus = "sent"
	SMSStatusFailed SMSStatus = "failed"
)

// SMSLog records a message sent to a parent about a student.
type SMSLog struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	ParentID  string    `db:"parent_id" json:"parent_id"`
	Message   string    `db:"message" json:"message"`
	Status    SMSStatus `db:"status" json:"status"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
}

// SMSLogRecord joins the student and parent on a log row.
type SMSLogRecord struct {
	SMSLog
	StudentFirstName string  `db:"student_first_name" json:"student_first_name"`
	StudentLastName  string  `db:"student_last_name" json:"student_last_name"`
	ClassroomID      *string `db:"classroom_id" json:"classroom_id,omitempty"`
	ParentPhone      *string `db:"parent_phone" json:"parent_phone,omitempty"`
}

// SMSLogFilter scopes log listings. ClassroomID restricts to one classroom's students.
type SMSLogFilter struct {
	ClassroomID string
	StudentID   string
	Status      *SMSStatus
	From        *time.Time
	To          *time.Time
	Page        int
	PageSize    int
}

// Notification outcomes returned per absent student.
const (
	NotificationSent         = "sent"
	NotificationFailed       = "failed"
	NotificationNoParent     = "no_parent"
	NotificationInvalidPhone = "invalid_phone"
)

// NotificationOutcome reports what happened when notifying one student's parent.
type NotificationOutcome struct {
	StudentID string  `json:"student_id"`
	Outcome   string  `json:"outcome"`
	SMSLogID  *string `json:"sms_log_id,omitempty"`
	Error     string  `json:"error,omitempty"`
}
