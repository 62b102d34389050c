package dto

import "github.com/noah-isme/sma-attendance-api/internal/models"

// MarkAttendanceRequest submits one roster page of statuses. Students missing
// from Statuses are recorded as present. Date defaults to today.
type MarkAttendanceRequest struct {
	Page     int                                `json:"page" validate:"gte=0"`
	Date     string                             `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Statuses map[string]models.AttendanceStatus `json:"statuses" validate:"omitempty,dive,keys,required,endkeys,attendance_status"`
}

// UpdateAttendanceRequest edits one attendance row.
type UpdateAttendanceRequest struct {
	Status models.AttendanceStatus `json:"status" validate:"required,attendance_status"`
}

// MarkDayResult is the written page and the students needing a notification.
type MarkDayResult struct {
	Date        string              `json:"date"`
	Records     []models.Attendance `json:"records"`
	NewlyAbsent []string            `json:"newly_absent"`
	Pagination  *models.Pagination  `json:"-"`
}

// SubmitAttendanceResult adds notification outcomes to MarkDayResult.
type SubmitAttendanceResult struct {
	MarkDayResult
	Notifications []models.NotificationOutcome `json:"notifications"`
	Warnings      []string                     `json:"warnings,omitempty"`
}
