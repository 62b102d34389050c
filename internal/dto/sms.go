package dto

// ManualSMSRequest sends a teacher-composed message to a student's parent.
type ManualSMSRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Message   string `json:"message" validate:"required,max=480"`
}
