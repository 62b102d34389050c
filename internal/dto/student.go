package dto

// RegisterStudentRequest registers a student with their first parent.
type RegisterStudentRequest struct {
	FirstName       string  `json:"first_name" validate:"required"`
	LastName        string  `json:"last_name" validate:"required"`
	Gender          string  `json:"gender" validate:"required,oneof=male female"`
	AdmissionNumber string  `json:"admission_number" validate:"required,max=32"`
	ClassroomID     string  `json:"classroom_id" validate:"required"`
	StreamID        *string `json:"stream_id" validate:"omitempty,min=1"`
	AcademicYearID  string  `json:"academic_year_id"`

	Parent ParentRequest `json:"parent" validate:"required"`
}

// ParentRequest describes a parent contact.
type ParentRequest struct {
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"required"`
}
