package dto

// CreateClassroomRequest adds a classroom to a year.
type CreateClassroomRequest struct {
	Name   string `json:"name" validate:"required,max=64"`
	YearID string `json:"year_id" validate:"required"`
}

// RenameClassroomRequest renames a classroom.
type RenameClassroomRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

// CreateStreamRequest adds a stream to a classroom.
type CreateStreamRequest struct {
	Name string `json:"name" validate:"required,max=32"`
}

// AssignTeacherRequest places a teacher in a classroom and optionally a stream.
type AssignTeacherRequest struct {
	ClassroomID string  `json:"classroom_id" validate:"required"`
	StreamID    *string `json:"stream_id" validate:"omitempty,min=1"`
}
