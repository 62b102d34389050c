package dto

// AcademicYearRequest creates or edits a year. The end year is always start + 1.
type AcademicYearRequest struct {
	YearStart int  `json:"year_start" validate:"required,gte=2000,lte=2100"`
	IsActive  bool `json:"is_active"`
}
