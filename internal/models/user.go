package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleParent  UserRole = "PARENT"
	RoleStudent UserRole = "STUDENT"
)

// Gender values stored on users.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// User is the person record shared by students, parents and teachers.
type User struct {
	ID          string   `db:"id" json:"id"`
	FirstName   string   `db:"first_name" json:"first_name"`
	LastName    string   `db:"last_name" json:"last_name"`
	PhoneNumber *string  `db:"phone_number" json:"phone_number,omitempty"`
	Gender      *string  `db:"gender" json:"gender,omitempty"`
	Role        UserRole `db:"role" json:"role"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

func fullName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}
