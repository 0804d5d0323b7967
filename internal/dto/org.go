package dto

// CreateSchoolRequest payload for registering a school.
type CreateSchoolRequest struct {
	Name           string   `json:"name" validate:"required,max=128"`
	Description    string   `json:"description" validate:"max=512"`
	UniqueName     string   `json:"uniqueName" validate:"required,max=64,nospace"`
	TimezoneOffset *float64 `json:"timezoneOffset" validate:"required,timezone_offset"`
}

// CreateClassRequest payload for adding a class to a school.
type CreateClassRequest struct {
	Name   string `json:"name" validate:"required,max=64"`
	School string `json:"school" validate:"required"`
}

// ClassView lists a class without exposing member ids.
type ClassView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	School  string `json:"school"`
	Members int    `json:"memberCount"`
}
