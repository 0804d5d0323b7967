package models

import (
	"time"

	"github.com/lib/pq"
)

// User represents an account stored in the users table.
type User struct {
	ID           string         `db:"id" json:"id"`
	Username     string         `db:"username" json:"username"`
	DisplayName  string         `db:"display_name" json:"name"`
	PasswordHash string         `db:"password_hash" json:"-"`
	SchoolID     string         `db:"school_id" json:"school"`
	ClassIDs     pq.StringArray `db:"class_ids" json:"classes"`
	Email        *string        `db:"email" json:"email"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updatedAt"`
}

// InClass reports whether the user belongs to classID.
func (u *User) InClass(classID string) bool {
	for _, id := range u.ClassIDs {
		if id == classID {
			return true
		}
	}
	return false
}

// UserUpdate carries a partial update; nil fields are left untouched.
type UserUpdate struct {
	Username     *string
	DisplayName  *string
	Email        *string
	PasswordHash *string
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.Username == nil && u.DisplayName == nil && u.Email == nil && u.PasswordHash == nil
}
