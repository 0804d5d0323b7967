package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// SignupRequestStatus captures the lifecycle of a class join request.
type SignupRequestStatus string

const (
	SignupRequestStatusPending  SignupRequestStatus = "pending"
	SignupRequestStatusAccepted SignupRequestStatus = "accepted"
	SignupRequestStatusRejected SignupRequestStatus = "rejected"
)

// Terminal reports whether the status can no longer change.
func (s SignupRequestStatus) Terminal() bool {
	return s == SignupRequestStatusAccepted || s == SignupRequestStatusRejected
}

// ParseSignupRequestStatus accepts full names and their one-letter forms.
// Unknown input yields ok=false, which callers treat as "no filter".
func ParseSignupRequestStatus(raw string) (SignupRequestStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending", "p":
		return SignupRequestStatusPending, true
	case "accepted", "a":
		return SignupRequestStatusAccepted, true
	case "rejected", "r":
		return SignupRequestStatusRejected, true
	default:
		return "", false
	}
}

// SignupDecision is the operator's verdict on a pending request.
type SignupDecision string

const (
	SignupDecisionAccept SignupDecision = "accept"
	SignupDecisionReject SignupDecision = "reject"
)

// SignupRequest is a request to join an occupied class. The user details are
// a copy taken at submission time, including the already hashed password.
type SignupRequest struct {
	ID                 string              `db:"id"`
	Username           string              `db:"username"`
	DisplayName        string              `db:"display_name"`
	DetailsSubmittedAt time.Time           `db:"details_submitted_at"`
	SchoolID           string              `db:"school_id"`
	PasswordHash       string              `db:"password_hash"`
	Email              *string             `db:"email"`
	AcceptedClassIDs   pq.StringArray      `db:"accepted_class_ids"`
	ClassID            string              `db:"class_id"`
	SubmittedAt        time.Time           `db:"submitted_at"`
	Status             SignupRequestStatus `db:"status"`
	ProcessedBy        *string             `db:"processed_by"`
	ProcessedAt        *time.Time          `db:"processed_at"`
}

// NewUser builds the account an accepted request turns into.
func (r *SignupRequest) NewUser(id string, now time.Time) *User {
	return &User{
		ID:           id,
		Username:     r.Username,
		DisplayName:  r.DisplayName,
		PasswordHash: r.PasswordHash,
		SchoolID:     r.SchoolID,
		ClassIDs:     pq.StringArray{r.ClassID},
		Email:        r.Email,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
