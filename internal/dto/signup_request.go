package dto

import (
	"github.com/noah-isme/dlool-api/internal/models"
)

// SignupUserDetails is the externally visible part of a request's user snapshot.
// The password hash is deliberately absent.
type SignupUserDetails struct {
	Name            string   `json:"name"`
	Username        string   `json:"username"`
	CreatedAt       int64    `json:"createdAt"`
	School          string   `json:"school"`
	AcceptedClasses []string `json:"acceptedClasses"`
}

// SignupRequestView is a read-only snapshot of a signup request.
type SignupRequestView struct {
	ID          string                     `json:"id"`
	UserDetails SignupUserDetails          `json:"userDetails"`
	ClassID     string                     `json:"classId"`
	CreatedAt   int64                      `json:"createdAt"`
	Status      models.SignupRequestStatus `json:"status"`
	ProcessedBy *string                    `json:"processedBy"`
}

// NewSignupRequestView builds a snapshot from the stored request.
func NewSignupRequestView(r *models.SignupRequest) SignupRequestView {
	accepted := []string(r.AcceptedClassIDs)
	if accepted == nil {
		accepted = []string{}
	}
	return SignupRequestView{
		ID: r.ID,
		UserDetails: SignupUserDetails{
			Name:            r.DisplayName,
			Username:        r.Username,
			CreatedAt:       r.DetailsSubmittedAt.UnixMilli(),
			School:          r.SchoolID,
			AcceptedClasses: accepted,
		},
		ClassID:     r.ClassID,
		CreatedAt:   r.SubmittedAt.UnixMilli(),
		Status:      r.Status,
		ProcessedBy: r.ProcessedBy,
	}
}

// SignupRequestEvent is one item of a request's change stream. Exactly one of
// Snapshot and Err is set.
type SignupRequestEvent struct {
	Snapshot *SignupRequestView
	Err      error
}

// Terminal reports whether the event ends the stream.
func (e SignupRequestEvent) Terminal() bool {
	return e.Err != nil || (e.Snapshot != nil && e.Snapshot.Status.Terminal())
}
