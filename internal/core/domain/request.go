package domain

import (
	"errors"
	"time"
)

// RequestStatus represents the lifecycle state of an asset request.
type RequestStatus string

const (
	StatusPending  RequestStatus = "Pending"
	StatusApproved RequestStatus = "Approved"
	StatusRejected RequestStatus = "Rejected"
	StatusReturned RequestStatus = "Returned"
)

// validTransitions defines the allowed state machine transitions.
// Returned is additionally gated on the asset being returnable; that check
// belongs to the workflow service because it needs the Asset document.
var validTransitions = map[RequestStatus][]RequestStatus{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusReturned},
}

var ErrInvalidTransition = errors.New("invalid status transition")
var ErrRequestNotFound = errors.New("request not found")
var ErrAssetNotFound = errors.New("asset not found")
var ErrInsufficientStock = errors.New("insufficient stock")
var ErrLimitExceeded = errors.New("package limit exceeded")
var ErrForbidden = errors.New("access forbidden")

// CanTransitionTo reports whether a transition from the current status to next is valid.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Request links an employee to an asset they asked for and records every
// decision taken on it. Requests are never deleted; they are the audit trail.
type Request struct {
	ID           string        `json:"id" bson:"_id,omitempty"`
	AssetID      string        `json:"asset_id" bson:"asset_id"`
	AssetName    string        `json:"asset_name" bson:"asset_name"` // snapshot at request time
	AssetType    ProductType   `json:"asset_type" bson:"asset_type"`
	UserEmail    string        `json:"user_email" bson:"user_email"`
	UserName     string        `json:"user_name" bson:"user_name"`
	HREmail      string        `json:"hr_email" bson:"hr_email"`
	Status       RequestStatus `json:"status" bson:"status"`
	RequestDate  time.Time     `json:"request_date" bson:"request_date"`
	ApprovalDate *time.Time    `json:"approval_date,omitempty" bson:"approval_date,omitempty"`
	ReturnDate   *time.Time    `json:"return_date,omitempty" bson:"return_date,omitempty"`
}
