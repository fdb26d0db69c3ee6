package ports

import (
	"context"
	"time"

	"github.com/assetverse/asset-system/internal/core/domain"
)

// Decision values accepted by RequestService.Decide.
const (
	DecisionApprove = "Approve"
	DecisionReject  = "Reject"
)

// CreateRequestInput carries the data an employee submits when asking for an asset.
type CreateRequestInput struct {
	EmployeeEmail string
	EmployeeName  string
	AssetID       string
	HREmail       string
}

// DecideInput carries an HR decision on a pending request.
type DecideInput struct {
	RequestID string
	Decision  string // DecisionApprove or DecisionReject
	HREmail   string // deciding HR; must own the request
}

// DirectAssignInput carries an HR-initiated assignment that skips the
// pending stage.
type DirectAssignInput struct {
	HREmail       string
	EmployeeEmail string
	AssetID       string
}

// DecisionEvent is the notification payload emitted after a committed
// lifecycle change. Delivery is best-effort and never affects the
// committed state.
type DecisionEvent struct {
	RequestID string
	AssetID   string
	AssetName string
	UserEmail string
	HREmail   string
	Status    string
	Timestamp time.Time
}

// RequestService drives the request lifecycle: it is the only component
// that orders ledger reservations, status writes, and affiliation writes.
type RequestService interface {
	CreateRequest(ctx context.Context, input CreateRequestInput) (*domain.Request, error)
	Decide(ctx context.Context, input DecideInput) (*domain.Request, error)
	Return(ctx context.Context, requestID, employeeEmail string) (*domain.Request, error)
	DirectAssign(ctx context.Context, input DirectAssignInput) (*domain.Request, error)
	List(ctx context.Context, filter RequestFilter) ([]*domain.Request, error)
}
