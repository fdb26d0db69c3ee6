package ports

import (
	"context"
	"time"

	"github.com/assetverse/asset-system/internal/core/domain"
)

// StatusChange carries the date fields that accompany a status transition.
// A nil pointer leaves the field untouched; the Clear flags unset it.
type StatusChange struct {
	ApprovalDate      *time.Time
	ClearApprovalDate bool
	ReturnDate        *time.Time
	ClearReturnDate   bool
}

// RequestFilter scopes request listings.
type RequestFilter struct {
	UserEmail string // optional: requests filed by this employee
	HREmail   string // optional: requests addressed to this HR
	Status    string // optional: filter by status
	Search    string // optional: partial match on asset_name
}

// RequestRepository defines persistence operations for asset requests.
// Requests are insert-and-update only; nothing ever deletes one.
type RequestRepository interface {
	Create(ctx context.Context, r *domain.Request) (*domain.Request, error)
	FindByID(ctx context.Context, id string) (*domain.Request, error)
	// UpdateStatus moves the request from one status to another with a
	// compare-and-set on the current status. When the stored status no
	// longer equals from, it fails with domain.ErrInvalidTransition and
	// writes nothing, so two concurrent deciders cannot both win.
	UpdateStatus(ctx context.Context, id string, from, to domain.RequestStatus, change StatusChange) (*domain.Request, error)
	List(ctx context.Context, filter RequestFilter) ([]*domain.Request, error)
}
