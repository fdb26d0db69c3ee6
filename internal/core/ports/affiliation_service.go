package ports

import (
	"context"

	"github.com/assetverse/asset-system/internal/core/domain"
)

// HRProfile is the company identity stamped onto an employee on affiliation.
type HRProfile struct {
	HREmail     string
	CompanyName string
	CompanyLogo string
}

// BulkAffiliateInput carries a batch affiliation by employee document IDs.
type BulkAffiliateInput struct {
	HREmail     string
	EmployeeIDs []string
}

// BulkAffiliateResult reports the outcome of an all-or-nothing batch.
type BulkAffiliateResult struct {
	Affiliated int
	TeamCount  int64 // team size after the batch
}

// AffiliationService owns the employee↔company link. Every write to the
// affiliation block goes through here; the capacity check runs before any
// bulk mutation.
type AffiliationService interface {
	Affiliate(ctx context.Context, employeeEmail string, profile HRProfile) error
	RemoveAffiliation(ctx context.Context, employeeID string) (*domain.User, error)
	BulkAffiliate(ctx context.Context, input BulkAffiliateInput) (*BulkAffiliateResult, error)
	ListUnaffiliated(ctx context.Context) ([]*domain.User, error)
}
