package ports

import (
	"context"

	"github.com/assetverse/asset-system/internal/core/domain"
)

// UserRepository defines persistence operations for user accounts and the
// employee affiliation block.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)

	// SetAffiliation overwrites the employee's affiliation block.
	SetAffiliation(ctx context.Context, employeeEmail string, aff domain.Affiliation) error
	// SetAffiliationMany writes the same affiliation block to every employee
	// in ids with a single multi-document update, returning the number of
	// documents modified.
	SetAffiliationMany(ctx context.Context, ids []string, aff domain.Affiliation) (int64, error)
	// ClearAffiliation removes the affiliation block. Clearing an already
	// unaffiliated employee is a no-op.
	ClearAffiliation(ctx context.Context, employeeID string) (*domain.User, error)

	// CountTeam returns how many employees are currently affiliated with the
	// given HR account.
	CountTeam(ctx context.Context, hrEmail string) (int64, error)
	// CountEmployeesByIDs returns how many of ids resolve to employee users.
	CountEmployeesByIDs(ctx context.Context, ids []string) (int64, error)
	ListUnaffiliated(ctx context.Context) ([]*domain.User, error)
}
