package ports

import (
	"context"

	"github.com/assetverse/asset-system/internal/core/domain"
)

// AssetFilter carries the query parameters for listing assets.
type AssetFilter struct {
	Search        string // optional: case-insensitive partial match on product_name
	Type          string // optional: filter by product type ("Returnable" / "Non-returnable")
	OwnerHR       string // optional: scope to a single HR account's assets
	OnlyAvailable bool   // when true, only assets with product_quantity > 0
}

// AssetRepository defines persistence operations for assets, including the
// stock ledger. Reserve and Release are the only paths that touch
// product_quantity outside an explicit HR edit.
type AssetRepository interface {
	Create(ctx context.Context, a *domain.Asset) (*domain.Asset, error)
	FindByID(ctx context.Context, id string) (*domain.Asset, error)
	// Update replaces the HR-editable fields (metadata and quantity).
	// It does not participate in the reservation race.
	Update(ctx context.Context, a *domain.Asset) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter AssetFilter) ([]*domain.Asset, error)

	// Reserve atomically decrements product_quantity by one iff it is
	// positive. It must be a single conditional write: two concurrent
	// reservations against quantity=1 yield exactly one success and one
	// domain.ErrInsufficientStock.
	Reserve(ctx context.Context, id string) error
	// Release atomically increments product_quantity by one.
	Release(ctx context.Context, id string) error
}
