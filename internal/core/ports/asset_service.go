package ports

import (
	"context"

	"github.com/assetverse/asset-system/internal/core/domain"
)

// AssetInput carries the HR-editable fields of an asset.
type AssetInput struct {
	ProductName     string
	ProductType     string
	ProductQuantity int
}

// AssetService exposes HR asset CRUD and the employee-facing availability
// listing. Quantity edits here are plain metadata updates; the workflow
// engine owns all reserve/release traffic.
type AssetService interface {
	Create(ctx context.Context, ownerHR string, input AssetInput) (*domain.Asset, error)
	Update(ctx context.Context, id, ownerHR string, input AssetInput) (*domain.Asset, error)
	Delete(ctx context.Context, id, ownerHR string) error
	ListOwned(ctx context.Context, ownerHR, search, productType string) ([]*domain.Asset, error)
	ListAvailable(ctx context.Context, filter AssetFilter) ([]*domain.Asset, error)
}
