package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/assetverse/asset-system/internal/core/domain"
	"github.com/assetverse/asset-system/internal/core/ports"
)

// CatalogCache abstracts the short-TTL availability cache (Redis). A cache
// failure is never fatal: misses fall through to the repository.
type CatalogCache interface {
	Get(ctx context.Context, filter ports.AssetFilter) ([]*domain.Asset, bool)
	Set(ctx context.Context, filter ports.AssetFilter, assets []*domain.Asset)
	Invalidate(ctx context.Context)
}

type assetService struct {
	assets ports.AssetRepository
	cache  CatalogCache // optional, may be nil
	log    zerolog.Logger
}

// NewAssetService returns the HR asset CRUD and catalog listing service.
// cache may be nil when Redis is not configured.
func NewAssetService(assets ports.AssetRepository, cache CatalogCache, log zerolog.Logger) ports.AssetService {
	return &assetService{assets: assets, cache: cache, log: log}
}

func (s *assetService) Create(ctx context.Context, ownerHR string, input ports.AssetInput) (*domain.Asset, error) {
	if err := validateAssetInput(input); err != nil {
		return nil, err
	}

	asset := &domain.Asset{
		OwnerHREmail:    ownerHR,
		ProductName:     input.ProductName,
		ProductType:     domain.ProductType(input.ProductType),
		ProductQuantity: input.ProductQuantity,
		AddedDate:       time.Now().UTC(),
	}

	created, err := s.assets.Create(ctx, asset)
	if err != nil {
		s.log.Error().Err(err).Str("product", input.ProductName).Msg("failed to create asset")
		return nil, err
	}

	s.invalidate(ctx)
	s.log.Info().Str("asset_id", created.ID).Str("product", created.ProductName).Msg("asset created")
	return created, nil
}

// Update replaces the HR-editable fields. A quantity set here is a plain
// stock correction outside the reservation race.
func (s *assetService) Update(ctx context.Context, id, ownerHR string, input ports.AssetInput) (*domain.Asset, error) {
	if err := validateAssetInput(input); err != nil {
		return nil, err
	}

	asset, err := s.ownedAsset(ctx, id, ownerHR)
	if err != nil {
		return nil, err
	}

	asset.ProductName = input.ProductName
	asset.ProductType = domain.ProductType(input.ProductType)
	asset.ProductQuantity = input.ProductQuantity

	if err := s.assets.Update(ctx, asset); err != nil {
		return nil, fmt.Errorf("update asset: %w", err)
	}

	s.invalidate(ctx)
	return asset, nil
}

func (s *assetService) Delete(ctx context.Context, id, ownerHR string) error {
	if _, err := s.ownedAsset(ctx, id, ownerHR); err != nil {
		return err
	}
	if err := s.assets.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}

	s.invalidate(ctx)
	s.log.Info().Str("asset_id", id).Str("hr", ownerHR).Msg("asset deleted")
	return nil
}

func (s *assetService) ListOwned(ctx context.Context, ownerHR, search, productType string) ([]*domain.Asset, error) {
	return s.assets.List(ctx, ports.AssetFilter{
		OwnerHR: ownerHR,
		Search:  search,
		Type:    productType,
	})
}

// ListAvailable is the employee-facing catalog: assets with stock left,
// optionally narrowed by name, type, or owning HR. Results are served from
// the cache when fresh.
func (s *assetService) ListAvailable(ctx context.Context, filter ports.AssetFilter) ([]*domain.Asset, error) {
	filter.OnlyAvailable = true

	if s.cache != nil {
		if assets, ok := s.cache.Get(ctx, filter); ok {
			return assets, nil
		}
	}

	assets, err := s.assets.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, filter, assets)
	}
	return assets, nil
}

// ownedAsset loads the asset and enforces HR ownership.
func (s *assetService) ownedAsset(ctx context.Context, id, ownerHR string) (*domain.Asset, error) {
	asset, err := s.assets.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ownerHR != "" && asset.OwnerHREmail != ownerHR {
		return nil, fmt.Errorf("asset %s: %w", id, domain.ErrForbidden)
	}
	return asset, nil
}

func (s *assetService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

func validateAssetInput(input ports.AssetInput) error {
	if input.ProductName == "" {
		return fmt.Errorf("product name is required")
	}
	switch domain.ProductType(input.ProductType) {
	case domain.TypeReturnable, domain.TypeNonReturnable:
	default:
		return fmt.Errorf("unknown product type %q", input.ProductType)
	}
	if input.ProductQuantity < 0 {
		return fmt.Errorf("product quantity cannot be negative")
	}
	return nil
}
