package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/assetverse/asset-system/internal/core/domain"
	"github.com/assetverse/asset-system/internal/core/ports"
)

const collectionAssets = "assets"

// AssetRepository implements ports.AssetRepository on MongoDB. The stock
// ledger lives here: Reserve is a single conditional update, which is what
// makes concurrent approvals against the same asset safe.
type AssetRepository struct {
	col *mongo.Collection
}

func NewAssetRepository(db *mongo.Database) *AssetRepository {
	return &AssetRepository{col: db.Collection(collectionAssets)}
}

type mongoAsset struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	OwnerHREmail    string             `bson:"owner_hr_email"`
	ProductName     string             `bson:"product_name"`
	ProductType     string             `bson:"product_type"`
	ProductQuantity int                `bson:"product_quantity"`
	AddedDate       time.Time          `bson:"added_date"`
}

func (d mongoAsset) toDomain() *domain.Asset {
	return &domain.Asset{
		ID:              d.ID.Hex(),
		OwnerHREmail:    d.OwnerHREmail,
		ProductName:     d.ProductName,
		ProductType:     domain.ProductType(d.ProductType),
		ProductQuantity: d.ProductQuantity,
		AddedDate:       d.AddedDate,
	}
}

func (r *AssetRepository) Create(ctx context.Context, a *domain.Asset) (*domain.Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoAsset{
		OwnerHREmail:    a.OwnerHREmail,
		ProductName:     a.ProductName,
		ProductType:     string(a.ProductType),
		ProductQuantity: a.ProductQuantity,
		AddedDate:       a.AddedDate.UTC(),
	}

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert asset: %w", err)
	}

	created := *a
	created.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return &created, nil
}

func (r *AssetRepository) FindByID(ctx context.Context, id string) (*domain.Asset, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAssetNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoAsset
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAssetNotFound
		}
		return nil, fmt.Errorf("find asset: %w", err)
	}
	return doc.toDomain(), nil
}

// Update replaces the HR-editable fields, quantity included. This is the
// metadata edit path; it does not race with Reserve because HR stock
// corrections are not part of the approval flow.
func (r *AssetRepository) Update(ctx context.Context, a *domain.Asset) error {
	oid, err := primitive.ObjectIDFromHex(a.ID)
	if err != nil {
		return domain.ErrAssetNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"product_name":     a.ProductName,
		"product_type":     string(a.ProductType),
		"product_quantity": a.ProductQuantity,
	}}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("update asset: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAssetNotFound
	}
	return nil
}

func (r *AssetRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAssetNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrAssetNotFound
	}
	return nil
}

func (r *AssetRepository) List(ctx context.Context, filter ports.AssetFilter) ([]*domain.Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := bson.M{}
	if filter.OnlyAvailable {
		query["product_quantity"] = bson.M{"$gt": 0}
	}
	if filter.Search != "" {
		query["product_name"] = bson.M{"$regex": filter.Search, "$options": "i"}
	}
	if filter.Type != "" {
		query["product_type"] = filter.Type
	}
	if filter.OwnerHR != "" {
		query["owner_hr_email"] = filter.OwnerHR
	}

	opts := options.Find().SetSort(bson.D{{Key: "added_date", Value: -1}})
	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer cur.Close(ctx)

	var assets []*domain.Asset
	for cur.Next(ctx) {
		var doc mongoAsset
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode asset: %w", err)
		}
		assets = append(assets, doc.toDomain())
	}
	return assets, cur.Err()
}

// Reserve decrements product_quantity by one iff it is still positive.
// The filter and the $inc execute as one document update, so two concurrent
// reservations against quantity=1 produce exactly one match; the loser sees
// ErrNoDocuments and is told the stock ran out.
func (r *AssetRepository) Reserve(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAssetNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": oid, "product_quantity": bson.M{"$gt": 0}}
	update := bson.M{"$inc": bson.M{"product_quantity": -1}}

	err = r.col.FindOneAndUpdate(ctx, filter, update).Err()
	if err == nil {
		return nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("reserve asset: %w", err)
	}

	// No match: either the asset is gone or the stock is depleted.
	n, cntErr := r.col.CountDocuments(ctx, bson.M{"_id": oid})
	if cntErr != nil {
		return fmt.Errorf("reserve asset: %w", cntErr)
	}
	if n == 0 {
		return domain.ErrAssetNotFound
	}
	return domain.ErrInsufficientStock
}

// Release gives one unit of stock back (return or compensation).
func (r *AssetRepository) Release(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAssetNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$inc": bson.M{"product_quantity": 1}})
	if err != nil {
		return fmt.Errorf("release asset: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAssetNotFound
	}
	return nil
}

// EnsureIndexes creates the indexes the listing paths rely on.
func (r *AssetRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_hr_email", Value: 1}}},
		{Keys: bson.D{{Key: "product_type", Value: 1}}},
		{Keys: bson.D{{Key: "product_quantity", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
