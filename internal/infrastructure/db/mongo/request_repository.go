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

const collectionRequests = "requests"

// RequestRepository implements ports.RequestRepository on MongoDB.
// Requests are only ever inserted and status-updated; the collection is
// the permanent audit trail of every borrow decision.
type RequestRepository struct {
	col *mongo.Collection
}

func NewRequestRepository(db *mongo.Database) *RequestRepository {
	return &RequestRepository{col: db.Collection(collectionRequests)}
}

type mongoRequest struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	AssetID      string             `bson:"asset_id"`
	AssetName    string             `bson:"asset_name"`
	AssetType    string             `bson:"asset_type"`
	UserEmail    string             `bson:"user_email"`
	UserName     string             `bson:"user_name"`
	HREmail      string             `bson:"hr_email"`
	Status       string             `bson:"status"`
	RequestDate  time.Time          `bson:"request_date"`
	ApprovalDate *time.Time         `bson:"approval_date,omitempty"`
	ReturnDate   *time.Time         `bson:"return_date,omitempty"`
}

func (d mongoRequest) toDomain() *domain.Request {
	return &domain.Request{
		ID:           d.ID.Hex(),
		AssetID:      d.AssetID,
		AssetName:    d.AssetName,
		AssetType:    domain.ProductType(d.AssetType),
		UserEmail:    d.UserEmail,
		UserName:     d.UserName,
		HREmail:      d.HREmail,
		Status:       domain.RequestStatus(d.Status),
		RequestDate:  d.RequestDate,
		ApprovalDate: d.ApprovalDate,
		ReturnDate:   d.ReturnDate,
	}
}

func (r *RequestRepository) Create(ctx context.Context, req *domain.Request) (*domain.Request, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoRequest{
		AssetID:     req.AssetID,
		AssetName:   req.AssetName,
		AssetType:   string(req.AssetType),
		UserEmail:   req.UserEmail,
		UserName:    req.UserName,
		HREmail:     req.HREmail,
		Status:      string(req.Status),
		RequestDate: req.RequestDate.UTC(),
	}

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert request: %w", err)
	}

	created := *req
	created.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return &created, nil
}

func (r *RequestRepository) FindByID(ctx context.Context, id string) (*domain.Request, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrRequestNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoRequest
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, fmt.Errorf("find request: %w", err)
	}
	return doc.toDomain(), nil
}

// UpdateStatus is a compare-and-set on the stored status: the filter matches
// both _id and the expected current status, so a request that has already
// moved on produces no match and the transition is refused. This is what
// keeps two HRs from both winning the same Pending request, and what makes
// Return idempotent.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id string, from, to domain.RequestStatus, change ports.StatusChange) (*domain.Request, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrRequestNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{"status": string(to)}
	if change.ApprovalDate != nil {
		set["approval_date"] = change.ApprovalDate.UTC()
	}
	if change.ReturnDate != nil {
		set["return_date"] = change.ReturnDate.UTC()
	}
	update := bson.M{"$set": set}
	unset := bson.M{}
	if change.ClearApprovalDate {
		unset["approval_date"] = ""
	}
	if change.ClearReturnDate {
		unset["return_date"] = ""
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	filter := bson.M{"_id": oid, "status": string(from)}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc mongoRequest
	err = r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.toDomain(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("update request status: %w", err)
	}

	// No match: the request is gone or its status moved in the meantime.
	n, cntErr := r.col.CountDocuments(ctx, bson.M{"_id": oid})
	if cntErr != nil {
		return nil, fmt.Errorf("update request status: %w", cntErr)
	}
	if n == 0 {
		return nil, domain.ErrRequestNotFound
	}
	return nil, fmt.Errorf("%w (request %s is no longer %s)", domain.ErrInvalidTransition, id, from)
}

func (r *RequestRepository) List(ctx context.Context, filter ports.RequestFilter) ([]*domain.Request, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := bson.M{}
	if filter.UserEmail != "" {
		query["user_email"] = filter.UserEmail
	}
	if filter.HREmail != "" {
		query["hr_email"] = filter.HREmail
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Search != "" {
		query["asset_name"] = bson.M{"$regex": filter.Search, "$options": "i"}
	}

	opts := options.Find().SetSort(bson.D{{Key: "request_date", Value: -1}})
	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer cur.Close(ctx)

	var requests []*domain.Request
	for cur.Next(ctx) {
		var doc mongoRequest
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode request: %w", err)
		}
		requests = append(requests, doc.toDomain())
	}
	return requests, cur.Err()
}

// EnsureIndexes creates the listing indexes.
func (r *RequestRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_email", Value: 1}}},
		{Keys: bson.D{{Key: "hr_email", Value: 1}, {Key: "status", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
