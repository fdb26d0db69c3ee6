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
)

const collectionUsers = "users"

// UserRepository implements ports.UserRepository on MongoDB.
type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers)}
}

type mongoAffiliation struct {
	HREmail     string    `bson:"hr_email"`
	CompanyName string    `bson:"company_name"`
	CompanyLogo string    `bson:"company_logo"`
	JoinedDate  time.Time `bson:"joined_date"`
}

type mongoUser struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Name         string             `bson:"name"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	Role         string             `bson:"role"`
	CompanyName  string             `bson:"company_name,omitempty"`
	CompanyLogo  string             `bson:"company_logo,omitempty"`
	PackageLimit int                `bson:"package_limit,omitempty"`
	Affiliation  *mongoAffiliation  `bson:"affiliation,omitempty"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

func (d mongoUser) toDomain() *domain.User {
	u := &domain.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         d.Role,
		CompanyName:  d.CompanyName,
		CompanyLogo:  d.CompanyLogo,
		PackageLimit: d.PackageLimit,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if d.Affiliation != nil {
		u.Affiliation = &domain.Affiliation{
			HREmail:     d.Affiliation.HREmail,
			CompanyName: d.Affiliation.CompanyName,
			CompanyLogo: d.Affiliation.CompanyLogo,
			JoinedDate:  d.Affiliation.JoinedDate,
		}
	}
	return u
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoUser{
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		CompanyName:  u.CompanyName,
		CompanyLogo:  u.CompanyLogo,
		PackageLimit: u.PackageLimit,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	created := *u
	created.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return &created, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoUser
	if err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoUser
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

// SetAffiliation overwrites the affiliation block on an employee account.
func (r *UserRepository) SetAffiliation(ctx context.Context, employeeEmail string, aff domain.Affiliation) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"email": employeeEmail, "role": domain.RoleEmployee}
	update := bson.M{"$set": bson.M{
		"affiliation": affiliationDoc(aff),
		"updated_at":  time.Now().UTC(),
	}}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("set affiliation: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// SetAffiliationMany applies one affiliation block to a batch of employees
// in a single multi-document update.
func (r *UserRepository) SetAffiliationMany(ctx context.Context, ids []string, aff domain.Affiliation) (int64, error) {
	oids, err := toObjectIDs(ids)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": bson.M{"$in": oids}, "role": domain.RoleEmployee}
	update := bson.M{"$set": bson.M{
		"affiliation": affiliationDoc(aff),
		"updated_at":  time.Now().UTC(),
	}}

	res, err := r.col.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("set affiliation many: %w", err)
	}
	return res.MatchedCount, nil
}

// ClearAffiliation unsets the affiliation block and returns the updated
// user. Clearing an already unaffiliated employee succeeds unchanged.
func (r *UserRepository) ClearAffiliation(ctx context.Context, employeeID string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(employeeID)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{
		"$unset": bson.M{"affiliation": ""},
		"$set":   bson.M{"updated_at": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc mongoUser
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("clear affiliation: %w", err)
	}
	return doc.toDomain(), nil
}

// CountTeam counts employees currently affiliated with the HR account.
func (r *UserRepository) CountTeam(ctx context.Context, hrEmail string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{
		"role":                 domain.RoleEmployee,
		"affiliation.hr_email": hrEmail,
	})
	if err != nil {
		return 0, fmt.Errorf("count team: %w", err)
	}
	return n, nil
}

func (r *UserRepository) CountEmployeesByIDs(ctx context.Context, ids []string) (int64, error) {
	oids, err := toObjectIDs(ids)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{
		"_id":  bson.M{"$in": oids},
		"role": domain.RoleEmployee,
	})
	if err != nil {
		return 0, fmt.Errorf("count employees: %w", err)
	}
	return n, nil
}

func (r *UserRepository) ListUnaffiliated(ctx context.Context) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"role":        domain.RoleEmployee,
		"affiliation": bson.M{"$exists": false},
	}

	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list unaffiliated: %w", err)
	}
	defer cur.Close(ctx)

	var users []*domain.User
	for cur.Next(ctx) {
		var doc mongoUser
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		users = append(users, doc.toDomain())
	}
	return users, cur.Err()
}

// EnsureIndexes creates the unique email index and the team lookup index.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "affiliation.hr_email", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func affiliationDoc(aff domain.Affiliation) bson.M {
	return bson.M{
		"hr_email":     aff.HREmail,
		"company_name": aff.CompanyName,
		"company_logo": aff.CompanyLogo,
		"joined_date":  aff.JoinedDate.UTC(),
	}
}

func toObjectIDs(ids []string) ([]primitive.ObjectID, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, domain.ErrUserNotFound
		}
		oids = append(oids, oid)
	}
	return oids, nil
}
