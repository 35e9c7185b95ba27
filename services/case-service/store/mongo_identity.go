package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"resolveit/pkg/apperror"
	"resolveit/services/case-service/models"
)

const identitiesCollection = "users"

type identityDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserName    string             `bson:"userName"`
	Age         int                `bson:"age"`
	Gender      string             `bson:"gender"`
	Street      string             `bson:"street"`
	City        string             `bson:"city"`
	ZipCode     string             `bson:"zipCode"`
	Email       string             `bson:"email"`
	PhoneNumber string             `bson:"phoneNumber"`
	PhotoURI    string             `bson:"photoUri"`
	Password    string             `bson:"password"`
	Role        int                `bson:"role"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *identityDoc) model() *models.Identity {
	return &models.Identity{
		ID:           d.ID.Hex(),
		UserName:     d.UserName,
		Age:          d.Age,
		Gender:       d.Gender,
		Street:       d.Street,
		City:         d.City,
		ZipCode:      d.ZipCode,
		Email:        d.Email,
		PhoneNumber:  d.PhoneNumber,
		PhotoURI:     d.PhotoURI,
		PasswordHash: d.Password,
		Role:         models.Role(d.Role),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type MongoIdentityStore struct {
	coll *mongo.Collection
}

func NewMongoIdentityStore(db *mongo.Database) *MongoIdentityStore {
	return &MongoIdentityStore{coll: db.Collection(identitiesCollection)}
}

// EnsureIndexes creates the unique email index.
func (s *MongoIdentityStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("create email index: %w", err)
	}
	return nil
}

func (s *MongoIdentityStore) Create(ctx context.Context, identity *models.Identity) error {
	now := time.Now().UTC()
	doc := identityDoc{
		ID:          primitive.NewObjectID(),
		UserName:    identity.UserName,
		Age:         identity.Age,
		Gender:      identity.Gender,
		Street:      identity.Street,
		City:        identity.City,
		ZipCode:     identity.ZipCode,
		Email:       identity.Email,
		PhoneNumber: identity.PhoneNumber,
		PhotoURI:    identity.PhotoURI,
		Password:    identity.PasswordHash,
		Role:        int(identity.Role),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert identity: %w", apperror.ErrDuplicate)
		}
		return fmt.Errorf("insert identity: %w", err)
	}

	identity.ID = doc.ID.Hex()
	identity.CreatedAt = now
	identity.UpdatedAt = now
	return nil
}

func (s *MongoIdentityStore) FindByID(ctx context.Context, id string) (*models.Identity, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("identity %q: %w", id, apperror.ErrNotFound)
	}
	return s.findOne(ctx, bson.M{"_id": objID})
}

func (s *MongoIdentityStore) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoIdentityStore) findOne(ctx context.Context, filter bson.M) (*models.Identity, error) {
	var doc identityDoc
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.ErrNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return doc.model(), nil
}

func (s *MongoIdentityStore) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Identity, error) {
	objIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if objID, err := primitive.ObjectIDFromHex(id); err == nil {
			objIDs = append(objIDs, objID)
		}
	}
	out := make(map[string]*models.Identity, len(objIDs))
	if len(objIDs) == 0 {
		return out, nil
	}

	cursor, err := s.coll.Find(ctx, bson.M{"_id": bson.M{"$in": objIDs}})
	if err != nil {
		return nil, fmt.Errorf("find identities: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []identityDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode identities: %w", err)
	}
	for i := range docs {
		m := docs[i].model()
		out[m.ID] = m
	}
	return out, nil
}
