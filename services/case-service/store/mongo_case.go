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

const casesCollection = "cases"

type caseDoc struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty"`
	UserID               primitive.ObjectID `bson:"userId"`
	CaseType             int                `bson:"caseType"`
	Description          string             `bson:"description"`
	OppositePartyName    string             `bson:"oppositePartyName"`
	OppositePartyContact string             `bson:"oppositePartyContact,omitempty"`
	// OppositePartyContactEnc holds the AES-GCM ciphertext of the contact.
	OppositePartyContactEnc string    `bson:"oppositePartyContactEnc,omitempty"`
	OppositePartyAddress    string    `bson:"oppositePartyAddress"`
	ProofURI                string    `bson:"proofUri"`
	IssuePendingStatus      string    `bson:"issuePendingStatus"`
	VerifiedByAdmin         bool      `bson:"verifiedByAdmin"`
	OppositeStatus          int       `bson:"oppositeStatus"`
	CaseStatus              int       `bson:"caseStatus"`
	CreatedAt               time.Time `bson:"createdAt"`
	UpdatedAt               time.Time `bson:"updatedAt"`
}

type MongoCaseStore struct {
	coll   *mongo.Collection
	cipher FieldCipher
}

// NewMongoCaseStore builds the store. A nil cipher stores contacts in plaintext.
func NewMongoCaseStore(db *mongo.Database, cipher FieldCipher) *MongoCaseStore {
	return &MongoCaseStore{coll: db.Collection(casesCollection), cipher: cipher}
}

func (s *MongoCaseStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create case indexes: %w", err)
	}
	return nil
}

func (s *MongoCaseStore) model(d *caseDoc) (*models.Case, error) {
	contact := d.OppositePartyContact
	if d.OppositePartyContactEnc != "" {
		if s.cipher == nil {
			return nil, fmt.Errorf("case %s: encrypted contact without cipher", d.ID.Hex())
		}
		pt, err := s.cipher.Decrypt(d.OppositePartyContactEnc)
		if err != nil {
			return nil, fmt.Errorf("case %s: decrypt contact: %w", d.ID.Hex(), err)
		}
		contact = pt
	}
	return &models.Case{
		ID:                   d.ID.Hex(),
		OwnerID:              d.UserID.Hex(),
		Category:             models.Category(d.CaseType),
		Description:          d.Description,
		OppositePartyName:    d.OppositePartyName,
		OppositePartyContact: contact,
		OppositePartyAddress: d.OppositePartyAddress,
		IssuePendingStatus:   d.IssuePendingStatus,
		ProofURI:             d.ProofURI,
		VerifiedByAdmin:      d.VerifiedByAdmin,
		OppositeStatus:       models.OppositeStatus(d.OppositeStatus),
		CaseStatus:           models.Status(d.CaseStatus),
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}, nil
}

func (s *MongoCaseStore) Create(ctx context.Context, c *models.Case) error {
	ownerID, err := primitive.ObjectIDFromHex(c.OwnerID)
	if err != nil {
		return fmt.Errorf("case owner %q: %w", c.OwnerID, apperror.ErrNotFound)
	}

	now := time.Now().UTC()
	doc := caseDoc{
		ID:                   primitive.NewObjectID(),
		UserID:               ownerID,
		CaseType:             int(c.Category),
		Description:          c.Description,
		OppositePartyName:    c.OppositePartyName,
		OppositePartyAddress: c.OppositePartyAddress,
		ProofURI:             c.ProofURI,
		IssuePendingStatus:   c.IssuePendingStatus,
		VerifiedByAdmin:      false,
		OppositeStatus:       int(models.OppositeNotStarted),
		CaseStatus:           int(models.StatusNotStarted),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if s.cipher != nil {
		enc, err := s.cipher.Encrypt(c.OppositePartyContact)
		if err != nil {
			return fmt.Errorf("encrypt contact: %w", err)
		}
		doc.OppositePartyContactEnc = enc
	} else {
		doc.OppositePartyContact = c.OppositePartyContact
	}

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert case: %w", err)
	}

	c.ID = doc.ID.Hex()
	c.VerifiedByAdmin = false
	c.OppositeStatus = models.OppositeNotStarted
	c.CaseStatus = models.StatusNotStarted
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func (s *MongoCaseStore) FindByID(ctx context.Context, id string) (*models.Case, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("case %q: %w", id, apperror.ErrNotFound)
	}
	var doc caseDoc
	if err := s.coll.FindOne(ctx, bson.M{"_id": objID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("case %q: %w", id, apperror.ErrNotFound)
		}
		return nil, fmt.Errorf("find case: %w", err)
	}
	return s.model(&doc)
}

func (s *MongoCaseStore) SetVerified(ctx context.Context, id string, verified bool) (*models.Case, error) {
	return s.setField(ctx, id, "verifiedByAdmin", verified)
}

func (s *MongoCaseStore) SetOppositeStatus(ctx context.Context, id string, status models.OppositeStatus) (*models.Case, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("opposite status %d out of range", int(status))
	}
	return s.setField(ctx, id, "oppositeStatus", int(status))
}

func (s *MongoCaseStore) SetCaseStatus(ctx context.Context, id string, status models.Status) (*models.Case, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("case status %d out of range", int(status))
	}
	return s.setField(ctx, id, "caseStatus", int(status))
}

// setField overwrites a single top-level field. Concurrent writes to the same
// field are last-writer-wins.
func (s *MongoCaseStore) setField(ctx context.Context, id, field string, value interface{}) (*models.Case, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("case %q: %w", id, apperror.ErrNotFound)
	}

	update := bson.M{
		"$set": bson.M{
			field:       value,
			"updatedAt": time.Now().UTC(),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc caseDoc
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": objID}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("case %q: %w", id, apperror.ErrNotFound)
		}
		return nil, fmt.Errorf("update case %s: %w", field, err)
	}
	return s.model(&doc)
}

func (s *MongoCaseStore) ListAll(ctx context.Context) ([]models.Case, error) {
	return s.list(ctx, bson.M{})
}

func (s *MongoCaseStore) ListByOwner(ctx context.Context, ownerID string) ([]models.Case, error) {
	objID, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return []models.Case{}, nil
	}
	return s.list(ctx, bson.M{"userId": objID})
}

func (s *MongoCaseStore) list(ctx context.Context, filter bson.M) ([]models.Case, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find cases: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []caseDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode cases: %w", err)
	}

	out := make([]models.Case, 0, len(docs))
	for i := range docs {
		c, err := s.model(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}
