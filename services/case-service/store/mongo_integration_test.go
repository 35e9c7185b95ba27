//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"

	"resolveit/pkg/apperror"
	"resolveit/pkg/database"
	"resolveit/pkg/security"
	"resolveit/services/case-service/models"
	"resolveit/services/case-service/store"
)

type MongoStoreSuite struct {
	suite.Suite
	container  *tcmongo.MongoDBContainer
	mongo      *database.Mongo
	identities *store.MongoIdentityStore
	cases      *store.MongoCaseStore
}

func TestMongoStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(MongoStoreSuite))
}

func (s *MongoStoreSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcmongo.Run(ctx, "mongo:7")
	testcontainers.CleanupContainer(s.T(), container)
	s.Require().NoError(err)
	s.container = container

	uri, err := container.ConnectionString(ctx)
	s.Require().NoError(err)

	s.mongo, err = database.ConnectMongo(ctx, uri, "resolveit_test")
	s.Require().NoError(err)

	cipher, err := security.NewFieldCipher(nil, "integration-secret")
	s.Require().NoError(err)

	s.identities = store.NewMongoIdentityStore(s.mongo.DB)
	s.cases = store.NewMongoCaseStore(s.mongo.DB, cipher)
	s.Require().NoError(s.identities.EnsureIndexes(ctx))
	s.Require().NoError(s.cases.EnsureIndexes(ctx))
}

func (s *MongoStoreSuite) TearDownSuite() {
	if s.mongo != nil {
		_ = s.mongo.Close(context.Background())
	}
}

func (s *MongoStoreSuite) SetupTest() {
	ctx := context.Background()
	_, err := s.mongo.DB.Collection("cases").DeleteMany(ctx, bson.M{})
	s.Require().NoError(err)
	_, err = s.mongo.DB.Collection("users").DeleteMany(ctx, bson.M{})
	s.Require().NoError(err)
}

func (s *MongoStoreSuite) newIdentity(email string) *models.Identity {
	identity := &models.Identity{
		UserName:     "Alice",
		Age:          30,
		Gender:       "female",
		Street:       "1 Main St",
		City:         "Springfield",
		ZipCode:      "12345",
		Email:        email,
		PhoneNumber:  "+14155552671",
		PhotoURI:     "/uploads/users/user-1.png",
		PasswordHash: "hash",
	}
	s.Require().NoError(s.identities.Create(context.Background(), identity))
	return identity
}

func (s *MongoStoreSuite) newCase(ownerID string) *models.Case {
	c := &models.Case{
		OwnerID:              ownerID,
		Category:             models.CategoryBusiness,
		Description:          "The supplier failed to deliver the goods agreed in the signed contract.",
		OppositePartyName:    "Acme Ltd",
		OppositePartyContact: "+14155550000",
		OppositePartyAddress: "2 Side St",
		IssuePendingStatus:   "none",
		ProofURI:             "/uploads/cases/case-1.pdf",
	}
	s.Require().NoError(s.cases.Create(context.Background(), c))
	return c
}

func (s *MongoStoreSuite) TestDuplicateEmailRejected() {
	s.newIdentity("alice@example.com")

	err := s.identities.Create(context.Background(), &models.Identity{Email: "alice@example.com"})
	s.ErrorIs(err, apperror.ErrDuplicate)
}

func (s *MongoStoreSuite) TestIdentityLookups() {
	ctx := context.Background()
	alice := s.newIdentity("alice@example.com")

	got, err := s.identities.FindByEmail(ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal(alice.ID, got.ID)
	s.Equal("hash", got.PasswordHash)

	_, err = s.identities.FindByID(ctx, "not-an-object-id")
	s.ErrorIs(err, apperror.ErrNotFound)

	found, err := s.identities.FindByIDs(ctx, []string{alice.ID, "garbage"})
	s.Require().NoError(err)
	s.Len(found, 1)
}

func (s *MongoStoreSuite) TestContactEncryptedAtRest() {
	ctx := context.Background()
	alice := s.newIdentity("alice@example.com")
	c := s.newCase(alice.ID)

	var raw bson.M
	s.Require().NoError(s.mongo.DB.Collection("cases").FindOne(ctx, bson.M{}).Decode(&raw))
	s.NotContains(raw, "oppositePartyContact")
	s.NotEqual("+14155550000", raw["oppositePartyContactEnc"])

	got, err := s.cases.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal("+14155550000", got.OppositePartyContact)
	s.Equal(alice.ID, got.OwnerID)
}

func (s *MongoStoreSuite) TestStatusUpdates() {
	ctx := context.Background()
	alice := s.newIdentity("alice@example.com")
	c := s.newCase(alice.ID)

	updated, err := s.cases.SetCaseStatus(ctx, c.ID, models.StatusResolved)
	s.Require().NoError(err)
	s.Equal(models.StatusResolved, updated.CaseStatus)

	again, err := s.cases.SetCaseStatus(ctx, c.ID, models.StatusResolved)
	s.Require().NoError(err)
	s.Equal(updated.CaseStatus, again.CaseStatus)
	s.Equal(updated.OppositeStatus, again.OppositeStatus)
	s.Equal(updated.VerifiedByAdmin, again.VerifiedByAdmin)

	_, err = s.cases.SetCaseStatus(ctx, "65f0c0ffee00000000000001", models.StatusPanelCreated)
	s.ErrorIs(err, apperror.ErrNotFound)
}

// Updates to different fields of the same case must not clobber each other.
func (s *MongoStoreSuite) TestConcurrentFieldUpdates() {
	ctx := context.Background()
	alice := s.newIdentity("alice@example.com")
	c := s.newCase(alice.ID)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); _, _ = s.cases.SetVerified(ctx, c.ID, true) }()
	go func() { defer wg.Done(); _, _ = s.cases.SetOppositeStatus(ctx, c.ID, models.OppositeAccepted) }()
	go func() { defer wg.Done(); _, _ = s.cases.SetCaseStatus(ctx, c.ID, models.StatusMediationInProgress) }()
	wg.Wait()

	got, err := s.cases.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.True(got.VerifiedByAdmin)
	s.Equal(models.OppositeAccepted, got.OppositeStatus)
	s.Equal(models.StatusMediationInProgress, got.CaseStatus)
}

func (s *MongoStoreSuite) TestListOrderingAndScope() {
	ctx := context.Background()
	alice := s.newIdentity("alice@example.com")
	bob := s.newIdentity("bob@example.com")
	s.newCase(alice.ID)
	s.newCase(bob.ID)
	latest := s.newCase(alice.ID)

	all, err := s.cases.ListAll(ctx)
	s.Require().NoError(err)
	s.Len(all, 3)
	s.Equal(latest.ID, all[0].ID)

	mine, err := s.cases.ListByOwner(ctx, alice.ID)
	s.Require().NoError(err)
	s.Len(mine, 2)
	for _, c := range mine {
		s.Equal(alice.ID, c.OwnerID)
	}
}
