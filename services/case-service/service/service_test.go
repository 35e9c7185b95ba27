package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"resolveit/pkg/apperror"
	"resolveit/pkg/middleware"
	"resolveit/pkg/security"
	"resolveit/pkg/storage"
	"resolveit/services/case-service/models"
	"resolveit/services/case-service/store"
)

type fakeUploader struct {
	mu        sync.Mutex
	saved     []string
	discarded []string
	err       error
}

func (f *fakeUploader) Save(_ context.Context, p storage.Policy, fh *multipart.FileHeader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	ref := storage.Reference(p.Dir + "/" + p.NamePrefix + "-" + fh.Filename)
	f.saved = append(f.saved, ref)
	return ref, nil
}

func (f *fakeUploader) Discard(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discarded = append(f.discarded, ref)
	return nil
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	args := m.Called(ctx, routingKey, payload)
	return args.Error(0)
}

type failingCaseStore struct {
	store.CaseStore
	err error
}

func (f failingCaseStore) Create(context.Context, *models.Case) error { return f.err }
func (f failingCaseStore) ListAll(context.Context) ([]models.Case, error) {
	return nil, f.err
}

func validIdentityInput() RegisterIdentityInput {
	return RegisterIdentityInput{
		UserName:             "Alice",
		Age:                  "30",
		Gender:               "female",
		Street:               "1 Main St",
		City:                 "Springfield",
		ZipCode:              "12345",
		Email:                "Alice@Example.com ",
		PhoneNumber:          "+14155552671",
		Password:             "Secr3t!pass",
		PasswordConfirmation: "Secr3t!pass",
		Photo:                &multipart.FileHeader{Filename: "alice.png"},
	}
}

func validCaseInput() RegisterCaseInput {
	return RegisterCaseInput{
		CaseType:             "1",
		Description:          strings.Repeat("d", 60),
		OppositePartyName:    "Acme Ltd",
		OppositePartyContact: "+14155550000",
		OppositePartyAddress: "2 Side St",
		IssuePendingStatus:   "none",
		Proof:                &multipart.FileHeader{Filename: "proof.pdf"},
	}
}

func newAuthenticator(t *testing.T) (*Authenticator, *store.MemoryIdentityStore, *fakeUploader) {
	t.Helper()
	identities := store.NewMemoryIdentityStore()
	uploads := &fakeUploader{}
	auth := NewAuthenticator(identities, security.NewTokenIssuer("test-secret", 7*24*time.Hour), uploads, nil)
	return auth, identities, uploads
}

func TestRegisterIdentity(t *testing.T) {
	ctx := context.Background()
	auth, identities, uploads := newAuthenticator(t)

	require.NoError(t, auth.Register(ctx, validIdentityInput()))

	identity, err := identities.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 30, identity.Age)
	assert.Equal(t, models.RoleStandard, identity.Role)
	assert.NotEqual(t, "Secr3t!pass", identity.PasswordHash)
	assert.Equal(t, "/uploads/users/user-alice.png", identity.PhotoURI)
	assert.Len(t, uploads.saved, 1)

	err = auth.Register(ctx, validIdentityInput())
	assert.True(t, apperror.Is(err, apperror.KindConflict))
	assert.Len(t, uploads.saved, 1, "duplicate rejected before the photo is stored")
}

func TestRegisterIdentityValidationOrder(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RegisterIdentityInput)
		kind   apperror.Kind
		detail string
	}{
		{"missing field", func(in *RegisterIdentityInput) { in.City = "" }, apperror.KindValidation, "All fields are required"},
		{"missing field wins over mismatch", func(in *RegisterIdentityInput) { in.City = ""; in.PasswordConfirmation = "x" }, apperror.KindValidation, "All fields are required"},
		{"password mismatch", func(in *RegisterIdentityInput) { in.PasswordConfirmation = "Other1!pass" }, apperror.KindValidation, "Passwords do not match"},
		{"underage", func(in *RegisterIdentityInput) { in.Age = "17" }, apperror.KindValidation, "Age must be between 18 and 150"},
		{"age not a number", func(in *RegisterIdentityInput) { in.Age = "old" }, apperror.KindValidation, "Age must be between 18 and 150"},
		{"bad email", func(in *RegisterIdentityInput) { in.Email = "alice" }, apperror.KindValidation, "Invalid email format"},
		{"bad phone", func(in *RegisterIdentityInput) { in.PhoneNumber = "555-1234" }, apperror.KindValidation, "Phone Number Invalid"},
		{"weak password", func(in *RegisterIdentityInput) { in.Password = "password"; in.PasswordConfirmation = "password" }, apperror.KindValidation, "Password must include uppercase, lowercase, number, and special character"},
		{"missing photo", func(in *RegisterIdentityInput) { in.Photo = nil }, apperror.KindMissingAttachment, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth, identities, uploads := newAuthenticator(t)
			in := validIdentityInput()
			tc.mutate(&in)

			err := auth.Register(context.Background(), in)
			require.Error(t, err)

			var appErr *apperror.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tc.kind, appErr.Kind)
			assert.Equal(t, tc.detail, appErr.Detail)

			_, findErr := identities.FindByEmail(context.Background(), "alice@example.com")
			assert.ErrorIs(t, findErr, apperror.ErrNotFound, "nothing persisted")
			assert.Empty(t, uploads.saved)
		})
	}
}

func TestRegisterIdentityRejectedUpload(t *testing.T) {
	auth, _, uploads := newAuthenticator(t)
	uploads.err = storage.ErrTypeNotAllowed

	err := auth.Register(context.Background(), validIdentityInput())
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	auth, _, _ := newAuthenticator(t)
	require.NoError(t, auth.Register(ctx, validIdentityInput()))

	summary, token, err := auth.Authenticate(ctx, "alice@example.com", "Secr3t!pass")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "Alice", summary.UserName)
	assert.Equal(t, models.RoleStandard, summary.Role)

	identity, err := auth.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, summary.ID, identity.ID)

	_, _, err = auth.Authenticate(ctx, "alice@example.com", "Wrong1!pass")
	assert.True(t, apperror.Is(err, apperror.KindInvalidCredential))

	_, _, err = auth.Authenticate(ctx, "nobody@example.com", "Secr3t!pass")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, _, err = auth.Authenticate(ctx, "", "")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestVerifyRejectsOrphanToken(t *testing.T) {
	auth, _, _ := newAuthenticator(t)

	token, err := auth.tokens.Issue("65f0c0ffee00000000000001")
	require.NoError(t, err)

	_, err = auth.Verify(context.Background(), token)
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))

	_, err = auth.Verify(context.Background(), "garbage")
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))
}

func TestProvisionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	auth, identities, _ := newAuthenticator(t)
	admin := models.Identity{UserName: "Admin", Email: "admin@resolveit.com"}

	created, err := auth.Provision(ctx, admin, "Admin123!")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = auth.Provision(ctx, admin, "Admin123!")
	require.NoError(t, err)
	assert.False(t, created)

	stored, err := identities.FindByEmail(ctx, "admin@resolveit.com")
	require.NoError(t, err)
	assert.True(t, stored.IsAdmin())
}

type caseFixture struct {
	svc        *Cases
	cases      *store.MemoryCaseStore
	identities *store.MemoryIdentityStore
	uploads    *fakeUploader
	events     *mockPublisher
	owner      *models.Identity
}

func newCaseFixture(t *testing.T) *caseFixture {
	t.Helper()
	f := &caseFixture{
		cases:      store.NewMemoryCaseStore(),
		identities: store.NewMemoryIdentityStore(),
		uploads:    &fakeUploader{},
		events:     &mockPublisher{},
		owner:      &models.Identity{UserName: "Alice", Email: "alice@example.com", City: "Springfield"},
	}
	require.NoError(t, f.identities.Create(context.Background(), f.owner))
	f.svc = NewCases(f.cases, f.identities, f.uploads, f.events, nil)
	return f
}

func (f *caseFixture) register(t *testing.T) *models.Case {
	t.Helper()
	f.events.On("Publish", mock.Anything, models.EventCaseRegistered, mock.Anything).Return(nil).Once()
	require.NoError(t, f.svc.Register(context.Background(), f.owner.ID, validCaseInput()))
	all, err := f.cases.ListAll(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, all)
	return &all[0]
}

func TestRegisterCase(t *testing.T) {
	f := newCaseFixture(t)
	c := f.register(t)

	assert.Equal(t, f.owner.ID, c.OwnerID)
	assert.Equal(t, models.CategoryBusiness, c.Category)
	assert.Equal(t, "/uploads/cases/case-proof.pdf", c.ProofURI)
	assert.False(t, c.VerifiedByAdmin)
	assert.Equal(t, models.OppositeNotStarted, c.OppositeStatus)
	assert.Equal(t, models.StatusNotStarted, c.CaseStatus)
	f.events.AssertExpectations(t)
}

func TestRegisterCaseValidationOrder(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RegisterCaseInput)
		kind   apperror.Kind
		detail string
	}{
		{"missing field", func(in *RegisterCaseInput) { in.OppositePartyAddress = "" }, apperror.KindValidation, "All fields are required"},
		{"missing field wins over category", func(in *RegisterCaseInput) { in.OppositePartyName = ""; in.CaseType = "9" }, apperror.KindValidation, "All fields are required"},
		{"category out of range", func(in *RegisterCaseInput) { in.CaseType = "3" }, apperror.KindValidation, "Invalid case type"},
		{"category wins over description", func(in *RegisterCaseInput) { in.CaseType = "x"; in.Description = "short" }, apperror.KindValidation, "Invalid case type"},
		{"short description", func(in *RegisterCaseInput) { in.Description = strings.Repeat("d", 49) }, apperror.KindValidation, "Description must be at least 50 characters"},
		{"description wins over attachment", func(in *RegisterCaseInput) { in.Description = "short"; in.Proof = nil }, apperror.KindValidation, "Description must be at least 50 characters"},
		{"missing proof", func(in *RegisterCaseInput) { in.Proof = nil }, apperror.KindMissingAttachment, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newCaseFixture(t)
			in := validCaseInput()
			tc.mutate(&in)

			err := f.svc.Register(context.Background(), f.owner.ID, in)
			var appErr *apperror.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tc.kind, appErr.Kind)
			assert.Equal(t, tc.detail, appErr.Detail)

			all, _ := f.cases.ListAll(context.Background())
			assert.Empty(t, all)
			assert.Empty(t, f.uploads.saved)
			f.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRegisterCaseDiscardsUploadOnStoreFailure(t *testing.T) {
	uploads := &fakeUploader{}
	failing := failingCaseStore{err: errors.New("connection refused")}
	svc := NewCases(failing, store.NewMemoryIdentityStore(), uploads, nil, nil)

	err := svc.Register(context.Background(), "65f0c0ffee00000000000001", validCaseInput())
	require.True(t, apperror.Is(err, apperror.KindInternal))
	assert.NotContains(t, err.(*apperror.Error).Message, "connection refused")
	assert.Equal(t, uploads.saved, uploads.discarded)
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	f := newCaseFixture(t)
	c := f.register(t)

	f.events.On("Publish", mock.Anything, models.EventCaseUpdated, mock.Anything).Return(errors.New("broker down")).Once()
	require.NoError(t, f.svc.SetVerification(context.Background(), "admin", c.ID, true))

	got, err := f.cases.FindByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, got.VerifiedByAdmin)
}

func TestAdminUpdates(t *testing.T) {
	ctx := context.Background()
	f := newCaseFixture(t)
	c := f.register(t)
	f.events.On("Publish", mock.Anything, models.EventCaseUpdated, mock.Anything).Return(nil)

	require.NoError(t, f.svc.SetOppositeStatus(ctx, "admin", c.ID, models.OppositeAccepted))
	require.NoError(t, f.svc.SetCaseStatus(ctx, "admin", c.ID, models.StatusResolved))

	got, err := f.cases.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OppositeAccepted, got.OppositeStatus)
	assert.Equal(t, models.StatusResolved, got.CaseStatus)

	// regression is permitted
	require.NoError(t, f.svc.SetCaseStatus(ctx, "admin", c.ID, models.StatusNotStarted))
	got, err = f.cases.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotStarted, got.CaseStatus)

	err = f.svc.SetCaseStatus(ctx, "admin", c.ID, models.Status(5))
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	err = f.svc.SetCaseStatus(ctx, "admin", "65f0c0ffee00000000000001", models.StatusPanelCreated)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	f.events.AssertCalled(t, "Publish", mock.Anything, models.EventCaseUpdated, mock.MatchedBy(func(e models.CaseEvent) bool {
		return e.CaseID == c.ID && e.Field == "caseStatus" && e.ActorID == "admin"
	}))
}

func TestSetCaseStatusIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newCaseFixture(t)
	c := f.register(t)
	f.events.On("Publish", mock.Anything, models.EventCaseUpdated, mock.Anything).Return(nil)

	require.NoError(t, f.svc.SetCaseStatus(ctx, "admin", c.ID, models.StatusMediationInProgress))
	once, err := f.cases.FindByID(ctx, c.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.SetCaseStatus(ctx, "admin", c.ID, models.StatusMediationInProgress))
	twice, err := f.cases.FindByID(ctx, c.ID)
	require.NoError(t, err)

	assert.Equal(t, once.CaseStatus, twice.CaseStatus)
	assert.Equal(t, once.OppositeStatus, twice.OppositeStatus)
	assert.Equal(t, once.VerifiedByAdmin, twice.VerifiedByAdmin)
}

func TestListAllJoinsOwner(t *testing.T) {
	f := newCaseFixture(t)
	f.register(t)

	views, err := f.svc.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, f.owner.ID, views[0].Owner.ID)
	assert.Equal(t, "Alice", views[0].Owner.UserName)
	assert.Equal(t, "Springfield", views[0].Owner.City)
}

func TestListAllInternalError(t *testing.T) {
	svc := NewCases(failingCaseStore{err: errors.New("timeout")}, store.NewMemoryIdentityStore(), &fakeUploader{}, nil, nil)
	_, err := svc.ListAll(context.Background())
	assert.True(t, apperror.Is(err, apperror.KindInternal))
}

func TestListForOwnerScopesToCaller(t *testing.T) {
	ctx := context.Background()
	f := newCaseFixture(t)
	f.register(t)

	bob := &models.Identity{UserName: "Bob", Email: "bob@example.com"}
	require.NoError(t, f.identities.Create(ctx, bob))

	mine, err := f.svc.ListForOwner(ctx, middleware.Principal{ID: f.owner.ID}, "")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	bobs, err := f.svc.ListForOwner(ctx, middleware.Principal{ID: bob.ID}, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, bobs)

	_, err = f.svc.ListForOwner(ctx, middleware.Principal{ID: bob.ID}, f.owner.ID)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	asAdmin, err := f.svc.ListForOwner(ctx, middleware.Principal{ID: bob.ID, Admin: true}, f.owner.ID)
	require.NoError(t, err)
	assert.Len(t, asAdmin, 1)
}
