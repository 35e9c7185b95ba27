package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"resolveit/pkg/apperror"
	"resolveit/pkg/middleware"
	"resolveit/pkg/security"
	"resolveit/pkg/storage"
	"resolveit/pkg/validation"
	"resolveit/services/case-service/models"
	"resolveit/services/case-service/store"
)

// RegisterIdentityInput is the identity registration form. Age arrives as
// text from the multipart body and is parsed after the presence check.
type RegisterIdentityInput struct {
	UserName             string `validate:"required"`
	Age                  string `validate:"required"`
	Gender               string `validate:"required"`
	Street               string `validate:"required"`
	City                 string `validate:"required"`
	ZipCode              string `validate:"required"`
	Email                string `validate:"required"`
	PhoneNumber          string `validate:"required"`
	Password             string `validate:"required"`
	PasswordConfirmation string `validate:"required"`
	Photo                *multipart.FileHeader
}

// Authenticator registers identities, checks credentials and resolves tokens.
type Authenticator struct {
	identities store.IdentityStore
	tokens     *security.TokenIssuer
	uploads    Uploader
	metrics    *Metrics
}

func NewAuthenticator(identities store.IdentityStore, tokens *security.TokenIssuer, uploads Uploader, metrics *Metrics) *Authenticator {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Authenticator{identities: identities, tokens: tokens, uploads: uploads, metrics: metrics}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register validates the form in a fixed order so the first failing
// condition is always the one reported, then stores the photo and the
// identity. New identities are always standard users.
func (a *Authenticator) Register(ctx context.Context, in RegisterIdentityInput) (err error) {
	defer func() { a.metrics.registrations.WithLabelValues(outcome(err)).Inc() }()

	if validation.MissingRequired(in) {
		return apperror.Validation("All fields are required")
	}
	if in.Password != in.PasswordConfirmation {
		return apperror.Validation("Passwords do not match")
	}
	age, ok := validation.IntInRange(in.Age, 18, 150)
	if !ok {
		return apperror.Validation("Age must be between 18 and 150")
	}
	email := normalizeEmail(in.Email)
	if !validation.IsEmail(email) {
		return apperror.Validation("Invalid email format")
	}
	if !validation.IsE164(in.PhoneNumber) {
		return apperror.Validation("Phone Number Invalid")
	}
	if !validation.StrongPassword(in.Password) {
		return apperror.Validation("Password must include uppercase, lowercase, number, and special character")
	}

	if _, err := a.identities.FindByEmail(ctx, email); err == nil {
		return apperror.New(apperror.KindConflict, "This email is already registered")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return apperror.Internal("Error in registration, please retry", err)
	}

	if in.Photo == nil {
		return apperror.New(apperror.KindMissingAttachment, "Photo is required")
	}
	photoURI, err := a.uploads.Save(ctx, storage.PhotoPolicy, in.Photo)
	if err != nil {
		return uploadError(err, "Error in registration, please retry")
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		a.discard(ctx, photoURI)
		return apperror.Internal("Error in registration, please retry", err)
	}

	identity := &models.Identity{
		UserName:     strings.TrimSpace(in.UserName),
		Age:          age,
		Gender:       in.Gender,
		Street:       in.Street,
		City:         in.City,
		ZipCode:      in.ZipCode,
		Email:        email,
		PhoneNumber:  in.PhoneNumber,
		PhotoURI:     photoURI,
		PasswordHash: hash,
		Role:         models.RoleStandard,
	}
	if err := a.identities.Create(ctx, identity); err != nil {
		a.discard(ctx, photoURI)
		// lost a race with a concurrent registration for the same email
		if errors.Is(err, apperror.ErrDuplicate) {
			return apperror.New(apperror.KindConflict, "This email is already registered")
		}
		return apperror.Internal("Error in registration, please retry", err)
	}

	middleware.LogInfo(ctx, "identity registered", "identity_id", identity.ID)
	return nil
}

func (a *Authenticator) discard(ctx context.Context, ref string) {
	if err := a.uploads.Discard(ctx, ref); err != nil {
		middleware.LogWarn(ctx, "failed to remove orphaned upload", "ref", ref, "error", err.Error())
	}
}

// Authenticate checks credentials and issues a bearer token bound to the
// identity id. The password is never echoed back.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (summary models.Summary, token string, err error) {
	defer func() { a.metrics.logins.WithLabelValues(outcome(err)).Inc() }()

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return models.Summary{}, "", apperror.Validation("Email and password are required")
	}

	identity, err := a.identities.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return models.Summary{}, "", apperror.New(apperror.KindNotFound, "User not found")
		}
		return models.Summary{}, "", apperror.Internal("Error in login", err)
	}

	if !security.CheckPasswordHash(password, identity.PasswordHash) {
		return models.Summary{}, "", apperror.New(apperror.KindInvalidCredential, "Invalid Password")
	}

	token, err = a.tokens.Issue(identity.ID)
	if err != nil {
		return models.Summary{}, "", apperror.Internal("Error in login", err)
	}
	return identity.Summary(), token, nil
}

// Verify resolves a bearer token to a live identity. A token whose identity
// no longer exists is unauthorized.
func (a *Authenticator) Verify(ctx context.Context, token string) (*models.Identity, error) {
	id, err := a.tokens.Parse(token)
	if err != nil {
		return nil, apperror.New(apperror.KindUnauthorized, "Unauthorized")
	}

	identity, err := a.identities.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.New(apperror.KindUnauthorized, "Unauthorized")
		}
		return nil, apperror.Internal("Error in authentication", err)
	}
	return identity, nil
}

// Provision creates an administrator identity unless the email is already
// registered. It reports whether an identity was created.
func (a *Authenticator) Provision(ctx context.Context, admin models.Identity, password string) (bool, error) {
	admin.Email = normalizeEmail(admin.Email)
	if !validation.IsEmail(admin.Email) {
		return false, apperror.Validation("Invalid email format")
	}
	if password == "" {
		return false, apperror.Validation("Password is required")
	}

	if _, err := a.identities.FindByEmail(ctx, admin.Email); err == nil {
		return false, nil
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return false, apperror.Internal("Error in admin provisioning", err)
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return false, apperror.Internal("Error in admin provisioning", err)
	}
	admin.PasswordHash = hash
	admin.Role = models.RoleAdmin
	if err := a.identities.Create(ctx, &admin); err != nil {
		if errors.Is(err, apperror.ErrDuplicate) {
			return false, nil
		}
		return false, apperror.Internal("Error in admin provisioning", err)
	}
	return true, nil
}
