// Package store persists identities and cases. Every operation touches a
// single document; there are no multi-document transactions.
package store

import (
	"context"

	"resolveit/services/case-service/models"
)

// IdentityStore returns apperror.ErrNotFound for missing identities and
// apperror.ErrDuplicate when an email is already registered.
type IdentityStore interface {
	Create(ctx context.Context, identity *models.Identity) error
	FindByID(ctx context.Context, id string) (*models.Identity, error)
	FindByEmail(ctx context.Context, email string) (*models.Identity, error)
	// FindByIDs returns the identities that exist, keyed by id.
	FindByIDs(ctx context.Context, ids []string) (map[string]*models.Identity, error)
}

// CaseStore returns apperror.ErrNotFound for missing cases. Each setter
// overwrites one field unconditionally and returns the updated case.
type CaseStore interface {
	Create(ctx context.Context, c *models.Case) error
	FindByID(ctx context.Context, id string) (*models.Case, error)
	SetVerified(ctx context.Context, id string, verified bool) (*models.Case, error)
	SetOppositeStatus(ctx context.Context, id string, status models.OppositeStatus) (*models.Case, error)
	SetCaseStatus(ctx context.Context, id string, status models.Status) (*models.Case, error)
	// ListAll and ListByOwner return newest first.
	ListAll(ctx context.Context) ([]models.Case, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Case, error)
}

// FieldCipher encrypts sensitive case fields at rest.
type FieldCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

var (
	_ IdentityStore = (*MongoIdentityStore)(nil)
	_ IdentityStore = (*GormIdentityStore)(nil)
	_ IdentityStore = (*MemoryIdentityStore)(nil)
	_ CaseStore     = (*MongoCaseStore)(nil)
	_ CaseStore     = (*MemoryCaseStore)(nil)
)
