package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"

	"resolveit/pkg/apperror"
	"resolveit/services/case-service/models"
)

// identityRow keeps identities in Postgres. IDs stay in ObjectID hex form so
// cases in the document store can reference them unchanged.
type identityRow struct {
	ID          string `gorm:"type:char(24);primaryKey"`
	UserName    string `gorm:"not null"`
	Age         int    `gorm:"not null"`
	Gender      string `gorm:"not null"`
	Street      string `gorm:"not null"`
	City        string `gorm:"not null"`
	ZipCode     string `gorm:"not null"`
	Email       string `gorm:"uniqueIndex;not null"`
	PhoneNumber string `gorm:"not null"`
	PhotoURI    string `gorm:"not null"`
	Password    string `gorm:"not null"`
	Role        int    `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (identityRow) TableName() string { return "identities" }

func (r *identityRow) model() *models.Identity {
	return &models.Identity{
		ID:           r.ID,
		UserName:     r.UserName,
		Age:          r.Age,
		Gender:       r.Gender,
		Street:       r.Street,
		City:         r.City,
		ZipCode:      r.ZipCode,
		Email:        r.Email,
		PhoneNumber:  r.PhoneNumber,
		PhotoURI:     r.PhotoURI,
		PasswordHash: r.Password,
		Role:         models.Role(r.Role),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type GormIdentityStore struct {
	db *gorm.DB
}

func NewGormIdentityStore(db *gorm.DB) *GormIdentityStore {
	return &GormIdentityStore{db: db}
}

func (s *GormIdentityStore) Migrate() error {
	return s.db.AutoMigrate(&identityRow{})
}

func (s *GormIdentityStore) Create(ctx context.Context, identity *models.Identity) error {
	row := identityRow{
		ID:          primitive.NewObjectID().Hex(),
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
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("insert identity: %w", apperror.ErrDuplicate)
		}
		return fmt.Errorf("insert identity: %w", err)
	}

	identity.ID = row.ID
	identity.CreatedAt = row.CreatedAt
	identity.UpdatedAt = row.UpdatedAt
	return nil
}

func (s *GormIdentityStore) FindByID(ctx context.Context, id string) (*models.Identity, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *GormIdentityStore) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	return s.first(ctx, "email = ?", email)
}

func (s *GormIdentityStore) first(ctx context.Context, query string, arg interface{}) (*models.Identity, error) {
	var row identityRow
	if err := s.db.WithContext(ctx).Where(query, arg).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return row.model(), nil
}

func (s *GormIdentityStore) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Identity, error) {
	out := make(map[string]*models.Identity, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []identityRow
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find identities: %w", err)
	}
	for i := range rows {
		out[rows[i].ID] = rows[i].model()
	}
	return out, nil
}
