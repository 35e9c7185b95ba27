package models

import (
	"fmt"
	"time"
)

// Role is encoded as 0 (standard) / 1 (admin) on the wire and in storage.
type Role int

const (
	RoleStandard Role = 0
	RoleAdmin    Role = 1
)

func (r Role) Valid() bool {
	switch r {
	case RoleStandard, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	switch r {
	case RoleStandard:
		return "standard"
	case RoleAdmin:
		return "admin"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Identity is a registered person. PasswordHash never leaves the server.
type Identity struct {
	ID           string    `json:"_id"`
	UserName     string    `json:"userName"`
	Age          int       `json:"age"`
	Gender       string    `json:"gender"`
	Street       string    `json:"street"`
	City         string    `json:"city"`
	ZipCode      string    `json:"zipCode"`
	Email        string    `json:"email"`
	PhoneNumber  string    `json:"phoneNumber"`
	PhotoURI     string    `json:"photoUri"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (i *Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// Summary is what login returns alongside the token.
type Summary struct {
	ID       string `json:"_id"`
	UserName string `json:"userName"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

func (i *Identity) Summary() Summary {
	return Summary{ID: i.ID, UserName: i.UserName, Email: i.Email, Role: i.Role}
}

// PublicProfile is the owner projection joined into case listings.
type PublicProfile struct {
	ID          string    `json:"_id"`
	UserName    string    `json:"userName,omitempty"`
	Age         int       `json:"age,omitempty"`
	Gender      string    `json:"gender,omitempty"`
	Street      string    `json:"street,omitempty"`
	City        string    `json:"city,omitempty"`
	ZipCode     string    `json:"zipCode,omitempty"`
	Email       string    `json:"email,omitempty"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	PhotoURI    string    `json:"photoUri,omitempty"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

func (i *Identity) PublicProfile() PublicProfile {
	return PublicProfile{
		ID:          i.ID,
		UserName:    i.UserName,
		Age:         i.Age,
		Gender:      i.Gender,
		Street:      i.Street,
		City:        i.City,
		ZipCode:     i.ZipCode,
		Email:       i.Email,
		PhoneNumber: i.PhoneNumber,
		PhotoURI:    i.PhotoURI,
		Role:        i.Role,
		CreatedAt:   i.CreatedAt,
	}
}
