package handlers

import (
	"context"

	"resolveit/pkg/middleware"
	"resolveit/services/case-service/service"
)

// Verifier adapts the Authenticator to the access policy's Verifier.
type Verifier struct {
	auth *service.Authenticator
}

func NewVerifier(auth *service.Authenticator) *Verifier {
	return &Verifier{auth: auth}
}

func (v *Verifier) Verify(ctx context.Context, token string) (middleware.Principal, error) {
	identity, err := v.auth.Verify(ctx, token)
	if err != nil {
		return middleware.Principal{}, err
	}
	return middleware.Principal{ID: identity.ID, Admin: identity.IsAdmin()}, nil
}
