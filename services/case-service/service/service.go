// Package service holds the identity and case operations behind the HTTP
// handlers. Every operation returns *apperror.Error on failure.
package service

import (
	"context"
	"errors"
	"mime/multipart"

	"resolveit/pkg/apperror"
	"resolveit/pkg/storage"
)

// Uploader persists attachments and returns their reference.
type Uploader interface {
	Save(ctx context.Context, policy storage.Policy, fh *multipart.FileHeader) (string, error)
	Discard(ctx context.Context, ref string) error
}

// uploadError maps intake rejections onto validation failures; anything else
// is an internal fault.
func uploadError(err error, internalMsg string) error {
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return apperror.Validation("File exceeds the maximum allowed size")
	case errors.Is(err, storage.ErrTypeNotAllowed):
		return apperror.Validation("File type is not allowed")
	default:
		return apperror.Internal(internalMsg, err)
	}
}
