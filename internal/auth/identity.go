// Package auth issues and checks bearer tokens and verifies credentials.
package auth

import (
	"context"

	"tenderportal/models"

	"github.com/google/uuid"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID       uuid.UUID
	Email        string
	Role         models.Role
	ContractorID *uuid.UUID
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == models.RoleAdmin
}

func (i *Identity) IsContractor() bool {
	return i != nil && i.Role == models.RoleContractor && i.ContractorID != nil
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns nil for anonymous requests.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(ctxKey{}).(*Identity)
	return id
}
