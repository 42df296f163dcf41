package auth

import (
	"context"
	"errors"
	"fmt"
	"log"

	"tenderportal/db"
	"tenderportal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrBadCredentials = errors.New("invalid email or password")

// IdentityProvider resolves login credentials to an identity.
type IdentityProvider interface {
	Authenticate(ctx context.Context, email, password string) (*Identity, error)
}

// UserStore is the slice of storage the database provider needs.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetContractorByUserID(ctx context.Context, userID uuid.UUID) (*models.Contractor, error)
	CreateUser(ctx context.Context, u *models.User) error
}

// DatabaseProvider checks bcrypt hashes stored in the users table.
type DatabaseProvider struct {
	store UserStore
}

func NewDatabaseProvider(store UserStore) *DatabaseProvider {
	return &DatabaseProvider{store: store}
}

func (p *DatabaseProvider) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	u, err := p.store.GetUserByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !CheckPassword(u.PasswordHash, password) {
		return nil, ErrBadCredentials
	}
	return ResolveIdentity(ctx, p.store, u)
}

// ResolveIdentity builds the identity of u, attaching its contractor profile if any.
func ResolveIdentity(ctx context.Context, store UserStore, u *models.User) (*Identity, error) {
	id := &Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
	if u.Role != models.RoleContractor {
		return id, nil
	}
	c, err := store.GetContractorByUserID(ctx, u.ID)
	switch {
	case err == nil:
		id.ContractorID = &c.ID
	case errors.Is(err, db.ErrNotFound):
	default:
		return nil, fmt.Errorf("lookup contractor: %w", err)
	}
	return id, nil
}

func HashPassword(password string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// EnsureAdmin creates the configured administrator unless a user with that
// email already exists.
func EnsureAdmin(ctx context.Context, store UserStore, email, password, firstName, lastName string, cost int) error {
	if email == "" {
		return nil
	}
	_, err := store.GetUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := HashPassword(password, cost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	u := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         models.RoleAdmin,
		IsVerified:   true,
	}
	if err := store.CreateUser(ctx, u); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Printf("Created admin user %s", email)
	return nil
}
