package auth

import (
	"errors"
	"fmt"
	"time"

	"tenderportal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

type claims struct {
	Email        string      `json:"email"`
	Role         models.Role `json:"role"`
	ContractorID string      `json:"contractor_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for id and its expiry.
func (t *TokenIssuer) Issue(id Identity) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)

	c := claims{
		Email: id.Email,
		Role:  id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	if id.ContractorID != nil {
		c.ContractorID = id.ContractorID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

func (t *TokenIssuer) Parse(raw string) (*Identity, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(raw, c, func(tok *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	id := &Identity{UserID: userID, Email: c.Email, Role: c.Role}
	if c.ContractorID != "" {
		cid, err := uuid.Parse(c.ContractorID)
		if err != nil {
			return nil, fmt.Errorf("%w: bad contractor id", ErrInvalidToken)
		}
		id.ContractorID = &cid
	}
	return id, nil
}
