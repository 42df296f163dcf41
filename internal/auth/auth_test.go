package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tenderportal/db"
	"tenderportal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUserStore) GetContractorByUserID(ctx context.Context, userID uuid.UUID) (*models.Contractor, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(*models.Contractor)
	return c, args.Error(1)
}

func (m *mockUserStore) CreateUser(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	cid := uuid.New()
	in := Identity{UserID: uuid.New(), Email: "a@b.in", Role: models.RoleContractor, ContractorID: &cid}

	raw, exp, err := issuer.Issue(in)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	out, err := issuer.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, in.UserID, out.UserID)
	require.Equal(t, in.Role, out.Role)
	require.Equal(t, cid, *out.ContractorID)
	require.True(t, out.IsContractor())
	require.False(t, out.IsAdmin())
}

func TestTokenRejectsExpiredAndForeign(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	raw, _, err := issuer.Issue(Identity{UserID: uuid.New(), Role: models.RoleAdmin})
	require.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = issuer.Parse(raw)
	require.ErrorIs(t, err, ErrInvalidToken)

	other := NewTokenIssuer("other", time.Minute)
	_, err = other.Parse(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticateMiddleware(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	raw, _, err := issuer.Issue(Identity{UserID: uuid.New(), Role: models.RoleAdmin})
	require.NoError(t, err)

	var seen *Identity
	h := Authenticate(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tenders", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, seen)
	require.True(t, seen.IsAdmin())

	for _, header := range []string{"", "Bearer ", "Bearer garbage", "Basic abc"} {
		seen = &Identity{}
		req := httptest.NewRequest(http.MethodGet, "/api/tenders", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		h.ServeHTTP(httptest.NewRecorder(), req)
		require.Nil(t, seen, header)
	}
}

func TestDatabaseProviderAuthenticate(t *testing.T) {
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{ID: uuid.New(), Email: "a@b.in", PasswordHash: hash, Role: models.RoleContractor}
	contractor := &models.Contractor{ID: uuid.New(), UserID: user.ID}

	store := &mockUserStore{}
	store.On("GetUserByEmail", mock.Anything, "a@b.in").Return(user, nil)
	store.On("GetUserByEmail", mock.Anything, "ghost@b.in").Return(nil, db.ErrNotFound)
	store.On("GetContractorByUserID", mock.Anything, user.ID).Return(contractor, nil)

	p := NewDatabaseProvider(store)

	id, err := p.Authenticate(context.Background(), "a@b.in", "correct horse")
	require.NoError(t, err)
	require.Equal(t, contractor.ID, *id.ContractorID)

	_, err = p.Authenticate(context.Background(), "a@b.in", "wrong")
	require.ErrorIs(t, err, ErrBadCredentials)

	_, err = p.Authenticate(context.Background(), "ghost@b.in", "x")
	require.ErrorIs(t, err, ErrBadCredentials)
}

func TestEnsureAdmin(t *testing.T) {
	t.Run("creates missing admin", func(t *testing.T) {
		store := &mockUserStore{}
		store.On("GetUserByEmail", mock.Anything, "root@gov.in").Return(nil, db.ErrNotFound)
		store.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			return u.Role == models.RoleAdmin && CheckPassword(u.PasswordHash, "pw")
		})).Return(nil)

		err := EnsureAdmin(context.Background(), store, "root@gov.in", "pw", "Portal", "Admin", bcrypt.MinCost)
		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("keeps existing admin", func(t *testing.T) {
		store := &mockUserStore{}
		store.On("GetUserByEmail", mock.Anything, "root@gov.in").Return(&models.User{}, nil)

		require.NoError(t, EnsureAdmin(context.Background(), store, "root@gov.in", "pw", "P", "A", bcrypt.MinCost))
		store.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("lookup failure", func(t *testing.T) {
		store := &mockUserStore{}
		store.On("GetUserByEmail", mock.Anything, "root@gov.in").Return(nil, errors.New("down"))

		require.Error(t, EnsureAdmin(context.Background(), store, "root@gov.in", "pw", "P", "A", bcrypt.MinCost))
	})
}
