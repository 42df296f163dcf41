package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tenderportal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

const uniqueViolation = "23505"

// Unique constraints callers react to.
const (
	ConstraintUserEmail            = "users_email_key"
	ConstraintTenderNumber         = "tenders_tender_number_key"
	ConstraintProposalNumber       = "applications_proposal_number_key"
	ConstraintOneProposalPerTender = "applications_tender_contractor_key"
)

// DuplicateError is a unique violation. It matches ErrDuplicate with errors.Is.
type DuplicateError struct {
	Constraint string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%v: %s", ErrDuplicate, e.Constraint)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// IsDuplicate reports whether err violated the named unique constraint.
func IsDuplicate(err error, constraint string) bool {
	var dup *DuplicateError
	return errors.As(err, &dup) && dup.Constraint == constraint
}

type Storage struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db, now: time.Now}
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// translate maps driver errors onto ErrNotFound / ErrDuplicate.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return &DuplicateError{Constraint: pqErr.Constraint}
	}
	return err
}

// User / Contractor

const insertUser = `
        INSERT INTO users
            (id, email, password_hash, first_name, last_name, phone, role, is_verified, created_at, updated_at)
        VALUES
            (:id, :email, :password_hash, :first_name, :last_name, :phone, :role, :is_verified, :created_at, :updated_at)`

const insertContractor = `
        INSERT INTO contractors
            (id, user_id, company_name, business_type, gst_number, pan_number, address, city, state, pincode, created_at, updated_at)
        VALUES
            (:id, :user_id, :company_name, :business_type, :gst_number, :pan_number, :address, :city, :state, :pincode, :created_at, :updated_at)`

func (s *Storage) stampUser(u *models.User) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := s.now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
}

func (s *Storage) CreateUser(ctx context.Context, u *models.User) error {
	s.stampUser(u)
	_, err := s.db.NamedExecContext(ctx, insertUser, u)
	return translate(err)
}

// CreateContractorAccount inserts a user and its contractor profile in one
// transaction. Either both rows exist afterwards or neither does.
func (s *Storage) CreateContractorAccount(ctx context.Context, u *models.User, c *models.Contractor) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	s.stampUser(u)
	if _, err := tx.NamedExecContext(ctx, insertUser, u); err != nil {
		return translate(err)
	}

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.UserID = u.ID
	c.CreatedAt, c.UpdatedAt = u.CreatedAt, u.UpdatedAt
	if _, err := tx.NamedExecContext(ctx, insertContractor, c); err != nil {
		return translate(err)
	}

	return tx.Commit()
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u := &models.User{}
	query := `SELECT * FROM users WHERE lower(email) = lower($1)`
	if err := s.db.GetContext(ctx, u, query, email); err != nil {
		return nil, translate(err)
	}
	return u, nil
}

func (s *Storage) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u := &models.User{}
	query := `SELECT * FROM users WHERE id = $1`
	if err := s.db.GetContext(ctx, u, query, id); err != nil {
		return nil, translate(err)
	}
	return u, nil
}

func (s *Storage) GetContractorByUserID(ctx context.Context, userID uuid.UUID) (*models.Contractor, error) {
	c := &models.Contractor{}
	query := `SELECT * FROM contractors WHERE user_id = $1`
	if err := s.db.GetContext(ctx, c, query, userID); err != nil {
		return nil, translate(err)
	}
	return c, nil
}

func (s *Storage) GetContractor(ctx context.Context, id uuid.UUID) (*models.Contractor, error) {
	c := &models.Contractor{}
	query := `SELECT * FROM contractors WHERE id = $1`
	if err := s.db.GetContext(ctx, c, query, id); err != nil {
		return nil, translate(err)
	}
	return c, nil
}

// ListContractors returns every contractor profile, oldest first.
func (s *Storage) ListContractors(ctx context.Context) ([]models.Contractor, error) {
	contractors := []models.Contractor{}
	query := `SELECT * FROM contractors ORDER BY created_at ASC`
	if err := s.db.SelectContext(ctx, &contractors, query); err != nil {
		return nil, err
	}
	return contractors, nil
}
