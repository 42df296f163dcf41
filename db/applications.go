package db

import (
	"context"
	"time"

	"tenderportal/models"

	"github.com/google/uuid"
)

// Application (proposal)

func (s *Storage) CreateApplication(ctx context.Context, a *models.Application) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := s.now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now

	query := `
        INSERT INTO applications
            (id, proposal_number, tender_id, contractor_id, title, total_amount, language,
             technical_proposal, financial_proposal, status, submitted_at, created_at, updated_at)
        VALUES
            (:id, :proposal_number, :tender_id, :contractor_id, :title, :total_amount, :language,
             :technical_proposal, :financial_proposal, :status, :submitted_at, :created_at, :updated_at)`
	_, err := s.db.NamedExecContext(ctx, query, a)
	return translate(err)
}

func (s *Storage) GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	a := &models.Application{}
	query := `SELECT * FROM applications WHERE id = $1`
	if err := s.db.GetContext(ctx, a, query, id); err != nil {
		return nil, translate(err)
	}
	return a, nil
}

// ListContractorApplications is the proposal list of one contractor, newest first.
func (s *Storage) ListContractorApplications(ctx context.Context, contractorID uuid.UUID, status *models.ApplicationStatus, limit, offset int) ([]models.ApplicationView, int, error) {
	where := " WHERE a.contractor_id = ?"
	args := []any{contractorID}
	if status != nil {
		where += " AND a.status = ?"
		args = append(args, *status)
	}

	listQuery := `
        SELECT a.*,
            t.id AS "tender.id",
            t.title AS "tender.title",
            t.department AS "tender.department",
            t.estimated_value AS "tender.estimated_value",
            t.last_date_submission AS "tender.last_date_submission"
        FROM applications a
        JOIN tenders t ON t.id = a.tender_id` + where + `
        ORDER BY a.created_at DESC
        LIMIT ? OFFSET ?`

	views := []models.ApplicationView{}
	listArgs := append(append([]any{}, args...), limit, offset)
	if err := s.db.SelectContext(ctx, &views, s.db.Rebind(listQuery), listArgs...); err != nil {
		return nil, 0, err
	}

	var total int
	countQuery := "SELECT COUNT(1) FROM applications a" + where
	if err := s.db.GetContext(ctx, &total, s.db.Rebind(countQuery), args...); err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (s *Storage) UpdateApplicationStatus(ctx context.Context, id uuid.UUID, status models.ApplicationStatus, submittedAt *time.Time) error {
	query := `
        UPDATE applications
        SET status = $1, submitted_at = COALESCE($2, submitted_at), updated_at = $3
        WHERE id = $4`
	res, err := s.db.ExecContext(ctx, query, status, submittedAt, s.now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
