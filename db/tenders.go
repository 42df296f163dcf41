package db

import (
	"context"
	"database/sql"
	"math"
	"strings"
	"time"

	"tenderportal/models"

	"github.com/google/uuid"
)

// TenderFilter narrows a tender listing. Nil/empty fields do not filter.
type TenderFilter struct {
	Category *models.TenderCategory
	State    string
	Status   *models.TenderStatus
	MinValue *float64
	MaxValue *float64
	Search   string
	Page     int
	Limit    int
}

// Offset saturates at math.MaxInt instead of overflowing.
func (f TenderFilter) Offset() int {
	if f.Page < 1 || f.Limit < 1 {
		return 0
	}
	if f.Page-1 > math.MaxInt/f.Limit {
		return math.MaxInt
	}
	return (f.Page - 1) * f.Limit
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// buildTenderWhere renders f as a WHERE clause with ? placeholders.
// Every condition is AND-ed; min/max share one range condition and the
// free-text search is a single OR group.
func buildTenderWhere(f TenderFilter) (string, []any) {
	var conds []string
	var args []any

	if f.Category != nil {
		conds = append(conds, "t.category = ?")
		args = append(args, *f.Category)
	}
	if f.State != "" {
		conds = append(conds, "t.state = ?")
		args = append(args, f.State)
	}
	if f.Status != nil {
		conds = append(conds, "t.status = ?")
		args = append(args, *f.Status)
	}
	switch {
	case f.MinValue != nil && f.MaxValue != nil:
		conds = append(conds, "t.estimated_value BETWEEN ? AND ?")
		args = append(args, *f.MinValue, *f.MaxValue)
	case f.MinValue != nil:
		conds = append(conds, "t.estimated_value >= ?")
		args = append(args, *f.MinValue)
	case f.MaxValue != nil:
		conds = append(conds, "t.estimated_value <= ?")
		args = append(args, *f.MaxValue)
	}
	if f.Search != "" {
		p := containsPattern(f.Search)
		conds = append(conds, "(t.title ILIKE ? OR t.description ILIKE ? OR t.department ILIKE ?)")
		args = append(args, p, p, p)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

const tenderViewSelect = `
        SELECT t.*,
            (SELECT COUNT(1) FROM applications a WHERE a.tender_id = t.id) AS application_count,
            ma.id AS my_application_id,
            ma.status AS my_application_status
        FROM tenders t
        LEFT JOIN applications ma ON ma.tender_id = t.id AND ma.contractor_id = ?`

// ListTenders returns one page of tenders matching f, newest first, and the
// total number of matches. Both reads share a repeatable-read snapshot so
// the page count agrees with the page. contractorID may be nil (admins).
func (s *Storage) ListTenders(ctx context.Context, f TenderFilter, contractorID *uuid.UUID) ([]models.TenderView, int, error) {
	where, whereArgs := buildTenderWhere(f)

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback()

	listQuery := tenderViewSelect + where + " ORDER BY t.published_date DESC, t.id ASC LIMIT ? OFFSET ?"
	listArgs := make([]any, 0, len(whereArgs)+3)
	listArgs = append(listArgs, contractorID)
	listArgs = append(listArgs, whereArgs...)
	listArgs = append(listArgs, f.Limit, f.Offset())

	tenders := []models.TenderView{}
	if err := tx.SelectContext(ctx, &tenders, tx.Rebind(listQuery), listArgs...); err != nil {
		return nil, 0, err
	}

	var total int
	countQuery := "SELECT COUNT(1) FROM tenders t" + where
	if err := tx.GetContext(ctx, &total, tx.Rebind(countQuery), whereArgs...); err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, err
	}
	for i := range tenders {
		tenders[i].Resolve()
	}
	return tenders, total, nil
}

func (s *Storage) GetTenderView(ctx context.Context, id uuid.UUID, contractorID *uuid.UUID) (*models.TenderView, error) {
	v := &models.TenderView{}
	query := s.db.Rebind(tenderViewSelect + " WHERE t.id = ?")
	if err := s.db.GetContext(ctx, v, query, contractorID, id); err != nil {
		return nil, translate(err)
	}
	v.Resolve()
	return v, nil
}

func (s *Storage) GetTender(ctx context.Context, id uuid.UUID) (*models.Tender, error) {
	t := &models.Tender{}
	query := `SELECT * FROM tenders WHERE id = $1`
	if err := s.db.GetContext(ctx, t, query, id); err != nil {
		return nil, translate(err)
	}
	return t, nil
}

// CreateTender inserts t. A clash on tender_number comes back as ErrDuplicate
// so the caller can draw a fresh number.
func (s *Storage) CreateTender(ctx context.Context, t *models.Tender) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := s.now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	if t.PublishedDate.IsZero() {
		t.PublishedDate = now
	}

	query := `
        INSERT INTO tenders
            (id, tender_number, title, description, department, category, service_type,
             estimated_value, earnest_money, tender_fee, location, state, district,
             last_date_submission, opening_date, validity_period, work_completion_time,
             eligibility_criteria, technical_specs, evaluation_criteria,
             contact_person, contact_email, contact_phone, status, published_date,
             created_by, created_at, updated_at)
        VALUES
            (:id, :tender_number, :title, :description, :department, :category, :service_type,
             :estimated_value, :earnest_money, :tender_fee, :location, :state, :district,
             :last_date_submission, :opening_date, :validity_period, :work_completion_time,
             :eligibility_criteria, :technical_specs, :evaluation_criteria,
             :contact_person, :contact_email, :contact_phone, :status, :published_date,
             :created_by, :created_at, :updated_at)`
	_, err := s.db.NamedExecContext(ctx, query, t)
	return translate(err)
}

func (s *Storage) UpdateTenderStatus(ctx context.Context, id uuid.UUID, status models.TenderStatus) error {
	query := `UPDATE tenders SET status = $1, updated_at = $2 WHERE id = $3`
	res, err := s.db.ExecContext(ctx, query, status, s.now().UTC(), id)
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

// CloseExpiredTenders closes active tenders whose submission deadline is before now.
func (s *Storage) CloseExpiredTenders(ctx context.Context, now time.Time) (int64, error) {
	query := `
        UPDATE tenders
        SET status = $1, updated_at = $2
        WHERE status = $3 AND last_date_submission < $2`
	res, err := s.db.ExecContext(ctx, query, models.TenderClosed, now.UTC(), models.TenderActive)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
