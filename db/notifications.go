package db

import (
	"context"

	"tenderportal/models"

	"github.com/google/uuid"
)

// notificationBatch keeps each insert under Postgres' 65535 bind parameters
// (8 per row).
var notificationBatch = 65535 / 8

const insertNotifications = `
        INSERT INTO notifications
            (id, user_id, tender_id, type, title, message, is_read, created_at)
        VALUES
            (:id, :user_id, :tender_id, :type, :title, :message, :is_read, :created_at)
        ON CONFLICT (user_id, tender_id) WHERE type = 'TENDER_MATCH' DO NOTHING`

// CreateNotifications bulk-inserts ns in one transaction, one multi-row
// statement per batch. A TENDER_MATCH row that already exists for the same
// user and tender is skipped, so a repeated fan-out of one tender does not
// duplicate anything. Returns the number of rows inserted.
func (s *Storage) CreateNotifications(ctx context.Context, ns []models.Notification) (int64, error) {
	if len(ns) == 0 {
		return 0, nil
	}
	now := s.now().UTC()
	for i := range ns {
		if ns[i].ID == uuid.Nil {
			ns[i].ID = uuid.New()
		}
		ns[i].CreatedAt = now
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var created int64
	for start := 0; start < len(ns); start += notificationBatch {
		end := min(start+notificationBatch, len(ns))
		res, err := tx.NamedExecContext(ctx, insertNotifications, ns[start:end])
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		created += n
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return created, nil
}

func (s *Storage) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	query := `SELECT * FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	ns := []models.Notification{}
	if err := s.db.SelectContext(ctx, &ns, query, userID, limit, offset); err != nil {
		return nil, err
	}
	return ns, nil
}

// MarkNotificationRead only touches notifications owned by userID.
func (s *Storage) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`
	res, err := s.db.ExecContext(ctx, query, id, userID)
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

func (s *Storage) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`
	res, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Tender documents

func (s *Storage) CreateTenderDocument(ctx context.Context, d *models.TenderDocument) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = s.now().UTC()
	query := `
        INSERT INTO tender_documents
            (id, tender_id, name, object_key, content_type, size, uploaded_by, created_at)
        VALUES
            (:id, :tender_id, :name, :object_key, :content_type, :size, :uploaded_by, :created_at)`
	_, err := s.db.NamedExecContext(ctx, query, d)
	return translate(err)
}

func (s *Storage) ListTenderDocuments(ctx context.Context, tenderID uuid.UUID) ([]models.TenderDocument, error) {
	docs := []models.TenderDocument{}
	query := `SELECT * FROM tender_documents WHERE tender_id = $1 ORDER BY created_at ASC`
	if err := s.db.SelectContext(ctx, &docs, query, tenderID); err != nil {
		return nil, err
	}
	return docs, nil
}
