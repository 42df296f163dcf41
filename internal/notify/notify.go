// Package notify creates in-app notifications, either inline or through an
// asynq queue drained by the notify-worker binary.
package notify

import (
	"context"
	"fmt"
	"log"

	"tenderportal/models"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const TenderMatchTitle = "New Tender Match"

// Store is the persistence the notifier needs.
type Store interface {
	GetTender(ctx context.Context, id uuid.UUID) (*models.Tender, error)
	ListContractors(ctx context.Context) ([]models.Contractor, error)
	CreateNotifications(ctx context.Context, ns []models.Notification) (int64, error)
}

type Notifier struct {
	store Store
}

func NewNotifier(store Store) *Notifier {
	return &Notifier{store: store}
}

var printer = message.NewPrinter(language.English)

// FormatAmount groups thousands, e.g. 2500000 -> "2,500,000".
func FormatAmount(v float64) string {
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

func TenderMatchMessage(t *models.Tender) string {
	return fmt.Sprintf("New tender \"%s\" matches your profile. Estimated value: ₹%s", t.Title, FormatAmount(t.EstimatedValue))
}

// FanOut notifies every contractor's user about a newly published tender.
// The tender is re-read so the message reflects what was stored. All rows
// go in one insert; returns how many were written.
func (n *Notifier) FanOut(ctx context.Context, tenderID uuid.UUID) (int64, error) {
	t, err := n.store.GetTender(ctx, tenderID)
	if err != nil {
		return 0, fmt.Errorf("load tender %s: %w", tenderID, err)
	}

	contractors, err := n.store.ListContractors(ctx)
	if err != nil {
		return 0, fmt.Errorf("list contractors: %w", err)
	}
	if len(contractors) == 0 {
		return 0, nil
	}

	msg := TenderMatchMessage(t)
	ns := make([]models.Notification, 0, len(contractors))
	for _, c := range contractors {
		ns = append(ns, models.Notification{
			UserID:   c.UserID,
			TenderID: &t.ID,
			Type:     models.NotificationTenderMatch,
			Title:    TenderMatchTitle,
			Message:  msg,
		})
	}

	created, err := n.store.CreateNotifications(ctx, ns)
	if err != nil {
		return 0, fmt.Errorf("insert notifications: %w", err)
	}
	log.Printf("[notify] tender %s: %d notifications for %d contractors", t.TenderNumber, created, len(contractors))
	return created, nil
}

// ProposalUpdate is the notification sent to a proposal's owner after an
// admin decision.
func ProposalUpdate(userID uuid.UUID, a *models.Application) models.Notification {
	tenderID := a.TenderID
	return models.Notification{
		UserID:   userID,
		TenderID: &tenderID,
		Type:     models.NotificationProposalUpdate,
		Title:    "Proposal Update",
		Message:  fmt.Sprintf("Your proposal %s is now %s.", a.ProposalNumber, a.Status),
	}
}
