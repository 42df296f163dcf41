package handlers

import (
	"context"
	"time"

	"tenderportal/db"
	"tenderportal/models"

	"github.com/google/uuid"
)

type StorageInterface interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, u *models.User) error
	CreateContractorAccount(ctx context.Context, u *models.User, c *models.Contractor) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetContractorByUserID(ctx context.Context, userID uuid.UUID) (*models.Contractor, error)
	GetContractor(ctx context.Context, id uuid.UUID) (*models.Contractor, error)
	ListContractors(ctx context.Context) ([]models.Contractor, error)

	ListTenders(ctx context.Context, f db.TenderFilter, contractorID *uuid.UUID) ([]models.TenderView, int, error)
	GetTenderView(ctx context.Context, id uuid.UUID, contractorID *uuid.UUID) (*models.TenderView, error)
	GetTender(ctx context.Context, id uuid.UUID) (*models.Tender, error)
	CreateTender(ctx context.Context, t *models.Tender) error
	UpdateTenderStatus(ctx context.Context, id uuid.UUID, status models.TenderStatus) error

	CreateApplication(ctx context.Context, a *models.Application) error
	GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error)
	ListContractorApplications(ctx context.Context, contractorID uuid.UUID, status *models.ApplicationStatus, limit, offset int) ([]models.ApplicationView, int, error)
	UpdateApplicationStatus(ctx context.Context, id uuid.UUID, status models.ApplicationStatus, submittedAt *time.Time) error

	CreateNotifications(ctx context.Context, ns []models.Notification) (int64, error)
	ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error)

	CreateTenderDocument(ctx context.Context, d *models.TenderDocument) error
	ListTenderDocuments(ctx context.Context, tenderID uuid.UUID) ([]models.TenderDocument, error)
}

var _ StorageInterface = (*db.Storage)(nil)
