package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/random"
)

type Role string

const (
	RoleContractor Role = "CONTRACTOR"
	RoleAdmin      Role = "ADMIN"
)

type BusinessType string

const (
	SoleProprietorship BusinessType = "SOLE_PROPRIETORSHIP"
	Partnership        BusinessType = "PARTNERSHIP"
	PrivateLimited     BusinessType = "PRIVATE_LIMITED"
	PublicLimited      BusinessType = "PUBLIC_LIMITED"
	LLP                BusinessType = "LLP"
	OPC                BusinessType = "OPC"
)

type TenderCategory string

const (
	CategoryConstruction   TenderCategory = "CONSTRUCTION"
	CategoryConsulting     TenderCategory = "CONSULTING"
	CategorySupply         TenderCategory = "SUPPLY"
	CategoryServices       TenderCategory = "SERVICES"
	CategoryMaintenance    TenderCategory = "MAINTENANCE"
	CategoryITSoftware     TenderCategory = "IT_SOFTWARE"
	CategoryHealthcare     TenderCategory = "HEALTHCARE"
	CategoryEducation      TenderCategory = "EDUCATION"
	CategoryTransportation TenderCategory = "TRANSPORTATION"
	CategoryOther          TenderCategory = "OTHER"
)

func ValidTenderCategory(c TenderCategory) bool {
	switch c {
	case CategoryConstruction, CategoryConsulting, CategorySupply, CategoryServices,
		CategoryMaintenance, CategoryITSoftware, CategoryHealthcare, CategoryEducation,
		CategoryTransportation, CategoryOther:
		return true
	default:
		return false
	}
}

type TenderStatus string

const (
	TenderActive    TenderStatus = "ACTIVE"
	TenderClosed    TenderStatus = "CLOSED"
	TenderCancelled TenderStatus = "CANCELLED"
	TenderAwarded   TenderStatus = "AWARDED"
)

func ValidTenderStatus(s TenderStatus) bool {
	switch s {
	case TenderActive, TenderClosed, TenderCancelled, TenderAwarded:
		return true
	default:
		return false
	}
}

// CanTransitionTender reports whether an admin may move a tender from one status to another.
func CanTransitionTender(from, to TenderStatus) bool {
	switch from {
	case TenderActive:
		return to == TenderClosed || to == TenderCancelled
	case TenderClosed:
		return to == TenderAwarded
	default:
		return false
	}
}

type ApplicationStatus string

const (
	ApplicationDraft       ApplicationStatus = "DRAFT"
	ApplicationSubmitted   ApplicationStatus = "SUBMITTED"
	ApplicationUnderReview ApplicationStatus = "UNDER_REVIEW"
	ApplicationAccepted    ApplicationStatus = "ACCEPTED"
	ApplicationRejected    ApplicationStatus = "REJECTED"
	ApplicationWithdrawn   ApplicationStatus = "WITHDRAWN"
)

func ValidApplicationStatus(s ApplicationStatus) bool {
	switch s {
	case ApplicationDraft, ApplicationSubmitted, ApplicationUnderReview,
		ApplicationAccepted, ApplicationRejected, ApplicationWithdrawn:
		return true
	default:
		return false
	}
}

// CanTransitionApplication encodes who may move a proposal where.
// Owners submit and withdraw; admins review and decide.
func CanTransitionApplication(from, to ApplicationStatus, admin bool) bool {
	if admin {
		switch from {
		case ApplicationSubmitted:
			return to == ApplicationUnderReview
		case ApplicationUnderReview:
			return to == ApplicationAccepted || to == ApplicationRejected
		}
		return false
	}
	switch from {
	case ApplicationDraft:
		return to == ApplicationSubmitted || to == ApplicationWithdrawn
	case ApplicationSubmitted:
		return to == ApplicationWithdrawn
	}
	return false
}

type NotificationType string

const (
	NotificationTenderMatch    NotificationType = "TENDER_MATCH"
	NotificationProposalUpdate NotificationType = "PROPOSAL_UPDATE"
)

// User is an account. PasswordHash never leaves the server.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"firstName"`
	LastName     string    `db:"last_name" json:"lastName"`
	Phone        string    `db:"phone" json:"phone"`
	Role         Role      `db:"role" json:"role"`
	IsVerified   bool      `db:"is_verified" json:"isVerified"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Contractor is the business profile owned by exactly one user.
type Contractor struct {
	ID           uuid.UUID    `db:"id" json:"id"`
	UserID       uuid.UUID    `db:"user_id" json:"userId"`
	CompanyName  string       `db:"company_name" json:"companyName"`
	BusinessType BusinessType `db:"business_type" json:"businessType"`
	GSTNumber    *string      `db:"gst_number" json:"gstNumber,omitempty"`
	PANNumber    *string      `db:"pan_number" json:"panNumber,omitempty"`
	Address      string       `db:"address" json:"address"`
	City         string       `db:"city" json:"city"`
	State        string       `db:"state" json:"state"`
	Pincode      string       `db:"pincode" json:"pincode"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updatedAt"`
}

type Tender struct {
	ID                  uuid.UUID      `db:"id" json:"id"`
	TenderNumber        string         `db:"tender_number" json:"tenderNumber"`
	Title               string         `db:"title" json:"title"`
	Description         string         `db:"description" json:"description"`
	Department          string         `db:"department" json:"department"`
	Category            TenderCategory `db:"category" json:"category"`
	ServiceType         string         `db:"service_type" json:"serviceType"`
	EstimatedValue      float64        `db:"estimated_value" json:"estimatedValue"`
	EarnestMoney        *float64       `db:"earnest_money" json:"earnestMoney,omitempty"`
	TenderFee           *float64       `db:"tender_fee" json:"tenderFee,omitempty"`
	Location            string         `db:"location" json:"location"`
	State               string         `db:"state" json:"state"`
	District            *string        `db:"district" json:"district,omitempty"`
	LastDateSubmission  time.Time      `db:"last_date_submission" json:"lastDateSubmission"`
	OpeningDate         time.Time      `db:"opening_date" json:"openingDate"`
	ValidityPeriod      int            `db:"validity_period" json:"validityPeriod"`
	WorkCompletionTime  int            `db:"work_completion_time" json:"workCompletionTime"`
	EligibilityCriteria Document       `db:"eligibility_criteria" json:"eligibilityCriteria"`
	TechnicalSpecs      Document       `db:"technical_specs" json:"technicalSpecs"`
	EvaluationCriteria  Document       `db:"evaluation_criteria" json:"evaluationCriteria"`
	ContactPerson       string         `db:"contact_person" json:"contactPerson"`
	ContactEmail        string         `db:"contact_email" json:"contactEmail"`
	ContactPhone        string         `db:"contact_phone" json:"contactPhone"`
	Status              TenderStatus   `db:"status" json:"status"`
	PublishedDate       time.Time      `db:"published_date" json:"publishedDate"`
	CreatedBy           uuid.UUID      `db:"created_by" json:"createdBy"`
	CreatedAt           time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updatedAt"`
}

// ApplicationSummary is the caller's own proposal attached to a tender row.
type ApplicationSummary struct {
	ID     uuid.UUID         `json:"id"`
	Status ApplicationStatus `json:"status"`
}

// TenderView is a tender enriched for one caller.
type TenderView struct {
	Tender
	ApplicationCount    int                `db:"application_count" json:"applicationCount"`
	MyApplicationID     *uuid.UUID         `db:"my_application_id" json:"-"`
	MyApplicationStatus *ApplicationStatus `db:"my_application_status" json:"-"`
	MyApplication       *ApplicationSummary `db:"-" json:"myApplication"`
}

// Resolve folds the nullable join columns into MyApplication.
func (v *TenderView) Resolve() {
	if v.MyApplicationID == nil || v.MyApplicationStatus == nil {
		v.MyApplication = nil
		return
	}
	v.MyApplication = &ApplicationSummary{ID: *v.MyApplicationID, Status: *v.MyApplicationStatus}
}

// Application is a contractor's proposal for a tender.
type Application struct {
	ID                uuid.UUID         `db:"id" json:"id"`
	ProposalNumber    string            `db:"proposal_number" json:"proposalNumber"`
	TenderID          uuid.UUID         `db:"tender_id" json:"tenderId"`
	ContractorID      uuid.UUID         `db:"contractor_id" json:"contractorId"`
	Title             string            `db:"title" json:"title"`
	TotalAmount       float64           `db:"total_amount" json:"totalAmount"`
	Language          string            `db:"language" json:"language"`
	TechnicalProposal Document          `db:"technical_proposal" json:"technicalProposal"`
	FinancialProposal Document          `db:"financial_proposal" json:"financialProposal"`
	Status            ApplicationStatus `db:"status" json:"status"`
	SubmittedAt       *time.Time        `db:"submitted_at" json:"submittedAt"`
	CreatedAt         time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updatedAt"`
}

type TenderSummary struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	Title              string    `db:"title" json:"title"`
	Department         string    `db:"department" json:"department"`
	EstimatedValue     float64   `db:"estimated_value" json:"estimatedValue"`
	LastDateSubmission time.Time `db:"last_date_submission" json:"lastDateSubmission"`
}

// ApplicationView is a row of the proposal list.
type ApplicationView struct {
	Application
	Tender TenderSummary `db:"tender" json:"tender"`
}

type Notification struct {
	ID        uuid.UUID        `db:"id" json:"id"`
	UserID    uuid.UUID        `db:"user_id" json:"userId"`
	TenderID  *uuid.UUID       `db:"tender_id" json:"tenderId,omitempty"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	IsRead    bool             `db:"is_read" json:"isRead"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
}

type TenderDocument struct {
	ID          uuid.UUID `db:"id" json:"id"`
	TenderID    uuid.UUID `db:"tender_id" json:"tenderId"`
	Name        string    `db:"name" json:"name"`
	ObjectKey   string    `db:"object_key" json:"-"`
	ContentType string    `db:"content_type" json:"contentType"`
	Size        int64     `db:"size" json:"size"`
	UploadedBy  uuid.UUID `db:"uploaded_by" json:"uploadedBy"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	URL         string    `db:"-" json:"url,omitempty"`
}

// NewTenderNumber returns TND-<year>-<6 uppercase alphanumerics>.
// Uniqueness is enforced by the store, not here.
func NewTenderNumber(now time.Time) string {
	return fmt.Sprintf("TND-%d-%s", now.Year(), random.String(6, random.Uppercase, random.Numeric))
}

func NewProposalNumber(now time.Time) string {
	return fmt.Sprintf("PROP-%d-%s", now.Year(), random.String(6, random.Uppercase, random.Numeric))
}
