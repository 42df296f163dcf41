package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"tenderportal/db"
	"tenderportal/internal/apperr"
	"tenderportal/internal/auth"
	"tenderportal/internal/notify"
	"tenderportal/models"
)

const proposalNumberAttempts = 5

type createApplicationRequest struct {
	Title             string          `json:"title" validate:"required"`
	TotalAmount       float64         `json:"totalAmount" validate:"gt=0"`
	Language          string          `json:"language" validate:"omitempty,oneof=ENGLISH HINDI"`
	TechnicalProposal models.Document `json:"technicalProposal"`
	FinancialProposal models.Document `json:"financialProposal"`
}

// CreateApplicationHandler handles POST /api/tenders/{tenderId}/applications.
// The proposal starts as a DRAFT owned by the calling contractor.
func (h *Handler) CreateApplicationHandler(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	if !id.IsContractor() {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	tenderID, err := urlUUID(r, "tenderId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req createApplicationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if details := validateStruct(&req); len(details) > 0 {
		writeError(w, r, apperr.Validation(details))
		return
	}
	if req.Language == "" {
		req.Language = "ENGLISH"
	}

	ctx := r.Context()
	tender, err := h.Store.GetTender(ctx, tenderID)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, r, apperr.NotFound("Tender"))
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	now := h.now().UTC()
	if tender.Status != models.TenderActive || now.After(tender.LastDateSubmission) {
		writeError(w, r, apperr.Conflict("Tender is not accepting proposals"))
		return
	}

	app := &models.Application{
		TenderID:          tender.ID,
		ContractorID:      *id.ContractorID,
		Title:             req.Title,
		TotalAmount:       req.TotalAmount,
		Language:          req.Language,
		TechnicalProposal: req.TechnicalProposal,
		FinancialProposal: req.FinancialProposal,
		Status:            models.ApplicationDraft,
	}
	for attempt := 0; attempt < proposalNumberAttempts; attempt++ {
		app.ProposalNumber = models.NewProposalNumber(now)
		err = h.Store.CreateApplication(ctx, app)
		if !db.IsDuplicate(err, db.ConstraintProposalNumber) {
			break
		}
	}
	if db.IsDuplicate(err, db.ConstraintOneProposalPerTender) {
		writeError(w, r, apperr.Conflict("A proposal for this tender already exists"))
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.cache.Invalidate(ctx)
	writeSuccess(w, http.StatusCreated, app, "Proposal created")
}

type applicationListResponse struct {
	Applications []models.ApplicationView `json:"applications"`
	Pagination   pagination               `json:"pagination"`
}

// GetMyApplicationsHandler handles GET /api/applications/my.
func (h *Handler) GetMyApplicationsHandler(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	if !id.IsContractor() {
		writeError(w, r, apperr.Unauthorized())
		return
	}

	q := r.URL.Query()
	params, details := parsePaginationParams(q, defaultLimit)
	var status *models.ApplicationStatus
	if s := q.Get("status"); s != "" {
		st := models.ApplicationStatus(s)
		if models.ValidApplicationStatus(st) {
			status = &st
		} else {
			details = append(details, apperr.FieldError{Field: "status", Message: "Unknown status " + s})
		}
	}
	if len(details) > 0 {
		writeError(w, r, apperr.Validation(details))
		return
	}

	apps, total, err := h.Store.ListContractorApplications(r.Context(), *id.ContractorID, status, params.Limit, params.Offset())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, applicationListResponse{
		Applications: apps,
		Pagination:   newPagination(params.Page, params.Limit, total),
	}, "")
}

// UpdateApplicationStatusHandler handles PUT /api/applications/{applicationId}/status?status=.
// Owners submit or withdraw their proposals; admins review and decide them.
func (h *Handler) UpdateApplicationStatusHandler(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	if id == nil {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	appID, err := urlUUID(r, "applicationId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := models.ApplicationStatus(r.URL.Query().Get("status"))
	if !models.ValidApplicationStatus(status) {
		writeError(w, r, apperr.Validation([]apperr.FieldError{{Field: "status", Message: "Unknown status " + string(status)}}))
		return
	}

	ctx := r.Context()
	app, err := h.Store.GetApplication(ctx, appID)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, r, apperr.NotFound("Proposal"))
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	admin := id.IsAdmin()
	if !admin && (id.ContractorID == nil || *id.ContractorID != app.ContractorID) {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	if !models.CanTransitionApplication(app.Status, status, admin) {
		writeError(w, r, apperr.Conflict("Cannot change proposal status from "+string(app.Status)+" to "+string(status)))
		return
	}

	now := h.now().UTC()
	var submittedAt *time.Time
	if status == models.ApplicationSubmitted {
		submittedAt = &now
	}
	if err := h.Store.UpdateApplicationStatus(ctx, appID, status, submittedAt); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			err = apperr.NotFound("Proposal")
		}
		writeError(w, r, err)
		return
	}
	app.Status = status
	app.UpdatedAt = now
	if submittedAt != nil {
		app.SubmittedAt = submittedAt
	}
	h.cache.Invalidate(ctx)

	if admin {
		h.notifyProposalOwner(r, app)
	}
	writeSuccess(w, http.StatusOK, app, "Proposal status updated")
}

// notifyProposalOwner is best-effort; failures are only logged.
func (h *Handler) notifyProposalOwner(r *http.Request, app *models.Application) {
	ctx := r.Context()
	c, err := h.Store.GetContractor(ctx, app.ContractorID)
	if err != nil {
		log.Printf("notify proposal %s owner: %v", app.ProposalNumber, err)
		return
	}
	n := notify.ProposalUpdate(c.UserID, app)
	if _, err := h.Store.CreateNotifications(ctx, []models.Notification{n}); err != nil {
		log.Printf("notify proposal %s owner: %v", app.ProposalNumber, err)
	}
}
