package handlers

import (
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tenderportal/db"
	"tenderportal/internal/apperr"
	"tenderportal/internal/auth"
	"tenderportal/internal/cache"
	"tenderportal/models"
)

const (
	defaultLimit = 10
	maxLimit     = 100

	tenderNumberAttempts = 5
)

type PaginationParams struct {
	Page  int
	Limit int
}

func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// parsePaginationParams reads page and limit, defaulting to 1 and defaultLimit.
func parsePaginationParams(q url.Values, defLimit int) (PaginationParams, []apperr.FieldError) {
	params := PaginationParams{Page: 1, Limit: defLimit}
	var errs []apperr.FieldError

	if s := q.Get("page"); s != "" {
		p, err := strconv.Atoi(s)
		if err != nil || p < 1 {
			errs = append(errs, apperr.FieldError{Field: "page", Message: "page must be a positive integer"})
		} else {
			params.Page = p
		}
	}
	if s := q.Get("limit"); s != "" {
		l, err := strconv.Atoi(s)
		if err != nil || l < 1 || l > maxLimit {
			errs = append(errs, apperr.FieldError{Field: "limit", Message: "limit must be an integer between 1 and " + strconv.Itoa(maxLimit)})
		} else {
			params.Limit = l
		}
	}
	// The row offset (page-1)*limit must fit in an int.
	if params.Page-1 > math.MaxInt/params.Limit {
		errs = append(errs, apperr.FieldError{Field: "page", Message: "page is too large"})
		params.Page = 1
	}
	return params, errs
}

func parseAmount(q url.Values, name string) (*float64, *apperr.FieldError) {
	s := q.Get(name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, &apperr.FieldError{Field: name, Message: name + " must be a number"}
	}
	return &v, nil
}

// parseTenderFilter collects every bad parameter instead of stopping at the first.
func parseTenderFilter(q url.Values) (db.TenderFilter, []apperr.FieldError) {
	params, errs := parsePaginationParams(q, defaultLimit)
	f := db.TenderFilter{
		State:  strings.TrimSpace(q.Get("state")),
		Search: strings.TrimSpace(q.Get("search")),
		Page:   params.Page,
		Limit:  params.Limit,
	}

	if s := q.Get("category"); s != "" {
		c := models.TenderCategory(s)
		if models.ValidTenderCategory(c) {
			f.Category = &c
		} else {
			errs = append(errs, apperr.FieldError{Field: "category", Message: "Unknown category " + s})
		}
	}
	if s := q.Get("status"); s != "" {
		st := models.TenderStatus(s)
		if models.ValidTenderStatus(st) {
			f.Status = &st
		} else {
			errs = append(errs, apperr.FieldError{Field: "status", Message: "Unknown status " + s})
		}
	}

	var fe *apperr.FieldError
	if f.MinValue, fe = parseAmount(q, "minValue"); fe != nil {
		errs = append(errs, *fe)
	}
	if f.MaxValue, fe = parseAmount(q, "maxValue"); fe != nil {
		errs = append(errs, *fe)
	}
	return f, errs
}

type tenderListResponse struct {
	Tenders    []models.TenderView `json:"tenders"`
	Pagination pagination          `json:"pagination"`
}

// GetTendersHandler returns one page of tenders matching the query filters.
func (h *Handler) GetTendersHandler(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	if id == nil {
		writeError(w, r, apperr.Unauthorized())
		return
	}

	f, details := parseTenderFilter(r.URL.Query())
	if len(details) > 0 {
		writeError(w, r, apperr.Validation(details))
		return
	}

	ctx := r.Context()
	page, key, ok := h.cache.Get(ctx, f, id.ContractorID)
	if !ok {
		tenders, total, err := h.Store.ListTenders(ctx, f, id.ContractorID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		page = &cache.TenderPage{Tenders: tenders, Total: total}
		h.cache.Set(ctx, key, page)
	}

	writeSuccess(w, http.StatusOK, tenderListResponse{
		Tenders:    page.Tenders,
		Pagination: newPagination(f.Page, f.Limit, page.Total),
	}, "")
}

// GetTenderHandler returns a single tender as seen by the caller.
func (h *Handler) GetTenderHandler(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	if id == nil {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	tenderID, err := urlUUID(r, "tenderId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	v, err := h.Store.GetTenderView(r.Context(), tenderID, id.ContractorID)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, r, apperr.NotFound("Tender"))
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, v, "")
}

type createTenderRequest struct {
	Title               string                `json:"title" validate:"required"`
	Description         string                `json:"description" validate:"required"`
	Department          string                `json:"department" validate:"required"`
	Category            models.TenderCategory `json:"category" validate:"required,oneof=CONSTRUCTION CONSULTING SUPPLY SERVICES MAINTENANCE IT_SOFTWARE HEALTHCARE EDUCATION TRANSPORTATION OTHER"`
	ServiceType         string                `json:"serviceType" validate:"required"`
	EstimatedValue      float64               `json:"estimatedValue" validate:"gt=0"`
	EarnestMoney        *float64              `json:"earnestMoney" validate:"omitempty,gte=0"`
	TenderFee           *float64              `json:"tenderFee" validate:"omitempty,gte=0"`
	Location            string                `json:"location" validate:"required"`
	State               string                `json:"state" validate:"required"`
	District            *string               `json:"district"`
	LastDateSubmission  string                `json:"lastDateSubmission" validate:"required"`
	OpeningDate         string                `json:"openingDate" validate:"required"`
	ValidityPeriod      int                   `json:"validityPeriod" validate:"gt=0"`
	WorkCompletionTime  int                   `json:"workCompletionTime" validate:"gt=0"`
	EligibilityCriteria models.Document       `json:"eligibilityCriteria"`
	TechnicalSpecs      models.Document       `json:"technicalSpecs"`
	EvaluationCriteria  models.Document       `json:"evaluationCriteria"`
	ContactPerson       string                `json:"contactPerson" validate:"required"`
	ContactEmail        string                `json:"contactEmail" validate:"required,email"`
	ContactPhone        string                `json:"contactPhone" validate:"required,min=10"`
}

// parseTimestamp accepts RFC 3339 timestamps and plain dates.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

func (req *createTenderRequest) validate() ([]apperr.FieldError, time.Time, time.Time) {
	details := validateStruct(req)
	var submission, opening time.Time
	var err error

	if req.LastDateSubmission != "" {
		if submission, err = parseTimestamp(req.LastDateSubmission); err != nil {
			details = append(details, apperr.FieldError{Field: "lastDateSubmission", Message: "lastDateSubmission must be an ISO 8601 date"})
		}
	}
	if req.OpeningDate != "" {
		if opening, err = parseTimestamp(req.OpeningDate); err != nil {
			details = append(details, apperr.FieldError{Field: "openingDate", Message: "openingDate must be an ISO 8601 date"})
		}
	}
	return details, submission, opening
}

// CreateTenderHandler handles POST /api/tenders (admins only).
func (h *Handler) CreateTenderHandler(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	if !id.IsAdmin() {
		writeError(w, r, apperr.Unauthorized())
		return
	}

	var req createTenderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	details, submission, opening := req.validate()
	if len(details) > 0 {
		writeError(w, r, apperr.Validation(details))
		return
	}

	now := h.now().UTC()
	tender := &models.Tender{
		Title:               req.Title,
		Description:         req.Description,
		Department:          req.Department,
		Category:            req.Category,
		ServiceType:         req.ServiceType,
		EstimatedValue:      req.EstimatedValue,
		EarnestMoney:        req.EarnestMoney,
		TenderFee:           req.TenderFee,
		Location:            req.Location,
		State:               req.State,
		District:            nonEmpty(req.District),
		LastDateSubmission:  submission,
		OpeningDate:         opening,
		ValidityPeriod:      req.ValidityPeriod,
		WorkCompletionTime:  req.WorkCompletionTime,
		EligibilityCriteria: req.EligibilityCriteria,
		TechnicalSpecs:      req.TechnicalSpecs,
		EvaluationCriteria:  req.EvaluationCriteria,
		ContactPerson:       req.ContactPerson,
		ContactEmail:        req.ContactEmail,
		ContactPhone:        req.ContactPhone,
		Status:              models.TenderActive,
		PublishedDate:       now,
		CreatedBy:           id.UserID,
	}

	ctx := r.Context()
	var err error
	for attempt := 0; attempt < tenderNumberAttempts; attempt++ {
		tender.TenderNumber = models.NewTenderNumber(now)
		err = h.Store.CreateTender(ctx, tender)
		if !db.IsDuplicate(err, db.ConstraintTenderNumber) {
			break
		}
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.cache.Invalidate(ctx)
	h.dispatcher.TenderCreated(ctx, tender.ID)

	writeSuccess(w, http.StatusCreated, tender, "Tender created successfully")
}

// ChangeTenderStatusHandler handles PUT /api/tenders/{tenderId}/status?status=.
func (h *Handler) ChangeTenderStatusHandler(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	if !id.IsAdmin() {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	tenderID, err := urlUUID(r, "tenderId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := models.TenderStatus(r.URL.Query().Get("status"))
	if !models.ValidTenderStatus(status) {
		writeError(w, r, apperr.Validation([]apperr.FieldError{{Field: "status", Message: "Unknown status " + string(status)}}))
		return
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
	if !models.CanTransitionTender(tender.Status, status) {
		writeError(w, r, apperr.Conflict("Cannot change tender status from "+string(tender.Status)+" to "+string(status)))
		return
	}

	if err := h.Store.UpdateTenderStatus(ctx, tenderID, status); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			err = apperr.NotFound("Tender")
		}
		writeError(w, r, err)
		return
	}
	tender.Status = status
	tender.UpdatedAt = h.now().UTC()
	h.cache.Invalidate(ctx)

	writeSuccess(w, http.StatusOK, tender, "Tender status updated")
}
