package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"tenderportal/db"
	"tenderportal/internal/apperr"
	"tenderportal/internal/auth"
	"tenderportal/models"
)

type registerRequest struct {
	FirstName    string              `json:"firstName" validate:"required"`
	LastName     string              `json:"lastName" validate:"required"`
	Email        string              `json:"email" validate:"required,email"`
	Password     string              `json:"password" validate:"required,min=6"`
	Phone        string              `json:"phone" validate:"required,min=10"`
	CompanyName  string              `json:"companyName" validate:"required"`
	BusinessType models.BusinessType `json:"businessType" validate:"required,oneof=SOLE_PROPRIETORSHIP PARTNERSHIP PRIVATE_LIMITED PUBLIC_LIMITED LLP OPC"`
	GSTNumber    *string             `json:"gstNumber" validate:"omitempty,gstin"`
	PANNumber    *string             `json:"panNumber" validate:"omitempty,pan"`
	Address      string              `json:"address" validate:"required"`
	City         string              `json:"city" validate:"required"`
	State        string              `json:"state" validate:"required"`
	Pincode      string              `json:"pincode" validate:"required,min=6"`
}

type accountResponse struct {
	User       *models.User       `json:"user"`
	Contractor *models.Contractor `json:"contractor"`
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// RegisterHandler handles POST /api/auth/register.
func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if details := validateStruct(&req); len(details) > 0 {
		writeError(w, r, apperr.Validation(details))
		return
	}

	ctx := r.Context()
	_, err := h.Store.GetUserByEmail(ctx, req.Email)
	switch {
	case err == nil:
		writeError(w, r, apperr.DuplicateAccount())
		return
	case !errors.Is(err, db.ErrNotFound):
		writeError(w, r, err)
		return
	}

	hash, err := auth.HashPassword(req.Password, h.bcryptCost)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Role:         models.RoleContractor,
	}
	contractor := &models.Contractor{
		CompanyName:  req.CompanyName,
		BusinessType: req.BusinessType,
		GSTNumber:    nonEmpty(req.GSTNumber),
		PANNumber:    nonEmpty(req.PANNumber),
		Address:      req.Address,
		City:         req.City,
		State:        req.State,
		Pincode:      req.Pincode,
	}

	if err := h.Store.CreateContractorAccount(ctx, user, contractor); err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, db.ErrDuplicate) {
			writeError(w, r, apperr.DuplicateAccount())
			return
		}
		writeError(w, r, err)
		return
	}

	go func(to, name, company string) {
		if err := h.mailer.SendWelcome(to, name, company); err != nil {
			log.Printf("Register: %v", err)
		}
	}(user.Email, user.FullName(), contractor.CompanyName)

	writeSuccess(w, http.StatusCreated, accountResponse{User: user, Contractor: contractor}, "Registration successful")
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token      string             `json:"token"`
	ExpiresAt  time.Time          `json:"expiresAt"`
	User       *models.User       `json:"user"`
	Contractor *models.Contractor `json:"contractor,omitempty"`
}

// LoginHandler handles POST /api/auth/login.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if details := validateStruct(&req); len(details) > 0 {
		writeError(w, r, apperr.Validation(details))
		return
	}

	ctx := r.Context()
	id, err := h.identities.Authenticate(ctx, strings.TrimSpace(req.Email), req.Password)
	if errors.Is(err, auth.ErrBadCredentials) {
		writeError(w, r, &apperr.Error{Kind: apperr.KindUnauthorized, Message: "Invalid email or password"})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	account, err := h.loadAccount(r, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, exp, err := h.tokens.Issue(*id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, loginResponse{
		Token:      token,
		ExpiresAt:  exp,
		User:       account.User,
		Contractor: account.Contractor,
	}, "Login successful")
}

// MeHandler returns the caller's user and contractor profile.
func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	if id == nil {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	account, err := h.loadAccount(r, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, account, "")
}

func (h *Handler) loadAccount(r *http.Request, id *auth.Identity) (*accountResponse, error) {
	u, err := h.Store.GetUserByID(r.Context(), id.UserID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.Unauthorized()
	}
	if err != nil {
		return nil, err
	}
	account := &accountResponse{User: u}
	if id.ContractorID != nil {
		c, err := h.Store.GetContractor(r.Context(), *id.ContractorID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return nil, err
		}
		account.Contractor = c
	}
	return account, nil
}
