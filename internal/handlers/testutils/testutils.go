package testutils

import (
	"context"
	"net/http"

	"tenderportal/internal/auth"
	"tenderportal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// WithChiURLParams puts path parameters into the request's chi route context.
func WithChiURLParams(req *http.Request, params map[string]string) *http.Request {
	chiCtx := chi.NewRouteContext()
	for k, v := range params {
		chiCtx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, chiCtx))
}

// WithIdentity authenticates req as id, bypassing the bearer middleware.
func WithIdentity(req *http.Request, id *auth.Identity) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), id))
}

func AdminIdentity() *auth.Identity {
	return &auth.Identity{UserID: uuid.New(), Email: "admin@tenders.gov.in", Role: models.RoleAdmin}
}

func ContractorIdentity() *auth.Identity {
	cid := uuid.New()
	return &auth.Identity{UserID: uuid.New(), Email: "contractor@example.com", Role: models.RoleContractor, ContractorID: &cid}
}
