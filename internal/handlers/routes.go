package handlers

import (
	"net/http"

	"tenderportal/internal/auth"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts every endpoint under /api.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if h.tokens != nil {
		r.Use(auth.Authenticate(h.tokens))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.PingHandler)
		// accounts
		r.Post("/auth/register", h.RegisterHandler)
		r.Post("/auth/login", h.LoginHandler)
		r.Get("/auth/me", h.MeHandler)
		// tenders
		r.Get("/tenders", h.GetTendersHandler)
		r.Post("/tenders", h.CreateTenderHandler)
		r.Get("/tenders/{tenderId}", h.GetTenderHandler)
		r.Put("/tenders/{tenderId}/status", h.ChangeTenderStatusHandler)
		if h.documents != nil {
			r.Get("/tenders/{tenderId}/documents", h.GetTenderDocumentsHandler)
			r.Post("/tenders/{tenderId}/documents", h.UploadTenderDocumentHandler)
		}
		// proposals
		r.Post("/tenders/{tenderId}/applications", h.CreateApplicationHandler)
		r.Get("/applications/my", h.GetMyApplicationsHandler)
		r.Put("/applications/{applicationId}/status", h.UpdateApplicationStatusHandler)
		// notifications
		r.Get("/notifications", h.GetNotificationsHandler)
		r.Put("/notifications/read-all", h.MarkAllNotificationsReadHandler)
		r.Put("/notifications/{notificationId}/read", h.MarkNotificationReadHandler)
	})
	return r
}
