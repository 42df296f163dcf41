package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"tenderportal/db"
	"tenderportal/internal/apperr"
	"tenderportal/internal/auth"
)

const defaultNotificationLimit = 20

// GetNotificationsHandler handles GET /api/notifications?unread=&page=&limit=.
func (h *Handler) GetNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	if id == nil {
		writeError(w, r, apperr.Unauthorized())
		return
	}

	q := r.URL.Query()
	params, details := parsePaginationParams(q, defaultNotificationLimit)
	unread := false
	if s := q.Get("unread"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			details = append(details, apperr.FieldError{Field: "unread", Message: "unread must be true or false"})
		}
		unread = b
	}
	if len(details) > 0 {
		writeError(w, r, apperr.Validation(details))
		return
	}

	ns, err := h.Store.ListNotifications(r.Context(), id.UserID, unread, params.Limit, params.Offset())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, ns, "")
}

// MarkNotificationReadHandler handles PUT /api/notifications/{notificationId}/read.
func (h *Handler) MarkNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	if id == nil {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	notificationID, err := urlUUID(r, "notificationId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = h.Store.MarkNotificationRead(r.Context(), id.UserID, notificationID)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, r, apperr.NotFound("Notification"))
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"id": notificationID, "isRead": true}, "")
}

// MarkAllNotificationsReadHandler handles PUT /api/notifications/read-all.
func (h *Handler) MarkAllNotificationsReadHandler(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	if id == nil {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	n, err := h.Store.MarkAllNotificationsRead(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]int64{"updated": n}, "")
}
