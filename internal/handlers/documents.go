package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"tenderportal/db"
	"tenderportal/internal/apperr"
	"tenderportal/internal/auth"
	"tenderportal/internal/storage"
	"tenderportal/models"

	"github.com/google/uuid"
)

const maxDocumentBytes = 20 << 20

// UploadTenderDocumentHandler handles POST /api/tenders/{tenderId}/documents
// with a multipart "file" field (admins only).
func (h *Handler) UploadTenderDocumentHandler(w http.ResponseWriter, r *http.Request) {
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

	ctx := r.Context()
	if _, err := h.Store.GetTender(ctx, tenderID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			err = apperr.NotFound("Tender")
		}
		writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, apperr.Validation([]apperr.FieldError{{Field: "file", Message: "file is required"}}))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	doc := &models.TenderDocument{
		ID:          uuid.New(),
		TenderID:    tenderID,
		Name:        header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		UploadedBy:  id.UserID,
	}
	doc.ObjectKey = storage.ObjectKey(tenderID, doc.ID, header.Filename)

	if err := h.documents.Put(ctx, doc.ObjectKey, file, header.Size, contentType); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Store.CreateTenderDocument(ctx, doc); err != nil {
		if derr := h.documents.Delete(context.WithoutCancel(ctx), doc.ObjectKey); derr != nil {
			log.Printf("remove orphaned object %s: %v", doc.ObjectKey, derr)
		}
		writeError(w, r, err)
		return
	}

	if url, err := h.documents.PresignedURL(ctx, doc.ObjectKey); err == nil {
		doc.URL = url
	}
	writeSuccess(w, http.StatusCreated, doc, "Document uploaded")
}

// GetTenderDocumentsHandler lists a tender's documents with short-lived download links.
func (h *Handler) GetTenderDocumentsHandler(w http.ResponseWriter, r *http.Request) {
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

	ctx := r.Context()
	if _, err := h.Store.GetTender(ctx, tenderID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			err = apperr.NotFound("Tender")
		}
		writeError(w, r, err)
		return
	}
	docs, err := h.Store.ListTenderDocuments(ctx, tenderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	for i := range docs {
		url, err := h.documents.PresignedURL(ctx, docs[i].ObjectKey)
		if err != nil {
			writeError(w, r, err)
			return
		}
		docs[i].URL = url
	}
	writeSuccess(w, http.StatusOK, docs, "")
}
