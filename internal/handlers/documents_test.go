package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"tenderportal/internal/auth"
	"tenderportal/internal/handlers"
	"tenderportal/internal/handlers/testutils"
	"tenderportal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeDocuments struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func (f *fakeDocuments) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = b
	return nil
}

func (f *fakeDocuments) PresignedURL(ctx context.Context, key string) (string, error) {
	return "https://files.example.com/" + key + "?sig=test", nil
}

func (f *fakeDocuments) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestTenderDocuments(t *testing.T) {
	store := &MockStorage{}
	tender := openTender(store)
	docs := &fakeDocuments{}
	h := handlers.NewHandler(store, handlers.Deps{
		Tokens:     auth.NewTokenIssuer("test-secret", time.Hour),
		Documents:  docs,
		BcryptCost: bcrypt.MinCost,
	})
	params := map[string]string{"tenderId": tender.ID.String()}

	upload := func(id *auth.Identity) *httptest.ResponseRecorder {
		body, contentType := multipartBody(t, "boq.pdf", []byte("%PDF-1.4 bill of quantities"))
		req := httptest.NewRequest("POST", "/", body)
		req.Header.Set("Content-Type", contentType)
		req = testutils.WithIdentity(testutils.WithChiURLParams(req, params), id)
		w := httptest.NewRecorder()
		h.UploadTenderDocumentHandler(w, req)
		return w
	}

	require.Equal(t, http.StatusUnauthorized, upload(testutils.ContractorIdentity()).Code)
	require.Empty(t, docs.objects)

	w := upload(testutils.AdminIdentity())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var doc models.TenderDocument
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &doc))
	require.Equal(t, "boq.pdf", doc.Name)
	require.Len(t, store.documents, 1)
	key := store.documents[0].ObjectKey
	require.Contains(t, key, tender.ID.String())
	require.Contains(t, doc.URL, key)
	require.Equal(t, []byte("%PDF-1.4 bill of quantities"), docs.objects[key])

	w = httptest.NewRecorder()
	h.GetTenderDocumentsHandler(w, newRequest("GET", "/", "", testutils.ContractorIdentity(), params))
	require.Equal(t, http.StatusOK, w.Code)
	var listed []models.TenderDocument
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &listed))
	require.Len(t, listed, 1)
	require.NotEmpty(t, listed[0].URL)

	w = httptest.NewRecorder()
	h.GetTenderDocumentsHandler(w, newRequest("GET", "/", "", testutils.ContractorIdentity(),
		map[string]string{"tenderId": uuid.NewString()}))
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Tender not found", decode(t, w).Error)

	docs.putErr = errors.New("bucket unavailable")
	require.Equal(t, http.StatusInternalServerError, upload(testutils.AdminIdentity()).Code)
	require.Len(t, store.documents, 1)
}
