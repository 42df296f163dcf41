package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"tenderportal/db"
	"tenderportal/internal/auth"
	"tenderportal/internal/handlers"
	"tenderportal/internal/handlers/testutils"
	"tenderportal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type listData struct {
	Tenders    []models.TenderView `json:"tenders"`
	Pagination struct {
		Page  int `json:"page"`
		Limit int `json:"limit"`
		Total int `json:"total"`
		Pages int `json:"pages"`
	} `json:"pagination"`
}

func newRequest(method, target, body string, id *auth.Identity, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if params != nil {
		req = testutils.WithChiURLParams(req, params)
	}
	if id != nil {
		req = testutils.WithIdentity(req, id)
	}
	return req
}

func seedTenders(store *MockStorage, n int) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		store.tenders = append(store.tenders, models.Tender{
			ID:                 uuid.New(),
			TenderNumber:       fmt.Sprintf("TND-2025-%06d", i),
			Title:              fmt.Sprintf("Tender %d", i),
			EstimatedValue:     float64(1000 * (i + 1)),
			Status:             models.TenderActive,
			PublishedDate:      base.Add(time.Duration(i) * time.Hour),
			LastDateSubmission: time.Now().Add(30 * 24 * time.Hour),
		})
	}
}

func TestGetTendersHandlerRequiresIdentity(t *testing.T) {
	store := &MockStorage{}
	h := newHandler(store)

	w := httptest.NewRecorder()
	h.GetTendersHandler(w, newRequest("GET", "/api/tenders", "", nil, nil))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Unauthorized", decode(t, w).Error)
	require.Zero(t, store.listTendersCalls)
}

func TestGetTendersHandlerPagination(t *testing.T) {
	store := &MockStorage{}
	seedTenders(store, 23)
	h := newHandler(store)

	w := httptest.NewRecorder()
	h.GetTendersHandler(w, newRequest("GET", "/api/tenders?page=3&limit=10", "", testutils.ContractorIdentity(), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data listData
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	require.Equal(t, 23, data.Pagination.Total)
	require.Equal(t, 3, data.Pagination.Pages)
	require.Equal(t, 3, data.Pagination.Page)
	require.Len(t, data.Tenders, 3)
	// newest first
	require.Equal(t, "Tender 2", data.Tenders[0].Title)
	require.Equal(t, "Tender 0", data.Tenders[2].Title)
}

func TestGetTendersHandlerDefaultsAndEmpty(t *testing.T) {
	h := newHandler(&MockStorage{})

	w := httptest.NewRecorder()
	h.GetTendersHandler(w, newRequest("GET", "/api/tenders", "", testutils.AdminIdentity(), nil))
	require.Equal(t, http.StatusOK, w.Code)

	var data listData
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	require.Equal(t, 1, data.Pagination.Page)
	require.Equal(t, 10, data.Pagination.Limit)
	require.Zero(t, data.Pagination.Pages)
	require.NotNil(t, data.Tenders)
	require.Empty(t, data.Tenders)
}

func TestGetTendersHandlerPassesFilter(t *testing.T) {
	id := testutils.ContractorIdentity()
	var got db.TenderFilter
	var gotContractor *uuid.UUID
	store := &MockStorage{
		ListTendersFunc: func(ctx context.Context, f db.TenderFilter, contractorID *uuid.UUID) ([]models.TenderView, int, error) {
			got, gotContractor = f, contractorID
			return []models.TenderView{}, 0, nil
		},
	}
	h := newHandler(store)

	w := httptest.NewRecorder()
	q := "?category=SUPPLY&state=Kerala&status=ACTIVE&minValue=100&maxValue=200.5&search=%20road%20&page=2&limit=5"
	h.GetTendersHandler(w, newRequest("GET", "/api/tenders"+q, "", id, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Equal(t, models.CategorySupply, *got.Category)
	require.Equal(t, "Kerala", got.State)
	require.Equal(t, models.TenderActive, *got.Status)
	require.Equal(t, 100.0, *got.MinValue)
	require.Equal(t, 200.5, *got.MaxValue)
	require.Equal(t, "road", got.Search)
	require.Equal(t, 2, got.Page)
	require.Equal(t, 5, got.Limit)
	require.Equal(t, id.ContractorID, gotContractor)
}

func TestGetTendersHandlerInvalidParams(t *testing.T) {
	store := &MockStorage{}
	h := newHandler(store)

	w := httptest.NewRecorder()
	q := "?page=0&limit=500&minValue=abc&maxValue=NaN&category=ROADS&status=OPEN"
	h.GetTendersHandler(w, newRequest("GET", "/api/tenders"+q, "", testutils.AdminIdentity(), nil))

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.ElementsMatch(t,
		[]string{"page", "limit", "minValue", "maxValue", "category", "status"},
		detailFields(decode(t, w)))
	require.Zero(t, store.listTendersCalls)
}

func TestGetTendersHandlerStoreError(t *testing.T) {
	store := &MockStorage{
		ListTendersFunc: func(ctx context.Context, f db.TenderFilter, contractorID *uuid.UUID) ([]models.TenderView, int, error) {
			return nil, 0, errors.New("connection refused")
		},
	}
	h := newHandler(store)

	w := httptest.NewRecorder()
	h.GetTendersHandler(w, newRequest("GET", "/api/tenders", "", testutils.AdminIdentity(), nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "Internal server error", decode(t, w).Error)
}

func TestGetTenderHandler(t *testing.T) {
	store := &MockStorage{}
	seedTenders(store, 1)
	h := newHandler(store)
	id := testutils.ContractorIdentity()

	w := httptest.NewRecorder()
	h.GetTenderHandler(w, newRequest("GET", "/", "", id, map[string]string{"tenderId": store.tenders[0].ID.String()}))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.GetTenderHandler(w, newRequest("GET", "/", "", id, map[string]string{"tenderId": uuid.NewString()}))
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Tender not found", decode(t, w).Error)

	w = httptest.NewRecorder()
	h.GetTenderHandler(w, newRequest("GET", "/", "", id, map[string]string{"tenderId": "42"}))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func validTender() map[string]any {
	return map[string]any{
		"title":               "Construction of rural road",
		"description":         "4 km bituminous road",
		"department":          "Public Works",
		"category":            "CONSTRUCTION",
		"serviceType":         "Civil works",
		"estimatedValue":      2500000,
		"earnestMoney":        50000,
		"location":            "Wardha",
		"state":               "Maharashtra",
		"lastDateSubmission":  "2030-03-01T17:00:00Z",
		"openingDate":         "2030-03-05",
		"validityPeriod":      90,
		"workCompletionTime":  180,
		"eligibilityCriteria": map[string]any{"minTurnover": 10000000, "classes": []string{"A", "B"}},
		"technicalSpecs":      []any{"IRC:37", "IRC:SP:20"},
		"evaluationCriteria":  "L1",
		"contactPerson":       "R. Patil",
		"contactEmail":        "pwd@mah.gov.in",
		"contactPhone":        "0712123456",
	}
}

func tenderBody(t *testing.T, overrides map[string]any) string {
	t.Helper()
	body := validTender()
	for k, v := range overrides {
		body[k] = v
	}
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return string(b)
}

func createTender(h *handlers.Handler, body string, id *auth.Identity) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.CreateTenderHandler(w, newRequest("POST", "/api/tenders", body, id, nil))
	return w
}

func TestCreateTenderHandlerRejectsNonAdminBeforeValidation(t *testing.T) {
	store := &MockStorage{}
	h := newHandler(store)

	for _, id := range []*auth.Identity{nil, testutils.ContractorIdentity()} {
		w := createTender(h, `{"estimatedValue": -5}`, id)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Empty(t, decode(t, w).Details)
	}
	require.Zero(t, store.createTenderCalls)
}

func TestCreateTenderHandlerValidation(t *testing.T) {
	store := &MockStorage{contractors: []models.Contractor{{ID: uuid.New(), UserID: uuid.New()}}}
	h := newHandler(store)

	w := createTender(h, tenderBody(t, map[string]any{
		"estimatedValue":     -5,
		"category":           "ROADS",
		"contactEmail":       "nope",
		"lastDateSubmission": "next week",
		"validityPeriod":     0,
	}), testutils.AdminIdentity())

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	require.Equal(t, "Validation error", resp.Error)
	require.ElementsMatch(t,
		[]string{"estimatedValue", "category", "contactEmail", "lastDateSubmission", "validityPeriod"},
		detailFields(resp))
	require.Zero(t, store.createTenderCalls)
	require.Empty(t, store.notifications)
}

func TestCreateTenderHandlerFansOut(t *testing.T) {
	store := &MockStorage{}
	for i := 0; i < 3; i++ {
		store.contractors = append(store.contractors, models.Contractor{ID: uuid.New(), UserID: uuid.New()})
	}
	h := newHandler(store)
	admin := testutils.AdminIdentity()

	w := createTender(h, tenderBody(t, nil), admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decode(t, w)
	require.Equal(t, "Tender created successfully", resp.Message)
	var tender models.Tender
	require.NoError(t, json.Unmarshal(resp.Data, &tender))

	year := time.Now().UTC().Year()
	require.Regexp(t, regexp.MustCompile(fmt.Sprintf(`^TND-%d-[A-Z0-9]{6}$`, year)), tender.TenderNumber)
	require.Equal(t, models.TenderActive, tender.Status)
	require.Equal(t, admin.UserID, tender.CreatedBy)
	require.WithinDuration(t, time.Now(), tender.PublishedDate, time.Minute)
	require.Equal(t, time.Date(2030, 3, 5, 0, 0, 0, 0, time.UTC), tender.OpeningDate.UTC())
	require.Equal(t, models.DocumentObject, tender.EligibilityCriteria.Kind())
	require.Equal(t, models.DocumentArray, tender.TechnicalSpecs.Kind())

	require.Len(t, store.tenders, 1)
	require.Len(t, store.notifications, 3)
	for i, n := range store.notifications {
		require.Equal(t, tender.ID, *n.TenderID)
		require.Equal(t, store.contractors[i].UserID, n.UserID)
		require.Equal(t, models.NotificationTenderMatch, n.Type)
		require.Contains(t, n.Message, `"Construction of rural road"`)
		require.Contains(t, n.Message, "₹2,500,000")
	}
}

func TestCreateTenderHandlerFanOutFailureIsAbsorbed(t *testing.T) {
	store := &MockStorage{
		contractors:      []models.Contractor{{ID: uuid.New(), UserID: uuid.New()}},
		notificationsErr: errors.New("notifications table locked"),
	}
	h := newHandler(store)

	w := createTender(h, tenderBody(t, nil), testutils.AdminIdentity())
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.tenders, 1)
}

func TestCreateTenderHandlerRetriesNumberCollision(t *testing.T) {
	dup := &db.DuplicateError{Constraint: db.ConstraintTenderNumber}
	store := &MockStorage{createTenderErrs: []error{dup, dup}}
	h := newHandler(store)

	w := createTender(h, tenderBody(t, nil), testutils.AdminIdentity())
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, 3, store.createTenderCalls)
}

func TestCreateTenderHandlerGivesUpAfterRepeatedCollisions(t *testing.T) {
	dup := &db.DuplicateError{Constraint: db.ConstraintTenderNumber}
	store := &MockStorage{createTenderErrs: []error{dup, dup, dup, dup, dup, dup}}
	h := newHandler(store)

	w := createTender(h, tenderBody(t, nil), testutils.AdminIdentity())
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, 5, store.createTenderCalls)
	require.Empty(t, store.tenders)
}

func TestChangeTenderStatusHandler(t *testing.T) {
	store := &MockStorage{}
	seedTenders(store, 1)
	h := newHandler(store)
	params := map[string]string{"tenderId": store.tenders[0].ID.String()}

	change := func(status string, id *auth.Identity) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.ChangeTenderStatusHandler(w, newRequest("PUT", "/?status="+status, "", id, params))
		return w
	}

	require.Equal(t, http.StatusUnauthorized, change("CLOSED", testutils.ContractorIdentity()).Code)
	require.Equal(t, http.StatusBadRequest, change("DONE", testutils.AdminIdentity()).Code)

	w := change("CLOSED", testutils.AdminIdentity())
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, models.TenderClosed, store.tenders[0].Status)

	w = change("ACTIVE", testutils.AdminIdentity())
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "Cannot change tender status from CLOSED to ACTIVE", decode(t, w).Error)

	require.Equal(t, http.StatusOK, change("AWARDED", testutils.AdminIdentity()).Code)
}

func TestGetTendersHandlerValueRangePage(t *testing.T) {
	store := &MockStorage{}
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	// in range, published newest first: 6M, 5M, 4M, 3M, 2M, 1M
	for i, v := range []float64{1000000, 2000000, 3000000, 4000000, 5000000, 6000000} {
		store.tenders = append(store.tenders, models.Tender{
			ID: uuid.New(), Title: fmt.Sprintf("In range %d", i), EstimatedValue: v,
			Status: models.TenderActive, PublishedDate: base.Add(time.Duration(i) * time.Hour),
		})
	}
	for i, v := range []float64{999999.99, 9000000.01} {
		store.tenders = append(store.tenders, models.Tender{
			ID: uuid.New(), Title: fmt.Sprintf("Out of range %d", i), EstimatedValue: v,
			Status: models.TenderActive, PublishedDate: base.Add(time.Duration(10+i) * time.Hour),
		})
	}
	h := newHandler(store)

	w := httptest.NewRecorder()
	q := "?minValue=1000000&maxValue=9000000&page=2&limit=2"
	h.GetTendersHandler(w, newRequest("GET", "/api/tenders"+q, "", testutils.ContractorIdentity(), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data listData
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	require.Equal(t, 6, data.Pagination.Total)
	require.Equal(t, 3, data.Pagination.Pages)
	require.Len(t, data.Tenders, 2)
	// ranks 3 and 4 of the in-range set
	require.Equal(t, 4000000.0, data.Tenders[0].EstimatedValue)
	require.Equal(t, 3000000.0, data.Tenders[1].EstimatedValue)
	for _, tv := range data.Tenders {
		require.GreaterOrEqual(t, tv.EstimatedValue, 1000000.0)
		require.LessOrEqual(t, tv.EstimatedValue, 9000000.0)
	}
}

func TestGetTendersHandlerSearchAndCategory(t *testing.T) {
	store := &MockStorage{}
	store.tenders = []models.Tender{
		{ID: uuid.New(), Title: "Rural ROAD widening", Category: models.CategoryConstruction, Status: models.TenderActive},
		{ID: uuid.New(), Title: "Office supplies", Department: "Roads and Bridges", Category: models.CategorySupply, Status: models.TenderActive},
		{ID: uuid.New(), Title: "Hospital beds", Category: models.CategorySupply, Status: models.TenderActive},
	}
	h := newHandler(store)

	list := func(q string) listData {
		w := httptest.NewRecorder()
		h.GetTendersHandler(w, newRequest("GET", "/api/tenders"+q, "", testutils.AdminIdentity(), nil))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var data listData
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
		return data
	}

	require.Equal(t, 2, list("?search=road").Pagination.Total)
	data := list("?search=road&category=SUPPLY")
	require.Equal(t, 1, data.Pagination.Total)
	require.Equal(t, "Office supplies", data.Tenders[0].Title)
}

func TestGetTendersHandlerHugePage(t *testing.T) {
	store := &MockStorage{}
	h := newHandler(store)

	w := httptest.NewRecorder()
	h.GetTendersHandler(w, newRequest("GET", "/api/tenders?page=184467440737095516&limit=100", "", testutils.AdminIdentity(), nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, []string{"page"}, detailFields(decode(t, w)))
	require.Zero(t, store.listTendersCalls)

	// the largest page whose offset still fits is accepted
	w = httptest.NewRecorder()
	h.GetTendersHandler(w, newRequest("GET", fmt.Sprintf("/api/tenders?page=%d&limit=100", math.MaxInt/100+1), "", testutils.AdminIdentity(), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
