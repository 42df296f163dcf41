package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"reflect"
	"time"

	"tenderportal/internal/apperr"
	"tenderportal/internal/auth"
	"tenderportal/internal/cache"
	"tenderportal/internal/mail"
	"tenderportal/internal/notify"
	"tenderportal/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

// Deps are the collaborators of Handler. Zero fields get working defaults,
// except Tokens which login requires.
type Deps struct {
	Tokens     *auth.TokenIssuer
	Identities auth.IdentityProvider
	Cache      *cache.TenderCache
	Dispatcher notify.Dispatcher
	Mailer     mail.Mailer
	Documents  storage.DocumentStore
	BcryptCost int
}

// Handler serves the portal API over Store.
type Handler struct {
	Store      StorageInterface
	tokens     *auth.TokenIssuer
	identities auth.IdentityProvider
	cache      *cache.TenderCache
	dispatcher notify.Dispatcher
	mailer     mail.Mailer
	documents  storage.DocumentStore
	bcryptCost int
	now        func() time.Time
}

func NewHandler(store StorageInterface, deps Deps) *Handler {
	h := &Handler{
		Store:      store,
		tokens:     deps.Tokens,
		identities: deps.Identities,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
		mailer:     deps.Mailer,
		documents:  deps.Documents,
		bcryptCost: deps.BcryptCost,
		now:        time.Now,
	}
	if h.identities == nil {
		h.identities = auth.NewDatabaseProvider(store)
	}
	if h.dispatcher == nil {
		h.dispatcher = notify.NewInlineDispatcher(notify.NewNotifier(store))
	}
	if h.mailer == nil {
		h.mailer = mail.LogMailer{}
	}
	if h.bcryptCost == 0 {
		h.bcryptCost = 12
	}
	return h
}

// PingHandler answers "ok" while the database is reachable.
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		log.Printf("Ping: database unavailable: %v", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type successBody struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

type errorBody struct {
	Success bool                `json:"success"`
	Error   string              `json:"error"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func newPagination(page, limit, total int) pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeSuccess(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, successBody{Success: true, Data: data, Message: message})
}

// writeError reports err to the client. Internal causes are logged, never sent.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.From(err)
	if e.Kind == apperr.KindInternal {
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, e.Status(), errorBody{Error: e.Message, Details: e.Details})
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return apperr.Validation([]apperr.FieldError{{
				Field:   typeErr.Field,
				Message: typeErr.Field + " must be " + kindName(typeErr.Type),
			}})
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.InvalidRequest("Request body too large")
		}
		return apperr.InvalidRequest("Invalid JSON format")
	}
	return nil
}

func kindName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.Slice, reflect.Array:
		return "an array"
	default:
		return "a valid value"
	}
}

func urlUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.InvalidRequest("Invalid " + name)
	}
	return id, nil
}
