package notifyapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/clinicops/notifysync/pkg/logger"
	"github.com/clinicops/notifysync/pkg/notifications"
	"github.com/clinicops/notifysync/pkg/requestid"
)

// UserHeader identifies the inbox owner. Authentication is left to a proxy in
// front of the service.
const UserHeader = "X-User-ID"

const (
	defaultListLimit = 50
	maxListLimit     = 500
	maxRequestBytes  = 64 << 10
)

// Response is the JSON envelope of every answer with a body.
type Response struct {
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type handler struct {
	storage notifications.Storage
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// HandlerOption configures the REST handler.
type HandlerOption func(*handler)

// WithHandlerLogger sets the logger for storage failures.
func WithHandlerLogger(l *slog.Logger) HandlerOption {
	return func(h *handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithClock pins the creation time of new notifications.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *handler) {
		if now != nil {
			h.now = now
		}
	}
}

// Handler exposes storage over the notification REST routes:
//
//	GET    /notifications?limit=&offset=&unread=&type=
//	POST   /notifications
//	GET    /notifications/unread-count
//	PATCH  /notifications/read-all
//	GET    /notifications/{id}
//	DELETE /notifications/{id}
//	PATCH  /notifications/{id}/read
//
// Every route requires the X-User-ID header.
func Handler(storage notifications.Storage, opts ...HandlerOption) http.Handler {
	h := &handler{
		storage: storage,
		logger:  slog.Default(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(logger.Component("notifyapi.handler"))

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.Recoverer)

	r.Route("/notifications", func(r chi.Router) {
		r.Use(requireUser)

		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/unread-count", h.unreadCount)
		r.Patch("/read-all", h.markAllRead)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Delete("/", h.delete)
			r.Patch("/read", h.markRead)
		})
	})

	return r
}

type userKey struct{}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserHeader))
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing_user", ErrMissingUser)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), userID)))
	})
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", err)
		return
	}

	items, err := h.storage.List(r.Context(), userFrom(r.Context()), opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Data: nonNil(items)})
}

func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", ErrInvalidPayload)
		return
	}
	var rec notifications.Record
	if err := json.Unmarshal(body, &rec); err != nil || rec == nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", ErrInvalidPayload)
		return
	}

	// Creation payloads get the same lenient field mapping as responses.
	parsed := notifications.Normalize(rec)
	if parsed.Title == "" && parsed.Message == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", ErrEmptyContent)
		return
	}

	in := notifications.Input{
		Title:             parsed.Title,
		Message:           parsed.Message,
		Type:              parsed.Type,
		Priority:          parsed.Priority,
		Category:          parsed.Category,
		UserID:            userFrom(r.Context()),
		PhoneNotification: parsed.PhoneNotification,
	}
	n := in.Notification(h.newID(), h.now().UTC())

	if err := h.storage.Create(r.Context(), n); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Response{Data: n})
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	n, err := h.storage.Get(r.Context(), userFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Data: n})
}

func (h *handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.Delete(r.Context(), userFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) markRead(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.MarkRead(r.Context(), userFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.MarkAllRead(r.Context(), userFrom(r.Context())); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.storage.CountUnread(r.Context(), userFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Data: map[string]int{"count": count}})
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, notifications.ErrNotificationNotFound) {
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	}

	h.logger.LogAttrs(r.Context(), slog.LevelError, "Notification storage call failed",
		logger.UserID(userFrom(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		logger.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal_error", errors.New(http.StatusText(http.StatusInternalServerError)))
}

func listOptions(r *http.Request) (notifications.ListOptions, error) {
	q := r.URL.Query()
	opts := notifications.ListOptions{Limit: defaultListLimit}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, errors.New("limit must be a non-negative integer")
		}
		opts.Limit = min(n, maxListLimit)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, errors.New("offset must be a non-negative integer")
		}
		opts.Offset = n
	}
	if v := q.Get("unread"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.New("unread must be a boolean")
		}
		opts.OnlyUnread = b
	}
	for _, t := range q["type"] {
		typ := notifications.Type(strings.ToLower(t))
		if !typ.Valid() {
			return opts, errors.New("unknown notification type " + strconv.Quote(t))
		}
		opts.Types = append(opts.Types, typ)
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return opts, errors.New("since must be an RFC 3339 timestamp")
		}
		opts.Since = &since
	}
	return opts, nil
}

func nonNil(items []notifications.Notification) []notifications.Notification {
	if items == nil {
		return []notifications.Notification{}
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, Response{Error: &ErrorDetail{Code: code, Message: err.Error()}})
}
