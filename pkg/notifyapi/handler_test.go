package notifyapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/clinicops/notifysync/pkg/logger"
	"github.com/clinicops/notifysync/pkg/notifications"
	"github.com/clinicops/notifysync/pkg/notifyapi"
	"github.com/clinicops/notifysync/pkg/requestid"
)

var testNow = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func newHandler(storage notifications.Storage) http.Handler {
	return notifyapi.Handler(storage,
		notifyapi.WithHandlerLogger(logger.Discard()),
		notifyapi.WithClock(func() time.Time { return testNow }),
	)
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set(notifyapi.UserHeader, "u1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var resp struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Data
}

func seeded(t *testing.T) *notifications.MemoryStorage {
	t.Helper()
	s := notifications.NewMemoryStorage()
	for i, n := range []notifications.Notification{
		{ID: "n1", Title: "Lab result", Type: notifications.TypeInfo, Date: testNow.Add(-2 * time.Hour)},
		{ID: "n2", Title: "Payment failed", Type: notifications.TypeError, Read: true, Date: testNow.Add(-time.Hour)},
		{ID: "n3", Title: "Shift reminder", Type: notifications.TypeWarning, Date: testNow},
	} {
		n.UserID = "u1"
		require.NoError(t, s.Create(context.Background(), n), i)
	}
	return s
}

func TestHandler_RequiresUser(t *testing.T) {
	t.Parallel()

	h := newHandler(notifications.NewMemoryStorage())
	req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"missing_user"`)
	assert.NotEmpty(t, rec.Header().Get(requestid.Header))
}

func TestHandler_List(t *testing.T) {
	t.Parallel()

	h := newHandler(seeded(t))

	tests := []struct {
		name   string
		target string
		code   int
		want   []string
	}{
		{name: "newest first", target: "/notifications", code: http.StatusOK, want: []string{"n3", "n2", "n1"}},
		{name: "limit", target: "/notifications?limit=1", code: http.StatusOK, want: []string{"n3"}},
		{name: "offset", target: "/notifications?limit=1&offset=1", code: http.StatusOK, want: []string{"n2"}},
		{name: "unread", target: "/notifications?unread=true", code: http.StatusOK, want: []string{"n3", "n1"}},
		{name: "type filter", target: "/notifications?type=error&type=info", code: http.StatusOK, want: []string{"n2", "n1"}},
		{name: "since", target: "/notifications?since=2025-06-01T07:30:00Z", code: http.StatusOK, want: []string{"n3"}},
		{name: "bad limit", target: "/notifications?limit=abc", code: http.StatusBadRequest},
		{name: "bad type", target: "/notifications?type=critical", code: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := doRequest(t, h, http.MethodGet, tt.target, "")
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			if tt.code != http.StatusOK {
				return
			}
			var got []string
			for _, n := range decodeData[[]notifications.Notification](t, rec) {
				got = append(got, n.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandler_ListEmpty(t *testing.T) {
	t.Parallel()

	rec := doRequest(t, newHandler(notifications.NewMemoryStorage()), http.MethodGet, "/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestHandler_Create(t *testing.T) {
	t.Parallel()

	t.Run("stores with owner from header", func(t *testing.T) {
		t.Parallel()
		storage := notifications.NewMemoryStorage()
		h := newHandler(storage)

		rec := doRequest(t, h, http.MethodPost, "/notifications",
			`{"title":" Referral ","type":"success","priority":"high","userId":"someone-else"}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		n := decodeData[notifications.Notification](t, rec)
		assert.NotEmpty(t, n.ID)
		assert.Equal(t, "Referral", n.Title)
		assert.Equal(t, notifications.TypeSuccess, n.Type)
		assert.Equal(t, notifications.PriorityHigh, n.Priority)
		assert.Equal(t, notifications.DefaultCategory, n.Category)
		assert.Equal(t, "u1", n.UserID)
		assert.True(t, testNow.Equal(n.Date))
		assert.False(t, n.Read)

		stored, err := storage.Get(context.Background(), "u1", n.ID)
		require.NoError(t, err)
		assert.Equal(t, "Referral", stored.Title)
	})

	t.Run("accepts alternate field names", func(t *testing.T) {
		t.Parallel()
		rec := doRequest(t, newHandler(notifications.NewMemoryStorage()), http.MethodPost, "/notifications",
			`{"subject":"Heads up","body":"Room 4 is closed","level":"warning"}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		n := decodeData[notifications.Notification](t, rec)
		assert.Equal(t, "Heads up", n.Title)
		assert.Equal(t, "Room 4 is closed", n.Message)
		assert.Equal(t, notifications.TypeWarning, n.Type)
	})

	t.Run("rejects invalid payloads", func(t *testing.T) {
		t.Parallel()
		h := newHandler(notifications.NewMemoryStorage())

		rec := doRequest(t, h, http.MethodPost, "/notifications", `{"title":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doRequest(t, h, http.MethodPost, "/notifications", `[]`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doRequest(t, h, http.MethodPost, "/notifications", `{"type":"info"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code":"validation_error"`)
	})
}

func TestHandler_Entity(t *testing.T) {
	t.Parallel()

	storage := seeded(t)
	h := newHandler(storage)

	rec := doRequest(t, h, http.MethodGet, "/notifications/n1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Lab result", decodeData[notifications.Notification](t, rec).Title)

	rec = doRequest(t, h, http.MethodGet, "/notifications/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/notifications/unread-count", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decodeData[map[string]int](t, rec)["count"])

	rec = doRequest(t, h, http.MethodPatch, "/notifications/n1/read", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	n, err := storage.Get(context.Background(), "u1", "n1")
	require.NoError(t, err)
	assert.True(t, n.Read)

	rec = doRequest(t, h, http.MethodPatch, "/notifications/read-all", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	count, _ := storage.CountUnread(context.Background(), "u1")
	assert.Equal(t, 0, count)

	rec = doRequest(t, h, http.MethodDelete, "/notifications/n2", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	_, err = storage.Get(context.Background(), "u1", "n2")
	assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)
}

// MockStorage is a mock implementation of notifications.Storage.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Create(ctx context.Context, n notifications.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *MockStorage) Get(ctx context.Context, userID, id string) (*notifications.Notification, error) {
	args := m.Called(ctx, userID, id)
	if n := args.Get(0); n != nil {
		return n.(*notifications.Notification), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) List(ctx context.Context, userID string, opts notifications.ListOptions) ([]notifications.Notification, error) {
	args := m.Called(ctx, userID, opts)
	if items := args.Get(0); items != nil {
		return items.([]notifications.Notification), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) MarkRead(ctx context.Context, userID string, ids ...string) error {
	return m.Called(ctx, userID, ids).Error(0)
}

func (m *MockStorage) MarkAllRead(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockStorage) Delete(ctx context.Context, userID string, ids ...string) error {
	return m.Called(ctx, userID, ids).Error(0)
}

func (m *MockStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func TestHandler_StorageFailureHidesDetails(t *testing.T) {
	t.Parallel()

	storage := new(MockStorage)
	storage.On("List", mock.Anything, "u1", mock.Anything).Return(nil, errors.New("pq: connection refused"))

	rec := doRequest(t, newHandler(storage), http.MethodGet, "/notifications", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
	storage.AssertExpectations(t)
}
