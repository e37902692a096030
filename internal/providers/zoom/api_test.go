package zoom

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type zoomStub struct {
	oauth *httptest.Server
	api   *httptest.Server

	tokenCalls  int64
	lastRequest struct {
		method string
		path   string
		body   map[string]any
	}

	expiresIn  int
	apiHandler http.HandlerFunc
}

func newZoomStub(t *testing.T) *zoomStub {
	t.Helper()
	s := &zoomStub{expiresIn: 3600}

	s.oauth = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&s.tokenCalls, 1)
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "account_credentials", r.Form.Get("grant_type"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-123",
			"token_type":   "bearer",
			"expires_in":   s.expiresIn,
		})
	}))
	t.Cleanup(s.oauth.Close)

	s.api = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.lastRequest.method = r.Method
		s.lastRequest.path = r.URL.Path
		s.lastRequest.body = nil
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&s.lastRequest.body)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if s.apiHandler != nil {
			s.apiHandler(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(s.api.Close)

	return s
}

func (s *zoomStub) client() *ZoomAPI {
	return &ZoomAPI{
		baseURL:      s.api.URL,
		oauthURL:     s.oauth.URL,
		accountID:    "acc",
		clientID:     "cid",
		clientSecret: "secret",
		http:         &http.Client{Timeout: 5 * time.Second},
	}
}

func TestTokenIsCachedAcrossCalls(t *testing.T) {
	s := newZoomStub(t)
	z := s.client()
	ctx := context.Background()

	require.NoError(t, z.Probe(ctx))
	require.NoError(t, z.Probe(ctx))
	assert.Equal(t, int64(1), atomic.LoadInt64(&s.tokenCalls))
}

func TestTokenRefreshedNearExpiry(t *testing.T) {
	s := newZoomStub(t)
	// expires_in equal to the early-refresh margin leaves no usable
	// lifetime, so the next call fetches a fresh token.
	s.expiresIn = int(tokenEarlyRefresh / time.Second)
	z := s.client()
	ctx := context.Background()

	require.NoError(t, z.Probe(ctx))
	require.NoError(t, z.Probe(ctx))
	assert.Equal(t, int64(2), atomic.LoadInt64(&s.tokenCalls))
}

func TestProbeReportsAPIFailure(t *testing.T) {
	s := newZoomStub(t)
	s.apiHandler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid access token"}`))
	}
	z := s.client()

	err := z.Probe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid access token")
}

func TestCreateMeeting(t *testing.T) {
	s := newZoomStub(t)
	s.apiHandler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":84512345678,"join_url":"https://zoom.example/j/84512345678","password":"x1y2z3"}`))
	}
	z := s.client()

	loc, err := time.LoadLocation("Asia/Bangkok")
	require.NoError(t, err)

	ref, err := z.Create(context.Background(), CreateMeetingInput{
		Topic:           "คุณ Somchai Tel: 0811111111",
		Start:           time.Date(2026, 9, 15, 9, 30, 0, 0, loc),
		DurationMinutes: 10,
		Timezone:        "Asia/Bangkok",
	})
	require.NoError(t, err)

	// numeric id survives as the decimal string
	assert.Equal(t, "84512345678", ref.ID)
	assert.Equal(t, "https://zoom.example/j/84512345678", ref.JoinURL)
	assert.Equal(t, "x1y2z3", ref.Password)

	assert.Equal(t, http.MethodPost, s.lastRequest.method)
	assert.Equal(t, "/users/me/meetings", s.lastRequest.path)
	assert.Equal(t, "Asia/Bangkok", s.lastRequest.body["timezone"])
	assert.Equal(t, float64(2), s.lastRequest.body["type"])
	settings, ok := s.lastRequest.body["settings"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, settings["waiting_room"])
}

func TestCreateMeetingAPIError(t *testing.T) {
	s := newZoomStub(t)
	s.apiHandler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"rate limited"}`))
	}
	z := s.client()

	_, err := z.Create(context.Background(), CreateMeetingInput{Topic: "t", Start: time.Now(), DurationMinutes: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestDeleteTreatsNotFoundAsSuccess(t *testing.T) {
	s := newZoomStub(t)
	s.apiHandler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Meeting does not exist"}`))
	}
	z := s.client()

	assert.NoError(t, z.Delete(context.Background(), "84512345678"))
	assert.Equal(t, http.MethodDelete, s.lastRequest.method)
	assert.Equal(t, "/meetings/84512345678", s.lastRequest.path)
}

func TestUpdateMeeting(t *testing.T) {
	s := newZoomStub(t)
	s.apiHandler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
	z := s.client()

	start := time.Date(2026, 9, 16, 10, 0, 0, 0, time.UTC)
	require.NoError(t, z.Update(context.Background(), "123", start, 15))
	assert.Equal(t, http.MethodPatch, s.lastRequest.method)
	assert.Equal(t, "/meetings/123", s.lastRequest.path)
	assert.Equal(t, float64(15), s.lastRequest.body["duration"])
}

func TestNewZoomAPIRequiresCredentials(t *testing.T) {
	t.Setenv("ZOOM_ACCOUNT_ID", "")
	t.Setenv("ZOOM_CLIENT_ID", "")
	t.Setenv("ZOOM_CLIENT_SECRET", "")

	_, err := NewZoomAPI()
	require.Error(t, err)
}
