package zoom

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// tokenEarlyRefresh renews the cached credential this long before its
// declared expiry.
const tokenEarlyRefresh = 60 * time.Second

// ZoomAPI talks to Zoom with Server-to-Server OAuth. The access token is
// cached per client and refreshed proactively.
type ZoomAPI struct {
	baseURL  string
	oauthURL string

	accountID    string
	clientID     string
	clientSecret string

	http *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewZoomAPI() (*ZoomAPI, error) {
	accountID := os.Getenv("ZOOM_ACCOUNT_ID")
	clientID := os.Getenv("ZOOM_CLIENT_ID")
	clientSecret := os.Getenv("ZOOM_CLIENT_SECRET")
	if accountID == "" || clientID == "" || clientSecret == "" {
		return nil, errors.New("missing Zoom OAuth credentials: set ZOOM_ACCOUNT_ID, ZOOM_CLIENT_ID, ZOOM_CLIENT_SECRET")
	}
	return &ZoomAPI{
		baseURL:      "https://api.zoom.us/v2",
		oauthURL:     "https://zoom.us/oauth/token",
		accountID:    accountID,
		clientID:     clientID,
		clientSecret: clientSecret,
		http:         &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type oauthTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

func (z *ZoomAPI) token(ctx context.Context) (string, error) {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.accessToken != "" && time.Now().Before(z.tokenExpiry) {
		return z.accessToken, nil
	}

	form := url.Values{
		"grant_type": {"account_credentials"},
		"account_id": {z.accountID},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, z.oauthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(z.clientID + ":" + z.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := z.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("zoom oauth: %s", readAPIError(resp))
	}

	var tok oauthTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", err
	}

	z.accessToken = tok.AccessToken
	z.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - tokenEarlyRefresh)
	return z.accessToken, nil
}

func (z *ZoomAPI) Probe(ctx context.Context) error {
	resp, err := z.do(ctx, http.MethodGet, "/users/me", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("zoom probe: %s", readAPIError(resp))
	}
	return nil
}

func (z *ZoomAPI) Create(ctx context.Context, in CreateMeetingInput) (*MeetingRef, error) {
	tz := in.Timezone
	if tz == "" {
		tz = "Asia/Bangkok"
	}
	body := map[string]any{
		"topic":      in.Topic,
		"type":       2, // scheduled meeting
		"start_time": in.Start.UTC().Format(time.RFC3339),
		"duration":   in.DurationMinutes,
		"timezone":   tz,
		"settings": map[string]any{
			"host_video":                     true,
			"participant_video":              true,
			"join_before_host":               false,
			"mute_upon_entry":                true,
			"watermark":                      false,
			"use_pmi":                        false,
			"approval_type":                  0,
			"audio":                          "both",
			"auto_recording":                 "none",
			"waiting_room":                   true,
			"allow_multiple_devices":         true,
			"meeting_authentication":         false,
			"registrants_email_notification": false,
		},
	}

	resp, err := z.do(ctx, http.MethodPost, "/users/me/meetings", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("zoom create meeting: %s", readAPIError(resp))
	}

	var created struct {
		ID       json.Number `json:"id"`
		JoinURL  string      `json:"join_url"`
		Password string      `json:"password"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, err
	}
	return &MeetingRef{
		ID:       created.ID.String(),
		JoinURL:  created.JoinURL,
		Password: created.Password,
	}, nil
}

func (z *ZoomAPI) Update(ctx context.Context, meetingID string, start time.Time, durationMinutes int) error {
	body := map[string]any{
		"start_time": start.UTC().Format(time.RFC3339),
		"duration":   durationMinutes,
	}
	resp, err := z.do(ctx, http.MethodPatch, "/meetings/"+meetingID, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("zoom update meeting: %s", readAPIError(resp))
	}
	return nil
}

func (z *ZoomAPI) Delete(ctx context.Context, meetingID string) error {
	resp, err := z.do(ctx, http.MethodDelete, "/meetings/"+meetingID, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	// not-found counts as deleted
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("zoom delete meeting: %s", readAPIError(resp))
	}
	return nil
}

func (z *ZoomAPI) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	tok, err := z.token(ctx)
	if err != nil {
		return nil, err
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rdr = strings.NewReader(string(b))
	}

	req, err := http.NewRequestWithContext(ctx, method, z.baseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return z.http.Do(req)
}

func readAPIError(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &apiErr) == nil {
		if apiErr.Message != "" {
			return fmt.Sprintf("%d: %s", resp.StatusCode, apiErr.Message)
		}
		if apiErr.Error != "" {
			return fmt.Sprintf("%d: %s", resp.StatusCode, apiErr.Error)
		}
	}
	return fmt.Sprintf("%d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}
