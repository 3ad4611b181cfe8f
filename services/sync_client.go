package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"learning-portal-system/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is an authenticated backend session.
type Session struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// CompletionRow is one completion record as stored by the backend.
type CompletionRow struct {
	UserID      string    `json:"user_id,omitempty"`
	CourseID    string    `json:"course_id"`
	PathID      string    `json:"path_id"`
	ModuleID    string    `json:"module_id"`
	LessonID    string    `json:"lesson_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// SupabaseClient talks to the hosted backend: password auth, completion
// upsert/fetch, and achievement events. All calls are plain REST against the
// auth and PostgREST endpoints.
type SupabaseClient struct {
	BaseURL string
	AnonKey string
	Client  *http.Client
	log     *zap.SugaredLogger
}

func NewSupabaseClient(baseURL, anonKey string, log *zap.SugaredLogger) *SupabaseClient {
	return &SupabaseClient{
		BaseURL: baseURL,
		AnonKey: anonKey,
		Client:  utils.HTTPClient,
		log:     log,
	}
}

// Enabled reports whether a backend is configured at all. When false the
// portal runs purely on local state.
func (c *SupabaseClient) Enabled() bool {
	return c.BaseURL != "" && c.AnonKey != ""
}

// SignIn exchanges email/password for a session.
func (c *SupabaseClient) SignIn(ctx context.Context, email, password string) (*Session, error) {
	url := fmt.Sprintf("%s/auth/v1/token?grant_type=password", c.BaseURL)

	body, _ := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})

	respBody, err := c.do(ctx, http.MethodPost, url, "", body, nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		AccessToken string `json:"access_token"`
		User        struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("unexpected sign-in response: %w", err)
	}
	if out.AccessToken == "" || out.User.ID == "" {
		return nil, fmt.Errorf("sign-in response missing token or user id")
	}

	return &Session{
		UserID:      out.User.ID,
		Email:       out.User.Email,
		AccessToken: out.AccessToken,
		ExpiresAt:   tokenExpiry(out.AccessToken),
	}, nil
}

// tokenExpiry reads exp from the access token without verifying the signature;
// the backend remains the authority, this only drives local session display.
func tokenExpiry(token string) time.Time {
	claims := jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// FetchCompletions pulls every completion record of the session's user.
func (c *SupabaseClient) FetchCompletions(ctx context.Context, session *Session) ([]CompletionRow, error) {
	url := fmt.Sprintf("%s/rest/v1/course_progress?user_id=eq.%s&select=course_id,path_id,module_id,lesson_id,completed_at",
		c.BaseURL, session.UserID)

	respBody, err := c.do(ctx, http.MethodGet, url, session.AccessToken, nil, nil)
	if err != nil {
		return nil, err
	}

	var rows []CompletionRow
	if err := json.Unmarshal(respBody, &rows); err != nil {
		return nil, fmt.Errorf("unexpected completions response: %w", err)
	}
	return rows, nil
}

// UpsertCompletion mirrors one completion, keyed by (user, lesson position).
func (c *SupabaseClient) UpsertCompletion(ctx context.Context, session *Session, row CompletionRow) error {
	url := fmt.Sprintf("%s/rest/v1/course_progress", c.BaseURL)

	row.UserID = session.UserID
	body, _ := json.Marshal(row)

	_, err := c.do(ctx, http.MethodPost, url, session.AccessToken, body, map[string]string{
		"Prefer": "resolution=merge-duplicates",
	})
	return err
}

// TrackAchievement appends one achievement event.
func (c *SupabaseClient) TrackAchievement(ctx context.Context, session *Session, achievementType string, data map[string]string) error {
	url := fmt.Sprintf("%s/rest/v1/achievements", c.BaseURL)

	body, _ := json.Marshal(map[string]any{
		"id":               uuid.NewString(),
		"user_id":          session.UserID,
		"achievement_type": achievementType,
		"achievement_data": data,
	})

	_, err := c.do(ctx, http.MethodPost, url, session.AccessToken, body, nil)
	return err
}

func (c *SupabaseClient) do(ctx context.Context, method, url, bearer string, body []byte, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.AnonKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		c.log.Warnw("backend request failed", "method", method, "url", url,
			"status", resp.StatusCode, "body", string(respBody))
		return nil, fmt.Errorf("backend returned %d", resp.StatusCode)
	}
	return respBody, nil
}
