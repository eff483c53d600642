package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kakomonhub/api/internal/domain/entity"
)

// AdminClient talks to the Supabase Auth (GoTrue) REST API. Admin endpoints
// are hit with the service-role key; the public verify and token endpoints
// use the anon key, matching what the browser client would send.
type AdminClient struct {
	baseURL    string
	anonKey    string
	serviceKey string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewAdminClient(baseURL, anonKey, serviceKey string, logger *logrus.Logger) *AdminClient {
	return &AdminClient{
		baseURL:    baseURL,
		anonKey:    anonKey,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// APIError is a non-2xx answer from GoTrue.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase auth: status %d: %s", e.Status, e.Message)
}

// User is the GoTrue user record shape.
type User struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at"`
	UserMetadata     map[string]any `json:"user_metadata"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Identity converts the wire record into the typed domain view.
func (u *User) Identity() *entity.Identity {
	return &entity.Identity{
		ID:          u.ID,
		Email:       u.Email,
		ConfirmedAt: u.EmailConfirmedAt,
		Metadata:    entity.ParseMetadata(u.UserMetadata),
		CreatedAt:   u.CreatedAt,
	}
}

// Session is the token pair issued by GoTrue.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         *User  `json:"user"`
}

// GeneratedLink is the answer of the admin generate_link endpoint.
type GeneratedLink struct {
	ActionLink string `json:"action_link"`
	EmailOTP   string `json:"email_otp"`
	HashedTok  string `json:"hashed_token"`
}

// ListUsersByEmail returns the identities registered under an email address.
func (c *AdminClient) ListUsersByEmail(ctx context.Context, email string) ([]*User, error) {
	endpoint := c.baseURL + "/auth/v1/admin/users?email=" + url.QueryEscape(email)
	var out struct {
		Users []*User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, c.serviceKey, nil, &out); err != nil {
		return nil, err
	}
	// Older GoTrue versions match the filter loosely; keep exact matches only.
	res := make([]*User, 0, len(out.Users))
	for _, u := range out.Users {
		if u.Email == email {
			res = append(res, u)
		}
	}
	return res, nil
}

// ListUsers pages through every identity. perPage follows GoTrue's own cap.
func (c *AdminClient) ListUsers(ctx context.Context, page, perPage int) ([]*User, error) {
	endpoint := fmt.Sprintf("%s/auth/v1/admin/users?page=%d&per_page=%d", c.baseURL, page, perPage)
	var out struct {
		Users []*User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, c.serviceKey, nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// CreateUser registers a fresh unconfirmed identity with the given metadata bag.
func (c *AdminClient) CreateUser(ctx context.Context, email string, metadata map[string]any) (*User, error) {
	body := map[string]any{
		"email":         email,
		"email_confirm": false,
		"user_metadata": metadata,
	}
	var u User
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/auth/v1/admin/users", c.serviceKey, body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteUser removes an identity; used to reclaim abandoned unconfirmed signups.
func (c *AdminClient) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.baseURL+"/auth/v1/admin/users/"+id, c.serviceKey, nil, nil)
}

// ConfirmEmail explicitly sets the email-confirmed timestamp. Some provider
// code paths do not set it atomically with OTP consumption, so callers write
// it again after a successful verification.
func (c *AdminClient) ConfirmEmail(ctx context.Context, id string) error {
	body := map[string]any{"email_confirm": true}
	return c.do(ctx, http.MethodPut, c.baseURL+"/auth/v1/admin/users/"+id, c.serviceKey, body, nil)
}

// UpdateUserMetadata replaces the identity's metadata bag.
func (c *AdminClient) UpdateUserMetadata(ctx context.Context, id string, metadata map[string]any) error {
	body := map[string]any{"user_metadata": metadata}
	return c.do(ctx, http.MethodPut, c.baseURL+"/auth/v1/admin/users/"+id, c.serviceKey, body, nil)
}

// GenerateLink asks GoTrue for a signup confirmation link plus the matching
// email OTP, without dispatching any email.
func (c *AdminClient) GenerateLink(ctx context.Context, email, redirectTo string) (*GeneratedLink, error) {
	body := map[string]any{
		"type":  "signup",
		"email": email,
	}
	if redirectTo != "" {
		body["redirect_to"] = redirectTo
	}
	var link GeneratedLink
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/auth/v1/admin/generate_link", c.serviceKey, body, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

// VerifyOTP consumes a signup OTP through the public verify endpoint and
// returns the session GoTrue issues on success.
func (c *AdminClient) VerifyOTP(ctx context.Context, email, token string) (*Session, error) {
	body := map[string]any{
		"type":  "signup",
		"email": email,
		"token": token,
	}
	var s Session
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/auth/v1/verify", c.anonKey, body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ExchangeCode trades a callback auth code for a session.
func (c *AdminClient) ExchangeCode(ctx context.Context, code string) (*Session, error) {
	body := map[string]any{"auth_code": code}
	var s Session
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/auth/v1/token?grant_type=pkce", c.anonKey, body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *AdminClient) do(ctx context.Context, method, endpoint, key string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", key)
	req.Header.Set("Authorization", "Bearer "+key)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call supabase auth: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: parseErrMessage(raw)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		if c.logger != nil {
			c.logger.WithFields(logrus.Fields{
				"endpoint":    endpoint,
				"status_code": resp.StatusCode,
			}).Error("failed to parse supabase auth response")
		}
		return fmt.Errorf("parse supabase auth response: %w", err)
	}
	return nil
}

// parseErrMessage digs the human message out of GoTrue's error body, which
// has changed field names across versions.
func parseErrMessage(raw []byte) string {
	var e struct {
		Msg       string `json:"msg"`
		Message   string `json:"message"`
		ErrorDesc string `json:"error_description"`
	}
	if err := json.Unmarshal(raw, &e); err == nil {
		switch {
		case e.Msg != "":
			return e.Msg
		case e.Message != "":
			return e.Message
		case e.ErrorDesc != "":
			return e.ErrorDesc
		}
	}
	return string(raw)
}

// IsStatus reports whether err is a GoTrue answer with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
