// Package client is the Go client for the CourseHub JSON API. It keeps the
// session cookie between calls and turns error responses back into the
// apperror kinds the server started from, so callers can use errors.Is the
// same way on both sides of the wire.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/coursehub/internal/apperror"
	"github.com/sakif/coursehub/internal/model"
)

// DefaultTimeout bounds each call. Expiry is reported as unavailable.
const DefaultTimeout = 10 * time.Second

const (
	sessionCookie     = "token"
	idempotencyHeader = "Idempotency-Key"
)

type Client struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client. Its Jar, if nil, is
// replaced with a fresh cookie jar.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for the server at baseURL, e.g.
// "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("client: invalid base URL %q", baseURL)
	}

	c := &Client{
		base:   base,
		http:   &http.Client{Timeout: DefaultTimeout},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("client: creating cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	return c, nil
}

// Token returns the current session token, or "" when signed out. The CLI
// saves it between runs.
func (c *Client) Token() string {
	for _, ck := range c.http.Jar.Cookies(c.base) {
		if ck.Name == sessionCookie {
			return ck.Value
		}
	}
	return ""
}

// SetToken restores a saved session.
func (c *Client) SetToken(token string) {
	c.http.Jar.SetCookies(c.base, []*http.Cookie{{Name: sessionCookie, Value: token, Path: "/"}})
}

// --- auth ---

func (c *Client) SignUp(ctx context.Context, name, email, password string) (model.Principal, error) {
	var p model.Principal
	err := c.do(ctx, http.MethodPost, "/api/auth/signup", nil, map[string]string{
		"name": name, "email": email, "password": password,
	}, &p)
	return p, err
}

func (c *Client) SignIn(ctx context.Context, email, password string) (model.Principal, error) {
	var p model.Principal
	err := c.do(ctx, http.MethodPost, "/api/auth/signin", nil, map[string]string{
		"email": email, "password": password,
	}, &p)
	return p, err
}

func (c *Client) SignOut(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/signout", nil, nil, nil)
}

// Session returns the signed-in principal, or an Unauthorized error.
func (c *Client) Session(ctx context.Context) (model.Principal, error) {
	var p model.Principal
	err := c.do(ctx, http.MethodGet, "/api/auth/session", nil, nil, &p)
	return p, err
}

// --- reviews ---

func (c *Client) ListAllReviews(ctx context.Context) ([]model.Review, error) {
	var out []model.Review
	err := c.do(ctx, http.MethodGet, "/api/review", nil, nil, &out)
	return out, err
}

func (c *Client) ListReviewsByUser(ctx context.Context, userID int64) ([]model.Review, error) {
	var out []model.Review
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/review/%d", userID), nil, nil, &out)
	return out, err
}

func (c *Client) ListAllCourses(ctx context.Context) ([]model.Course, error) {
	var out []model.Course
	err := c.do(ctx, http.MethodGet, "/api/course", nil, nil, &out)
	return out, err
}

// CreateReview posts a review as userID. A non-empty idempotencyKey makes
// retries with the same key return the first review.
func (c *Client) CreateReview(ctx context.Context, userID int64, courseName string, rating int, comment, idempotencyKey string) (*model.Review, error) {
	var hdr http.Header
	if idempotencyKey != "" {
		hdr = http.Header{idempotencyHeader: []string{idempotencyKey}}
	}
	var out model.Review
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/review/%d", userID), hdr, map[string]any{
		"course_name": courseName,
		"rating":      rating,
		"content":     comment,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateReview(ctx context.Context, userID, reviewID int64, rating int, comment string) (*model.Review, error) {
	var out model.Review
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/review/%d", userID), nil, map[string]any{
		"reviewId": reviewID,
		"rating":   rating,
		"comment":  comment,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteReview(ctx context.Context, userID, reviewID int64) error {
	path := fmt.Sprintf("/api/review/%d?reviewId=%d", userID, reviewID)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// --- users ---

func (c *Client) GetUser(ctx context.Context, id int64) (model.PublicUser, error) {
	var u model.PublicUser
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/user/%d", id), nil, nil, &u)
	return u, err
}

func (c *Client) UpdateUser(ctx context.Context, id int64, name, image string) (model.PublicUser, error) {
	var u model.PublicUser
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/user/%d", id), nil, map[string]string{
		"name": name, "image": image,
	}, &u)
	return u, err
}

// do sends one request. in (if non-nil) is sent as JSON; a 2xx body is
// decoded into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, hdr http.Header, in, out any) error {
	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("client: bad path %q: %w", path, err)
	}
	u := c.base.ResolveReference(ref)

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encoding %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("client: building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header[k] = v
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		// Timeouts, refused connections and cancelled contexts all mean the
		// caller should try again later.
		return apperror.Unavailable(err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperror.Unavailable(fmt.Errorf("client: decoding %s %s: %w", method, path, err))
	}
	return nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// decodeError rebuilds the AppError the server reported.
func decodeError(resp *http.Response) error {
	var e errorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &e); err != nil || e.Error == "" {
		e.Message = strings.TrimSpace(string(raw))
		if e.Message == "" {
			e.Message = resp.Status
		}
	}

	switch {
	case e.Error == "validation_error" || (e.Error == "" && resp.StatusCode == http.StatusBadRequest):
		return apperror.ValidationFailed("", e.Message)
	case e.Error == "unauthorized" || resp.StatusCode == http.StatusUnauthorized:
		return apperror.Unauthorized(e.Message)
	case e.Error == "forbidden" || resp.StatusCode == http.StatusForbidden:
		return apperror.Forbidden(e.Message)
	case e.Error == "not_found" || resp.StatusCode == http.StatusNotFound:
		return &apperror.AppError{Err: apperror.ErrNotFound, Message: e.Message}
	case e.Error == "conflict" || resp.StatusCode == http.StatusConflict:
		return apperror.Conflict(e.Message)
	}
	// storage_unavailable, internal_error and anything unexpected
	return apperror.Unavailable(&StatusError{Code: resp.StatusCode, Kind: e.Error, Message: e.Message})
}

// StatusError is the cause recorded for server-side failures.
type StatusError struct {
	Code    int
	Kind    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d %s: %s", e.Code, e.Kind, e.Message)
}

// IsUnavailable reports whether err means "try again later".
func IsUnavailable(err error) bool {
	return errors.Is(err, apperror.ErrUnavailable)
}
