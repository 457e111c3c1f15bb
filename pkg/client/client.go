// Package client talks to the authflow HTTP API and caches the session
// (token and user) between calls.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DefaultBaseURL matches the server's default port and route prefix.
const DefaultBaseURL = "http://localhost:5000/api/auth"

const defaultTimeout = 10 * time.Second

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type AuthResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token"`
	User    *User  `json:"user"`
}

type UserResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	User    *User  `json:"user"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is the server's error body, or a default message when the server
// could not be reached or answered with something else.
type APIError struct {
	Status  int          `json:"-"`
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
	Err     error        `json:"-"`
}

func (e *APIError) Error() string { return e.Message }

func (e *APIError) Unwrap() error { return e.Err }

type Client struct {
	baseURL string
	http    *fiber.Client
	store   SessionStore
	timeout time.Duration
}

type Option func(*Client)

// WithTimeout bounds each request when the context has no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func New(baseURL string, store SessionStore, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if store == nil {
		store = NewMemoryStore()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &fiber.Client{JSONEncoder: json.Marshal, JSONDecoder: json.Unmarshal},
		store:   store,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register creates an account. The session is not touched: callers log in afterwards.
func (c *Client) Register(ctx context.Context, username, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, fiber.MethodPost, "/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &out, "Registration failed")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Login authenticates and stores token and user in the session.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, fiber.MethodPost, "/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out, "Login failed")
	if err != nil {
		return nil, err
	}
	if out.Token != "" {
		if err := c.store.Set(KeyToken, out.Token); err != nil {
			return nil, err
		}
		raw, err := json.Marshal(out.User)
		if err != nil {
			return nil, err
		}
		if err := c.store.Set(KeyUser, string(raw)); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

// VerifyToken checks the stored token. Any failure clears the session.
func (c *Client) VerifyToken(ctx context.Context) (*UserResponse, error) {
	var out UserResponse
	if err := c.do(ctx, fiber.MethodGet, "/verify", nil, &out, "Token verification failed"); err != nil {
		_ = c.Logout()
		return nil, err
	}
	return &out, nil
}

func (c *Client) Profile(ctx context.Context) (*UserResponse, error) {
	var out UserResponse
	if err := c.do(ctx, fiber.MethodGet, "/profile", nil, &out, "Failed to fetch profile"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout forgets the session locally; tokens are stateless so the server is not called.
func (c *Client) Logout() error {
	return errors.Join(c.store.Remove(KeyToken), c.store.Remove(KeyUser))
}

func (c *Client) IsAuthenticated() bool {
	token, err := c.store.Get(KeyToken)
	return err == nil && token != ""
}

// CurrentUser returns the cached user, or nil when absent or unreadable.
func (c *Client) CurrentUser() *User {
	raw, err := c.store.Get(KeyUser)
	if err != nil || raw == "" {
		return nil
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil
	}
	return &u
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, fallback string) error {
	if err := ctx.Err(); err != nil {
		return &APIError{Message: fallback, Err: err}
	}

	var a *fiber.Agent
	switch method {
	case fiber.MethodPost:
		a = c.http.Post(c.baseURL + path)
	default:
		a = c.http.Get(c.baseURL + path)
	}
	a.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token, err := c.store.Get(KeyToken); err == nil && token != "" {
		a.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	if body != nil {
		a.JSON(body)
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	a.Timeout(timeout)

	if err := a.Parse(); err != nil {
		return &APIError{Message: fallback, Err: err}
	}
	status, raw, errs := a.Bytes()
	if len(errs) > 0 {
		return &APIError{Message: fallback, Err: errors.Join(errs...)}
	}

	if status >= fiber.StatusBadRequest {
		apiErr := &APIError{Status: status}
		if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
			return &APIError{Status: status, Message: fallback, Err: err}
		}
		return apiErr
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Status: status, Message: fallback, Err: err}
	}
	return nil
}
