// Package client provides a Go client for the NullTasker REST API.
//
// The client stores the access/refresh token pair in a TokenStore and
// transparently refreshes an expired access token once per request
// before giving up with ErrSessionExpired.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrSessionExpired is returned when the stored credentials are
// missing, invalid, or could not be refreshed. The caller should log
// in again.
var ErrSessionExpired = errors.New("session expired, log in again")

// APIError is a structured error returned by the server.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// User mirrors the server's user representation.
type User struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"display_name"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	Projects    []string   `json:"projects"`
	LastLogin   *time.Time `json:"last_login"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Project mirrors the server's project representation.
type Project struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Owner       string   `json:"owner"`
	Members     []string `json:"members"`
}

// Ticket mirrors the server's ticket representation.
type Ticket struct {
	ID          string   `json:"id"`
	Project     string   `json:"project"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Assignee    string   `json:"assignee"`
	Category    string   `json:"category"`
	Priority    string   `json:"priority"`
	Status      string   `json:"status"`
	Progress    int      `json:"progress"`
	StartDate   *string  `json:"start_date"`
	DueDate     *string  `json:"due_date"`
	Tags        []string `json:"tags"`
	ParentTask  *string  `json:"parent_task"`
}

// TicketRequest is the body for creating or updating a ticket. Nil
// fields are omitted, which the server treats as "leave unchanged".
type TicketRequest struct {
	Project     string    `json:"project,omitempty"`
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Assignee    *string   `json:"assignee,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Priority    *string   `json:"priority,omitempty"`
	Status      *string   `json:"status,omitempty"`
	Progress    *int      `json:"progress,omitempty"`
	StartDate   *string   `json:"start_date,omitempty"`
	DueDate     *string   `json:"due_date,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	ParentTask  *string   `json:"parent_task,omitempty"`
}

// Client talks to a NullTasker server.
type Client struct {
	baseURL string
	http    *http.Client
	store   TokenStore
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the server at baseURL, persisting tokens in
// the given store.
func New(baseURL string, store TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		store:   store,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login authenticates and stores the returned token pair.
func (c *Client) Login(ctx context.Context, email, password string, rememberMe bool) (*User, error) {
	var result struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		User         *User  `json:"user"`
	}
	err := c.doPublic(ctx, http.MethodPost, "/api/auth/login", map[string]any{
		"email":       email,
		"password":    password,
		"remember_me": rememberMe,
	}, &result)
	if err != nil {
		return nil, err
	}

	if err := c.store.Save(&Tokens{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}); err != nil {
		return nil, fmt.Errorf("save tokens: %w", err)
	}
	return result.User, nil
}

// Register creates a new account. It does not log in.
func (c *Client) Register(ctx context.Context, displayName, email, password string) (*User, error) {
	var user User
	err := c.doPublic(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"display_name": displayName,
		"email":        email,
		"password":     password,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout discards the stored tokens. The server call is best effort
// since tokens are stateless.
func (c *Client) Logout(ctx context.Context) error {
	_ = c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	return c.store.Clear()
}

// CurrentUser returns the authenticated account.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/api/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListProjects returns the caller's visible projects.
func (c *Client) ListProjects(ctx context.Context) ([]*Project, error) {
	var list []*Project
	if err := c.do(ctx, http.MethodGet, "/api/projects", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ListTickets returns visible tickets, optionally filtered by project.
func (c *Client) ListTickets(ctx context.Context, projectID string) ([]*Ticket, error) {
	path := "/api/tasks"
	if projectID != "" {
		path += "?project=" + url.QueryEscape(projectID)
	}
	var list []*Ticket
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetTicket returns a single ticket.
func (c *Client) GetTicket(ctx context.Context, id string) (*Ticket, error) {
	var ticket Ticket
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// CreateTicket creates a ticket.
func (c *Client) CreateTicket(ctx context.Context, req *TicketRequest) (*Ticket, error) {
	var ticket Ticket
	if err := c.do(ctx, http.MethodPost, "/api/tasks", req, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// UpdateTicket applies a partial update.
func (c *Client) UpdateTicket(ctx context.Context, id string, req *TicketRequest) (*Ticket, error) {
	var ticket Ticket
	if err := c.do(ctx, http.MethodPut, "/api/tasks/"+url.PathEscape(id), req, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// DeleteTicket removes a ticket.
func (c *Client) DeleteTicket(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil)
}

// doPublic performs an unauthenticated request.
func (c *Client) doPublic(ctx context.Context, method, path string, body, out any) error {
	return c.send(ctx, method, path, "", body, out)
}

// do performs an authenticated request, refreshing the access token at
// most once on a 401 before failing with ErrSessionExpired.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	tokens, err := c.store.Load()
	if err != nil {
		return fmt.Errorf("load tokens: %w", err)
	}
	if tokens == nil || tokens.AccessToken == "" {
		return ErrSessionExpired
	}

	err = c.send(ctx, method, path, tokens.AccessToken, body, out)

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return err
	}

	// One silent refresh, then retry the request once.
	if tokens.RefreshToken == "" {
		c.store.Clear()
		return ErrSessionExpired
	}
	if err := c.refresh(ctx, tokens); err != nil {
		c.store.Clear()
		return ErrSessionExpired
	}
	tokens, err = c.store.Load()
	if err != nil || tokens == nil {
		return ErrSessionExpired
	}

	err = c.send(ctx, method, path, tokens.AccessToken, body, out)
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		c.store.Clear()
		return ErrSessionExpired
	}
	return err
}

// refresh exchanges the refresh token for a new access token and
// stores the result.
func (c *Client) refresh(ctx context.Context, tokens *Tokens) error {
	var result struct {
		AccessToken string `json:"access_token"`
	}
	err := c.doPublic(ctx, http.MethodPost, "/api/auth/refresh", map[string]string{
		"refresh_token": tokens.RefreshToken,
	}, &result)
	if err != nil {
		return err
	}

	return c.store.Save(&Tokens{
		AccessToken:  result.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// send performs one HTTP round trip and decodes the envelope.
func (c *Client) send(ctx context.Context, method, path, token string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error APIError `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Error.Code == "" {
			return &APIError{Status: resp.StatusCode, Code: "UNKNOWN", Message: resp.Status}
		}
		envelope.Error.Status = resp.StatusCode
		return &envelope.Error
	}

	if out == nil {
		return nil
	}
	envelope := struct {
		Data any `json:"data"`
	}{Data: out}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
