// Package client talks to the listing API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/isdelr/realty-be/internal/models"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// Client provides HTTP communication with the API server.
type Client struct {
	baseURL string
	http    *http.Client
	token   func() string
}

// New creates a client for server. token, when not nil, supplies the bearer
// token sent with every request.
func New(server string, token func() string) *Client {
	baseURL := strings.TrimRight(server, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		token:   token,
	}
}

// BaseURL returns the base URL of the client.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) do(ctx context.Context, method, path string, body, target interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "realty-cli/1.0")
	if c.token != nil {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return &APIError{Status: resp.StatusCode, Message: errResp.Error}
	}
	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

// SignupRequest is the body of a signup call.
type SignupRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// SignupResult is the answer to a successful signup.
type SignupResult struct {
	Message string `json:"message"`
	User    struct {
		ID       int64  `json:"id"`
		Email    string `json:"email"`
		Username string `json:"username"`
	} `json:"user"`
	Token string `json:"token"`
}

// Signup registers an account and returns its first token.
func (c *Client) Signup(ctx context.Context, in SignupRequest) (SignupResult, error) {
	var out SignupResult
	err := c.do(ctx, http.MethodPost, "/signup", in, &out)
	return out, err
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/login", body, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// Logout revokes the current token on the server.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil)
}

// Me returns the profile of the token's owner.
func (c *Client) Me(ctx context.Context) (models.Profile, error) {
	var out struct {
		User models.Profile `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/me", nil, &out)
	return out.User, err
}

// ListQuery selects one page of listings.
type ListQuery struct {
	Page            int
	PageSize        int
	SearchCondition string
	SearchTerm      string
}

// ListProperties fetches one page of listings.
func (c *Client) ListProperties(ctx context.Context, q ListQuery) (models.PropertyPage, error) {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	if q.SearchCondition != "" {
		v.Set("searchCondition", q.SearchCondition)
		v.Set("searchTerm", q.SearchTerm)
	}
	path := "/property/getPropertiesByPage"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	var out models.PropertyPage
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// ContactInfo returns how to reach the owner of a listing.
func (c *Client) ContactInfo(ctx context.Context, userID int64) (models.ContactInfo, error) {
	var out models.ContactInfo
	path := "/info/getContactInfoForProperty?userId=" + strconv.FormatInt(userID, 10)
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}
