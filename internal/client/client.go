package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/user-directory/internal/api/dto"
	"github.com/spec-kit/user-directory/internal/config"
	"github.com/spec-kit/user-directory/internal/domain"
)

// DefaultBaseURL is used when no backend URL is configured.
const DefaultBaseURL = config.DefaultBackendURL

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]any
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("userdir http %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("userdir http %d: %s", e.StatusCode, e.Message)
}

// Client talks to the user directory REST API.
type Client struct {
	BaseURL string
	httpDo  *http.Client
}

// New returns a client for baseURL.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		httpDo: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewFromEnv returns a client for USERDIR_BACKEND_URL.
func NewFromEnv() *Client {
	cfg := config.LoadClient()
	c := New(cfg.BackendURL)
	c.httpDo.Timeout = cfg.Timeout()
	return c
}

// WithHTTPClient swaps the underlying transport client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpDo = hc
	return c
}

// UserForm is the payload of create and update.
type UserForm struct {
	FirstName string
	LastName  string
	Email     string
	Mobile    string
	Gender    string
	Status    string
	Location  string
}

// Image is an optional profile picture upload.
type Image struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Page is one page of the user listing.
type Page struct {
	Users       []domain.User
	TotalPages  int
	CurrentPage int
}

// CreateUser posts a new user as multipart form data.
func (c *Client) CreateUser(ctx context.Context, form UserForm, image *Image) (*domain.User, error) {
	return c.sendForm(ctx, http.MethodPost, "/api/users", form, image)
}

// UpdateUser replaces a user's fields. A nil image keeps the stored profile.
func (c *Client) UpdateUser(ctx context.Context, id string, form UserForm, image *Image) (*domain.User, error) {
	return c.sendForm(ctx, http.MethodPut, "/api/users/"+url.PathEscape(id), form, image)
}

// ListUsers fetches a 1-based page.
func (c *Client) ListUsers(ctx context.Context, page int) (*Page, error) {
	var out dto.UserListResponse
	path := "/api/users?page=" + strconv.Itoa(page)
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return &Page{
		Users:       toDomain(out.Users),
		TotalPages:  out.TotalPages,
		CurrentPage: out.CurrentPage,
	}, nil
}

// GetUser fetches one user.
func (c *Client) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var out dto.UserEnvelope
	if err := c.getJSON(ctx, "/api/users/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	user := out.Users.ToDomain()
	return &user, nil
}

// DeleteUser removes a user. Deleting an unknown id succeeds.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/users/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	var out dto.MessageResponse
	return c.do(req, &out)
}

// SearchUsers runs the server-side name search.
func (c *Client) SearchUsers(ctx context.Context, term string) ([]domain.User, error) {
	var out []dto.UserResponse
	if err := c.getJSON(ctx, "/api/users/search/"+url.PathEscape(term), &out); err != nil {
		return nil, err
	}
	return toDomain(out), nil
}

// ExportCSV downloads the CSV export.
func (c *Client) ExportCSV(ctx context.Context) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/users/export/csv", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpDo.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) sendForm(ctx context.Context, method, path string, form UserForm, image *Image) (*domain.User, error) {
	body, contentType, err := encodeForm(form, image)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	var out dto.UserResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	user := out.ToDomain()
	return &user, nil
}

func encodeForm(form UserForm, image *Image) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	fields := []struct{ name, value string }{
		{"firstName", form.FirstName},
		{"lastName", form.LastName},
		{"email", form.Email},
		{"mobile", form.Mobile},
		{"gender", form.Gender},
		{"status", form.Status},
		{"location", form.Location},
	}
	for _, f := range fields {
		if err := writer.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}
	if image != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="profile"; filename=%q`, image.FileName))
		contentType := image.ContentType
		if contentType == "" {
			contentType = http.DetectContentType(image.Data)
		}
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(image.Data); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpDo.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body dto.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
		apiErr.Details = body.Details
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func toDomain(in []dto.UserResponse) []domain.User {
	out := make([]domain.User, 0, len(in))
	for _, u := range in {
		out = append(out, u.ToDomain())
	}
	return out
}
