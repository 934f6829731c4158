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

	"profreach-engine/pkg/domain"
)

// Client is the typed API client for the engine. One method per workflow
// step; the token is sent on every request once Login has run.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetToken installs a previously issued bearer token.
func (c *Client) SetToken(token string) { c.token = token }

// Token returns the current bearer token ("" when logged out).
func (c *Client) Token() string { return c.token }

// --- Auth ---

// Register creates an account. A duplicate email surfaces as an HTTPError
// with status 400.
func (c *Client) Register(ctx context.Context, email, password string) (*domain.User, error) {
	var u domain.User
	err := c.post(ctx, "/users/", map[string]string{"email": email, "password": password}, &u)
	if err != nil {
		return nil, fmt.Errorf("client.Register: %w", err)
	}
	return &u, nil
}

// Login exchanges credentials for a bearer token and installs it on the
// client.
func (c *Client) Login(ctx context.Context, email, password string) error {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("client.Login: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client.Login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("client.Login: %w", readHTTPError(resp))
	}

	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("client.Login: decode response: %w", err)
	}
	if out.AccessToken == "" {
		return fmt.Errorf("client.Login: empty access_token")
	}
	c.token = out.AccessToken
	return nil
}

// Logout revokes the session server-side and clears the token either way.
func (c *Client) Logout(ctx context.Context) error {
	err := c.doRequest(ctx, http.MethodPost, "/logout", nil, nil)
	c.token = ""
	if err != nil {
		return fmt.Errorf("client.Logout: %w", err)
	}
	return nil
}

// --- Professors ---

// CreateProfessorRequest is the payload for creating a professor record.
type CreateProfessorRequest struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
	WebsiteURL  string `json:"website_url,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	TargetRole  string `json:"target_role,omitempty"`
}

// PatchProfessorRequest carries the only fields the engine lets a client
// change after creation.
type PatchProfessorRequest struct {
	TargetRole *string `json:"target_role,omitempty"`
	AvatarURL  *string `json:"avatar_url,omitempty"`
}

func (c *Client) ListProfessors(ctx context.Context) ([]domain.Professor, error) {
	var profs []domain.Professor
	if err := c.get(ctx, "/professors/", &profs); err != nil {
		return nil, fmt.Errorf("client.ListProfessors: %w", err)
	}
	return profs, nil
}

func (c *Client) GetProfessor(ctx context.Context, id int64) (*domain.Professor, error) {
	var p domain.Professor
	if err := c.get(ctx, "/professors/"+itoa(id), &p); err != nil {
		return nil, fmt.Errorf("client.GetProfessor: %w", err)
	}
	return &p, nil
}

func (c *Client) CreateProfessor(ctx context.Context, req CreateProfessorRequest) (*domain.Professor, error) {
	var p domain.Professor
	if err := c.post(ctx, "/professors/", req, &p); err != nil {
		return nil, fmt.Errorf("client.CreateProfessor: %w", err)
	}
	return &p, nil
}

func (c *Client) PatchProfessor(ctx context.Context, id int64, req PatchProfessorRequest) (*domain.Professor, error) {
	var p domain.Professor
	if err := c.doRequest(ctx, http.MethodPatch, "/professors/"+itoa(id), req, &p); err != nil {
		return nil, fmt.Errorf("client.PatchProfessor: %w", err)
	}
	return &p, nil
}

func (c *Client) DeleteProfessor(ctx context.Context, id int64) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/professors/"+itoa(id), nil, nil); err != nil {
		return fmt.Errorf("client.DeleteProfessor: %w", err)
	}
	return nil
}

func (c *Client) UpdateStatus(ctx context.Context, id int64, status domain.Status) (*domain.PipelineStatus, error) {
	var st domain.PipelineStatus
	err := c.doRequest(ctx, http.MethodPatch, "/professors/"+itoa(id)+"/status",
		map[string]string{"status": string(status)}, &st)
	if err != nil {
		return nil, fmt.Errorf("client.UpdateStatus: %w", err)
	}
	return &st, nil
}

// --- Enrichment ---

// Ingest asks the engine to fetch and record one source page. The returned
// page may carry fetch_status "failed"; that is an outcome, not an error.
func (c *Client) Ingest(ctx context.Context, professorID int64, pageURL string) (*domain.SourcePage, error) {
	var page domain.SourcePage
	err := c.post(ctx, "/ingest", map[string]any{
		"professor_id": professorID,
		"url":          pageURL,
	}, &page)
	if err != nil {
		return nil, fmt.Errorf("client.Ingest: %w", err)
	}
	return &page, nil
}

func (c *Client) GenerateCard(ctx context.Context, professorID int64) (*domain.ProfessorCard, error) {
	var card domain.ProfessorCard
	if err := c.post(ctx, "/professors/"+itoa(professorID)+"/generate-card", nil, &card); err != nil {
		return nil, fmt.Errorf("client.GenerateCard: %w", err)
	}
	return &card, nil
}

func (c *Client) GenerateEmail(ctx context.Context, professorID int64, opts domain.DraftOptions) (*domain.EmailDraft, error) {
	var draft domain.EmailDraft
	if err := c.post(ctx, "/professors/"+itoa(professorID)+"/generate-email", opts, &draft); err != nil {
		return nil, fmt.Errorf("client.GenerateEmail: %w", err)
	}
	return &draft, nil
}

// --- Discovery ---

func (c *Client) SearchProfessors(ctx context.Context, query string) ([]domain.SearchCandidate, error) {
	params := url.Values{}
	params.Set("query", query)

	var results []domain.SearchCandidate
	if err := c.get(ctx, "/search_professors?"+params.Encode(), &results); err != nil {
		return nil, fmt.Errorf("client.SearchProfessors: %w", err)
	}
	return results, nil
}

func (c *Client) ParseSearchResult(ctx context.Context, query string, cand domain.SearchCandidate) (*domain.ParseResult, error) {
	var parsed domain.ParseResult
	err := c.post(ctx, "/parse_search_result", map[string]string{
		"query":   query,
		"title":   cand.Title,
		"snippet": cand.Snippet,
		"link":    cand.Link,
	}, &parsed)
	if err != nil {
		return nil, fmt.Errorf("client.ParseSearchResult: %w", err)
	}
	return &parsed, nil
}

// ExtractAvatar returns the verified photo URL for a website, or "" when the
// engine found none.
func (c *Client) ExtractAvatar(ctx context.Context, websiteURL, name string) (string, error) {
	var out struct {
		AvatarURL *string `json:"avatar_url"`
	}
	body := map[string]string{"website_url": websiteURL, "name": name}
	if err := c.post(ctx, "/extract_avatar", body, &out); err != nil {
		return "", fmt.Errorf("client.ExtractAvatar: %w", err)
	}
	if out.AvatarURL == nil {
		return "", nil
	}
	return *out.AvatarURL, nil
}

// --- plumbing ---

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return readHTTPError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func readHTTPError(resp *http.Response) error {
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if readErr != nil {
		return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
	}
	var apiErr struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
		return &HTTPError{StatusCode: resp.StatusCode, Code: apiErr.Error.Code, Message: apiErr.Error.Message}
	}
	return &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
}
