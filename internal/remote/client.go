// Package remote talks to the three HTTP collaborators of the matching flow:
// the PDF-processing service, the search service and the mapping-save service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/skumatch/internal/domain"
	"github.com/cloo-solutions/skumatch/internal/telemetry"
)

const (
	DefaultProcessURL = "http://localhost:5001"
	DefaultSearchURL  = "http://localhost:5000"

	processPath = "/process-pdf"
	searchPath  = "/search"
	savePath    = "/save-mapping"

	defaultTimeout = 60 * time.Second
)

// Step names identify which collaborator call failed.
const (
	StepProcessPDF = "PDF processing"
	StepSearch     = "Search"
	StepSave       = "Save"
)

// UnknownError is reported when a failed save carries no error detail.
const UnknownError = "Unknown error"

// Config holds the collaborator locations.
type Config struct {
	ProcessURL string
	SearchURL  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls the collaborator services.
type Client struct {
	processURL string
	searchURL  string
	httpClient *http.Client
}

// NewClient creates a Client. Empty URLs fall back to the local defaults.
func NewClient(cfg Config) *Client {
	processURL := strings.TrimRight(cfg.ProcessURL, "/")
	if processURL == "" {
		processURL = DefaultProcessURL
	}
	searchURL := strings.TrimRight(cfg.SearchURL, "/")
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		processURL: processURL,
		searchURL:  searchURL,
		httpClient: httpClient,
	}
}

// APIError is a non-success response from a collaborator.
type APIError struct {
	Step       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s failed: %d - %s", e.Step, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s failed: %d", e.Step, e.StatusCode)
}

// Unwrap classifies every APIError as domain.ErrUpstream.
func (e *APIError) Unwrap() error {
	return domain.ErrUpstream
}

// errorBody is the failure contract shared by the collaborators.
type errorBody struct {
	Error string `json:"error"`
}

// ProcessPDF uploads a PDF as multipart field "file" and returns the
// extraction payload after validating its boundary schema.
func (c *Client) ProcessPDF(ctx context.Context, filename string, content io.Reader) (json.RawMessage, error) {
	ctx, span := telemetry.StartSpan(ctx, "remote.process_pdf", telemetry.SpanAttributes{
		Operation: StepProcessPDF,
		Filename:  filename,
	})
	defer span.End()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart field: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.processURL+processPath, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	status, respBody, err := c.send(req, StepProcessPDF)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if !isSuccess(status) {
		apiErr := &APIError{Step: StepProcessPDF, StatusCode: status}
		span.SetError(apiErr)
		return nil, apiErr
	}

	if err := domain.ValidateExtraction(respBody); err != nil {
		span.SetError(err)
		return nil, err
	}

	return json.RawMessage(respBody), nil
}

// Search forwards an extraction payload verbatim and decodes the candidate
// matches for each line item.
func (c *Client) Search(ctx context.Context, extraction json.RawMessage) ([]domain.SearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "remote.search", telemetry.SpanAttributes{
		Operation: StepSearch,
	})
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.searchURL+searchPath, bytes.NewReader(extraction))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	status, respBody, err := c.send(req, StepSearch)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if !isSuccess(status) {
		apiErr := &APIError{Step: StepSearch, StatusCode: status, Message: errorField(respBody)}
		span.SetError(apiErr)
		return nil, apiErr
	}

	var results []domain.SearchResult
	if err := json.Unmarshal(respBody, &results); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}
	if results == nil {
		results = []domain.SearchResult{}
	}

	return results, nil
}

// SaveMapping submits the query to catalog-name mapping.
func (c *Client) SaveMapping(ctx context.Context, mapping domain.Mapping) error {
	ctx, span := telemetry.StartSpan(ctx, "remote.save_mapping", telemetry.SpanAttributes{
		Operation: StepSave,
	})
	defer span.End()

	jsonData, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.searchURL+savePath, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	status, respBody, err := c.send(req, StepSave)
	if err != nil {
		span.SetError(err)
		return err
	}
	if !isSuccess(status) {
		msg := errorField(respBody)
		if msg == "" {
			msg = UnknownError
		}
		apiErr := &APIError{Step: StepSave, StatusCode: status, Message: msg}
		span.SetError(apiErr)
		return apiErr
	}

	return nil
}

// send performs the request and reads the whole body. Failures before a
// response arrives are transport errors.
func (c *Client) send(req *http.Request, step string) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, domain.NewDomainErrorWithCause(domain.ErrCodeTransport, step+" request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, domain.NewDomainErrorWithCause(domain.ErrCodeTransport, step+" response interrupted", err)
	}

	return resp.StatusCode, respBody, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func errorField(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	return eb.Error
}

// IsTransport reports whether err means the request never completed.
func IsTransport(err error) bool {
	return domain.CodeOf(err) == domain.ErrCodeTransport
}

// AsAPIError extracts an APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
