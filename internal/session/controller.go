// Package session implements the upload, match and confirm flow for one user.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/cloo-solutions/skumatch/internal/domain"
	"github.com/cloo-solutions/skumatch/internal/remote"
	"github.com/cloo-solutions/skumatch/internal/telemetry"
)

// State is the position of a Controller in the matching flow.
type State string

const (
	StateIdle             State = "idle"
	StateUploading        State = "uploading"
	StateProcessing       State = "processing"
	StateSearching        State = "searching"
	StateResultsDisplayed State = "results_displayed"
	StateSelecting        State = "selecting"
	StateSaving           State = "saving"
)

// NoSelection is the choice value of the blank selector option.
const NoSelection = -1

const (
	msgSaved        = "Mappings saved successfully!"
	msgSaveFailed   = "Save failed: "
	msgNetworkError = "network error"
)

// Collaborators is the remote side of the flow.
type Collaborators interface {
	ProcessPDF(ctx context.Context, filename string, content io.Reader) (json.RawMessage, error)
	Search(ctx context.Context, extraction json.RawMessage) ([]domain.SearchResult, error)
	SaveMapping(ctx context.Context, mapping domain.Mapping) error
}

// Controller holds the state of one matching session. The result list is
// the single source of truth for everything displayed; an upload and a save
// may each have at most one request in flight.
type Controller struct {
	id       string
	remote   Collaborators
	notifier Notifier

	mu             sync.Mutex
	state          State
	fileName       string
	results        []domain.SearchResult
	choices        []int
	selected       domain.Mapping
	confirmVisible bool
	uploading      bool
	saving         bool
}

// NewController creates a Controller in the Idle state.
func NewController(id string, remote Collaborators, notifier Notifier) *Controller {
	if notifier == nil {
		notifier = NotifierFunc(func(Notification) {})
	}
	return &Controller{
		id:       id,
		remote:   remote,
		notifier: notifier,
		state:    StateIdle,
		selected: domain.Mapping{},
	}
}

// ID returns the session identifier.
func (c *Controller) ID() string {
	return c.id
}

// HandleFile runs the upload chain for a chosen file: validate the name,
// process the PDF, search the extracted line items and render the results.
// Nothing is rendered unless every step succeeds. A failed upload returns to
// the state matching what is still shown: Idle without a table, otherwise
// ResultsDisplayed or Selecting.
func (c *Controller) HandleFile(ctx context.Context, name string, content io.Reader) error {
	if !strings.HasSuffix(name, ".pdf") {
		return c.reject(ctx, "upload", domain.ErrWrongFileType)
	}

	c.mu.Lock()
	if c.uploading {
		c.mu.Unlock()
		return c.reject(ctx, "upload", domain.ErrUploadInProgress)
	}
	c.uploading = true
	c.fileName = name
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.uploading = false
		c.mu.Unlock()
	}()

	ctx, span := telemetry.StartSpan(ctx, "session.upload", telemetry.SpanAttributes{
		SessionID: c.id,
		Filename:  name,
		Operation: "upload",
	})
	defer span.End()

	c.transition(ctx, StateUploading)
	payload, err := c.remote.ProcessPDF(ctx, name, content)
	if err != nil {
		return c.failUpload(ctx, err)
	}

	c.transition(ctx, StateProcessing)
	if err := domain.ValidateExtraction(payload); err != nil {
		return c.failUpload(ctx, err)
	}

	c.transition(ctx, StateSearching)
	results, err := c.remote.Search(ctx, payload)
	if err != nil {
		return c.failUpload(ctx, err)
	}

	log.Printf("session %s: search returned %d results for %s", c.id, len(results), name)
	c.Render(results)
	return nil
}

// Render replaces the result list and rebuilds the view from scratch. Row
// selectors start blank; recorded selections are kept until a save succeeds.
func (c *Controller) Render(results []domain.SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.results = append([]domain.SearchResult(nil), results...)
	c.choices = make([]int, len(results))
	for i := range c.choices {
		c.choices[i] = NoSelection
	}
	c.confirmVisible = true
	c.state = StateResultsDisplayed
}

// SelectMatch applies a selector change for one row. choice is the index of
// the chosen candidate, or NoSelection for the blank option.
func (c *Controller) SelectMatch(ctx context.Context, row, choice int) error {
	c.mu.Lock()
	if row < 0 || row >= len(c.results) {
		c.mu.Unlock()
		return c.reject(ctx, "select", domain.ErrRowOutOfRange)
	}
	result := c.results[row]
	if choice != NoSelection && (choice < 0 || choice >= len(result.Matches)) {
		c.mu.Unlock()
		return c.reject(ctx, "select", domain.ErrChoiceOutOfRange)
	}

	c.choices[row] = choice
	name := ""
	if choice != NoSelection {
		name = result.Matches[choice].Document.Name
	}
	if name != "" {
		c.selected[result.Query] = name
	} else {
		delete(c.selected, result.Query)
	}
	if c.state == StateResultsDisplayed {
		c.state = StateSelecting
	}
	count := len(c.selected)
	c.mu.Unlock()

	log.Printf("session %s: row %d choice %d, %d selections", c.id, row, choice, count)
	return nil
}

// Confirm submits the recorded selections. On success the view is reset and
// the selections cleared; on failure everything is left as it was.
func (c *Controller) Confirm(ctx context.Context) error {
	c.mu.Lock()
	if len(c.selected) == 0 {
		c.mu.Unlock()
		return c.reject(ctx, "confirm", domain.ErrNoSelection)
	}
	if c.saving {
		c.mu.Unlock()
		return c.reject(ctx, "confirm", domain.ErrSaveInProgress)
	}
	c.saving = true
	c.state = StateSaving
	mapping := c.selected.Clone()
	c.mu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "session.confirm", telemetry.SpanAttributes{
		SessionID: c.id,
		Operation: "confirm",
		Items:     len(mapping),
	})
	defer span.End()

	err := c.remote.SaveMapping(ctx, mapping)

	c.mu.Lock()
	c.saving = false
	if err != nil {
		c.state = StateResultsDisplayed
		c.mu.Unlock()

		log.Printf("session %s: save mapping failed: %v", c.id, err)
		span.SetError(err)
		c.notifier.Notify(Notification{Level: LevelError, Message: saveFailureMessage(err)})
		return err
	}

	c.results = nil
	c.choices = nil
	c.selected = domain.Mapping{}
	c.confirmVisible = false
	c.fileName = ""
	c.state = StateIdle
	c.mu.Unlock()

	log.Printf("session %s: saved %d mappings", c.id, len(mapping))
	c.notifier.Notify(Notification{Level: LevelSuccess, Message: msgSaved})
	return nil
}

// View returns a snapshot of the current display.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows := make([]Row, len(c.results))
	for i, r := range c.results {
		rows[i] = buildRow(i, r, c.choices[i])
	}

	return View{
		State:          c.state,
		FileName:       c.fileName,
		Header:         append([]string(nil), Header...),
		Rows:           rows,
		ConfirmVisible: c.confirmVisible,
		Selections:     c.selected.Clone(),
	}
}

// Selections returns a copy of the recorded query to match-name mapping.
func (c *Controller) Selections() domain.Mapping {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected.Clone()
}

// State returns the current flow state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) transition(ctx context.Context, to State) {
	c.mu.Lock()
	c.state = to
	c.mu.Unlock()
	telemetry.AddBreadcrumb(ctx, "session", string(to))
}

// reject reports a client-side error that aborted a flow before any request.
func (c *Controller) reject(ctx context.Context, flow string, err *domain.DomainError) error {
	log.Printf("session %s: %s rejected: %s", c.id, flow, err.Message)
	c.notifier.Notify(Notification{Level: LevelError, Message: err.Message})
	return err
}

// failUpload settles the state from what is on screen now, which a save
// that finished during the upload may have changed.
func (c *Controller) failUpload(ctx context.Context, err error) error {
	c.mu.Lock()
	switch {
	case len(c.results) == 0:
		c.state = StateIdle
	case len(c.selected) > 0:
		c.state = StateSelecting
	default:
		c.state = StateResultsDisplayed
	}
	c.mu.Unlock()

	log.Printf("session %s: upload failed: %v", c.id, err)
	if !domain.IsValidation(err) {
		telemetry.CaptureError(ctx, err)
	}
	c.notifier.Notify(Notification{Level: LevelError, Message: "Error: " + uploadFailureMessage(err)})
	return err
}

func uploadFailureMessage(err error) string {
	if apiErr, ok := remote.AsAPIError(err); ok {
		return apiErr.Error()
	}
	var de *domain.DomainError
	if errors.As(err, &de) {
		if de.Code == domain.ErrCodeTransport {
			return de.Message + ": " + msgNetworkError
		}
		if de.Err != nil {
			return de.Message + ": " + de.Err.Error()
		}
		return de.Message
	}
	return err.Error()
}

func saveFailureMessage(err error) string {
	if apiErr, ok := remote.AsAPIError(err); ok {
		return msgSaveFailed + apiErr.Message
	}
	if remote.IsTransport(err) {
		return msgSaveFailed + msgNetworkError
	}
	return msgSaveFailed + err.Error()
}
