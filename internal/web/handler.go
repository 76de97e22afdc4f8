// Package web serves the browser rendition of the matching flow. Each
// browser gets its own session.Controller, and every action is a form post
// followed by a redirect back to the page.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/skumatch/internal/api"
	"github.com/cloo-solutions/skumatch/internal/api/middleware"
	"github.com/cloo-solutions/skumatch/internal/domain"
	"github.com/cloo-solutions/skumatch/internal/session"
)

// CookieName is the cookie that carries the session id.
const CookieName = "skumatch_session"

const maxUploadMemory = 32 << 20

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

type pageData struct {
	View          session.View
	Notifications []session.Notification
}

// Index handles GET /. Pending notifications are shown once.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)

	data := pageData{
		View:          sess.Controller.View(),
		Notifications: sess.Notifications.Drain(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pageTemplate.Execute(w, data); err != nil {
		log.Printf("web: session %s: render page: %v", sess.ID, err)
	}
}

// Upload handles POST /upload. A form without a file is ignored; a body that
// cannot be read as a form is reported on the page.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	defer redirectHome(w, r)

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		log.Printf("web: session %s: upload form: %v", sess.ID, err)
		notifyUploadError(sess, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return
	}
	defer file.Close()

	// The flow finishes even if the browser goes away mid-request.
	ctx := context.WithoutCancel(r.Context())
	if err := sess.Controller.HandleFile(ctx, header.Filename, file); err != nil {
		log.Printf("web: session %s: upload %s: %v", sess.ID, header.Filename, err)
	}
}

// SelectMatch handles POST /rows/{index}/match. The form field "choice" is
// the candidate position; blank means no selection.
func (h *Handler) SelectMatch(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	defer redirectHome(w, r)

	row, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		notifyError(sess, domain.ErrRowOutOfRange)
		return
	}
	choice, err := parseChoice(r.PostFormValue("choice"))
	if err != nil {
		notifyError(sess, domain.ErrChoiceOutOfRange)
		return
	}

	if err := sess.Controller.SelectMatch(r.Context(), row, choice); err != nil {
		log.Printf("web: session %s: select row %d: %v", sess.ID, row, err)
	}
}

// Confirm handles POST /confirm.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	defer redirectHome(w, r)

	ctx := context.WithoutCancel(r.Context())
	if err := sess.Controller.Confirm(ctx); err != nil {
		log.Printf("web: session %s: confirm: %v", sess.ID, err)
	}
}

type optionResponse struct {
	Choice   int    `json:"choice"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

type rowResponse struct {
	Index   int              `json:"index"`
	Query   string           `json:"query"`
	SKU     string           `json:"sku"`
	Barcode string           `json:"barcode"`
	Unit    string           `json:"unit"`
	Options []optionResponse `json:"options"`
}

type viewResponse struct {
	State          session.State  `json:"state"`
	FileName       string         `json:"file_name"`
	Header         []string       `json:"header"`
	Rows           []rowResponse  `json:"rows"`
	ConfirmVisible bool           `json:"confirm_visible"`
	Selections     domain.Mapping `json:"selections"`
}

// View handles GET /api/view with the session's current display as JSON.
// Notifications are left in place for the page.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	v := sess.Controller.View()

	rows := make([]rowResponse, len(v.Rows))
	for i, row := range v.Rows {
		opts := make([]optionResponse, len(row.Options))
		for j, o := range row.Options {
			opts[j] = optionResponse{Choice: o.Choice, Label: o.Label, Selected: o.Selected}
		}
		rows[i] = rowResponse{
			Index:   row.Index,
			Query:   row.Query,
			SKU:     row.SKU,
			Barcode: row.Barcode,
			Unit:    row.Unit,
			Options: opts,
		}
	}

	api.Success(w, http.StatusOK, viewResponse{
		State:          v.State,
		FileName:       v.FileName,
		Header:         v.Header,
		Rows:           rows,
		ConfirmVisible: v.ConfirmVisible,
		Selections:     v.Selections,
	})
}

// session resolves the browser's session from its cookie, starting a new one
// when the cookie is missing or has expired.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *Session {
	if c, err := r.Cookie(CookieName); err == nil {
		if sess, ok := h.store.Get(c.Value); ok {
			middleware.SetSessionID(r.Context(), sess.ID)
			return sess
		}
	}

	sess := h.store.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	middleware.SetSessionID(r.Context(), sess.ID)
	return sess
}

func parseChoice(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return session.NoSelection, nil
	}
	return strconv.Atoi(v)
}

func notifyError(sess *Session, err *domain.DomainError) {
	log.Printf("web: session %s: %s", sess.ID, err.Message)
	sess.Notifications.Notify(session.Notification{Level: session.LevelError, Message: err.Message})
}

func notifyUploadError(sess *Session, err error) {
	msg := domain.ErrUploadUnreadable.Message + ": " + err.Error()
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		msg = domain.ErrUploadTooLarge.Message
	}
	sess.Notifications.Notify(session.Notification{Level: session.LevelError, Message: "Error: " + msg})
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
