package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/skumatch/internal/api"
	"github.com/cloo-solutions/skumatch/internal/domain"
)

const (
	maxMemory = 32 << 20

	msgMappingsSaved    = "Mappings saved successfully"
	prefixProcessFailed = "Error processing file: "
	prefixSaveFailed    = "Failed to save mappings: "
)

type Extractor interface {
	Extract(ctx context.Context, filename string, r io.Reader) (*domain.Extraction, error)
}

type Searcher interface {
	Search(ctx context.Context, items []domain.LineItem) ([]domain.SearchResult, error)
}

type MappingSaver interface {
	Save(ctx context.Context, mapping domain.Mapping) error
}

type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

// CollaboratorHandler serves the PDF processing, search and save endpoints
// the matching UI calls.
type CollaboratorHandler struct {
	extractor Extractor
	searcher  Searcher
	mappings  MappingSaver
	products  ProductLookup
}

func NewCollaboratorHandler(extractor Extractor, searcher Searcher, mappings MappingSaver, products ProductLookup) *CollaboratorHandler {
	return &CollaboratorHandler{
		extractor: extractor,
		searcher:  searcher,
		mappings:  mappings,
		products:  products,
	}
}

// ProcessPDF handles POST /process-pdf.
func (h *CollaboratorHandler) ProcessPDF(w http.ResponseWriter, r *http.Request) {
	file, header, err := formFile(r, "file")
	if err != nil {
		api.HandleError(w, domain.ErrNoFileUploaded)
		return
	}
	defer file.Close()

	if !strings.HasSuffix(header.Filename, ".pdf") {
		api.HandleError(w, domain.ErrFileMustBePDF)
		return
	}

	extraction, err := h.extractor.Extract(r.Context(), header.Filename, file)
	if err != nil {
		log.Printf("process-pdf: %s: %v", header.Filename, err)
		api.Error(w, http.StatusInternalServerError, prefixProcessFailed+err.Error())
		return
	}

	api.JSON(w, http.StatusOK, extraction)
}

// Search handles POST /search. The body is an extraction payload, either as
// the JSON request body or as an uploaded .json file in the "file" field.
func (h *CollaboratorHandler) Search(w http.ResponseWriter, r *http.Request) {
	raw, err := searchPayload(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items, err := domain.ParseLineItems(raw)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	results, err := h.searcher.Search(r.Context(), items)
	if err != nil {
		log.Printf("search: %v", err)
		api.Error(w, http.StatusInternalServerError, prefixProcessFailed+err.Error())
		return
	}
	if results == nil {
		results = []domain.SearchResult{}
	}

	api.JSON(w, http.StatusOK, results)
}

// SaveMapping handles POST /save-mapping.
func (h *CollaboratorHandler) SaveMapping(w http.ResponseWriter, r *http.Request) {
	var mapping domain.Mapping
	if err := json.NewDecoder(r.Body).Decode(&mapping); err != nil || len(mapping) == 0 {
		api.HandleError(w, domain.ErrNoMappings)
		return
	}

	if err := h.mappings.Save(r.Context(), mapping); err != nil {
		if domain.IsValidation(err) {
			api.HandleError(w, err)
			return
		}
		log.Printf("save-mapping: %v", err)
		api.Error(w, http.StatusInternalServerError, prefixSaveFailed+err.Error())
		return
	}

	api.JSON(w, http.StatusOK, api.MessageResponse{Message: msgMappingsSaved})
}

type embeddingResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	NameEmbedding []float32 `json:"name_embedding"`
}

// DebugEmbedding handles GET /debug-embedding/{id}.
func (h *CollaboratorHandler) DebugEmbedding(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.products.GetProduct(r.Context(), id)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, domain.ErrProductNotFound) {
			msg = domain.ErrProductNotFound.Message
		}
		api.Error(w, http.StatusNotFound, "Failed to retrieve document: "+msg)
		return
	}

	embedding := p.Embedding
	if embedding == nil {
		embedding = []float32{}
	}
	api.JSON(w, http.StatusOK, embeddingResponse{ID: p.ID, Name: p.Name, NameEmbedding: embedding})
}

func formFile(r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, nil, err
	}
	return r.FormFile(field)
}

func searchPayload(r *http.Request) ([]byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := formFile(r, "file")
		if err != nil {
			return nil, domain.ErrNoJSONData
		}
		defer file.Close()
		if !strings.HasSuffix(header.Filename, ".json") {
			return nil, domain.ErrFileMustBeJSON
		}
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "Invalid JSON file: "+err.Error(), err)
		}
		if !json.Valid(data) {
			return nil, domain.NewDomainError(domain.ErrCodeValidation, "Invalid JSON file: malformed JSON")
		}
		return data, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, domain.ErrNoJSONData
	}
	return data, nil
}
