package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"code.sajari.com/docconv/v2"
	"github.com/google/uuid"

	"github.com/cloo-solutions/skumatch/internal/domain"
)

const pdfContentType = "application/pdf"

var (
	taxCodeLine   = regexp.MustCompile(`(?i)^(?:MST|Mã số thuế|Tax code)\s*[:.]?\s*([0-9][0-9\-\s]*)$`)
	leadingNumber = regexp.MustCompile(`^\d+\s*[.)\-:]?\s+`)
	vendorMarkers = []string{"CÔNG TY", "COMPANY"}
)

// TextExtractor turns a document into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, r io.Reader) (string, error)
}

// DocconvExtractor extracts PDF text with docconv.
type DocconvExtractor struct{}

func (DocconvExtractor) ExtractText(_ context.Context, r io.Reader) (string, error) {
	res, err := docconv.Convert(r, pdfContentType, false)
	if err != nil {
		return "", err
	}
	return res.Body, nil
}

// ObjectStore archives uploaded documents and snapshots.
type ObjectStore interface {
	PutObject(ctx context.Context, key, contentType string, body io.Reader) error
}

// ExtractionService turns an uploaded invoice PDF into extracted line items.
type ExtractionService struct {
	extractor TextExtractor
	store     ObjectStore
}

// NewExtractionService creates an ExtractionService. store may be nil to
// disable archiving.
func NewExtractionService(extractor TextExtractor, store ObjectStore) *ExtractionService {
	if extractor == nil {
		extractor = DocconvExtractor{}
	}
	return &ExtractionService{extractor: extractor, store: store}
}

// Extract reads the PDF, archives it when a store is configured and parses
// the text into an Extraction.
func (s *ExtractionService) Extract(ctx context.Context, filename string, r io.Reader) (*domain.Extraction, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	text, err := s.extractor.ExtractText(ctx, bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}

	if s.store != nil {
		key := archiveKey(filename)
		if err := s.store.PutObject(ctx, key, pdfContentType, bytes.NewReader(content)); err != nil {
			log.Printf("extraction: failed to archive %s: %v", filename, err)
		} else {
			log.Printf("extraction: archived %s as %s", filename, key)
		}
	}

	extraction := ParseInvoiceText(text)
	log.Printf("extraction: %s yielded %d line items", filename, len(extraction.Items))
	return &extraction, nil
}

// ParseInvoiceText splits extracted invoice text into header fields and line
// items. A tax code line fills TaxCode, the first line naming a company fills
// Vendor, and every other line with letters in it becomes an item numbered
// from 1 in reading order.
func ParseInvoiceText(text string) domain.Extraction {
	out := domain.Extraction{Items: []domain.LineItem{}}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.Join(strings.Fields(raw), " ")
		if line == "" {
			continue
		}

		if m := taxCodeLine.FindStringSubmatch(line); m != nil {
			if out.TaxCode == "" {
				out.TaxCode = strings.Join(strings.Fields(m[1]), "")
			}
			continue
		}

		if out.Vendor == "" && isVendorLine(line) {
			out.Vendor = line
			continue
		}

		name := leadingNumber.ReplaceAllString(line, "")
		if !strings.ContainsFunc(name, unicode.IsLetter) {
			continue
		}
		out.Items = append(out.Items, domain.LineItem{
			ID:          strconv.Itoa(len(out.Items) + 1),
			ProductName: name,
		})
	}

	return out
}

func isVendorLine(line string) bool {
	upper := strings.ToUpper(line)
	for _, marker := range vendorMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

func archiveKey(filename string) string {
	return path.Join("uploads", uuid.New().String(), path.Base(filename))
}
