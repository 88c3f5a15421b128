// Package pdf extracts plain text from PDF documents.
package pdf

import (
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	lpdf "github.com/ledongthuc/pdf"

	"github.com/spherical/pdf-summarizer/internal/domain"
	"github.com/spherical/pdf-summarizer/internal/observability"
)

// Backend names accepted by NewExtractor.
const (
	BackendFitz  = "fitz"
	BackendPlain = "pdf"
)

// NewExtractor returns the text extractor for the configured backend.
func NewExtractor(backend string, logger *observability.Logger) (domain.TextExtractor, error) {
	switch backend {
	case BackendFitz, "":
		return NewFitzExtractor(logger), nil
	case BackendPlain:
		return NewPlainExtractor(logger), nil
	default:
		return nil, fmt.Errorf("unknown extractor backend: %s", backend)
	}
}

// FitzExtractor implements text extraction using MuPDF through go-fitz
type FitzExtractor struct {
	validator *Validator
	logger    *observability.Logger
}

// NewFitzExtractor creates a MuPDF-backed extractor
func NewFitzExtractor(logger *observability.Logger) *FitzExtractor {
	return &FitzExtractor{
		validator: NewValidator(),
		logger:    logger.WithOperation("extract"),
	}
}

// Extract concatenates the text of every page in the document
func (e *FitzExtractor) Extract(ctx context.Context, path string) (string, error) {
	if err := e.validate(path); err != nil {
		return "", err
	}

	doc, err := fitz.New(path)
	if err != nil {
		return "", domain.CorruptInputError("Failed to open PDF", err)
	}
	defer doc.Close()

	var text strings.Builder
	for pageNum := 0; pageNum < doc.NumPage(); pageNum++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		pageText, err := doc.Text(pageNum)
		if err != nil {
			return "", domain.CorruptInputError(fmt.Sprintf("Failed to read page %d", pageNum+1), err)
		}
		text.WriteString(pageText)
	}

	return text.String(), nil
}

func (e *FitzExtractor) validate(path string) error {
	size, err := e.validator.ValidatePDFPath(path)
	if err != nil {
		return err
	}
	if IsOversized(size) {
		e.logger.Warn().Str("path", path).Int64("size_mb", size/(1024*1024)).
			Msg("PDF file is very large, processing may take a while")
	}
	return nil
}

// PlainExtractor implements text extraction in pure Go using ledongthuc/pdf.
// It needs no cgo and handles simple, well-formed documents.
type PlainExtractor struct {
	validator *Validator
	logger    *observability.Logger
}

// NewPlainExtractor creates a pure Go extractor
func NewPlainExtractor(logger *observability.Logger) *PlainExtractor {
	return &PlainExtractor{
		validator: NewValidator(),
		logger:    logger.WithOperation("extract"),
	}
}

// Extract concatenates the text of every non-empty page in the document
func (e *PlainExtractor) Extract(ctx context.Context, path string) (text string, err error) {
	size, err := e.validator.ValidatePDFPath(path)
	if err != nil {
		return "", err
	}
	if IsOversized(size) {
		e.logger.Warn().Str("path", path).Int64("size_mb", size/(1024*1024)).
			Msg("PDF file is very large, processing may take a while")
	}

	// ledongthuc/pdf panics on some malformed object graphs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = domain.CorruptInputError(fmt.Sprintf("malformed PDF structure: %v", r), nil)
		}
	}()

	file, reader, err := lpdf.Open(path)
	if err != nil {
		return "", domain.CorruptInputError("Failed to open PDF", err)
	}
	defer file.Close()

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", domain.CorruptInputError(fmt.Sprintf("Failed to read page %d", i), err)
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}

	return b.String(), nil
}

// Ensure implementations satisfy interface.
var (
	_ domain.TextExtractor = (*FitzExtractor)(nil)
	_ domain.TextExtractor = (*PlainExtractor)(nil)
)
