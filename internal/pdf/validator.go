package pdf

import (
	"fmt"
	"os"
	"strings"

	"github.com/spherical/pdf-summarizer/internal/domain"
)

// maxSize is the size above which a warning is logged; large files are still processed.
const maxSize = 100 * 1024 * 1024 // 100MB

// pdfMagic is the header every PDF file starts with.
var pdfMagic = []byte("%PDF-")

// Validator provides input validation for PDF files
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidatePDFPath checks that path names a readable, non-empty PDF file.
// It returns the file size so callers can log oversized inputs.
func (v *Validator) ValidatePDFPath(path string) (int64, error) {
	if strings.TrimSpace(path) == "" {
		return 0, domain.CorruptInputError("file path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, domain.CorruptInputError(fmt.Sprintf("file does not exist: %s", path), err)
		}
		return 0, domain.CorruptInputError(fmt.Sprintf("cannot access file: %s", path), err)
	}

	if info.IsDir() {
		return 0, domain.CorruptInputError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	if info.Size() == 0 {
		return 0, domain.CorruptInputError(fmt.Sprintf("file is empty: %s", path), nil)
	}

	file, err := os.Open(path)
	if err != nil {
		return 0, domain.CorruptInputError(fmt.Sprintf("cannot open file: %s", path), err)
	}
	defer file.Close()

	header := make([]byte, len(pdfMagic))
	if _, err := file.Read(header); err != nil || string(header) != string(pdfMagic) {
		return 0, domain.CorruptInputError(fmt.Sprintf("file is not a PDF (missing %%PDF- header): %s", path), err)
	}

	return info.Size(), nil
}

// IsOversized reports whether a file is large enough to warrant a warning.
func IsOversized(size int64) bool {
	return size > maxSize
}
