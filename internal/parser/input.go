package parser

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultMaxFileSize is the upload size limit applied when the caller
// passes a non-positive maximum (10 MiB).
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// ErrUnsupportedFileType is returned for files without a .csv or .tsv
// extension. Binary spreadsheet formats are not supported.
var ErrUnsupportedFileType = errors.New("invalid file type, please upload a CSV or TSV file")

var allowedExtensions = []string{".csv", ".tsv"}

// ValidateFile gates an upload before any parsing happens: the name must
// carry an accepted extension and the size must be within maxSize.
func ValidateFile(name string, size, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	if size > maxSize {
		return fmt.Errorf("file too large: size exceeds %dMB limit", maxSize/(1024*1024))
	}

	lower := strings.ToLower(name)
	for _, ext := range allowedExtensions {
		if strings.HasSuffix(lower, ext) {
			return nil
		}
	}
	return ErrUnsupportedFileType
}
