package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var (
	ErrInvalidScript     = errors.New("script is not valid UTF-8 text")
	ErrUnsupportedScript = errors.New("unsupported script type")
)

// ValidateScript accepts .js, .ts and .mjs uploads containing UTF-8 text.
// The body is opaque here; only the remote function interprets it.
func ValidateScript(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".js", ".ts", ".mjs":
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedScript, filepath.Ext(filename))
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", ErrEmptyFile
	}
	if !utf8.Valid(data) {
		return "", ErrInvalidScript
	}
	return string(data), nil
}

// UserMessage maps an ingest error onto the inline text shown next to the upload control
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyFile):
		return "The selected file is empty."
	case errors.Is(err, ErrTooLarge):
		return "The selected file is too large."
	case errors.Is(err, ErrUnsupportedType):
		return "Please upload an Excel (.xlsx, .xls) or CSV file."
	case errors.Is(err, ErrUnsupportedScript):
		return "Please upload a .js, .ts or .mjs script."
	case errors.Is(err, ErrSignatureMismatch):
		return "The file contents do not match its extension. Please re-export the file and try again."
	case errors.Is(err, ErrNoHeader):
		return "The spreadsheet has no header row."
	case errors.Is(err, ErrInvalidScript):
		return "The script must be a plain text .js, .ts or .mjs file."
	case errors.Is(err, ErrUnreadable):
		return "The spreadsheet could not be read. Please check the file and try again."
	default:
		return "The file could not be processed."
	}
}
