// Package http holds the JSON response helpers shared by the handlers.
package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
)

// JSON writes v with the given status
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// ErrorResponse sends {"error": message} and logs server-side failures
func ErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	if statusCode >= 500 {
		log.Printf("Error: %s (status %d)", message, statusCode)
	}
	JSON(w, statusCode, map[string]string{"error": message})
}

// DecodeJSON reads a JSON body of at most limit bytes into dst
func DecodeJSON(r *http.Request, dst interface{}, limit int64) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, limit))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// Attachment sets the headers for a file download
func Attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}
