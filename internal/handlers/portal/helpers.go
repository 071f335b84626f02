package portal

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	apphttp "salonrecon/internal/http"
	"salonrecon/internal/services/ingest"
	"salonrecon/internal/services/remote"
	"salonrecon/internal/services/session"
)

func loadSession(w http.ResponseWriter, r *http.Request) (session.Session, bool) {
	sess, err := sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		apphttp.ErrorResponse(w, "Session not found", http.StatusNotFound)
		return session.Session{}, false
	}
	return sess, true
}

// readUpload pulls the "file" part out of a multipart body
func readUpload(w http.ResponseWriter, r *http.Request) (name, contentType string, data []byte, err error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+1<<20)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", "", nil, ingest.ErrTooLarge
		}
		return "", "", nil, fmt.Errorf("%w: %v", ingest.ErrUnreadable, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", "", nil, fmt.Errorf("%w: missing file", ingest.ErrEmptyFile)
	}
	defer file.Close()

	if header.Size > maxUpload {
		return "", "", nil, ingest.ErrTooLarge
	}

	data, err = io.ReadAll(file)
	if err != nil {
		return "", "", nil, fmt.Errorf("%w: %v", ingest.ErrUnreadable, err)
	}
	return header.Filename, header.Header.Get("Content-Type"), data, nil
}

// reject records an inline notice for the slot (0 is the script control) and answers 422
func reject(w http.ResponseWriter, id string, slot int, err error) {
	msg := ingest.UserMessage(err)
	if nerr := sessions.AddNotice(id, slot, msg); nerr != nil {
		apphttp.ErrorResponse(w, "Session not found", http.StatusNotFound)
		return
	}
	status := http.StatusUnprocessableEntity
	if errors.Is(err, ingest.ErrTooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	apphttp.ErrorResponse(w, msg, status)
}

// remoteFailure maps a remote error category onto a status and user message
func remoteFailure(err error) (int, string) {
	var re *remote.Error
	if !errors.As(err, &re) {
		return http.StatusInternalServerError, "An unexpected error occurred while running the comparison."
	}
	switch re.Kind {
	case remote.KindTimeout:
		return http.StatusGatewayTimeout, re.Message()
	case remote.KindNetwork, remote.KindServer:
		return http.StatusBadGateway, re.Message()
	default:
		return http.StatusInternalServerError, re.Message()
	}
}
