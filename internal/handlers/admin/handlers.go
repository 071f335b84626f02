package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apphttp "salonrecon/internal/http"
	"salonrecon/internal/models"
	"salonrecon/internal/services/remote"
	"salonrecon/internal/services/session"
)

// UserFunctions are the remote user-management endpoints
type UserFunctions interface {
	DeleteUser(ctx context.Context, userID string) (json.RawMessage, error)
	CleanupOrphanedUser(ctx context.Context, email string) (json.RawMessage, error)
}

const (
	deleteConsequences  = "Deleting a user permanently removes their account, profile and all uploaded data. Repeat the request with confirm=true to proceed."
	cleanupConsequences = "Cleanup removes the sign-in record for this email when no profile exists. Set confirm to true to proceed."
)

var (
	sessions *session.Store
	users    UserFunctions
)

// Initialize sets up the admin package with required dependencies
func Initialize(s *session.Store, u UserFunctions) {
	sessions = s
	users = u
}

// RegisterRoutes registers all admin routes
func RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Get("/sessions", handleListSnapshots)
		r.Get("/sessions/{id}/raw", handleRawFiles)
		r.Post("/users/{id}/delete", handleDeleteUser)
		r.Post("/users/cleanup", handleCleanupUser)
		r.Get("/pipeline/tabs", handlePipelineTab)
	})
}

func handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	infos, err := sessions.ListSnapshots()
	if err != nil {
		apphttp.ErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if infos == nil {
		infos = []session.SnapshotInfo{}
	}
	apphttp.JSON(w, http.StatusOK, infos)
}

func handleRawFiles(w http.ResponseWriter, r *http.Request) {
	snap, err := sessions.LoadSnapshot(chi.URLParam(r, "id"))
	if errors.Is(err, session.ErrNotFound) {
		apphttp.ErrorResponse(w, "Snapshot not found", http.StatusNotFound)
		return
	}
	if err != nil {
		apphttp.ErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	files := make([]map[string]interface{}, 0, 2)
	for i, f := range snap.Files {
		if f == nil {
			continue
		}
		files = append(files, map[string]interface{}{
			"slot":    i + 1,
			"name":    f.Name,
			"format":  f.Format,
			"headers": f.Table.Header(),
			"rows":    f.Table.Rows(),
		})
	}

	apphttp.JSON(w, http.StatusOK, map[string]interface{}{
		"id":        snap.ID,
		"email":     snap.Email,
		"updatedAt": snap.UpdatedAt,
		"files":     files,
	})
}

func handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if r.URL.Query().Get("confirm") != "true" {
		apphttp.ErrorResponse(w, deleteConsequences, http.StatusBadRequest)
		return
	}

	resp, err := users.DeleteUser(r.Context(), userID)
	if err != nil {
		remoteError(w, "delete-user", err)
		return
	}

	// The profile store is not reachable from here, so the remote
	// response is the only confirmation available.
	log.Printf("Deleted user %s: %s", userID, compact(resp))
	apphttp.JSON(w, http.StatusOK, map[string]interface{}{
		"deleted": userID,
		"remote":  rawOrNull(resp),
	})
}

func handleCleanupUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email   string `json:"email"`
		Confirm bool   `json:"confirm"`
	}
	if err := apphttp.DecodeJSON(r, &req, 1<<16); err != nil {
		apphttp.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		apphttp.ErrorResponse(w, "email is required", http.StatusBadRequest)
		return
	}
	if !req.Confirm {
		apphttp.ErrorResponse(w, cleanupConsequences, http.StatusBadRequest)
		return
	}

	resp, err := users.CleanupOrphanedUser(r.Context(), req.Email)
	if err != nil {
		remoteError(w, "cleanup-orphaned-user", err)
		return
	}

	removed, err := sessions.DeleteSnapshotsFor(req.Email)
	if err != nil {
		log.Printf("Warning: could not remove snapshots for %s: %v", req.Email, err)
	}

	log.Printf("Cleaned up orphaned user %s: %s", req.Email, compact(resp))
	apphttp.JSON(w, http.StatusOK, map[string]interface{}{
		"email":            req.Email,
		"snapshotsRemoved": removed,
		"remote":           rawOrNull(resp),
	})
}

func handlePipelineTab(w http.ResponseWriter, r *http.Request) {
	status, err := models.ParseUserStatus(r.URL.Query().Get("status"))
	if err != nil {
		apphttp.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	apphttp.JSON(w, http.StatusOK, map[string]string{
		"status": string(status),
		"tab":    string(status.AdminTab()),
	})
}

func remoteError(w http.ResponseWriter, fn string, err error) {
	log.Printf("Remote %s failed: %v", fn, err)

	var re *remote.Error
	if !errors.As(err, &re) {
		apphttp.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	status := http.StatusBadGateway
	switch re.Kind {
	case remote.KindTimeout:
		status = http.StatusGatewayTimeout
	case remote.KindUnknown:
		status = http.StatusInternalServerError
	}
	apphttp.ErrorResponse(w, re.Err.Error(), status)
}

func rawOrNull(raw json.RawMessage) json.RawMessage {
	if !json.Valid(raw) {
		return json.RawMessage("null")
	}
	return raw
}

func compact(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
