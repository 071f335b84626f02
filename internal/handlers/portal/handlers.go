package portal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"

	apphttp "salonrecon/internal/http"
	"salonrecon/internal/models"
	"salonrecon/internal/services/analysis"
	"salonrecon/internal/services/export"
	"salonrecon/internal/services/ingest"
	"salonrecon/internal/services/session"
)

// ScriptRunner executes a comparison script against both uploads
type ScriptRunner interface {
	ExecuteScript(ctx context.Context, script string, file1, file2 models.Table) (models.Table, error)
}

var (
	sessions  *session.Store
	runner    ScriptRunner
	analyzer  *analysis.Analyzer
	maxUpload int64 = 20 << 20
)

// Initialize sets up the portal package with required dependencies
func Initialize(s *session.Store, sr ScriptRunner, a *analysis.Analyzer, maxUploadBytes int64) {
	sessions = s
	runner = sr
	analyzer = a
	if maxUploadBytes > 0 {
		maxUpload = maxUploadBytes
	}
}

// RegisterRoutes registers all portal routes
func RegisterRoutes(r chi.Router) {
	r.Route("/portal/sessions", func(r chi.Router) {
		r.Post("/", handleCreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handleGetSession)
			r.Post("/files/{slot}", handleUploadFile)
			r.Post("/script", handleUploadScript)
			r.Post("/compare", handleCompare)
			r.Get("/overview", handleOverview)
			r.Get("/insights", handleInsights)
			r.Get("/notices", handleNotices)
			r.Get("/export", handleExport)
		})
	})
}

func handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if r.ContentLength != 0 {
		if err := apphttp.DecodeJSON(r, &req, 1<<16); err != nil {
			apphttp.ErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	sess := sessions.Create(req.Email)
	apphttp.JSON(w, http.StatusCreated, map[string]string{"id": sess.ID})
}

func handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := loadSession(w, r)
	if !ok {
		return
	}
	apphttp.JSON(w, http.StatusOK, sess)
}

func handleUploadFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	slot, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil || (slot != 1 && slot != 2) {
		apphttp.ErrorResponse(w, session.ErrInvalidSlot.Error(), http.StatusBadRequest)
		return
	}
	if _, ok := loadSession(w, r); !ok {
		return
	}

	name, contentType, data, err := readUpload(w, r)
	if err != nil {
		reject(w, id, slot, err)
		return
	}

	upload, err := ingest.Parse(name, contentType, data)
	if err != nil {
		reject(w, id, slot, err)
		return
	}

	if err := sessions.SetUpload(id, slot, upload); err != nil {
		apphttp.ErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	apphttp.JSON(w, http.StatusOK, map[string]interface{}{
		"slot":    slot,
		"name":    upload.Name,
		"format":  upload.Format,
		"rows":    upload.Table.Len(),
		"columns": len(upload.Table.Header()),
	})
}

func handleUploadScript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := loadSession(w, r); !ok {
		return
	}

	var name, body string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			Name   string `json:"name"`
			Script string `json:"script"`
		}
		if err := apphttp.DecodeJSON(r, &req, maxUpload); err != nil {
			apphttp.ErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Name == "" {
			req.Name = "script.js"
		}
		script, err := ingest.ValidateScript(req.Name, []byte(req.Script))
		if err != nil {
			reject(w, id, 0, err)
			return
		}
		name, body = req.Name, script
	} else {
		filename, _, data, err := readUpload(w, r)
		if err != nil {
			reject(w, id, 0, err)
			return
		}
		script, err := ingest.ValidateScript(filename, data)
		if err != nil {
			reject(w, id, 0, err)
			return
		}
		name, body = filename, script
	}

	if err := sessions.SetScript(id, name, body); err != nil {
		apphttp.ErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	apphttp.JSON(w, http.StatusOK, map[string]interface{}{"name": name, "bytes": len(body)})
}

func handleCompare(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	in, err := sessions.BeginRun(id)
	switch {
	case errors.Is(err, session.ErrNotFound):
		apphttp.ErrorResponse(w, "Session not found", http.StatusNotFound)
		return
	case errors.Is(err, session.ErrRunInProgress):
		apphttp.ErrorResponse(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		apphttp.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	var (
		result models.Table
		report *models.AnalysisResult
	)
	defer func() { sessions.EndRun(id, in.Generation, result, report) }()

	start := time.Now()
	result, err = runner.ExecuteScript(r.Context(), in.Script, in.File1, in.File2)
	if err != nil {
		status, msg := remoteFailure(err)
		log.Printf("Comparison for session %s failed after %v: %v", id, time.Since(start).Round(time.Millisecond), err)
		apphttp.ErrorResponse(w, msg, status)
		return
	}

	report = analyzer.Analyze(result, in.File1, in.File2)
	log.Printf("Comparison for session %s returned %d rows in %v", id, result.Len(), time.Since(start).Round(time.Millisecond))

	apphttp.JSON(w, http.StatusOK, map[string]interface{}{
		"rows":     result.Len(),
		"analysis": report,
	})
}

func handleOverview(w http.ResponseWriter, r *http.Request) {
	sess, ok := loadSession(w, r)
	if !ok {
		return
	}
	if sess.Result == nil {
		apphttp.ErrorResponse(w, "No comparison results yet", http.StatusNotFound)
		return
	}

	records := analysis.Normalize(sess.Result)
	if records == nil {
		records = []models.Record{}
	}
	apphttp.JSON(w, http.StatusOK, map[string]interface{}{
		"headers": analysis.RecordKeys(sess.Result.Header()),
		"rows":    records,
	})
}

func handleInsights(w http.ResponseWriter, r *http.Request) {
	sess, ok := loadSession(w, r)
	if !ok {
		return
	}
	if sess.Analysis == nil {
		apphttp.ErrorResponse(w, "No comparison results yet", http.StatusNotFound)
		return
	}
	apphttp.JSON(w, http.StatusOK, sess.Analysis)
}

func handleNotices(w http.ResponseWriter, r *http.Request) {
	sess, ok := loadSession(w, r)
	if !ok {
		return
	}
	apphttp.JSON(w, http.StatusOK, sess.Notices)
}

func handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := loadSession(w, r)
	if !ok {
		return
	}
	if sess.Result == nil {
		apphttp.ErrorResponse(w, "No comparison results yet", http.StatusNotFound)
		return
	}

	view := r.URL.Query().Get("view")
	if view == "" {
		view = "overview"
	}

	var (
		wb  *excelize.File
		err error
	)
	switch view {
	case "overview":
		wb, err = export.RecordsWorkbook("Overview", analysis.RecordKeys(sess.Result.Header()), analysis.Normalize(sess.Result))
	case "summary":
		wb, err = export.SummaryWorkbook(sess.Analysis)
	default:
		apphttp.ErrorResponse(w, fmt.Sprintf("Unknown view %q", view), http.StatusBadRequest)
		return
	}
	if err != nil {
		apphttp.ErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("reconciliation_%s_%s.xlsx", view, time.Now().Format("20060102_150405"))
	apphttp.Attachment(w, export.ContentType, filename)
	if err := export.Write(w, wb); err != nil {
		log.Printf("Error writing %s export for session %s: %v", view, sess.ID, err)
	}
}
