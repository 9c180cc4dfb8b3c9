package interfaces

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/yair/conference-portal/pkg/catalog"
	"github.com/yair/conference-portal/pkg/domain"
	"github.com/yair/conference-portal/pkg/ingest"
	"github.com/yair/conference-portal/pkg/logging"
)

// MaxUploadBytes bounds an uploaded spreadsheet.
const MaxUploadBytes = 32 << 20

// AdminCatalog is the maintenance side of the catalog; satisfied by *catalog.Store.
type AdminCatalog interface {
	Stats() catalog.Stats
	Regeocode(ctx context.Context, resolver catalog.Resolver, force bool) (catalog.RegeocodeReport, error)
}

// Ingester is satisfied by *ingest.Service.
type Ingester interface {
	Ingest(ctx context.Context, filename string, data []byte) (ingest.Report, error)
}

type AdminHandler struct {
	catalog    AdminCatalog
	ingester   Ingester
	resolver   catalog.Resolver
	interests  InterestService
	passphrase string
}

func NewAdminHandler(c AdminCatalog, ingester Ingester, resolver catalog.Resolver, interests InterestService, passphrase string) *AdminHandler {
	return &AdminHandler{
		catalog:    c,
		ingester:   ingester,
		resolver:   resolver,
		interests:  interests,
		passphrase: passphrase,
	}
}

// RegisterRoutes mounts the admin API under /api/admin behind the passphrase check.
func (h *AdminHandler) RegisterRoutes(router *mux.Router) {
	admin := router.PathPrefix("/api/admin").Subrouter()
	admin.Use(RequireAdmin(h.passphrase))

	admin.HandleFunc("/upload", h.Upload).Methods("POST")
	admin.HandleFunc("/stats", h.Stats).Methods("GET")
	admin.HandleFunc("/re-geocode", h.Regeocode).Methods("POST")
	admin.HandleFunc("/interests", h.ListInterests).Methods("GET")
	admin.HandleFunc("/interests/export", h.ExportInterests).Methods("GET")
	admin.HandleFunc("/interests", h.ClearInterests).Methods("DELETE")
}

type uploadResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	ingest.Report
}

type schemaErrorResponse struct {
	Error    string   `json:"error"`
	Missing  []string `json:"missing"`
	Detected []string `json:"detected"`
}

// Upload replaces the catalog with the rows of the multipart "file" field.
// Once the body is read, ingestion runs to completion even if the client
// goes away.
func (h *AdminHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		respondWithError(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}

	report, err := h.ingester.Ingest(context.WithoutCancel(r.Context()), filepath.Base(header.Filename), data)
	if err != nil {
		var missing *domain.MissingColumnsError
		switch {
		case errors.As(err, &missing):
			respondWithJSON(w, http.StatusBadRequest, schemaErrorResponse{
				Error:    missing.Error(),
				Missing:  missing.Missing,
				Detected: missing.Detected,
			})
		case errors.Is(err, domain.ErrUnsupportedFormat):
			respondWithError(w, http.StatusBadRequest, err.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "failed to process upload")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, uploadResponse{Status: "success", Message: report.Message(), Report: report})
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.catalog.Stats())
}

// Regeocode re-resolves every event, or only unresolved ones with force=false.
func (h *AdminHandler) Regeocode(w http.ResponseWriter, r *http.Request) {
	force := true
	if s := r.URL.Query().Get("force"); s != "" {
		parsed, err := strconv.ParseBool(s)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "force must be a boolean")
			return
		}
		force = parsed
	}

	report, err := h.catalog.Regeocode(context.WithoutCancel(r.Context()), h.resolver, force)
	if err != nil {
		logging.Error("re-geocode request failed", err)
		respondWithError(w, http.StatusInternalServerError, "failed to save re-geocoded events")
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}

// ListInterests returns the aggregated view, or every record with raw=true.
func (h *AdminHandler) ListInterests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestTimeout(r, 30*time.Second)
	defer cancel()

	if raw, _ := strconv.ParseBool(r.URL.Query().Get("raw")); raw {
		records, err := h.interests.List(ctx)
		if err != nil {
			respondWithError(w, http.StatusServiceUnavailable, "interest storage unavailable")
			return
		}
		respondWithJSON(w, http.StatusOK, nonNil(records))
		return
	}

	summaries, err := h.interests.Aggregate(ctx)
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "interest storage unavailable")
		return
	}
	respondWithJSON(w, http.StatusOK, nonNil(summaries))
}

func (h *AdminHandler) ExportInterests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestTimeout(r, 60*time.Second)
	defer cancel()

	data, err := h.interests.ExportXLSX(ctx)
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "interest storage unavailable")
		return
	}

	name := fmt.Sprintf("interests-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *AdminHandler) ClearInterests(w http.ResponseWriter, r *http.Request) {
	eventName := strings.TrimSpace(r.URL.Query().Get("eventName"))
	if eventName == "" {
		respondWithError(w, http.StatusBadRequest, "eventName parameter is required")
		return
	}

	ctx, cancel := requestTimeout(r, 60*time.Second)
	defer cancel()

	n, err := h.interests.RemoveAllForEvent(ctx, eventName)
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "interest storage unavailable")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"removed": n,
		"message": fmt.Sprintf("Successfully removed %d interests for '%s'.", n, eventName),
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
