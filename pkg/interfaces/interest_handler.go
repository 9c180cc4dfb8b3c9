package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/yair/conference-portal/pkg/domain"
	"github.com/yair/conference-portal/pkg/logging"
)

// InterestService is satisfied by *interests.Service.
type InterestService interface {
	Register(ctx context.Context, req domain.InterestRequest) (domain.Interest, error)
	Remove(ctx context.Context, eventID, email string) error
	RemoveAllForEvent(ctx context.Context, eventName string) (int, error)
	List(ctx context.Context) ([]domain.Interest, error)
	Aggregate(ctx context.Context) ([]domain.InterestSummary, error)
	ExportXLSX(ctx context.Context) ([]byte, error)
}

type InterestHandler struct {
	service InterestService
	limiter *RateLimiter
}

// NewInterestHandler builds the public interest endpoints. A nil limiter
// disables rate limiting.
func NewInterestHandler(service InterestService, limiter *RateLimiter) *InterestHandler {
	return &InterestHandler{
		service: service,
		limiter: limiter,
	}
}

func (h *InterestHandler) RegisterRoutes(router *mux.Router) {
	router.Handle("/api/interests", h.limited(h.Register)).Methods("POST")
	router.Handle("/api/interests", h.limited(h.Remove)).Methods("DELETE")
}

func (h *InterestHandler) limited(fn http.HandlerFunc) http.Handler {
	if h.limiter == nil {
		return fn
	}
	return h.limiter.Limit(fn)
}

func (h *InterestHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestTimeout(r, 30*time.Second)
	defer cancel()

	var req domain.InterestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.EventID == "" {
		respondWithError(w, http.StatusBadRequest, "eventId is required")
		return
	}

	record, err := h.service.Register(ctx, req)
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"status":   "success",
		"message":  "Interest registered successfully!",
		"interest": record,
	})
}

func (h *InterestHandler) Remove(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("eventId")
	email := r.URL.Query().Get("email")
	if eventID == "" || email == "" {
		respondWithError(w, http.StatusBadRequest, "eventId and email parameters are required")
		return
	}

	ctx, cancel := requestTimeout(r, 30*time.Second)
	defer cancel()

	if err := h.service.Remove(ctx, eventID, email); err != nil {
		h.respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Interest removed successfully.",
	})
}

func (h *InterestHandler) respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrEventNotFound):
		respondWithError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, domain.ErrInterestNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrEmailDomain):
		respondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrDuplicateInterest):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		logging.Error("interest request failed", err)
		respondWithError(w, http.StatusServiceUnavailable, "interest storage unavailable")
	}
}
