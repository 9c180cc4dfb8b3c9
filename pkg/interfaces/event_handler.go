package interfaces

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/yair/conference-portal/pkg/calendar"
	"github.com/yair/conference-portal/pkg/catalog"
	"github.com/yair/conference-portal/pkg/domain"
)

const (
	defaultRadiusKm = 50
	maxRadiusKm     = 500
)

// EventCatalog is the read side of the catalog; satisfied by *catalog.Store.
type EventCatalog interface {
	Get(f catalog.Filter) []domain.Event
	Find(id string) (domain.Event, bool)
	FilterOptions() map[string][]string
	Clusters(precision int) []catalog.Cluster
}

type EventHandler struct {
	catalog EventCatalog
	now     func() time.Time
}

func NewEventHandler(catalog EventCatalog) *EventHandler {
	return &EventHandler{
		catalog: catalog,
		now:     time.Now,
	}
}

func (h *EventHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/events", h.ListEvents).Methods("GET")
	router.HandleFunc("/api/events.ics", h.CalendarFeed).Methods("GET")
	router.HandleFunc("/api/events/clusters", h.GetClusters).Methods("GET")
	router.HandleFunc("/api/events/{id}", h.GetEvent).Methods("GET")
	router.HandleFunc("/api/filters", h.GetFilters).Methods("GET")
}

func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, h.catalog.Get(filter))
}

func (h *EventHandler) CalendarFeed(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	feed := calendar.Build(h.catalog.Get(filter), h.now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="events.ics"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(feed))
}

func (h *EventHandler) GetClusters(w http.ResponseWriter, r *http.Request) {
	precision := catalog.DefaultClusterPrecision
	if s := r.URL.Query().Get("precision"); s != "" {
		p, err := strconv.Atoi(s)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "precision must be an integer")
			return
		}
		precision = p
	}

	respondWithJSON(w, http.StatusOK, h.catalog.Clusters(precision))
}

func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	event, ok := h.catalog.Find(id)
	if !ok {
		respondWithError(w, http.StatusNotFound, "event not found")
		return
	}

	respondWithJSON(w, http.StatusOK, event)
}

func (h *EventHandler) GetFilters(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.catalog.FilterOptions())
}

// parseFilter reads the listing query. lat and lng must be given together;
// radius defaults to 50km and is capped at 500km.
func parseFilter(r *http.Request) (catalog.Filter, error) {
	q := r.URL.Query()
	f := catalog.Filter{
		Topic:   q.Get("topic"),
		City:    q.Get("city"),
		Country: q.Get("country"),
		Quarter: q.Get("quarter"),
		Query:   q.Get("q"),
	}

	latStr, lngStr := q.Get("lat"), q.Get("lng")
	if latStr == "" && lngStr == "" {
		return f, nil
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil || lat < -90 || lat > 90 {
		return f, domain.ValidationError{Field: "lat", Message: "must be a number between -90 and 90"}
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil || lng < -180 || lng > 180 {
		return f, domain.ValidationError{Field: "lng", Message: "must be a number between -180 and 180"}
	}

	radius := float64(defaultRadiusKm)
	if s := q.Get("radius"); s != "" {
		radius, err = strconv.ParseFloat(s, 64)
		if err != nil || radius <= 0 {
			return f, domain.ValidationError{Field: "radius", Message: "must be a positive number"}
		}
		radius = min(radius, maxRadiusKm)
	}

	f.Near = &domain.Coordinates{Lat: lat, Lng: lng}
	f.RadiusKm = radius
	return f, nil
}

// requestTimeout bounds handlers that reach external services.
func requestTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}
