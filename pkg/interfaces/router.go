// Package interfaces is the HTTP surface of the portal: public event and
// interest endpoints, the passphrase-protected admin API and the optional
// static frontend.
package interfaces

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/yair/conference-portal/pkg/logging"
)

type RouterConfig struct {
	Events         *EventHandler
	Interests      *InterestHandler
	Admin          *AdminHandler
	AllowedOrigins []string
	// StaticDir, when it exists, is served at / after every API route.
	StaticDir string
}

// NewRouter assembles the routes and wraps them with CORS and request logging.
func NewRouter(cfg RouterConfig) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	if cfg.Events != nil {
		cfg.Events.RegisterRoutes(router)
	}
	if cfg.Interests != nil {
		cfg.Interests.RegisterRoutes(router)
	}
	if cfg.Admin != nil {
		cfg.Admin.RegisterRoutes(router)
	}

	if cfg.StaticDir != "" {
		if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
			router.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir))).Methods("GET", "HEAD")
		} else {
			logging.Info("static directory not found, frontend disabled", "dir", cfg.StaticDir)
		}
	}

	router.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		path, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, _ := route.GetMethods()
		logging.Debug("route", "methods", methods, "path", path)
		return nil
	})

	return CORS(cfg.AllowedOrigins)(RequestLogger(router))
}
