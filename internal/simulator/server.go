package simulator

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"

	"github.com/rewired-gh/statwatch/internal/logger"
	"github.com/rewired-gh/statwatch/internal/models"
)

// NewRouter exposes the generator over HTTP in the API-Football shape:
//
//	GET /fixtures/statistics?fixture=ID  statistics plus top-level "elapsed"
//	GET /fixtures                        the simulated fixture catalog
//	GET /health
func NewRouter(g *Generator) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	c := corslib.New(corslib.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
	})
	r.Use(c.Handler)

	h := &handler{gen: g}
	r.Get("/health", h.health)
	r.Get("/fixtures", h.fixtures)
	r.Get("/fixtures/statistics", h.statistics)
	return r
}

type handler struct {
	gen *Generator
}

type teamBlock struct {
	Team struct {
		Name string `json:"name"`
	} `json:"team"`
	Statistics []statBlock `json:"statistics"`
}

type statBlock struct {
	Type  string   `json:"type"`
	Value *float64 `json:"value"`
}

type statisticsPayload struct {
	Get        string            `json:"get"`
	Parameters map[string]string `json:"parameters"`
	Errors     []string          `json:"errors"`
	Results    int               `json:"results"`
	Response   []teamBlock       `json:"response"`
	Elapsed    int               `json:"elapsed"`
}

func (h *handler) statistics(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("fixture")
	id, err := models.ParseFixtureID(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"errors": map[string]string{"fixture": err.Error()},
		})
		return
	}

	snap := h.gen.Next(id)
	home, away := h.gen.Catalog().Teams(id)

	payload := statisticsPayload{
		Get:        "fixtures/statistics",
		Parameters: map[string]string{"fixture": id.String()},
		Errors:     []string{},
		Elapsed:    snap.Elapsed,
	}
	for _, team := range []string{home, away} {
		block := teamBlock{}
		block.Team.Name = team
		for _, stat := range AvailableStats() {
			block.Statistics = append(block.Statistics, statBlock{Type: stat, Value: snap.Teams[team][stat]})
		}
		payload.Response = append(payload.Response, block)
	}
	payload.Results = len(payload.Response)

	writeJSON(w, http.StatusOK, payload)
}

func (h *handler) fixtures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"get":      "fixtures",
		"errors":   []string{},
		"response": h.gen.Catalog().Fixtures(),
	})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response: %v", err)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Debug("%s %s -> %d (%v)", r.Method, r.URL.RequestURI(), ww.Status(), time.Since(start))
	})
}
