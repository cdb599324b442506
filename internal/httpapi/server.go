// Package httpapi exposes the engine over REST/JSON: the transaction
// endpoint, the read projections and the operational endpoints.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gameng/engine/internal/engine"
)

// Server wires the HTTP routes to the engine.
type Server struct {
	engine    *engine.Engine
	gatherer  prometheus.Gatherer
	logger    *log.Logger
	startedAt time.Time

	// Shutdown is invoked by POST /__shutdown when the route is enabled.
	Shutdown func()
}

// NewServer creates the HTTP facade. gatherer serves GET /metrics; pass
// nil to use the default registry.
func NewServer(eng *engine.Engine, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		engine:    eng,
		gatherer:  gatherer,
		logger:    log.New(log.Writer(), "[HTTP] ", log.LstdFlags),
		startedAt: time.Now(),
	}
}

// Router builds the gorilla router. enableShutdown binds POST /__shutdown,
// used only by end-to-end test harnesses.
func (s *Server) Router(enableShutdown bool) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(corsMiddleware)

	// Fixed routes come first so instance ids can never shadow them.
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods("GET")
	if enableShutdown {
		r.HandleFunc("/__shutdown", s.handleShutdown).Methods("POST")
	}

	r.HandleFunc("/{inst}/config", s.handleConfig).Methods("GET")
	r.HandleFunc("/{inst}/stateVersion", s.handleStateVersion).Methods("GET")
	r.HandleFunc("/{inst}/algorithms", s.handleAlgorithms).Methods("GET")
	r.HandleFunc("/{inst}/state/player/{playerId}", s.handlePlayer).Methods("GET")
	r.HandleFunc("/{inst}/character/{characterId}/stats", s.handleStats).Methods("GET")
	r.HandleFunc("/{inst}/tx", s.handleTx).Methods("POST")
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).String(),
	})
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "shutting down"})
	if s.Shutdown != nil {
		go s.Shutdown()
	}
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	inst := mux.Vars(r)["inst"]
	if s.engine.Store().Get(inst) == nil {
		writeRaw(w, 404, instanceNotFoundBody(inst))
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Config())
}

func (s *Server) handleStateVersion(w http.ResponseWriter, r *http.Request) {
	status, body := s.engine.StateVersion(mux.Vars(r)["inst"])
	writeRaw(w, status, body)
}

func (s *Server) handleAlgorithms(w http.ResponseWriter, r *http.Request) {
	inst := mux.Vars(r)["inst"]
	if s.engine.Store().Get(inst) == nil {
		writeRaw(w, 404, instanceNotFoundBody(inst))
		return
	}
	growth, cost := s.engine.Registry().Catalog()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"growth":    growth,
		"levelCost": cost,
	})
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	status, body := s.engine.Player(vars["inst"], vars["playerId"], r.Header.Get("Authorization"))
	writeRaw(w, status, body)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	status, body := s.engine.Stats(vars["inst"], vars["characterId"], r.Header.Get("Authorization"))
	writeRaw(w, status, body)
}

func (s *Server) handleTx(w http.ResponseWriter, r *http.Request) {
	rawBody, err := readBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"errorCode":    engine.CodeValidation,
			"errorMessage": "unreadable request body",
		})
		return
	}
	status, body := s.engine.Dispatch(mux.Vars(r)["inst"], r.Header.Get("Authorization"), rawBody)
	writeRaw(w, status, body)
}

func instanceNotFoundBody(inst string) []byte {
	body, _ := json.Marshal(map[string]string{
		"errorCode":    engine.CodeInstanceNotFound,
		"errorMessage": "game instance " + inst + " not found",
	})
	return body
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
