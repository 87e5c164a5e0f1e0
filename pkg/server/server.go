package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mdbase/mdbase/pkg/api"
	"github.com/mdbase/mdbase/pkg/storage"
)

// Server wires the storage engine into an HTTP router.
type Server struct {
	router *mux.Router
	engine *storage.Engine
}

// NewServer opens the database with the given options and registers all
// REST endpoints.
func NewServer(options ...storage.EngineOption) (*Server, error) {
	engine, err := storage.NewEngine(options...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router: mux.NewRouter(),
		engine: engine,
	}

	handler := api.NewHandler(engine)
	handler.RegisterRoutes(s.router)

	// Use the logging middleware for all routes
	s.router.Use(requestLoggerMiddleware)

	// Customize NotFoundHandler to log 404s
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("WARN: No route found for %s %s", r.Method, r.URL.Path)
		http.NotFound(w, r)
	})

	return s, nil
}

// requestLoggerMiddleware logs the method, URL path, and duration for each request.
func requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		elapsed := time.Since(start)
		log.Printf("INFO: Request %s %s took %s", r.Method, r.URL.Path, elapsed)
	})
}

// Router exposes the internal mux.Router.
func (s *Server) Router() http.Handler {
	return s.router
}

// Engine exposes the underlying storage engine.
func (s *Server) Engine() *storage.Engine {
	return s.engine
}

// SaveDB persists the current database state to the snapshot file.
func (s *Server) SaveDB() {
	if err := s.engine.Save(); err != nil {
		log.Printf("ERROR: Could not save DB to file %s: %v", s.engine.SnapshotPath(), err)
	} else {
		log.Printf("INFO: Saved DB to file %s successfully", s.engine.SnapshotPath())
	}
}
