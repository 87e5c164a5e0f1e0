package api

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API routes with the given router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	// Collection operations
	router.HandleFunc("/collections/{coll}", h.HandleCreateCollection).Methods("PUT")
	router.HandleFunc("/collections/{coll}", h.HandleInsert).Methods("POST")

	// Document operations (by ID)
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleGetById).Methods("GET")
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleUpdateById).Methods("PATCH") // Partial update
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleReplaceById).Methods("PUT")  // Complete replacement
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleDeleteById).Methods("DELETE")

	// Query operations
	router.HandleFunc("/collections/{coll}/query", h.HandleQuery).Methods("POST")
	router.HandleFunc("/collections/{coll}/explain", h.HandleExplain).Methods("POST")

	// Index operations
	router.HandleFunc("/collections/{coll}/indexes", h.HandleGetIndexes).Methods("GET")
	router.HandleFunc("/collections/{coll}/indexes/{field}", h.HandleCreateIndex).Methods("POST")
	router.HandleFunc("/collections/{coll}/indexes/{field}", h.HandleDropIndex).Methods("DELETE")
	router.HandleFunc("/collections/{coll}/analyze", h.HandleAnalyze).Methods("POST")

	// Health check
	router.HandleFunc("/health", h.HandleHealth).Methods("GET")
}
