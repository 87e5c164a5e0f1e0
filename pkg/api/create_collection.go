package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// CreateCollectionRequest carries the optional declared field types for a
// new collection, keyed by field name ("int", "string", "bool", "float", ...)
type CreateCollectionRequest struct {
	Fields map[string]string `json:"fields,omitempty"`
}

// HandleCreateCollection handles PUT requests to create a collection
func (h *Handler) HandleCreateCollection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Printf("INFO: handleCreateCollection called for collection '%s'", collName)

	var req CreateCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		log.Printf("ERROR: Decoding body failed: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.engine.CreateCollection(collName, req.Fields); err != nil {
		log.Printf("ERROR: Create collection '%s' failed: %v", collName, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	log.Printf("INFO: Created collection '%s'", collName)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":    true,
		"collection": collName,
	})
}
