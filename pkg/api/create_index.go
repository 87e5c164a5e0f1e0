package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mdbase/mdbase/pkg/domain"
)

// CreateIndexRequest optionally declares the key type for a new index. When
// omitted the type is resolved from the collection schema or inferred from
// stored documents.
type CreateIndexRequest struct {
	Type string `json:"type,omitempty"`
}

// HandleCreateIndex creates an index on a specific field in a collection
func (h *Handler) HandleCreateIndex(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	fieldName := vars["field"]

	if fieldName == "" {
		http.Error(w, "field name is required", http.StatusBadRequest)
		return
	}

	// _id lookups never need a secondary index
	if fieldName == domain.IDField {
		http.Error(w, "cannot create index on _id field (always directly addressable)", http.StatusBadRequest)
		return
	}

	log.Printf("INFO: handleCreateIndex called for collection '%s', field '%s'", collName, fieldName)

	var req CreateIndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		log.Printf("ERROR: Decoding body failed: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.engine.CreateIndex(collName, fieldName, req.Type); err != nil {
		log.Printf("ERROR: Create index failed for '%s.%s': %v", collName, fieldName, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	log.Printf("INFO: Created index on '%s.%s'", collName, fieldName)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":    true,
		"message":    "Index created successfully",
		"collection": collName,
		"field":      fieldName,
	})
}
