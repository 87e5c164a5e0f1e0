package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mdbase/mdbase/pkg/query"
)

// HandleQuery handles POST requests that run a query against a collection.
// The collection in the URL overrides any collection named in the body.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Printf("INFO: handleQuery called for collection '%s'", collName)

	var req query.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("ERROR: Decoding query failed: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Collection = collName

	docs, err := h.engine.Query(&req)
	if err != nil {
		log.Printf("ERROR: Query failed for collection '%s': %v", collName, err)
		WriteJSONError(w, statusFor(err), err.Error())
		return
	}

	log.Printf("INFO: Query on collection '%s' returned %d documents", collName, len(docs))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}
