package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// HandleGetIndexes returns the indexed fields for a collection
func (h *Handler) HandleGetIndexes(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Printf("INFO: handleGetIndexes called for collection '%s'", collName)

	fields := h.engine.ListIndexes(collName)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"collection":  collName,
		"indexes":     fields,
		"index_count": len(fields),
	})
}
