package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// HandleDropIndex removes the index on a specific field in a collection
func (h *Handler) HandleDropIndex(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	fieldName := vars["field"]

	log.Printf("INFO: handleDropIndex called for collection '%s', field '%s'", collName, fieldName)

	if err := h.engine.DropIndex(collName, fieldName); err != nil {
		log.Printf("ERROR: Drop index failed for '%s.%s': %v", collName, fieldName, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	log.Printf("INFO: Dropped index on '%s.%s'", collName, fieldName)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":    true,
		"message":    "Index dropped successfully",
		"collection": collName,
		"field":      fieldName,
	})
}
