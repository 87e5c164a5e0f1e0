package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// HandleAnalyze rebuilds the statistics of every index on a collection
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Printf("INFO: handleAnalyze called for collection '%s'", collName)

	if err := h.engine.Analyze(collName); err != nil {
		log.Printf("ERROR: Analyze failed for collection '%s': %v", collName, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	log.Printf("INFO: Analyzed collection '%s'", collName)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":    true,
		"collection": collName,
	})
}
