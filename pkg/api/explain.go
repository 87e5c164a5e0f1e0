package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mdbase/mdbase/pkg/query"
)

// HandleExplain handles POST requests that return the plan a query would run
// with, without executing it
func (h *Handler) HandleExplain(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Printf("INFO: handleExplain called for collection '%s'", collName)

	var req query.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("ERROR: Decoding query failed: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Collection = collName

	desc, err := h.engine.Explain(&req)
	if err != nil {
		log.Printf("ERROR: Explain failed for collection '%s': %v", collName, err)
		WriteJSONError(w, statusFor(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"collection": collName,
		"plan":       desc,
	})
}
