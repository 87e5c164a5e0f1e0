package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mdbase/mdbase/pkg/domain"
)

// HandleInsert handles POST requests to insert a document into a collection
func (h *Handler) HandleInsert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Printf("INFO: handleInsert called for collection '%s'", collName)

	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		log.Printf("ERROR: Decoding body failed: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	doc := domain.Document{}
	for k, v := range body {
		doc[k] = v
	}

	docId, err := h.engine.Insert(collName, doc)
	if err != nil {
		log.Printf("ERROR: Insert failed for collection '%s': %v", collName, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	log.Printf("INFO: Inserted document '%s' into collection '%s'", docId, collName)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"_id":     docId,
	})
}
