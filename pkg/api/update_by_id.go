package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mdbase/mdbase/pkg/domain"
)

// HandleUpdateById handles PATCH requests to partially update a document by ID
func (h *Handler) HandleUpdateById(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	docId := vars["id"]

	log.Printf("INFO: handleUpdateById called for collection '%s', document '%s'", collName, docId)

	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		log.Printf("ERROR: Decoding body failed: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	updates := domain.Document{}
	for k, v := range body {
		updates[k] = v
	}

	if err := h.engine.UpdateByID(collName, docId, updates); err != nil {
		log.Printf("ERROR: Update failed for document '%s' in collection '%s': %v", docId, collName, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	log.Printf("INFO: Updated document '%s' in collection '%s'", docId, collName)
	w.WriteHeader(http.StatusOK)
}
