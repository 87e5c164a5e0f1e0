package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mdbase/mdbase/pkg/domain"
)

// HandleReplaceById handles PUT requests to completely replace a document by ID
func (h *Handler) HandleReplaceById(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	docId := vars["id"]

	log.Printf("INFO: handleReplaceById called for collection '%s', document '%s'", collName, docId)

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

	if err := h.engine.ReplaceByID(collName, docId, doc); err != nil {
		log.Printf("ERROR: Replace failed for document '%s' in collection '%s': %v", docId, collName, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	log.Printf("INFO: Replaced document '%s' in collection '%s'", docId, collName)
	w.WriteHeader(http.StatusOK)
}
