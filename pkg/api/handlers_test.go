package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdbase/mdbase/pkg/api"
	"github.com/mdbase/mdbase/pkg/storage"
)

func newTestRouter(t *testing.T) (*mux.Router, *storage.Engine) {
	t.Helper()
	engine, err := storage.NewEngine(storage.WithDataDir(t.TempDir()))
	require.NoError(t, err)

	router := mux.NewRouter()
	api.NewHandler(engine).RegisterRoutes(router)
	return router, engine
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func seedTasks(t *testing.T, router *mux.Router) {
	t.Helper()
	for _, doc := range []map[string]interface{}{
		{"_id": "t1", "title": "write report", "priority": 1, "status": "open"},
		{"_id": "t2", "title": "fix login", "priority": 3, "status": "open"},
		{"_id": "t3", "title": "ship release", "priority": 3, "status": "done"},
	} {
		rec := doJSON(t, router, "POST", "/collections/tasks", doc)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
}

func TestCreateCollectionEndpoint(t *testing.T) {
	router, engine := newTestRouter(t)

	rec := doJSON(t, router, "PUT", "/collections/tasks", map[string]interface{}{
		"fields": map[string]string{"priority": "int"},
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, engine.CollectionNames(), "tasks")

	// empty body is fine too
	rec = doJSON(t, router, "PUT", "/collections/notes", nil)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// duplicate
	rec = doJSON(t, router, "PUT", "/collections/tasks", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestInsertAndGetEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/collections/tasks", map[string]interface{}{"title": "hello"})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	id, ok := body["_id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	rec = doJSON(t, router, "GET", "/collections/tasks/documents/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	doc := decodeBody(t, rec)
	assert.Equal(t, "hello", doc["title"])

	rec = doJSON(t, router, "GET", "/collections/tasks/documents/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateReplaceDeleteEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)
	seedTasks(t, router)

	rec := doJSON(t, router, "PATCH", "/collections/tasks/documents/t1", map[string]interface{}{"priority": 5})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "GET", "/collections/tasks/documents/t1", nil)
	doc := decodeBody(t, rec)
	assert.EqualValues(t, 5, doc["priority"])
	assert.Equal(t, "write report", doc["title"]) // patch keeps other fields

	rec = doJSON(t, router, "PUT", "/collections/tasks/documents/t1", map[string]interface{}{"title": "replaced"})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, router, "GET", "/collections/tasks/documents/t1", nil)
	doc = decodeBody(t, rec)
	assert.Equal(t, "replaced", doc["title"])
	assert.Nil(t, doc["priority"]) // replace drops everything else

	rec = doJSON(t, router, "DELETE", "/collections/tasks/documents/t1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, router, "GET", "/collections/tasks/documents/t1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, "PATCH", "/collections/tasks/documents/missing", map[string]interface{}{"x": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueryEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	seedTasks(t, router)

	rec := doJSON(t, router, "POST", "/collections/tasks/query", map[string]interface{}{
		"where": map[string]interface{}{"kind": "gt", "field": "priority", "value": 2},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 2, body["count"])

	docs, ok := body["documents"].([]interface{})
	require.True(t, ok)
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.(map[string]interface{})["_id"].(string))
	}
	assert.Equal(t, []string{"t2", "t3"}, ids)

	rec = doJSON(t, router, "POST", "/collections/missing/query", map[string]interface{}{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueryEndpoint_OrderAndLimit(t *testing.T) {
	router, _ := newTestRouter(t)
	seedTasks(t, router)

	rec := doJSON(t, router, "POST", "/collections/tasks/query", map[string]interface{}{
		"order_by": []map[string]interface{}{{"field": "priority", "desc": true}},
		"limit":    1,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	docs := body["documents"].([]interface{})
	require.Len(t, docs, 1)
	assert.Equal(t, "t2", docs[0].(map[string]interface{})["_id"])

	// a negative offset in the body is treated as zero, not a server error
	rec = doJSON(t, router, "POST", "/collections/tasks/query", map[string]interface{}{
		"limit":  1,
		"offset": -2,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	docs = body["documents"].([]interface{})
	require.Len(t, docs, 1)
	assert.Equal(t, "t1", docs[0].(map[string]interface{})["_id"])
}

func TestExplainEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	seedTasks(t, router)

	rec := doJSON(t, router, "POST", "/collections/tasks/indexes/priority", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, "POST", "/collections/tasks/explain", map[string]interface{}{
		"where": map[string]interface{}{"kind": "eq", "field": "priority", "value": 3},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	plan, ok := body["plan"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "index_lookup", plan["node"])
	assert.Equal(t, "priority", plan["field"])
}

func TestIndexEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)
	seedTasks(t, router)

	rec := doJSON(t, router, "POST", "/collections/tasks/indexes/priority", nil)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// duplicate -> conflict
	rec = doJSON(t, router, "POST", "/collections/tasks/indexes/priority", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// _id is rejected
	rec = doJSON(t, router, "POST", "/collections/tasks/indexes/_id", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// unknown field -> not indexable
	rec = doJSON(t, router, "POST", "/collections/tasks/indexes/bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// explicit type name
	rec = doJSON(t, router, "POST", "/collections/tasks/indexes/status", map[string]interface{}{"type": "string"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, "GET", "/collections/tasks/indexes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 2, body["index_count"])
	assert.Equal(t, []interface{}{"priority", "status"}, body["indexes"])

	rec = doJSON(t, router, "DELETE", "/collections/tasks/indexes/status", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, router, "DELETE", "/collections/tasks/indexes/status", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTypeMismatchReturnsBadRequest(t *testing.T) {
	router, _ := newTestRouter(t)
	seedTasks(t, router)

	rec := doJSON(t, router, "POST", "/collections/tasks", map[string]interface{}{"_id": "t4", "priority": 2.5})
	require.Equal(t, http.StatusCreated, rec.Code)

	// an int index cannot represent 2.5
	rec = doJSON(t, router, "POST", "/collections/tasks/indexes/priority", map[string]interface{}{"type": "int"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// the inferred float index can, and writes against it stay open
	rec = doJSON(t, router, "POST", "/collections/tasks/indexes/priority", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, router, "POST", "/collections/tasks", map[string]interface{}{"_id": "t5", "priority": 1.5})
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, router, "POST", "/collections/tasks", map[string]interface{}{"_id": "t6", "priority": "high"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	seedTasks(t, router)

	rec := doJSON(t, router, "POST", "/collections/tasks/analyze", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code) // no indexes yet

	rec = doJSON(t, router, "POST", "/collections/tasks/indexes/priority", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, router, "POST", "/collections/tasks/analyze", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInvalidJSONBody(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest("POST", "/collections/tasks", bytes.NewReader([]byte("{nope")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
