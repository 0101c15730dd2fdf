package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	lastQuery map[string]interface{}
	docs      []map[string]interface{}
}

func (s *fakeSearcher) SearchCompleted(ctx context.Context, query map[string]interface{}) ([]map[string]interface{}, error) {
	s.lastQuery = query
	return s.docs, nil
}

func newSearchRouter(searcher CompletedSearcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewSearchHandler(searcher).RegisterRoutes(router)
	return router
}

func TestSearchCompleted(t *testing.T) {
	searcher := &fakeSearcher{docs: []map[string]interface{}{{"order_number": "ORD-2026-001"}}}
	router := newSearchRouter(searcher)

	req := httptest.NewRequest(http.MethodGet, "/search/completed?q=rossi&size=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ORD-2026-001")

	require.NotNil(t, searcher.lastQuery)
	assert.Equal(t, 10, searcher.lastQuery["size"])
	query := searcher.lastQuery["query"].(map[string]interface{})
	match := query["multi_match"].(map[string]interface{})
	assert.Equal(t, "rossi", match["query"])
}

func TestSearchCompletedDefaultsToMatchAll(t *testing.T) {
	searcher := &fakeSearcher{}
	router := newSearchRouter(searcher)

	req := httptest.NewRequest(http.MethodGet, "/search/completed", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	query := searcher.lastQuery["query"].(map[string]interface{})
	assert.Contains(t, query, "match_all")
}

func TestSearchCompletedUnconfigured(t *testing.T) {
	router := newSearchRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/search/completed?q=rossi", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
