package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// CompletedSearcher queries the index of completed lines
type CompletedSearcher interface {
	SearchCompleted(ctx context.Context, query map[string]interface{}) ([]map[string]interface{}, error)
}

// SearchHandler exposes the fulfillment history search. searcher is nil when
// no search backend is configured.
type SearchHandler struct {
	searcher CompletedSearcher
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searcher CompletedSearcher) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

// RegisterRoutes registers the search routes
func (h *SearchHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/search/completed", h.HandleSearchCompleted)
}

// HandleSearchCompleted searches completed lines by order number, client or
// product name
func (h *SearchHandler) HandleSearchCompleted(c *gin.Context) {
	if h.searcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is not configured"})
		return
	}

	size := 50
	if raw := c.Query("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid size"})
			return
		}
		size = parsed
	}

	var match map[string]interface{}
	if q := c.Query("q"); q != "" {
		match = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q,
				"fields": []string{"order_number", "client_name", "product_name"},
			},
		}
	} else {
		match = map[string]interface{}{
			"match_all": map[string]interface{}{},
		}
	}

	docs, err := h.searcher.SearchCompleted(c.Request.Context(), map[string]interface{}{
		"size":  size,
		"query": match,
		"sort":  []map[string]interface{}{{"completed_at": map[string]interface{}{"order": "desc"}}},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": docs})
}
