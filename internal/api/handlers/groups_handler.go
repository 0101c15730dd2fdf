package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"example.com/woodtrack/services/production/internal/services"
	"example.com/woodtrack/services/production/internal/tracing"
)

// GroupsHandler handles delivery group HTTP requests
type GroupsHandler struct {
	groups *services.GroupService
	tracer tracing.Tracer
}

// NewGroupsHandler creates a new groups handler
func NewGroupsHandler(groups *services.GroupService, tracer tracing.Tracer) *GroupsHandler {
	return &GroupsHandler{groups: groups, tracer: tracer}
}

// RegisterRoutes registers the group routes
func (h *GroupsHandler) RegisterRoutes(r gin.IRouter) {
	groups := r.Group("/groups")
	groups.POST("", h.HandleCreate)
	groups.DELETE("/:code", h.HandleDissolve)
	groups.PUT("/:code/delivery-date", h.HandleUpdateDeliveryDate)
}

// CreateGroupRequest selects the lines forming a new group, in order. The
// first line's status and delivery date become the group's.
type CreateGroupRequest struct {
	LineIDs []uuid.UUID `json:"line_ids" binding:"required"`
}

// HandleCreate forms a new group
func (h *GroupsHandler) HandleCreate(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-group")
	defer h.tracer.EndTransaction(txn)

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	code, err := h.groups.CreateGroup(c.Request.Context(), req.LineIDs)
	if err != nil {
		log.Error().Err(err).Msg("failed to create group")
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"group_code": code})
}

// HandleDissolve dissolves a group, leaving members ungrouped
func (h *GroupsHandler) HandleDissolve(c *gin.Context) {
	code := c.Param("code")
	if err := h.groups.DissolveGroup(c.Request.Context(), code); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleUpdateDeliveryDate sets the delivery date on every member of a group
func (h *GroupsHandler) HandleUpdateDeliveryDate(c *gin.Context) {
	var req DeliveryDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	code := c.Param("code")
	if err := h.groups.UpdateDeliveryDate(c.Request.Context(), code, req.Date); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
