package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"example.com/woodtrack/services/production/internal/identity"
	"example.com/woodtrack/services/production/internal/models"
	"example.com/woodtrack/services/production/internal/services"
	"example.com/woodtrack/services/production/internal/tracing"
)

// LinesHandler handles order line HTTP requests
type LinesHandler struct {
	lifecycle *services.LifecycleService
	notes     *services.NoteDebouncer
	tracer    tracing.Tracer
}

// NewLinesHandler creates a new lines handler
func NewLinesHandler(lifecycle *services.LifecycleService, notes *services.NoteDebouncer, tracer tracing.Tracer) *LinesHandler {
	return &LinesHandler{
		lifecycle: lifecycle,
		notes:     notes,
		tracer:    tracer,
	}
}

// RegisterRoutes registers the line routes
func (h *LinesHandler) RegisterRoutes(r gin.IRouter) {
	lines := r.Group("/lines")
	lines.GET("", h.HandleList)
	lines.POST("/:id/confirm-production", h.HandleConfirmProduction)
	lines.POST("/:id/toggle-ready", h.HandleToggleReady)
	lines.POST("/:id/dispatch", h.HandleDispatch)
	lines.POST("/:id/complete", h.HandleComplete)
	lines.PUT("/:id/delivery-date", h.HandleUpdateDeliveryDate)
	lines.PUT("/:id/note", h.HandleUpdateNote)
	lines.POST("/:id/deliveries", h.HandleAddDelivery)
	lines.DELETE("/:id/deliveries/:index", h.HandleRemoveDelivery)
	lines.DELETE("/:id", h.HandleDeleteLine)
}

// HandleList returns lines in display order, filtered by status
func (h *LinesHandler) HandleList(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-list-lines")
	defer h.tracer.EndTransaction(txn)

	var statuses []models.Status
	if raw := c.Query("statuses"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status := models.Status(strings.TrimSpace(s))
			if !status.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status: " + s})
				return
			}
			statuses = append(statuses, status)
		}
	} else {
		statuses = []models.Status{models.StatusProduction}
	}

	lines, err := h.lifecycle.ListView(c.Request.Context(), statuses...)
	if err != nil {
		log.Error().Err(err).Msg("failed to list lines")
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"lines": lines})
}

// handleLifecycleAction runs one status-changing action inside a traced
// transaction
func (h *LinesHandler) handleLifecycleAction(c *gin.Context, name string, action func(ctx context.Context, id uuid.UUID, actor identity.Actor) error) {
	txn := h.tracer.StartTransaction(name)
	defer h.tracer.EndTransaction(txn)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid line id"})
		return
	}
	h.tracer.AddAttribute(txn, "line_id", id.String())

	if err := action(c.Request.Context(), id, CurrentActor(c)); err != nil {
		log.Error().Err(err).Str("line_id", id.String()).Str("action", name).Msg("lifecycle action failed")
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleConfirmProduction moves the line from production to delivery, stamping
// the confirming user
func (h *LinesHandler) HandleConfirmProduction(c *gin.Context) {
	h.handleLifecycleAction(c, "api-confirm-production", h.lifecycle.ConfirmProduction)
}

// HandleToggleReady flips the line between delivery and ready_for_delivery
func (h *LinesHandler) HandleToggleReady(c *gin.Context) {
	h.handleLifecycleAction(c, "api-toggle-ready", h.lifecycle.ToggleReady)
}

// HandleDispatch moves the line into documented
func (h *LinesHandler) HandleDispatch(c *gin.Context) {
	h.handleLifecycleAction(c, "api-dispatch-line", h.lifecycle.Dispatch)
}

// HandleComplete closes out a documented line
func (h *LinesHandler) HandleComplete(c *gin.Context) {
	h.handleLifecycleAction(c, "api-complete-line", h.lifecycle.Complete)
}

// DeliveryDateRequest carries a planned delivery date
type DeliveryDateRequest struct {
	Date string `json:"date" binding:"required"`
}

// HandleUpdateDeliveryDate sets the planned delivery date, group-wide for
// grouped lines
func (h *LinesHandler) HandleUpdateDeliveryDate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid line id"})
		return
	}

	var req DeliveryDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.lifecycle.UpdateDeliveryDate(c.Request.Context(), id, req.Date); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// NoteRequest carries a free-form note
type NoteRequest struct {
	Note string `json:"note"`
}

// HandleUpdateNote records a note edit. Writes are debounced; rapid edits
// collapse into a single write of the final value.
func (h *LinesHandler) HandleUpdateNote(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid line id"})
		return
	}

	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.notes.Set(id, req.Note)
	c.JSON(http.StatusAccepted, gin.H{"success": true})
}

// DeliveryEventRequest records one physical delivery
type DeliveryEventRequest struct {
	Date string `json:"date" binding:"required"`
	Note string `json:"note"`
}

// HandleAddDelivery appends a delivery to the line's ledger
func (h *LinesHandler) HandleAddDelivery(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid line id"})
		return
	}

	var req DeliveryEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event := models.DeliveryEvent{Date: req.Date, Note: req.Note}
	if err := h.lifecycle.AddDeliveryEvent(c.Request.Context(), id, event); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true})
}

// HandleDeleteLine removes a line on explicit user request, any status
func (h *LinesHandler) HandleDeleteLine(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid line id"})
		return
	}

	if err := h.lifecycle.DeleteLine(c.Request.Context(), id, CurrentActor(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleRemoveDelivery removes the delivery at a ledger position
func (h *LinesHandler) HandleRemoveDelivery(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid line id"})
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid delivery index"})
		return
	}

	if err := h.lifecycle.RemoveDeliveryEvent(c.Request.Context(), id, index); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
