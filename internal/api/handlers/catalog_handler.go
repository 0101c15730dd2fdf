package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"example.com/woodtrack/services/production/internal/messaging"
	"example.com/woodtrack/services/production/internal/models"
)

// ClientStore is the slice of the client repository the catalog needs
type ClientStore interface {
	List(ctx context.Context) ([]models.Client, error)
	Create(ctx context.Context, client *models.Client) error
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProductStore is the slice of the client product repository the catalog needs
type ProductStore interface {
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.ClientProduct, error)
	Create(ctx context.Context, product *models.ClientProduct) error
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// OrderCatalog is the slice of the order repository the catalog needs
type OrderCatalog interface {
	List(ctx context.Context) ([]models.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// LineLister lists the lines of one order
type LineLister interface {
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderLine, error)
}

// OrderIntake registers new orders. HTTP order entry dispatches the same
// command as the bus intake.
type OrderIntake interface {
	HandleCreateOrder(ctx context.Context, cmd messaging.CreateOrderCommand) error
}

// CatalogHandler handles clients, per-client products and orders
type CatalogHandler struct {
	clients  ClientStore
	products ProductStore
	orders   OrderCatalog
	lines    LineLister
	intake   OrderIntake
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(
	clients ClientStore,
	products ProductStore,
	orders OrderCatalog,
	lines LineLister,
	intake OrderIntake,
) *CatalogHandler {
	return &CatalogHandler{
		clients:  clients,
		products: products,
		orders:   orders,
		lines:    lines,
		intake:   intake,
	}
}

// RegisterRoutes registers the catalog routes
func (h *CatalogHandler) RegisterRoutes(r gin.IRouter) {
	clients := r.Group("/clients")
	clients.GET("", h.HandleListClients)
	clients.POST("", h.HandleCreateClient)
	clients.PUT("/:id", h.HandleUpdateClient)
	clients.DELETE("/:id", h.HandleDeleteClient)
	clients.GET("/:id/products", h.HandleListProducts)
	clients.POST("/:id/products", h.HandleCreateProduct)
	clients.PUT("/:id/products/:productID", h.HandleUpdateProduct)
	clients.DELETE("/:id/products/:productID", h.HandleDeleteProduct)

	orders := r.Group("/orders")
	orders.GET("", h.HandleListOrders)
	orders.POST("", h.HandleCreateOrder)
	orders.DELETE("/:id", h.HandleDeleteOrder)
	orders.GET("/:id/lines", h.HandleListOrderLines)
}

// HandleListClients returns all clients
func (h *CatalogHandler) HandleListClients(c *gin.Context) {
	clients, err := h.clients.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clients": clients})
}

// CreateClientRequest registers a new client
type CreateClientRequest struct {
	BusinessName string `json:"business_name" binding:"required"`
	Address      string `json:"address"`
}

// HandleCreateClient registers a new client
func (h *CatalogHandler) HandleCreateClient(c *gin.Context) {
	var req CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	client := &models.Client{
		ID:           uuid.New(),
		BusinessName: req.BusinessName,
		Address:      req.Address,
	}
	if err := h.clients.Create(c.Request.Context(), client); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"client": client})
}

// UpdateClientRequest changes a client's registry data
type UpdateClientRequest struct {
	BusinessName string `json:"business_name" binding:"required"`
	Address      string `json:"address"`
}

// HandleUpdateClient changes a client's registry data
func (h *CatalogHandler) HandleUpdateClient(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client id"})
		return
	}

	var req UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = h.clients.Update(c.Request.Context(), id, map[string]interface{}{
		"business_name": req.BusinessName,
		"address":       req.Address,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleDeleteClient removes a client
func (h *CatalogHandler) HandleDeleteClient(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client id"})
		return
	}

	if err := h.clients.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleListProducts returns the catalog of one client
func (h *CatalogHandler) HandleListProducts(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client id"})
		return
	}

	products, err := h.products.ListByClient(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// CreateProductRequest adds a catalog entry for a client
type CreateProductRequest struct {
	Name string             `json:"name" binding:"required"`
	Spec models.ProductSpec `json:"spec"`
}

// HandleCreateProduct adds a catalog entry for a client
func (h *CatalogHandler) HandleCreateProduct(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client id"})
		return
	}

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product := &models.ClientProduct{
		ID:       uuid.New(),
		ClientID: clientID,
		Name:     req.Name,
		Spec:     req.Spec,
	}
	if err := h.products.Create(c.Request.Context(), product); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": product})
}

// HandleUpdateProduct changes a catalog entry
func (h *CatalogHandler) HandleUpdateProduct(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = h.products.Update(c.Request.Context(), productID, map[string]interface{}{
		"name": req.Name,
		"spec": req.Spec,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleDeleteProduct removes a catalog entry
func (h *CatalogHandler) HandleDeleteProduct(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	if err := h.products.Delete(c.Request.Context(), productID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleListOrders returns all orders, newest first
func (h *CatalogHandler) HandleListOrders(c *gin.Context) {
	orders, err := h.orders.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// CreateOrderRequest registers an order with its lines
type CreateOrderRequest struct {
	ClientID    string                   `json:"client_id" binding:"required"`
	OrderNumber string                   `json:"order_number" binding:"required"`
	Lines       []CreateOrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// CreateOrderLineRequest is one line of a new order
type CreateOrderLineRequest struct {
	ProductID    string `json:"product_id" binding:"required"`
	Quantity     int    `json:"quantity" binding:"required,gt=0"`
	DeliveryDate string `json:"delivery_date"`
	Note         string `json:"note"`
}

// HandleCreateOrder registers an order. The request is dispatched as the same
// command the bus intake applies; new lines start in production.
func (h *CatalogHandler) HandleCreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := uuid.Parse(req.ClientID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client id"})
		return
	}

	cmd := messaging.CreateOrderCommand{
		ClientID:    req.ClientID,
		OrderNumber: req.OrderNumber,
	}
	for _, line := range req.Lines {
		if _, err := uuid.Parse(line.ProductID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
			return
		}
		cmd.Lines = append(cmd.Lines, messaging.CreateLineCommand{
			ProductID:    line.ProductID,
			Quantity:     line.Quantity,
			DeliveryDate: line.DeliveryDate,
			Note:         line.Note,
		})
	}

	if err := h.intake.HandleCreateOrder(c.Request.Context(), cmd); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true})
}

// HandleDeleteOrder removes an order
func (h *CatalogHandler) HandleDeleteOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	if err := h.orders.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleListOrderLines returns the lines of one order
func (h *CatalogHandler) HandleListOrderLines(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	lines, err := h.lines.ListByOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lines": lines})
}
