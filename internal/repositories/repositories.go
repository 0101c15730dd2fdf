package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"example.com/woodtrack/services/production/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("record not found")

func translate(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// ClientRepository provides access to client data
type ClientRepository struct {
	db         *gorm.DB // Write database
	readOnlyDB *gorm.DB // Read-only database
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *gorm.DB, readOnlyDB *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db, readOnlyDB: readOnlyDB}
}

// Create creates a new client
func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(client).Error, "failed to create client")
}

// GetByID gets a client by ID
func (r *ClientRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	// Use read-only DB for reads
	if err := r.readOnlyDB.WithContext(ctx).First(&client, "id = ?", id).Error; err != nil {
		return nil, translate(err, "failed to get client by ID")
	}
	return &client, nil
}

// List returns all clients ordered by business name
func (r *ClientRepository) List(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	err := r.readOnlyDB.WithContext(ctx).Order("business_name").Find(&clients).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list clients")
	}
	return clients, nil
}

// Update updates a client's mutable fields
func (r *ClientRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.Client{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update client")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a client
func (r *ClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return errors.Wrap(r.db.WithContext(ctx).Delete(&models.Client{}, "id = ?", id).Error, "failed to delete client")
}

// ClientProductRepository provides access to per-client catalog entries
type ClientProductRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewClientProductRepository creates a new repository
func NewClientProductRepository(db *gorm.DB, readOnlyDB *gorm.DB) *ClientProductRepository {
	return &ClientProductRepository{db: db, readOnlyDB: readOnlyDB}
}

// Create creates a new catalog entry
func (r *ClientProductRepository) Create(ctx context.Context, product *models.ClientProduct) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(product).Error, "failed to create client product")
}

// GetByID gets a catalog entry by ID
func (r *ClientProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ClientProduct, error) {
	var product models.ClientProduct
	if err := r.readOnlyDB.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err, "failed to get client product by ID")
	}
	return &product, nil
}

// ListByClient lists the catalog of one client
func (r *ClientProductRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.ClientProduct, error) {
	var products []models.ClientProduct
	err := r.readOnlyDB.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("name").
		Find(&products).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list client products")
	}
	return products, nil
}

// Update updates a catalog entry's mutable fields
func (r *ClientProductRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.ClientProduct{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update client product")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a catalog entry
func (r *ClientProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return errors.Wrap(r.db.WithContext(ctx).Delete(&models.ClientProduct{}, "id = ?", id).Error, "failed to delete client product")
}

// OrderRepository provides access to order data
type OrderRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewOrderRepository creates a new repository
func NewOrderRepository(db *gorm.DB, readOnlyDB *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db, readOnlyDB: readOnlyDB}
}

// Create creates a new order
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(order).Error, "failed to create order")
}

// GetByID gets an order by ID
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.readOnlyDB.WithContext(ctx).Preload("Client").First(&order, "id = ?", id).Error; err != nil {
		return nil, translate(err, "failed to get order by ID")
	}
	return &order, nil
}

// GetByNumber gets an order by its order number
func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*models.Order, error) {
	var order models.Order
	if err := r.readOnlyDB.WithContext(ctx).Where("order_number = ?", number).First(&order).Error; err != nil {
		return nil, translate(err, "failed to get order by number")
	}
	return &order, nil
}

// List returns all orders with their client, newest first
func (r *OrderRepository) List(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Client").
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders")
	}
	return orders, nil
}

// Delete removes an order
func (r *OrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return errors.Wrap(r.db.WithContext(ctx).Delete(&models.Order{}, "id = ?", id).Error, "failed to delete order")
}

// OrderLineRepository provides access to order lines
type OrderLineRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewOrderLineRepository creates a new repository
func NewOrderLineRepository(db *gorm.DB, readOnlyDB *gorm.DB) *OrderLineRepository {
	return &OrderLineRepository{db: db, readOnlyDB: readOnlyDB}
}

// Create creates a new order line
func (r *OrderLineRepository) Create(ctx context.Context, line *models.OrderLine) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(line).Error, "failed to create order line")
}

// GetByID gets an order line by ID, with order, client and product preloaded
func (r *OrderLineRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.OrderLine, error) {
	var line models.OrderLine
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Order").
		Preload("Order.Client").
		Preload("Product").
		First(&line, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "failed to get order line by ID")
	}
	return &line, nil
}

// ListByStatuses lists lines whose status is one of the given values
func (r *OrderLineRepository) ListByStatuses(ctx context.Context, statuses ...models.Status) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Order").
		Preload("Order.Client").
		Preload("Product").
		Where("status IN ?", statuses).
		Find(&lines).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list order lines by status")
	}
	return lines, nil
}

// ListByOrder lists the lines of one order
func (r *OrderLineRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Product").
		Where("order_id = ?", orderID).
		Find(&lines).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list order lines by order")
	}
	return lines, nil
}

// Update applies a partial, unconditional field update to one line
func (r *OrderLineRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.OrderLine{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update order line")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an order line regardless of its status
func (r *OrderLineRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return errors.Wrap(r.db.WithContext(ctx).Delete(&models.OrderLine{}, "id = ?", id).Error, "failed to delete order line")
}

// UserRepository provides access to identity provider accounts
type UserRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewUserRepository creates a new repository
func NewUserRepository(db *gorm.DB, readOnlyDB *gorm.DB) *UserRepository {
	return &UserRepository{db: db, readOnlyDB: readOnlyDB}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(user).Error, "failed to create user")
}

// GetByID gets a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.readOnlyDB.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, "failed to get user by ID")
	}
	return &user, nil
}

// GetByEmail gets a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.readOnlyDB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err, "failed to get user by email")
	}
	return &user, nil
}

// List returns all users ordered by creation time
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.readOnlyDB.WithContext(ctx).Order("created_at").Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}
	return users, nil
}

// Update applies a partial field update to one user
func (r *UserRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update user")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a user
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return errors.Wrap(r.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id).Error, "failed to delete user")
}
