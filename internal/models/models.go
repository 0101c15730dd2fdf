package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Client represents a customer of the mill
type Client struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	BusinessName string         `gorm:"not null" json:"business_name"`
	Address      string         `json:"address"`
	Products     []ClientProduct `gorm:"foreignKey:ClientID" json:"-"`
	Orders       []Order         `gorm:"foreignKey:ClientID" json:"-"`
}

// ClientProduct is a catalog entry scoped to one client
type ClientProduct struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	ClientID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"client_id"`
	Name      string         `gorm:"not null" json:"name"`
	Spec      ProductSpec    `gorm:"type:jsonb" json:"spec"`
	Client    Client         `gorm:"foreignKey:ClientID" json:"-"`
}

// Order groups the lines sold to one client under one order number
type Order struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	ClientID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"client_id"`
	OrderNumber string         `gorm:"not null;uniqueIndex" json:"order_number"`
	Client      Client         `gorm:"foreignKey:ClientID" json:"-"`
	Lines       []OrderLine    `gorm:"foreignKey:OrderID" json:"-"`
}

// OrderLine is one order/product pairing moving through the fulfillment
// lifecycle. Lines sharing a non-null GroupCode form a group and are
// transitioned together.
type OrderLine struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	OrderID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID uuid.UUID      `gorm:"type:uuid;not null" json:"product_id"`
	Status    Status         `gorm:"type:varchar(32);not null;index" json:"status"`
	GroupCode *string        `gorm:"index" json:"group_code"`
	Payload   LinePayload    `gorm:"type:jsonb" json:"payload"`
	Order     Order          `gorm:"foreignKey:OrderID" json:"-"`
	Product   ClientProduct  `gorm:"foreignKey:ProductID" json:"-"`
}

// Grouped reports whether the line belongs to a delivery group.
func (l *OrderLine) Grouped() bool {
	return l.GroupCode != nil && *l.GroupCode != ""
}

// User roles
const (
	RoleAdmin        = "admin"
	RoleCollaborator = "collaboratore"
	RoleOperator     = "operatore"
)

// Registration statuses
const (
	RegistrationPending = "pending"
	RegistrationActive  = "active"
)

// User is an account held by the identity provider. While pending, the OTP is
// the user's actual temporary credential and is mirrored here for admin display.
type User struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
	Email              string         `gorm:"not null;uniqueIndex" json:"email"`
	Name               string         `json:"name"`
	Role               string         `gorm:"not null;default:collaboratore" json:"role"`
	RegistrationStatus string         `gorm:"not null;default:pending" json:"registration_status"`
	EmailConfirmed     bool           `gorm:"not null;default:true" json:"email_confirmed"`
	CredentialHash     string         `gorm:"not null" json:"-"`
	OTP                *string        `json:"otp,omitempty"`
	OTPExpiresAt       *time.Time     `json:"otp_expires_at,omitempty"`
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Client{},
		&ClientProduct{},
		&Order{},
		&OrderLine{},
		&User{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}
	return nil
}
