package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles
const (
	RoleAdmin              = "admin"
	RolePaymentCoordinator = "Payment_Coordinator"
	RolePLVCVerificator    = "PLVC_verificator"
	RoleSalesManager       = "sales_manager"
	RoleSalesExecutive     = "sales_executive"
)

type User struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name        string     `gorm:"not null" json:"name"`
	Email       string     `gorm:"uniqueIndex;not null" json:"email"`
	Password    string     `gorm:"not null" json:"-"`
	Role        string     `gorm:"not null;default:sales_executive" json:"role"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

// BeforeCreate hook to generate UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// IsValidRole checks if the role is one of the known roles
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RolePaymentCoordinator, RolePLVCVerificator, RoleSalesManager, RoleSalesExecutive:
		return true
	}
	return false
}
