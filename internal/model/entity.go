package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ticket is a delivery request left by a customer.
type Ticket struct {
	ID           string `gorm:"type:varchar(36);primaryKey" json:"id"`
	CustomerName string `gorm:"type:varchar(255);not null" json:"customer_name"`
	Email        string `gorm:"type:varchar(255)" json:"email,omitempty"`
	Phone        string `gorm:"type:varchar(32)" json:"phone,omitempty"`
	PhotoName    string `gorm:"type:varchar(255)" json:"photo_name,omitempty"`
	PhotoPath    string `gorm:"type:varchar(512)" json:"photo_path,omitempty"`
	Description  string `gorm:"type:text;not null" json:"description"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Ticket) TableName() string { return "delivery_requests" }

func (t *Ticket) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

func (t *Ticket) HasPhoto() bool {
	return t.PhotoName != "" && t.PhotoPath != ""
}

// AdminCredential is provisioned out of band and compared verbatim on login.
type AdminCredential struct {
	Username string `gorm:"type:varchar(255);primaryKey" json:"username"`
	Password string `gorm:"type:varchar(255);not null" json:"-"`
}

func (AdminCredential) TableName() string { return "admin_users" }
