package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type UserStatus string

const (
	UserPending  UserStatus = "pending"
	UserApproved UserStatus = "approved"
	UserRejected UserStatus = "rejected"
)

// RegisterUser is a registered applicant. Rows are created by the external
// registration flow; this service only reads them.
type RegisterUser struct {
	ID    string `gorm:"column:id;type:text;primaryKey" json:"id"`
	Title string `gorm:"column:title;type:text" json:"title"`
	Name  string `gorm:"column:name;type:text" json:"name"`
	Age   int    `gorm:"column:age" json:"age"`
	Phone string `gorm:"column:phone;type:text;uniqueIndex" json:"phone"`
	Email string `gorm:"column:email;type:text;uniqueIndex" json:"email"`

	Activities pq.StringArray `gorm:"column:activities;type:text[]" json:"activities"`

	// Raw registration-form answers (shape owned by the registration app).
	Registration datatypes.JSON `gorm:"column:registration;type:jsonb" json:"registration"`

	Status UserStatus `gorm:"column:status;type:text;default:'pending'" json:"status"`
	Terms  bool       `gorm:"column:terms" json:"terms"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (RegisterUser) TableName() string { return "register_users" }
