package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRole is the immutable role assigned at registration
type UserRole string

const (
	RolePatient UserRole = "patient"
	RoleInsurer UserRole = "insurer"
)

// Valid reports whether r is one of the known roles
func (r UserRole) Valid() bool {
	return r == RolePatient || r == RoleInsurer
}

// User represents a registered patient or insurer account
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"` // bcrypt hash
	Role      UserRole           `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
