package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser    = "user"
	RoleAdmin   = "admin"
	RoleDoctor  = "doctor"
	RoleTrainer = "trainer"
)

// Password states. An account in PasswordUnset has no usable hash and must
// redeem a reset token before it can log in.
const (
	PasswordUnset = "unset"
	PasswordSet   = "set"
)

type Account struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Email          string             `bson:"email" json:"email"`
	Password       string             `bson:"password" json:"-"` // Hide from JSON responses
	PasswordState  string             `bson:"passwordState" json:"passwordState"`
	Role           string             `bson:"role" json:"role"`
	IsApproved     bool               `bson:"isApproved" json:"isApproved"`
	CreatedByAdmin bool               `bson:"createdByAdmin" json:"createdByAdmin"`

	// Staging fields collected on doctor/trainer registration.
	Specialization string `bson:"specialization,omitempty" json:"specialization,omitempty"`
	City           string `bson:"city,omitempty" json:"city,omitempty"`
	Phone          string `bson:"phone,omitempty" json:"phone,omitempty"`
	Experience     string `bson:"experience,omitempty" json:"experience,omitempty"`
	Hospital       string `bson:"hospital,omitempty" json:"hospital,omitempty"`
	Bio            string `bson:"bio,omitempty" json:"bio,omitempty"`
	ProfileImg     string `bson:"profileImg,omitempty" json:"profileImg,omitempty"`

	ResetToken       string     `bson:"resetToken,omitempty" json:"-"`
	ResetTokenExpiry *time.Time `bson:"resetTokenExpiry,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Identity is the minimal public view returned on login.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

func (a *Account) Identity() Identity {
	return Identity{ID: a.ID.Hex(), Name: a.Name, Role: a.Role}
}

// HasUsablePassword reports whether the account can authenticate with a password.
func (a *Account) HasUsablePassword() bool {
	return a.PasswordState == PasswordSet && a.Password != ""
}

func IsValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAdmin, RoleDoctor, RoleTrainer:
		return true
	}
	return false
}
