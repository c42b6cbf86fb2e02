package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProfileKind selects the collection a role profile lives in.
type ProfileKind string

const (
	DoctorProfile  ProfileKind = "doctors"
	TrainerProfile ProfileKind = "trainers"
)

const (
	ProfilePending  = "pending"
	ProfileApproved = "approved"
	ProfileRejected = "rejected"
)

// ProfileKindForRole returns the profile collection provisioned for role, if any.
func ProfileKindForRole(role string) (ProfileKind, bool) {
	switch role {
	case RoleDoctor:
		return DoctorProfile, true
	case RoleTrainer:
		return TrainerProfile, true
	}
	return "", false
}

// Profile is the public doctor/trainer record derived from an approved Account.
// Edits to a profile never flow back to the account.
type Profile struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User           primitive.ObjectID `bson:"user" json:"user"`
	Name           string             `bson:"name" json:"name"`
	Specialization string             `bson:"specialization" json:"specialization"`
	Experience     string             `bson:"experience" json:"experience"`
	Hospital       string             `bson:"hospital,omitempty" json:"hospital,omitempty"` // doctors only
	City           string             `bson:"city" json:"city"`
	Phone          string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Email          string             `bson:"email,omitempty" json:"email,omitempty"`
	ProfileImg     string             `bson:"profileImg,omitempty" json:"profileImg,omitempty"`
	Bio            string             `bson:"bio,omitempty" json:"bio,omitempty"`
	Status         string             `bson:"status" json:"status"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}
