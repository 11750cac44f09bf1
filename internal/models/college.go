package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// College is a tenant. Code is the short unique code students type at
// login, stored upper-cased.
type College struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Code      string             `bson:"code" json:"code"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// ModuleSetting enables or disables bus tracking for one college.
type ModuleSetting struct {
	CollegeID string    `bson:"college_id" json:"college_id"`
	IsEnabled bool      `bson:"is_enabled" json:"is_enabled"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
