package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Bus is a tracked vehicle. DriverUID is empty while unassigned; at most
// one bus per driver, checked at assignment time.
type Bus struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CollegeID string             `bson:"college_id" json:"college_id"`
	Number    string             `bson:"number" json:"number"`
	Route     string             `bson:"route" json:"route"`
	DriverUID string             `bson:"driver_uid,omitempty" json:"driver_uid,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
