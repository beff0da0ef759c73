package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Meeting is a counseling meeting request booked by a student.
type Meeting struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name" binding:"required"`
	Email         string             `bson:"email" json:"email" binding:"required,email"`
	Phone         string             `bson:"phone" json:"phone" binding:"required"`
	Course        string             `bson:"course" json:"course" binding:"required"`
	Year          string             `bson:"year" json:"year" binding:"required"`
	PreferredDate string             `bson:"preferred_date" json:"preferred_date" binding:"required"`
	PreferredTime string             `bson:"preferred_time" json:"preferred_time" binding:"required"`
	Topics        []string           `bson:"topics" json:"topics" binding:"required"`
	Message       string             `bson:"message,omitempty" json:"message,omitempty"`
	Approved      bool               `bson:"approved" json:"approved"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}
