// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the minimal platform identity record the governance core relies
// on. Credential handling lives with the external identity provider; this
// document only mirrors who the user is and whether the account is active.
type User struct {
	ID            primitive.ObjectID `bson:"_id" json:"id"`
	DisplayName   string             `bson:"display_name" json:"display_name"`
	DisplayNameCI string             `bson:"display_name_ci" json:"-"`
	Email         string             `bson:"email,omitempty" json:"email,omitempty"`
	Status        string             `bson:"status" json:"status"` // active | disabled
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
}
