// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/civiclab/convene/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the request's user identity as a Mongo ObjectID plus a
// found flag. If no user is present or the session ID is malformed, it
// returns NilObjectID and false, so ok=true always means a valid,
// authenticated identity. Group roles are not carried on the session; they
// come from the membership store.
func UserCtx(r *http.Request) (userID primitive.ObjectID, name string, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return primitive.NilObjectID, "", false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session - fail closed.
		return primitive.NilObjectID, "", false
	}
	return userID, user.Name, true
}
