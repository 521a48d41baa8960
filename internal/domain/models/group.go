// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group represents a community group.
//
// NOTE:
//   - Membership is not embedded on Group; the group_memberships collection
//     is the authoritative join (one document per (group, user)).
//   - TransparencyMode controls who may view governance data (roster,
//     governance log, polls). Once FoundersOnlyRules is set, changing it
//     requires the founder role.
type Group struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description" json:"description"`

	TransparencyMode  string `bson:"transparency_mode" json:"transparency_mode"`
	FoundersOnlyRules bool   `bson:"founders_only_rules" json:"founders_only_rules"`

	// Open groups admit joiners directly; closed groups put each join
	// through a leader ballot.
	Open bool `bson:"open" json:"open"`

	Status string `bson:"status" json:"status"`

	SchemaVersion int       `bson:"schema_version" json:"-"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

// GroupSettingsPatch carries a partial settings update. Nil fields are left
// unchanged.
type GroupSettingsPatch struct {
	Description       *string
	TransparencyMode  *string
	FoundersOnlyRules *bool
	Open              *bool
}

// Constitutional reports whether the patch touches settings that the
// founders-only-rules flag restricts to founders.
func (p GroupSettingsPatch) Constitutional() bool {
	return p.TransparencyMode != nil || p.FoundersOnlyRules != nil || p.Open != nil
}
