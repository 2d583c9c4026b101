package users

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/lcsmdq/MyPlan/internal/models"
)

// AllowedProfileFields is the set of user fields a PATCH may touch.
var AllowedProfileFields = map[string]bool{
	"profile_picture": true,
	"role":            true,
	"creator_type":    true,
	"bio":             true,
}

// optionalString distinguishes "absent" from "explicit null".
type optionalString struct {
	Set   bool
	Value *string
}

// ProfilePatch is the validated, whitelisted subset of a profile update body.
type ProfilePatch struct {
	ProfilePicture optionalString
	Role           optionalString
	CreatorType    optionalString
	Bio            optionalString
}

// ParseProfilePatch extracts the whitelisted fields from a raw JSON object.
// Unknown keys are ignored.
func ParseProfilePatch(body map[string]json.RawMessage) (ProfilePatch, error) {
	var p ProfilePatch
	for key, raw := range body {
		if !AllowedProfileFields[key] {
			continue
		}
		v, err := decodeNullableString(raw)
		if err != nil {
			return ProfilePatch{}, models.NewValidationError("%s must be a string or null", key)
		}
		field := optionalString{Set: true, Value: v}
		switch key {
		case "profile_picture":
			p.ProfilePicture = field
		case "role":
			p.Role = field
		case "creator_type":
			p.CreatorType = field
		case "bio":
			p.Bio = field
		}
	}
	return p, nil
}

func decodeNullableString(raw json.RawMessage) (*string, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// updates validates the patch against the current record and returns the
// column updates to apply.
func (p ProfilePatch) updates(current *models.User) (map[string]any, error) {
	updates := map[string]any{}

	newRole := current.Role
	if p.Role.Set {
		if p.Role.Value == nil || !models.ValidRole(*p.Role.Value) {
			return nil, models.NewValidationError("role must be one of: user organizer admin")
		}
		newRole = *p.Role.Value
		if newRole == models.RoleAdmin && !current.IsAdmin() {
			return nil, fmt.Errorf("only admins can grant the admin role: %w", models.ErrForbidden)
		}
		if newRole != current.Role {
			updates["role"] = newRole
		}
	}

	switch {
	case p.CreatorType.Set && p.CreatorType.Value != nil:
		ct := *p.CreatorType.Value
		if !models.ValidCreatorType(ct) {
			return nil, models.NewValidationError("creator_type must be one of: comercio planner fundraiser")
		}
		if newRole != models.RoleOrganizer {
			return nil, models.NewValidationError("creator_type is only allowed for organizers")
		}
		updates["creator_type"] = ct
	case p.CreatorType.Set:
		updates["creator_type"] = nil
	case newRole != models.RoleOrganizer && current.CreatorType != nil:
		updates["creator_type"] = nil
	}

	if p.ProfilePicture.Set {
		updates["profile_picture"] = p.ProfilePicture.Value
	}
	if p.Bio.Set {
		updates["bio"] = p.Bio.Value
	}
	return updates, nil
}
