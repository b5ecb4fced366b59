// Package identity models the authenticated principal returned by the
// backend "who am I" endpoint, including its role assignments and
// permission codes.
package identity

import "encoding/json"

// RoleAssignment ties a named role to an identity. IsAdminRole gates access
// to the admin console variant.
type RoleAssignment struct {
	Name        string `json:"name"`
	IsAdminRole bool   `json:"is_admin_role"`
}

// Identity is the authenticated principal and its profile data. It is
// fetched after login and on every silent refresh, and discarded on logout.
type Identity struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	ProfileImage string
	// Roles holds the object-shaped assignments from the "role" key.
	Roles []RoleAssignment
	// RoleNames holds the plain-string shape from the "roles" key. The
	// backend has historically returned either shape depending on the
	// endpoint, so predicates consult both. Which shape is authoritative
	// is still unresolved with the backend team.
	RoleNames   []string
	Permissions []string
}

type identityWire struct {
	ID           json.RawMessage `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	ProfileImage string          `json:"profile_image"`
	Role         json.RawMessage `json:"role"`
	Roles        json.RawMessage `json:"roles"`
	Permissions  []string        `json:"permissions"`
}

// UnmarshalJSON accepts the identity payload in either historical shape:
// "role" and "roles" may each carry an object list or a string list.
func (id *Identity) UnmarshalJSON(data []byte) error {
	var wire identityWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*id = Identity{
		ID:           decodeID(wire.ID),
		Name:         wire.Name,
		Email:        wire.Email,
		Phone:        wire.Phone,
		ProfileImage: wire.ProfileImage,
		Permissions:  wire.Permissions,
	}
	for _, raw := range []json.RawMessage{wire.Role, wire.Roles} {
		assignments, names := decodeRoleList(raw)
		id.Roles = append(id.Roles, assignments...)
		id.RoleNames = append(id.RoleNames, names...)
	}
	return nil
}

// decodeID tolerates both string and numeric identifiers.
func decodeID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber.String()
	}
	return ""
}

// decodeRoleList accepts an object-list or string-list role payload and
// reports whichever shape it found.
func decodeRoleList(raw json.RawMessage) ([]RoleAssignment, []string) {
	if len(raw) == 0 {
		return nil, nil
	}
	var assignments []RoleAssignment
	if err := json.Unmarshal(raw, &assignments); err == nil {
		return assignments, nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err == nil {
		return nil, names
	}
	return nil, nil
}

// HasRole reports whether the identity carries the named role in either
// shape.
func (id *Identity) HasRole(name string) bool {
	if id == nil {
		return false
	}
	for _, role := range id.Roles {
		if role.Name == name {
			return true
		}
	}
	for _, role := range id.RoleNames {
		if role == name {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the identity carries at least one of the named
// roles.
func (id *Identity) HasAnyRole(names ...string) bool {
	for _, name := range names {
		if id.HasRole(name) {
			return true
		}
	}
	return false
}

// HasAdminRole reports whether any assignment is flagged administrative.
// Only the object shape carries the flag.
func (id *Identity) HasAdminRole() bool {
	if id == nil {
		return false
	}
	for _, role := range id.Roles {
		if role.IsAdminRole {
			return true
		}
	}
	return false
}

// HasPermission reports whether the identity carries the permission code.
func (id *Identity) HasPermission(code string) bool {
	if id == nil {
		return false
	}
	for _, permission := range id.Permissions {
		if permission == code {
			return true
		}
	}
	return false
}
