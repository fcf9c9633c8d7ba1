// Package access holds the dashboard's authorization policy: which rahat roles
// may open which dashboard pages, and which roles pass each page gate.
package access

import (
	"errors"
	"fmt"
)

// RahatRole is the domain role that drives workflow permissions. It is distinct
// from the coarse system role stored on the backend user record.
type RahatRole string

const (
	RoleCollector           RahatRole = "collector"
	RoleAdditionalCollector RahatRole = "additional-collector"
	RoleSDM                 RahatRole = "sdm"
	RoleTehsildar           RahatRole = "tehsildar"
	RoleThanaIncharge       RahatRole = "thana-incharge"
	RoleRahatShakha         RahatRole = "rahat-shakha"
	RoleOIC                 RahatRole = "oic"
	// RoleAdmin only appears in page gates, never in the path table.
	RoleAdmin RahatRole = "admin"
)

var ErrUnknownRole = errors.New("access: unknown rahat role")

var knownRoles = map[RahatRole]struct{}{
	RoleCollector:           {},
	RoleAdditionalCollector: {},
	RoleSDM:                 {},
	RoleTehsildar:           {},
	RoleThanaIncharge:       {},
	RoleRahatShakha:         {},
	RoleOIC:                 {},
	RoleAdmin:               {},
}

// Roles lists the assignable workflow roles in approval order.
func Roles() []RahatRole {
	return []RahatRole{
		RoleTehsildar,
		RoleThanaIncharge,
		RoleSDM,
		RoleRahatShakha,
		RoleOIC,
		RoleAdditionalCollector,
		RoleCollector,
	}
}

func ParseRahatRole(s string) (RahatRole, error) {
	r := RahatRole(s)
	if _, ok := knownRoles[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

func (r RahatRole) Valid() bool {
	_, ok := knownRoles[r]
	return ok
}

func (r RahatRole) String() string {
	return string(r)
}

// SystemRole is the backend's coarse role on a user record.
type SystemRole string

const (
	SystemRoleAdmin SystemRole = "admin"
	SystemRoleUser  SystemRole = "user"
)

func (r SystemRole) IsAdmin() bool {
	return r == SystemRoleAdmin
}
