package access

import "sort"

// Gate is an allow-list over rahat roles guarding a whole dashboard surface.
// Gates are evaluated independently of the page Table.
type Gate struct {
	name    string
	allowed map[RahatRole]struct{}
}

var (
	AdminOnly     = NewGate("admin", RoleAdmin, RoleCollector)
	CollectorOnly = NewGate("collector", RoleCollector, RoleAdmin)
	TehsildarOnly = NewGate("tehsildar", RoleTehsildar, RoleCollector, RoleAdmin)
)

// NewGate builds a gate. A gate with no roles lets everybody through.
func NewGate(name string, roles ...RahatRole) Gate {
	allowed := make(map[RahatRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return Gate{name: name, allowed: allowed}
}

func (g Gate) Name() string {
	return g.name
}

func (g Gate) Allows(role string) bool {
	if len(g.allowed) == 0 {
		return true
	}
	_, ok := g.allowed[RahatRole(role)]
	return ok
}

func (g Gate) Roles() []RahatRole {
	roles := make([]RahatRole, 0, len(g.allowed))
	for r := range g.allowed {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}
