package access

import (
	"fmt"
	"sort"
)

// Policy maps a role to the page patterns it may view.
type Policy map[RahatRole][]string

// DefaultPolicy is the dashboard's page policy. Roles missing here use DefaultFallback.
func DefaultPolicy() Policy {
	return Policy{
		RoleCollector: {"/", "/overview", "/cases", "/admin", "/cases/[id]", "/cases/[id]/close"},
		RoleTehsildar: {"/", "/ready-to-close", "/cases/[id]", "/cases/[id]/close"},
	}
}

func DefaultFallback() []string {
	return []string{"/", "/cases/[id]"}
}

// Table is the role to page lookup. It is immutable once built and safe for concurrent use.
type Table struct {
	rules    map[RahatRole][]Pattern
	fallback []Pattern
}

// NewTable validates every role and pattern up front so a typo fails at startup, not at lookup.
func NewTable(policy Policy, fallback []string) (*Table, error) {
	t := &Table{rules: make(map[RahatRole][]Pattern, len(policy))}

	for role, raws := range policy {
		if !role.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRole, string(role))
		}
		patterns, err := parsePatterns(raws)
		if err != nil {
			return nil, fmt.Errorf("role %s: %w", role, err)
		}
		t.rules[role] = patterns
	}

	patterns, err := parsePatterns(fallback)
	if err != nil {
		return nil, fmt.Errorf("fallback: %w", err)
	}
	t.fallback = patterns

	return t, nil
}

func MustNewTable(policy Policy, fallback []string) *Table {
	t, err := NewTable(policy, fallback)
	if err != nil {
		panic(err)
	}
	return t
}

func DefaultTable() *Table {
	return MustNewTable(DefaultPolicy(), DefaultFallback())
}

func parsePatterns(raws []string) ([]Pattern, error) {
	patterns := make([]Pattern, 0, len(raws))
	for _, raw := range raws {
		p, err := ParsePattern(raw)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

// IsAllowed is total over every input: unknown or misspelled roles get the
// fallback set, and an empty role is allowed nothing.
func (t *Table) IsAllowed(role, path string) bool {
	for _, p := range t.patternsFor(role) {
		if p.Matches(path) {
			return true
		}
	}
	return false
}

// AllowedPatterns returns the raw patterns that apply to role.
func (t *Table) AllowedPatterns(role string) []string {
	patterns := t.patternsFor(role)
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = p.String()
	}
	return out
}

// ConfiguredRoles lists roles with an explicit rule, sorted.
func (t *Table) ConfiguredRoles() []RahatRole {
	roles := make([]RahatRole, 0, len(t.rules))
	for r := range t.rules {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

func (t *Table) patternsFor(role string) []Pattern {
	if role == "" {
		return nil
	}
	if patterns, ok := t.rules[RahatRole(role)]; ok {
		return patterns
	}
	return t.fallback
}
