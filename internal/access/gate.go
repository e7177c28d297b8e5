// Package access implements the publish authorization policy.
//
// Two rules, evaluated as a logical OR: membership in the Admin role, or an
// exact match against a single configured privileged username. Both rules
// are first-class and independently testable; an empty privileged username
// disables the second rule entirely.
package access

import "github.com/intisor/AnnounceHub/internal/domain"

// Action is a gated operation.
type Action string

// ActionPublish is the only gated action: creating an announcement.
const ActionPublish Action = "Publish"

// Gate decides whether an identity may perform an action. Decisions are
// pure functions of the identity and the configured policy; the gate holds
// no mutable state.
type Gate struct {
	privilegedUsername string
}

// NewGate creates a gate. privilegedUsername may be empty, which disables
// the named-identity rule.
func NewGate(privilegedUsername string) *Gate {
	return &Gate{privilegedUsername: privilegedUsername}
}

// Authorize reports whether identity may perform action. Anonymous
// identities are always denied. Never returns an error.
func (g *Gate) Authorize(identity domain.Identity, action Action) bool {
	if identity.IsAnonymous() {
		return false
	}
	if action != ActionPublish {
		return false
	}
	return g.roleRule(identity) || g.namedIdentityRule(identity)
}

// roleRule grants access to holders of the Admin role.
func (g *Gate) roleRule(identity domain.Identity) bool {
	return identity.HasRole(domain.RoleAdmin)
}

// namedIdentityRule grants access to the single configured privileged
// username, regardless of roles.
func (g *Gate) namedIdentityRule(identity domain.Identity) bool {
	return g.privilegedUsername != "" && identity.Name == g.privilegedUsername
}
