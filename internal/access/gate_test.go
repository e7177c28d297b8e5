package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/intisor/AnnounceHub/internal/domain"
)

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name       string
		privileged string
		identity   domain.Identity
		action     Action
		want       bool
	}{
		{
			name:     "admin role grants publish regardless of name",
			identity: domain.Identity{Name: "someone", Roles: []string{"Admin"}},
			action:   ActionPublish,
			want:     true,
		},
		{
			name:       "privileged username grants publish regardless of roles",
			privileged: "Intitech",
			identity:   domain.Identity{Name: "Intitech"},
			action:     ActionPublish,
			want:       true,
		},
		{
			name:       "non-admin non-privileged identity is denied",
			privileged: "Intitech",
			identity:   domain.Identity{Name: "viewer", Roles: []string{"Member"}},
			action:     ActionPublish,
			want:       false,
		},
		{
			name:     "anonymous identity is denied",
			identity: domain.Identity{},
			action:   ActionPublish,
			want:     false,
		},
		{
			name:       "anonymous identity is denied even with empty privileged name configured",
			privileged: "",
			identity:   domain.Identity{},
			action:     ActionPublish,
			want:       false,
		},
		{
			name:       "privileged username comparison is exact",
			privileged: "Intitech",
			identity:   domain.Identity{Name: "intitech"},
			action:     ActionPublish,
			want:       false,
		},
		{
			name:     "unknown action is denied even for admins",
			identity: domain.Identity{Name: "root", Roles: []string{"Admin"}},
			action:   Action("Delete"),
			want:     false,
		},
		{
			name:     "role match requires the exact Admin role",
			identity: domain.Identity{Name: "mod", Roles: []string{"Moderator", "Editor"}},
			action:   ActionPublish,
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(tt.privileged)
			assert.Equal(t, tt.want, gate.Authorize(tt.identity, tt.action))
		})
	}
}

func TestRulesAreIndependent(t *testing.T) {
	gate := NewGate("Intitech")

	// Each rule alone is sufficient.
	assert.True(t, gate.roleRule(domain.Identity{Name: "x", Roles: []string{"Admin"}}))
	assert.False(t, gate.roleRule(domain.Identity{Name: "Intitech"}))

	assert.True(t, gate.namedIdentityRule(domain.Identity{Name: "Intitech"}))
	assert.False(t, gate.namedIdentityRule(domain.Identity{Name: "x", Roles: []string{"Admin"}}))
}

func TestAuthorizeIsStateless(t *testing.T) {
	gate := NewGate("Intitech")
	identity := domain.Identity{Name: "viewer"}

	// Repeated calls never change outcome.
	for n := 0; n < 3; n++ {
		assert.False(t, gate.Authorize(identity, ActionPublish))
	}
	assert.True(t, gate.Authorize(domain.Identity{Name: "Intitech"}, ActionPublish))
	assert.False(t, gate.Authorize(identity, ActionPublish))
}
