package auth

import "github.com/jnury/regis/pkg/boundary"

// resolveScopes decides what happens after authentication based on the
// scopes visible to the new token: no scopes completes the session without
// one, a single scope is selected automatically, and anything more requires
// an explicit choice.
func resolveScopes(scopes []boundary.Scope) (selected *boundary.Scope, needsSelection bool) {
	switch len(scopes) {
	case 0:
		return nil, false
	case 1:
		return &scopes[0], false
	default:
		return nil, true
	}
}
