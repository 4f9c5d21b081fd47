package state

// ScopeSource reports the signed-in user and signals when it changes.
type ScopeSource interface {
	CurrentUserID() (string, bool)
	Subscribe(fn func(userID string)) (unsubscribe func())
}

// Scoped is anything that can be re-keyed for a user.
type Scoped interface {
	SetScope(userID string)
}

// BindScope keys every container to the source's current user and re-keys them whenever it changes.
//
// Signing out maps to the anonymous scope.
func BindScope(source ScopeSource, containers ...Scoped) (unbind func()) {
	apply := func(userID string) {
		for _, c := range containers {
			c.SetScope(userID)
		}
	}

	if id, ok := source.CurrentUserID(); ok {
		apply(id)
	} else {
		apply("")
	}
	return source.Subscribe(apply)
}
