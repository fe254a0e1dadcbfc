package domain

// Role is a capability tier claimed by the caller per request. The engine
// never authenticates roles; an external identity provider supplies them.
type Role string

// Roles ordered by capability containment: each tier includes the views of
// the tiers below it.
const (
	RoleUser    Role = "user"
	RoleSponsor Role = "sponsor"
	RoleAdmin   Role = "admin"
)

// View identifies a page-level surface gated by role.
type View string

// Views exposed by the application shell.
const (
	ViewHome             View = "home"
	ViewMyPlants         View = "my_plants"
	ViewCommunity        View = "community"
	ViewSponsorDashboard View = "sponsor_dashboard"
	ViewAdminPanel       View = "admin_panel"
)

// rank orders roles by capability; unknown roles rank below user.
func (r Role) rank() int {
	switch r {
	case RoleUser:
		return 1
	case RoleSponsor:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}

// Valid reports whether the role is one of the recognised tiers.
func (r Role) Valid() bool {
	return r.rank() > 0
}

// PermittedViews returns the views the role may access, in navigation order.
// Sponsor extends the user set, admin extends the sponsor set.
func PermittedViews(role Role) []View {
	views := make([]View, 0, 5)
	if role.rank() >= RoleUser.rank() {
		views = append(views, ViewHome, ViewMyPlants, ViewCommunity)
	}
	if role.rank() >= RoleSponsor.rank() {
		views = append(views, ViewSponsorDashboard)
	}
	if role.rank() >= RoleAdmin.rank() {
		views = append(views, ViewAdminPanel)
	}
	return views
}

// Authorize returns nil when the role may access the view and an
// AccessDeniedError otherwise. Denials are explicit; callers must not fall
// back to a different view silently.
func Authorize(role Role, view View) error {
	for _, permitted := range PermittedViews(role) {
		if permitted == view {
			return nil
		}
	}
	return AccessDeniedError{Role: role, View: view}
}
