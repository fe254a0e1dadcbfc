package domain

import (
	"errors"
	"testing"
)

func TestPermittedViewsContainment(t *testing.T) {
	user := PermittedViews(RoleUser)
	sponsor := PermittedViews(RoleSponsor)
	admin := PermittedViews(RoleAdmin)

	contains := func(views []View, want View) bool {
		for _, v := range views {
			if v == want {
				return true
			}
		}
		return false
	}

	for _, v := range user {
		if !contains(sponsor, v) {
			t.Errorf("sponsor missing user view %s", v)
		}
	}
	for _, v := range sponsor {
		if !contains(admin, v) {
			t.Errorf("admin missing sponsor view %s", v)
		}
	}

	if len(user) != 3 {
		t.Fatalf("expected 3 user views, got %v", user)
	}
	if !contains(sponsor, ViewSponsorDashboard) || contains(user, ViewSponsorDashboard) {
		t.Fatalf("sponsor dashboard gated incorrectly: user=%v sponsor=%v", user, sponsor)
	}
	if !contains(admin, ViewAdminPanel) || contains(sponsor, ViewAdminPanel) {
		t.Fatalf("admin panel gated incorrectly: sponsor=%v admin=%v", sponsor, admin)
	}
}

func TestAuthorize(t *testing.T) {
	cases := []struct {
		role    Role
		view    View
		allowed bool
	}{
		{RoleUser, ViewHome, true},
		{RoleUser, ViewCommunity, true},
		{RoleUser, ViewSponsorDashboard, false},
		{RoleUser, ViewAdminPanel, false},
		{RoleSponsor, ViewSponsorDashboard, true},
		{RoleSponsor, ViewAdminPanel, false},
		{RoleAdmin, ViewAdminPanel, true},
		{RoleAdmin, ViewHome, true},
		{Role("intruder"), ViewHome, false},
	}
	for _, tc := range cases {
		err := Authorize(tc.role, tc.view)
		if tc.allowed && err != nil {
			t.Errorf("Authorize(%s, %s): unexpected denial %v", tc.role, tc.view, err)
		}
		if !tc.allowed {
			var denied AccessDeniedError
			if !errors.As(err, &denied) {
				t.Errorf("Authorize(%s, %s): expected AccessDeniedError, got %v", tc.role, tc.view, err)
				continue
			}
			if denied.Role != tc.role || denied.View != tc.view {
				t.Errorf("Authorize(%s, %s): denial carries %s/%s", tc.role, tc.view, denied.Role, denied.View)
			}
		}
	}
}

func TestSpeciesCatalog(t *testing.T) {
	if !SpeciesTomato.Valid() || !SpeciesChives.Valid() {
		t.Fatalf("catalog species should be valid")
	}
	if Species("Cactus").Valid() {
		t.Fatalf("unknown species should be invalid")
	}
	if got := len(SpeciesCatalog()); got != 7 {
		t.Fatalf("expected 7 catalog species, got %d", got)
	}
}
