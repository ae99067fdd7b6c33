package auth

import "testing"

func TestLogin(t *testing.T) {
	cases := []struct {
		user, pass string
		want       Role
		ok         bool
	}{
		{"admin", "admin123", RoleAdmin, true},
		{"user", "user123", RoleUser, true},
		{"admin", "wrong", RoleNone, false},
		{"nobody", "admin123", RoleNone, false},
		{"", "", RoleNone, false},
	}
	for _, tc := range cases {
		got, err := Login(tc.user, tc.pass)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("Login(%q) = %q, %v; want %q", tc.user, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("Login(%q) expected error", tc.user)
		}
	}
}

func TestAdminOnlyPolicy(t *testing.T) {
	var p Policy = AdminOnly{}
	if !p.CanEdit(RoleAdmin) || !p.CanDelete(RoleAdmin) {
		t.Fatal("admin must be allowed to edit and delete")
	}
	if p.CanEdit(RoleUser) || p.CanDelete(RoleUser) {
		t.Fatal("user must not be allowed to edit or delete")
	}
	if p.CanEdit(RoleNone) {
		t.Fatal("anonymous must not be allowed to edit")
	}
}

func TestPermissivePolicy(t *testing.T) {
	var p Policy = Permissive{}
	if !p.CanEdit(RoleUser) || !p.CanDelete(RoleNone) {
		t.Fatal("permissive policy must allow everyone")
	}
}
