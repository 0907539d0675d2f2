package model

import "testing"

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"teacher":   RoleTeacher,
		" Student ": RoleStudent,
		"PARENT":    RoleParent,
	}
	for input, expect := range cases {
		role, ok := ParseRole(input)
		if !ok || role != expect {
			t.Fatalf("expected %s for %q, got %s ok=%v", expect, input, role, ok)
		}
	}
	for _, input := range []string{"", "admin", "tutor"} {
		if _, ok := ParseRole(input); ok {
			t.Fatalf("expected %q to be rejected", input)
		}
	}
}
