package model

import "testing"

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"client":   RoleClient,
		"Customer": RoleClient,
		"owner":    RoleMerchant,
		" staff ":  RoleMerchant,
		"merchant": RoleMerchant,
	}
	for raw, want := range cases {
		got, ok := ParseRole(raw)
		if !ok || got != want {
			t.Fatalf("ParseRole(%q)=%q,%v want %q", raw, got, ok, want)
		}
	}
	if _, ok := ParseRole("guest"); ok {
		t.Fatal("expected unknown role to be rejected")
	}
}

func TestCanAccess(t *testing.T) {
	appt := Appointment{ClientID: "c1", BusinessID: "b1"}
	cases := []struct {
		actor Actor
		want  bool
	}{
		{Actor{ID: "c1", Role: RoleClient}, true},
		{Actor{ID: "c2", Role: RoleClient}, false},
		{Actor{ID: "m1", Role: RoleMerchant, BusinessID: "b1"}, true},
		{Actor{ID: "m1", Role: RoleMerchant, BusinessID: "b2"}, false},
		{Actor{ID: "c1", Role: RoleMerchant}, false},
	}
	for _, tt := range cases {
		if got := tt.actor.CanAccess(appt); got != tt.want {
			t.Fatalf("CanAccess(%+v)=%v want %v", tt.actor, got, tt.want)
		}
	}
}

func TestDisplayStatus(t *testing.T) {
	a := Appointment{Status: StatusPending, PriorStatus: StatusConfirmed}
	if a.DisplayStatus() != StatusRescheduled {
		t.Fatalf("expected rescheduled, got %s", a.DisplayStatus())
	}
	a.PriorStatus = ""
	if a.DisplayStatus() != StatusPending {
		t.Fatalf("expected pending, got %s", a.DisplayStatus())
	}
}
