package domain

import "testing"

func TestOrder_VacateDriver(t *testing.T) {
	t.Parallel()

	o := &Order{DriverID: "d1", PastDrivers: []string{"d0"}}
	o.VacateDriver()

	if o.DriverID != "" {
		t.Errorf("expected driver cleared, got %q", o.DriverID)
	}
	if len(o.PastDrivers) != 2 || o.PastDrivers[1] != "d1" {
		t.Errorf("expected [d0 d1], got %v", o.PastDrivers)
	}

	// Vacating an unassigned order and re-vacating a past driver add nothing.
	o.VacateDriver()
	o.DriverID = "d0"
	o.VacateDriver()
	if len(o.PastDrivers) != 2 {
		t.Errorf("expected no duplicates, got %v", o.PastDrivers)
	}
}

func TestOrder_ExcludedDrivers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		order    Order
		expected []string
	}{
		{"unassigned", Order{PastDrivers: []string{"a"}}, []string{"a"}},
		{"assigned", Order{DriverID: "b", PastDrivers: []string{"a"}}, []string{"a", "b"}},
		{"assigned past driver", Order{DriverID: "a", PastDrivers: []string{"a"}}, []string{"a"}},
		{"fresh", Order{}, []string{}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := tc.order.ExcludedDrivers()
			if len(got) != len(tc.expected) {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
			for i := range got {
				if got[i] != tc.expected[i] {
					t.Errorf("expected %v, got %v", tc.expected, got)
				}
			}
		})
	}
}

func TestOrder_CloneIsDeep(t *testing.T) {
	t.Parallel()

	o := &Order{
		ID:          "o1",
		PastDrivers: []string{"a"},
		Receivers:   []Receiver{{Name: "Ada", Items: []string{"box"}}},
	}
	c := o.Clone()
	c.PastDrivers[0] = "z"
	c.Receivers[0].Name = "Bola"
	c.Receivers[0].Items[0] = "bag"

	if o.PastDrivers[0] != "a" || o.Receivers[0].Name != "Ada" || o.Receivers[0].Items[0] != "box" {
		t.Errorf("clone shares state with original: %+v", o)
	}
}

func TestOrderStatus(t *testing.T) {
	t.Parallel()

	for _, s := range []OrderStatus{OrderStatusCompleted, OrderStatusCanceled} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusIdle, OrderStatusRejected} {
		if s.Terminal() || s.RequiresDriver() {
			t.Errorf("%s should be open and driverless-capable", s)
		}
	}
	if OrderStatus("lost").Valid() {
		t.Error("unknown status must be invalid")
	}
}
